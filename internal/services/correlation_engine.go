package services

import (
	"io"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/models"
)

const (
	stressWeightAcceleration = 0.4
	stressWeightVolatility   = 0.3
	stressWeightVariance     = 0.3

	// Metrics that compare year-long spans need at least this many points.
	yearWindow = 12
)

// CorrelationEngine scores the AL/RL relationship and inflation stress of each state.
type CorrelationEngine struct {
	config config.AnalyticsConfig
	logger *logrus.Logger
}

// NewCorrelationEngine creates a correlation engine. A nil logger discards output.
func NewCorrelationEngine(cfg config.AnalyticsConfig, logger *logrus.Logger) *CorrelationEngine {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.VolatilityWindow <= 0 {
		cfg.VolatilityWindow = 24
	}
	if cfg.MaxLagMonths < 0 {
		cfg.MaxLagMonths = 6
	}
	return &CorrelationEngine{
		config: cfg,
		logger: logger,
	}
}

// Analyze computes the stress and stability assessment of one state's
// chronologically sorted series. Metrics needing a year of history are 0 and
// InsufficientData is set when fewer than 12 AL points are reported.
func (e *CorrelationEngine) Analyze(state string, series []models.PriceRecord) *models.CorrelationResult {
	al := IndexValues(series, models.LaborTypeAL)
	rl := IndexValues(series, models.LaborTypeRL)

	lag := OptimalLag(al, rl, e.config.MaxLagMonths)
	// Composite scores are built from the reported 2-decimal metrics so a
	// result always reproduces from its own fields.
	vol := Volatility(tail(al, e.config.VolatilityWindow))
	variance := round2(RollingVariance(al))
	acceleration := round2(InflationAcceleration(al))

	result := &models.CorrelationResult{
		State:                 state,
		ALRLCorrelation:       round4(lag.Correlation),
		ALRLLagMonths:         lag.Lag,
		StressIndex:           StressIndex(acceleration, vol, variance),
		InflationAcceleration: acceleration,
		RollingVariance:       variance,
		StabilityScore:        round2(StabilityScore(vol)),
		CAGR:                  round2(CAGR(al)),
		Volatility:            vol,
		InsufficientData:      len(al) < yearWindow,
	}

	e.logger.WithFields(logrus.Fields{
		"state":        state,
		"al_points":    len(al),
		"rl_points":    len(rl),
		"lag":          result.ALRLLagMonths,
		"stress_index": result.StressIndex,
	}).Debug("Correlation computed")

	return result
}

// AnalyzeAll scores every listed state except the national aggregate and
// returns the results ordered by descending stress index.
func (e *CorrelationEngine) AnalyzeAll(records []models.PriceRecord, states []string) []models.CorrelationResult {
	grouped := GroupByState(records)
	results := make([]models.CorrelationResult, 0, len(states))
	for _, state := range states {
		if strings.EqualFold(state, e.config.NationalAggregate) {
			continue
		}
		results = append(results, *e.Analyze(state, grouped[state]))
	}
	SortByStress(results)
	return results
}

// SortByStress orders results by descending stress index, keeping input order on ties.
func SortByStress(results []models.CorrelationResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].StressIndex > results[j].StressIndex
	})
}

// OptimalLag searches lags 0..maxLag for the shift of AL against RL with the
// largest absolute Pearson correlation. Ties keep the smaller lag.
func OptimalLag(al, rl []float64, maxLag int) models.LagCorrelation {
	best := models.LagCorrelation{}
	for lag := 0; lag <= maxLag; lag++ {
		if lag >= len(al) || lag >= len(rl) {
			break
		}
		x := al[lag:]
		y := rl[:len(rl)-lag]
		n := len(x)
		if len(y) < n {
			n = len(y)
		}
		corr := PearsonCorrelation(x[:n], y[:n])
		if math.Abs(corr) > math.Abs(best.Correlation) {
			best = models.LagCorrelation{Lag: lag, Correlation: corr}
		}
	}
	return best
}

// CAGR annualizes growth from the first to the last point, treating each
// point as one month. Fewer than 12 points or a non-positive endpoint yield 0.
func CAGR(values []float64) float64 {
	n := len(values)
	if n < yearWindow {
		return 0
	}
	first, last := values[0], values[n-1]
	if first <= 0 || last <= 0 {
		return 0
	}
	return (math.Pow(last/first, float64(yearWindow)/float64(n)) - 1) * 100
}

// RollingVariance is the population variance of percent changes over the
// trailing 12 points.
func RollingVariance(values []float64) float64 {
	if len(values) < yearWindow {
		return 0
	}
	return populationVariance(percentChanges(tail(values, yearWindow)))
}

// InflationAcceleration is the growth over the latest 6-point span minus the
// growth over the 6-point span before it.
func InflationAcceleration(values []float64) float64 {
	n := len(values)
	if n < yearWindow {
		return 0
	}
	recent := growthPercent(values[n-6], values[n-1])
	prior := growthPercent(values[n-12], values[n-7])
	return recent - prior
}

// StressIndex blends |acceleration|, volatility and rolling variance with
// 0.4/0.3/0.3 weights, unnormalized, rounded to 2 decimals.
func StressIndex(acceleration, volatility, rollingVariance float64) float64 {
	return round2(stressWeightAcceleration*math.Abs(acceleration) +
		stressWeightVolatility*volatility +
		stressWeightVariance*rollingVariance)
}

// StabilityScore maps volatility onto 0-100, higher meaning calmer.
func StabilityScore(volatility float64) float64 {
	return clamp(100-volatility*10, 0, 100)
}
