package services

import (
	"io"
	"math"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/models"
)

// ForecastEngine projects a state's index forward with an OLS trend scaled by
// multiplicative seasonal ratios.
type ForecastEngine struct {
	config config.AnalyticsConfig
	logger *logrus.Logger
}

// NewForecastEngine creates a forecast engine. A nil logger discards output.
func NewForecastEngine(cfg config.AnalyticsConfig, logger *logrus.Logger) *ForecastEngine {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.ForecastHorizon <= 0 {
		cfg.ForecastHorizon = 12
	}
	if cfg.ForecastWindow < 2 {
		cfg.ForecastWindow = 24
	}
	if cfg.MinForecastPoints < 2 {
		cfg.MinForecastPoints = 6
	}
	return &ForecastEngine{
		config: cfg,
		logger: logger,
	}
}

// Forecast projects horizon months past the last reported observation of a
// chronologically sorted series. horizon <= 0 uses the configured default.
// Histories shorter than the configured minimum return an empty forecast with
// InsufficientData set and a confidence of 0.
func (e *ForecastEngine) Forecast(state string, series []models.PriceRecord, lt models.LaborType, horizon int) *models.ForecastResult {
	if horizon <= 0 {
		horizon = e.config.ForecastHorizon
	}

	result := &models.ForecastResult{
		State:          state,
		LaborType:      lt,
		ForecastValues: []models.ForecastPoint{},
	}

	points := indexPoints(series, lt)
	n := len(points)
	if n < e.config.MinForecastPoints {
		result.InsufficientData = true
		e.logger.WithFields(logrus.Fields{
			"state":      state,
			"labor_type": lt,
			"points":     n,
		}).Debug("Insufficient history for forecast")
		return result
	}

	values := make([]float64, n)
	for i, p := range points {
		values[i] = p.value
	}

	window := tail(values, e.config.ForecastWindow)
	w := len(window)
	slope, intercept := fitLinearTrend(window)
	ratios := seasonalRatios(points, slope, intercept)

	vol := Volatility(window)
	band := math.Max(0.5, vol*0.3)

	last := points[n-1]
	forecast := make([]models.ForecastPoint, 0, horizon)
	var lastPredicted float64
	for k := 1; k <= horizon; k++ {
		trendValue := intercept + slope*float64(w+k)
		offset := last.month + k
		month := offset % 12
		predicted := trendValue * ratios[month]
		lastPredicted = predicted

		forecast = append(forecast, models.ForecastPoint{
			Month: models.Months[month],
			Year:  last.year + offset/12,
			Value: round2(predicted),
			Lower: round2(predicted * (1 - band/100)),
			Upper: round2(predicted * (1 + band/100)),
		})
	}

	result.ForecastValues = forecast
	result.TrendSlope = round4(slope)
	result.Intercept = round4(intercept)
	result.ProjectedGrowthRate = round2(growthPercent(last.value, lastPredicted))
	result.Momentum = round2(momentum(values))
	result.AccelerationScore = round2(accelerationScore(values))
	result.ConfidenceLevel = round2(clamp(90-vol*5, 30, 95))

	e.logger.WithFields(logrus.Fields{
		"state":      state,
		"labor_type": lt,
		"points":     n,
		"window":     w,
		"slope":      result.TrendSlope,
		"confidence": result.ConfidenceLevel,
	}).Debug("Forecast computed")

	return result
}

// seasonalRatios averages actual/trend per calendar month over the full
// series. The trend is the line fitted on the trailing window, evaluated at
// each point's position in the full series: the window fit serves as a proxy
// for the whole history. Months never observed keep a neutral ratio of 1.
func seasonalRatios(points []seriesPoint, slope, intercept float64) [12]float64 {
	var sums [12]float64
	var counts [12]int
	for i, p := range points {
		trendValue := intercept + slope*float64(i)
		if trendValue <= 0 {
			continue
		}
		sums[p.month] += p.value / trendValue
		counts[p.month]++
	}

	var ratios [12]float64
	for m := range ratios {
		if counts[m] == 0 {
			ratios[m] = 1
			continue
		}
		ratios[m] = sums[m] / float64(counts[m])
	}
	return ratios
}

// momentum compares the mean of the last 6 points with the 6 before them.
func momentum(values []float64) float64 {
	n := len(values)
	if n < 12 {
		return 0
	}
	recent := calculateMeanFloat64(values[n-6:])
	prior := calculateMeanFloat64(values[n-12 : n-6])
	return growthPercent(prior, recent)
}

// accelerationScore is the growth across the latest 3 points minus the growth
// across the 3 before them.
func accelerationScore(values []float64) float64 {
	n := len(values)
	if n < 6 {
		return 0
	}
	recent := growthPercent(values[n-3], values[n-1])
	prior := growthPercent(values[n-6], values[n-4])
	return recent - prior
}
