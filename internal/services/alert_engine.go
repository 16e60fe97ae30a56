package services

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/models"
)

// AlertEngine turns current inflation, the recent index trajectory and an
// optional forecast into severity-tagged alerts. It holds no state between calls.
type AlertEngine struct {
	config config.AlertConfig
	logger *logrus.Logger
}

// NewAlertEngine creates an alert engine. A nil logger discards output.
func NewAlertEngine(cfg config.AlertConfig, logger *logrus.Logger) *AlertEngine {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.MinObservations <= 0 {
		cfg.MinObservations = 3
	}
	return &AlertEngine{
		config: cfg,
		logger: logger,
	}
}

// Evaluate applies the alert rules to one state. inflation may be nil when no
// year-over-year figure exists; trajectory holds the latest reported index
// values (only the last 3 are used); forecast may be nil. The returned alerts
// are sorted with SortAlerts.
func (e *AlertEngine) Evaluate(state string, inflation *float64, trajectory []float64, forecast *models.ForecastResult) []models.Alert {
	alerts := make([]models.Alert, 0)

	if inflation != nil {
		v := *inflation
		switch {
		case v > e.config.HighInflation:
			alerts = append(alerts, models.Alert{
				State:    state,
				Type:     models.AlertHighCPIGrowth,
				Severity: models.SeverityRed,
				Message:  fmt.Sprintf("%s: CPI inflation at %.2f%% is above %.2f%%", state, v, e.config.HighInflation),
				Value:    round2(v),
			})
		case v > e.config.ElevatedInflation:
			alerts = append(alerts, models.Alert{
				State:    state,
				Type:     models.AlertElevatedCPIGrowth,
				Severity: models.SeverityYellow,
				Message:  fmt.Sprintf("%s: CPI inflation at %.2f%% is above %.2f%%", state, v, e.config.ElevatedInflation),
				Value:    round2(v),
			})
		}
		if v < e.config.DeclineInflation {
			alerts = append(alerts, models.Alert{
				State:    state,
				Type:     models.AlertSharpCPIDecline,
				Severity: models.SeverityRed,
				Message:  fmt.Sprintf("%s: CPI inflation at %.2f%% is below %.2f%%", state, v, e.config.DeclineInflation),
				Value:    round2(v),
			})
		}
	}

	if alert, ok := e.sustainedIncrease(state, trajectory); ok {
		alerts = append(alerts, alert)
	}

	if forecast != nil && !forecast.InsufficientData && forecast.ProjectedGrowthRate > e.config.ForecastSpike {
		alerts = append(alerts, models.Alert{
			State:    state,
			Type:     models.AlertForecastSpike,
			Severity: models.SeverityRed,
			Message: fmt.Sprintf("%s: index projected to grow %.2f%% over the forecast horizon",
				state, forecast.ProjectedGrowthRate),
			Value: round2(forecast.ProjectedGrowthRate),
		})
	}

	SortAlerts(alerts)
	return alerts
}

func (e *AlertEngine) sustainedIncrease(state string, trajectory []float64) (models.Alert, bool) {
	if len(trajectory) < 3 {
		return models.Alert{}, false
	}
	last := trajectory[len(trajectory)-3:]
	v0, v1, v2 := last[0], last[1], last[2]
	if v0 <= 0 || !(v0 < v1 && v1 < v2) {
		return models.Alert{}, false
	}

	rise := growthPercent(v0, v2)
	if rise <= e.config.SustainedRiseMin {
		return models.Alert{}, false
	}

	severity := models.SeverityYellow
	if rise > e.config.SustainedRiseRed {
		severity = models.SeverityRed
	}
	return models.Alert{
		State:    state,
		Type:     models.AlertSustainedIncrease,
		Severity: severity,
		Message:  fmt.Sprintf("%s: index rose %.2f%% over 3 consecutive months", state, rise),
		Value:    round2(rise),
	}, true
}

// EvaluateSeries derives the rule inputs from a chronologically sorted series.
// When the latest record carries no published inflation the computed
// year-over-year change is used instead.
func (e *AlertEngine) EvaluateSeries(state string, series []models.PriceRecord, lt models.LaborType, forecast *models.ForecastResult) []models.Alert {
	if len(series) < e.config.MinObservations {
		return []models.Alert{}
	}

	inflation := series[len(series)-1].Inflation(lt)
	if inflation == nil {
		if yoy, ok := YearOverYear(series, lt); ok {
			inflation = &yoy
		}
	}

	return e.Evaluate(state, inflation, tail(IndexValues(series, lt), 3), forecast)
}

// Generate evaluates every listed state and returns one ranked list. States
// with fewer than the minimum number of observations are skipped.
func (e *AlertEngine) Generate(records []models.PriceRecord, states []string, lt models.LaborType, forecasts map[string]*models.ForecastResult) []models.Alert {
	grouped := GroupByState(records)
	alerts := make([]models.Alert, 0)
	for _, state := range states {
		alerts = append(alerts, e.EvaluateSeries(state, grouped[state], lt, forecasts[state])...)
	}
	SortAlerts(alerts)

	e.logger.WithFields(logrus.Fields{
		"states":     len(states),
		"labor_type": lt,
		"alerts":     len(alerts),
	}).Debug("Alerts generated")

	return alerts
}

// SortAlerts orders Red before Yellow, then by descending |value|. Equal
// entries keep their relative order.
func SortAlerts(alerts []models.Alert) {
	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alerts[i].Severity.Rank(), alerts[j].Severity.Rank()
		if ri != rj {
			return ri < rj
		}
		return math.Abs(alerts[i].Value) > math.Abs(alerts[j].Value)
	})
}
