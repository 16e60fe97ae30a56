package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/irfndi/cpi-insights/internal/models"
)

// Outcome labels for per-state processing.
const (
	OutcomeOK           = "ok"
	OutcomeInsufficient = "insufficient_data"
)

// Metrics holds the Prometheus collectors of the analytics engines.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	EngineRuns      *prometheus.CounterVec
	EngineDuration  *prometheus.HistogramVec
	StatesProcessed *prometheus.CounterVec
	AlertsEmitted   *prometheus.CounterVec
}

// NewMetrics creates the engine collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EngineRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpi_engine_runs_total",
				Help: "Total number of batch runs per engine",
			},
			[]string{"engine"},
		),
		EngineDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cpi_engine_duration_seconds",
				Help:    "Duration of batch runs per engine in seconds",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5},
			},
			[]string{"engine"},
		),
		StatesProcessed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpi_states_processed_total",
				Help: "Total number of states processed per engine and outcome",
			},
			[]string{"engine", "outcome"},
		),
		AlertsEmitted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cpi_alerts_emitted_total",
				Help: "Total number of alerts emitted by severity",
			},
			[]string{"severity"},
		),
	}

	reg.MustRegister(m.EngineRuns, m.EngineDuration, m.StatesProcessed, m.AlertsEmitted)
	return m
}

// ObserveRun records one batch run of engine.
func (m *Metrics) ObserveRun(engine string, duration time.Duration) {
	if m == nil {
		return
	}
	m.EngineRuns.WithLabelValues(engine).Inc()
	m.EngineDuration.WithLabelValues(engine).Observe(duration.Seconds())
}

// ObserveState records one processed state.
func (m *Metrics) ObserveState(engine string, insufficient bool) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if insufficient {
		outcome = OutcomeInsufficient
	}
	m.StatesProcessed.WithLabelValues(engine, outcome).Inc()
}

// ObserveAlerts counts emitted alerts by severity.
func (m *Metrics) ObserveAlerts(alerts []models.Alert) {
	if m == nil {
		return
	}
	for _, a := range alerts {
		m.AlertsEmitted.WithLabelValues(string(a.Severity)).Inc()
	}
}
