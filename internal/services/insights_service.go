package services

import (
	"context"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/metrics"
	"github.com/irfndi/cpi-insights/internal/models"
	"github.com/irfndi/cpi-insights/internal/telemetry"
)

// Engine names used for metrics and spans.
const (
	EngineForecast    = "forecast"
	EngineCorrelation = "correlation"
	EngineAlerts      = "alerts"
)

// InsightsService runs the engines over every state of a record set. Per-state
// work is spread over a bounded worker pool; results land in input order.
type InsightsService struct {
	config      config.AnalyticsConfig
	forecast    *ForecastEngine
	correlation *CorrelationEngine
	alerts      *AlertEngine
	metrics     *metrics.Metrics
	logger      *logrus.Logger
}

// NewInsightsService wires the three engines. m may be nil.
func NewInsightsService(cfg config.AnalyticsConfig, alertCfg config.AlertConfig, logger *logrus.Logger, m *metrics.Metrics) *InsightsService {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &InsightsService{
		config:      cfg,
		forecast:    NewForecastEngine(cfg, logger),
		correlation: NewCorrelationEngine(cfg, logger),
		alerts:      NewAlertEngine(alertCfg, logger),
		metrics:     m,
		logger:      logger,
	}
}

// States lists every state present in records, national aggregate included.
func (s *InsightsService) States(records []models.PriceRecord) []string {
	return States(records)
}

// HasState reports whether records contain at least one observation for state.
func (s *InsightsService) HasState(records []models.PriceRecord, state string) bool {
	for _, r := range records {
		if r.State == state {
			return true
		}
	}
	return false
}

// Forecast projects a single state.
func (s *InsightsService) Forecast(records []models.PriceRecord, state string, lt models.LaborType, horizon int) *models.ForecastResult {
	return s.forecast.Forecast(state, TimeSeries(records, state), lt, horizon)
}

// Series summarizes one state's history with a trailing moving average.
func (s *InsightsService) Series(records []models.PriceRecord, state string, lt models.LaborType, window int) *models.SeriesSummary {
	series := TimeSeries(records, state)

	reported := make([]models.PriceRecord, 0, len(series))
	for _, r := range series {
		if r.Index(lt) > 0 {
			reported = append(reported, r)
		}
	}
	values := IndexValues(reported, lt)
	averaged := MovingAverage(values, window)

	points := make([]models.SeriesPoint, len(reported))
	for i, r := range reported {
		points[i] = models.SeriesPoint{
			Month:         r.Month,
			Year:          r.Year,
			Value:         values[i],
			MovingAverage: round2(averaged[i]),
		}
	}

	summary := &models.SeriesSummary{
		State:      state,
		LaborType:  lt,
		Window:     window,
		Points:     points,
		Volatility: Volatility(values),
	}
	if yoy, ok := YearOverYear(series, lt); ok {
		summary.YearOverYear = &yoy
	}
	return summary
}

// ForecastAll projects every state. horizon <= 0 uses the configured default.
func (s *InsightsService) ForecastAll(ctx context.Context, records []models.PriceRecord, lt models.LaborType, horizon int) ([]models.ForecastResult, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetEngineTracer(), "insights.forecast_all",
		attribute.String("labor_type", string(lt)),
		attribute.Int("horizon", horizon))
	defer span.End()
	start := time.Now()

	grouped := GroupByState(records)
	states := States(records)
	results := make([]models.ForecastResult, len(states))

	err := s.fanOut(ctx, len(states), func(i int) {
		results[i] = *s.forecast.Forecast(states[i], grouped[states[i]], lt, horizon)
		s.metrics.ObserveState(EngineForecast, results[i].InsufficientData)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.finish(EngineForecast, start, len(states))
	return results, nil
}

// CorrelateAll scores every state except the national aggregate, ordered by
// descending stress index.
func (s *InsightsService) CorrelateAll(ctx context.Context, records []models.PriceRecord) ([]models.CorrelationResult, error) {
	ctx, span := telemetry.StartSpan(ctx, telemetry.GetEngineTracer(), "insights.correlate_all")
	defer span.End()
	start := time.Now()

	grouped := GroupByState(records)
	states := States(records, s.config.NationalAggregate)
	results := make([]models.CorrelationResult, len(states))

	err := s.fanOut(ctx, len(states), func(i int) {
		results[i] = *s.correlation.Analyze(states[i], grouped[states[i]])
		s.metrics.ObserveState(EngineCorrelation, results[i].InsufficientData)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	SortByStress(results)
	s.finish(EngineCorrelation, start, len(states))
	return results, nil
}

// Alerts forecasts every state and evaluates the alert rules against the
// outcome, returning one ranked list.
func (s *InsightsService) Alerts(ctx context.Context, records []models.PriceRecord, lt models.LaborType) ([]models.Alert, error) {
	forecasts, err := s.ForecastAll(ctx, records, lt, 0)
	if err != nil {
		return nil, err
	}
	return s.alertsFor(ctx, records, lt, forecasts)
}

// Dashboard computes forecasts, correlations and alerts for one labor type.
func (s *InsightsService) Dashboard(ctx context.Context, records []models.PriceRecord, lt models.LaborType) (*models.Dashboard, error) {
	var (
		forecasts    []models.ForecastResult
		correlations []models.CorrelationResult
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		forecasts, err = s.ForecastAll(gctx, records, lt, 0)
		return err
	})
	g.Go(func() error {
		var err error
		correlations, err = s.CorrelateAll(gctx, records)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	alerts, err := s.alertsFor(ctx, records, lt, forecasts)
	if err != nil {
		return nil, err
	}

	return &models.Dashboard{
		LaborType:    lt,
		Forecasts:    forecasts,
		Correlations: correlations,
		Alerts:       alerts,
	}, nil
}

func (s *InsightsService) alertsFor(ctx context.Context, records []models.PriceRecord, lt models.LaborType, forecasts []models.ForecastResult) ([]models.Alert, error) {
	_, span := telemetry.StartSpan(ctx, telemetry.GetEngineTracer(), "insights.alerts",
		attribute.String("labor_type", string(lt)))
	defer span.End()

	if err := ctx.Err(); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	start := time.Now()

	byState := make(map[string]*models.ForecastResult, len(forecasts))
	for i := range forecasts {
		byState[forecasts[i].State] = &forecasts[i]
	}

	states := States(records)
	alerts := s.alerts.Generate(records, states, lt, byState)
	s.metrics.ObserveAlerts(alerts)
	span.SetAttributes(attribute.Int("alerts", len(alerts)))

	s.finish(EngineAlerts, start, len(states))
	return alerts, nil
}

// fanOut runs fn for 0..n-1 on at most Workers goroutines. Cancellation is
// checked before each state; a state already running completes.
func (s *InsightsService) fanOut(ctx context.Context, n int, fn func(i int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Workers)
	for i := 0; i < n; i++ {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			fn(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *InsightsService) finish(engine string, start time.Time, states int) {
	elapsed := time.Since(start)
	s.metrics.ObserveRun(engine, elapsed)
	s.logger.WithFields(logrus.Fields{
		"engine":      engine,
		"states":      states,
		"duration_ms": elapsed.Milliseconds(),
	}).Info("Engine batch completed")
}
