package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/ingest"
	"github.com/irfndi/cpi-insights/internal/middleware"
	"github.com/irfndi/cpi-insights/internal/models"
	"github.com/irfndi/cpi-insights/internal/notification"
	"github.com/irfndi/cpi-insights/internal/services"
	"github.com/irfndi/cpi-insights/internal/utils"
)

const (
	maxHorizon    = 60
	maxSeriesSpan = 24
	defaultWindow = 3
)

// InsightsHandler serves forecasts, correlations and alerts computed from
// the current record set.
type InsightsHandler struct {
	source   ingest.RecordSource
	insights *services.InsightsService
	notifier *notification.AlertNotifier
	config   config.AnalyticsConfig
	logger   *logrus.Logger
}

type StatesResponse struct {
	States    []string  `json:"states"`
	Count     int       `json:"count"`
	Timestamp time.Time `json:"timestamp"`
}

type ForecastsResponse struct {
	LaborType models.LaborType        `json:"labor_type"`
	Horizon   int                     `json:"horizon"`
	Forecasts []models.ForecastResult `json:"forecasts"`
	Count     int                     `json:"count"`
	Timestamp time.Time               `json:"timestamp"`
}

type CorrelationsResponse struct {
	Correlations []models.CorrelationResult `json:"correlations"`
	Count        int                        `json:"count"`
	Timestamp    time.Time                  `json:"timestamp"`
}

type AlertsResponse struct {
	LaborType models.LaborType `json:"labor_type"`
	Alerts    []models.Alert   `json:"alerts"`
	Count     int              `json:"count"`
	Total     int              `json:"total"`
	Timestamp time.Time        `json:"timestamp"`
}

type NotifyResponse struct {
	Alerts    int       `json:"alerts"`
	Listed    int       `json:"listed"`
	Sent      bool      `json:"sent"`
	Timestamp time.Time `json:"timestamp"`
}

// NewInsightsHandler wires the handler. notifier may be nil, in which case
// the notify endpoint answers 503.
func NewInsightsHandler(source ingest.RecordSource, insights *services.InsightsService, notifier *notification.AlertNotifier, cfg config.AnalyticsConfig, logger *logrus.Logger) *InsightsHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &InsightsHandler{
		source:   source,
		insights: insights,
		notifier: notifier,
		config:   cfg,
		logger:   logger,
	}
}

// GetStates lists every state present in the record set.
func (h *InsightsHandler) GetStates(c *gin.Context) {
	records, ok := h.records(c)
	if !ok {
		return
	}
	states := h.insights.States(records)
	c.JSON(http.StatusOK, StatesResponse{
		States:    states,
		Count:     len(states),
		Timestamp: time.Now(),
	})
}

// GetForecast projects a single state.
func (h *InsightsHandler) GetForecast(c *gin.Context) {
	lt, horizon, ok := h.forecastParams(c)
	if !ok {
		return
	}
	records, ok := h.records(c)
	if !ok {
		return
	}
	state, ok := h.state(c, records)
	if !ok {
		return
	}

	middleware.AddSpanAttribute(c, "cpi.state", state)
	c.JSON(http.StatusOK, h.insights.Forecast(records, state, lt, horizon))
}

// GetForecasts projects every state.
func (h *InsightsHandler) GetForecasts(c *gin.Context) {
	lt, horizon, ok := h.forecastParams(c)
	if !ok {
		return
	}
	records, ok := h.records(c)
	if !ok {
		return
	}

	forecasts, err := h.insights.ForecastAll(c.Request.Context(), records, lt, horizon)
	if err != nil {
		h.fail(c, err, "Failed to compute forecasts")
		return
	}
	c.JSON(http.StatusOK, ForecastsResponse{
		LaborType: lt,
		Horizon:   horizon,
		Forecasts: forecasts,
		Count:     len(forecasts),
		Timestamp: time.Now(),
	})
}

// GetCorrelations ranks states by economic stress.
func (h *InsightsHandler) GetCorrelations(c *gin.Context) {
	records, ok := h.records(c)
	if !ok {
		return
	}

	results, err := h.insights.CorrelateAll(c.Request.Context(), records)
	if err != nil {
		h.fail(c, err, "Failed to compute correlations")
		return
	}
	c.JSON(http.StatusOK, CorrelationsResponse{
		Correlations: results,
		Count:        len(results),
		Timestamp:    time.Now(),
	})
}

// GetAlerts returns ranked alerts, optionally truncated to limit.
func (h *InsightsHandler) GetAlerts(c *gin.Context) {
	lt, ok := h.laborType(c)
	if !ok {
		return
	}
	limit, ok := intQuery(c, "limit", 0, 0, 1000)
	if !ok {
		return
	}
	records, ok := h.records(c)
	if !ok {
		return
	}

	alerts, err := h.insights.Alerts(c.Request.Context(), records, lt)
	if err != nil {
		h.fail(c, err, "Failed to compute alerts")
		return
	}
	total := len(alerts)
	if limit > 0 && total > limit {
		alerts = alerts[:limit]
	}
	c.JSON(http.StatusOK, AlertsResponse{
		LaborType: lt,
		Alerts:    alerts,
		Count:     len(alerts),
		Total:     total,
		Timestamp: time.Now(),
	})
}

// GetDashboard returns forecasts, correlations and alerts in one payload.
func (h *InsightsHandler) GetDashboard(c *gin.Context) {
	lt, ok := h.laborType(c)
	if !ok {
		return
	}
	records, ok := h.records(c)
	if !ok {
		return
	}

	dashboard, err := h.insights.Dashboard(c.Request.Context(), records, lt)
	if err != nil {
		h.fail(c, err, "Failed to build dashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}

// GetSeries returns one state's history with a trailing moving average.
func (h *InsightsHandler) GetSeries(c *gin.Context) {
	lt, ok := h.laborType(c)
	if !ok {
		return
	}
	window, ok := intQuery(c, "window", defaultWindow, 1, maxSeriesSpan)
	if !ok {
		return
	}
	records, ok := h.records(c)
	if !ok {
		return
	}
	state, ok := h.state(c, records)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, h.insights.Series(records, state, lt, window))
}

// NotifyAlerts pushes the current alert digest to the configured chat.
func (h *InsightsHandler) NotifyAlerts(c *gin.Context) {
	if !h.notifier.Enabled() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Alert notifications are not configured"})
		return
	}
	lt, ok := h.laborType(c)
	if !ok {
		return
	}
	records, ok := h.records(c)
	if !ok {
		return
	}

	alerts, err := h.insights.Alerts(c.Request.Context(), records, lt)
	if err != nil {
		h.fail(c, err, "Failed to compute alerts")
		return
	}

	listed, err := h.notifier.NotifyAlerts(c.Request.Context(), alerts)
	if err != nil {
		middleware.RecordError(c, err, "alert digest failed")
		h.logger.WithError(err).Error("Failed to send alert digest")
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send alert digest"})
		return
	}

	c.JSON(http.StatusOK, NotifyResponse{
		Alerts:    len(alerts),
		Listed:    listed,
		Sent:      len(alerts) > 0,
		Timestamp: time.Now(),
	})
}

func (h *InsightsHandler) records(c *gin.Context) ([]models.PriceRecord, bool) {
	records, err := h.source.Records(c.Request.Context())
	if err != nil {
		middleware.RecordError(c, err, "record source failed")
		h.logger.WithError(err).Error("Failed to load price records")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to load price records"})
		return nil, false
	}
	return records, true
}

// state resolves the :state path parameter, accepting any casing.
func (h *InsightsHandler) state(c *gin.Context, records []models.PriceRecord) (string, bool) {
	raw := strings.TrimSpace(c.Param("state"))
	state := ingest.NormalizeState(raw)
	if state == "" {
		badRequest(c, utils.NewFieldError("state", "state is required"))
		return "", false
	}
	if !h.insights.HasState(records, state) {
		c.JSON(http.StatusNotFound, gin.H{"error": "State not found: " + raw})
		return "", false
	}
	return state, true
}

func (h *InsightsHandler) laborType(c *gin.Context) (models.LaborType, bool) {
	raw := c.DefaultQuery("labor", h.config.LaborType)
	lt, ok := models.ParseLaborType(raw)
	if !ok {
		badRequest(c, utils.NewFieldError("labor", "must be AL or RL, got %q", raw))
		return "", false
	}
	return lt, true
}

func (h *InsightsHandler) forecastParams(c *gin.Context) (models.LaborType, int, bool) {
	lt, ok := h.laborType(c)
	if !ok {
		return "", 0, false
	}
	horizon, ok := intQuery(c, "horizon", h.config.ForecastHorizon, 1, maxHorizon)
	if !ok {
		return "", 0, false
	}
	return lt, horizon, true
}

func (h *InsightsHandler) fail(c *gin.Context, err error, message string) {
	middleware.RecordError(c, err, message)
	if ctxErr := c.Request.Context().Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		h.logger.WithError(err).Warn("Request cancelled during computation")
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": message})
		return
	}
	h.logger.WithError(err).Error(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": message})
}

// intQuery parses an optional integer query parameter within [lo, hi].
func intQuery(c *gin.Context, name string, def, lo, hi int) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, utils.NewFieldError(name, "must be an integer, got %q", raw))
		return 0, false
	}
	if v < lo || v > hi {
		badRequest(c, utils.NewFieldError(name, "must be between %d and %d, got %d", lo, hi, v))
		return 0, false
	}
	return v, true
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
