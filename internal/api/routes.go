package api

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/api/handlers"
	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/ingest"
	"github.com/irfndi/cpi-insights/internal/notification"
	"github.com/irfndi/cpi-insights/internal/services"
)

// Dependencies groups what the HTTP layer needs from the rest of the process.
type Dependencies struct {
	Source   ingest.RecordSource
	Insights *services.InsightsService
	Notifier *notification.AlertNotifier
	// DB is nil unless records are served from PostgreSQL.
	DB       handlers.HealthChecker
	Gatherer prometheus.Gatherer
	Config   config.AnalyticsConfig
	Logger   *logrus.Logger
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.DB, deps.Source)
	insightsHandler := handlers.NewInsightsHandler(deps.Source, deps.Insights, deps.Notifier, deps.Config, deps.Logger)

	router.GET("/health", healthHandler.HealthCheck)
	if deps.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/states", insightsHandler.GetStates)
		v1.GET("/forecast/:state", insightsHandler.GetForecast)
		v1.GET("/forecasts", insightsHandler.GetForecasts)
		v1.GET("/correlations", insightsHandler.GetCorrelations)
		v1.GET("/dashboard", insightsHandler.GetDashboard)
		v1.GET("/series/:state", insightsHandler.GetSeries)

		alerts := v1.Group("/alerts")
		{
			alerts.GET("", insightsHandler.GetAlerts)
			alerts.POST("/notify", insightsHandler.NotifyAlerts)
		}
	}
}
