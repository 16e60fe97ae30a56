package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/api"
	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/database"
	"github.com/irfndi/cpi-insights/internal/ingest"
	"github.com/irfndi/cpi-insights/internal/logging"
	"github.com/irfndi/cpi-insights/internal/metrics"
	"github.com/irfndi/cpi-insights/internal/middleware"
	"github.com/irfndi/cpi-insights/internal/notification"
	"github.com/irfndi/cpi-insights/internal/services"
	"github.com/irfndi/cpi-insights/internal/telemetry"
)

const serviceName = "cpi-insights"

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	stdLogger := logging.NewStandardLogger(cfg.LogLevel, cfg.Environment)
	logger := logging.NewLogrusLogger(cfg.LogLevel, cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tracing, err := telemetry.InitTracing(ctx, cfg.Telemetry, stdLogger.WithComponent("telemetry"))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracing.Shutdown(shutdownCtx); err != nil {
			stdLogger.WithError(err).Warn("Failed to flush traces")
		}
	}()

	source, db, err := openRecordSource(ctx, cfg, logger)
	if err != nil {
		stdLogger.WithOperation("open_record_source").Error("Record source unavailable", "source", cfg.Ingestion.Source, "error", err.Error())
		return err
	}
	if db != nil {
		defer db.Close()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	engineMetrics := metrics.NewMetrics(registry)

	insights := services.NewInsightsService(cfg.Analytics, cfg.Alerts, logger, engineMetrics)
	notifier, err := newNotifier(cfg, logger, stdLogger)
	if err != nil {
		return err
	}

	deps := api.Dependencies{
		Source:   source,
		Insights: insights,
		Notifier: notifier,
		Gatherer: registry,
		Config:   cfg.Analytics,
		Logger:   logger,
	}
	if db != nil {
		deps.DB = db
	}
	router := newRouter(cfg, deps)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		stdLogger.LogStartup(serviceName, telemetry.ServiceVersion, cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
		stdLogger.LogShutdown(serviceName, "signal received")
	}

	// Give outstanding requests a deadline for completion
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	stdLogger.WithService(serviceName).Info("Server exited")
	return nil
}

func newRouter(cfg *config.Config, deps api.Dependencies) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(deps.Logger),
		middleware.CORS(cfg.Server.AllowedOrigins),
	)
	if cfg.Telemetry.Enabled {
		router.Use(middleware.TelemetryMiddleware(cfg.Telemetry.ServiceName, nil))
	}

	api.SetupRoutes(router, deps)
	return router
}

// openRecordSource builds the configured record source. The returned
// database is non-nil only for the postgres source and must be closed by the
// caller.
func openRecordSource(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (ingest.RecordSource, *database.PostgresDB, error) {
	in := cfg.Ingestion

	switch in.Source {
	case config.SourcePostgres:
		db, err := database.NewPostgresConnection(ctx, cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return database.NewRecordRepository(db.Pool, in.Indicator), db, nil

	case config.SourceHTTP:
		client := ingest.NewClient(in, logger)
		snapshot, err := ingest.Load(ctx, client, "")
		if err != nil {
			return nil, nil, fmt.Errorf("failed to fetch price records: %w", err)
		}
		return snapshot, nil, nil

	default:
		snapshot, err := ingest.LoadCSVFile(in.CSVPath, in.Indicator, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.WithFields(logrus.Fields{
			"path":    in.CSVPath,
			"records": snapshot.Len(),
		}).Info("Loaded price records")
		return snapshot, nil, nil
	}
}

func newNotifier(cfg *config.Config, logger *logrus.Logger, events notification.EventLogger) (*notification.AlertNotifier, error) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.ChatID == 0 {
		logger.Info("Telegram alert digests disabled")
		return nil, nil
	}
	sender, err := notification.NewTelegramSender(cfg.Telegram.BotToken)
	if err != nil {
		return nil, err
	}
	notifier := notification.NewAlertNotifier(sender, cfg.Telegram.ChatID, cfg.Alerts.DigestLimit, logger)
	notifier.SetEventLogger(events)
	return notifier, nil
}
