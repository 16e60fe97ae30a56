package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Environment string          `mapstructure:"environment"`
	LogLevel    string          `mapstructure:"log_level"`
	Server      ServerConfig    `mapstructure:"server"`
	Database    DatabaseConfig  `mapstructure:"database"`
	Ingestion   IngestionConfig `mapstructure:"ingestion"`
	Analytics   AnalyticsConfig `mapstructure:"analytics"`
	Alerts      AlertConfig     `mapstructure:"alerts"`
	Telegram    TelegramConfig  `mapstructure:"telegram"`
	Telemetry   TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	User        string `mapstructure:"user"`
	Password    string `mapstructure:"password"`
	DBName      string `mapstructure:"dbname"`
	SSLMode     string `mapstructure:"sslmode"`
	DatabaseURL string `mapstructure:"database_url"`
	MaxConns    int    `mapstructure:"max_conns"`
}

// Ingestion sources understood by the server and CLI.
const (
	SourceCSV      = "csv"
	SourcePostgres = "postgres"
	SourceHTTP     = "http"
)

// IngestionConfig tells the outer layer where to obtain price records.
type IngestionConfig struct {
	Source         string `mapstructure:"source"`
	CSVPath        string `mapstructure:"csv_path"`
	APIURL         string `mapstructure:"api_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	MaxRetries     int    `mapstructure:"max_retries"`
	Indicator      string `mapstructure:"indicator"`
}

// AnalyticsConfig holds the tunables of the forecast and correlation engines.
type AnalyticsConfig struct {
	ForecastHorizon   int    `mapstructure:"forecast_horizon"`
	ForecastWindow    int    `mapstructure:"forecast_window"`
	MinForecastPoints int    `mapstructure:"min_forecast_points"`
	VolatilityWindow  int    `mapstructure:"volatility_window"`
	MaxLagMonths      int    `mapstructure:"max_lag_months"`
	Workers           int    `mapstructure:"workers"`
	NationalAggregate string `mapstructure:"national_aggregate"`
	LaborType         string `mapstructure:"labor_type"`
}

// AlertConfig holds the thresholds of the alert rules, all in percent.
type AlertConfig struct {
	HighInflation     float64 `mapstructure:"high_inflation"`
	ElevatedInflation float64 `mapstructure:"elevated_inflation"`
	DeclineInflation  float64 `mapstructure:"decline_inflation"`
	SustainedRiseMin  float64 `mapstructure:"sustained_rise_min"`
	SustainedRiseRed  float64 `mapstructure:"sustained_rise_red"`
	ForecastSpike     float64 `mapstructure:"forecast_spike"`
	MinObservations   int     `mapstructure:"min_observations"`
	DigestLimit       int     `mapstructure:"digest_limit"`
}

type TelegramConfig struct {
	BotToken string `mapstructure:"bot_token" json:"-" yaml:"-"`
	ChatID   int64  `mapstructure:"chat_id"`
}

type TelemetryConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Endpoint    string `mapstructure:"endpoint"`
	ServiceName string `mapstructure:"service_name"`
}

// DefaultAnalyticsConfig returns the engine settings used when no configuration is loaded.
func DefaultAnalyticsConfig() AnalyticsConfig {
	return AnalyticsConfig{
		ForecastHorizon:   12,
		ForecastWindow:    24,
		MinForecastPoints: 6,
		VolatilityWindow:  24,
		MaxLagMonths:      6,
		Workers:           4,
		NationalAggregate: "All India",
		LaborType:         "AL",
	}
}

// DefaultAlertConfig returns the stock alert thresholds.
func DefaultAlertConfig() AlertConfig {
	return AlertConfig{
		HighInflation:     8,
		ElevatedInflation: 5,
		DeclineInflation:  -5,
		SustainedRiseMin:  3,
		SustainedRiseRed:  5,
		ForecastSpike:     10,
		MinObservations:   3,
		DigestLimit:       10,
	}
}

// Load reads configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadWith(viper.GetViper())
}

// LoadWith reads config.yaml (./configs or .), applies defaults and
// environment overrides, and validates the result.
func LoadWith(v *viper.Viper) (*Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.BindEnv("database.database_url", "DATABASE_URL"); err != nil {
		return nil, fmt.Errorf("failed to bind DATABASE_URL environment variable: %w", err)
	}
	if err := v.BindEnv("telegram.bot_token", "TELEGRAM_BOT_TOKEN"); err != nil {
		return nil, fmt.Errorf("failed to bind TELEGRAM_BOT_TOKEN environment variable: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found, use defaults and environment variables
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Environment = strings.ToLower(config.Environment)
	config.Ingestion.Source = strings.ToLower(config.Ingestion.Source)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	switch c.Ingestion.Source {
	case SourceCSV, SourcePostgres, SourceHTTP:
	default:
		return fmt.Errorf("unknown ingestion source %q", c.Ingestion.Source)
	}
	if c.Ingestion.Source == SourceHTTP && c.Ingestion.APIURL == "" {
		return fmt.Errorf("ingestion.api_url is required for the http source")
	}

	a := c.Analytics
	if a.ForecastHorizon <= 0 {
		return fmt.Errorf("analytics.forecast_horizon must be positive, got %d", a.ForecastHorizon)
	}
	if a.ForecastWindow < 2 {
		return fmt.Errorf("analytics.forecast_window must be at least 2, got %d", a.ForecastWindow)
	}
	if a.Workers <= 0 {
		return fmt.Errorf("analytics.workers must be positive, got %d", a.Workers)
	}
	if a.MaxLagMonths < 0 {
		return fmt.Errorf("analytics.max_lag_months must not be negative, got %d", a.MaxLagMonths)
	}
	switch strings.ToUpper(a.LaborType) {
	case "AL", "RL":
	default:
		return fmt.Errorf("analytics.labor_type must be AL or RL, got %q", a.LaborType)
	}

	al := c.Alerts
	if al.ElevatedInflation > al.HighInflation {
		return fmt.Errorf("alerts.elevated_inflation (%.2f) must not exceed alerts.high_inflation (%.2f)",
			al.ElevatedInflation, al.HighInflation)
	}
	if al.SustainedRiseMin > al.SustainedRiseRed {
		return fmt.Errorf("alerts.sustained_rise_min (%.2f) must not exceed alerts.sustained_rise_red (%.2f)",
			al.SustainedRiseMin, al.SustainedRiseRed)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// Environment
	v.SetDefault("environment", "development")
	v.SetDefault("log_level", "info")

	// Server
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})

	// Database
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "cpi_insights")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.database_url", "")
	v.SetDefault("database.max_conns", 10)

	// Ingestion
	v.SetDefault("ingestion.source", SourceCSV)
	v.SetDefault("ingestion.csv_path", "data/cpi_al_rl.csv")
	v.SetDefault("ingestion.api_url", "")
	v.SetDefault("ingestion.timeout_seconds", 30)
	v.SetDefault("ingestion.max_retries", 3)
	v.SetDefault("ingestion.indicator", "")

	// Analytics
	a := DefaultAnalyticsConfig()
	v.SetDefault("analytics.forecast_horizon", a.ForecastHorizon)
	v.SetDefault("analytics.forecast_window", a.ForecastWindow)
	v.SetDefault("analytics.min_forecast_points", a.MinForecastPoints)
	v.SetDefault("analytics.volatility_window", a.VolatilityWindow)
	v.SetDefault("analytics.max_lag_months", a.MaxLagMonths)
	v.SetDefault("analytics.workers", a.Workers)
	v.SetDefault("analytics.national_aggregate", a.NationalAggregate)
	v.SetDefault("analytics.labor_type", a.LaborType)

	// Alerts
	al := DefaultAlertConfig()
	v.SetDefault("alerts.high_inflation", al.HighInflation)
	v.SetDefault("alerts.elevated_inflation", al.ElevatedInflation)
	v.SetDefault("alerts.decline_inflation", al.DeclineInflation)
	v.SetDefault("alerts.sustained_rise_min", al.SustainedRiseMin)
	v.SetDefault("alerts.sustained_rise_red", al.SustainedRiseRed)
	v.SetDefault("alerts.forecast_spike", al.ForecastSpike)
	v.SetDefault("alerts.min_observations", al.MinObservations)
	v.SetDefault("alerts.digest_limit", al.DigestLimit)

	// Telegram
	v.SetDefault("telegram.bot_token", "")
	v.SetDefault("telegram.chat_id", 0)

	// Telemetry
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "")
	v.SetDefault("telemetry.service_name", "cpi-insights")
}
