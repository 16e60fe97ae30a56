package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/ingest"
	"github.com/irfndi/cpi-insights/internal/logging"
	"github.com/irfndi/cpi-insights/internal/models"
	"github.com/irfndi/cpi-insights/internal/services"
)

type rootOptions struct {
	configFile string
	file       string
	url        string
	indicator  string
	logLevel   string
	workers    int

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "cpictl",
		Short: "Forecasts, stress rankings and alerts for state CPI-AL/RL series",
		Long: `cpictl runs the CPI insight engines over a record file or API and prints
the results as JSON.

Records come from --file (CSV or JSON) or --url (JSON API).`,
		SilenceUsage: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return opts.loadSettings()
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "config file (default: ./configs/config.yaml when present)")
	flags.StringVarP(&opts.file, "file", "f", "", "CSV or JSON file with price records")
	flags.StringVar(&opts.url, "url", "", "JSON API serving price records")
	flags.StringVar(&opts.indicator, "indicator", "", "keep only records of this indicator")
	flags.StringVar(&opts.logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.IntVar(&opts.workers, "workers", 0, "states processed concurrently (default: analytics.workers)")
	cmd.MarkFlagsMutuallyExclusive("file", "url")

	cmd.AddCommand(statesCmd(opts))
	cmd.AddCommand(forecastCmd(opts))
	cmd.AddCommand(correlateCmd(opts))
	cmd.AddCommand(alertsCmd(opts))
	cmd.AddCommand(seriesCmd(opts))

	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *logrus.Logger {
	logger := logging.NewLogrusLogger(o.logLevel, "cli")
	logger.SetOutput(cmd.ErrOrStderr())
	return logger
}

// loadSettings reads analytics and alert thresholds through viper, from
// --config when given. Without a file the stock defaults apply.
func (o *rootOptions) loadSettings() error {
	v := viper.New()
	if o.configFile != "" {
		v.SetConfigFile(o.configFile)
	}
	cfg, err := config.LoadWith(v)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if o.indicator == "" {
		o.indicator = cfg.Ingestion.Indicator
	}
	if o.workers > 0 {
		cfg.Analytics.Workers = o.workers
	}
	o.cfg = cfg
	return nil
}

func (o *rootOptions) settings() *config.Config {
	if o.cfg == nil {
		o.cfg = &config.Config{
			Analytics: config.DefaultAnalyticsConfig(),
			Alerts:    config.DefaultAlertConfig(),
		}
	}
	return o.cfg
}

func (o *rootOptions) service(logger *logrus.Logger) *services.InsightsService {
	cfg := o.settings()
	return services.NewInsightsService(cfg.Analytics, cfg.Alerts, logger, nil)
}

// loadRecords reads the record set selected by --file or --url.
func (o *rootOptions) loadRecords(ctx context.Context, logger *logrus.Logger) ([]models.PriceRecord, error) {
	switch {
	case o.url != "":
		client := ingest.NewClient(config.IngestionConfig{APIURL: o.url, Indicator: o.indicator}, logger)
		return client.Records(ctx)

	case o.file != "":
		if strings.EqualFold(filepath.Ext(o.file), ".json") {
			return o.loadJSON(logger)
		}
		snapshot, err := ingest.LoadCSVFile(o.file, o.indicator, logger)
		if err != nil {
			return nil, err
		}
		return snapshot.Records(ctx)

	default:
		return nil, fmt.Errorf("one of --file or --url is required")
	}
}

func (o *rootOptions) loadJSON(logger *logrus.Logger) ([]models.PriceRecord, error) {
	data, err := os.ReadFile(o.file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", o.file, err)
	}
	records, report, err := ingest.ParseJSON(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", o.file, err)
	}
	if report.Dropped > 0 {
		logger.WithFields(logrus.Fields{
			"path":    o.file,
			"dropped": report.Dropped,
		}).Warn("Dropped malformed price records")
	}
	return ingest.FilterIndicator(records, o.indicator), nil
}

func parseLabor(raw string) (models.LaborType, error) {
	lt, ok := models.ParseLaborType(raw)
	if !ok {
		return "", fmt.Errorf("invalid --labor %q: must be AL or RL", raw)
	}
	return lt, nil
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
