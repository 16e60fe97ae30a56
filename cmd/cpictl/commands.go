package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/irfndi/cpi-insights/internal/ingest"
)

func statesCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "states",
		Short: "List the states present in the record set",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.logger(cmd)
			records, err := opts.loadRecords(cmd.Context(), logger)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), opts.service(logger).States(records))
		},
	}
}

func forecastCmd(opts *rootOptions) *cobra.Command {
	var (
		state   string
		labor   string
		horizon int
	)

	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Project index values for one state or all states",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if labor == "" {
				labor = opts.settings().Analytics.LaborType
			}
			lt, err := parseLabor(labor)
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("horizon") {
				horizon = opts.settings().Analytics.ForecastHorizon
			}
			if horizon <= 0 {
				return fmt.Errorf("invalid --horizon %d: must be positive", horizon)
			}

			logger := opts.logger(cmd)
			records, err := opts.loadRecords(cmd.Context(), logger)
			if err != nil {
				return err
			}
			svc := opts.service(logger)

			if state == "" {
				results, err := svc.ForecastAll(cmd.Context(), records, lt, horizon)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), results)
			}

			name := ingest.NormalizeState(state)
			if !svc.HasState(records, name) {
				return fmt.Errorf("state %q not found", state)
			}
			return printJSON(cmd.OutOrStdout(), svc.Forecast(records, name, lt, horizon))
		},
	}

	cmd.Flags().StringVarP(&state, "state", "s", "", "state to forecast (default: all states)")
	cmd.Flags().StringVarP(&labor, "labor", "l", "", "labor type, AL or RL (default: analytics.labor_type)")
	cmd.Flags().IntVar(&horizon, "horizon", 0, "months to project (default: analytics.forecast_horizon)")
	return cmd
}

func correlateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "correlate",
		Short: "Rank states by economic stress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.logger(cmd)
			records, err := opts.loadRecords(cmd.Context(), logger)
			if err != nil {
				return err
			}
			results, err := opts.service(logger).CorrelateAll(cmd.Context(), records)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), results)
		},
	}
}

func alertsCmd(opts *rootOptions) *cobra.Command {
	var (
		labor string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "Evaluate the alert rules for every state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if labor == "" {
				labor = opts.settings().Analytics.LaborType
			}
			lt, err := parseLabor(labor)
			if err != nil {
				return err
			}
			if limit < 0 {
				return fmt.Errorf("invalid --limit %d: must not be negative", limit)
			}

			logger := opts.logger(cmd)
			records, err := opts.loadRecords(cmd.Context(), logger)
			if err != nil {
				return err
			}
			alerts, err := opts.service(logger).Alerts(cmd.Context(), records, lt)
			if err != nil {
				return err
			}
			if limit > 0 && len(alerts) > limit {
				alerts = alerts[:limit]
			}
			return printJSON(cmd.OutOrStdout(), alerts)
		},
	}

	cmd.Flags().StringVarP(&labor, "labor", "l", "", "labor type, AL or RL (default: analytics.labor_type)")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum alerts to print (0 for all)")
	return cmd
}

func seriesCmd(opts *rootOptions) *cobra.Command {
	var (
		labor  string
		window int
	)

	cmd := &cobra.Command{
		Use:   "series STATE",
		Short: "Show a state's history with moving average, YoY change and volatility",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if labor == "" {
				labor = opts.settings().Analytics.LaborType
			}
			lt, err := parseLabor(labor)
			if err != nil {
				return err
			}
			if window <= 0 {
				return fmt.Errorf("invalid --window %d: must be positive", window)
			}

			logger := opts.logger(cmd)
			records, err := opts.loadRecords(cmd.Context(), logger)
			if err != nil {
				return err
			}
			svc := opts.service(logger)

			name := ingest.NormalizeState(args[0])
			if !svc.HasState(records, name) {
				return fmt.Errorf("state %q not found", args[0])
			}
			return printJSON(cmd.OutOrStdout(), svc.Series(records, name, lt, window))
		},
	}

	cmd.Flags().StringVarP(&labor, "labor", "l", "", "labor type, AL or RL (default: analytics.labor_type)")
	cmd.Flags().IntVarP(&window, "window", "w", 3, "moving average window in months")
	return cmd
}
