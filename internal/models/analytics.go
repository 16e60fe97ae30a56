package models

// ForecastPoint is a single projected month with its confidence band.
type ForecastPoint struct {
	Month string  `json:"month"`
	Year  int     `json:"year"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ForecastResult contains the output of a forecasting run for one state.
// InsufficientData is set when the history is too short to fit a trend; in
// that case ForecastValues is empty and ConfidenceLevel is 0.
type ForecastResult struct {
	State               string          `json:"state"`
	LaborType           LaborType       `json:"labor_type"`
	ForecastValues      []ForecastPoint `json:"forecast_values"`
	ProjectedGrowthRate float64         `json:"projected_growth_rate"`
	TrendSlope          float64         `json:"trend_slope"`
	Intercept           float64         `json:"intercept"`
	Momentum            float64         `json:"momentum"`
	AccelerationScore   float64         `json:"acceleration_score"`
	ConfidenceLevel     float64         `json:"confidence_level"`
	InsufficientData    bool            `json:"insufficient_data"`
}

// LagCorrelation is the Pearson correlation of AL against RL shifted by Lag months.
type LagCorrelation struct {
	Lag         int     `json:"lag"`
	Correlation float64 `json:"correlation"`
}

// CorrelationResult represents the cross-index stress and stability assessment of a state.
type CorrelationResult struct {
	State                 string  `json:"state"`
	ALRLCorrelation       float64 `json:"al_rl_correlation"`
	ALRLLagMonths         int     `json:"al_rl_lag_months"`
	StressIndex           float64 `json:"stress_index"`
	InflationAcceleration float64 `json:"inflation_acceleration"`
	RollingVariance       float64 `json:"rolling_variance"`
	StabilityScore        float64 `json:"stability_score"` // 0-100, higher is calmer
	CAGR                  float64 `json:"cagr"`
	Volatility            float64 `json:"volatility"`
	InsufficientData      bool    `json:"insufficient_data"`
}

// Severity ranks an alert. Red outranks Yellow.
type Severity string

const (
	SeverityRed    Severity = "Red"
	SeverityYellow Severity = "Yellow"
)

// Rank orders severities so that a lower rank sorts first.
func (s Severity) Rank() int {
	if s == SeverityRed {
		return 0
	}
	return 1
}

const (
	AlertHighCPIGrowth     = "High CPI Growth"
	AlertElevatedCPIGrowth = "Elevated CPI Growth"
	AlertSharpCPIDecline   = "Sharp CPI Decline"
	AlertSustainedIncrease = "Sustained Increase"
	AlertForecastSpike     = "Forecast Spike"
)

// Alert is a threshold-triggered risk signal for one state.
type Alert struct {
	State    string   `json:"state"`
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Value    float64  `json:"value"`
}

// Dashboard bundles the three derived artifacts for a record set.
type Dashboard struct {
	LaborType    LaborType           `json:"labor_type"`
	Forecasts    []ForecastResult    `json:"forecasts"`
	Correlations []CorrelationResult `json:"correlations"`
	Alerts       []Alert             `json:"alerts"`
}

// SeriesPoint is one reported observation alongside its trailing moving average.
type SeriesPoint struct {
	Month         string  `json:"month"`
	Year          int     `json:"year"`
	Value         float64 `json:"value"`
	MovingAverage float64 `json:"moving_average"`
}

// SeriesSummary describes a single state's reported history for one labor type.
// YearOverYear is nil when the prior-year observation is missing.
type SeriesSummary struct {
	State        string        `json:"state"`
	LaborType    LaborType     `json:"labor_type"`
	Window       int           `json:"window"`
	Points       []SeriesPoint `json:"points"`
	YearOverYear *float64      `json:"year_over_year"`
	Volatility   float64       `json:"volatility"`
}
