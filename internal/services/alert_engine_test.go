package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/irfndi/cpi-insights/internal/config"
	"github.com/irfndi/cpi-insights/internal/models"
)

func newTestAlertEngine() *AlertEngine {
	return NewAlertEngine(config.DefaultAlertConfig(), nil)
}

func TestAlertEngine_InflationRules(t *testing.T) {
	engine := newTestAlertEngine()

	tests := []struct {
		name      string
		inflation *float64
		alertType string
		severity  models.Severity
	}{
		{"exactly eight is elevated", float64Ptr(8.0), models.AlertElevatedCPIGrowth, models.SeverityYellow},
		{"above eight is high", float64Ptr(8.01), models.AlertHighCPIGrowth, models.SeverityRed},
		{"exactly five is quiet", float64Ptr(5.0), "", ""},
		{"between five and eight", float64Ptr(6.5), models.AlertElevatedCPIGrowth, models.SeverityYellow},
		{"exactly minus five is quiet", float64Ptr(-5.0), "", ""},
		{"sharp decline", float64Ptr(-5.01), models.AlertSharpCPIDecline, models.SeverityRed},
		{"no inflation figure", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := engine.Evaluate("Bihar", tt.inflation, nil, nil)
			if tt.alertType == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, "Bihar", alerts[0].State)
			assert.Equal(t, tt.alertType, alerts[0].Type)
			assert.Equal(t, tt.severity, alerts[0].Severity)
			assert.InDelta(t, *tt.inflation, alerts[0].Value, 1e-9)
			assert.Contains(t, alerts[0].Message, "Bihar")
		})
	}
}

func TestAlertEngine_SustainedIncrease(t *testing.T) {
	engine := newTestAlertEngine()

	tests := []struct {
		name       string
		trajectory []float64
		severity   models.Severity
		value      float64
	}{
		{"seven percent rise is red", []float64{100, 103, 107}, models.SeverityRed, 7},
		{"four percent rise is yellow", []float64{100, 102, 104}, models.SeverityYellow, 4},
		{"only last three count", []float64{200, 100, 103, 107}, models.SeverityRed, 7},
		{"two percent rise is quiet", []float64{100, 101, 102}, "", 0},
		{"not strictly increasing", []float64{100, 107, 107}, "", 0},
		{"dip in the middle", []float64{100, 99, 110}, "", 0},
		{"unreported start", []float64{0, 103, 107}, "", 0},
		{"too short", []float64{100, 110}, "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := engine.Evaluate("Kerala", nil, tt.trajectory, nil)
			if tt.severity == "" {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertSustainedIncrease, alerts[0].Type)
			assert.Equal(t, tt.severity, alerts[0].Severity)
			assert.InDelta(t, tt.value, alerts[0].Value, 1e-9)
		})
	}
}

func TestAlertEngine_ForecastSpike(t *testing.T) {
	engine := newTestAlertEngine()

	tests := []struct {
		name     string
		forecast *models.ForecastResult
		fires    bool
	}{
		{"spike", &models.ForecastResult{ProjectedGrowthRate: 12.5}, true},
		{"exactly ten", &models.ForecastResult{ProjectedGrowthRate: 10}, false},
		{"insufficient data ignored", &models.ForecastResult{ProjectedGrowthRate: 50, InsufficientData: true}, false},
		{"no forecast", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			alerts := engine.Evaluate("Punjab", nil, nil, tt.forecast)
			if !tt.fires {
				assert.Empty(t, alerts)
				return
			}
			require.Len(t, alerts, 1)
			assert.Equal(t, models.AlertForecastSpike, alerts[0].Type)
			assert.Equal(t, models.SeverityRed, alerts[0].Severity)
			assert.Equal(t, 12.5, alerts[0].Value)
		})
	}
}

func TestAlertEngine_MultipleAlertsSorted(t *testing.T) {
	engine := newTestAlertEngine()

	alerts := engine.Evaluate("Assam", float64Ptr(6), []float64{100, 102, 104},
		&models.ForecastResult{ProjectedGrowthRate: 11})

	require.Len(t, alerts, 3)
	assert.Equal(t, models.AlertForecastSpike, alerts[0].Type)
	assert.Equal(t, models.AlertElevatedCPIGrowth, alerts[1].Type)
	assert.Equal(t, models.AlertSustainedIncrease, alerts[2].Type)
}

func TestAlertEngine_FlatSeriesIsQuiet(t *testing.T) {
	series := monthlySeries("Odisha", 2022, 0, repeat(100, 24))
	forecast := newTestForecastEngine().Forecast("Odisha", series, models.LaborTypeAL, 12)

	alerts := newTestAlertEngine().EvaluateSeries("Odisha", series, models.LaborTypeAL, forecast)
	assert.Empty(t, alerts)
}

func TestAlertEngine_EvaluateSeries(t *testing.T) {
	engine := newTestAlertEngine()
	values := append(repeat(100, 10), 109, 109, 109)

	t.Run("falls back to computed year over year", func(t *testing.T) {
		series := monthlySeries("Bihar", 2023, 0, values)
		alerts := engine.EvaluateSeries("Bihar", series, models.LaborTypeAL, nil)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.AlertHighCPIGrowth, alerts[0].Type)
		assert.InDelta(t, 9.0, alerts[0].Value, 1e-9)
	})

	t.Run("published inflation wins", func(t *testing.T) {
		series := monthlySeries("Bihar", 2023, 0, values)
		series[len(series)-1].InflationAL = float64Ptr(6)
		alerts := engine.EvaluateSeries("Bihar", series, models.LaborTypeAL, nil)
		require.Len(t, alerts, 1)
		assert.Equal(t, models.AlertElevatedCPIGrowth, alerts[0].Type)
		assert.Equal(t, 6.0, alerts[0].Value)
	})

	t.Run("too few observations", func(t *testing.T) {
		series := monthlySeries("Bihar", 2023, 0, []float64{100, 110})
		series[1].InflationAL = float64Ptr(20)
		assert.Empty(t, engine.EvaluateSeries("Bihar", series, models.LaborTypeAL, nil))
	})
}

func TestAlertEngine_Generate(t *testing.T) {
	engine := newTestAlertEngine()

	var records []models.PriceRecord
	records = append(records, monthlySeries("Rising", 2023, 0, []float64{100, 102, 104})...)
	records = append(records, monthlySeries("Surging", 2023, 0, []float64{100, 103, 107})...)
	records = append(records, monthlySeries("Short", 2023, 0, []float64{100, 120})...)
	records = append(records, monthlySeries("Calm", 2023, 0, repeat(100, 6))...)

	forecasts := map[string]*models.ForecastResult{
		"Calm": {State: "Calm", ProjectedGrowthRate: 15},
	}

	alerts := engine.Generate(records, States(records), models.LaborTypeAL, forecasts)

	require.Len(t, alerts, 3)
	assert.Equal(t, "Calm", alerts[0].State)
	assert.Equal(t, "Surging", alerts[1].State)
	assert.Equal(t, "Rising", alerts[2].State)
	assertAlertsSorted(t, alerts)
}

func TestSortAlerts(t *testing.T) {
	alerts := []models.Alert{
		{State: "A", Severity: models.SeverityYellow, Value: 4},
		{State: "B", Severity: models.SeverityRed, Value: -6},
		{State: "C", Severity: models.SeverityYellow, Value: 7},
		{State: "D", Severity: models.SeverityRed, Value: 9},
		{State: "E", Severity: models.SeverityRed, Value: 6},
	}
	SortAlerts(alerts)

	states := make([]string, len(alerts))
	for i, a := range alerts {
		states[i] = a.State
	}
	assert.Equal(t, []string{"D", "B", "E", "C", "A"}, states)
	assertAlertsSorted(t, alerts)
}

func assertAlertsSorted(t *testing.T, alerts []models.Alert) {
	t.Helper()
	for i := 1; i < len(alerts); i++ {
		prev, cur := alerts[i-1], alerts[i]
		assert.LessOrEqual(t, prev.Severity.Rank(), cur.Severity.Rank(), "severity order at %d", i)
		if prev.Severity == cur.Severity {
			assert.GreaterOrEqual(t, math.Abs(prev.Value), math.Abs(cur.Value), "value order at %d", i)
		}
	}
}
