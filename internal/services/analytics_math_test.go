package services

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPearsonCorrelation(t *testing.T) {
	tests := []struct {
		name     string
		x        []float64
		y        []float64
		expected float64
	}{
		{"perfect positive", []float64{1, 2, 3, 4}, []float64{2, 4, 6, 8}, 1},
		{"perfect negative", []float64{1, 2, 3}, []float64{3, 2, 1}, -1},
		{"fewer than three pairs", []float64{1, 2}, []float64{2, 4}, 0},
		{"length mismatch", []float64{1, 2, 3}, []float64{1, 2}, 0},
		{"flat series", []float64{5, 5, 5}, []float64{1, 2, 3}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PearsonCorrelation(tt.x, tt.y), 1e-9)
		})
	}
}

func TestFitLinearTrend(t *testing.T) {
	tests := []struct {
		name      string
		values    []float64
		slope     float64
		intercept float64
	}{
		{"empty", nil, 0, 0},
		{"single point", []float64{7}, 0, 7},
		{"exact line", []float64{1, 3, 5, 7}, 2, 1},
		{"flat", repeat(100, 24), 0, 100},
		{"noisy", []float64{1, 2, 2, 3}, 0.6, 1.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			slope, intercept := fitLinearTrend(tt.values)
			assert.InDelta(t, tt.slope, slope, 1e-9)
			assert.InDelta(t, tt.intercept, intercept, 1e-9)
		})
	}
}

func TestFitLinearTrend_TranslationInvariance(t *testing.T) {
	values := linear(100, 2.5, 30)
	for offset := 0; offset < 6; offset++ {
		slope, intercept := fitLinearTrend(values[offset:])
		assert.InDelta(t, 2.5, slope, 1e-9, "offset %d", offset)
		assert.InDelta(t, values[offset], intercept, 1e-9, "offset %d", offset)
	}
}

func TestPercentChanges(t *testing.T) {
	assert.Nil(t, percentChanges([]float64{100}))
	got := percentChanges([]float64{0, 100, 110, 99})
	assert.Len(t, got, 2)
	assert.InDelta(t, 10.0, got[0], 1e-9)
	assert.InDelta(t, -10.0, got[1], 1e-9)
}

func TestGrowthPercent(t *testing.T) {
	assert.InDelta(t, 25.0, growthPercent(80, 100), 1e-9)
	assert.InDelta(t, -20.0, growthPercent(100, 80), 1e-9)
	assert.Equal(t, 0.0, growthPercent(0, 100))
}

func TestPopulationVariance(t *testing.T) {
	assert.Equal(t, 0.0, populationVariance(nil))
	assert.InDelta(t, 4.0, populationVariance([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
	assert.InDelta(t, 2.0, populationStdDev([]float64{2, 4, 4, 4, 5, 5, 7, 9}), 1e-9)
}

func TestRoundTo(t *testing.T) {
	tests := []struct {
		name     string
		value    float64
		places   int32
		expected float64
	}{
		{"half up", 2.345, 2, 2.35},
		{"half away from zero", -2.345, 2, -2.35},
		{"four places", 1.23456, 4, 1.2346},
		{"already rounded", 90, 2, 90},
		{"NaN", math.NaN(), 2, 0},
		{"positive infinity", math.Inf(1), 2, 0},
		{"negative infinity", math.Inf(-1), 4, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, roundTo(tt.value, tt.places))
		})
	}
}

func TestClampAndTail(t *testing.T) {
	assert.Equal(t, 30.0, clamp(10, 30, 95))
	assert.Equal(t, 95.0, clamp(100, 30, 95))
	assert.Equal(t, 50.0, clamp(50, 30, 95))

	values := []float64{1, 2, 3, 4}
	assert.Equal(t, []float64{3, 4}, tail(values, 2))
	assert.Equal(t, values, tail(values, 10))
	assert.Equal(t, values, tail(values, 0))
}
