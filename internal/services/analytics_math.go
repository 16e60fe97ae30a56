package services

import (
	"math"

	"github.com/shopspring/decimal"
)

func calculateMeanFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationVariance divides by n.
func populationVariance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := calculateMeanFloat64(values)
	var sumSquares float64
	for _, v := range values {
		diff := v - mean
		sumSquares += diff * diff
	}
	return sumSquares / float64(len(values))
}

func populationStdDev(values []float64) float64 {
	return math.Sqrt(populationVariance(values))
}

// percentChanges returns period-over-period changes in percent, skipping
// transitions whose prior value is zero (not reported).
func percentChanges(values []float64) []float64 {
	if len(values) < 2 {
		return nil
	}
	changes := make([]float64, 0, len(values)-1)
	for i := 1; i < len(values); i++ {
		if values[i-1] == 0 {
			continue
		}
		changes = append(changes, (values[i]-values[i-1])/values[i-1]*100)
	}
	return changes
}

// growthPercent is the percent change from `from` to `to`; 0 when from is 0.
func growthPercent(from, to float64) float64 {
	if from == 0 {
		return 0
	}
	return (to - from) / from * 100
}

// PearsonCorrelation returns the correlation coefficient of two equal-length
// series. Fewer than 3 pairs, mismatched lengths or a flat series yield 0.
func PearsonCorrelation(x []float64, y []float64) float64 {
	n := len(x)
	if n < 3 || len(y) != n {
		return 0
	}
	meanX := calculateMeanFloat64(x)
	meanY := calculateMeanFloat64(y)

	var numerator float64
	var denomX float64
	var denomY float64

	for i := 0; i < n; i++ {
		dx := x[i] - meanX
		dy := y[i] - meanY
		numerator += dx * dy
		denomX += dx * dx
		denomY += dy * dy
	}

	denom := math.Sqrt(denomX * denomY)
	if denom == 0 {
		return 0
	}

	corr := numerator / denom
	if corr > 1 {
		return 1
	}
	if corr < -1 {
		return -1
	}
	return corr
}

// fitLinearTrend estimates value = intercept + slope*i by ordinary least
// squares over i = 0..n-1.
func fitLinearTrend(values []float64) (slope float64, intercept float64) {
	n := len(values)
	if n == 0 {
		return 0, 0
	}
	if n == 1 {
		return 0, values[0]
	}

	var sumX float64
	var sumY float64
	var sumXX float64
	var sumXY float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXX += x * x
		sumXY += x * y
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	if denom == 0 {
		return 0, calculateMeanFloat64(values)
	}
	slope = (fn*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / fn
	return slope, intercept
}

func clamp(value, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, value))
}

// roundTo rounds half away from zero at the output boundary. Non-finite
// inputs collapse to 0 so results stay JSON-encodable.
func roundTo(value float64, places int32) float64 {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}
	return decimal.NewFromFloat(value).Round(places).InexactFloat64()
}

func round2(value float64) float64 {
	return roundTo(value, 2)
}

func round4(value float64) float64 {
	return roundTo(value, 4)
}

func tail(values []float64, n int) []float64 {
	if n <= 0 || len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}
