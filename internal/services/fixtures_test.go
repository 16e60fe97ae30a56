package services

import (
	"github.com/irfndi/cpi-insights/internal/models"
)

// monthlySeries builds consecutive monthly records starting at (year, month),
// month being zero-based. The RL index mirrors AL.
func monthlySeries(state string, year, month int, values []float64) []models.PriceRecord {
	return alrlSeries(state, year, month, values, values)
}

func alrlSeries(state string, year, month int, al, rl []float64) []models.PriceRecord {
	n := len(al)
	if len(rl) > n {
		n = len(rl)
	}
	records := make([]models.PriceRecord, n)
	for i := 0; i < n; i++ {
		offset := month + i
		r := models.PriceRecord{
			Indicator: "CPI",
			BaseYear:  "1986-87",
			Year:      year + offset/12,
			Month:     models.Months[offset%12],
			State:     state,
		}
		if i < len(al) {
			r.IndexAL = al[i]
		}
		if i < len(rl) {
			r.IndexRL = rl[i]
		}
		records[i] = r
	}
	return records
}

func repeat(value float64, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = value
	}
	return values
}

func linear(start, step float64, n int) []float64 {
	values := make([]float64, n)
	for i := range values {
		values[i] = start + step*float64(i)
	}
	return values
}

// alternating multiplies by 1.1 and 0.9 in turn, giving changes of +10% and -10%.
func alternating(start float64, n int) []float64 {
	values := make([]float64, n)
	v := start
	for i := range values {
		values[i] = v
		if i%2 == 0 {
			v *= 1.1
		} else {
			v *= 0.9
		}
	}
	return values
}

func float64Ptr(v float64) *float64 {
	return &v
}

// uneven is a rising series with irregular month-to-month swings.
func uneven() []float64 {
	return []float64{100, 101.7, 100.9, 103.2, 102.1, 104.8, 103.3, 106.0, 104.9, 107.5, 106.2, 108.9, 107.4, 110.1}
}
