package services

import (
	"sort"
	"strings"

	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"

	"github.com/irfndi/cpi-insights/internal/models"
)

// seriesPoint is a reported (non-zero) index value with its calendar position.
type seriesPoint struct {
	value float64
	month int
	year  int
}

// TimeSeries returns the records of one state in chronological order.
// Records sharing a period keep their input order.
func TimeSeries(records []models.PriceRecord, state string) []models.PriceRecord {
	series := make([]models.PriceRecord, 0)
	for _, r := range records {
		if r.State == state {
			series = append(series, r)
		}
	}
	sortChronologically(series)
	return series
}

// GroupByState splits records into per-state chronological series in a single pass.
func GroupByState(records []models.PriceRecord) map[string][]models.PriceRecord {
	grouped := make(map[string][]models.PriceRecord)
	for _, r := range records {
		grouped[r.State] = append(grouped[r.State], r)
	}
	for _, series := range grouped {
		sortChronologically(series)
	}
	return grouped
}

func sortChronologically(series []models.PriceRecord) {
	sort.SliceStable(series, func(i, j int) bool {
		if series[i].Year != series[j].Year {
			return series[i].Year < series[j].Year
		}
		return series[i].MonthIndex() < series[j].MonthIndex()
	})
}

// States lists the distinct state names in records, sorted, minus any excluded names
// (compared case-insensitively).
func States(records []models.PriceRecord, exclude ...string) []string {
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[strings.ToLower(strings.TrimSpace(e))] = true
	}
	seen := make(map[string]bool)
	states := make([]string, 0)
	for _, r := range records {
		if seen[r.State] || skip[strings.ToLower(r.State)] {
			continue
		}
		seen[r.State] = true
		states = append(states, r.State)
	}
	sort.Strings(states)
	return states
}

// IndexValues extracts the reported index values of a series, dropping zeros.
func IndexValues(series []models.PriceRecord, lt models.LaborType) []float64 {
	values := make([]float64, 0, len(series))
	for _, r := range series {
		if v := r.Index(lt); v > 0 {
			values = append(values, v)
		}
	}
	return values
}

func indexPoints(series []models.PriceRecord, lt models.LaborType) []seriesPoint {
	points := make([]seriesPoint, 0, len(series))
	for _, r := range series {
		v := r.Index(lt)
		month := r.MonthIndex()
		if v <= 0 || month < 0 {
			continue
		}
		points = append(points, seriesPoint{value: v, month: month, year: r.Year})
	}
	return points
}

// Volatility is the population standard deviation of period-over-period
// percent changes, rounded to 2 decimals. Fewer than 2 values yield 0.
func Volatility(values []float64) float64 {
	return round2(volatility(values))
}

func volatility(values []float64) float64 {
	changes := percentChanges(values)
	if len(changes) == 0 {
		return 0
	}
	return populationStdDev(changes)
}

// MovingAverage returns the trailing simple moving average of values. The
// first window-1 positions carry the raw value since no full window exists yet.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	if window <= 1 || len(values) < window {
		return out
	}

	sma := trend.NewSmaWithPeriod[float64](window)
	averaged := helper.ChanToSlice(sma.Compute(helper.SliceToChan(values)))

	offset := sma.IdlePeriod()
	for i, v := range averaged {
		if i+offset >= len(out) {
			break
		}
		out[i+offset] = v
	}
	return out
}

// YearOverYear compares the latest record against the same calendar month a
// year earlier. ok is false when that record is missing or either value is unreported.
func YearOverYear(series []models.PriceRecord, lt models.LaborType) (value float64, ok bool) {
	if len(series) == 0 {
		return 0, false
	}
	latest := series[len(series)-1]
	current := latest.Index(lt)
	if current <= 0 {
		return 0, false
	}

	for i := len(series) - 2; i >= 0; i-- {
		r := series[i]
		if r.Year != latest.Year-1 || r.Month != latest.Month {
			continue
		}
		prior := r.Index(lt)
		if prior <= 0 {
			return 0, false
		}
		return round2(growthPercent(prior, current)), true
	}
	return 0, false
}
