package models

import "strings"

// LaborType selects one of the two parallel index series tracked per state.
type LaborType string

const (
	LaborTypeAL LaborType = "AL" // Agricultural Labourers
	LaborTypeRL LaborType = "RL" // Rural Labourers
)

// ParseLaborType accepts "AL"/"RL" in any case. Empty input defaults to AL.
func ParseLaborType(s string) (LaborType, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "AL":
		return LaborTypeAL, true
	case "RL":
		return LaborTypeRL, true
	default:
		return "", false
	}
}

// Months is the canonical calendar ordering used for chronological sorting.
var Months = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var monthIndex = func() map[string]int {
	m := make(map[string]int, len(Months))
	for i, name := range Months {
		m[name] = i
	}
	return m
}()

// MonthIndex returns the zero-based position of a canonical month name.
func MonthIndex(name string) (int, bool) {
	idx, ok := monthIndex[name]
	return idx, ok
}

// PriceRecord is one state-month observation of the AL/RL consumer price indices.
type PriceRecord struct {
	Indicator   string   `json:"indicator" db:"indicator"`
	BaseYear    string   `json:"baseYear" db:"base_year"`
	Year        int      `json:"year" db:"year"`
	Month       string   `json:"month" db:"month"`
	State       string   `json:"state" db:"state"`
	IndexAL     float64  `json:"indexAL" db:"index_al"`
	IndexRL     float64  `json:"indexRL" db:"index_rl"`
	InflationAL *float64 `json:"inflationAL" db:"inflation_al"` // nil when no observation 12 months prior
	InflationRL *float64 `json:"inflationRL" db:"inflation_rl"`
}

// Index returns the index value for the given labor type. Zero means not reported.
func (r PriceRecord) Index(lt LaborType) float64 {
	if lt == LaborTypeRL {
		return r.IndexRL
	}
	return r.IndexAL
}

// Inflation returns the published year-over-year inflation for the given labor type.
func (r PriceRecord) Inflation(lt LaborType) *float64 {
	if lt == LaborTypeRL {
		return r.InflationRL
	}
	return r.InflationAL
}

// MonthIndex returns the record's zero-based calendar month, or -1 when unknown.
func (r PriceRecord) MonthIndex() int {
	if idx, ok := MonthIndex(r.Month); ok {
		return idx
	}
	return -1
}

// Period returns a monotonically increasing month ordinal (year*12 + month).
func (r PriceRecord) Period() int {
	return r.Year*12 + r.MonthIndex()
}
