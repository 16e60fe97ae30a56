package ingest

import (
	"strconv"
	"strings"

	"github.com/irfndi/cpi-insights/internal/models"
	"github.com/irfndi/cpi-insights/internal/utils"
)

// Canonical column keys after normalizeColumn.
const (
	colIndicator   = "indicator"
	colBaseYear    = "baseyear"
	colYear        = "year"
	colMonth       = "month"
	colState       = "state"
	colIndexAL     = "indexal"
	colIndexRL     = "indexrl"
	colInflationAL = "inflational"
	colInflationRL = "inflationrl"
)

var requiredColumns = []string{colYear, colMonth, colState, colIndexAL, colIndexRL}

// maxReportedErrors bounds Report.Errors so a bad file cannot balloon memory.
const maxReportedErrors = 20

// Report summarizes one ingestion pass. Rows counts data rows seen; Dropped
// rows failed validation and were left out.
type Report struct {
	Rows     int     `json:"rows"`
	Accepted int     `json:"accepted"`
	Dropped  int     `json:"dropped"`
	Errors   []error `json:"-"`
}

func (r *Report) drop(err error) {
	r.Dropped++
	if len(r.Errors) < maxReportedErrors {
		r.Errors = append(r.Errors, err)
	}
}

// fieldGetter returns the raw text of a canonical column.
type fieldGetter func(column string) string

// buildRecord validates one row. Empty index cells mean "not reported" (0);
// empty inflation cells become nil.
func buildRecord(get fieldGetter) (models.PriceRecord, error) {
	var rec models.PriceRecord

	rec.Indicator = strings.TrimSpace(get(colIndicator))
	rec.BaseYear = strings.TrimSpace(get(colBaseYear))

	yearText := strings.TrimSpace(get(colYear))
	year, err := strconv.Atoi(yearText)
	if err != nil {
		// Numeric JSON values may arrive as "2023.0".
		f, ferr := strconv.ParseFloat(yearText, 64)
		if ferr != nil || f != float64(int(f)) {
			return rec, utils.NewFieldError(colYear, "invalid year %q", yearText)
		}
		year = int(f)
	}
	if year <= 0 {
		return rec, utils.NewFieldError(colYear, "invalid year %q", yearText)
	}
	rec.Year = year

	month, ok := NormalizeMonth(get(colMonth))
	if !ok {
		return rec, utils.NewFieldError(colMonth, "unknown month %q", get(colMonth))
	}
	rec.Month = month

	rec.State = NormalizeState(get(colState))
	if rec.State == "" {
		return rec, utils.NewFieldError(colState, "state is empty")
	}

	if rec.IndexAL, err = parseIndex(colIndexAL, get(colIndexAL)); err != nil {
		return rec, err
	}
	if rec.IndexRL, err = parseIndex(colIndexRL, get(colIndexRL)); err != nil {
		return rec, err
	}
	if rec.InflationAL, err = parseInflation(colInflationAL, get(colInflationAL)); err != nil {
		return rec, err
	}
	if rec.InflationRL, err = parseInflation(colInflationRL, get(colInflationRL)); err != nil {
		return rec, err
	}
	return rec, nil
}

func parseIndex(column, raw string) (float64, error) {
	if isBlank(raw) {
		return 0, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, utils.NewFieldError(column, "invalid index %q", raw)
	}
	if v < 0 {
		return 0, utils.NewFieldError(column, "negative index %v", v)
	}
	return v, nil
}

func parseInflation(column, raw string) (*float64, error) {
	if isBlank(raw) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return nil, utils.NewFieldError(column, "invalid inflation %q", raw)
	}
	return &v, nil
}

// FilterIndicator keeps records of one indicator. An empty indicator keeps everything.
func FilterIndicator(records []models.PriceRecord, indicator string) []models.PriceRecord {
	if indicator == "" {
		return records
	}
	filtered := make([]models.PriceRecord, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(r.Indicator, indicator) {
			filtered = append(filtered, r)
		}
	}
	return filtered
}
