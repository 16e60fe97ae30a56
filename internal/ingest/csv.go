package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/irfndi/cpi-insights/internal/models"
	"github.com/irfndi/cpi-insights/internal/utils"
)

// ParseCSV reads price records with a header row naming the columns
// indicator, baseYear, year, month, state, indexAL, indexRL, inflationAL and
// inflationRL in any order and case. Rows that fail validation are dropped
// and counted in the report; only unreadable input or a missing required
// column is an error.
func ParseCSV(r io.Reader) ([]models.PriceRecord, Report, error) {
	var report Report

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	headers, err := reader.Read()
	if err != nil {
		return nil, report, fmt.Errorf("failed to read CSV headers: %w", err)
	}

	columns := make(map[string]int, len(headers))
	for i, h := range headers {
		key := normalizeColumn(strings.TrimPrefix(h, "\ufeff"))
		if _, dup := columns[key]; !dup {
			columns[key] = i
		}
	}
	for _, required := range requiredColumns {
		if _, ok := columns[required]; !ok {
			return nil, report, utils.NewFieldError(required, "missing required CSV column")
		}
	}

	records := make([]models.PriceRecord, 0)
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				report.Rows++
				report.drop(fmt.Errorf("line %d: %w", parseErr.Line, err))
				continue
			}
			return nil, report, fmt.Errorf("failed to read CSV: %w", err)
		}
		report.Rows++

		get := func(column string) string {
			idx, ok := columns[column]
			if !ok || idx >= len(row) {
				return ""
			}
			return row[idx]
		}

		rec, err := buildRecord(get)
		if err != nil {
			line, _ := reader.FieldPos(0)
			report.drop(fmt.Errorf("line %d: %w", line, err))
			continue
		}
		records = append(records, rec)
	}

	report.Accepted = len(records)
	return records, report, nil
}
