package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/irfndi/cpi-insights/internal/models"
)

// ParseJSON decodes price records from the remote API. The payload is either
// a bare array of records or an object wrapping one under "records" or
// "data". Keys follow the CSV column names; numbers may be sent as numbers or
// strings and missing inflation may be null.
func ParseJSON(data []byte) ([]models.PriceRecord, Report, error) {
	var report Report

	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()

	var payload interface{}
	if err := decoder.Decode(&payload); err != nil {
		return nil, report, fmt.Errorf("failed to decode JSON records: %w", err)
	}

	items, err := recordItems(payload)
	if err != nil {
		return nil, report, err
	}

	records := make([]models.PriceRecord, 0, len(items))
	for i, item := range items {
		report.Rows++
		obj, ok := item.(map[string]interface{})
		if !ok {
			report.drop(fmt.Errorf("record %d: not an object", i))
			continue
		}

		fields := make(map[string]string, len(obj))
		for k, v := range obj {
			fields[normalizeColumn(k)] = jsonText(v)
		}

		rec, err := buildRecord(func(column string) string { return fields[column] })
		if err != nil {
			report.drop(fmt.Errorf("record %d: %w", i, err))
			continue
		}
		records = append(records, rec)
	}

	report.Accepted = len(records)
	return records, report, nil
}

func recordItems(payload interface{}) ([]interface{}, error) {
	switch v := payload.(type) {
	case []interface{}:
		return v, nil
	case map[string]interface{}:
		for _, key := range []string{"records", "data"} {
			if items, ok := v[key].([]interface{}); ok {
				return items, nil
			}
		}
		return nil, fmt.Errorf("JSON object has no records array")
	default:
		return nil, fmt.Errorf("unexpected JSON payload of type %T", payload)
	}
}

func jsonText(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}
