package ingest

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/irfndi/cpi-insights/internal/models"
)

var monthAliases = func() map[string]string {
	m := make(map[string]string, 48)
	for i, name := range models.Months {
		lower := strings.ToLower(name)
		m[lower] = name
		m[lower[:3]] = name
		m[strconv.Itoa(i+1)] = name
	}
	m["sept"] = "September"
	return m
}()

// NormalizeMonth maps full names, three-letter abbreviations and 1-12 in any
// case onto the canonical month name.
func NormalizeMonth(raw string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.TrimSuffix(key, ".")
	key = strings.TrimLeft(key, "0")
	name, ok := monthAliases[key]
	return name, ok
}

var stateConnectives = map[string]bool{"and": true, "of": true, "the": true}

// stateAcronyms are tokens kept upper case whatever the input casing.
var stateAcronyms = map[string]bool{"nct": true}

// NormalizeState collapses internal whitespace and title-cases the name so
// "ANDHRA  PRADESH" and "andhra pradesh" land on the same series.
func NormalizeState(raw string) string {
	fields := strings.Fields(raw)
	if len(fields) == 0 {
		return ""
	}
	caser := cases.Title(language.English)
	for i, f := range fields {
		if i > 0 && stateConnectives[strings.ToLower(f)] {
			fields[i] = strings.ToLower(f)
			continue
		}
		if stateAcronyms[strings.ToLower(f)] {
			fields[i] = strings.ToUpper(f)
			continue
		}
		fields[i] = caser.String(f)
	}
	return strings.Join(fields, " ")
}

// normalizeColumn reduces a header or JSON key to its comparison form:
// lower case without spaces, underscores or dashes.
func normalizeColumn(name string) string {
	replacer := strings.NewReplacer(" ", "", "_", "", "-", "")
	return replacer.Replace(strings.ToLower(strings.TrimSpace(name)))
}

func isBlank(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "na", "n/a", "null", "-", "nan":
		return true
	}
	return false
}
