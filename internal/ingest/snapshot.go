package ingest

import (
	"context"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/irfndi/cpi-insights/internal/models"
)

// RecordSource yields the record set the engines run over.
type RecordSource interface {
	Records(ctx context.Context) ([]models.PriceRecord, error)
}

// Snapshot is an immutable in-memory record set.
type Snapshot struct {
	records  []models.PriceRecord
	loadedAt time.Time
}

// NewSnapshot copies records, keeping only the given indicator when it is non-empty.
func NewSnapshot(records []models.PriceRecord, indicator string) *Snapshot {
	return &Snapshot{
		records:  slices.Clone(FilterIndicator(records, indicator)),
		loadedAt: time.Now(),
	}
}

// Records returns a copy of the snapshot's records.
func (s *Snapshot) Records(ctx context.Context) ([]models.PriceRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return slices.Clone(s.records), nil
}

// Len returns the number of records held.
func (s *Snapshot) Len() int {
	return len(s.records)
}

// LoadedAt returns when the snapshot was taken.
func (s *Snapshot) LoadedAt() time.Time {
	return s.loadedAt
}

// LoadCSVFile parses a CSV file into a snapshot.
func LoadCSVFile(path, indicator string, logger *logrus.Logger) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, report, err := ParseCSV(f)
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	if logger != nil {
		entry := logger.WithFields(logrus.Fields{
			"path":     path,
			"rows":     report.Rows,
			"accepted": report.Accepted,
			"dropped":  report.Dropped,
		})
		if report.Dropped > 0 {
			entry.WithField("first_error", report.Errors[0].Error()).Warn("Dropped malformed price records")
		} else {
			entry.Info("Loaded price records")
		}
	}

	return NewSnapshot(records, indicator), nil
}

// Load reads the whole record set from src into a snapshot.
func Load(ctx context.Context, src RecordSource, indicator string) (*Snapshot, error) {
	records, err := src.Records(ctx)
	if err != nil {
		return nil, err
	}
	return NewSnapshot(records, indicator), nil
}
