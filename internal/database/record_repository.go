package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/irfndi/cpi-insights/internal/ingest"
	"github.com/irfndi/cpi-insights/internal/models"
)

// DatabasePool defines the subset of pool operations the repositories need.
// It is satisfied by *pgxpool.Pool and by pgxmock pools.
type DatabasePool interface {
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// RecordRepository reads price records from the cpi_records table:
//
//	indicator text, base_year text, year int, month text, state text,
//	index_al numeric, index_rl numeric, inflation_al numeric NULL, inflation_rl numeric NULL
//
// Access is read-only.
type RecordRepository struct {
	pool      DatabasePool
	indicator string
}

// NewRecordRepository creates a repository. indicator scopes Records; empty means all.
func NewRecordRepository(pool DatabasePool, indicator string) *RecordRepository {
	return &RecordRepository{
		pool:      pool,
		indicator: indicator,
	}
}

// LoadRecords returns every record of indicator (all indicators when empty).
// Month and state names are normalized as in file ingestion. Rows come back
// in storage order; the engines sort per state themselves.
func (r *RecordRepository) LoadRecords(ctx context.Context, indicator string) ([]models.PriceRecord, error) {
	query := `
		SELECT indicator, base_year, year, month, state,
			index_al::float8, index_rl::float8, inflation_al::float8, inflation_rl::float8
		FROM cpi_records
		WHERE ($1 = '' OR indicator = $1)
	`

	rows, err := r.pool.Query(ctx, query, indicator)
	if err != nil {
		return nil, fmt.Errorf("failed to query price records: %w", err)
	}
	defer rows.Close()

	records := make([]models.PriceRecord, 0)
	for rows.Next() {
		var rec models.PriceRecord
		err := rows.Scan(
			&rec.Indicator,
			&rec.BaseYear,
			&rec.Year,
			&rec.Month,
			&rec.State,
			&rec.IndexAL,
			&rec.IndexRL,
			&rec.InflationAL,
			&rec.InflationRL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price record: %w", err)
		}
		if month, ok := ingest.NormalizeMonth(rec.Month); ok {
			rec.Month = month
		}
		rec.State = ingest.NormalizeState(rec.State)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating price records: %w", err)
	}

	return records, nil
}

// Records implements ingest.RecordSource for the configured indicator.
func (r *RecordRepository) Records(ctx context.Context) ([]models.PriceRecord, error) {
	return r.LoadRecords(ctx, r.indicator)
}
