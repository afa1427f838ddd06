// Package ingest performs the extraction stage: full-table scans of the
// transactional database, serialized as raw JSON snapshots in object storage.
// One snapshot per source table per run, keyed by the capture timestamp.
package ingest

import (
	"context"
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"warehouse-etl/internal/snapshot"
)

// Logger is the minimal logging interface used by the extractor.
// *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// rowQuerier is the slice of pgxpool.Pool the extractor needs; tests inject
// a fake to exercise serialization without a database.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Extractor dumps source tables into raw snapshots.
type Extractor struct {
	DB    rowQuerier
	Store snapshot.Store

	// Now is a clock seam; nil means time.Now. One capture timestamp is
	// taken per run so every table's snapshot shares the same key time.
	Now func() time.Time

	Logger Logger
}

// NewExtractor wires an extractor to a source pool and a snapshot store.
func NewExtractor(db *pgxpool.Pool, store snapshot.Store, logger Logger) *Extractor {
	return &Extractor{DB: db, Store: store, Logger: logger}
}

// Run extracts every named table and writes one raw snapshot each. Tables
// are processed sequentially; the first failure aborts the run.
func (e *Extractor) Run(ctx context.Context, tables []string) error {
	now := time.Now
	if e.Now != nil {
		now = e.Now
	}
	at := now().UTC()

	for _, table := range tables {
		n, key, err := e.extractTable(ctx, table, at)
		if err != nil {
			return fmt.Errorf("extract %s: %w", table, err)
		}
		e.logf("stage=ingest table=%s rows=%d key=%s", table, n, key)
	}
	return nil
}

func (e *Extractor) extractTable(ctx context.Context, table string, at time.Time) (int, string, error) {
	rows, err := e.DB.Query(ctx, "SELECT * FROM "+pgIdent(table))
	if err != nil {
		return 0, "", err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = f.Name
	}

	var records []map[string]any
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return 0, "", err
		}
		rec := make(map[string]any, len(columns))
		for i, c := range columns {
			v, err := normalizeValue(values[i])
			if err != nil {
				return 0, "", fmt.Errorf("column %s: %w", c, err)
			}
			rec[c] = v
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return 0, "", err
	}

	key, err := putRecords(ctx, e.Store, table, at, records)
	if err != nil {
		return 0, "", err
	}
	return len(records), key, nil
}

func putRecords(ctx context.Context, store snapshot.Store, table string, at time.Time, records []map[string]any) (string, error) {
	if records == nil {
		records = []map[string]any{}
	}
	body, err := json.Marshal(records)
	if err != nil {
		return "", err
	}
	key := snapshot.ObjectKey(table, at, snapshot.ExtRaw)
	if err := store.Put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// normalizeValue converts driver values into JSON-friendly scalars.
// Timestamps serialize as ISO-8601 with a T separator and no zone, the form
// the conform stage splits; []byte becomes string; numeric driver values
// unwrap through driver.Valuer.
func normalizeValue(v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case time.Time:
		return x.Format("2006-01-02T15:04:05.999999"), nil
	case []byte:
		return string(x), nil
	case driver.Valuer:
		inner, err := x.Value()
		if err != nil {
			return nil, err
		}
		if _, again := inner.(driver.Valuer); again {
			return nil, fmt.Errorf("nested driver.Valuer %T", inner)
		}
		return normalizeValue(inner)
	default:
		return v, nil
	}
}

func (e *Extractor) logf(format string, v ...any) {
	if e.Logger != nil {
		e.Logger.Printf(format, v...)
	}
}

func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
