// Package warehouse applies conformed datasets to the analytical warehouse.
// Dimensions get insert-or-ignore semantics; the fact table gets staged
// append-if-new-tuple semantics. Backends register themselves by kind and are
// selected through Config, mirroring how drivers plug into database/sql.
package warehouse

import (
	"context"
	"fmt"
	"sync"

	"warehouse-etl/internal/schema"
)

// Config selects and configures a warehouse backend.
type Config struct {
	Kind string // registered backend kind: "postgres", "sqlite", "mssql"
	DSN  string

	// AutoCreateTables makes EnsureTables issue create-if-not-exists DDL.
	// When false, EnsureTables is a no-op and the schema must already exist.
	AutoCreateTables bool
}

// Repository is the per-backend write surface. Each call owns its own
// connection scope: a failure on any path releases the underlying resources
// before the error propagates.
type Repository interface {
	// Close releases the backend's connections. Call once at shutdown.
	Close()

	// EnsureTables creates the warehouse tables when auto-create is enabled.
	EnsureTables(ctx context.Context, tables []schema.TableSpec) error

	// InsertDimensionRows inserts rows into a dimension table, silently
	// skipping rows whose key already exists. Returns the number of rows
	// actually inserted.
	InsertDimensionRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error)

	// AppendFactRows stages the incoming rows and inserts only those whose
	// full business-column tuple is not already present in the durable
	// table. Staging and insert happen in one transaction so a concurrent
	// load cannot double-insert. Returns the number of rows appended.
	AppendFactRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error)
}

// WriteError wraps any failure on the warehouse write path with the table it
// happened on. The expected conflict-ignore outcome of a dimension insert is
// not an error and never produces one of these.
type WriteError struct {
	Table string
	Err   error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("warehouse write %s: %v", e.Table, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// Apply writes one dataset to its warehouse table using the table's conflict
// policy. The dataset's synthetic primary-key column, when present, is
// stripped first: the warehouse assigns the durable identity itself.
// Any backend failure comes back as a *WriteError.
func Apply(ctx context.Context, repo Repository, ds schema.Dataset) (int64, error) {
	columns, rows := stripPrimaryKey(ds)

	var n int64
	var err error
	switch ds.Table.Kind {
	case schema.KindDimension:
		n, err = repo.InsertDimensionRows(ctx, ds.Table, columns, rows)
	case schema.KindFact:
		n, err = repo.AppendFactRows(ctx, ds.Table, columns, rows)
	default:
		err = fmt.Errorf("unknown table kind %q", ds.Table.Kind)
	}
	if err != nil {
		return n, &WriteError{Table: ds.Table.Name, Err: err}
	}
	return n, nil
}

// stripPrimaryKey removes the warehouse-assigned key column from the dataset,
// if the dataset carries it. Rows are copied, not mutated in place.
func stripPrimaryKey(ds schema.Dataset) ([]string, [][]any) {
	if ds.Table.PrimaryKey == nil {
		return ds.Columns, ds.Rows
	}
	idx := -1
	for i, c := range ds.Columns {
		if c == ds.Table.PrimaryKey.Name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ds.Columns, ds.Rows
	}

	columns := make([]string, 0, len(ds.Columns)-1)
	columns = append(columns, ds.Columns[:idx]...)
	columns = append(columns, ds.Columns[idx+1:]...)

	rows := make([][]any, len(ds.Rows))
	for i, r := range ds.Rows {
		row := make([]any, 0, len(r)-1)
		row = append(row, r[:idx]...)
		row = append(row, r[idx+1:]...)
		rows[i] = row
	}
	return columns, rows
}

// ---- backend registry ----

type factory func(ctx context.Context, cfg Config) (Repository, error)

var (
	mu        sync.RWMutex
	factories = map[string]factory{}
)

// Register registers a backend under a kind. Called from init() in backend
// packages; registering the same kind twice panics to fail fast on ambiguous
// backend selection.
func Register(kind string, f factory) {
	mu.Lock()
	defer mu.Unlock()

	if kind == "" {
		panic("warehouse: Register called with empty kind")
	}
	if f == nil {
		panic("warehouse: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("warehouse: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Repository for the configured backend kind.
func New(ctx context.Context, cfg Config) (Repository, error) {
	if cfg.Kind == "" {
		return nil, fmt.Errorf("warehouse: missing kind")
	}

	mu.RLock()
	f := factories[cfg.Kind]
	mu.RUnlock()

	if f == nil {
		return nil, fmt.Errorf("warehouse: unsupported kind=%s", cfg.Kind)
	}
	return f(ctx, cfg)
}
