// Package mssql implements the warehouse repository for Microsoft SQL Server.
// Both write paths use an INSERT ... SELECT FROM (VALUES ...) WHERE NOT EXISTS
// shape: keyed on the dimension's key columns for insert-or-ignore, and on
// every business column for the fact table's append-if-new-tuple contract.
package mssql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/microsoft/go-mssqldb"

	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/warehouse"
)

func init() {
	warehouse.Register("mssql", New)
}

// dbConn and txConn are seams over database/sql so the write paths can be
// exercised in tests without a SQL Server instance.
type dbConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error)
	Close() error
}

type txConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

type sqlDB struct {
	db *sql.DB
}

func (s *sqlDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}

func (s *sqlDB) BeginTx(ctx context.Context, opts *sql.TxOptions) (txConn, error) {
	return s.db.BeginTx(ctx, opts)
}

func (s *sqlDB) Close() error { return s.db.Close() }

type Repo struct {
	db dbConn

	autoCreate bool
}

// New opens a connection with the "sqlserver" driver and validates it.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	raw, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, err
	}
	return &Repo{db: &sqlDB{db: raw}, autoCreate: cfg.AutoCreateTables}, nil
}

func (r *Repo) Close() {
	if r == nil || r.db == nil {
		return
	}
	_ = r.db.Close()
}

func (r *Repo) EnsureTables(ctx context.Context, tables []schema.TableSpec) error {
	if !r.autoCreate {
		return nil
	}
	for _, t := range tables {
		if _, err := r.db.ExecContext(ctx, buildCreateTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// SQL Server's parameter limit is 2100 per statement.
func chunkRows(rows [][]any, width int) [][][]any {
	maxRows := 2000 / max(1, width)
	if maxRows < 1 {
		maxRows = 1
	}
	var parts [][][]any
	for start := 0; start < len(rows); start += maxRows {
		end := min(start+maxRows, len(rows))
		parts = append(parts, rows[start:end])
	}
	return parts
}

func (r *Repo) InsertDimensionRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var total int64
	for _, part := range chunkRows(rows, len(columns)) {
		q, args := buildInsertNotExistsSQL(t.Name, columns, part, t.KeyColumns)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// AppendFactRows applies the not-exists insert with the full business-column
// tuple as the predicate. Chunks share one transaction so the duplicate check
// always sees committed state plus earlier chunks of this same load.
func (r *Repo) AppendFactRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var total int64
	for _, part := range chunkRows(rows, len(columns)) {
		q, args := buildInsertNotExistsSQL(t.Name, columns, part, columns)
		res, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return total, nil
}

// buildInsertNotExistsSQL produces an idempotent multi-row insert: incoming
// rows form a VALUES derived table, and only those without a match on the
// predicate columns reach the target. Pure for testability.
func buildInsertNotExistsSQL(table string, columns []string, rows [][]any, predicateColumns []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") SELECT ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("v.")
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(" FROM (VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	p := 1
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "@p%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	b.WriteString(") AS v(")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(") WHERE NOT EXISTS (SELECT 1 FROM ")
	b.WriteString(mssqlIdent(table))
	b.WriteString(" t WHERE ")
	for i, c := range predicateColumns {
		if i > 0 {
			b.WriteString(" AND ")
		}
		b.WriteString("t.")
		b.WriteString(mssqlIdent(c))
		b.WriteString(" = v.")
		b.WriteString(mssqlIdent(c))
	}
	b.WriteString(")")

	return b.String(), args
}

func buildCreateTableSQL(t schema.TableSpec) string {
	var cols strings.Builder

	first := true
	writeCol := func(def string) {
		if !first {
			cols.WriteString(", ")
		}
		first = false
		cols.WriteString(def)
	}

	if pk := t.PrimaryKey; pk != nil {
		writeCol(mssqlIdent(pk.Name) + " INT IDENTITY(1,1) PRIMARY KEY")
	}
	for _, c := range t.Columns {
		def := mssqlIdent(c.Name) + " " + mssqlColumnType(c.Type)
		if !c.Nullable {
			def += " NOT NULL"
		}
		writeCol(def)
	}
	if len(t.KeyColumns) > 0 {
		var keys strings.Builder
		for i, c := range t.KeyColumns {
			if i > 0 {
				keys.WriteString(", ")
			}
			keys.WriteString(mssqlIdent(c))
		}
		writeCol("PRIMARY KEY (" + keys.String() + ")")
	}

	return fmt.Sprintf("IF OBJECT_ID(N'%s', N'U') IS NULL CREATE TABLE %s (%s)",
		strings.ReplaceAll(t.Name, "'", "''"), mssqlIdent(t.Name), cols.String())
}

// mssqlColumnType maps the portable spec types onto SQL Server types.
func mssqlColumnType(t string) string {
	up := strings.ToUpper(t)
	switch {
	case up == "VARCHAR":
		return "NVARCHAR(MAX)"
	case strings.HasPrefix(up, "VARCHAR("):
		return "N" + up
	default:
		return up
	}
}

func mssqlIdent(name string) string {
	return "[" + strings.ReplaceAll(name, "]", "]]") + "]"
}
