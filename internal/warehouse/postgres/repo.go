// Package postgres implements the warehouse repository for PostgreSQL using
// pgx. Dimension inserts rely on ON CONFLICT DO NOTHING; fact appends stage
// rows in a temp table and anti-join against the durable table inside one
// transaction.
package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/warehouse"
)

func init() {
	warehouse.Register("postgres", New)
}

type Repo struct {
	pool *pgxpool.Pool

	autoCreate bool
}

// New creates a Postgres-backed repository from a pgx DSN.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, err
	}
	return &Repo{pool: pool, autoCreate: cfg.AutoCreateTables}, nil
}

func (r *Repo) Close() {
	r.pool.Close()
}

// EnsureTables issues CREATE TABLE IF NOT EXISTS for each spec when
// auto-create is enabled. Idempotent, safe to run on every load.
func (r *Repo) EnsureTables(ctx context.Context, tables []schema.TableSpec) error {
	if !r.autoCreate {
		return nil
	}
	for _, t := range tables {
		if _, err := r.pool.Exec(ctx, buildCreateTableSQL(t)); err != nil {
			return fmt.Errorf("create table %s: %w", t.Name, err)
		}
	}
	return nil
}

// Rows per statement are chunked to stay well below the protocol's parameter
// limit (65535) even for the widest table.
const maxParams = 30000

func chunkRows(rows [][]any, width int) [][][]any {
	maxRows := maxParams / max(1, width)
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
		sql, args := buildInsertIgnoreSQL(t.Name, columns, part, t.KeyColumns)
		cmd, err := r.pool.Exec(ctx, sql, args...)
		if err != nil {
			return total, err
		}
		total += cmd.RowsAffected()
	}
	return total, nil
}

// AppendFactRows loads rows into a temp staging table, then inserts into the
// durable table only the staged rows whose full tuple is absent from it.
// Everything runs in one transaction so the anti-join observes committed
// state and the temp table vanishes on commit or rollback.
func (r *Repo) AppendFactRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	staging := stagingName(t.Name)
	if _, err := tx.Exec(ctx, buildCreateStagingSQL(t.Name, staging, columns)); err != nil {
		return 0, fmt.Errorf("stage %s: %w", t.Name, err)
	}

	for _, part := range chunkRows(rows, len(columns)) {
		sql, args := buildInsertIgnoreSQL(staging, columns, part, nil)
		if _, err := tx.Exec(ctx, sql, args...); err != nil {
			return 0, fmt.Errorf("stage %s: %w", t.Name, err)
		}
	}

	cmd, err := tx.Exec(ctx, buildAppendNewSQL(t.Name, staging, columns))
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func stagingName(table string) string {
	return "staging_" + table
}

// buildInsertIgnoreSQL constructs one multi-row INSERT and its args. With
// keyColumns it appends ON CONFLICT (...) DO NOTHING. Pure, so placeholder
// numbering and conflict handling are unit tested without a database.
func buildInsertIgnoreSQL(table string, columns []string, rows [][]any, keyColumns []string) (string, []any) {
	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(") VALUES ")

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
			fmt.Fprintf(&b, "$%d", p)
			args = append(args, row[j])
			p++
		}
		b.WriteString(")")
	}

	if len(keyColumns) > 0 {
		b.WriteString(" ON CONFLICT (")
		for i, c := range keyColumns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(pgIdent(c))
		}
		b.WriteString(") DO NOTHING")
	}

	return b.String(), args
}

// buildCreateStagingSQL creates a temp table with the durable table's column
// types for just the business columns. ON COMMIT DROP ties its lifetime to
// the surrounding transaction.
func buildCreateStagingSQL(table, staging string, columns []string) string {
	var b strings.Builder
	b.WriteString("CREATE TEMP TABLE ")
	b.WriteString(pgIdent(staging))
	b.WriteString(" ON COMMIT DROP AS SELECT ")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(pgIdent(c))
	}
	b.WriteString(" FROM ")
	b.WriteString(pgIdent(table))
	b.WriteString(" WITH NO DATA")
	return b.String()
}

// buildAppendNewSQL inserts staged rows whose full tuple does not already
// exist in the durable table. Business columns are all NOT NULL, so the
// row-value NOT IN comparison is safe.
func buildAppendNewSQL(table, staging string, columns []string) string {
	var cols strings.Builder
	for i, c := range columns {
		if i > 0 {
			cols.WriteString(", ")
		}
		cols.WriteString(pgIdent(c))
	}
	colList := cols.String()

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(pgIdent(table))
	b.WriteString(" (")
	b.WriteString(colList)
	b.WriteString(") SELECT ")
	b.WriteString(colList)
	b.WriteString(" FROM ")
	b.WriteString(pgIdent(staging))
	b.WriteString(" WHERE (")
	b.WriteString(colList)
	b.WriteString(") NOT IN (SELECT ")
	b.WriteString(colList)
	b.WriteString(" FROM ")
	b.WriteString(pgIdent(table))
	b.WriteString(")")
	return b.String()
}

func buildCreateTableSQL(t schema.TableSpec) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(pgIdent(t.Name))
	b.WriteString(" (")

	first := true
	writeCol := func(def string) {
		if !first {
			b.WriteString(", ")
		}
		first = false
		b.WriteString(def)
	}

	if pk := t.PrimaryKey; pk != nil {
		writeCol(pgIdent(pk.Name) + " " + pgColumnType(pk.Type) + " PRIMARY KEY")
	}
	for _, c := range t.Columns {
		def := pgIdent(c.Name) + " " + pgColumnType(c.Type)
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
			keys.WriteString(pgIdent(c))
		}
		writeCol("PRIMARY KEY (" + keys.String() + ")")
	}

	b.WriteString(")")
	return b.String()
}

func pgColumnType(t string) string {
	if strings.EqualFold(t, "serial") {
		return "SERIAL"
	}
	return t
}

func pgIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
