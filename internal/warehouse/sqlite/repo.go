// Package sqlite implements the warehouse repository on SQLite via
// modernc.org/sqlite (no cgo). Useful for local development and tests that
// want a real SQL engine without standing up a server.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/warehouse"
)

func init() {
	warehouse.Register("sqlite", New)
}

type Repo struct {
	db *sql.DB

	autoCreate bool
}

// New opens (or creates) the SQLite database at the DSN path.
func New(ctx context.Context, cfg warehouse.Config) (warehouse.Repository, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer; serialize access instead of surfacing
	// SQLITE_BUSY to callers.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repo{db: db, autoCreate: cfg.AutoCreateTables}, nil
}

func (r *Repo) Close() { _ = r.db.Close() }

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

// SQLite's default parameter limit is 32766 (3.32+); stay well below it.
const maxParams = 16000

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

// InsertDimensionRows uses INSERT OR IGNORE, which needs the key columns to
// carry a PK or UNIQUE constraint; buildCreateTableSQL declares one.
func (r *Repo) InsertDimensionRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	var total int64
	for _, part := range chunkRows(rows, len(columns)) {
		q, args := buildInsertSQL(t.Name, columns, part, true)
		res, err := r.db.ExecContext(ctx, q, args...)
		if err != nil {
			return total, err
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// AppendFactRows stages rows in a temp table and appends only tuples absent
// from the durable table, all in one transaction.
func (r *Repo) AppendFactRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	staging := "staging_" + t.Name
	if _, err := tx.ExecContext(ctx, buildCreateStagingSQL(t, staging, columns)); err != nil {
		return 0, fmt.Errorf("stage %s: %w", t.Name, err)
	}

	for _, part := range chunkRows(rows, len(columns)) {
		q, args := buildInsertSQL(staging, columns, part, false)
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return 0, fmt.Errorf("stage %s: %w", t.Name, err)
		}
	}

	res, err := tx.ExecContext(ctx, buildAppendNewSQL(t.Name, staging, columns))
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()

	if _, err := tx.ExecContext(ctx, "DROP TABLE "+sqlIdent(staging)); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

func buildInsertSQL(table string, columns []string, rows [][]any, orIgnore bool) (string, []any) {
	var b strings.Builder
	if orIgnore {
		b.WriteString("INSERT OR IGNORE INTO ")
	} else {
		b.WriteString("INSERT INTO ")
	}
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
	}
	b.WriteString(") VALUES ")

	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString("(")
		for j := range columns {
			if j > 0 {
				b.WriteString(", ")
			}
			b.WriteString("?")
			args = append(args, row[j])
		}
		b.WriteString(")")
	}
	return b.String(), args
}

// TEMP tables live in their own schema, so the staging table never collides
// with a durable one of the same name.
func buildCreateStagingSQL(t schema.TableSpec, staging string, columns []string) string {
	types := make(map[string]string, len(t.Columns))
	for _, c := range t.Columns {
		types[c.Name] = sqliteColumnType(c.Type)
	}

	var b strings.Builder
	b.WriteString("CREATE TEMP TABLE ")
	b.WriteString(sqlIdent(staging))
	b.WriteString(" (")
	for i, c := range columns {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(sqlIdent(c))
		b.WriteString(" ")
		b.WriteString(types[c])
	}
	b.WriteString(")")
	return b.String()
}

func buildAppendNewSQL(table, staging string, columns []string) string {
	var cols strings.Builder
	for i, c := range columns {
		if i > 0 {
			cols.WriteString(", ")
		}
		cols.WriteString(sqlIdent(c))
	}
	colList := cols.String()

	var b strings.Builder
	b.WriteString("INSERT INTO ")
	b.WriteString(sqlIdent(table))
	b.WriteString(" (")
	b.WriteString(colList)
	b.WriteString(") SELECT ")
	b.WriteString(colList)
	b.WriteString(" FROM ")
	b.WriteString(sqlIdent(staging))
	b.WriteString(" WHERE (")
	b.WriteString(colList)
	b.WriteString(") NOT IN (SELECT ")
	b.WriteString(colList)
	b.WriteString(" FROM ")
	b.WriteString(sqlIdent(table))
	b.WriteString(")")
	return b.String()
}

func buildCreateTableSQL(t schema.TableSpec) string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS ")
	b.WriteString(sqlIdent(t.Name))
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
		// INTEGER PRIMARY KEY aliases rowid, giving autoincrement semantics.
		writeCol(sqlIdent(pk.Name) + " INTEGER PRIMARY KEY")
	}
	for _, c := range t.Columns {
		def := sqlIdent(c.Name) + " " + sqliteColumnType(c.Type)
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
			keys.WriteString(sqlIdent(c))
		}
		writeCol("PRIMARY KEY (" + keys.String() + ")")
	}

	b.WriteString(")")
	return b.String()
}

// sqliteColumnType maps the portable spec types onto SQLite affinities.
// Dates and times are stored as ISO-8601 text, SQLite's own convention.
func sqliteColumnType(t string) string {
	up := strings.ToUpper(t)
	switch {
	case up == "INT" || up == "SERIAL":
		return "INTEGER"
	case strings.HasPrefix(up, "VARCHAR"):
		return "TEXT"
	case up == "DATE" || up == "TIME":
		return "TEXT"
	case strings.HasPrefix(up, "NUMERIC"):
		return "NUMERIC"
	default:
		return up
	}
}

func sqlIdent(id string) string {
	return `"` + strings.ReplaceAll(id, `"`, `""`) + `"`
}
