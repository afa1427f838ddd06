// Package snapshot stores and retrieves per-table snapshots in object
// storage: raw JSON dumps from ingestion and conformed parquet datasets from
// the transform stage. Multiple snapshots per table coexist; readers always
// take the latest one.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a table has no snapshot at all. Callers match
// it with errors.Is; it is never swallowed by this package.
var ErrNotFound = errors.New("no snapshot found")

// Object extensions for the two snapshot forms.
const (
	ExtRaw     = "json"
	ExtDataset = "parquet"
)

// Object is one stored snapshot, body fully read.
type Object struct {
	Key  string
	Body []byte
}

// Store is the object-storage capability the pipeline stages depend on.
// Latest returns the most recent snapshot for a table, or an error wrapping
// ErrNotFound when the table has none.
type Store interface {
	Latest(ctx context.Context, table string) (Object, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
}

// ObjectKey builds a snapshot key of the form
//
//	{table}/{YYYY}/{MM}/{DD}/{table}-{YYYYMMDDTHHMMSSZ}.{ext}
//
// The date prefix keeps listings cheap and the timestamp suffix makes keys
// sort chronologically, so "latest" is simply the greatest key under the
// table prefix.
func ObjectKey(table string, at time.Time, ext string) string {
	at = at.UTC()
	return fmt.Sprintf("%s/%s/%s-%sZ.%s",
		table, at.Format("2006/01/02"), table, at.Format("20060102T150405"), ext)
}
