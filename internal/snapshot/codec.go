package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/parquet-go/parquet-go"
)

// Raw snapshots travel as JSON arrays of row objects; conformed datasets as
// parquet files. The generic helpers below pair a Store with the right codec
// so the pipeline stages never touch bytes directly.

// FetchRaw reads the latest raw JSON snapshot for a table and decodes it.
func FetchRaw[T any](ctx context.Context, store Store, table string) ([]T, error) {
	obj, err := store.Latest(ctx, table)
	if err != nil {
		return nil, err
	}
	var rows []T
	if err := json.Unmarshal(obj.Body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", obj.Key, err)
	}
	return rows, nil
}

// PutRaw writes a raw snapshot for a table, keyed by the capture time.
func PutRaw[T any](ctx context.Context, store Store, table string, at time.Time, rows []T) (string, error) {
	body, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", table, err)
	}
	key := ObjectKey(table, at, ExtRaw)
	if err := store.Put(ctx, key, body, "application/json"); err != nil {
		return "", err
	}
	return key, nil
}

// FetchDataset reads the latest parquet dataset for a table.
func FetchDataset[T any](ctx context.Context, store Store, table string) ([]T, error) {
	obj, err := store.Latest(ctx, table)
	if err != nil {
		return nil, err
	}
	rows, err := parquet.Read[T](bytes.NewReader(obj.Body), int64(len(obj.Body)))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", obj.Key, err)
	}
	return rows, nil
}

// PutDataset writes a conformed dataset for a table as a parquet snapshot.
func PutDataset[T any](ctx context.Context, store Store, table string, at time.Time, rows []T) (string, error) {
	var buf bytes.Buffer
	w := parquet.NewGenericWriter[T](&buf)
	if _, err := w.Write(rows); err != nil {
		w.Close()
		return "", fmt.Errorf("encode %s: %w", table, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("encode %s: %w", table, err)
	}
	key := ObjectKey(table, at, ExtDataset)
	if err := store.Put(ctx, key, buf.Bytes(), "application/vnd.apache.parquet"); err != nil {
		return "", err
	}
	return key, nil
}
