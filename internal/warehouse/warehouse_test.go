package warehouse

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"warehouse-etl/internal/schema"
)

type fakeRepo struct {
	dimCalls  []string
	factCalls []string
	columns   []string
	rows      [][]any
	err       error
}

func (f *fakeRepo) Close() {}

func (f *fakeRepo) EnsureTables(ctx context.Context, tables []schema.TableSpec) error {
	return nil
}

func (f *fakeRepo) InsertDimensionRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	f.dimCalls = append(f.dimCalls, t.Name)
	f.columns = columns
	f.rows = rows
	return int64(len(rows)), f.err
}

func (f *fakeRepo) AppendFactRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	f.factCalls = append(f.factCalls, t.Name)
	f.columns = columns
	f.rows = rows
	return int64(len(rows)), f.err
}

func TestApply_DispatchesByKind(t *testing.T) {
	repo := &fakeRepo{}
	ctx := context.Background()

	dim := schema.DimDesignDataset([]schema.DimDesignRow{
		{DesignID: 8, DesignName: "Wooden", FileLocation: "/usr", FileName: "w.json"},
	})
	if _, err := Apply(ctx, repo, dim); err != nil {
		t.Fatalf("Apply dim: %v", err)
	}
	if len(repo.dimCalls) != 1 || repo.dimCalls[0] != schema.TableDimDesign {
		t.Fatalf("dim calls = %v", repo.dimCalls)
	}

	fact := schema.FactSalesOrderDataset([]schema.FactSalesOrderRow{{SalesRecordID: 0, SalesOrderID: 7}})
	if _, err := Apply(ctx, repo, fact); err != nil {
		t.Fatalf("Apply fact: %v", err)
	}
	if len(repo.factCalls) != 1 || repo.factCalls[0] != schema.TableFactSalesOrder {
		t.Fatalf("fact calls = %v", repo.factCalls)
	}
}

func TestApply_StripsSyntheticIdentity(t *testing.T) {
	repo := &fakeRepo{}
	fact := schema.FactSalesOrderDataset([]schema.FactSalesOrderRow{{
		SalesRecordID: 3,
		SalesOrderID:  7,
		CreatedDate:   "2022-11-03",
	}})

	if _, err := Apply(context.Background(), repo, fact); err != nil {
		t.Fatalf("Apply: %v", err)
	}
	for _, c := range repo.columns {
		if c == "sales_record_id" {
			t.Fatalf("synthetic identity column reached the backend: %v", repo.columns)
		}
	}
	if repo.columns[0] != "sales_order_id" {
		t.Fatalf("columns = %v", repo.columns)
	}
	if len(repo.rows) != 1 || len(repo.rows[0]) != len(repo.columns) {
		t.Fatalf("rows not aligned with columns: %d values, %d columns", len(repo.rows[0]), len(repo.columns))
	}
	if repo.rows[0][0] != int64(7) {
		t.Fatalf("first value = %v, want sales_order_id 7", repo.rows[0][0])
	}

	// The caller's dataset is left intact.
	if fact.Columns[0] != "sales_record_id" || fact.Rows[0][0] != int64(3) {
		t.Fatalf("Apply mutated the input dataset: %v %v", fact.Columns, fact.Rows[0])
	}
}

func TestApply_WrapsBackendErrors(t *testing.T) {
	cause := errors.New("connection refused")
	repo := &fakeRepo{err: cause}

	dim := schema.DimCurrencyDataset([]schema.DimCurrencyRow{{CurrencyID: 1, CurrencyCode: "GBP", CurrencyName: "British Pound Sterling"}})
	_, err := Apply(context.Background(), repo, dim)
	if err == nil {
		t.Fatal("expected error")
	}
	var we *WriteError
	if !errors.As(err, &we) {
		t.Fatalf("error type = %T, want *WriteError", err)
	}
	if we.Table != schema.TableDimCurrency {
		t.Fatalf("WriteError.Table = %q", we.Table)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("cause not preserved: %v", err)
	}
}

func TestStripPrimaryKey_NoKeyColumn(t *testing.T) {
	ds := schema.DimDateDataset([]schema.DimDateRow{{DateID: "2022-11-03", Year: 2022}})
	columns, rows := stripPrimaryKey(ds)
	if !reflect.DeepEqual(columns, ds.Columns) {
		t.Fatalf("columns changed for keyless dataset: %v", columns)
	}
	if !reflect.DeepEqual(rows, ds.Rows) {
		t.Fatalf("rows changed for keyless dataset")
	}
}

func TestNew_UnknownKind(t *testing.T) {
	if _, err := New(context.Background(), Config{Kind: "oracle"}); err == nil {
		t.Fatal("expected error for unregistered kind")
	}
	if _, err := New(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty kind")
	}
}
