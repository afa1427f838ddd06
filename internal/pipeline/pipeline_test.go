package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"warehouse-etl/internal/conform"
	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/snapshot"
	"warehouse-etl/internal/warehouse"
)

// memStore is an in-memory snapshot.Store.
type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Latest(ctx context.Context, table string) (snapshot.Object, error) {
	var latest string
	for k := range m.objects {
		if strings.HasPrefix(k, table+"/") && k > latest {
			latest = k
		}
	}
	if latest == "" {
		return snapshot.Object{}, snapshot.ErrNotFound
	}
	return snapshot.Object{Key: latest, Body: m.objects[latest]}, nil
}

func (m *memStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[key] = body
	return nil
}

func (m *memStore) tables(t *testing.T) []string {
	t.Helper()
	var out []string
	for k := range m.objects {
		out = append(out, strings.SplitN(k, "/", 2)[0])
	}
	sort.Strings(out)
	return out
}

func i64(v int64) *int64   { return &v }
func str(v string) *string { return &v }

func numPtr(v string) *json.Number {
	n := json.Number(v)
	return &n
}

func seedRaw(t *testing.T, raw *memStore) {
	t.Helper()
	ctx := context.Background()
	at := time.Date(2022, 11, 3, 9, 0, 0, 0, time.UTC)

	price := numPtr("3.94")
	put := func(table string, err error) {
		if err != nil {
			t.Fatalf("seed %s: %v", table, err)
		}
	}

	_, err := snapshot.PutRaw(ctx, raw, "sales_order", at, []schema.RawSalesOrder{{
		SalesOrderID: i64(7), CreatedAt: str("2022-11-03T14:20:49.962"),
		LastUpdated: str("2022-11-03T14:20:49.962"), DesignID: i64(8), StaffID: i64(1),
		CounterpartyID: i64(1), UnitsSold: i64(42972), UnitPrice: price, CurrencyID: i64(1),
		AgreedDeliveryDate: str("2022-11-10"), AgreedPaymentDate: str("2022-11-08"),
		AgreedDeliveryLocationID: i64(30),
	}})
	put("sales_order", err)

	_, err = snapshot.PutRaw(ctx, raw, "design", at, []schema.RawDesign{{
		DesignID: i64(8), DesignName: str("Wooden"), FileLocation: str("/usr"),
		FileName: str("wooden.json"), CreatedAt: str("x"), LastUpdated: str("x"),
	}})
	put("design", err)

	_, err = snapshot.PutRaw(ctx, raw, "currency", at, []schema.RawCurrency{{
		CurrencyID: i64(1), CurrencyCode: str("GBP"), CreatedAt: str("x"), LastUpdated: str("x"),
	}})
	put("currency", err)

	_, err = snapshot.PutRaw(ctx, raw, "address", at, []schema.RawAddress{{
		AddressID: i64(30), AddressLine1: str("6826 Herzog Via"), City: str("New Patienceburgh"),
		PostalCode: str("28441"), Country: str("Turkey"), Phone: str("1803 637401"),
	}})
	put("address", err)

	_, err = snapshot.PutRaw(ctx, raw, "staff", at, []schema.RawStaff{{
		StaffID: i64(1), FirstName: str("A"), LastName: str("B"),
		DepartmentID: i64(10), EmailAddress: str("a@x.com"),
	}})
	put("staff", err)

	_, err = snapshot.PutRaw(ctx, raw, "department", at, []schema.RawDepartment{{
		DepartmentID: i64(10), DepartmentName: str("Sales"), Location: str("NY"), Manager: str("Z"),
	}})
	put("department", err)

	_, err = snapshot.PutRaw(ctx, raw, "counterparty", at, []schema.RawCounterparty{{
		CounterpartyID: i64(1), CounterpartyLegalName: str("Fahey and Sons"), LegalAddressID: i64(30),
	}})
	put("counterparty", err)
}

func TestTransformerRun_WritesAllSevenDatasets(t *testing.T) {
	raw := &memStore{}
	processed := &memStore{}
	seedRaw(t, raw)

	tr := &Transformer{
		Raw:       raw,
		Processed: processed,
		Now:       func() time.Time { return time.Date(2022, 11, 3, 10, 0, 0, 0, time.UTC) },
	}
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []string{
		"dim_counterparty", "dim_currency", "dim_date", "dim_design",
		"dim_location", "dim_staff", "fact_sales_order",
	}
	got := processed.tables(t)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("datasets = %v, want %v", got, want)
	}

	ctx := context.Background()
	facts, err := snapshot.FetchDataset[schema.FactSalesOrderRow](ctx, processed, schema.TableFactSalesOrder)
	if err != nil {
		t.Fatalf("fetch facts: %v", err)
	}
	if len(facts) != 1 || facts[0].CreatedTime != "14:20:49.962" || facts[0].SalesStaffID != 1 {
		t.Fatalf("facts = %+v", facts)
	}

	staff, err := snapshot.FetchDataset[schema.DimStaffRow](ctx, processed, schema.TableDimStaff)
	if err != nil {
		t.Fatalf("fetch staff: %v", err)
	}
	if staff[0].DepartmentName == nil || *staff[0].DepartmentName != "Sales" {
		t.Fatalf("staff join lost department: %+v", staff[0])
	}

	dates, err := snapshot.FetchDataset[schema.DimDateRow](ctx, processed, schema.TableDimDate)
	if err != nil {
		t.Fatalf("fetch dates: %v", err)
	}
	// created/last_updated share one date; payment and delivery add two more.
	if len(dates) != 3 {
		t.Fatalf("dates = %d, want 3", len(dates))
	}
}

func TestTransformerRun_MissingSnapshotPropagates(t *testing.T) {
	tr := &Transformer{Raw: &memStore{}, Processed: &memStore{}}
	err := tr.Run(context.Background())
	if !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestTransformerRun_BadDataStopsBeforeAnyWrite(t *testing.T) {
	raw := &memStore{}
	seedRaw(t, raw)

	// Corrupt the sales_order snapshot with a malformed timestamp. The fact
	// table conforms first, so nothing should reach the processed store.
	at := time.Date(2022, 11, 4, 9, 0, 0, 0, time.UTC)
	_, err := snapshot.PutRaw(context.Background(), raw, "sales_order", at, []schema.RawSalesOrder{{
		SalesOrderID: i64(9), CreatedAt: str("not-a-timestamp"),
	}})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	processed := &memStore{}
	tr := &Transformer{Raw: raw, Processed: processed}

	runErr := tr.Run(context.Background())
	var ce *conform.Error
	if !errors.As(runErr, &ce) {
		t.Fatalf("err = %v, want conform error", runErr)
	}
	if len(processed.objects) != 0 {
		t.Fatalf("partial datasets written: %v", processed.tables(t))
	}
}

// orderedRepo records the order tables are applied in.
type orderedRepo struct {
	ensured bool
	applied []string
	failOn  string
}

func (r *orderedRepo) Close() {}

func (r *orderedRepo) EnsureTables(ctx context.Context, tables []schema.TableSpec) error {
	r.ensured = true
	return nil
}

func (r *orderedRepo) InsertDimensionRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	return r.record(t.Name, len(rows))
}

func (r *orderedRepo) AppendFactRows(ctx context.Context, t schema.TableSpec, columns []string, rows [][]any) (int64, error) {
	return r.record(t.Name, len(rows))
}

func (r *orderedRepo) record(table string, n int) (int64, error) {
	if table == r.failOn {
		return 0, errors.New("forced failure")
	}
	r.applied = append(r.applied, table)
	return int64(n), nil
}

func transformed(t *testing.T) *memStore {
	t.Helper()
	raw := &memStore{}
	processed := &memStore{}
	seedRaw(t, raw)
	tr := &Transformer{Raw: raw, Processed: processed}
	if err := tr.Run(context.Background()); err != nil {
		t.Fatalf("transform: %v", err)
	}
	return processed
}

func TestLoaderRun_DimensionsBeforeFact(t *testing.T) {
	repo := &orderedRepo{}
	l := &Loader{Store: transformed(t), Repo: repo}

	if err := l.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.ensured {
		t.Fatal("EnsureTables never called")
	}
	if len(repo.applied) != 7 {
		t.Fatalf("applied %d tables: %v", len(repo.applied), repo.applied)
	}
	if repo.applied[len(repo.applied)-1] != schema.TableFactSalesOrder {
		t.Fatalf("fact table not last: %v", repo.applied)
	}
}

func TestLoaderRun_WriteErrorStopsRun(t *testing.T) {
	repo := &orderedRepo{failOn: schema.TableDimCurrency}
	l := &Loader{Store: transformed(t), Repo: repo}

	err := l.Run(context.Background())
	var we *warehouse.WriteError
	if !errors.As(err, &we) {
		t.Fatalf("err = %v, want *WriteError", err)
	}
	if we.Table != schema.TableDimCurrency {
		t.Fatalf("failed table = %q", we.Table)
	}
	for _, applied := range repo.applied {
		if applied == schema.TableFactSalesOrder {
			t.Fatal("fact table applied after a dimension failure")
		}
	}
}

func TestLoaderRun_MissingDatasetPropagates(t *testing.T) {
	l := &Loader{Store: &memStore{}, Repo: &orderedRepo{}}
	if err := l.Run(context.Background()); !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

type fakeExtractor struct {
	tables []string
	err    error
}

func (f *fakeExtractor) Run(ctx context.Context, tables []string) error {
	f.tables = tables
	return f.err
}

func TestExtract_PassesTablesThrough(t *testing.T) {
	e := &fakeExtractor{}
	if err := Extract(context.Background(), e, schema.SourceTables); err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(e.tables) != len(schema.SourceTables) {
		t.Fatalf("tables = %v", e.tables)
	}

	e.err = errors.New("connection reset")
	if err := Extract(context.Background(), e, schema.SourceTables); err == nil {
		t.Fatal("expected error")
	}
}
