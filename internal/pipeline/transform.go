package pipeline

import (
	"context"
	"time"

	"warehouse-etl/internal/conform"
	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/snapshot"
)

// Transformer conforms the latest raw snapshots into typed datasets and
// writes them as parquet snapshots, one per warehouse table.
type Transformer struct {
	// Raw serves the ingestion stage's JSON snapshots; Processed receives
	// the conformed parquet datasets. They are usually distinct buckets.
	Raw       snapshot.Store
	Processed snapshot.Store

	// Now is a clock seam; nil means time.Now.
	Now func() time.Time

	Logger Logger
}

// Run conforms every warehouse table from the latest raw snapshots.
// The date dimension derives from the conformed fact dataset, so it is built
// strictly after the fact table; everything else only needs its own raw
// inputs.
func (t *Transformer) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { trackStage("transform", start, err) }()
	log := orNop(t.Logger)

	now := time.Now
	if t.Now != nil {
		now = t.Now
	}
	at := now().UTC()

	orders, err := snapshot.FetchRaw[schema.RawSalesOrder](ctx, t.Raw, "sales_order")
	if err != nil {
		return err
	}
	designs, err := snapshot.FetchRaw[schema.RawDesign](ctx, t.Raw, "design")
	if err != nil {
		return err
	}
	currencies, err := snapshot.FetchRaw[schema.RawCurrency](ctx, t.Raw, "currency")
	if err != nil {
		return err
	}
	addresses, err := snapshot.FetchRaw[schema.RawAddress](ctx, t.Raw, "address")
	if err != nil {
		return err
	}
	staff, err := snapshot.FetchRaw[schema.RawStaff](ctx, t.Raw, "staff")
	if err != nil {
		return err
	}
	departments, err := snapshot.FetchRaw[schema.RawDepartment](ctx, t.Raw, "department")
	if err != nil {
		return err
	}
	counterparties, err := snapshot.FetchRaw[schema.RawCounterparty](ctx, t.Raw, "counterparty")
	if err != nil {
		return err
	}

	facts, err := conform.FactSalesOrder(orders)
	if err != nil {
		return err
	}
	if err = put(ctx, t.Processed, schema.TableFactSalesOrder, at, facts, log); err != nil {
		return err
	}

	dates, err := conform.DimDate(facts)
	if err != nil {
		return err
	}
	if err = put(ctx, t.Processed, schema.TableDimDate, at, dates, log); err != nil {
		return err
	}

	dimDesigns, err := conform.DimDesign(designs)
	if err != nil {
		return err
	}
	if err = put(ctx, t.Processed, schema.TableDimDesign, at, dimDesigns, log); err != nil {
		return err
	}

	dimCurrencies, err := conform.DimCurrency(currencies)
	if err != nil {
		return err
	}
	if err = put(ctx, t.Processed, schema.TableDimCurrency, at, dimCurrencies, log); err != nil {
		return err
	}

	locations, err := conform.DimLocation(addresses)
	if err != nil {
		return err
	}
	if err = put(ctx, t.Processed, schema.TableDimLocation, at, locations, log); err != nil {
		return err
	}

	dimStaff, err := conform.DimStaff(staff, departments)
	if err != nil {
		return err
	}
	if err = put(ctx, t.Processed, schema.TableDimStaff, at, dimStaff, log); err != nil {
		return err
	}

	dimCounterparties, err := conform.DimCounterparty(counterparties, addresses)
	if err != nil {
		return err
	}
	return put(ctx, t.Processed, schema.TableDimCounterparty, at, dimCounterparties, log)
}

func put[T any](ctx context.Context, store snapshot.Store, table string, at time.Time, rows []T, log Logger) error {
	key, err := snapshot.PutDataset(ctx, store, table, at, rows)
	if err != nil {
		return err
	}
	trackRecords(table, len(rows))
	log.Printf("stage=transform table=%s rows=%d key=%s", table, len(rows), key)
	return nil
}
