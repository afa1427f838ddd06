package pipeline

import (
	"context"
	"time"

	"warehouse-etl/internal/schema"
	"warehouse-etl/internal/snapshot"
	"warehouse-etl/internal/warehouse"
)

// Loader fetches the latest conformed datasets and applies them to the
// warehouse: dimensions first, the fact table last, so dimension keys exist
// before fact rows reference them.
type Loader struct {
	Store snapshot.Store
	Repo  warehouse.Repository

	Logger Logger
}

// Run loads all seven warehouse tables from their latest datasets.
func (l *Loader) Run(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { trackStage("load", start, err) }()
	log := orNop(l.Logger)

	if err = l.Repo.EnsureTables(ctx, schema.Tables()); err != nil {
		return err
	}

	if err = load[schema.DimDesignRow](ctx, l, schema.TableDimDesign, schema.DimDesignDataset, log); err != nil {
		return err
	}
	if err = load[schema.DimCurrencyRow](ctx, l, schema.TableDimCurrency, schema.DimCurrencyDataset, log); err != nil {
		return err
	}
	if err = load[schema.DimLocationRow](ctx, l, schema.TableDimLocation, schema.DimLocationDataset, log); err != nil {
		return err
	}
	if err = load[schema.DimDateRow](ctx, l, schema.TableDimDate, schema.DimDateDataset, log); err != nil {
		return err
	}
	if err = load[schema.DimStaffRow](ctx, l, schema.TableDimStaff, schema.DimStaffDataset, log); err != nil {
		return err
	}
	if err = load[schema.DimCounterpartyRow](ctx, l, schema.TableDimCounterparty, schema.DimCounterpartyDataset, log); err != nil {
		return err
	}
	return load[schema.FactSalesOrderRow](ctx, l, schema.TableFactSalesOrder, schema.FactSalesOrderDataset, log)
}

func load[T any](ctx context.Context, l *Loader, table string, toDataset func([]T) schema.Dataset, log Logger) error {
	rows, err := snapshot.FetchDataset[T](ctx, l.Store, table)
	if err != nil {
		return err
	}

	n, err := warehouse.Apply(ctx, l.Repo, toDataset(rows))
	if err != nil {
		return err
	}
	trackRecords(table, int(n))
	log.Printf("stage=load table=%s fetched=%d inserted=%d", table, len(rows), n)
	return nil
}
