// Package schema defines the star-schema shape shared by the conform,
// snapshot, and warehouse layers: raw source records, conformed row types,
// and the warehouse table specs.
//
// The types live here, at the bottom of the import graph, so warehouse
// backends can consume table specs without importing the conform layer.
package schema

// Source table names in the transactional database, in extraction order.
var SourceTables = []string{
	"sales_order",
	"design",
	"address",
	"counterparty",
	"staff",
	"currency",
	"department",
}

// Warehouse table names.
const (
	TableFactSalesOrder  = "fact_sales_order"
	TableDimDesign       = "dim_design"
	TableDimCurrency     = "dim_currency"
	TableDimLocation     = "dim_location"
	TableDimDate         = "dim_date"
	TableDimStaff        = "dim_staff"
	TableDimCounterparty = "dim_counterparty"
)

// Load kinds. Dimensions get insert-or-ignore semantics; the fact table gets
// staged append-if-new-tuple semantics.
const (
	KindDimension = "dimension"
	KindFact      = "fact"
)

// TableSpec describes one warehouse table to the writer backends.
type TableSpec struct {
	Name string
	Kind string // KindDimension | KindFact

	// PrimaryKey is a warehouse-assigned synthetic key (e.g. a serial column).
	// It is never part of the dataset columns a backend inserts.
	PrimaryKey *PrimaryKeySpec

	Columns []ColumnSpec

	// KeyColumns is the conflict target for dimension inserts. Empty for the
	// fact table, where the anti-duplicate check spans all business columns.
	KeyColumns []string
}

// PrimaryKeySpec names a backend-generated identity column.
type PrimaryKeySpec struct {
	Name string
	Type string // e.g. "serial"
}

// ColumnSpec describes one column for DDL generation.
type ColumnSpec struct {
	Name     string
	Type     string
	Nullable bool
}

// Dataset is one typed table's rows in positional form, ready for a writer.
// Rows are aligned with Columns; nil values map to SQL NULL.
type Dataset struct {
	Table   TableSpec
	Columns []string
	Rows    [][]any
}

// Tables returns the warehouse table specs in load order: every dimension
// first, the fact table last. Fact rows reference dimension keys, so this
// ordering keeps foreign keys satisfiable when they are enforced.
func Tables() []TableSpec {
	return []TableSpec{
		DimDesignTable(),
		DimCurrencyTable(),
		DimLocationTable(),
		DimDateTable(),
		DimStaffTable(),
		DimCounterpartyTable(),
		FactSalesOrderTable(),
	}
}

func DimDesignTable() TableSpec {
	return TableSpec{
		Name: TableDimDesign,
		Kind: KindDimension,
		Columns: []ColumnSpec{
			{Name: "design_id", Type: "INT"},
			{Name: "design_name", Type: "VARCHAR"},
			{Name: "file_location", Type: "VARCHAR"},
			{Name: "file_name", Type: "VARCHAR"},
		},
		KeyColumns: []string{"design_id"},
	}
}

func DimCurrencyTable() TableSpec {
	return TableSpec{
		Name: TableDimCurrency,
		Kind: KindDimension,
		Columns: []ColumnSpec{
			{Name: "currency_id", Type: "INT"},
			{Name: "currency_code", Type: "VARCHAR(3)"},
			{Name: "currency_name", Type: "VARCHAR"},
		},
		KeyColumns: []string{"currency_id"},
	}
}

func DimLocationTable() TableSpec {
	return TableSpec{
		Name: TableDimLocation,
		Kind: KindDimension,
		Columns: []ColumnSpec{
			{Name: "location_id", Type: "INT"},
			{Name: "address_line_1", Type: "VARCHAR"},
			{Name: "address_line_2", Type: "VARCHAR", Nullable: true},
			{Name: "district", Type: "VARCHAR", Nullable: true},
			{Name: "city", Type: "VARCHAR"},
			{Name: "postal_code", Type: "VARCHAR"},
			{Name: "country", Type: "VARCHAR"},
			{Name: "phone", Type: "VARCHAR"},
		},
		KeyColumns: []string{"location_id"},
	}
}

func DimDateTable() TableSpec {
	return TableSpec{
		Name: TableDimDate,
		Kind: KindDimension,
		Columns: []ColumnSpec{
			{Name: "date_id", Type: "DATE"},
			{Name: "year", Type: "INT"},
			{Name: "month", Type: "INT"},
			{Name: "day", Type: "INT"},
			{Name: "day_of_week", Type: "INT"},
			{Name: "day_name", Type: "VARCHAR"},
			{Name: "month_name", Type: "VARCHAR"},
			{Name: "quarter", Type: "INT"},
		},
		KeyColumns: []string{"date_id"},
	}
}

func DimStaffTable() TableSpec {
	return TableSpec{
		Name: TableDimStaff,
		Kind: KindDimension,
		Columns: []ColumnSpec{
			{Name: "staff_id", Type: "INT"},
			{Name: "first_name", Type: "VARCHAR"},
			{Name: "last_name", Type: "VARCHAR"},
			// Nullable: a staff row survives the left join even when its
			// department is missing.
			{Name: "department_name", Type: "VARCHAR", Nullable: true},
			{Name: "location", Type: "VARCHAR", Nullable: true},
			{Name: "email_address", Type: "VARCHAR"},
		},
		KeyColumns: []string{"staff_id"},
	}
}

func DimCounterpartyTable() TableSpec {
	return TableSpec{
		Name: TableDimCounterparty,
		Kind: KindDimension,
		Columns: []ColumnSpec{
			{Name: "counterparty_id", Type: "INT"},
			{Name: "counterparty_legal_name", Type: "VARCHAR"},
			{Name: "counterparty_legal_address_line_1", Type: "VARCHAR", Nullable: true},
			{Name: "counterparty_legal_address_line_2", Type: "VARCHAR", Nullable: true},
			{Name: "counterparty_legal_district", Type: "VARCHAR", Nullable: true},
			{Name: "counterparty_legal_city", Type: "VARCHAR", Nullable: true},
			{Name: "counterparty_legal_postal_code", Type: "VARCHAR", Nullable: true},
			{Name: "counterparty_legal_country", Type: "VARCHAR", Nullable: true},
			{Name: "counterparty_legal_phone", Type: "VARCHAR", Nullable: true},
		},
		KeyColumns: []string{"counterparty_id"},
	}
}

func FactSalesOrderTable() TableSpec {
	return TableSpec{
		Name:       TableFactSalesOrder,
		Kind:       KindFact,
		PrimaryKey: &PrimaryKeySpec{Name: "sales_record_id", Type: "serial"},
		Columns: []ColumnSpec{
			{Name: "sales_order_id", Type: "INT"},
			{Name: "created_date", Type: "DATE"},
			{Name: "created_time", Type: "TIME"},
			{Name: "last_updated_date", Type: "DATE"},
			{Name: "last_updated_time", Type: "TIME"},
			{Name: "sales_staff_id", Type: "INT"},
			{Name: "counterparty_id", Type: "INT"},
			{Name: "units_sold", Type: "INT"},
			{Name: "unit_price", Type: "NUMERIC(10, 2)"},
			{Name: "currency_id", Type: "INT"},
			{Name: "design_id", Type: "INT"},
			{Name: "agreed_payment_date", Type: "DATE"},
			{Name: "agreed_delivery_date", Type: "DATE"},
			{Name: "agreed_delivery_location_id", Type: "INT"},
		},
	}
}
