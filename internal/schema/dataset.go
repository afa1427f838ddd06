package schema

// Dataset constructors convert typed rows into the positional form the
// warehouse writers consume. The value order in every row matches the
// returned Columns slice exactly; pointer fields pass through so NULLs
// survive the conversion.

// DatasetColumns returns the column order of a table's typed dataset. For
// the fact table this includes the synthetic identity first, mirroring the
// persisted columnar layout; the writer strips it again before inserting.
func DatasetColumns(t TableSpec) []string {
	cols := make([]string, 0, len(t.Columns)+1)
	if t.PrimaryKey != nil {
		cols = append(cols, t.PrimaryKey.Name)
	}
	for _, c := range t.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

func FactSalesOrderDataset(rows []FactSalesOrderRow) Dataset {
	t := FactSalesOrderTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.SalesRecordID,
			r.SalesOrderID,
			r.CreatedDate,
			r.CreatedTime,
			r.LastUpdatedDate,
			r.LastUpdatedTime,
			r.SalesStaffID,
			r.CounterpartyID,
			r.UnitsSold,
			r.UnitPrice,
			r.CurrencyID,
			r.DesignID,
			r.AgreedPaymentDate,
			r.AgreedDeliveryDate,
			r.AgreedDeliveryLocationID,
		}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}

func DimDesignDataset(rows []DimDesignRow) Dataset {
	t := DimDesignTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.DesignID, r.DesignName, r.FileLocation, r.FileName}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}

func DimCurrencyDataset(rows []DimCurrencyRow) Dataset {
	t := DimCurrencyTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{r.CurrencyID, r.CurrencyCode, r.CurrencyName}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}

func DimLocationDataset(rows []DimLocationRow) Dataset {
	t := DimLocationTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.LocationID,
			r.AddressLine1,
			r.AddressLine2,
			r.District,
			r.City,
			r.PostalCode,
			r.Country,
			r.Phone,
		}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}

func DimDateDataset(rows []DimDateRow) Dataset {
	t := DimDateTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.DateID,
			r.Year,
			r.Month,
			r.Day,
			r.DayOfWeek,
			r.DayName,
			r.MonthName,
			r.Quarter,
		}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}

func DimStaffDataset(rows []DimStaffRow) Dataset {
	t := DimStaffTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.StaffID,
			r.FirstName,
			r.LastName,
			r.DepartmentName,
			r.Location,
			r.EmailAddress,
		}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}

func DimCounterpartyDataset(rows []DimCounterpartyRow) Dataset {
	t := DimCounterpartyTable()
	out := make([][]any, len(rows))
	for i, r := range rows {
		out[i] = []any{
			r.CounterpartyID,
			r.CounterpartyLegalName,
			r.LegalAddressLine1,
			r.LegalAddressLine2,
			r.LegalDistrict,
			r.LegalCity,
			r.LegalPostalCode,
			r.LegalCountry,
			r.LegalPhone,
		}
	}
	return Dataset{Table: t, Columns: DatasetColumns(t), Rows: out}
}
