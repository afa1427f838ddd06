package conform

import (
	"time"

	"warehouse-etl/internal/schema"
)

// DimDesign drops the audit timestamps from raw design records and passes
// every other column through unchanged.
func DimDesign(designs []schema.RawDesign) ([]schema.DimDesignRow, error) {
	const table = "design"

	rows := make([]schema.DimDesignRow, 0, len(designs))
	for _, d := range designs {
		id, err := reqInt(table, "design_id", d.DesignID)
		if err != nil {
			return nil, err
		}
		name, err := reqStr(table, "design_name", d.DesignName)
		if err != nil {
			return nil, err
		}
		loc, err := reqStr(table, "file_location", d.FileLocation)
		if err != nil {
			return nil, err
		}
		file, err := reqStr(table, "file_name", d.FileName)
		if err != nil {
			return nil, err
		}
		rows = append(rows, schema.DimDesignRow{
			DesignID:     id,
			DesignName:   name,
			FileLocation: loc,
			FileName:     file,
		})
	}
	return rows, nil
}

// DimCurrency drops the audit timestamps and resolves each ISO 4217 code to
// its canonical English name. An unrecognized code fails the whole table:
// currency names feed reports, so a silently blank name is worse than a
// failed run.
func DimCurrency(currencies []schema.RawCurrency) ([]schema.DimCurrencyRow, error) {
	const table = "currency"

	rows := make([]schema.DimCurrencyRow, 0, len(currencies))
	for _, c := range currencies {
		id, err := reqInt(table, "currency_id", c.CurrencyID)
		if err != nil {
			return nil, err
		}
		code, err := reqStr(table, "currency_code", c.CurrencyCode)
		if err != nil {
			return nil, err
		}
		name, err := CurrencyName(code)
		if err != nil {
			return nil, &Error{Table: table, Field: "currency_code", Err: err}
		}
		rows = append(rows, schema.DimCurrencyRow{
			CurrencyID:   id,
			CurrencyCode: code,
			CurrencyName: name,
		})
	}
	return rows, nil
}

// DimLocation conforms raw address records, renaming address_id to
// location_id and dropping the audit timestamps. address_line_2 and district
// are nullable in the source and stay nullable here.
func DimLocation(addresses []schema.RawAddress) ([]schema.DimLocationRow, error) {
	const table = "address"

	rows := make([]schema.DimLocationRow, 0, len(addresses))
	for _, a := range addresses {
		id, err := reqInt(table, "address_id", a.AddressID)
		if err != nil {
			return nil, err
		}
		line1, err := reqStr(table, "address_line_1", a.AddressLine1)
		if err != nil {
			return nil, err
		}
		city, err := reqStr(table, "city", a.City)
		if err != nil {
			return nil, err
		}
		postal, err := reqStr(table, "postal_code", a.PostalCode)
		if err != nil {
			return nil, err
		}
		country, err := reqStr(table, "country", a.Country)
		if err != nil {
			return nil, err
		}
		phone, err := reqStr(table, "phone", a.Phone)
		if err != nil {
			return nil, err
		}
		rows = append(rows, schema.DimLocationRow{
			LocationID:   id,
			AddressLine1: line1,
			AddressLine2: a.AddressLine2,
			District:     a.District,
			City:         city,
			PostalCode:   postal,
			Country:      country,
			Phone:        phone,
		})
	}
	return rows, nil
}

// DimDate derives the date dimension from an already-conformed fact dataset:
// every distinct date across the four date columns, in first-occurrence
// order, expanded into calendar attributes. Dates were validated when the
// fact rows were conformed, so a parse failure here means a fact row was
// built by hand with a bad value.
func DimDate(facts []schema.FactSalesOrderRow) ([]schema.DimDateRow, error) {
	const table = "fact_sales_order"

	seen := make(map[string]struct{})
	var rows []schema.DimDateRow
	add := func(field, d string) error {
		if _, ok := seen[d]; ok {
			return nil
		}
		seen[d] = struct{}{}
		t, err := time.Parse(dateLayout, d)
		if err != nil {
			return errf(table, field, "bad date %q: %v", d, err)
		}
		rows = append(rows, schema.DimDateRow{
			DateID:    d,
			Year:      int32(t.Year()),
			Month:     int32(t.Month()),
			Day:       int32(t.Day()),
			DayOfWeek: int32((int(t.Weekday()) + 6) % 7), // ISO: 0=Monday
			DayName:   t.Weekday().String(),
			MonthName: t.Month().String(),
			Quarter:   (int32(t.Month())-1)/3 + 1,
		})
		return nil
	}

	for _, f := range facts {
		if err := add("created_date", f.CreatedDate); err != nil {
			return nil, err
		}
		if err := add("last_updated_date", f.LastUpdatedDate); err != nil {
			return nil, err
		}
		if err := add("agreed_payment_date", f.AgreedPaymentDate); err != nil {
			return nil, err
		}
		if err := add("agreed_delivery_date", f.AgreedDeliveryDate); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// DimStaff left-joins raw staff records to departments on department_id.
// A staff row whose department is missing keeps null department fields
// rather than being dropped. The join key and the department's manager
// column do not survive into the dimension.
func DimStaff(staff []schema.RawStaff, departments []schema.RawDepartment) ([]schema.DimStaffRow, error) {
	const table = "staff"

	byID := make(map[int64]schema.RawDepartment, len(departments))
	for _, d := range departments {
		id, err := reqInt("department", "department_id", d.DepartmentID)
		if err != nil {
			return nil, err
		}
		byID[id] = d
	}

	rows := make([]schema.DimStaffRow, 0, len(staff))
	for _, s := range staff {
		id, err := reqInt(table, "staff_id", s.StaffID)
		if err != nil {
			return nil, err
		}
		first, err := reqStr(table, "first_name", s.FirstName)
		if err != nil {
			return nil, err
		}
		last, err := reqStr(table, "last_name", s.LastName)
		if err != nil {
			return nil, err
		}
		deptID, err := reqInt(table, "department_id", s.DepartmentID)
		if err != nil {
			return nil, err
		}
		email, err := reqStr(table, "email_address", s.EmailAddress)
		if err != nil {
			return nil, err
		}

		row := schema.DimStaffRow{
			StaffID:      id,
			FirstName:    first,
			LastName:     last,
			EmailAddress: email,
		}
		if d, ok := byID[deptID]; ok {
			row.DepartmentName = d.DepartmentName
			row.Location = d.Location
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DimCounterparty left-joins raw counterparty records to addresses on the
// counterparty's legal_address_id and projects the address columns under a
// counterparty_legal_ prefix. Contacts and audit timestamps are dropped.
func DimCounterparty(counterparties []schema.RawCounterparty, addresses []schema.RawAddress) ([]schema.DimCounterpartyRow, error) {
	const table = "counterparty"

	byID := make(map[int64]schema.RawAddress, len(addresses))
	for _, a := range addresses {
		id, err := reqInt("address", "address_id", a.AddressID)
		if err != nil {
			return nil, err
		}
		byID[id] = a
	}

	rows := make([]schema.DimCounterpartyRow, 0, len(counterparties))
	for _, c := range counterparties {
		id, err := reqInt(table, "counterparty_id", c.CounterpartyID)
		if err != nil {
			return nil, err
		}
		name, err := reqStr(table, "counterparty_legal_name", c.CounterpartyLegalName)
		if err != nil {
			return nil, err
		}
		addrID, err := reqInt(table, "legal_address_id", c.LegalAddressID)
		if err != nil {
			return nil, err
		}

		row := schema.DimCounterpartyRow{
			CounterpartyID:        id,
			CounterpartyLegalName: name,
		}
		if a, ok := byID[addrID]; ok {
			row.LegalAddressLine1 = a.AddressLine1
			row.LegalAddressLine2 = a.AddressLine2
			row.LegalDistrict = a.District
			row.LegalCity = a.City
			row.LegalPostalCode = a.PostalCode
			row.LegalCountry = a.Country
			row.LegalPhone = a.Phone
		}
		rows = append(rows, row)
	}
	return rows, nil
}
