package schema

// Conformed row types. One struct per warehouse table; field order matches
// the table's column order, and the parquet tags name the columns in the
// persisted columnar datasets.
//
// Calendar dates are carried as "2006-01-02" strings and times of day as
// "15:04:05[.fraction]" strings. The conform layer validates both before a
// row is ever constructed; the warehouse coerces them into DATE/TIME columns.
// unit_price stays decimal text so NUMERIC values never round-trip through
// float64.

type FactSalesOrderRow struct {
	SalesRecordID            int64  `parquet:"sales_record_id"`
	SalesOrderID             int64  `parquet:"sales_order_id"`
	CreatedDate              string `parquet:"created_date"`
	CreatedTime              string `parquet:"created_time"`
	LastUpdatedDate          string `parquet:"last_updated_date"`
	LastUpdatedTime          string `parquet:"last_updated_time"`
	SalesStaffID             int64  `parquet:"sales_staff_id"`
	CounterpartyID           int64  `parquet:"counterparty_id"`
	UnitsSold                int64  `parquet:"units_sold"`
	UnitPrice                string `parquet:"unit_price"`
	CurrencyID               int64  `parquet:"currency_id"`
	DesignID                 int64  `parquet:"design_id"`
	AgreedPaymentDate        string `parquet:"agreed_payment_date"`
	AgreedDeliveryDate       string `parquet:"agreed_delivery_date"`
	AgreedDeliveryLocationID int64  `parquet:"agreed_delivery_location_id"`
}

type DimDesignRow struct {
	DesignID     int64  `parquet:"design_id"`
	DesignName   string `parquet:"design_name"`
	FileLocation string `parquet:"file_location"`
	FileName     string `parquet:"file_name"`
}

type DimCurrencyRow struct {
	CurrencyID   int64  `parquet:"currency_id"`
	CurrencyCode string `parquet:"currency_code"`
	CurrencyName string `parquet:"currency_name"`
}

type DimLocationRow struct {
	LocationID   int64   `parquet:"location_id"`
	AddressLine1 string  `parquet:"address_line_1"`
	AddressLine2 *string `parquet:"address_line_2,optional"`
	District     *string `parquet:"district,optional"`
	City         string  `parquet:"city"`
	PostalCode   string  `parquet:"postal_code"`
	Country      string  `parquet:"country"`
	Phone        string  `parquet:"phone"`
}

type DimDateRow struct {
	DateID    string `parquet:"date_id"`
	Year      int32  `parquet:"year"`
	Month     int32  `parquet:"month"`
	Day       int32  `parquet:"day"`
	DayOfWeek int32  `parquet:"day_of_week"`
	DayName   string `parquet:"day_name"`
	MonthName string `parquet:"month_name"`
	Quarter   int32  `parquet:"quarter"`
}

type DimStaffRow struct {
	StaffID        int64   `parquet:"staff_id"`
	FirstName      string  `parquet:"first_name"`
	LastName       string  `parquet:"last_name"`
	DepartmentName *string `parquet:"department_name,optional"`
	Location       *string `parquet:"location,optional"`
	EmailAddress   string  `parquet:"email_address"`
}

type DimCounterpartyRow struct {
	CounterpartyID        int64   `parquet:"counterparty_id"`
	CounterpartyLegalName string  `parquet:"counterparty_legal_name"`
	LegalAddressLine1     *string `parquet:"counterparty_legal_address_line_1,optional"`
	LegalAddressLine2     *string `parquet:"counterparty_legal_address_line_2,optional"`
	LegalDistrict         *string `parquet:"counterparty_legal_district,optional"`
	LegalCity             *string `parquet:"counterparty_legal_city,optional"`
	LegalPostalCode       *string `parquet:"counterparty_legal_postal_code,optional"`
	LegalCountry          *string `parquet:"counterparty_legal_country,optional"`
	LegalPhone            *string `parquet:"counterparty_legal_phone,optional"`
}
