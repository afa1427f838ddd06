package schema

import "encoding/json"

// Raw record types mirror the JSON snapshots the ingestion stage produces:
// one object per source row, column name -> scalar.
//
// Required fields are pointers so the conform layer can tell "absent" from
// "zero" and fail fast instead of propagating a missing key downstream.
// Numeric money fields stay json.Number to preserve decimal text exactly.

type RawSalesOrder struct {
	SalesOrderID             *int64       `json:"sales_order_id"`
	CreatedAt                *string      `json:"created_at"`
	LastUpdated              *string      `json:"last_updated"`
	DesignID                 *int64       `json:"design_id"`
	StaffID                  *int64       `json:"staff_id"`
	CounterpartyID           *int64       `json:"counterparty_id"`
	UnitsSold                *int64       `json:"units_sold"`
	UnitPrice                *json.Number `json:"unit_price"`
	CurrencyID               *int64       `json:"currency_id"`
	AgreedDeliveryDate       *string      `json:"agreed_delivery_date"`
	AgreedPaymentDate        *string      `json:"agreed_payment_date"`
	AgreedDeliveryLocationID *int64       `json:"agreed_delivery_location_id"`
}

type RawDesign struct {
	DesignID     *int64  `json:"design_id"`
	CreatedAt    *string `json:"created_at"`
	LastUpdated  *string `json:"last_updated"`
	DesignName   *string `json:"design_name"`
	FileLocation *string `json:"file_location"`
	FileName     *string `json:"file_name"`
}

type RawCurrency struct {
	CurrencyID   *int64  `json:"currency_id"`
	CurrencyCode *string `json:"currency_code"`
	CreatedAt    *string `json:"created_at"`
	LastUpdated  *string `json:"last_updated"`
}

type RawAddress struct {
	AddressID    *int64  `json:"address_id"`
	AddressLine1 *string `json:"address_line_1"`
	AddressLine2 *string `json:"address_line_2"` // nullable in source
	District     *string `json:"district"`       // nullable in source
	City         *string `json:"city"`
	PostalCode   *string `json:"postal_code"`
	Country      *string `json:"country"`
	Phone        *string `json:"phone"`
	CreatedAt    *string `json:"created_at"`
	LastUpdated  *string `json:"last_updated"`
}

type RawStaff struct {
	StaffID      *int64  `json:"staff_id"`
	FirstName    *string `json:"first_name"`
	LastName     *string `json:"last_name"`
	DepartmentID *int64  `json:"department_id"`
	EmailAddress *string `json:"email_address"`
	CreatedAt    *string `json:"created_at"`
	LastUpdated  *string `json:"last_updated"`
}

type RawDepartment struct {
	DepartmentID   *int64  `json:"department_id"`
	DepartmentName *string `json:"department_name"`
	Location       *string `json:"location"` // nullable in source
	Manager        *string `json:"manager"`  // dropped by conform
	CreatedAt      *string `json:"created_at"`
	LastUpdated    *string `json:"last_updated"`
}

type RawCounterparty struct {
	CounterpartyID        *int64  `json:"counterparty_id"`
	CounterpartyLegalName *string `json:"counterparty_legal_name"`
	LegalAddressID        *int64  `json:"legal_address_id"`
	CommercialContact     *string `json:"commercial_contact"`
	DeliveryContact       *string `json:"delivery_contact"`
	CreatedAt             *string `json:"created_at"`
	LastUpdated           *string `json:"last_updated"`
}
