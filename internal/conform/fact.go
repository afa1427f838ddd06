package conform

import "warehouse-etl/internal/schema"

// FactSalesOrder conforms raw sales_order records into fact rows. The two
// combined timestamps are split into date and time-of-day columns, the staff
// reference is renamed to sales_staff_id, and each row gets an ordinal
// sales_record_id. The ordinal is local to this run only; the warehouse
// assigns the durable identity when the row is inserted.
func FactSalesOrder(orders []schema.RawSalesOrder) ([]schema.FactSalesOrderRow, error) {
	const table = "sales_order"

	rows := make([]schema.FactSalesOrderRow, 0, len(orders))
	for i, o := range orders {
		orderID, err := reqInt(table, "sales_order_id", o.SalesOrderID)
		if err != nil {
			return nil, err
		}
		createdAt, err := reqStr(table, "created_at", o.CreatedAt)
		if err != nil {
			return nil, err
		}
		createdDate, createdTime, err := splitTimestamp(table, "created_at", createdAt)
		if err != nil {
			return nil, err
		}
		lastUpdated, err := reqStr(table, "last_updated", o.LastUpdated)
		if err != nil {
			return nil, err
		}
		updatedDate, updatedTime, err := splitTimestamp(table, "last_updated", lastUpdated)
		if err != nil {
			return nil, err
		}
		staffID, err := reqInt(table, "staff_id", o.StaffID)
		if err != nil {
			return nil, err
		}
		counterpartyID, err := reqInt(table, "counterparty_id", o.CounterpartyID)
		if err != nil {
			return nil, err
		}
		unitsSold, err := reqInt(table, "units_sold", o.UnitsSold)
		if err != nil {
			return nil, err
		}
		unitPrice, err := reqDec(table, "unit_price", o.UnitPrice)
		if err != nil {
			return nil, err
		}
		currencyID, err := reqInt(table, "currency_id", o.CurrencyID)
		if err != nil {
			return nil, err
		}
		designID, err := reqInt(table, "design_id", o.DesignID)
		if err != nil {
			return nil, err
		}
		paymentDate, err := reqStr(table, "agreed_payment_date", o.AgreedPaymentDate)
		if err != nil {
			return nil, err
		}
		if paymentDate, err = parseDate(table, "agreed_payment_date", paymentDate); err != nil {
			return nil, err
		}
		deliveryDate, err := reqStr(table, "agreed_delivery_date", o.AgreedDeliveryDate)
		if err != nil {
			return nil, err
		}
		if deliveryDate, err = parseDate(table, "agreed_delivery_date", deliveryDate); err != nil {
			return nil, err
		}
		locationID, err := reqInt(table, "agreed_delivery_location_id", o.AgreedDeliveryLocationID)
		if err != nil {
			return nil, err
		}

		rows = append(rows, schema.FactSalesOrderRow{
			SalesRecordID:            int64(i),
			SalesOrderID:             orderID,
			CreatedDate:              createdDate,
			CreatedTime:              createdTime,
			LastUpdatedDate:          updatedDate,
			LastUpdatedTime:          updatedTime,
			SalesStaffID:             staffID,
			CounterpartyID:           counterpartyID,
			UnitsSold:                unitsSold,
			UnitPrice:                unitPrice,
			CurrencyID:               currencyID,
			DesignID:                 designID,
			AgreedPaymentDate:        paymentDate,
			AgreedDeliveryDate:       deliveryDate,
			AgreedDeliveryLocationID: locationID,
		})
	}
	return rows, nil
}
