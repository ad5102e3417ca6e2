package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem snapshots a purchased line at checkout time. It is never
// refreshed from the live product.
type OrderItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// LineTotal is UnitPrice * Quantity.
func (o OrderItem) LineTotal() decimal.Decimal {
	return o.UnitPrice.Mul(decimal.NewFromInt(int64(o.Quantity)))
}

// OrderItems is stored as a JSON array on the order row.
type OrderItems []OrderItem

// Value serializes the snapshot to JSON.
func (o OrderItems) Value() (driver.Value, error) {
	return marshalList(o)
}

// Scan decodes a JSON array into the snapshot.
func (o *OrderItems) Scan(value interface{}) error {
	if value == nil {
		*o = OrderItems{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded OrderItems
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*o = decoded
	return nil
}

// TotalQuantity sums the quantities of all lines.
func (o OrderItems) TotalQuantity() int {
	total := 0
	for _, item := range o {
		total += item.Quantity
	}
	return total
}
