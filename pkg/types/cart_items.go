package types

import (
	"database/sql/driver"
	"encoding/json"

	"github.com/google/uuid"
)

// CartItem is one line of an open cart.
type CartItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// CartItems keeps line items in insertion order.
type CartItems []CartItem

// Value serializes the line items to JSON.
func (c CartItems) Value() (driver.Value, error) {
	return marshalList(c)
}

// Scan decodes a JSON array into the line items.
func (c *CartItems) Scan(value interface{}) error {
	if value == nil {
		*c = CartItems{}
		return nil
	}
	raw, err := asJSON(value)
	if err != nil {
		return err
	}
	var decoded CartItems
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return err
	}
	*c = decoded
	return nil
}

// Find returns the index of productID or -1.
func (c CartItems) Find(productID uuid.UUID) int {
	for i, item := range c {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// Quantity returns the quantity held for productID.
func (c CartItems) Quantity(productID uuid.UUID) int {
	if idx := c.Find(productID); idx >= 0 {
		return c[idx].Quantity
	}
	return 0
}

// Set places quantity on productID, appending a new line when absent and
// dropping the line when quantity is zero. The receiver is not mutated.
func (c CartItems) Set(productID uuid.UUID, quantity int) CartItems {
	out := make(CartItems, 0, len(c)+1)
	found := false
	for _, item := range c {
		if item.ProductID != productID {
			out = append(out, item)
			continue
		}
		found = true
		if quantity > 0 {
			out = append(out, CartItem{ProductID: productID, Quantity: quantity})
		}
	}
	if !found && quantity > 0 {
		out = append(out, CartItem{ProductID: productID, Quantity: quantity})
	}
	return out
}

// Without drops every line whose product is in productIDs.
func (c CartItems) Without(productIDs ...uuid.UUID) CartItems {
	drop := make(map[uuid.UUID]struct{}, len(productIDs))
	for _, id := range productIDs {
		drop[id] = struct{}{}
	}
	out := make(CartItems, 0, len(c))
	for _, item := range c {
		if _, ok := drop[item.ProductID]; ok {
			continue
		}
		out = append(out, item)
	}
	return out
}

// ProductIDs lists the products in line order.
func (c CartItems) ProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(c))
	for _, item := range c {
		ids = append(ids, item.ProductID)
	}
	return ids
}

// TotalQuantity sums the quantities of all lines.
func (c CartItems) TotalQuantity() int {
	total := 0
	for _, item := range c {
		total += item.Quantity
	}
	return total
}
