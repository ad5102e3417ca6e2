package cart

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
)

// LineView is a cart line enriched with live catalog data. Prices here are
// informational; checkout snapshots its own.
type LineView struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
	Inventory int             `json:"inventory"`
	Available bool            `json:"available"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// CartView is the read model returned by GetCart.
type CartView struct {
	ID              uuid.UUID       `json:"id"`
	Closed          bool            `json:"closed"`
	Items           []LineView      `json:"items"`
	ItemCount       int             `json:"item_count"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	PaymentIntentID *string         `json:"payment_intent_id,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func buildView(cart *models.Cart, products map[uuid.UUID]models.Product) *CartView {
	view := &CartView{
		ID:              cart.ID,
		Closed:          cart.Closed,
		Items:           make([]LineView, 0, len(cart.Items)),
		Subtotal:        decimal.Zero,
		PaymentIntentID: cart.PaymentIntentID,
		CreatedAt:       cart.CreatedAt,
		UpdatedAt:       cart.UpdatedAt,
	}
	for _, item := range cart.Items {
		line := LineView{ProductID: item.ProductID, Quantity: item.Quantity, LineTotal: decimal.Zero}
		if p, ok := products[item.ProductID]; ok {
			line.Name = p.Name
			line.UnitPrice = p.Price
			line.Inventory = p.Inventory
			line.Available = p.IsActive() && p.Inventory >= item.Quantity
			line.LineTotal = p.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		}
		view.Items = append(view.Items, line)
		view.ItemCount += item.Quantity
		view.Subtotal = view.Subtotal.Add(line.LineTotal)
	}
	return view
}
