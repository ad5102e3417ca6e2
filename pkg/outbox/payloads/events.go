package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
)

// OrderLine mirrors one item of the order snapshot.
type OrderLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// OrderCreatedEvent is emitted when checkout materializes an order.
type OrderCreatedEvent struct {
	OrderID         uuid.UUID       `json:"order_id"`
	CartID          uuid.UUID       `json:"cart_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	CustomerEmail   string          `json:"customer_email,omitempty"`
	Quantity        int             `json:"quantity"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	Items           []OrderLine     `json:"items"`
}

// OrderPaymentStatusChangedEvent reports a webhook-driven status move.
type OrderPaymentStatusChangedEvent struct {
	OrderID         uuid.UUID           `json:"order_id"`
	PaymentIntentID string              `json:"payment_intent_id"`
	From            enums.PaymentStatus `json:"from"`
	To              enums.PaymentStatus `json:"to"`
}

// ProductChangedEvent carries the catalog fields downstream indexes care about.
type ProductChangedEvent struct {
	ProductID uuid.UUID           `json:"product_id"`
	Name      string              `json:"name"`
	Price     decimal.Decimal     `json:"price"`
	Inventory int                 `json:"inventory"`
	Status    enums.ProductStatus `json:"status"`
}
