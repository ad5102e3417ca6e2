package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// AddressDTO is the shipping address attached to an order.
type AddressDTO struct {
	ID         uuid.UUID `json:"id"`
	Line1      string    `json:"line1"`
	Line2      *string   `json:"line2,omitempty"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	Country    string    `json:"country"`
	PostalCode string    `json:"postal_code"`
}

// OrderDTO is the ledger view of an order.
type OrderDTO struct {
	ID              uuid.UUID        `json:"id"`
	Items           types.OrderItems `json:"items"`
	Quantity        int              `json:"quantity"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        string           `json:"currency"`
	PaymentIntentID string           `json:"payment_intent_id"`
	PaymentStatus   string           `json:"payment_status"`
	CustomerName    string           `json:"customer_name"`
	CustomerEmail   string           `json:"customer_email"`
	CartID          uuid.UUID        `json:"cart_id"`
	Address         *AddressDTO      `json:"address,omitempty"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// OrderList is one page of the ledger.
type OrderList struct {
	Orders     []OrderDTO `json:"orders"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	TotalPages int        `json:"total_pages"`
}

// NewOrderDTO maps the persisted order, including its address when loaded.
func NewOrderDTO(o *models.Order) *OrderDTO {
	if o == nil {
		return nil
	}
	items := o.Items
	if items == nil {
		items = types.OrderItems{}
	}
	dto := &OrderDTO{
		ID:              o.ID,
		Items:           items,
		Quantity:        o.Quantity,
		Amount:          o.Amount,
		Currency:        o.Currency,
		PaymentIntentID: o.PaymentIntentID,
		PaymentStatus:   string(o.PaymentStatus),
		CustomerName:    o.CustomerName,
		CustomerEmail:   o.CustomerEmail,
		CartID:          o.CartID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	if a := o.Address; a != nil {
		dto.Address = &AddressDTO{
			ID:         a.ID,
			Line1:      a.Line1,
			Line2:      a.Line2,
			City:       a.City,
			State:      a.State,
			Country:    a.Country,
			PostalCode: a.PostalCode,
		}
	}
	return dto
}
