package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/enums"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Order is the historical record of a confirmed checkout. Items, Quantity and
// Amount are frozen at creation; only PaymentStatus moves afterwards.
type Order struct {
	ID              uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Items           types.OrderItems    `gorm:"column:items;type:jsonb;not null"`
	Quantity        int                 `gorm:"column:quantity;not null"`
	Amount          decimal.Decimal     `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency        string              `gorm:"column:currency;not null"`
	PaymentIntentID string              `gorm:"column:payment_intent_id;not null;uniqueIndex:ux_orders_payment_intent_id"`
	PaymentStatus   enums.PaymentStatus `gorm:"column:payment_status;not null;index"`
	CustomerName    string              `gorm:"column:customer_name;not null;default:''"`
	CustomerEmail   string              `gorm:"column:customer_email;not null;default:'';index"`
	AddressID       uuid.UUID           `gorm:"column:address_id;type:uuid;not null"`
	Address         *Address            `gorm:"foreignKey:AddressID;references:ID"`
	CartID          uuid.UUID           `gorm:"column:cart_id;type:uuid;not null"`
	CreatedAt       time.Time           `gorm:"column:created_at;autoCreateTime;index"`
	UpdatedAt       time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	if o.Items == nil {
		o.Items = types.OrderItems{}
	}
	return nil
}
