package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Cart is addressed by its ID, which doubles as the opaque client-side token.
type Cart struct {
	ID                 uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Items              types.CartItems `gorm:"column:items;type:jsonb;not null"`
	Closed             bool            `gorm:"column:closed;not null;default:false"`
	ClosedAt           *time.Time      `gorm:"column:closed_at"`
	PaymentIntentID    *string         `gorm:"column:payment_intent_id;uniqueIndex:ux_carts_payment_intent_id"`
	ClientSecret       *string         `gorm:"column:client_secret"`
	// PaymentAmountMinor is the amount the attached intent currently charges.
	PaymentAmountMinor *int64          `gorm:"column:payment_amount_minor"`
	CreatedAt          time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Cart) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	if c.Items == nil {
		c.Items = types.CartItems{}
	}
	return nil
}
