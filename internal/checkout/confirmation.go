package checkout

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// ShippingAddress is the destination reported by the payment provider.
type ShippingAddress struct {
	Line1      string  `json:"line1" validate:"required"`
	Line2      *string `json:"line2,omitempty"`
	City       string  `json:"city" validate:"required"`
	State      string  `json:"state"`
	Country    string  `json:"country" validate:"required"`
	PostalCode string  `json:"postal_code" validate:"required"`
}

// Confirmation is a provider-confirmed payment to be turned into an order.
type Confirmation struct {
	PaymentIntentID string              `json:"payment_intent_id" validate:"required"`
	Status          enums.PaymentStatus `json:"status"`
	Amount          decimal.Decimal     `json:"amount"`
	Currency        string              `json:"currency"`
	ReceiptEmail    string              `json:"receipt_email" validate:"omitempty,email"`
	CustomerName    string              `json:"customer_name"`
	ShippingAddress ShippingAddress     `json:"shipping_address"`
}

var validate = validator.New()

func (c Confirmation) normalized(defaultCurrency string) Confirmation {
	c.PaymentIntentID = strings.TrimSpace(c.PaymentIntentID)
	c.ReceiptEmail = strings.ToLower(strings.TrimSpace(c.ReceiptEmail))
	c.CustomerName = strings.TrimSpace(c.CustomerName)
	c.Currency = types.NormalizeCurrency(c.Currency)
	if c.Currency == "" {
		c.Currency = types.NormalizeCurrency(defaultCurrency)
	}
	a := &c.ShippingAddress
	a.Line1 = strings.TrimSpace(a.Line1)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Country = strings.ToUpper(strings.TrimSpace(a.Country))
	a.PostalCode = strings.TrimSpace(a.PostalCode)
	if a.Line2 != nil {
		line2 := strings.TrimSpace(*a.Line2)
		if line2 == "" {
			a.Line2 = nil
		} else {
			a.Line2 = &line2
		}
	}
	return c
}

func (c Confirmation) check() error {
	if err := validate.Struct(c); err != nil {
		details := map[string]string{}
		if fieldErrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range fieldErrs {
				details[fe.Namespace()] = fe.Tag()
			}
		}
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid confirmation").WithDetails(details)
	}
	if c.Amount.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "amount must not be negative").
			WithDetails(map[string]any{"amount": c.Amount})
	}
	if c.Currency == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "currency required")
	}
	if c.Status != enums.PaymentStatusSucceeded {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment has not succeeded").
			WithDetails(map[string]any{"status": c.Status})
	}
	return nil
}

func (a ShippingAddress) model() *models.Address {
	return &models.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		Country:    a.Country,
		PostalCode: a.PostalCode,
	}
}
