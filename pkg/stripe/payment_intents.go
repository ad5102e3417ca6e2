package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
)

// PaymentIntentInput describes a new intent for a cart.
type PaymentIntentInput struct {
	CartID         string
	AmountMinor    int64
	Currency       string
	IdempotencyKey string
}

// PaymentIntent is the subset of Stripe's intent that checkout keeps.
type PaymentIntent struct {
	ID           string
	ClientSecret string
	AmountMinor  int64
	Currency     string
	Status       string
}

// PaymentIntentClient exposes the payment intent operations checkout relies on.
type PaymentIntentClient interface {
	CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error)
	UpdatePaymentIntentAmount(ctx context.Context, id string, amountMinor int64) (*PaymentIntent, error)
}

type paymentIntentWrapper struct{}

// NewPaymentIntentClient wraps the provided Stripe client so checkout can be tested.
func NewPaymentIntentClient(api *Client) PaymentIntentClient {
	if api == nil {
		return nil
	}
	return &paymentIntentWrapper{}
}

func (w *paymentIntentWrapper) CreatePaymentIntent(ctx context.Context, input PaymentIntentInput) (*PaymentIntent, error) {
	if input.AmountMinor <= 0 {
		return nil, fmt.Errorf("payment intent amount must be positive")
	}
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountMinor),
		Currency: stripe.String(input.Currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("cart_id", input.CartID)
	if input.IdempotencyKey != "" {
		params.SetIdempotencyKey(input.IdempotencyKey)
	}

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, err
	}
	return fromStripe(pi), nil
}

// UpdatePaymentIntentAmount reprices an unpaid intent after its cart changed.
func (w *paymentIntentWrapper) UpdatePaymentIntentAmount(ctx context.Context, id string, amountMinor int64) (*PaymentIntent, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("payment intent amount must be positive")
	}
	params := &stripe.PaymentIntentParams{Amount: stripe.Int64(amountMinor)}
	params.Context = ctx
	pi, err := paymentintent.Update(id, params)
	if err != nil {
		return nil, err
	}
	return fromStripe(pi), nil
}

func fromStripe(pi *stripe.PaymentIntent) *PaymentIntent {
	return &PaymentIntent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountMinor:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
	}
}
