package stripewebhook

import (
	"context"
	"encoding/json"

	"github.com/stripe/stripe-go/v84"

	"github.com/angelmondragon/storefront-backend/internal/checkout"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type confirmer interface {
	Confirm(ctx context.Context, in checkout.Confirmation) (*checkout.ConfirmResult, error)
}

type paymentStatusUpdater interface {
	UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status enums.PaymentStatus) (*orders.OrderDTO, error)
}

type ServiceParams struct {
	Checkout confirmer
	Ledger   paymentStatusUpdater
	Logger   *logger.Logger
}

// Service applies Stripe payment events to checkout and the order ledger.
type Service struct {
	checkout confirmer
	ledger   paymentStatusUpdater
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Checkout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "checkout service required")
	}
	if params.Ledger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "order ledger required")
	}
	logg := params.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &Service{checkout: params.Checkout, ledger: params.Ledger, logg: logg}, nil
}

// HandleEvent dispatches one verified event. Only infrastructure failures are
// returned so the provider retries them; business rejections are logged and
// acknowledged because a redelivery cannot change their outcome.
func (s *Service) HandleEvent(ctx context.Context, event *stripe.Event) error {
	if event == nil || event.Data == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "stripe event data required")
	}
	ctx = s.logg.WithFields(ctx, map[string]any{"stripe_event_id": event.ID, "stripe_event_type": string(event.Type)})

	var err error
	switch event.Type {
	case stripe.EventTypePaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		err = s.confirm(ctx, &pi)
	case stripe.EventTypePaymentIntentPaymentFailed, stripe.EventTypePaymentIntentCanceled:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent event")
		}
		status := enums.PaymentStatusFailed
		if event.Type == stripe.EventTypePaymentIntentCanceled {
			status = enums.PaymentStatusCanceled
		}
		err = s.applyStatus(ctx, pi.ID, status)
	case stripe.EventTypeChargeRefunded:
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode charge event")
		}
		if !charge.Refunded || charge.PaymentIntent == nil {
			s.logg.Info(ctx, "partial refund ignored")
			return nil
		}
		err = s.applyStatus(ctx, charge.PaymentIntent.ID, enums.PaymentStatusRefunded)
	default:
		return nil
	}

	if err == nil {
		return nil
	}
	if pkgerrors.ClassOf(err) == pkgerrors.ClassInfrastructure {
		return err
	}
	s.logg.Error(s.logg.WithFields(ctx, pkgerrors.Dump(err).Fields()), "stripe event rejected", err)
	return nil
}

func (s *Service) confirm(ctx context.Context, pi *stripe.PaymentIntent) error {
	res, err := s.checkout.Confirm(ctx, ConfirmationFromPaymentIntent(pi))
	if err != nil {
		return err
	}
	if cartID := pi.Metadata["cart_id"]; cartID != "" && res.Order != nil && cartID != res.Order.CartID.String() {
		s.logg.Warn(s.logg.WithField(ctx, "metadata_cart_id", cartID), "payment intent metadata names a different cart")
	}
	return nil
}

func (s *Service) applyStatus(ctx context.Context, paymentIntentID string, status enums.PaymentStatus) error {
	_, err := s.ledger.UpdatePaymentStatus(ctx, paymentIntentID, status)
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		s.logg.Info(ctx, "no order for payment intent")
		return nil
	}
	return err
}

// ConfirmationFromPaymentIntent maps a succeeded intent onto a checkout
// confirmation. The amount is converted from provider minor units.
func ConfirmationFromPaymentIntent(pi *stripe.PaymentIntent) checkout.Confirmation {
	currency := string(pi.Currency)
	amount := pi.AmountReceived
	if amount == 0 {
		amount = pi.Amount
	}
	c := checkout.Confirmation{
		PaymentIntentID: pi.ID,
		Status:          paymentStatus(pi.Status),
		Amount:          types.FromMinorUnits(amount, currency),
		Currency:        currency,
		ReceiptEmail:    pi.ReceiptEmail,
	}
	if pi.Shipping != nil {
		c.CustomerName = pi.Shipping.Name
		if a := pi.Shipping.Address; a != nil {
			c.ShippingAddress = checkout.ShippingAddress{
				Line1:      a.Line1,
				City:       a.City,
				State:      a.State,
				Country:    a.Country,
				PostalCode: a.PostalCode,
			}
			if a.Line2 != "" {
				line2 := a.Line2
				c.ShippingAddress.Line2 = &line2
			}
		}
	}
	return c
}

func paymentStatus(status stripe.PaymentIntentStatus) enums.PaymentStatus {
	switch status {
	case stripe.PaymentIntentStatusSucceeded:
		return enums.PaymentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return enums.PaymentStatusCanceled
	default:
		return enums.PaymentStatusPending
	}
}
