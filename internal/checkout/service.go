package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/cart"
	"github.com/angelmondragon/storefront-backend/internal/orders"
	product "github.com/angelmondragon/storefront-backend/internal/products"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/stripe"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// catalog is the product store plus the ability to join a transaction.
type catalog interface {
	product.Store
	TxStore(tx *gorm.DB) product.Store
}

// Service turns carts into orders.
type Service interface {
	Begin(ctx context.Context, cartID uuid.UUID) (*BeginResult, error)
	Confirm(ctx context.Context, in Confirmation) (*ConfirmResult, error)
}

// ConfirmResult carries the order for a payment intent. Created is false when
// the order already existed.
type ConfirmResult struct {
	Order   *models.Order
	Created bool
}

// BeginResult is what the client needs to collect payment.
type BeginResult struct {
	CartID          uuid.UUID       `json:"cart_id"`
	PaymentIntentID string          `json:"payment_intent_id"`
	ClientSecret    string          `json:"client_secret"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
}

// Deps groups the collaborators of the checkout service.
type Deps struct {
	Tx       txRunner
	Carts    cart.CartRepository
	Orders   orders.Repository
	Products catalog
	Outbox   outbox.Emitter
	// Payments may be nil when no provider is configured; Begin then fails.
	Payments stripe.PaymentIntentClient
	Currency string
	Metrics  *metrics.CheckoutMetrics
	Logger   *logger.Logger
}

type service struct {
	tx       txRunner
	carts    cart.CartRepository
	orders   orders.Repository
	products catalog
	outbox   outbox.Emitter
	payments stripe.PaymentIntentClient
	currency string
	metrics  *metrics.CheckoutMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService builds the checkout service.
func NewService(deps Deps) (Service, error) {
	if deps.Tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if deps.Carts == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if deps.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if deps.Products == nil {
		return nil, fmt.Errorf("product store required")
	}
	if deps.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	currency := types.NormalizeCurrency(deps.Currency)
	if currency == "" {
		currency = "usd"
	}
	logg := deps.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	return &service{
		tx:       deps.Tx,
		carts:    deps.Carts,
		orders:   deps.Orders,
		products: deps.Products,
		outbox:   deps.Outbox,
		payments: deps.Payments,
		currency: currency,
		metrics:  deps.Metrics,
		logg:     logg,
		now:      time.Now,
	}, nil
}

// Confirm materializes the order for a succeeded payment exactly once.
// Repeated or concurrent confirmations for the same payment intent return the
// existing order with Created=false.
func (s *service) Confirm(ctx context.Context, in Confirmation) (*ConfirmResult, error) {
	start := s.now()
	res, err := s.confirm(ctx, in)
	s.metrics.ObserveConfirmation(outcome(res, err), s.now().Sub(start))

	logCtx := s.logg.WithField(ctx, "payment_intent_id", in.PaymentIntentID)
	switch {
	case err != nil && pkgerrors.ClassOf(err) == pkgerrors.ClassInfrastructure:
		s.logg.Error(logCtx, "checkout confirmation failed", err)
	case err != nil:
		s.logg.Warn(s.logg.WithFields(logCtx, pkgerrors.Dump(err).Fields()), "checkout confirmation rejected")
	case res.Created:
		s.logg.Info(s.logg.WithOrderID(logCtx, res.Order.ID.String()), "order created")
	default:
		s.logg.Info(s.logg.WithOrderID(logCtx, res.Order.ID.String()), "duplicate confirmation resolved to existing order")
	}
	return res, err
}

func (s *service) confirm(ctx context.Context, raw Confirmation) (*ConfirmResult, error) {
	in := raw.normalized(s.currency)
	if err := in.check(); err != nil {
		return nil, err
	}

	if existing, err := s.existingOrder(ctx, in.PaymentIntentID); err != nil || existing != nil {
		if err != nil {
			return nil, err
		}
		return &ConfirmResult{Order: existing}, nil
	}

	var created *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.materialize(ctx, tx, in)
		if err != nil {
			return err
		}
		created = order
		return nil
	})
	if err == nil {
		return &ConfirmResult{Order: created, Created: true}, nil
	}

	// A rejection may be a racer observing the winner's writes; the winner's
	// order is the answer then.
	if pkgerrors.ClassOf(err) != pkgerrors.ClassInfrastructure {
		existing, lookupErr := s.existingOrder(ctx, in.PaymentIntentID)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return &ConfirmResult{Order: existing}, nil
		}
	}
	if pkgerrors.IsCode(err, pkgerrors.CodeInsufficientInventory) {
		s.metrics.IncInventoryShortfall()
	}
	return nil, err
}

// materialize runs every write of a confirmation on tx.
func (s *service) materialize(ctx context.Context, tx *gorm.DB, in Confirmation) (*models.Order, error) {
	carts := s.carts.WithTx(tx)
	ordersRepo := s.orders.WithTx(tx)
	store := s.products.TxStore(tx)

	record, err := carts.FindByPaymentIntentForUpdate(ctx, in.PaymentIntentID)
	if err != nil {
		return nil, err
	}
	if record.Closed {
		return nil, pkgerrors.New(pkgerrors.CodeAlreadyClosed, "cart already closed").
			WithDetails(map[string]any{"cart_id": record.ID})
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty").
			WithDetails(map[string]any{"cart_id": record.ID})
	}

	snapshot, err := s.snapshot(ctx, store, record.Items)
	if err != nil {
		return nil, err
	}
	for _, line := range snapshot {
		if err := store.DecrementInventory(ctx, line.ProductID, line.Quantity); err != nil {
			return nil, err
		}
	}

	address := in.ShippingAddress.model()
	if err := ordersRepo.CreateAddress(ctx, address); err != nil {
		return nil, err
	}

	order := &models.Order{
		Items:           snapshot,
		Quantity:        snapshot.TotalQuantity(),
		Amount:          in.Amount.Round(types.CurrencyExponent(in.Currency)),
		Currency:        in.Currency,
		PaymentIntentID: in.PaymentIntentID,
		PaymentStatus:   enums.PaymentStatusSucceeded,
		CustomerName:    in.CustomerName,
		CustomerEmail:   in.ReceiptEmail,
		AddressID:       address.ID,
		CartID:          record.ID,
	}
	if err := ordersRepo.CreateOrder(ctx, order); err != nil {
		return nil, err
	}
	if err := carts.Close(ctx, record.ID, s.now()); err != nil {
		return nil, err
	}
	if err := s.outbox.Emit(ctx, tx, orderCreatedEvent(order)); err != nil {
		return nil, err
	}
	order.Address = address
	return order, nil
}

func (s *service) snapshot(ctx context.Context, store product.Store, items types.CartItems) (types.OrderItems, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := store.GetProducts(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make(types.OrderItems, 0, len(items))
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		out = append(out, types.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  item.Quantity,
			UnitPrice: p.Price,
		})
	}
	return out, nil
}

func (s *service) existingOrder(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	order, err := s.orders.FindByPaymentIntent(ctx, paymentIntentID)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return order, nil
}

// Begin prices the cart and creates, or returns the already attached, payment
// intent for it.
func (s *service) Begin(ctx context.Context, cartID uuid.UUID) (*BeginResult, error) {
	record, err := s.carts.FindByID(ctx, cartID)
	if err != nil {
		return nil, err
	}
	if record.Closed {
		return nil, pkgerrors.New(pkgerrors.CodeCartClosed, "cart is closed").
			WithDetails(map[string]any{"cart_id": cartID})
	}
	if len(record.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "cart is empty").
			WithDetails(map[string]any{"cart_id": cartID})
	}
	amount, err := s.price(ctx, record.Items)
	if err != nil {
		return nil, err
	}

	minor := types.ToMinorUnits(amount, s.currency)
	if minor <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart total must be positive")
	}

	result := &BeginResult{CartID: cartID, Amount: amount, Currency: s.currency}
	if record.PaymentIntentID != nil {
		result.PaymentIntentID = *record.PaymentIntentID
		if record.ClientSecret != nil {
			result.ClientSecret = *record.ClientSecret
		}
		if record.PaymentAmountMinor == nil || *record.PaymentAmountMinor != minor {
			if err := s.reprice(ctx, cartID, result.PaymentIntentID, minor); err != nil {
				return nil, err
			}
		}
		s.metrics.IncPaymentIntent(true)
		return result, nil
	}

	if s.payments == nil {
		return nil, errNoProvider()
	}
	intent, err := s.payments.CreatePaymentIntent(ctx, stripe.PaymentIntentInput{
		CartID:         cartID.String(),
		AmountMinor:    minor,
		Currency:       s.currency,
		IdempotencyKey: "checkout-begin-" + cartID.String(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment intent")
	}
	if err := s.carts.AttachPaymentIntent(ctx, cartID, intent.ID, intent.ClientSecret, minor); err != nil {
		return nil, err
	}
	s.metrics.IncPaymentIntent(false)
	s.logg.Info(s.logg.WithField(s.logg.WithCartID(ctx, cartID.String()), "payment_intent_id", intent.ID), "payment intent created")

	result.PaymentIntentID = intent.ID
	result.ClientSecret = intent.ClientSecret
	return result, nil
}

// reprice brings the attached intent in line with a cart edited after the
// intent was created.
func (s *service) reprice(ctx context.Context, cartID uuid.UUID, intentID string, minor int64) error {
	if s.payments == nil {
		return errNoProvider()
	}
	if _, err := s.payments.UpdatePaymentIntentAmount(ctx, intentID, minor); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment intent")
	}
	if err := s.carts.SetPaymentAmount(ctx, cartID, minor); err != nil {
		return err
	}
	s.logg.Info(s.logg.WithField(s.logg.WithCartID(ctx, cartID.String()), "payment_intent_id", intentID), "payment intent repriced")
	return nil
}

func errNoProvider() error {
	return pkgerrors.New(pkgerrors.CodeDependency, "payment provider not configured")
}

func (s *service) price(ctx context.Context, items types.CartItems) (decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.products.GetProducts(ctx, ids)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, item := range items {
		p, ok := products[item.ProductID]
		if !ok || !p.IsActive() {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
				WithDetails(map[string]any{"product_id": item.ProductID})
		}
		if item.Quantity > p.Inventory {
			return decimal.Zero, pkgerrors.New(pkgerrors.CodeOutOfStock, "requested quantity exceeds available stock").
				WithDetails(map[string]any{
					"product_id": p.ID,
					"requested":  item.Quantity,
					"available":  p.Inventory,
				})
		}
		total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return total, nil
}

func orderCreatedEvent(order *models.Order) outbox.DomainEvent {
	lines := make([]payloads.OrderLine, 0, len(order.Items))
	for _, item := range order.Items {
		lines = append(lines, payloads.OrderLine{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Data: payloads.OrderCreatedEvent{
			OrderID:         order.ID,
			CartID:          order.CartID,
			PaymentIntentID: order.PaymentIntentID,
			CustomerEmail:   order.CustomerEmail,
			Quantity:        order.Quantity,
			Amount:          order.Amount,
			Currency:        order.Currency,
			Items:           lines,
		},
	}
}

func outcome(res *ConfirmResult, err error) string {
	switch {
	case err == nil && res.Created:
		return metrics.OutcomeCreated
	case err == nil:
		return metrics.OutcomeDuplicate
	case pkgerrors.ClassOf(err) == pkgerrors.ClassInfrastructure:
		return metrics.OutcomeFailed
	default:
		return metrics.OutcomeRejected
	}
}
