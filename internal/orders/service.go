package orders

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Ledger serves the back-office order views and the webhook-driven payment
// status updates. Order contents are immutable once written.
type Ledger interface {
	ListOrders(ctx context.Context, input ListInput) (*OrderList, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error)
	UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status enums.PaymentStatus) (*OrderDTO, error)
}

// ListInput carries declarative filters plus paging and sorting.
type ListInput struct {
	Filters    []query.Filter
	Pagination pagination.Params
	Sort       string
	// Direction is asc or desc; anything else sorts descending.
	Direction string
}

type ledger struct {
	repo    Repository
	tx      txRunner
	emitter outbox.Emitter
	logg    *logger.Logger
}

// NewLedger builds the order ledger service.
func NewLedger(repo Repository, tx txRunner, emitter outbox.Emitter, logg *logger.Logger) (Ledger, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &ledger{repo: repo, tx: tx, emitter: emitter, logg: logg}, nil
}

func (l *ledger) ListOrders(ctx context.Context, input ListInput) (*OrderList, error) {
	params := input.Pagination.Normalize()
	sort := query.Sort{
		Field: strings.TrimSpace(input.Sort),
		Desc:  !strings.EqualFold(strings.TrimSpace(input.Direction), "asc"),
	}
	rows, total, err := l.repo.List(ctx, input.Filters, sort, params)
	if err != nil {
		return nil, err
	}
	page := pagination.NewPage(params, total)
	out := &OrderList{
		Orders:     make([]OrderDTO, 0, len(rows)),
		Total:      total,
		Page:       page.Page,
		Size:       page.Size,
		TotalPages: page.TotalPages,
	}
	for i := range rows {
		out.Orders = append(out.Orders, *NewOrderDTO(&rows[i]))
	}
	return out, nil
}

func (l *ledger) GetOrder(ctx context.Context, id uuid.UUID) (*OrderDTO, error) {
	order, err := l.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewOrderDTO(order), nil
}

// UpdatePaymentStatus applies a provider-reported status to the order for
// paymentIntentID. Repeating the current status is a no-op.
func (l *ledger) UpdatePaymentStatus(ctx context.Context, paymentIntentID string, status enums.PaymentStatus) (*OrderDTO, error) {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment intent id required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment status").
			WithDetails(map[string]any{"status": status})
	}

	var result *models.Order
	err := l.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := l.repo.WithTx(tx)
		order, err := repo.FindByPaymentIntent(ctx, paymentIntentID)
		if err != nil {
			return err
		}
		from := order.PaymentStatus
		if from == status {
			result = order
			return nil
		}
		if !from.CanTransitionTo(status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status transition not allowed").
				WithDetails(map[string]any{"from": from, "to": status})
		}
		if err := repo.UpdatePaymentStatus(ctx, order.ID, from, status); err != nil {
			return err
		}
		if err := l.emitter.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaymentStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderPaymentStatusChangedEvent{
				OrderID:         order.ID,
				PaymentIntentID: order.PaymentIntentID,
				From:            from,
				To:              status,
			},
		}); err != nil {
			return err
		}
		order.PaymentStatus = status
		result = order
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := l.logg.WithOrderID(ctx, result.ID.String())
	l.logg.Info(l.logg.WithField(logCtx, "payment_status", status), "order payment status applied")
	return NewOrderDTO(result), nil
}
