package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
	"github.com/angelmondragon/storefront-backend/pkg/outbox"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func newTestLedger(t *testing.T) (Ledger, Repository, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.Client(t)
	repo := NewRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logger.Nop())
	l, err := NewLedger(repo, client, emitter, logger.Nop())
	require.NoError(t, err)
	return l, repo, conn
}

func seedOrder(t *testing.T, repo Repository, email string, amount string, qty int, status enums.PaymentStatus) *models.Order {
	t.Helper()
	ctx := context.Background()
	address := &models.Address{Line1: "1 Main St", City: "Springfield", Country: "US", PostalCode: "62701"}
	require.NoError(t, repo.CreateAddress(ctx, address))
	order := &models.Order{
		Items: types.OrderItems{{
			ProductID: uuid.New(),
			Name:      "Lamp",
			Quantity:  qty,
			UnitPrice: decimal.RequireFromString(amount).Div(decimal.NewFromInt(int64(qty))),
		}},
		Quantity:        qty,
		Amount:          decimal.RequireFromString(amount),
		Currency:        "usd",
		PaymentIntentID: "pi_" + uuid.NewString(),
		PaymentStatus:   status,
		CustomerEmail:   email,
		AddressID:       address.ID,
		CartID:          uuid.New(),
	}
	require.NoError(t, repo.CreateOrder(ctx, order))
	return order
}

func TestListOrdersFiltersByEmailAndStatus(t *testing.T) {
	l, repo, _ := newTestLedger(t)
	ctx := context.Background()
	seedOrder(t, repo, "ada@example.com", "10.00", 1, enums.PaymentStatusSucceeded)
	seedOrder(t, repo, "adam@shop.test", "20.00", 2, enums.PaymentStatusRefunded)
	seedOrder(t, repo, "bob@example.com", "30.00", 3, enums.PaymentStatusSucceeded)

	res, err := l.ListOrders(ctx, ListInput{Filters: []query.Filter{
		{Field: "email", Operator: query.OpContains, Value: "ADA"},
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, res.Total)

	res, err = l.ListOrders(ctx, ListInput{Filters: []query.Filter{
		{Field: "email", Operator: query.OpContains, Value: "ada"},
		{Field: "payment_status", Operator: query.OpIn, Value: []string{"Succeeded"}},
	}})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "ada@example.com", res.Orders[0].CustomerEmail)
	require.NotNil(t, res.Orders[0].Address)
}

func TestListOrdersCreatedAtRange(t *testing.T) {
	l, repo, _ := newTestLedger(t)
	ctx := context.Background()
	seedOrder(t, repo, "a@example.com", "10.00", 1, enums.PaymentStatusSucceeded)

	yesterday := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	res, err := l.ListOrders(ctx, ListInput{Filters: []query.Filter{
		{Field: "created_at", Operator: query.OpGte, Value: yesterday},
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total)

	res, err = l.ListOrders(ctx, ListInput{Filters: []query.Filter{
		{Field: "created_at", Operator: query.OpLte, Value: yesterday},
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 0, res.Total)

	today := time.Now().UTC().Format(time.DateOnly)
	res, err = l.ListOrders(ctx, ListInput{Filters: []query.Filter{
		{Field: "created_at", Operator: query.OpGte, Value: today},
		{Field: "created_at", Operator: query.OpLte, Value: today},
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Total, "a date-only range includes orders placed during that day")
}

func TestListOrdersRejectsUnknownFilters(t *testing.T) {
	l, _, _ := newTestLedger(t)
	_, err := l.ListOrders(context.Background(), ListInput{Filters: []query.Filter{
		{Field: "customer_name", Operator: query.OpEq, Value: "x"},
		{Field: "email", Operator: query.OpGte, Value: "x"},
		{Field: "payment_status", Operator: query.OpEq, Value: "paid"},
	}})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	assert.Len(t, details["filters"], 3)
}

func TestListOrdersSortAndPagination(t *testing.T) {
	l, repo, _ := newTestLedger(t)
	ctx := context.Background()
	seedOrder(t, repo, "a@example.com", "30.00", 1, enums.PaymentStatusSucceeded)
	seedOrder(t, repo, "b@example.com", "10.00", 1, enums.PaymentStatusSucceeded)
	seedOrder(t, repo, "c@example.com", "20.00", 1, enums.PaymentStatusSucceeded)

	res, err := l.ListOrders(ctx, ListInput{Sort: "amount", Direction: "asc", Pagination: pagination.Params{Page: 1, Size: 2}})
	require.NoError(t, err)
	require.Len(t, res.Orders, 2)
	assert.Equal(t, "b@example.com", res.Orders[0].CustomerEmail)
	assert.Equal(t, "c@example.com", res.Orders[1].CustomerEmail)
	assert.Equal(t, 2, res.TotalPages)

	res, err = l.ListOrders(ctx, ListInput{Sort: "amount", Pagination: pagination.Params{Page: 2, Size: 2}})
	require.NoError(t, err)
	require.Len(t, res.Orders, 1)
	assert.Equal(t, "b@example.com", res.Orders[0].CustomerEmail)

	res, err = l.ListOrders(ctx, ListInput{Sort: "address_id", Pagination: pagination.Params{Page: -3, Size: 0}})
	require.NoError(t, err, "unknown sort falls back to the default")
	assert.Equal(t, 1, res.Page)
	assert.Equal(t, pagination.DefaultSize, res.Size)
	assert.Len(t, res.Orders, 3)
}

func TestGetOrder(t *testing.T) {
	l, repo, _ := newTestLedger(t)
	ctx := context.Background()
	order := seedOrder(t, repo, "a@example.com", "10.00", 1, enums.PaymentStatusSucceeded)

	dto, err := l.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.PaymentIntentID, dto.PaymentIntentID)
	require.NotNil(t, dto.Address)
	assert.Equal(t, "Springfield", dto.Address.City)

	_, err = l.GetOrder(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestCreateOrderDuplicatePaymentIntentIsConflict(t *testing.T) {
	_, repo, _ := newTestLedger(t)
	ctx := context.Background()
	order := seedOrder(t, repo, "a@example.com", "10.00", 1, enums.PaymentStatusSucceeded)

	dup := *order
	dup.ID = uuid.Nil
	err := repo.CreateOrder(ctx, &dup)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "got %v", err)
}

func TestUpdatePaymentStatusTransitions(t *testing.T) {
	l, repo, conn := newTestLedger(t)
	ctx := context.Background()
	order := seedOrder(t, repo, "a@example.com", "10.00", 1, enums.PaymentStatusSucceeded)

	same, err := l.UpdatePaymentStatus(ctx, order.PaymentIntentID, enums.PaymentStatusSucceeded)
	require.NoError(t, err)
	assert.Equal(t, "succeeded", same.PaymentStatus)

	_, err = l.UpdatePaymentStatus(ctx, order.PaymentIntentID, enums.PaymentStatusFailed)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict), "got %v", err)

	refunded, err := l.UpdatePaymentStatus(ctx, order.PaymentIntentID, enums.PaymentStatusRefunded)
	require.NoError(t, err)
	assert.Equal(t, "refunded", refunded.PaymentStatus)
	assert.True(t, refunded.Amount.Equal(order.Amount), "amount is never touched")

	var events []models.OutboxEvent
	require.NoError(t, conn.Find(&events).Error)
	require.Len(t, events, 1)
	assert.Equal(t, enums.EventOrderPaymentStatusChanged, events[0].EventType)

	_, err = l.UpdatePaymentStatus(ctx, "pi_unknown", enums.PaymentStatusRefunded)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	_, err = l.UpdatePaymentStatus(ctx, order.PaymentIntentID, "lost")
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestRepositoryUpdatePaymentStatusIsCompareAndSet(t *testing.T) {
	_, repo, _ := newTestLedger(t)
	ctx := context.Background()
	order := seedOrder(t, repo, "a@example.com", "10.00", 1, enums.PaymentStatusPending)

	require.NoError(t, repo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPending, enums.PaymentStatusFailed))
	err := repo.UpdatePaymentStatus(ctx, order.ID, enums.PaymentStatusPending, enums.PaymentStatusCanceled)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
}
