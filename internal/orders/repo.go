package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/query"
)

// PaymentIntentConstraint is the unique index that makes order creation
// idempotent per payment intent.
const PaymentIntentConstraint = "ux_orders_payment_intent_id"

// ListSchema is the allow-list of filters and sort fields for the ledger.
var ListSchema = query.Schema{
	Fields: map[string]query.Field{
		"email": {
			Column:    "customer_email",
			Kind:      query.KindString,
			Operators: []query.Operator{query.OpContains, query.OpEq},
			Normalize: func(v string) (string, error) { return strings.ToLower(strings.TrimSpace(v)), nil },
		},
		"payment_status": {
			Column:    "payment_status",
			Kind:      query.KindString,
			Operators: []query.Operator{query.OpIn, query.OpEq},
			Normalize: func(v string) (string, error) {
				status, err := enums.ParsePaymentStatus(v)
				return string(status), err
			},
		},
		"created_at": {
			Column:    "created_at",
			Kind:      query.KindTime,
			Operators: []query.Operator{query.OpGte, query.OpLte},
		},
	},
	SortColumns: map[string]string{
		"created_at":     "created_at",
		"amount":         "amount",
		"quantity":       "quantity",
		"customer_email": "customer_email",
		"payment_status": "payment_status",
	},
	DefaultSort: query.Sort{Field: "created_at", Desc: true},
}

type repository struct {
	repo.Base
}

// NewRepository builds an orders repository on conn.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{Base: repo.NewBase(conn)}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{Base: r.Bind(tx)}
}

func (r *repository) CreateAddress(ctx context.Context, address *models.Address) error {
	if err := r.DB(ctx).Create(address).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create address")
	}
	return nil
}

// CreateOrder inserts order. A second order for the same payment intent is
// reported as CONFLICT so checkout can resolve it to the existing order.
func (r *repository) CreateOrder(ctx context.Context, order *models.Order) error {
	if err := r.DB(ctx).Omit("Address").Create(order).Error; err != nil {
		if db.IsUniqueViolation(err, PaymentIntentConstraint) {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order already exists for payment intent").
				WithDetails(map[string]any{"payment_intent_id": order.PaymentIntentID})
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
	}
	return nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Preload("Address").First(&order, "id = ?", id).Error
	if err != nil {
		return nil, translateFind(err, map[string]any{"order_id": id})
	}
	return &order, nil
}

func (r *repository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Order, error) {
	var order models.Order
	err := r.DB(ctx).Preload("Address").First(&order, "payment_intent_id = ?", paymentIntentID).Error
	if err != nil {
		return nil, translateFind(err, map[string]any{"payment_intent_id": paymentIntentID})
	}
	return &order, nil
}

// UpdatePaymentStatus moves the status only if it still equals from.
func (r *repository) UpdatePaymentStatus(ctx context.Context, id uuid.UUID, from, to enums.PaymentStatus) error {
	res := r.DB(ctx).
		Model(&models.Order{}).
		Where("id = ? AND payment_status = ?", id, from).
		Update("payment_status", to)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update payment status")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment status changed concurrently").
			WithDetails(map[string]any{"order_id": id, "expected": from})
	}
	return nil
}

func (r *repository) List(ctx context.Context, filters []query.Filter, sort query.Sort, params pagination.Params) ([]models.Order, int64, error) {
	base, err := ListSchema.Apply(r.DB(ctx).Model(&models.Order{}), filters)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := base.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count orders")
	}

	var rows []models.Order
	params = params.Normalize()
	if err := ListSchema.ApplySort(base.Session(&gorm.Session{}), sort).
		Preload("Address").
		Offset(params.Offset()).
		Limit(params.Limit()).
		Find(&rows).Error; err != nil {
		return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, total, nil
}

func translateFind(err error, details map[string]any) error {
	if db.IsNotFound(err) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "order not found").WithDetails(details)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
}
