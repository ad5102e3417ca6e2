package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/storefront-backend/internal/repo"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// Repository persists carts. Every mutation is a conditional update guarded by
// closed = false, so a close that commits first always wins.
type Repository struct {
	repo.Base
}

// NewRepository constructs a cart repository bound to the provided DB.
func NewRepository(conn *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(conn)}
}

// WithTx binds the repository to a transaction.
func (r *Repository) WithTx(tx *gorm.DB) CartRepository {
	if tx == nil {
		return r
	}
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	return r.first(r.DB(ctx), "id = ?", id)
}

// FindByIDForUpdate loads the cart and, on Postgres, holds a row lock until
// the surrounding transaction ends.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error) {
	return r.first(r.locked(ctx), "id = ?", id)
}

func (r *Repository) FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Cart, error) {
	return r.first(r.DB(ctx), "payment_intent_id = ?", paymentIntentID)
}

// FindByPaymentIntentForUpdate is FindByPaymentIntent holding the row lock.
// Concurrent confirmations of one intent queue here instead of racing on
// product rows.
func (r *Repository) FindByPaymentIntentForUpdate(ctx context.Context, paymentIntentID string) (*models.Cart, error) {
	return r.first(r.locked(ctx), "payment_intent_id = ?", paymentIntentID)
}

func (r *Repository) locked(ctx context.Context) *gorm.DB {
	q := r.DB(ctx)
	if q.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (r *Repository) first(q *gorm.DB, where string, arg any) (*models.Cart, error) {
	var cart models.Cart
	if err := q.Where(where, arg).First(&cart).Error; err != nil {
		if db.IsNotFound(err) {
			return nil, cartNotFound()
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return &cart, nil
}

func (r *Repository) Create(ctx context.Context, cart *models.Cart) error {
	if err := r.DB(ctx).Create(cart).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return nil
}

// SaveItems replaces the line items of an open cart.
func (r *Repository) SaveItems(ctx context.Context, id uuid.UUID, items types.CartItems) error {
	if items == nil {
		items = types.CartItems{}
	}
	return r.updateOpen(ctx, id, "save cart items", map[string]any{"items": items})
}

// AttachPaymentIntent records the provider intent on an open cart.
func (r *Repository) AttachPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID, clientSecret string, amountMinor int64) error {
	return r.updateOpen(ctx, id, "attach payment intent", map[string]any{
		"payment_intent_id":    paymentIntentID,
		"client_secret":        clientSecret,
		"payment_amount_minor": amountMinor,
	})
}

// SetPaymentAmount records that the attached intent was repriced.
func (r *Repository) SetPaymentAmount(ctx context.Context, id uuid.UUID, amountMinor int64) error {
	return r.updateOpen(ctx, id, "set payment amount", map[string]any{"payment_amount_minor": amountMinor})
}

// Close moves an open cart to its terminal state and clears its items.
func (r *Repository) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND closed = ?", id, false).
		Updates(map[string]any{
			"closed":    true,
			"closed_at": at.UTC(),
			"items":     types.CartItems{},
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "close cart")
	}
	if res.RowsAffected == 1 {
		return nil
	}
	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return cartNotFound()
	}
	return pkgerrors.New(pkgerrors.CodeAlreadyClosed, "cart already closed").
		WithDetails(map[string]any{"cart_id": id})
}

// DeleteAbandoned removes open carts untouched since cutoff. Carts with an
// attached payment intent are kept so a late payment can still confirm.
func (r *Repository) DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.DB(ctx).
		Where("closed = ? AND payment_intent_id IS NULL AND updated_at < ?", false, cutoff.UTC()).
		Delete(&models.Cart{})
	if res.Error != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "delete abandoned carts")
	}
	return res.RowsAffected, nil
}

func (r *Repository) updateOpen(ctx context.Context, id uuid.UUID, action string, values map[string]any) error {
	res := r.DB(ctx).
		Model(&models.Cart{}).
		Where("id = ? AND closed = ?", id, false).
		Updates(values)
	if res.Error != nil {
		if db.IsUniqueViolation(res.Error, "ux_carts_payment_intent_id") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, res.Error, "payment intent already attached to another cart")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, action)
	}
	if res.RowsAffected == 1 {
		return nil
	}
	exists, err := r.exists(ctx, id)
	if err != nil {
		return err
	}
	if !exists {
		return cartNotFound()
	}
	return cartClosed(id)
}

func (r *Repository) exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var count int64
	if err := r.DB(ctx).Model(&models.Cart{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check cart")
	}
	return count > 0, nil
}

func cartNotFound() error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "cart not found").
		WithDetails(map[string]any{"reason": "cart"})
}

func cartClosed(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeCartClosed, "cart is closed").
		WithDetails(map[string]any{"cart_id": id})
}

// IsCartNotFound reports whether err is the missing-cart condition.
func IsCartNotFound(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		return false
	}
	details, ok := typed.Details().(map[string]any)
	return ok && details["reason"] == "cart"
}
