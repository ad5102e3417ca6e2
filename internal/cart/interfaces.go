package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

// CartRepository defines the persistence surface required by the cart manager
// and the checkout flow.
type CartRepository interface {
	WithTx(tx *gorm.DB) CartRepository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Cart, error)
	FindByPaymentIntent(ctx context.Context, paymentIntentID string) (*models.Cart, error)
	FindByPaymentIntentForUpdate(ctx context.Context, paymentIntentID string) (*models.Cart, error)
	Create(ctx context.Context, cart *models.Cart) error
	SaveItems(ctx context.Context, id uuid.UUID, items types.CartItems) error
	AttachPaymentIntent(ctx context.Context, id uuid.UUID, paymentIntentID, clientSecret string, amountMinor int64) error
	SetPaymentAmount(ctx context.Context, id uuid.UUID, amountMinor int64) error
	Close(ctx context.Context, id uuid.UUID, at time.Time) error
}
