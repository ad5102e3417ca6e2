package stripewebhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/redis"
)

// deliveryScope namespaces claimed Stripe event ids under the storefront's
// idempotency keys.
const deliveryScope = "stripe-webhook"

var errEventIDRequired = errors.New("stripe event id is required")

// DeliveryGuard drops Stripe redeliveries of an event that is already being
// or has been handled. Claims expire after the configured webhook TTL; older
// replays fall through to the ledger's compare-and-set transitions.
type DeliveryGuard struct {
	store redis.IdempotencyStore
	ttl   time.Duration
	now   func() time.Time
}

// NewDeliveryGuard reads the claim lifetime from the checkout settings.
func NewDeliveryGuard(store redis.IdempotencyStore, cfg config.CheckoutConfig) (*DeliveryGuard, error) {
	if store == nil {
		return nil, errors.New("redis store required")
	}
	if cfg.WebhookIdempotencyTTL <= 0 {
		return nil, fmt.Errorf("webhook idempotency ttl must be positive, got %s", cfg.WebhookIdempotencyTTL)
	}
	return &DeliveryGuard{store: store, ttl: cfg.WebhookIdempotencyTTL, now: time.Now}, nil
}

// CheckAndMark claims eventID and reports true when an earlier delivery
// already holds the claim.
func (g *DeliveryGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	key, err := g.key(eventID)
	if err != nil {
		return false, err
	}
	claimed, err := g.store.SetNX(ctx, key, g.now().UTC().Format(time.RFC3339), g.ttl)
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim stripe event")
	}
	return !claimed, nil
}

// Delete releases the claim after a failed delivery so Stripe's retry is
// processed again.
func (g *DeliveryGuard) Delete(ctx context.Context, eventID string) error {
	key, err := g.key(eventID)
	if err != nil {
		return err
	}
	if err := g.store.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "release stripe event")
	}
	return nil
}

func (g *DeliveryGuard) key(eventID string) (string, error) {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return "", errEventIDRequired
	}
	return g.store.IdempotencyKey(deliveryScope, eventID), nil
}
