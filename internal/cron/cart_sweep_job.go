package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type CartSweepJobParams struct {
	Logger     *logger.Logger
	Repository abandonedCartRepo
	// MaxIdle should match the cart cookie lifetime; older carts are unreachable.
	MaxIdle time.Duration
}

type abandonedCartRepo interface {
	DeleteAbandoned(ctx context.Context, cutoff time.Time) (int64, error)
}

// NewCartSweepJob deletes open carts nobody can address anymore.
func NewCartSweepJob(params CartSweepJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Repository == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if params.MaxIdle <= 0 {
		return nil, fmt.Errorf("max idle must be positive")
	}
	return &cartSweepJob{
		logg:    params.Logger,
		repo:    params.Repository,
		maxIdle: params.MaxIdle,
		now:     time.Now,
	}, nil
}

type cartSweepJob struct {
	logg    *logger.Logger
	repo    abandonedCartRepo
	maxIdle time.Duration
	now     func() time.Time
}

func (j *cartSweepJob) Name() string { return "cart-sweep" }

func (j *cartSweepJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.maxIdle)
	deleted, err := j.repo.DeleteAbandoned(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("cart sweep: %w", err)
	}
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": deleted,
	}), "abandoned carts removed")
	return nil
}
