package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

type fakeCartSweepRepo struct {
	cutoff time.Time
	err    error
}

func (f *fakeCartSweepRepo) DeleteAbandoned(_ context.Context, cutoff time.Time) (int64, error) {
	f.cutoff = cutoff
	return 3, f.err
}

func TestCartSweepJobUsesIdleWindow(t *testing.T) {
	repo := &fakeCartSweepRepo{}
	jobIface, err := NewCartSweepJob(CartSweepJobParams{Logger: logger.Nop(), Repository: repo, MaxIdle: 720 * time.Hour})
	require.NoError(t, err)
	job := jobIface.(*cartSweepJob)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job.now = func() time.Time { return now }

	require.NoError(t, job.Run(context.Background()))
	assert.True(t, repo.cutoff.Equal(now.Add(-720*time.Hour)))
	assert.Equal(t, "cart-sweep", job.Name())
}

func TestCartSweepJobWrapsRepositoryError(t *testing.T) {
	jobIface, err := NewCartSweepJob(CartSweepJobParams{
		Logger:     logger.Nop(),
		Repository: &fakeCartSweepRepo{err: errors.New("db down")},
		MaxIdle:    time.Hour,
	})
	require.NoError(t, err)
	assert.ErrorContains(t, jobIface.Run(context.Background()), "cart sweep")
}

func TestCartSweepJobRequiresIdleWindow(t *testing.T) {
	_, err := NewCartSweepJob(CartSweepJobParams{Logger: logger.Nop(), Repository: &fakeCartSweepRepo{}})
	assert.Error(t, err)
}
