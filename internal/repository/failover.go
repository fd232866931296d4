package repository

import (
	"context"
	"sync/atomic"
	"time"

	"sunolegal/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverFlagStore serves from primary until it errors, then from fallback.
// The primary is tried again once recoveryInterval has passed.
type FailoverFlagStore struct {
	primary   domain.StateStore
	fallback  domain.StateStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
	now       func() time.Time
}

func NewFailoverFlagStore(primary, fallback domain.StateStore, logger *zerolog.Logger) *FailoverFlagStore {
	return &FailoverFlagStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
		now:      time.Now,
	}
}

// usePrimary reports whether the next call should try the primary store.
func (r *FailoverFlagStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return r.now().Sub(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverFlagStore) observe(err error) {
	if err == nil {
		if r.isDown.Swap(false) {
			r.logger.Info().Msg("primary flag store recovered")
		}
		return
	}
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("primary flag store failed, falling back to memory")
	}
	r.lastCheck.Store(r.now().UnixNano())
}

func (r *FailoverFlagStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r.usePrimary() {
		val, found, err := r.primary.Get(ctx, key)
		r.observe(err)
		if err == nil {
			return val, found, nil
		}
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverFlagStore) Set(ctx context.Context, key, value string) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, value)
		r.observe(err)
		if err == nil {
			return nil
		}
	}
	return r.fallback.Set(ctx, key, value)
}

func (r *FailoverFlagStore) Remove(ctx context.Context, key string) error {
	if r.usePrimary() {
		err := r.primary.Remove(ctx, key)
		r.observe(err)
		if err == nil {
			// keep the fallback from resurrecting the flag after a later outage
			_ = r.fallback.Remove(ctx, key)
			return nil
		}
	}
	return r.fallback.Remove(ctx, key)
}

func (r *FailoverFlagStore) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.usePrimary() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		r.observe(err)
		if err == nil {
			return allowed, nil
		}
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}
