package repository

import (
	"context"
	"sync/atomic"
	"time"

	"mareeba/internal/domain"
	"mareeba/internal/models"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache serves from Redis while it is healthy and
// degrades to the memory cache on errors, probing the primary again
// after a minute.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverAvailabilityCache) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary availability cache failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverAvailabilityCache) shouldProbe() bool {
	return time.Since(time.Unix(0, r.lastCheck.Load())) > time.Minute
}

func (r *FailoverAvailabilityCache) Get(ctx context.Context, date string) ([]models.SessionAvailability, bool, error) {
	if !r.isDown.Load() {
		rows, ok, err := r.primary.Get(ctx, date)
		if err == nil {
			return rows, ok, nil
		}
		r.markDown(err)
	} else if r.shouldProbe() {
		rows, ok, err := r.primary.Get(ctx, date)
		if err == nil {
			r.isDown.Store(false)
			return rows, ok, nil
		}
		r.lastCheck.Store(time.Now().UnixNano())
	}

	return r.fallback.Get(ctx, date)
}

func (r *FailoverAvailabilityCache) Set(ctx context.Context, date string, rows []models.SessionAvailability) error {
	if !r.isDown.Load() {
		err := r.primary.Set(ctx, date, rows)
		if err == nil {
			return nil
		}
		r.markDown(err)
	}

	return r.fallback.Set(ctx, date, rows)
}

func (r *FailoverAvailabilityCache) Invalidate(ctx context.Context, date string) error {
	// Both layers are cleared so a stale fallback entry cannot resurface
	// after recovery.
	var primaryErr error
	if !r.isDown.Load() {
		if primaryErr = r.primary.Invalidate(ctx, date); primaryErr != nil {
			r.markDown(primaryErr)
		}
	}

	return r.fallback.Invalidate(ctx, date)
}
