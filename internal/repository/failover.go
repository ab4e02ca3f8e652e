package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"shareit/internal/domain"

	"github.com/rs/zerolog"
)

const defaultRecoveryInterval = time.Minute

// FailoverRateLimiter uses primary until it fails, then serves from fallback
// and retries primary once per recovery interval.
type FailoverRateLimiter struct {
	primary  domain.RateLimiter
	fallback domain.RateLimiter
	logger   *zerolog.Logger
	isDown   atomic.Bool

	mu               sync.Mutex
	lastCheck        time.Time
	recoveryInterval time.Duration
}

func NewFailoverRateLimiter(primary, fallback domain.RateLimiter, logger *zerolog.Logger) *FailoverRateLimiter {
	return &FailoverRateLimiter{
		primary:          primary,
		fallback:         fallback,
		logger:           logger,
		recoveryInterval: defaultRecoveryInterval,
	}
}

func (r *FailoverRateLimiter) CheckRateLimit(ctx context.Context, userID int64, limit int, window time.Duration) (bool, error) {
	if !r.isDown.Load() || r.recoveryDue() {
		allowed, err := r.primary.CheckRateLimit(ctx, userID, limit, window)
		if err == nil {
			if r.isDown.CompareAndSwap(true, false) {
				r.logger.Info().Msg("Primary rate limiter recovered")
			}
			return allowed, nil
		}
		if !r.isDown.Swap(true) {
			r.logger.Error().Err(err).Msg("Primary rate limiter failed, falling back to memory")
		}
		r.markChecked()
	}

	return r.fallback.CheckRateLimit(ctx, userID, limit, window)
}

// Degraded reports whether requests are currently served by the fallback.
func (r *FailoverRateLimiter) Degraded() bool {
	return r.isDown.Load()
}

func (r *FailoverRateLimiter) recoveryDue() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return time.Since(r.lastCheck) > r.recoveryInterval
}

func (r *FailoverRateLimiter) markChecked() {
	r.mu.Lock()
	r.lastCheck = time.Now()
	r.mu.Unlock()
}
