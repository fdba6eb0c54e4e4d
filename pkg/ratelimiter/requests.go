package ratelimiter

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

const resetInterval = 1 * time.Minute

// RequestRateLimiter caps the number of API requests per minute.
type RequestRateLimiter struct {
	requestCount uint64
	maxCount     uint64
	ticker       *time.Ticker
	shutdownCh   chan struct{}
	shutdownOnce sync.Once
}

// NewRequestRateLimiter creates a RateLimiter using RateLimiterSetting. The
// request count must be positive; use New to get a no-op limiter for 0.
func NewRequestRateLimiter(setting RateLimiterSetting) (*RequestRateLimiter, error) {
	if setting.RequestCount <= 0 {
		return nil, fmt.Errorf("invalid request count %d", setting.RequestCount)
	}
	return &RequestRateLimiter{
		maxCount:   uint64(setting.RequestCount),
		ticker:     time.NewTicker(resetInterval),
		shutdownCh: make(chan struct{}),
	}, nil
}

// IncRequestCount increments the request count by 1
func (rateLimiter *RequestRateLimiter) IncRequestCount() {
	atomic.AddUint64(&rateLimiter.requestCount, 1)
}

// ResetRequestCount resets the request count to 0
func (rateLimiter *RequestRateLimiter) ResetRequestCount() {
	atomic.StoreUint64(&rateLimiter.requestCount, 0)
}

// Acquire checks if the request count reached the maximum allocated quota per minute.
func (rateLimiter *RequestRateLimiter) Acquire() (bool, error) {
	select {
	case <-rateLimiter.shutdownCh:
		return false, fmt.Errorf("shutdown is called")
	default:
	}
	for {
		current := atomic.LoadUint64(&rateLimiter.requestCount)
		if current >= rateLimiter.maxCount {
			return false, fmt.Errorf("request quota of (%d) requests per min is exhausted for the interval", rateLimiter.maxCount)
		}
		if atomic.CompareAndSwapUint64(&rateLimiter.requestCount, current, current+1) {
			return true, nil
		}
	}
}

// Run starts the timer for resetting the request counter
func (rateLimiter *RequestRateLimiter) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			rateLimiter.Shutdown(ctx)
			return
		case <-rateLimiter.shutdownCh:
			return
		case <-rateLimiter.ticker.C:
			rateLimiter.ResetRequestCount()
		}
	}
}

// Shutdown triggers the shutdown of the RequestRateLimiter. It is safe to call more than once.
func (rateLimiter *RequestRateLimiter) Shutdown(_ context.Context) {
	rateLimiter.shutdownOnce.Do(func() {
		rateLimiter.ticker.Stop()
		close(rateLimiter.shutdownCh)
	})
}
