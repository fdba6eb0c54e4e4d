package ratelimiter

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewRequestRateLimiter(t *testing.T) {
	setting := RateLimiterSetting{
		RequestCount: 100,
	}
	rateLimiter, err := NewRequestRateLimiter(setting)
	assert.NoError(t, err)
	assert.Equal(t, uint64(setting.RequestCount), rateLimiter.maxCount)
	assert.Equal(t, uint64(0), rateLimiter.requestCount)
}

func TestNewRequestRateLimiterInvalidCount(t *testing.T) {
	_, err := NewRequestRateLimiter(RateLimiterSetting{})
	assert.Error(t, err)
	_, err = NewRequestRateLimiter(RateLimiterSetting{RequestCount: -1})
	assert.Error(t, err)
}

func TestNewSelectsImplementation(t *testing.T) {
	rl, err := New(RateLimiterSetting{})
	assert.NoError(t, err)
	assert.IsType(t, &NoopRateLimiter{}, rl)

	rl, err = New(RateLimiterSetting{RequestCount: 5})
	assert.NoError(t, err)
	assert.IsType(t, &RequestRateLimiter{}, rl)
}

func TestIncRequestCount(t *testing.T) {
	rateLimiter, err := NewRequestRateLimiter(RateLimiterSetting{RequestCount: 100})
	assert.NoError(t, err)
	before := rateLimiter.requestCount
	rateLimiter.IncRequestCount()
	assert.Equal(t, before+1, rateLimiter.requestCount)
}

func TestResetRequestCount(t *testing.T) {
	rateLimiter, err := NewRequestRateLimiter(RateLimiterSetting{RequestCount: 100})
	assert.NoError(t, err)
	rateLimiter.IncRequestCount()
	rateLimiter.ResetRequestCount()
	assert.Equal(t, uint64(0), rateLimiter.requestCount)
}

func TestAcquire(t *testing.T) {
	rateLimiter, err := NewRequestRateLimiter(RateLimiterSetting{RequestCount: 1})
	assert.NoError(t, err)

	// Should allow 1 request
	ok, err := rateLimiter.Acquire()
	assert.True(t, ok)
	assert.NoError(t, err)

	// Should drop the second request as quota is exhausted
	ok, err = rateLimiter.Acquire()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestAcquireAfterShutdown(t *testing.T) {
	rateLimiter, err := NewRequestRateLimiter(RateLimiterSetting{RequestCount: 100})
	assert.NoError(t, err)
	rateLimiter.Shutdown(context.Background())
	rateLimiter.Shutdown(context.Background())
	ok, err := rateLimiter.Acquire()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestRun(t *testing.T) {
	rateLimiter, err := NewRequestRateLimiter(RateLimiterSetting{RequestCount: 100})
	assert.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	rateLimiter.ticker.Reset(50 * time.Millisecond)
	go rateLimiter.Run(ctx)
	rateLimiter.IncRequestCount()
	assert.Eventually(t, func() bool {
		return atomic.LoadUint64(&rateLimiter.requestCount) == 0
	}, 2*time.Second, 20*time.Millisecond)
	rateLimiter.Shutdown(ctx)
}

func TestNoopRateLimiter(t *testing.T) {
	var rl RateLimiter = &NoopRateLimiter{}
	for i := 0; i < 1000; i++ {
		ok, err := rl.Acquire()
		assert.True(t, ok)
		assert.NoError(t, err)
	}
}
