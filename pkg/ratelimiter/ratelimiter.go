// Package ratelimiter caps the rate of HTTP requests a client sends to Yamcs.
package ratelimiter

import (
	"context"
)

// RateLimiter is consulted by the HTTP session before every request.
type RateLimiter interface {
	IncRequestCount()
	Acquire() (bool, error)
	ResetRequestCount()
	Run(context.Context)
	Shutdown(context.Context)
}

// RateLimiterSetting is the per-minute request quota. Zero or less disables
// limiting.
type RateLimiterSetting struct {
	RequestCount int
}

// New returns a RequestRateLimiter when a quota is configured and a
// NoopRateLimiter otherwise.
func New(setting RateLimiterSetting) (RateLimiter, error) {
	if setting.RequestCount <= 0 {
		return &NoopRateLimiter{}, nil
	}
	return NewRequestRateLimiter(setting)
}

// NoopRateLimiter lets every request through.
type NoopRateLimiter struct{}

func (n *NoopRateLimiter) IncRequestCount() {}

func (n *NoopRateLimiter) Acquire() (bool, error) { return true, nil }

func (n *NoopRateLimiter) ResetRequestCount() {}

func (n *NoopRateLimiter) Run(context.Context) {}

func (n *NoopRateLimiter) Shutdown(context.Context) {}
