package batch

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const defaultBatchingInterval = 1 * time.Second

// Exporter receives the items gathered during one batching interval.
type Exporter[T any] func(ctx context.Context, items []T) error

// Batcher collects items and hands them to an exporter once per interval.
type Batcher[T any] struct {
	interval time.Duration
	maxSize  int
	export   Exporter[T]
	logger   zerolog.Logger

	lock  sync.Mutex
	data  []T
	flush chan struct{}
}

// New creates a Batcher. A non-positive interval falls back to one second; a
// positive maxSize triggers an early flush when that many items are pending.
func New[T any](interval time.Duration, maxSize int, export Exporter[T], logger zerolog.Logger) *Batcher[T] {
	if interval <= 0 {
		interval = defaultBatchingInterval
	}
	return &Batcher[T]{
		interval: interval,
		maxSize:  maxSize,
		export:   export,
		logger:   logger,
		flush:    make(chan struct{}, 1),
	}
}

// Push adds an item to the pending batch.
func (b *Batcher[T]) Push(item T) {
	b.lock.Lock()
	b.data = append(b.data, item)
	full := b.maxSize > 0 && len(b.data) >= b.maxSize
	b.lock.Unlock()
	if full {
		select {
		case b.flush <- struct{}{}:
		default:
		}
	}
}

// Pending returns the number of items waiting for the next flush.
func (b *Batcher[T]) Pending() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return len(b.data)
}

func (b *Batcher[T]) take() []T {
	b.lock.Lock()
	defer b.lock.Unlock()
	items := b.data
	b.data = nil
	return items
}

// Flush exports all pending items now.
func (b *Batcher[T]) Flush(ctx context.Context) error {
	items := b.take()
	if len(items) == 0 {
		return nil
	}
	return b.export(ctx, items)
}

// Run exports pending items after every interval until ctx is done, then
// performs a final flush with a fresh context.
func (b *Batcher[T]) Run(ctx context.Context) error {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return b.Flush(flushCtx)
		case <-ticker.C:
		case <-b.flush:
		}
		if err := b.Flush(ctx); err != nil {
			b.logger.Error().Err(err).Msg("batch export failed")
		}
	}
}
