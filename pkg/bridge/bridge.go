// Package bridge forwards processor subscriptions to message brokers.
package bridge

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/yamcs/yamcs-client-go/api/processor"
	"github.com/yamcs/yamcs-client-go/internal/websocket"
	"github.com/yamcs/yamcs-client-go/model"
	"github.com/yamcs/yamcs-client-go/pkg/batch"
)

const defaultMaxBatch = 500

// Config selects what a Runner forwards.
type Config struct {
	Parameters []string      `yaml:"parameters,omitempty"`
	Alarms     bool          `yaml:"alarms,omitempty"`
	Format     string        `yaml:"format,omitempty"`
	Interval   time.Duration `yaml:"interval,omitempty"`
	MaxBatch   int           `yaml:"max_batch,omitempty"`
}

// Runner subscribes on a processor and forwards every update to a sink.
type Runner struct {
	processor *processor.ProcessorClient
	sink      Sink
	cfg       Config
	formatter *Formatter
	logger    zerolog.Logger
	batcher   *batch.Batcher[[]byte]
}

// NewRunner validates cfg.
func NewRunner(pc *processor.ProcessorClient, sink Sink, cfg Config, logger zerolog.Logger) (*Runner, error) {
	if len(cfg.Parameters) == 0 && !cfg.Alarms {
		return nil, fmt.Errorf("nothing to forward: specify parameters or alarms")
	}
	formatter, err := NewFormatter(cfg.Format, pc.Instance(), pc.Processor())
	if err != nil {
		return nil, err
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	r := &Runner{
		processor: pc,
		sink:      sink,
		cfg:       cfg,
		formatter: formatter,
		logger:    logger.With().Str("component", "bridge").Logger(),
	}
	r.batcher = batch.New[[]byte](cfg.Interval, cfg.MaxBatch, r.export, r.logger)
	return r, nil
}

func (r *Runner) export(ctx context.Context, msgs [][]byte) error {
	if bs, ok := r.sink.(BatchSink); ok {
		return bs.SendBatch(ctx, msgs)
	}
	var errs error
	for _, msg := range msgs {
		errs = multierr.Append(errs, r.sink.Send(ctx, msg))
	}
	return errs
}

func (r *Runner) onParameters(data *model.ParameterData) {
	msg, err := r.formatter.FormatParameters(data)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to format parameter data")
		return
	}
	if msg != nil {
		r.batcher.Push(msg)
	}
}

func (r *Runner) onAlarm(event *model.AlarmEvent) {
	msg, err := r.formatter.FormatAlarm(event)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to format alarm event")
		return
	}
	r.batcher.Push(msg)
}

// Run forwards updates until ctx is done or a subscription fails. Pending
// messages are flushed before it returns.
func (r *Runner) Run(ctx context.Context) error {
	var subs []*processor.Subscription
	cancelAll := func() {
		for _, s := range subs {
			s.Cancel()
		}
	}

	if len(r.cfg.Parameters) > 0 {
		sub, err := r.processor.CreateParameterSubscription(ctx, r.cfg.Parameters, r.onParameters)
		if err != nil {
			return fmt.Errorf("parameter subscription: %w", err)
		}
		subs = append(subs, sub.Subscription)
	}
	if r.cfg.Alarms {
		sub, err := r.processor.CreateAlarmSubscription(ctx, r.onAlarm)
		if err != nil {
			cancelAll()
			return fmt.Errorf("alarm subscription: %w", err)
		}
		subs = append(subs, sub.Subscription)
	}
	r.logger.Info().
		Strs("parameters", r.cfg.Parameters).
		Bool("alarms", r.cfg.Alarms).
		Str("format", r.formatter.Format()).
		Msg("bridge started")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return r.batcher.Run(gctx) })
	for _, s := range subs {
		s := s
		g.Go(func() error { return watch(gctx, s) })
	}
	err := g.Wait()
	r.logger.Info().Msg("bridge stopped")
	return err
}

// watch cancels s when ctx is done. A subscription ending on its own is an
// error since the bridge is meant to run until stopped.
func watch(ctx context.Context, s *processor.Subscription) error {
	select {
	case <-ctx.Done():
		s.Cancel()
		<-s.Done()
		return nil
	case <-s.Done():
		if err := s.Err(); err != nil {
			return err
		}
		return fmt.Errorf("subscription ended: %w", websocket.ErrClosed)
	}
}
