package bridge

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/yamcs/yamcs-client-go/pkg/bridge/amqp"
	"github.com/yamcs/yamcs-client-go/pkg/bridge/eventhub"
	"github.com/yamcs/yamcs-client-go/pkg/bridge/mqtt"
)

// Sink kinds.
const (
	SinkDisplay  = "display"
	SinkMQTT     = "mqtt"
	SinkAMQP     = "amqp"
	SinkEventHub = "eventhub"
)

// Sink is a destination for forwarded messages.
type Sink interface {
	Send(ctx context.Context, msg []byte) error
	Close(ctx context.Context) error
}

// BatchSink is implemented by sinks that send many messages at once more
// efficiently than one by one.
type BatchSink interface {
	Sink
	SendBatch(ctx context.Context, msgs [][]byte) error
}

// SinkConfig selects and configures a sink.
type SinkConfig struct {
	Kind     string          `yaml:"kind"`
	MQTT     mqtt.Config     `yaml:"mqtt,omitempty"`
	AMQP     amqp.Config     `yaml:"amqp,omitempty"`
	EventHub eventhub.Config `yaml:"eventhub,omitempty"`
}

// NewSink creates the sink selected by cfg.Kind. The display sink writes to out.
func NewSink(cfg SinkConfig, out io.Writer, logger zerolog.Logger) (Sink, error) {
	var (
		sink Sink
		err  error
	)
	switch cfg.Kind {
	case "", SinkDisplay:
		return NewDisplaySink(out), nil
	case SinkMQTT:
		sink, err = mqtt.New(cfg.MQTT, logger)
	case SinkAMQP:
		sink, err = amqp.New(cfg.AMQP, logger)
	case SinkEventHub:
		sink, err = eventhub.New(cfg.EventHub, logger)
	default:
		return nil, fmt.Errorf("unknown sink %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	return sink, nil
}

// DisplaySink writes one message per line.
type DisplaySink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewDisplaySink writes to out.
func NewDisplaySink(out io.Writer) *DisplaySink {
	return &DisplaySink{out: out}
}

func (d *DisplaySink) Send(_ context.Context, msg []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, err := d.out.Write(msg); err != nil {
		return err
	}
	_, err := d.out.Write([]byte("\n"))
	return err
}

func (d *DisplaySink) Close(context.Context) error { return nil }
