// Package eventhub sends bridge messages to an Azure Event Hub.
package eventhub

import (
	"context"
	"errors"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azeventhubs"
	"github.com/rs/zerolog"
)

// Config holds the configuration of the Event Hubs sink. The connection
// string may carry the hub name as EntityPath, in which case EventHub can be
// left empty.
type Config struct {
	ConnectionString string `yaml:"connection_string"`
	EventHub         string `yaml:"event_hub,omitempty"`
	PartitionKey     string `yaml:"partition_key,omitempty"`
}

type eventBatch interface {
	AddEventData(ed *azeventhubs.EventData, options *azeventhubs.AddEventDataOptions) error
	NumEvents() int32
}

type producer interface {
	NewEventDataBatch(ctx context.Context, options *azeventhubs.EventDataBatchOptions) (eventBatch, error)
	SendEventDataBatch(ctx context.Context, batch eventBatch) error
	Close(ctx context.Context) error
}

type producerClient struct {
	client *azeventhubs.ProducerClient
}

func (p producerClient) NewEventDataBatch(ctx context.Context, options *azeventhubs.EventDataBatchOptions) (eventBatch, error) {
	batch, err := p.client.NewEventDataBatch(ctx, options)
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (p producerClient) SendEventDataBatch(ctx context.Context, batch eventBatch) error {
	return p.client.SendEventDataBatch(ctx, batch.(*azeventhubs.EventDataBatch), nil)
}

func (p producerClient) Close(ctx context.Context) error {
	return p.client.Close(ctx)
}

// Sink packs messages into event data batches.
type Sink struct {
	producer     producer
	batchOptions *azeventhubs.EventDataBatchOptions
	logger       zerolog.Logger
}

// New creates a producer client.
func New(cfg Config, logger zerolog.Logger) (*Sink, error) {
	if cfg.ConnectionString == "" {
		return nil, fmt.Errorf("eventhub sink requires a connection string")
	}
	client, err := azeventhubs.NewProducerClientFromConnectionString(cfg.ConnectionString, cfg.EventHub, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer client: %w", err)
	}
	opts := &azeventhubs.EventDataBatchOptions{}
	if cfg.PartitionKey != "" {
		key := cfg.PartitionKey
		opts.PartitionKey = &key
	}
	return &Sink{
		producer:     producerClient{client: client},
		batchOptions: opts,
		logger:       logger.With().Str("sink", "eventhub").Logger(),
	}, nil
}

// Send sends a single message.
func (s *Sink) Send(ctx context.Context, msg []byte) error {
	return s.SendBatch(ctx, [][]byte{msg})
}

// SendBatch packs msgs into as few batches as possible. A full batch is sent
// and a new one started; a message too large for an empty batch fails the
// call.
func (s *Sink) SendBatch(ctx context.Context, msgs [][]byte) error {
	batch, err := s.producer.NewEventDataBatch(ctx, s.batchOptions)
	if err != nil {
		return fmt.Errorf("failed to create event data batch: %w", err)
	}

	for i := 0; i < len(msgs); {
		err := batch.AddEventData(&azeventhubs.EventData{Body: msgs[i]}, nil)
		switch {
		case err == nil:
			i++
		case errors.Is(err, azeventhubs.ErrEventDataTooLarge):
			if batch.NumEvents() == 0 {
				return fmt.Errorf("message of %d bytes is too large for an event batch: %w", len(msgs[i]), err)
			}
			if err := s.producer.SendEventDataBatch(ctx, batch); err != nil {
				return fmt.Errorf("failed to send event data batch: %w", err)
			}
			s.logger.Debug().Int32("events", batch.NumEvents()).Msg("event batch sent")
			if batch, err = s.producer.NewEventDataBatch(ctx, s.batchOptions); err != nil {
				return fmt.Errorf("failed to create event data batch: %w", err)
			}
		default:
			return fmt.Errorf("failed to add event data: %w", err)
		}
	}

	if batch.NumEvents() > 0 {
		if err := s.producer.SendEventDataBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to send event data batch: %w", err)
		}
		s.logger.Debug().Int32("events", batch.NumEvents()).Msg("event batch sent")
	}
	return nil
}

// Close closes the producer client.
func (s *Sink) Close(ctx context.Context) error {
	return s.producer.Close(ctx)
}
