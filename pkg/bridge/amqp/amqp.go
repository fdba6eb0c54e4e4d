// Package amqp publishes bridge messages to a durable AMQP queue.
package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// Config holds the configuration of the AMQP sink.
type Config struct {
	URL   string `yaml:"url"`
	Queue string `yaml:"queue"`
}

type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

var errNotConnected = errors.New("not connected")

type dialFunc func(url, queue string) (*amqp.Connection, channel, error)

// Sink publishes every message to one queue of the default exchange.
type Sink struct {
	cfg    Config
	dial   dialFunc
	logger zerolog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   channel
}

func dial(url, queue string) (*amqp.Connection, channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return conn, ch, nil
}

// New connects to the broker and declares the queue.
func New(cfg Config, logger zerolog.Logger) (*Sink, error) {
	if cfg.URL == "" || cfg.Queue == "" {
		return nil, fmt.Errorf("amqp sink requires a url and a queue")
	}
	s := &Sink{
		cfg:    cfg,
		dial:   dial,
		logger: logger.With().Str("sink", "amqp").Str("queue", cfg.Queue).Logger(),
	}
	if err := s.connect(); err != nil {
		return nil, fmt.Errorf("error connecting to amqp broker: %w", err)
	}
	return s, nil
}

func (s *Sink) connect() error {
	conn, ch, err := s.dial(s.cfg.URL, s.cfg.Queue)
	if err != nil {
		return err
	}
	s.conn = conn
	s.ch = ch
	return nil
}

func (s *Sink) publish(msg []byte) error {
	if s.ch == nil {
		return errNotConnected
	}
	return s.ch.Publish(
		"",          // exchange
		s.cfg.Queue, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         msg,
		},
	)
}

// Send publishes msg. On failure, or after an earlier failed reconnect, it
// reconnects once and retries.
func (s *Sink) Send(ctx context.Context, msg []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.publish(msg)
	if err == nil {
		return nil
	}
	s.logger.Error().Err(err).Msg("failed to publish a message, reconnecting")
	s.closeLocked()
	if err := s.connect(); err != nil {
		return fmt.Errorf("reconnect failed: %w", err)
	}
	return s.publish(msg)
}

func (s *Sink) closeLocked() error {
	var err error
	if s.ch != nil {
		err = s.ch.Close()
		s.ch = nil
	}
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
		s.conn = nil
	}
	return err
}

// Close closes the channel and the connection.
func (s *Sink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closeLocked()
}
