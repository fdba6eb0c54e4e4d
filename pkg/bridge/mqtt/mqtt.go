// Package mqtt publishes bridge messages to an MQTT broker.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"

	pmqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	defaultQoS        = 1
	disconnectQuiesce = 250
)

// Config holds the configuration of the MQTT sink.
type Config struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	QoS      *byte  `yaml:"qos,omitempty"`
	Insecure bool   `yaml:"insecure,omitempty"`
}

type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) pmqtt.Token
	Disconnect(quiesce uint)
}

// Sink publishes every message on one topic.
type Sink struct {
	client publisher
	topic  string
	qos    byte
	logger zerolog.Logger
}

// New connects to the broker.
func New(cfg Config, logger zerolog.Logger) (*Sink, error) {
	if cfg.Broker == "" || cfg.Topic == "" {
		return nil, fmt.Errorf("mqtt sink requires a broker and a topic")
	}
	clientID := cfg.ClientID
	if clientID == "" {
		clientID = "yamcs-bridge-" + uuid.NewString()
	}
	logger = logger.With().Str("sink", "mqtt").Str("broker", cfg.Broker).Logger()

	opts := pmqtt.NewClientOptions().
		AddBroker(cfg.Broker).
		SetClientID(clientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ pmqtt.Client, err error) {
			logger.Warn().Err(err).Msg("connection lost")
		}).
		SetOnConnectHandler(func(pmqtt.Client) {
			logger.Info().Msg("connected to mqtt broker")
		})
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username).SetPassword(cfg.Password)
	}
	if cfg.Insecure {
		opts.SetTLSConfig(&tls.Config{InsecureSkipVerify: true})
	}

	client := pmqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("error connecting to mqtt broker %s: %w", cfg.Broker, token.Error())
	}
	return newSink(client, cfg, logger), nil
}

func newSink(client publisher, cfg Config, logger zerolog.Logger) *Sink {
	qos := byte(defaultQoS)
	if cfg.QoS != nil {
		qos = *cfg.QoS
	}
	return &Sink{client: client, topic: cfg.Topic, qos: qos, logger: logger}
}

// Send publishes msg and waits for the broker acknowledgment.
func (s *Sink) Send(ctx context.Context, msg []byte) error {
	token := s.client.Publish(s.topic, s.qos, false, msg)
	select {
	case <-token.Done():
		if err := token.Error(); err != nil {
			return fmt.Errorf("error publishing on %s: %w", s.topic, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close disconnects from the broker.
func (s *Sink) Close(context.Context) error {
	s.client.Disconnect(disconnectQuiesce)
	s.logger.Info().Msg("disconnected from mqtt broker")
	return nil
}
