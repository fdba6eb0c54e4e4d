package websocket

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/yamcs/yamcs-client-go/model"
)

const (
	handshakeTimeout = 10 * time.Second
	writeTimeout     = 10 * time.Second
)

// Handler is called for every REPLY and DATA frame, on the reader goroutine,
// in arrival order.
type Handler func(Frame)

// Config configures a Manager.
type Config struct {
	URL       string
	Header    http.Header
	TLSConfig *tls.Config
	Logger    zerolog.Logger
}

// Manager owns a single WebSocket connection used by one subscription.
type Manager struct {
	cfg     Config
	dialer  *websocket.Dialer
	conn    *websocket.Conn
	writeMu sync.Mutex
	closing atomic.Bool
	future  *Future
}

// NewManager creates an unconnected manager.
func NewManager(cfg Config) *Manager {
	return &Manager{
		cfg: cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
			TLSClientConfig:  cfg.TLSConfig,
		},
	}
}

// Open connects and starts the reader goroutine.
func (m *Manager) Open(ctx context.Context, handler Handler) (*Future, error) {
	conn, resp, err := m.dialer.DialContext(ctx, m.cfg.URL, m.cfg.Header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return nil, model.ErrUnauthorized
		}
		if resp != nil {
			return nil, &model.APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return nil, fmt.Errorf("connection to %s refused: %w: %w", m.cfg.URL, model.ErrConnectionFailure, err)
	}
	m.conn = conn
	m.future = newFuture(func() { _ = m.Close() })
	go m.read(handler)
	m.cfg.Logger.Debug().Str("url", m.cfg.URL).Msg("websocket connected")
	return m.future, nil
}

// Send writes a request frame {"<resource>": "<operation>", "data": data}.
func (m *Manager) Send(resource, operation string, data interface{}) (int32, error) {
	if m.conn == nil {
		return 0, ErrClosed
	}
	frame, err := requestFrame(resource, operation, data)
	if err != nil {
		return 0, err
	}
	b, err := json.Marshal(frame)
	if err != nil {
		return 0, err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	_ = m.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := m.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return 0, fmt.Errorf("error in sending %s request: %w", resource, err)
	}
	return frame.Seq, nil
}

// Close closes the connection. The reader goroutine exits shortly after.
func (m *Manager) Close() error {
	if m.conn == nil || !m.closing.CompareAndSwap(false, true) {
		return nil
	}
	m.writeMu.Lock()
	deadline := time.Now().Add(time.Second)
	_ = m.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	m.writeMu.Unlock()
	return m.conn.Close()
}

func (m *Manager) read(handler Handler) {
	logger := m.cfg.Logger
	for {
		_, msg, err := m.conn.ReadMessage()
		if err != nil {
			if m.closing.Load() || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				m.future.finish(nil)
			} else {
				logger.Warn().Err(err).Str("url", m.cfg.URL).Msg("websocket connection lost")
				m.future.finish(fmt.Errorf("%w: %w", model.ErrConnectionFailure, err))
			}
			_ = m.conn.Close()
			return
		}

		var frame Frame
		if err := json.Unmarshal(msg, &frame); err != nil {
			logger.Warn().Err(err).Msg("dropping websocket message")
			continue
		}

		switch frame.Type {
		case MessageTypeReply:
			reply, err := frame.Reply()
			if err != nil {
				logger.Warn().Err(err).Msg("dropping websocket reply")
				continue
			}
			m.future.resolve(reply, nil)
			handler(frame)
		case MessageTypeException:
			exc := frame.Exception()
			if m.future.resolve(nil, exc) {
				logger.Error().Str("type", exc.Type).Msg(exc.Msg)
				m.future.finish(exc)
				_ = m.Close()
				continue
			}
			logger.Warn().Str("type", exc.Type).Msg(exc.Msg)
		case MessageTypeData:
			handler(frame)
		default:
			logger.Debug().Int("type", frame.Type).Msg("ignoring websocket message")
		}
	}
}

// IsException reports whether err was raised by the server over the WebSocket.
func IsException(err error) bool {
	var exc *Exception
	return errors.As(err, &exc)
}
