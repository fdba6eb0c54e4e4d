// Package wstest provides a scriptable Yamcs WebSocket server for tests.
package wstest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
)

// Request is a decoded client request frame.
type Request struct {
	Seq       int32
	Resource  string
	Operation string
	Data      json.RawMessage
}

// Conn is the server side of one client connection.
type Conn struct {
	ws   *websocket.Conn
	Path string
	mu   sync.Mutex
}

// ReadRequest blocks until the client sends a request frame.
func (c *Conn) ReadRequest() (*Request, error) {
	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var parts []json.RawMessage
	if err := json.Unmarshal(msg, &parts); err != nil {
		return nil, err
	}
	req := &Request{}
	if err := json.Unmarshal(parts[2], &req.Seq); err != nil {
		return nil, err
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(parts[3], &payload); err != nil {
		return nil, err
	}
	for key, value := range payload {
		if key == "data" {
			req.Data = value
			continue
		}
		req.Resource = key
		_ = json.Unmarshal(value, &req.Operation)
	}
	return req, nil
}

func (c *Conn) write(msgType int, seq int32, payload interface{}) error {
	b, err := json.Marshal([]interface{}{1, msgType, seq, payload})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteMessage(websocket.TextMessage, b)
}

// Reply answers request seq.
func (c *Conn) Reply(seq int32, replyType string, data interface{}) error {
	payload := map[string]interface{}{}
	if replyType != "" {
		payload["type"] = replyType
	}
	if data != nil {
		payload["data"] = data
	}
	return c.write(2, seq, payload)
}

// Exception fails request seq.
func (c *Conn) Exception(seq int32, excType, msg string) error {
	return c.write(3, seq, map[string]string{"et": excType, "msg": msg})
}

// Data pushes a DATA frame.
func (c *Conn) Data(seq int32, dataType string, data interface{}) error {
	return c.write(4, seq, map[string]interface{}{"dt": dataType, "data": data})
}

// Drain reads until the client goes away.
func (c *Conn) Drain() {
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

// Server is an httptest server upgrading every request to a WebSocket.
type Server struct {
	*httptest.Server
	wg sync.WaitGroup
}

// NewServer starts a server calling handle for each connection. The
// connection is closed when handle returns.
func NewServer(handle func(c *Conn)) *Server {
	return NewServerWithFallback("", nil, handle)
}

// NewServerWithFallback is NewServer for a server that also answers REST
// calls: only requests under prefix are upgraded, every other request goes
// to fallback.
func NewServerWithFallback(prefix string, fallback http.Handler, handle func(c *Conn)) *Server {
	s := &Server{}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fallback != nil && !strings.HasPrefix(r.URL.Path, prefix) {
			fallback.ServeHTTP(w, r)
			return
		}
		if r.Header.Get("Authorization") == "Bearer invalid" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		s.wg.Add(1)
		defer s.wg.Done()
		defer ws.Close()
		handle(&Conn{ws: ws, Path: r.URL.Path})
	}))
	return s
}

// URL returns the ws:// address of path on this server.
func (s *Server) URL(path string) string {
	return "ws" + strings.TrimPrefix(s.Server.URL, "http") + path
}

// Address is the host:port of the server.
func (s *Server) Address() string {
	return strings.TrimPrefix(s.Server.URL, "http://")
}

// Close shuts down the server and waits for connection handlers.
func (s *Server) Close() {
	s.Server.Close()
	s.wg.Wait()
}
