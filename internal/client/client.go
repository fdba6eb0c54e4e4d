package client

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/yamcs/yamcs-client-go/model"
	rateLimiter "github.com/yamcs/yamcs-client-go/pkg/ratelimiter"
	"github.com/yamcs/yamcs-client-go/utils"
)

const (
	defaultPort           = "8090"
	defaultRequestTimeout = 30 * time.Second
	contentTypeJSON       = "application/json"
	headerRequestID       = "X-Request-Id"
)

// Config configures a Session.
type Config struct {
	Address       string
	TLS           bool
	TLSConfig     *tls.Config
	HTTPClient    *http.Client
	Timeout       time.Duration
	Credentials   *model.Credentials
	UserAgent     string
	OnTokenUpdate func(model.Credentials)
	RateLimiter   rateLimiter.RateLimiter
	Logger        zerolog.Logger
}

// RequestConfig describes a single API request. Uri is relative to the API
// root, e.g. "/instances".
type RequestConfig struct {
	Method      string
	Uri         string
	Query       url.Values
	Body        []byte
	ContentType string
	Headers     map[string]string
}

// Session is an HTTP session against one Yamcs server. It is safe for
// concurrent use.
type Session struct {
	client        *http.Client
	address       string
	apiRoot       string
	authRoot      string
	wsRoot        string
	tlsConfig     *tls.Config
	userAgent     string
	rateLimiter   rateLimiter.RateLimiter
	logger        zerolog.Logger
	onTokenUpdate func(model.Credentials)

	refreshMu   sync.Mutex
	mu          sync.Mutex
	credentials *model.Credentials
	now         func() time.Time
}

// Client returns the default HTTP client used by sessions.
func Client() *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: false, MinVersion: tls.VersionTLS12}
	return &http.Client{Transport: transport, Timeout: defaultRequestTimeout}
}

// NormalizeAddress appends the default Yamcs port when address has none.
func NormalizeAddress(address string) string {
	if strings.Contains(address, ":") {
		return address
	}
	return address + ":" + defaultPort
}

// NewSession creates a session. Username/password credentials are exchanged
// for bearer tokens immediately.
func NewSession(ctx context.Context, cfg Config) (*Session, error) {
	if cfg.Address == "" {
		return nil, fmt.Errorf("missing Yamcs address")
	}
	address := NormalizeAddress(cfg.Address)
	httpScheme, wsScheme := "http", "ws"
	if cfg.TLS {
		httpScheme, wsScheme = "https", "wss"
	}

	s := &Session{
		client:        cfg.HTTPClient,
		address:       address,
		apiRoot:       fmt.Sprintf("%s://%s/api", httpScheme, address),
		authRoot:      fmt.Sprintf("%s://%s/auth", httpScheme, address),
		wsRoot:        fmt.Sprintf("%s://%s/_websocket", wsScheme, address),
		tlsConfig:     cfg.TLSConfig,
		userAgent:     cfg.UserAgent,
		rateLimiter:   cfg.RateLimiter,
		logger:        cfg.Logger,
		onTokenUpdate: cfg.OnTokenUpdate,
		now:           time.Now,
	}
	if s.client == nil {
		s.client = Client()
		if cfg.TLSConfig != nil {
			s.client.Transport.(*http.Transport).TLSClientConfig = cfg.TLSConfig
		}
		if cfg.Timeout > 0 {
			s.client.Timeout = cfg.Timeout
		}
	}
	if s.userAgent == "" {
		s.userAgent = utils.BuildUserAgent()
	}
	if s.rateLimiter == nil {
		s.rateLimiter = &rateLimiter.NoopRateLimiter{}
	}

	if cfg.Credentials != nil {
		creds := *cfg.Credentials
		s.credentials = &creds
		if creds.HasPassword() {
			if err := s.login(ctx, creds.Username, creds.Password); err != nil {
				return nil, err
			}
		} else if creds.AccessToken != "" && creds.Expiry.IsZero() {
			if exp, ok := utils.TokenExpiry(creds.AccessToken); ok {
				s.credentials.Expiry = exp
			}
		}
	}
	return s, nil
}

// Address is the host:port of the server.
func (s *Session) Address() string { return s.address }

// APIRoot is the base URL of the REST API.
func (s *Session) APIRoot() string { return s.apiRoot }

// WebSocketRoot is the base URL of the WebSocket API.
func (s *Session) WebSocketRoot() string { return s.wsRoot }

// TLSConfig is the TLS configuration for WebSocket dials.
func (s *Session) TLSConfig() *tls.Config { return s.tlsConfig }

// Logger returns the session logger.
func (s *Session) Logger() zerolog.Logger { return s.logger }

// UserAgent sent with every request.
func (s *Session) UserAgent() string { return s.userAgent }

// Credentials returns a copy of the current credentials, or nil.
func (s *Session) Credentials() *model.Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credentials == nil {
		return nil
	}
	c := *s.credentials
	return &c
}

// Headers returns the headers to send with a request, refreshing the access
// token first when it is expired.
func (s *Session) Headers(ctx context.Context) (http.Header, error) {
	h := http.Header{}
	h.Set("User-Agent", s.userAgent)

	if s.expiredToken() != "" {
		if err := s.refreshExpired(ctx); err != nil {
			return nil, err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credentials != nil && s.credentials.AccessToken != "" {
		h.Set("Authorization", "Bearer "+s.credentials.AccessToken)
	}
	return h, nil
}

// expiredToken returns the refresh token when the access token is expired.
func (s *Session) expiredToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.credentials == nil || !s.credentials.IsExpired(s.now()) {
		return ""
	}
	return s.credentials.RefreshToken
}

// refreshExpired refreshes the access token once for all callers that saw it
// expire.
func (s *Session) refreshExpired(ctx context.Context) error {
	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()
	refreshToken := s.expiredToken()
	if refreshToken == "" {
		return nil
	}
	return s.refresh(ctx, refreshToken)
}

// MakeRequest sends a request to the API and returns the response for 2xx
// statuses. The caller must close the response body.
func (s *Session) MakeRequest(ctx context.Context, reqConfig RequestConfig) (*http.Response, error) {
	fullURL := s.apiRoot + reqConfig.Uri
	if len(reqConfig.Query) > 0 {
		fullURL += "?" + reqConfig.Query.Encode()
	}

	var body io.Reader
	if reqConfig.Body != nil {
		body = bytes.NewReader(reqConfig.Body)
	}
	req, err := http.NewRequestWithContext(ctx, reqConfig.Method, fullURL, body)
	if err != nil {
		return nil, err
	}

	headers, err := s.Headers(ctx)
	if err != nil {
		return nil, err
	}
	req.Header = headers
	req.Header.Set("Accept", contentTypeJSON)
	req.Header.Set(headerRequestID, uuid.NewString())
	if reqConfig.Body != nil {
		contentType := reqConfig.ContentType
		if contentType == "" {
			contentType = contentTypeJSON
		}
		req.Header.Set("Content-Type", contentType)
	}
	for key, value := range reqConfig.Headers {
		req.Header.Set(key, value)
	}

	if acquire, err := s.rateLimiter.Acquire(); !acquire {
		return nil, err
	}

	s.logger.Debug().
		Str("method", reqConfig.Method).
		Str("uri", reqConfig.Uri).
		Str("request_id", req.Header.Get(headerRequestID)).
		Msg("yamcs request")

	httpResp, err := s.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("connection to %s refused: %w: %w", s.address, model.ErrConnectionFailure, err)
	}
	if err := utils.ConvertHTTPToError(httpResp); err != nil {
		return nil, err
	}
	return httpResp, nil
}

// DoJSON sends in (when non-nil) as JSON and decodes the response into out
// (when non-nil).
func (s *Session) DoJSON(ctx context.Context, method, uri string, query url.Values, in, out interface{}) error {
	reqConfig := RequestConfig{Method: method, Uri: uri, Query: query}
	if in != nil {
		body, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("error in marshaling request: %w", err)
		}
		reqConfig.Body = body
	}
	resp, err := s.MakeRequest(ctx, reqConfig)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("error in decoding response of %s %s: %w", method, uri, err)
	}
	return nil
}

// Get is DoJSON with GET.
func (s *Session) Get(ctx context.Context, uri string, query url.Values, out interface{}) error {
	return s.DoJSON(ctx, http.MethodGet, uri, query, nil, out)
}

// Post is DoJSON with POST.
func (s *Session) Post(ctx context.Context, uri string, in, out interface{}) error {
	return s.DoJSON(ctx, http.MethodPost, uri, nil, in, out)
}

// Put is DoJSON with PUT.
func (s *Session) Put(ctx context.Context, uri string, in, out interface{}) error {
	return s.DoJSON(ctx, http.MethodPut, uri, nil, in, out)
}

// Patch is DoJSON with PATCH.
func (s *Session) Patch(ctx context.Context, uri string, in, out interface{}) error {
	return s.DoJSON(ctx, http.MethodPatch, uri, nil, in, out)
}

// Delete is DoJSON with DELETE.
func (s *Session) Delete(ctx context.Context, uri string) error {
	return s.DoJSON(ctx, http.MethodDelete, uri, nil, nil, nil)
}

// Close releases idle connections and stops the rate limiter.
func (s *Session) Close(ctx context.Context) {
	s.rateLimiter.Shutdown(ctx)
	s.client.CloseIdleConnections()
}
