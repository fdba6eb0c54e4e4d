package yamcs

import (
	"crypto/tls"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/yamcs/yamcs-client-go/model"
	rateLimiter "github.com/yamcs/yamcs-client-go/pkg/ratelimiter"
)

type Option func(*YamcsClient) error

// WithAddress is the host:port of the Yamcs server. The port defaults to 8090.
func WithAddress(address string) Option {
	return func(c *YamcsClient) error {
		c.address = address
		return nil
	}
}

// WithTLS enables https and wss.
func WithTLS(enabled bool) Option {
	return func(c *YamcsClient) error {
		c.tls = enabled
		return nil
	}
}

// WithTLSConfig sets the TLS configuration and enables TLS.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *YamcsClient) error {
		c.tls = true
		c.tlsConfig = cfg
		return nil
	}
}

// WithCredentials authenticates with a username/password pair or bearer tokens.
func WithCredentials(creds model.Credentials) Option {
	return func(c *YamcsClient) error {
		c.credentials = &creds
		return nil
	}
}

// WithAuthentication is used for passing an authentication provider if credentials are not set in environment variables.
func WithAuthentication(authProvider model.AuthProvider) Option {
	return func(c *YamcsClient) error {
		c.auth = authProvider
		return nil
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(userAgent string) Option {
	return func(c *YamcsClient) error {
		c.userAgent = userAgent
		return nil
	}
}

// WithOnTokenUpdate is called whenever the access token was obtained or refreshed.
func WithOnTokenUpdate(fn func(model.Credentials)) Option {
	return func(c *YamcsClient) error {
		c.onTokenUpdate = fn
		return nil
	}
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *YamcsClient) error {
		c.httpClient = client
		return nil
	}
}

// WithRequestTimeout bounds each HTTP request.
// Note: By default, requests time out after 30 seconds, or YAMCS_REQUEST_TIMEOUT.
func WithRequestTimeout(timeout time.Duration) Option {
	return func(c *YamcsClient) error {
		c.timeout = timeout
		return nil
	}
}

// WithLogger sets the logger of the client and all derived clients.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *YamcsClient) error {
		c.logger = logger
		return nil
	}
}

// WithRateLimit limits the number of requests per minute.
func WithRateLimit(requestsPerMinute int) Option {
	return func(c *YamcsClient) error {
		c.rateLimiterSetting = rateLimiter.RateLimiterSetting{RequestCount: requestsPerMinute}
		return nil
	}
}
