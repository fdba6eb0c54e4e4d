package processor

import (
	"time"
)

const (
	defaultValueTimeout = 10 * time.Second
	defaultReplyTimeout = 60 * time.Second
)

type getRequest struct {
	fromCache bool
	timeout   time.Duration
}

// GetOption configures parameter value retrieval.
type GetOption func(*getRequest) error

// WithFromCache controls whether the server answers from its parameter cache.
// When false the call blocks until a fresh value is processed.
// Note: By default, values are read from cache.
func WithFromCache(fromCache bool) GetOption {
	return func(r *getRequest) error {
		r.fromCache = fromCache
		return nil
	}
}

// WithTimeout is how long the server waits for a fresh value. It is ignored
// when reading from cache.
func WithTimeout(timeout time.Duration) GetOption {
	return func(r *getRequest) error {
		r.timeout = timeout
		return nil
	}
}

// CommandOption configures a command issue request.
type CommandOption func(*issueCommandRequest) error

// WithDryRun checks whether the server would accept the command without
// actually issuing it.
func WithDryRun(dryRun bool) CommandOption {
	return func(r *issueCommandRequest) error {
		r.DryRun = dryRun
		return nil
	}
}

// WithComment attaches a comment to the command.
func WithComment(comment string) CommandOption {
	return func(r *issueCommandRequest) error {
		r.Comment = comment
		return nil
	}
}

// WithOrigin overrides the origin of the command, which defaults to the hostname.
func WithOrigin(origin string) CommandOption {
	return func(r *issueCommandRequest) error {
		r.Origin = origin
		return nil
	}
}

// SubscriptionOption configures a parameter subscription.
type SubscriptionOption func(*parameterSubscriptionRequest) error

// WithAbortOnInvalid makes one invalid parameter fail the whole request.
// Note: By default, invalid parameters abort the request.
func WithAbortOnInvalid(abort bool) SubscriptionOption {
	return func(r *parameterSubscriptionRequest) error {
		r.AbortOnInvalid = &abort
		return nil
	}
}

// WithUpdateOnExpiration delivers an update holding the last known value with
// status EXPIRED when a value expires.
func WithUpdateOnExpiration(update bool) SubscriptionOption {
	return func(r *parameterSubscriptionRequest) error {
		r.UpdateOnExpiration = &update
		return nil
	}
}

// WithSendFromCache sends the last processed value of each parameter right
// away. When false only newly processed values are delivered.
func WithSendFromCache(send bool) SubscriptionOption {
	return func(r *parameterSubscriptionRequest) error {
		r.SendFromCache = &send
		return nil
	}
}
