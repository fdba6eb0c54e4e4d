package model

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrUnauthorized      = errors.New("401 Client Error: Unauthorized")
	ErrNotFound          = errors.New("not found")
	ErrConnectionFailure = errors.New("connection failure")
	ErrInvalidName       = errors.New("invalid name")
	ErrUnsupportedValue  = errors.New("unsupported value type")
	ErrNoSubscription    = errors.New("subscription id not yet assigned")
)

// APIError is returned when Yamcs replies with a non-2xx status.
type APIError struct {
	StatusCode int
	Message    string
	Type       string
}

func (e *APIError) Error() string {
	switch {
	case e.StatusCode == http.StatusUnauthorized:
		return ErrUnauthorized.Error()
	case e.StatusCode >= 400 && e.StatusCode < 500:
		return fmt.Sprintf("%d Client Error: %s", e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("%d Server Error: %s", e.StatusCode, e.Message)
	}
}

// Is lets errors.Is match APIError against ErrUnauthorized and ErrNotFound.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// ExceptionMessage is the body Yamcs sends along with error statuses and
// WebSocket exceptions.
type ExceptionMessage struct {
	Type string `json:"type,omitempty"`
	Msg  string `json:"msg,omitempty"`
}
