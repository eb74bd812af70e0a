package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error taxonomy for the session client
var (
	// ErrAuth is a 401/403 from an authenticated endpoint. The session is invalid.
	ErrAuth = errors.New("authentication failed")
	// ErrTransient is a network failure, timeout or 5xx. Never proof of invalidity on its own.
	ErrTransient = errors.New("transient failure")
	// ErrInvalidRequest is any other 4xx response.
	ErrInvalidRequest = errors.New("invalid request")

	// Session errors
	ErrNoSession           = errors.New("no session")
	ErrSessionExpired      = fmt.Errorf("session expired: %w", ErrAuth)
	ErrSessionInvalid      = fmt.Errorf("session invalid: %w", ErrAuth)
	ErrMalformedState      = errors.New("malformed persisted session state")
	ErrValidationExhausted = errors.New("session validation retries exhausted")

	// Token errors
	ErrRefreshUnsupported = errors.New("token refresh is not supported by the backend")
	ErrMissingToken       = errors.New("response carried no token")
	ErrMalformedToken     = errors.New("malformed token")
	ErrMissingRoleClaim   = errors.New("token has no role claim")
	ErrUnknownRole        = errors.New("unknown role")
)

// StatusError is a non-2xx response from the backend. Message is the
// human-readable error the backend sent, if any.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap classifies the status code into the taxonomy
func (e *StatusError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden:
		return ErrAuth
	case e.StatusCode >= 500, e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return ErrTransient
	default:
		return ErrInvalidRequest
	}
}

// Transient marks err as a transient failure while keeping it in the chain
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrTransient, err)
}

// IsAuth reports whether err is an auth-class failure (401/403)
func IsAuth(err error) bool {
	return errors.Is(err, ErrAuth)
}

// IsTransient reports whether err is a transient failure
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// Message returns the backend-provided message carried by err, or "" if there is none
func Message(err error) string {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Message
	}
	return ""
}

// Wrapf wraps an error with context using fmt.Errorf
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}
