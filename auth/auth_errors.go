package auth

import (
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/pkg/errors"
)

// Fallback messages when the backend sends none
const (
	LoginFailedMsg    = "Login failed. Please try again."
	RegisterFailedMsg = "Registration failed. Please try again."
)

// Failure is a user-initiated action that did not succeed. Message is what the
// user should see: the backend's own message when it sent one.
type Failure struct {
	Message string
	Err     error
}

func (f *Failure) Error() string {
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func failure(err error, fallback string) *Failure {
	msg := autherrors.Message(err)
	var fieldErrs FieldErrors
	if msg == "" && errors.As(err, &fieldErrs) {
		msg = fieldErrs.Error()
	}
	if msg == "" {
		msg = fallback
	}
	return &Failure{Message: msg, Err: err}
}
