package errors_test

import (
	"fmt"
	"net/http"
	"testing"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestStatusError_Classification(t *testing.T) {
	tests := []struct {
		status    int
		auth      bool
		transient bool
	}{
		{http.StatusUnauthorized, true, false},
		{http.StatusForbidden, true, false},
		{http.StatusInternalServerError, false, true},
		{http.StatusBadGateway, false, true},
		{http.StatusTooManyRequests, false, true},
		{http.StatusBadRequest, false, false},
		{http.StatusConflict, false, false},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := fmt.Errorf("call: %w", &autherrors.StatusError{StatusCode: tt.status})
			require.Equal(t, tt.auth, autherrors.IsAuth(err))
			require.Equal(t, tt.transient, autherrors.IsTransient(err))
		})
	}
}

func TestMessage(t *testing.T) {
	err := fmt.Errorf("login: %w", &autherrors.StatusError{StatusCode: 400, Message: "Incorrect email or password"})
	require.Equal(t, "Incorrect email or password", autherrors.Message(err))
	require.Contains(t, err.Error(), "Incorrect email or password")

	require.Empty(t, autherrors.Message(fmt.Errorf("plain")))
}

func TestSessionInvalidIsAuth(t *testing.T) {
	require.True(t, autherrors.IsAuth(autherrors.ErrSessionInvalid))
	require.True(t, autherrors.IsAuth(autherrors.ErrSessionExpired))
	require.True(t, autherrors.IsTransient(autherrors.Transient(fmt.Errorf("dial tcp: refused"))))
	require.Nil(t, autherrors.Transient(nil))
}
