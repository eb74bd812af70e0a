package token_test

import (
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/stretchr/testify/require"
)

func signed(t *testing.T, claims jwtlib.MapClaims) string {
	t.Helper()
	raw, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return raw
}

func TestRoleClaim(t *testing.T) {
	tests := []struct {
		name    string
		claims  jwtlib.MapClaims
		want    users.RoleType
		wantErr error
	}{
		{"role claim", jwtlib.MapClaims{"sub": "1", "role": "teacher"}, users.RoleTeacher, nil},
		{"role claim mixed case", jwtlib.MapClaims{"role": "Admin"}, users.RoleAdmin, nil},
		{"roles list", jwtlib.MapClaims{"roles": []any{"janitor", "parent"}}, users.RoleParent, nil},
		{"role wins over roles", jwtlib.MapClaims{"role": "student", "roles": []any{"admin"}}, users.RoleStudent, nil},
		{"no role", jwtlib.MapClaims{"sub": "1"}, "", autherrors.ErrMissingRoleClaim},
		{"unknown role", jwtlib.MapClaims{"role": "principal"}, "", autherrors.ErrUnknownRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, err := token.RoleClaim(signed(t, tt.claims))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, role)
		})
	}
}

func TestRoleClaim_Malformed(t *testing.T) {
	for _, raw := range []string{"", "opaque-session-id", "a.b.c", "eyJhbGciOiJIUzI1NiJ9.!!!.sig"} {
		_, err := token.RoleClaim(raw)
		require.ErrorIs(t, err, autherrors.ErrMalformedToken, raw)
	}
}

func TestPeek(t *testing.T) {
	exp := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	claims, err := token.Peek(signed(t, jwtlib.MapClaims{
		"sub":   "42",
		"email": "t@school.cd",
		"role":  "teacher",
		"exp":   exp.Unix(),
	}))
	require.NoError(t, err)

	require.Equal(t, "42", claims.Subject)
	require.Equal(t, "t@school.cd", claims.Email)
	require.Equal(t, []string{"teacher"}, claims.Roles)
	require.NotNil(t, claims.ExpiresAt)
	require.True(t, exp.Equal(*claims.ExpiresAt))
}

func TestPeek_IgnoresSignatureAndExpiry(t *testing.T) {
	raw := signed(t, jwtlib.MapClaims{"role": "student", "exp": time.Now().Add(-time.Hour).Unix()})

	role, err := token.RoleClaim(raw)
	require.NoError(t, err)
	require.Equal(t, users.RoleStudent, role)
}
