package users_test

import (
	"encoding/json"
	"testing"

	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	role, ok := users.ParseRole(" Teacher ")
	require.True(t, ok)
	require.Equal(t, users.RoleTeacher, role)

	_, ok = users.ParseRole("principal")
	require.False(t, ok)
}

func TestIdentity_JSON(t *testing.T) {
	raw := `{"id":7,"email":"p@school.cd","full_name":"Pat Parent","role":"parent","is_active":true,"created_at":"2024-09-01T08:00:00"}`

	var identity users.Identity
	require.NoError(t, json.Unmarshal([]byte(raw), &identity))

	require.Equal(t, int64(7), identity.ID)
	require.Equal(t, users.RoleParent, identity.Role)
	require.Equal(t, "Pat Parent", identity.DisplayName())
	require.True(t, identity.HasRole(users.RoleParent, users.RoleAdmin))
	require.False(t, identity.HasRole(users.RoleStudent))
}

func TestIdentity_DisplayNameFallback(t *testing.T) {
	identity := users.Identity{Email: "a@b.com", FullName: utils.Ptr("  ")}
	require.Equal(t, "a@b.com", identity.DisplayName())
}
