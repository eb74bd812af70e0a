package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	backend *httptest.Server
	config  config.Config
}

func setupTestFixture(t *testing.T) *testFixture {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		_ = json.NewDecoder(r.Body).Decode(&req)
		w.Header().Set("Content-Type", "application/json")
		if req["password"] != "secret1" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"detail":"Incorrect email or password"}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"tok-teacher","user":{"id":7,"email":"t@school.cd","full_name":"Tess Teacher","role":"teacher","is_active":true}}`))
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok-teacher" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7,"email":"t@school.cd","full_name":"Tess Teacher","role":"teacher","is_active":true}`))
	})
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	t.Setenv("API_BASE_URL", backend.URL+"/api/v1")
	t.Setenv("SESSION_BACKEND", "file")
	t.Setenv("FOLDER", t.TempDir())
	t.Setenv("SESSION_KEY", "correct horse battery staple")
	t.Setenv("LOG_LEVEL", "error")

	return &testFixture{backend: backend, config: config.New()}
}

func (f *testFixture) execute(t *testing.T, args ...string) (string, error) {
	var out bytes.Buffer
	cmd := rootCmd(f.config)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"-q"}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestCLI_SessionLifecycle(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "State: anonymous")

	out, err = f.execute(t, "login", "--email", "t@school.cd", "--password", "secret1")
	require.NoError(t, err)
	require.Contains(t, out, "Signed in as Tess Teacher (teacher)")
	require.Contains(t, out, "Dashboard: /teacher/dashboard")

	out, err = f.execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "State: authenticated")
	require.Contains(t, out, "User: Tess Teacher (teacher)")
	require.Contains(t, out, "Token: opaque")

	out, err = f.execute(t, "open", "/teacher/dashboard")
	require.NoError(t, err)
	require.Contains(t, out, "/teacher/dashboard: admitted")

	out, err = f.execute(t, "open", "/admin/users")
	require.NoError(t, err)
	require.Contains(t, out, "/admin/users: redirect_unauthorized -> /unauthorized")

	out, err = f.execute(t, "open", "/login")
	require.NoError(t, err)
	require.Contains(t, out, "/login: redirect_dashboard -> /teacher/dashboard")

	out, err = f.execute(t, "whoami")
	require.NoError(t, err)
	require.Contains(t, out, "Tess Teacher <t@school.cd>")

	out, err = f.execute(t, "logout")
	require.NoError(t, err)
	require.Contains(t, out, "Signed out, next: /login")

	out, err = f.execute(t, "open", "/profile")
	require.NoError(t, err)
	require.Contains(t, out, "/profile: redirect_login -> /login?returnUrl=%2Fprofile")
}

func TestCLI_LoginRejected(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.execute(t, "login", "--email", "t@school.cd", "--password", "wrong")
	require.EqualError(t, err, "Incorrect email or password")

	out, err := f.execute(t, "status")
	require.NoError(t, err)
	require.Contains(t, out, "State: anonymous")
}

func TestCLI_UnknownRoute(t *testing.T) {
	f := setupTestFixture(t)

	_, err := f.execute(t, "open", "/nowhere")
	require.EqualError(t, err, "no route declared for /nowhere")
}

func TestCLI_UnknownBackend(t *testing.T) {
	f := setupTestFixture(t)
	t.Setenv("SESSION_BACKEND", "floppy")

	_, err := f.execute(t, "status")
	require.EqualError(t, err, `unknown SESSION_BACKEND "floppy"`)
}
