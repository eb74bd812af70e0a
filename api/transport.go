package api

import (
	"io"
	"net/http"
	"strings"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/token/refresh"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const bearerPrefix = "Bearer "

// AuthTransport attaches the session's bearer token to outgoing requests and
// recovers from a 401 by refreshing once and replaying the request. Requests
// to the authentication endpoints are passed through untouched.
type AuthTransport struct {
	base        http.RoundTripper
	store       *sessions.Store
	coordinator *refresh.Coordinator
	authPrefix  string
	failFast    bool
	metrics     *metrics.Metrics
}

var _ http.RoundTripper = (*AuthTransport)(nil)

type TransportOption func(*AuthTransport)

// WithBase sets the underlying transport (http.DefaultTransport otherwise)
func WithBase(base http.RoundTripper) TransportOption {
	return func(t *AuthTransport) {
		t.base = base
	}
}

// WithAuthPrefix sets the path fragment identifying authentication endpoints
func WithAuthPrefix(prefix string) TransportOption {
	return func(t *AuthTransport) {
		if prefix != "" {
			t.authPrefix = prefix
		}
	}
}

// WithFailFastWhileRefreshing fails a 401 at once when a refresh is already
// running instead of waiting for that refresh's outcome
func WithFailFastWhileRefreshing(failFast bool) TransportOption {
	return func(t *AuthTransport) {
		t.failFast = failFast
	}
}

func WithTransportMetrics(m *metrics.Metrics) TransportOption {
	return func(t *AuthTransport) {
		t.metrics = m
	}
}

func NewAuthTransport(store *sessions.Store, coordinator *refresh.Coordinator, options ...TransportOption) *AuthTransport {
	t := &AuthTransport{
		base:        http.DefaultTransport,
		store:       store,
		coordinator: coordinator,
		authPrefix:  "/auth/",
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

func (t *AuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.isAuthEndpoint(req) {
		return t.base.RoundTrip(req)
	}

	sent := strings.TrimPrefix(req.Header.Get("Authorization"), bearerPrefix)
	if sent == "" {
		if token, ok := t.store.Token(); ok {
			req = withBearer(req, token)
			sent = token
		}
	}

	resp, err := t.base.RoundTrip(req)
	if err != nil || resp.StatusCode != http.StatusUnauthorized {
		return resp, err
	}
	return t.retryUnauthorized(req, resp, sent)
}

func (t *AuthTransport) retryUnauthorized(req *http.Request, resp *http.Response, sent string) (*http.Response, error) {
	if sent == "" {
		t.metrics.Unauthorized("anonymous")
		return resp, nil
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		log.Warn().Str("path", req.URL.Path).Msg("[AuthTransport] 401 on a request that cannot be replayed")
		t.metrics.Unauthorized("unreplayable")
		return resp, nil
	}
	if t.failFast && t.coordinator.InFlight() {
		discard(resp)
		t.metrics.Unauthorized("fail_fast")
		return nil, errors.Wrap(autherrors.ErrSessionInvalid, "[AuthTransport.RoundTrip] refresh already in flight")
	}

	credential, err := t.coordinator.RefreshOrValidate(req.Context(), sent)
	if err != nil {
		discard(resp)
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, ctxErr
		}
		t.metrics.Unauthorized("refresh_failed")
		return nil, errors.Wrapf(autherrors.ErrSessionInvalid, "[AuthTransport.RoundTrip] %v", err)
	}

	retry := withBearer(req, credential.Token)
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			discard(resp)
			return nil, errors.Wrap(err, "[AuthTransport.RoundTrip] rewind body")
		}
		retry.Body = body
	}
	discard(resp)
	t.metrics.Unauthorized("retried")
	return t.base.RoundTrip(retry)
}

func (t *AuthTransport) isAuthEndpoint(req *http.Request) bool {
	return strings.Contains(req.URL.Path, t.authPrefix)
}

func withBearer(req *http.Request, token string) *http.Request {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", bearerPrefix+token)
	return clone
}

func discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
}
