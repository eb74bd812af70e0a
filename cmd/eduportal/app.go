package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/go-auth-client/api"
	"github.com/jrsteele09/go-auth-client/auth"
	"github.com/jrsteele09/go-auth-client/guard"
	"github.com/jrsteele09/go-auth-client/internal/config"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/sessions/filerepo"
	"github.com/jrsteele09/go-auth-client/sessions/memrepo"
	"github.com/jrsteele09/go-auth-client/sessions/redisrepo"
	"github.com/jrsteele09/go-auth-client/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

// app holds the wired session subsystem for one CLI invocation
type app struct {
	config     config.Config
	registry   *prometheus.Registry
	store      *sessions.Store
	client     *api.Client
	service    *auth.Service
	authorizer *guard.Authorizer
	navigated  string
	closers    []io.Closer
}

func newApp(ctx context.Context, c config.Config) (*app, error) {
	a := &app{
		config:   c,
		registry: prometheus.NewRegistry(),
	}
	m := metrics.New(a.registry)

	repo, err := a.sessionRepo(ctx)
	if err != nil {
		return nil, err
	}
	a.store = sessions.NewStore(ctx, repo, sessions.WithSessionWindow(c.GetSessionWindow()))

	coordinator := refresh.NewCoordinator(a.store, a.refresher(), refresh.WithMetrics(m))
	transport := api.NewAuthTransport(a.store, coordinator,
		api.WithAuthPrefix(c.GetAuthPathPrefix()),
		api.WithFailFastWhileRefreshing(c.GetFailFastWhileRefreshing()),
		api.WithTransportMetrics(m))
	a.client = api.NewAuthenticatedClient(c.GetBaseURL(), transport, c.GetRequestTimeout())

	policy := sessions.PolicyFor(c.GetFailOpen())
	a.service, err = auth.NewService(a.client, a.store,
		auth.WithNavigator(auth.NavigatorFunc(func(path string) { a.navigated = path })),
		auth.WithFailurePolicy(policy),
		auth.WithRetries(c.GetValidationRetries(), c.GetValidationBackoff()),
		auth.WithMetrics(m))
	if err != nil {
		return nil, err
	}
	a.authorizer = guard.New(a.store, a.service, guard.WithFailurePolicy(policy), guard.WithMetrics(m))
	return a, nil
}

// sessionRepo builds the configured storage backend, sealed when a key is set
func (a *app) sessionRepo(ctx context.Context) (sessions.Repo, error) {
	var repo sessions.Repo
	switch backend := strings.ToLower(a.config.GetSessionBackend()); backend {
	case "file":
		repo = filerepo.New(filepath.Join(a.config.GetDataFolder(), "session"))
	case "memory":
		repo = memrepo.New()
	case "redis":
		client, err := redisrepo.NewClient(ctx, a.config.GetRedisAddr(), a.config.GetRedisPassword(), a.config.GetRedisDB())
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client)
		repo = redisrepo.New(client,
			redisrepo.WithPrefix(a.config.GetRedisPrefix()),
			redisrepo.WithTTL(a.config.GetSessionWindow()))
	default:
		return nil, fmt.Errorf("unknown SESSION_BACKEND %q", backend)
	}

	if key := a.config.GetSessionKey(); key != "" {
		repo = sessions.NewSealedRepo(repo, key)
	}
	return repo, nil
}

// refresher picks the OAuth2 grant when a token URL is configured, then the
// backend refresh path, then nothing
func (a *app) refresher() refresh.Refresher {
	if tokenURL := a.config.GetOAuthTokenURL(); tokenURL != "" {
		return refresh.NewOAuth2Refresher(tokenURL, a.config.GetOAuthClientID())
	}
	if path := a.config.GetRefreshPath(); path != "" {
		plain := &http.Client{Timeout: a.config.GetRequestTimeout()}
		return api.NewClient(a.config.GetBaseURL(), plain, api.WithRefreshPath(path))
	}
	return refresh.Unsupported
}

func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			log.Err(err).Msg("[app.Close]")
		}
	}
}
