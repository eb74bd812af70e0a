package refresh

import (
	"context"
	"sync"

	"github.com/google/uuid"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// flight is one upstream refresh attempt shared by every caller that races into it
type flight struct {
	id         string
	done       chan struct{}
	credential sessions.Credential
	err        error
}

// Coordinator makes sure at most one refresh runs at a time. Callers arriving
// while a refresh is in flight wait for that refresh and get its outcome.
type Coordinator struct {
	store     *sessions.Store
	refresher Refresher
	metrics   *metrics.Metrics

	mu      sync.Mutex
	current *flight
	waiters int
}

type CoordinatorOption func(*Coordinator)

func WithMetrics(m *metrics.Metrics) CoordinatorOption {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

func NewCoordinator(store *sessions.Store, refresher Refresher, options ...CoordinatorOption) *Coordinator {
	if refresher == nil {
		refresher = Unsupported
	}
	c := &Coordinator{
		store:     store,
		refresher: refresher,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// RefreshOrValidate returns a credential to replace staleToken, the token a
// request was rejected with. It joins the running flight if there is one.
// Otherwise, if the store already holds a different live token, that token is
// returned without calling upstream. A failed refresh clears the session it
// was started for, never one that replaced it meanwhile.
func (c *Coordinator) RefreshOrValidate(ctx context.Context, staleToken string) (sessions.Credential, error) {
	c.mu.Lock()
	f := c.current
	if f == nil {
		current, ok := c.store.Credential()
		if !ok || staleToken == "" {
			c.mu.Unlock()
			return sessions.Credential{}, errors.Wrap(autherrors.ErrNoSession, "[Coordinator.RefreshOrValidate]")
		}
		if token, live := c.store.Token(); live && token != staleToken {
			c.mu.Unlock()
			return current, nil
		}

		f = &flight{id: uuid.NewString(), done: make(chan struct{})}
		c.current = f
		log.Debug().Str("flight", f.id).Msg("[Coordinator] starting token refresh")
		go c.run(context.WithoutCancel(ctx), f, current)
	} else {
		c.metrics.RefreshJoined()
		log.Debug().Str("flight", f.id).Msg("[Coordinator] joining token refresh")
	}
	c.waiters++
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		c.waiters--
		c.mu.Unlock()
	}()

	select {
	case <-f.done:
		return f.credential, f.err
	case <-ctx.Done():
		return sessions.Credential{}, errors.Wrap(ctx.Err(), "[Coordinator.RefreshOrValidate] waiting for refresh")
	}
}

func (c *Coordinator) run(ctx context.Context, f *flight, current sessions.Credential) {
	defer func() {
		c.mu.Lock()
		c.current = nil
		c.mu.Unlock()
		close(f.done)
	}()

	grant, err := c.refresher.Refresh(ctx, current)
	if err == nil && grant.AccessToken == "" {
		err = autherrors.ErrMissingToken
	}
	if err != nil {
		c.metrics.RefreshFlight("failure")
		log.Warn().Err(err).Str("flight", f.id).Msg("[Coordinator] token refresh failed")
		cleared, clearErr := c.store.ClearToken(ctx, current.Token)
		switch {
		case clearErr != nil:
			log.Err(clearErr).Str("flight", f.id).Msg("[Coordinator] failed to clear session")
		case !cleared:
			log.Info().Str("flight", f.id).Msg("[Coordinator] session replaced during refresh, kept")
		}
		f.err = errors.Wrap(err, "[Coordinator] refresh")
		return
	}

	if grant.RefreshToken == "" {
		grant.RefreshToken = current.RefreshToken
	}
	credential := c.store.NewCredential(grant.AccessToken, grant.RefreshToken)
	if storeErr := c.store.Store(ctx, credential, nil); storeErr != nil {
		log.Err(storeErr).Str("flight", f.id).Msg("[Coordinator] refreshed credential not persisted")
	}
	c.metrics.RefreshFlight("success")
	log.Info().Str("flight", f.id).Msg("[Coordinator] token refreshed")
	f.credential = credential
}

// InFlight reports whether a refresh is currently running
func (c *Coordinator) InFlight() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current != nil
}

// Waiters is the number of callers currently waiting on a refresh
func (c *Coordinator) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters
}
