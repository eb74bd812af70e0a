package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/go-auth-client/api"
	"github.com/jrsteele09/go-auth-client/guard"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Backend is the slice of the REST API the session service calls
type Backend interface {
	Login(ctx context.Context, email, password string) (*api.AuthResponse, error)
	Register(ctx context.Context, req api.RegisterRequest) (*api.AuthResponse, error)
	Me(ctx context.Context) (*users.Identity, error)
}

// Navigator moves the user to another screen
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to Navigator
type NavigatorFunc func(path string)

func (f NavigatorFunc) Navigate(path string) { f(path) }

// Service is the entry point for UI callers: login, register, logout and
// session validation on top of the session store
type Service struct {
	backend   Backend
	store     *sessions.Store
	navigator Navigator
	payloads  *PayloadValidator
	policy    sessions.FailurePolicy
	retries   int
	backoff   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   *metrics.Metrics

	mu   sync.RWMutex
	role users.RoleType // Cached role signal for UI chrome
}

var _ guard.Validator = (*Service)(nil)

// ServiceOption defines a function type to modify the Service instance
type ServiceOption func(*Service)

func WithNavigator(navigator Navigator) ServiceOption {
	return func(s *Service) {
		s.navigator = navigator
	}
}

// WithFailurePolicy decides what happens to the session when validation
// retries run out without a definitive answer
func WithFailurePolicy(policy sessions.FailurePolicy) ServiceOption {
	return func(s *Service) {
		if policy != nil {
			s.policy = policy
		}
	}
}

// WithRetries sets how many times validation is retried and the base backoff.
// The nth retry waits n*backoff.
func WithRetries(retries int, backoff time.Duration) ServiceOption {
	return func(s *Service) {
		if retries >= 0 {
			s.retries = retries
		}
		s.backoff = backoff
	}
}

// WithSleep replaces the backoff wait (primarily for testing)
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ServiceOption {
	return func(s *Service) {
		s.sleep = sleep
	}
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func NewService(backend Backend, store *sessions.Store, options ...ServiceOption) (*Service, error) {
	if backend == nil {
		return nil, errors.New("[NewService] backend is required")
	}
	if store == nil {
		return nil, errors.New("[NewService] session store is required")
	}

	s := &Service{
		backend:   backend,
		store:     store,
		navigator: NavigatorFunc(func(string) {}),
		payloads:  NewPayloadValidator(),
		policy:    sessions.FailOpen,
		retries:   2,
		backoff:   time.Second,
		sleep:     sleepContext,
	}
	for _, opt := range options {
		opt(s)
	}

	if identity, ok := store.Identity(); ok {
		s.role = identity.Role
	}
	return s, nil
}

// Login exchanges credentials for a session. The credential lifetime is the
// store's fixed window whatever the backend says. Never retried.
func (s *Service) Login(ctx context.Context, email, password string) (*users.Identity, error) {
	if err := s.payloads.ValidateLogin(email, password); err != nil {
		return nil, failure(err, LoginFailedMsg)
	}

	resp, err := s.backend.Login(ctx, email, password)
	if err != nil {
		log.Info().Err(err).Str("email", email).Msg("[Service.Login] login rejected")
		return nil, failure(err, LoginFailedMsg)
	}
	token := resp.BearerToken()
	if token == "" {
		return nil, failure(errors.Wrap(autherrors.ErrMissingToken, "[Service.Login]"), LoginFailedMsg)
	}

	s.startSession(ctx, token, resp.RefreshToken, resp.User)
	return resp.User, nil
}

// Register signs a user up. An active account comes back Authenticated and is
// signed in; an account awaiting approval comes back PendingApproval and
// leaves the session untouched.
func (s *Service) Register(ctx context.Context, req api.RegisterRequest) (api.RegisterResult, error) {
	if err := s.payloads.ValidateRegistration(req); err != nil {
		return nil, failure(err, RegisterFailedMsg)
	}

	resp, err := s.backend.Register(ctx, req)
	if err != nil {
		log.Info().Err(err).Str("email", req.Email).Msg("[Service.Register] registration rejected")
		return nil, failure(err, RegisterFailedMsg)
	}

	result := resp.RegisterResult()
	switch r := result.(type) {
	case api.Authenticated:
		s.startSession(ctx, r.Token, r.RefreshToken, r.User)
	case api.PendingApproval:
		log.Info().Int64("user_id", r.UserID).Str("role", string(r.Role)).Msg("[Service.Register] account pending approval")
	}
	return result, nil
}

func (s *Service) startSession(ctx context.Context, token, refreshToken string, identity *users.Identity) {
	if err := s.store.Store(ctx, s.store.NewCredential(token, refreshToken), identity); err != nil {
		log.Err(err).Msg("[Service] session not persisted, it will not survive a restart")
	}
	if identity != nil {
		s.setRole(identity.Role)
	}
}

// Logout ends the session and goes to the login screen, even when there was
// no session to end
func (s *Service) Logout(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		log.Err(err).Msg("[Service.Logout] failed to clear persisted session")
	}
	s.setRole("")
	s.navigator.Navigate(guard.LoginPath)
}

// ValidateToken confirms the session with the backend unless the identity is
// already cached. An expired credential is cleared and reported as
// ErrSessionExpired. Transient failures are retried with a linear backoff; an
// auth failure ends the session at once. When retries run out the failure
// policy decides: fail-open keeps the session and reports success.
func (s *Service) ValidateToken(ctx context.Context) error {
	if !s.store.HasValidToken() {
		if s.store.PruneExpired(ctx) {
			s.setRole("")
			return errors.Wrap(autherrors.ErrSessionExpired, "[Service.ValidateToken]")
		}
		return errors.Wrap(autherrors.ErrSessionInvalid, "[Service.ValidateToken] no live token")
	}
	if _, ok := s.store.Identity(); ok {
		return nil
	}

	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, s.backoff*time.Duration(attempt)); err != nil {
				return errors.Wrap(err, "[Service.ValidateToken]")
			}
		}

		identity, err := s.backend.Me(ctx)
		if err == nil {
			s.metrics.Validation("success")
			s.cacheIdentity(ctx, *identity)
			return nil
		}
		if autherrors.IsAuth(err) {
			s.metrics.Validation("auth_failure")
			s.endSession(ctx)
			return errors.Wrap(err, "[Service.ValidateToken]")
		}
		if ctx.Err() != nil {
			return errors.Wrap(ctx.Err(), "[Service.ValidateToken]")
		}

		s.metrics.Validation("transient_failure")
		log.Warn().Err(err).Int("attempt", attempt+1).Msg("[Service.ValidateToken] validation failed")
		lastErr = err
	}

	exhausted := fmt.Errorf("%w: %w", autherrors.ErrValidationExhausted, lastErr)
	if s.policy(exhausted) {
		log.Warn().Err(lastErr).Msg("[Service.ValidateToken] retries exhausted, assuming session still valid")
		return nil
	}
	s.endSession(ctx)
	return exhausted
}

// LoadUser fetches the identity from the backend and caches it
func (s *Service) LoadUser(ctx context.Context) (users.Identity, error) {
	identity, err := s.backend.Me(ctx)
	if err != nil {
		if autherrors.IsAuth(err) {
			s.endSession(ctx)
		}
		return users.Identity{}, errors.Wrap(err, "[Service.LoadUser]")
	}
	s.cacheIdentity(ctx, *identity)
	return *identity, nil
}

func (s *Service) cacheIdentity(ctx context.Context, identity users.Identity) {
	if err := s.store.StoreIdentity(ctx, identity); err != nil {
		log.Err(err).Msg("[Service] identity not persisted")
	}
	s.setRole(identity.Role)
}

func (s *Service) endSession(ctx context.Context) {
	if err := s.store.Clear(ctx); err != nil {
		log.Err(err).Msg("[Service] failed to clear persisted session")
	}
	s.setRole("")
}

// CurrentRole is the role of the signed-in user, if known
func (s *Service) CurrentRole() (users.RoleType, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.role, s.role != ""
}

func (s *Service) setRole(role users.RoleType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.role = role
}

// Session exposes the underlying store for guards and status displays
func (s *Service) Session() *sessions.Store {
	return s.store
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
