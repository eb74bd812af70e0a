package sessions

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Store owns the persisted credential and identity and derives the session
// state from them. Store, StoreIdentity and Clear are the only writers of the
// underlying repo; all reads are served from memory.
type Store struct {
	repo          Repo
	window        time.Duration
	credentialKey string
	identityKey   string
	nowFunc       func() time.Time

	mu         sync.RWMutex
	credential *Credential
	identity   *users.Identity
}

// StoreOption configures a Store
type StoreOption func(*Store)

// WithNowFunc sets the clock (primarily for testing)
func WithNowFunc(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.nowFunc = now
	}
}

// WithSessionWindow overrides the fixed credential lifetime
func WithSessionWindow(window time.Duration) StoreOption {
	return func(s *Store) {
		if window > 0 {
			s.window = window
		}
	}
}

// WithKeys overrides the storage keys of the credential and identity records
func WithKeys(credentialKey, identityKey string) StoreOption {
	return func(s *Store) {
		s.credentialKey = credentialKey
		s.identityKey = identityKey
	}
}

// NewStore loads the persisted session from repo. An expired or malformed
// credential is cleared straight away, so a new store never surfaces stale data.
func NewStore(ctx context.Context, repo Repo, options ...StoreOption) *Store {
	s := &Store{
		repo:          repo,
		window:        DefaultWindow,
		credentialKey: CredentialKey,
		identityKey:   IdentityKey,
		nowFunc:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	s.load(ctx)
	return s
}

func (s *Store) load(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	credential, err := s.readCredential(ctx)
	if err != nil {
		s.discard(ctx, s.credentialKey, err)
	}
	identity, err := s.readIdentity(ctx)
	if err != nil {
		s.discard(ctx, s.identityKey, err)
	}

	switch {
	case credential == nil && identity != nil:
		log.Debug().Msg("[sessions.Store] dropping identity persisted without a credential")
		_ = s.repo.Delete(ctx, s.identityKey)
		identity = nil
	case credential != nil && credential.IsExpired(s.nowFunc()):
		log.Info().Time("expires_at", credential.ExpiresAt).Msg("[sessions.Store] persisted session expired, clearing")
		_ = s.clearLocked(ctx)
		return
	}

	s.credential = credential
	s.identity = identity
}

// discard removes a record that could not be loaded. Read failures of the
// backend leave the record in place; only malformed data is deleted.
func (s *Store) discard(ctx context.Context, key string, err error) {
	if !errors.Is(err, autherrors.ErrMalformedState) {
		log.Warn().Err(err).Str("key", key).Msg("[sessions.Store] session storage unreadable, starting anonymous")
		return
	}
	log.Warn().Err(err).Str("key", key).Msg("[sessions.Store] discarding malformed session record")
	if err := s.repo.Delete(ctx, key); err != nil {
		log.Err(err).Str("key", key).Msg("[sessions.Store] failed to delete malformed record")
	}
}

func (s *Store) readCredential(ctx context.Context) (*Credential, error) {
	data, err := s.repo.Get(ctx, s.credentialKey)
	if err != nil || data == nil {
		return nil, err
	}
	var rec credentialRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedState, "credential record: %v", err)
	}
	if rec.Token == "" || rec.ExpiresAt == 0 {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedState, "credential record incomplete")
	}
	credential := rec.credential()
	return &credential, nil
}

func (s *Store) readIdentity(ctx context.Context) (*users.Identity, error) {
	data, err := s.repo.Get(ctx, s.identityKey)
	if err != nil || data == nil {
		return nil, err
	}
	var identity users.Identity
	if err := json.Unmarshal(data, &identity); err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedState, "identity record: %v", err)
	}
	return &identity, nil
}

// NewCredential stamps token with the fixed session window starting now
func (s *Store) NewCredential(token, refreshToken string) Credential {
	return Credential{
		Token:        token,
		RefreshToken: refreshToken,
		ExpiresAt:    s.nowFunc().Add(s.window),
	}
}

// Store replaces the credential and, when identity is non-nil, the identity.
// The in-memory values change even if persisting them fails.
func (s *Store) Store(ctx context.Context, credential Credential, identity *users.Identity) error {
	if credential.Token == "" {
		return errors.Wrap(autherrors.ErrMissingToken, "[Store.Store]")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.credential = &credential
	if identity != nil {
		id := *identity
		s.identity = &id
	}

	data, err := json.Marshal(credential.record())
	if err != nil {
		return errors.Wrap(err, "[Store.Store] marshal credential")
	}
	if err := s.repo.Set(ctx, s.credentialKey, data); err != nil {
		return errors.Wrap(err, "[Store.Store] persist credential")
	}
	if identity != nil {
		if err := s.persistIdentity(ctx, *identity); err != nil {
			return errors.Wrap(err, "[Store.Store]")
		}
	}
	return nil
}

// StoreIdentity replaces the identity and leaves the credential untouched
func (s *Store) StoreIdentity(ctx context.Context, identity users.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.identity = &identity
	return errors.Wrap(s.persistIdentity(ctx, identity), "[Store.StoreIdentity]")
}

func (s *Store) persistIdentity(ctx context.Context, identity users.Identity) error {
	data, err := json.Marshal(identity)
	if err != nil {
		return errors.Wrap(err, "marshal identity")
	}
	return errors.Wrap(s.repo.Set(ctx, s.identityKey, data), "persist identity")
}

// Clear removes the credential and identity from memory and storage
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearLocked(ctx)
}

// ClearToken clears the session only while its credential still carries token
// and reports whether it did
func (s *Store) ClearToken(ctx context.Context, token string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == nil || s.credential.Token != token {
		return false, nil
	}
	return true, s.clearLocked(ctx)
}

func (s *Store) clearLocked(ctx context.Context) error {
	s.credential = nil
	s.identity = nil

	var firstErr error
	for _, key := range []string{s.credentialKey, s.identityKey} {
		if err := s.repo.Delete(ctx, key); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "[Store.Clear] delete %s", key)
		}
	}
	return firstErr
}

// PruneExpired clears an expired credential and reports whether it did
func (s *Store) PruneExpired(ctx context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.credential == nil || !s.credential.IsExpired(s.nowFunc()) {
		return false
	}
	if err := s.clearLocked(ctx); err != nil {
		log.Err(err).Msg("[sessions.Store] failed to clear expired session")
	}
	return true
}

// Token returns the bearer token if a credential exists and has not expired
func (s *Store) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credential == nil || s.credential.IsExpired(s.nowFunc()) {
		return "", false
	}
	return s.credential.Token, true
}

// Credential returns the stored credential, expired or not
func (s *Store) Credential() (Credential, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.credential == nil {
		return Credential{}, false
	}
	return *s.credential, true
}

// Identity returns the cached identity
func (s *Store) Identity() (users.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return users.Identity{}, false
	}
	return *s.identity, true
}

// IsExpired is true when there is no credential or now >= expiresAt
func (s *Store) IsExpired() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.credential == nil || s.credential.IsExpired(s.nowFunc())
}

// HasValidToken reports a live credential, whether or not the identity is loaded
func (s *Store) HasValidToken() bool {
	return !s.IsExpired()
}

// IsAuthenticated reports a live credential and a loaded identity
func (s *Store) IsAuthenticated() bool {
	return s.State() == Authenticated
}

// State derives the session state
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	switch {
	case s.credential == nil:
		return Anonymous
	case s.credential.IsExpired(s.nowFunc()):
		return Expired
	case s.identity == nil:
		return CredentialOnly
	default:
		return Authenticated
	}
}

// Window is the fixed credential lifetime in use
func (s *Store) Window() time.Duration {
	return s.window
}
