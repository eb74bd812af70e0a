package refresh_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/sessions"
	fakesessionrepo "github.com/jrsteele09/go-auth-client/sessions/repofake"
	"github.com/jrsteele09/go-auth-client/token/refresh"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

// gatedRefresher blocks every call until release is closed
type gatedRefresher struct {
	calls   atomic.Int32
	release chan struct{}
	grant   refresh.Grant
	err     error
	seen    chan sessions.Credential
}

func newGatedRefresher(grant refresh.Grant, err error) *gatedRefresher {
	return &gatedRefresher{
		release: make(chan struct{}),
		grant:   grant,
		err:     err,
		seen:    make(chan sessions.Credential, 16),
	}
}

func (r *gatedRefresher) Refresh(_ context.Context, current sessions.Credential) (refresh.Grant, error) {
	r.calls.Add(1)
	r.seen <- current
	<-r.release
	return r.grant, r.err
}

type testFixture struct {
	repo    *fakesessionrepo.FakeSessionRepo
	store   *sessions.Store
	metrics *metrics.Metrics
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	repo := fakesessionrepo.NewFakeSessionRepo()
	store := sessions.NewStore(context.Background(), repo)
	require.NoError(t, store.Store(context.Background(), store.NewCredential("T1", "R1"), nil))
	return &testFixture{
		repo:    repo,
		store:   store,
		metrics: metrics.New(prometheus.NewRegistry()),
	}
}

type outcome struct {
	credential sessions.Credential
	err        error
}

func raceRefresh(c *refresh.Coordinator, n int, staleToken string) chan outcome {
	results := make(chan outcome, n)
	for i := 0; i < n; i++ {
		go func() {
			credential, err := c.RefreshOrValidate(context.Background(), staleToken)
			results <- outcome{credential, err}
		}()
	}
	return results
}

func TestCoordinator_SingleFlightSuccess(t *testing.T) {
	f := setupTestFixture(t)
	refresher := newGatedRefresher(refresh.Grant{AccessToken: "T2"}, nil)
	c := refresh.NewCoordinator(f.store, refresher, refresh.WithMetrics(f.metrics))

	const n = 8
	results := raceRefresh(c, n, "T1")

	require.Eventually(t, func() bool { return c.Waiters() == n }, time.Second, time.Millisecond)
	require.True(t, c.InFlight())
	close(refresher.release)

	for i := 0; i < n; i++ {
		res := <-results
		require.NoError(t, res.err)
		require.Equal(t, "T2", res.credential.Token)
		require.Equal(t, "R1", res.credential.RefreshToken, "refresh token carried over when none is issued")
	}

	require.Equal(t, int32(1), refresher.calls.Load())
	require.Equal(t, "T1", (<-refresher.seen).Token)
	require.False(t, c.InFlight())
	require.Equal(t, 0, c.Waiters())

	token, ok := f.store.Token()
	require.True(t, ok)
	require.Equal(t, "T2", token)

	require.Equal(t, float64(1), testutil.ToFloat64(f.metrics.RefreshFlights.WithLabelValues("success")))
	require.Equal(t, float64(n-1), testutil.ToFloat64(f.metrics.RefreshJoins))
}

func TestCoordinator_SingleFlightFailure(t *testing.T) {
	f := setupTestFixture(t)
	refresher := newGatedRefresher(refresh.Grant{}, autherrors.ErrRefreshUnsupported)
	c := refresh.NewCoordinator(f.store, refresher)

	const n = 5
	results := raceRefresh(c, n, "T1")

	require.Eventually(t, func() bool { return c.Waiters() == n }, time.Second, time.Millisecond)
	close(refresher.release)

	for i := 0; i < n; i++ {
		res := <-results
		require.ErrorIs(t, res.err, autherrors.ErrRefreshUnsupported)
	}

	require.Equal(t, int32(1), refresher.calls.Load())
	require.False(t, c.InFlight(), "flag reset after failure")
	require.Equal(t, sessions.Anonymous, f.store.State(), "failed refresh clears the session")
	_, ok := f.repo.Raw(sessions.CredentialKey)
	require.False(t, ok)
}

func TestCoordinator_FailureKeepsReplacementSession(t *testing.T) {
	f := setupTestFixture(t)
	refresher := newGatedRefresher(refresh.Grant{}, &autherrors.StatusError{StatusCode: 401})
	c := refresh.NewCoordinator(f.store, refresher)

	results := raceRefresh(c, 1, "T1")
	<-refresher.seen

	// Logout and a fresh login while the old token is being refreshed
	require.NoError(t, f.store.Clear(context.Background()))
	require.NoError(t, f.store.Store(context.Background(), f.store.NewCredential("T9", ""), nil))
	close(refresher.release)

	res := <-results
	require.True(t, autherrors.IsAuth(res.err))
	require.False(t, c.InFlight())

	token, ok := f.store.Token()
	require.True(t, ok, "new session survives the failed refresh")
	require.Equal(t, "T9", token)
	raw, ok := f.repo.Raw(sessions.CredentialKey)
	require.True(t, ok)
	require.Contains(t, string(raw), `"token":"T9"`)
}

func TestCoordinator_NextFlightAfterReset(t *testing.T) {
	f := setupTestFixture(t)
	var calls atomic.Int32
	c := refresh.NewCoordinator(f.store, refresh.RefresherFunc(func(context.Context, sessions.Credential) (refresh.Grant, error) {
		n := calls.Add(1)
		return refresh.Grant{AccessToken: []string{"", "T2", "T3"}[n]}, nil
	}))

	credential, err := c.RefreshOrValidate(context.Background(), "T1")
	require.NoError(t, err)
	require.Equal(t, "T2", credential.Token)

	credential, err = c.RefreshOrValidate(context.Background(), "T2")
	require.NoError(t, err)
	require.Equal(t, "T3", credential.Token)
	require.Equal(t, int32(2), calls.Load())
}

func TestCoordinator_LateCallerGetsRefreshedToken(t *testing.T) {
	f := setupTestFixture(t)
	var calls atomic.Int32
	c := refresh.NewCoordinator(f.store, refresh.RefresherFunc(func(context.Context, sessions.Credential) (refresh.Grant, error) {
		calls.Add(1)
		return refresh.Grant{AccessToken: "T2"}, nil
	}))

	_, err := c.RefreshOrValidate(context.Background(), "T1")
	require.NoError(t, err)

	// a request sent with T1 before the refresh finished gets its 401 afterwards
	credential, err := c.RefreshOrValidate(context.Background(), "T1")
	require.NoError(t, err)
	require.Equal(t, "T2", credential.Token)
	require.Equal(t, int32(1), calls.Load())
}

func TestCoordinator_NoSession(t *testing.T) {
	f := setupTestFixture(t)
	require.NoError(t, f.store.Clear(context.Background()))
	c := refresh.NewCoordinator(f.store, nil)

	_, err := c.RefreshOrValidate(context.Background(), "T1")
	require.ErrorIs(t, err, autherrors.ErrNoSession)
	require.False(t, c.InFlight())
}

func TestCoordinator_EmptyGrantFails(t *testing.T) {
	f := setupTestFixture(t)
	c := refresh.NewCoordinator(f.store, refresh.RefresherFunc(func(context.Context, sessions.Credential) (refresh.Grant, error) {
		return refresh.Grant{}, nil
	}))

	_, err := c.RefreshOrValidate(context.Background(), "T1")
	require.ErrorIs(t, err, autherrors.ErrMissingToken)
	require.False(t, f.store.HasValidToken())
}

func TestCoordinator_WaiterCancellationDoesNotAbortFlight(t *testing.T) {
	f := setupTestFixture(t)
	refresher := newGatedRefresher(refresh.Grant{AccessToken: "T2"}, nil)
	c := refresh.NewCoordinator(f.store, refresher)

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	wg.Add(1)
	var waitErr error
	go func() {
		defer wg.Done()
		_, waitErr = c.RefreshOrValidate(ctx, "T1")
	}()

	require.Eventually(t, func() bool { return c.Waiters() == 1 }, time.Second, time.Millisecond)
	cancel()
	wg.Wait()
	require.True(t, errors.Is(waitErr, context.Canceled))
	require.True(t, c.InFlight())

	close(refresher.release)
	require.Eventually(t, func() bool { return !c.InFlight() }, time.Second, time.Millisecond)
	token, _ := f.store.Token()
	require.Equal(t, "T2", token)
}

func TestUnsupported(t *testing.T) {
	_, err := refresh.Unsupported.Refresh(context.Background(), sessions.Credential{})
	require.ErrorIs(t, err, autherrors.ErrRefreshUnsupported)
}
