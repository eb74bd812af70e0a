package guard

import (
	"context"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/metrics"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/token"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/rs/zerolog/log"
)

// Validator confirms a live token with the server and loads its identity
type Validator interface {
	ValidateToken(ctx context.Context) error
}

// Authorizer decides whether a navigation may proceed based on the session
type Authorizer struct {
	store     *sessions.Store
	validator Validator
	policy    sessions.FailurePolicy
	metrics   *metrics.Metrics
}

type AuthorizerOption func(*Authorizer)

// WithFailurePolicy decides whether a validation that could not complete admits
func WithFailurePolicy(policy sessions.FailurePolicy) AuthorizerOption {
	return func(a *Authorizer) {
		if policy != nil {
			a.policy = policy
		}
	}
}

func WithMetrics(m *metrics.Metrics) AuthorizerOption {
	return func(a *Authorizer) {
		a.metrics = m
	}
}

func New(store *sessions.Store, validator Validator, options ...AuthorizerOption) *Authorizer {
	a := &Authorizer{
		store:     store,
		validator: validator,
		policy:    sessions.FailOpen,
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

// Classify is the protected-route decision from local state alone
func (a *Authorizer) Classify(path string) Decision {
	switch {
	case a.store.IsAuthenticated():
		return admit()
	case !a.store.HasValidToken():
		return toLogin(path)
	default:
		return Decision{Outcome: DeferredValidate, ReturnTo: path}
	}
}

// CanEnterProtectedRoute admits an authenticated session. A live token without
// an identity is validated with the server first: an auth failure sends the
// user to login and any other failure is settled by the failure policy.
func (a *Authorizer) CanEnterProtectedRoute(ctx context.Context, path string) Decision {
	a.prune(ctx)
	decision := a.Classify(path)
	if decision.Outcome == DeferredValidate {
		decision = a.settle(ctx, path)
	}
	a.metrics.Decision(decision.Outcome.String())
	return decision
}

func (a *Authorizer) settle(ctx context.Context, path string) Decision {
	err := a.validator.ValidateToken(ctx)
	switch {
	case err == nil:
		return admit()
	case autherrors.IsAuth(err):
		return toLogin(path)
	case a.policy(err):
		log.Warn().Err(err).Str("path", path).Msg("[Authorizer] validation incomplete, admitting")
		return admit()
	default:
		log.Warn().Err(err).Str("path", path).Msg("[Authorizer] validation incomplete, rejecting")
		return toLogin(path)
	}
}

// CanEnterRoleRoute admits when no role is required or the session's role is
// one of roles. Without a loaded identity the role claim of the token is used.
func (a *Authorizer) CanEnterRoleRoute(roles ...users.RoleType) Decision {
	decision := a.roleDecision(roles)
	a.metrics.Decision(decision.Outcome.String())
	return decision
}

func (a *Authorizer) roleDecision(roles []users.RoleType) Decision {
	if len(roles) == 0 {
		return admit()
	}
	if identity, ok := a.store.Identity(); ok {
		if identity.HasRole(roles...) {
			return admit()
		}
		return toUnauthorized()
	}

	raw, ok := a.store.Token()
	if !ok {
		return toUnauthorized()
	}
	role, err := token.RoleClaim(raw)
	if err != nil {
		log.Debug().Err(err).Msg("[Authorizer] no usable role claim in token")
		return toUnauthorized()
	}
	if users.ContainsRole(roles, role) {
		return admit()
	}
	return toUnauthorized()
}

// CanEnterGuestRoute admits signed-out users and sends signed-in users to
// their dashboard
func (a *Authorizer) CanEnterGuestRoute() Decision {
	decision := admit()
	if a.store.IsAuthenticated() {
		identity, _ := a.store.Identity()
		decision = Decision{Outcome: RedirectDashboard, Target: DashboardFor(identity.Role)}
	}
	a.metrics.Decision(decision.Outcome.String())
	return decision
}

// Navigate runs every guard that applies to route
func (a *Authorizer) Navigate(ctx context.Context, route Route) Decision {
	if route.Public {
		return admit()
	}
	if route.Guest {
		a.prune(ctx)
		return a.CanEnterGuestRoute()
	}
	if decision := a.CanEnterProtectedRoute(ctx, route.Path); !decision.Admitted() {
		return decision
	}
	return a.CanEnterRoleRoute(route.Roles...)
}

// prune destroys an expired session as soon as a navigation sees it
func (a *Authorizer) prune(ctx context.Context) {
	if a.store.PruneExpired(ctx) {
		log.Info().Msg("[Authorizer] session expired, cleared")
	}
}
