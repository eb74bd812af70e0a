package sessions

import (
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
)

// FailurePolicy decides whether an existing session survives a check that
// could not complete with err. Auth-class failures always end the session,
// whatever the policy.
type FailurePolicy func(err error) bool

// FailOpen keeps the session on anything but an auth failure. A flaky network
// never logs the user out, at the price of a revoked session looking valid
// until the backend is reachable again.
func FailOpen(err error) bool {
	return !autherrors.IsAuth(err)
}

// FailClosed ends the session whenever a check cannot complete
func FailClosed(error) bool {
	return false
}

// PolicyFor maps the fail-open configuration flag to a policy
func PolicyFor(failOpen bool) FailurePolicy {
	if failOpen {
		return FailOpen
	}
	return FailClosed
}
