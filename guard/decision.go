package guard

import (
	"net/url"
)

// Outcome is what a guard decided for a navigation
type Outcome int

const (
	Admit Outcome = iota
	RedirectLogin
	RedirectUnauthorized
	RedirectDashboard
	DeferredValidate // Live token, identity unknown: the server has to confirm it
)

func (o Outcome) String() string {
	switch o {
	case Admit:
		return "admit"
	case RedirectLogin:
		return "redirect_login"
	case RedirectUnauthorized:
		return "redirect_unauthorized"
	case RedirectDashboard:
		return "redirect_dashboard"
	case DeferredValidate:
		return "deferred_validate"
	}
	return "unknown"
}

// Decision is a guard outcome plus where to send the user when it is a redirect
type Decision struct {
	Outcome  Outcome
	Target   string // Redirect destination
	ReturnTo string // Originally requested path, kept for after login
}

func (d Decision) Admitted() bool {
	return d.Outcome == Admit
}

// Location is the redirect URL including the return target, or "" when admitted
func (d Decision) Location() string {
	if d.Target == "" {
		return ""
	}
	if d.ReturnTo == "" {
		return d.Target
	}
	return d.Target + "?" + url.Values{"returnUrl": {d.ReturnTo}}.Encode()
}

func admit() Decision {
	return Decision{Outcome: Admit}
}

func toLogin(returnTo string) Decision {
	return Decision{Outcome: RedirectLogin, Target: LoginPath, ReturnTo: returnTo}
}

func toUnauthorized() Decision {
	return Decision{Outcome: RedirectUnauthorized, Target: UnauthorizedPath}
}
