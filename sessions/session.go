package sessions

import (
	"time"
)

// Storage keys of the two persisted records
const (
	CredentialKey = "auth_token"
	IdentityKey   = "current_user"
)

// DefaultWindow is the client-enforced lifetime of a credential
const DefaultWindow = 30 * time.Minute

// Credential is the bearer token and the expiry the client enforces on it
type Credential struct {
	Token        string
	RefreshToken string // Only set when the backend issues one
	ExpiresAt    time.Time
}

// IsExpired reports whether now is at or past the expiry
func (c Credential) IsExpired(now time.Time) bool {
	return !now.Before(c.ExpiresAt)
}

// credentialRecord is the persisted form: expiry in epoch milliseconds
type credentialRecord struct {
	Token        string `json:"token"`
	ExpiresAt    int64  `json:"expiresAt"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

func (c Credential) record() credentialRecord {
	return credentialRecord{
		Token:        c.Token,
		ExpiresAt:    c.ExpiresAt.UnixMilli(),
		RefreshToken: c.RefreshToken,
	}
}

func (r credentialRecord) credential() Credential {
	return Credential{
		Token:        r.Token,
		RefreshToken: r.RefreshToken,
		ExpiresAt:    time.UnixMilli(r.ExpiresAt),
	}
}

// State is the session state derived from what the store holds
type State int

const (
	Anonymous      State = iota // No credential
	CredentialOnly              // Live token, identity not fetched yet
	Authenticated               // Live token and identity
	Expired                     // Credential past its expiry
)

func (s State) String() string {
	switch s {
	case Anonymous:
		return "anonymous"
	case CredentialOnly:
		return "credential-only"
	case Authenticated:
		return "authenticated"
	case Expired:
		return "expired"
	}
	return "unknown"
}
