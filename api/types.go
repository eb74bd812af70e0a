package api

import (
	"github.com/jrsteele09/go-auth-client/users"
)

// Backend paths relative to the API base URL
const (
	LoginPath    = "/auth/login"
	RegisterPath = "/auth/register"
	MePath       = "/users/me"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest is the sign-up payload
type RegisterRequest struct {
	Email    string         `json:"email" validate:"required,email"`
	Password string         `json:"password" validate:"required,min=6"`
	FullName string         `json:"full_name" validate:"notblank"`
	Role     users.RoleType `json:"role" validate:"required,oneof=admin teacher student parent"`
}

// AuthResponse covers every shape returned by the login and register endpoints.
// Login always carries a token. Register carries either a token and user
// (account active straight away) or the pending-approval fields.
type AuthResponse struct {
	AccessToken  string          `json:"access_token,omitempty"`
	Token        string          `json:"token,omitempty"`
	RefreshToken string          `json:"refresh_token,omitempty"`
	User         *users.Identity `json:"user,omitempty"`

	Message  string         `json:"message,omitempty"`
	UserID   int64          `json:"user_id,omitempty"`
	Email    string         `json:"email,omitempty"`
	Role     users.RoleType `json:"role,omitempty"`
	IsActive bool           `json:"is_active,omitempty"`
}

// BearerToken returns access_token, falling back to token
func (r AuthResponse) BearerToken() string {
	if r.AccessToken != "" {
		return r.AccessToken
	}
	return r.Token
}

// RegisterResult is either Authenticated or PendingApproval
type RegisterResult interface {
	isRegisterResult()
}

// Authenticated means the account is active and a session was issued
type Authenticated struct {
	Token        string
	RefreshToken string
	User         *users.Identity
}

// PendingApproval means the account waits for an administrator. No session is issued.
type PendingApproval struct {
	Message  string
	UserID   int64
	Email    string
	Role     users.RoleType
	IsActive bool
}

func (Authenticated) isRegisterResult()   {}
func (PendingApproval) isRegisterResult() {}

// RegisterResult classifies a register response by whether it carries a token
func (r AuthResponse) RegisterResult() RegisterResult {
	if token := r.BearerToken(); token != "" {
		return Authenticated{Token: token, RefreshToken: r.RefreshToken, User: r.User}
	}
	return PendingApproval{
		Message:  r.Message,
		UserID:   r.UserID,
		Email:    r.Email,
		Role:     r.Role,
		IsActive: r.IsActive,
	}
}
