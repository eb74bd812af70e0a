package token

import (
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/internal/utils"
	"github.com/jrsteele09/go-auth-client/users"
)

// Claims is the subset of an access token's payload the client reads. The
// signature is never verified here: the backend remains the authority and these
// values only steer route admission until the identity is fetched.
type Claims struct {
	Subject   string
	Email     string
	Roles     []string
	ExpiresAt *time.Time
}

// Peek decodes the payload of raw without verifying it
func Peek(raw string) (*Claims, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, autherrors.ErrMalformedToken
	}

	parsed, _, err := jwtlib.NewParser().ParseUnverified(raw, jwtlib.MapClaims{})
	if err != nil {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedToken, "parse: %v", err)
	}
	mapClaims, ok := parsed.Claims.(jwtlib.MapClaims)
	if !ok {
		return nil, autherrors.Wrapf(autherrors.ErrMalformedToken, "unexpected claims type %T", parsed.Claims)
	}

	claims := &Claims{}
	claims.Subject, _ = mapClaims.GetSubject()
	claims.Email, _ = mapClaims["email"].(string)

	if role, ok := mapClaims["role"].(string); ok && role != "" {
		claims.Roles = []string{role}
	} else if roles, ok := mapClaims["roles"].([]any); ok {
		claims.Roles = utils.ToStringSlice(roles)
	}

	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = &exp.Time
	}
	return claims, nil
}

// RoleClaim extracts the platform role carried by raw. A "role" string claim
// takes precedence over the first known entry of a "roles" list.
func RoleClaim(raw string) (users.RoleType, error) {
	claims, err := Peek(raw)
	if err != nil {
		return "", err
	}
	if len(claims.Roles) == 0 {
		return "", autherrors.ErrMissingRoleClaim
	}
	for _, r := range claims.Roles {
		if role, ok := users.ParseRole(r); ok {
			return role, nil
		}
	}
	return "", autherrors.Wrapf(autherrors.ErrUnknownRole, "%q", strings.Join(claims.Roles, ","))
}
