package refresh

import (
	"context"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// Grant is what a successful refresh hands back
type Grant struct {
	AccessToken  string
	RefreshToken string // Empty keeps the refresh token already held
}

// Refresher exchanges the current credential for a new access token
type Refresher interface {
	Refresh(ctx context.Context, current sessions.Credential) (Grant, error)
}

// RefresherFunc adapts a function to Refresher
type RefresherFunc func(ctx context.Context, current sessions.Credential) (Grant, error)

func (f RefresherFunc) Refresh(ctx context.Context, current sessions.Credential) (Grant, error) {
	return f(ctx, current)
}

// Unsupported always fails. It stands in while the backend has no refresh endpoint.
var Unsupported Refresher = RefresherFunc(func(context.Context, sessions.Credential) (Grant, error) {
	return Grant{}, autherrors.ErrRefreshUnsupported
})

// OAuth2Refresher runs the OAuth2 refresh_token grant against a token endpoint
type OAuth2Refresher struct {
	config *oauth2.Config
}

var _ Refresher = (*OAuth2Refresher)(nil)

func NewOAuth2Refresher(tokenURL, clientID string, scopes ...string) *OAuth2Refresher {
	return &OAuth2Refresher{
		config: &oauth2.Config{
			ClientID: clientID,
			Endpoint: oauth2.Endpoint{
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			Scopes: scopes,
		},
	}
}

// Refresh requires a refresh token on the current credential. Pass an
// *http.Client through ctx with oauth2.HTTPClient to control the transport.
func (r *OAuth2Refresher) Refresh(ctx context.Context, current sessions.Credential) (Grant, error) {
	if current.RefreshToken == "" {
		return Grant{}, errors.Wrap(autherrors.ErrRefreshUnsupported, "[OAuth2Refresher.Refresh] no refresh token held")
	}

	// An expired access token forces the token source to hit the endpoint
	tok, err := r.config.TokenSource(ctx, &oauth2.Token{RefreshToken: current.RefreshToken}).Token()
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return Grant{}, errors.Wrap(&autherrors.StatusError{
				StatusCode: retrieveErr.Response.StatusCode,
				Message:    retrieveErr.ErrorDescription,
			}, "[OAuth2Refresher.Refresh]")
		}
		return Grant{}, errors.Wrap(autherrors.Transient(err), "[OAuth2Refresher.Refresh]")
	}

	return Grant{AccessToken: tok.AccessToken, RefreshToken: tok.RefreshToken}, nil
}
