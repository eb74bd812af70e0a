package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	autherrors "github.com/jrsteele09/go-auth-client/internal/errors"
	"github.com/jrsteele09/go-auth-client/sessions"
	"github.com/jrsteele09/go-auth-client/token/refresh"
	"github.com/jrsteele09/go-auth-client/users"
	"github.com/pkg/errors"
)

const maxErrorBody = 64 << 10

// Client talks JSON to the REST backend. Transport-level concerns such as
// bearer tokens belong to the http.Client it is given.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	refreshPath string
}

var _ refresh.Refresher = (*Client)(nil)

type ClientOption func(*Client)

// WithRefreshPath enables Refresh against path
func WithRefreshPath(path string) ClientOption {
	return func(c *Client) {
		c.refreshPath = path
	}
}

func NewClient(baseURL string, httpClient *http.Client, options ...ClientOption) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// NewAuthenticatedClient returns a client whose requests pass through transport
func NewAuthenticatedClient(baseURL string, transport *AuthTransport, timeout time.Duration, options ...ClientOption) *Client {
	return NewClient(baseURL, &http.Client{Transport: transport, Timeout: timeout}, options...)
}

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.Do(ctx, http.MethodPost, LoginPath, LoginRequest{Email: email, Password: password}, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Login]")
	}
	return &resp, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var resp AuthResponse
	if err := c.Do(ctx, http.MethodPost, RegisterPath, req, &resp); err != nil {
		return nil, errors.Wrap(err, "[Client.Register]")
	}
	return &resp, nil
}

// Me fetches the identity behind the bearer token
func (c *Client) Me(ctx context.Context) (*users.Identity, error) {
	var identity users.Identity
	if err := c.Do(ctx, http.MethodGet, MePath, nil, &identity); err != nil {
		return nil, errors.Wrap(err, "[Client.Me]")
	}
	return &identity, nil
}

// Refresh posts the held refresh token to the refresh endpoint. Without a
// configured endpoint it fails with ErrRefreshUnsupported.
func (c *Client) Refresh(ctx context.Context, current sessions.Credential) (refresh.Grant, error) {
	if c.refreshPath == "" {
		return refresh.Grant{}, autherrors.ErrRefreshUnsupported
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+current.Token)
	var resp AuthResponse
	in := map[string]string{"refresh_token": current.RefreshToken}
	if err := c.send(ctx, http.MethodPost, c.refreshPath, header, in, &resp); err != nil {
		return refresh.Grant{}, errors.Wrap(err, "[Client.Refresh]")
	}
	return refresh.Grant{AccessToken: resp.BearerToken(), RefreshToken: resp.RefreshToken}, nil
}

// Do sends in as JSON to path and decodes the response into out. Non-2xx
// responses become *errors.StatusError; network failures are transient.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	return c.send(ctx, method, path, nil, in, out)
}

func (c *Client) send(ctx context.Context, method, path string, header http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "new request")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		switch {
		case autherrors.IsAuth(err):
			return err
		case ctx.Err() != nil:
			return errors.Wrapf(ctx.Err(), "%s %s", method, path)
		default:
			return autherrors.Transient(errors.Wrapf(err, "%s %s", method, path))
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &autherrors.StatusError{StatusCode: resp.StatusCode, Message: errorMessage(resp.Body)}
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}

// errorMessage extracts the human-readable error from a response body
// shaped {"detail"|"message"|"error": ...}. A validation detail list yields
// its first entry's msg.
func errorMessage(r io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(data, &body); err != nil {
		return ""
	}
	for _, field := range []string{"detail", "message", "error"} {
		raw, ok := body[field]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if json.Unmarshal(raw, &list) == nil && len(list) > 0 && list[0].Msg != "" {
			return list[0].Msg
		}
	}
	return ""
}
