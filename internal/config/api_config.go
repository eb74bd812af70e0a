package config

import "time"

type APIConfig interface {
	GetBaseURL() string
	GetAuthPathPrefix() string
	GetRefreshPath() string
	GetRequestTimeout() time.Duration
	GetOAuthTokenURL() string
	GetOAuthClientID() string
}

type API struct{}

var _ APIConfig = API{}

// GetBaseURL returns the REST backend root (e.g., "http://localhost:8000/api/v1")
func (API) GetBaseURL() string {
	return GetEnv("API_BASE_URL", "http://localhost:8000/api/v1")
}

// GetAuthPathPrefix is the path prefix of the endpoints that must never carry a bearer token
func (API) GetAuthPathPrefix() string {
	return GetEnv("API_AUTH_PREFIX", "/auth/")
}

// GetRefreshPath is empty until the backend implements a refresh endpoint
func (API) GetRefreshPath() string {
	return GetEnv("API_REFRESH_PATH", "")
}

func (API) GetRequestTimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 15*time.Second)
}

// GetOAuthTokenURL enables the OAuth2 refresh-token grant when set
func (API) GetOAuthTokenURL() string {
	return GetEnv("OAUTH_TOKEN_URL", "")
}

func (API) GetOAuthClientID() string {
	return GetEnv("OAUTH_CLIENT_ID", "")
}
