package config

import "time"

type SessionConfig interface {
	GetSessionWindow() time.Duration
	GetValidationRetries() int
	GetValidationBackoff() time.Duration
	GetFailOpen() bool
	GetFailFastWhileRefreshing() bool
}

type Session struct{}

var _ SessionConfig = Session{}

// GetSessionWindow is the client-enforced credential lifetime. Any expiry the
// server declares is ignored.
func (Session) GetSessionWindow() time.Duration {
	return GetEnvDuration("SESSION_WINDOW", 30*time.Minute)
}

func (Session) GetValidationRetries() int {
	return GetEnvInt("SESSION_VALIDATION_RETRIES", 2)
}

func (Session) GetValidationBackoff() time.Duration {
	return GetEnvDuration("SESSION_VALIDATION_BACKOFF", time.Second)
}

// GetFailOpen keeps the session when validation cannot complete for transient reasons
func (Session) GetFailOpen() bool {
	return GetEnvBool("SESSION_FAIL_OPEN", true)
}

func (Session) GetFailFastWhileRefreshing() bool {
	return GetEnvBool("SESSION_FAIL_FAST_WHILE_REFRESHING", false)
}
