package config

type StorageConfig interface {
	GetSessionBackend() string
	GetSessionKey() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

// GetSessionBackend is one of "file", "redis" or "memory"
func (Storage) GetSessionBackend() string {
	return GetEnv("SESSION_BACKEND", "file")
}

// GetSessionKey seals persisted session records when set
func (Storage) GetSessionKey() string {
	return GetEnv("SESSION_KEY", "")
}

func (Storage) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Storage) GetRedisDB() int {
	return GetEnvInt("REDIS_DB", 0)
}

func (Storage) GetRedisPrefix() string {
	return GetEnv("REDIS_PREFIX", "eduportal:session:")
}
