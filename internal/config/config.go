package config

import (
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	APIConfig
	SessionConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetDataFolder() string
	GetLogLevel() string
	GetEnv() string
}

type mainConfig struct {
	EnvVars
	API
	Session
	Storage
}

// New loads a .env file from the working directory when one exists and
// returns the environment-backed configuration.
func New() Config {
	_ = godotenv.Load()
	return mainConfig{}
}
