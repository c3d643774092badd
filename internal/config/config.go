package config

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	// Host configuration sources
	DBPath         string
	HostConfigPath string
	HostEnvPrefix  string

	// Server settings
	ServerHost string
	ServerPort int
	APIKey     string
	Banner     string

	RefreshInterval time.Duration

	// Import settings
	ImportReplace bool

	// Log settings
	LogLevel zerolog.Level
}

// DefaultConfig returns an initial configuration from hardcoded defaults
// overridden by HIJACK_* environment variables.
func DefaultConfig() *Config {
	logLevel, _ := zerolog.ParseLevel(DefaultLogLevel)

	return &Config{
		DBPath:          GetEnvString(EnvPrefix+"DB_PATH", DefaultDBPath),
		HostConfigPath:  GetEnvString(EnvPrefix+"HOST_CONFIG", DefaultHostConfigPath),
		HostEnvPrefix:   GetEnvString(EnvPrefix+"HOST_ENV_PREFIX", DefaultHostEnvPrefix),
		ServerHost:      GetEnvString(EnvPrefix+"HOST", DefaultServerHost),
		ServerPort:      GetEnvInt(EnvPrefix+"PORT", DefaultServerPort),
		APIKey:          GetEnvString(EnvPrefix+"API_KEY", ""),
		Banner:          GetEnvString(EnvPrefix+"BANNER", ""),
		RefreshInterval: GetEnvDuration(EnvPrefix+"REFRESH_INTERVAL", DefaultRefreshInterval*time.Second),
		ImportReplace:   GetEnvBool(EnvPrefix+"IMPORT_REPLACE", false),
		LogLevel:        GetEnvLogLevel(EnvPrefix+"LOG_LEVEL", logLevel),
	}
}

// ListenAddr returns the formatted listen address for the HTTP server.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}
