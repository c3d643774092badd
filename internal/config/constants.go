package config

// Constants defining default values for application configuration
const (
	EnvPrefix = "HIJACK_"

	DefaultDBPath         = "./hijack.db"
	DefaultHostConfigPath = "" // Empty disables the YAML host source
	DefaultHostEnvPrefix  = "HOST_"

	DefaultServerPort = 8080
	DefaultServerHost = "" // Empty string means all interfaces

	DefaultRefreshInterval = 30 // Seconds between host store reloads

	DefaultLogLevel = "info"
)
