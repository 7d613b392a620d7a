package config

import (
	"fmt"
	"os"
	"time"
)

const EnvPrefix = "GOODSWIPE"

// EnvLoader reads process settings needed before the config file is located.
type EnvLoader struct {
	prefix string
}

func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix}
}

// ConfigPath is the extra directory searched for config.yaml.
func (e *EnvLoader) ConfigPath() string {
	return e.GetString("CONFIG_PATH", "../config")
}

// ShutdownTimeout bounds how long Stop may drain consumers and servers.
func (e *EnvLoader) ShutdownTimeout() time.Duration {
	return e.GetDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
}

func (e *EnvLoader) GetString(key, defaultValue string) string {
	if value := os.Getenv(e.buildKey(key)); value != "" {
		return value
	}
	return defaultValue
}

// GetDuration falls back to defaultValue when the variable is unset or unparsable.
func (e *EnvLoader) GetDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(e.buildKey(key))
	if raw == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(raw)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

// buildKey prefixes key: GOODSWIPE + CONFIG_PATH -> GOODSWIPE_CONFIG_PATH
func (e *EnvLoader) buildKey(key string) string {
	if e.prefix == "" {
		return key
	}
	return fmt.Sprintf("%s_%s", e.prefix, key)
}
