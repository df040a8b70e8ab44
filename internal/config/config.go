package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP UI server
	Port string

	// Remote expense API
	APIBaseURL string
	APITimeout time.Duration

	// Session provider (bearer token from the identity provider)
	SessionToken       string
	SessionTokenFile   string
	SessionDisplayName string
	SessionCacheTTL    time.Duration

	// Active-trip state store
	StateStore   string
	SQLiteDBPath string
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8081"),

		APIBaseURL: getEnv("API_BASE_URL", ""),
		APITimeout: getEnvDuration("API_TIMEOUT", 30*time.Second),

		SessionToken:       getEnv("SESSION_TOKEN", ""),
		SessionTokenFile:   getEnv("SESSION_TOKEN_FILE", ""),
		SessionDisplayName: getEnv("SESSION_DISPLAY_NAME", ""),
		SessionCacheTTL:    getEnvDuration("SESSION_CACHE_TTL", 5*time.Minute),

		StateStore:   getEnv("STATE_STORE", "memory"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/tripexpense.db"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var problems []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		problems = append(problems, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		problems = append(problems, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.APIBaseURL == "" {
		problems = append(problems, "API_BASE_URL is required")
	} else if u, err := url.Parse(c.APIBaseURL); err != nil {
		problems = append(problems, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		problems = append(problems, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", u.Scheme))
	}

	if c.APITimeout < time.Second {
		problems = append(problems, fmt.Sprintf("invalid API timeout %v: must be at least 1 second", c.APITimeout))
	}

	switch c.StateStore {
	case "memory":
	case "sqlite":
		if c.SQLiteDBPath == "" {
			problems = append(problems, "SQLite database path cannot be empty when using sqlite state store")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					problems = append(problems, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	default:
		problems = append(problems, fmt.Sprintf("invalid state store '%s': must be one of [memory sqlite]", c.StateStore))
	}

	if c.SessionTokenFile != "" {
		if _, err := os.Stat(c.SessionTokenFile); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("session token file does not exist: %s", c.SessionTokenFile))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(problems, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
