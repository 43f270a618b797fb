package todoapi

import (
	"os"
	"strconv"
	"time"
)

// AppConfig is the process configuration, read once from the
// environment at startup and treated as immutable after that.
type AppConfig struct {
	AppName        string
	HTTPAddr       string
	LogLevel       string
	LogJSON        bool
	TokenTTL       time.Duration
	PrivateKeyPath string
	PublicKeyPath  string
	Issuer         string
	DatabaseDSN    string
}

// Verify interface compliance
var _ Config = (*AppConfig)(nil)

// NewConfigFromEnv builds an AppConfig from environment variables,
// falling back to development defaults.
func NewConfigFromEnv() *AppConfig {
	return &AppConfig{
		AppName:        envOr("APP_NAME", "go-todo-api"),
		HTTPAddr:       envOr("HTTP_ADDR", ":8000"),
		LogLevel:       envOr("LOG_LEVEL", "info"),
		LogJSON:        envBool("LOG_JSON", false),
		TokenTTL:       time.Duration(envInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		PrivateKeyPath: envOr("JWT_PRIVATE_KEY_PATH", "keys/private_key.pem"),
		PublicKeyPath:  envOr("JWT_PUBLIC_KEY_PATH", "keys/public_key.pem"),
		Issuer:         envOr("JWT_ISSUER", ""),
		DatabaseDSN:    envOr("DATABASE_DSN", "file:todoapi.db?cache=shared&_pragma=foreign_keys(1)"),
	}
}

// GetTokenTTL returns the configured token lifetime
func (c *AppConfig) GetTokenTTL() time.Duration {
	if c.TokenTTL <= 0 {
		return 24 * time.Hour
	}
	return c.TokenTTL
}

// GetIssuer returns the iss claim value, empty disables issuer checks
func (c *AppConfig) GetIssuer() string {
	return c.Issuer
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
