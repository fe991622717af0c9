package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "CURAMED"

// Environment names recognized at boot.
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config carries everything the process needs at boot. Values come from the
// environment with CURAMED_ prefixed keys.
type Config struct {
	Environment string
	ListenAddr  string

	PGDSN    string
	RedisURL string

	AuthSecret string
	TokenTTL   time.Duration

	SessionIdleTimeout time.Duration

	SentinelPrincipalID string
	DefaultRoleName     string
	SuperAdminRole      string
}

// Load reads configuration from the environment.
func Load() Config {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()

	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("ADDR", ":8080")
	v.SetDefault("SESSION_IDLE_TIMEOUT", "24h")
	v.SetDefault("TOKEN_TTL", "504h")
	v.SetDefault("SENTINEL_PRINCIPAL_ID", "0")
	v.SetDefault("DEFAULT_ROLE", "staff")
	v.SetDefault("SUPERADMIN_ROLE", "superadmin")

	return Config{
		Environment:         strings.ToLower(strings.TrimSpace(v.GetString("ENV"))),
		ListenAddr:          v.GetString("ADDR"),
		PGDSN:               v.GetString("PG_DSN"),
		RedisURL:            v.GetString("REDIS_URL"),
		AuthSecret:          strings.TrimSpace(v.GetString("AUTH_SECRET")),
		TokenTTL:            v.GetDuration("TOKEN_TTL"),
		SessionIdleTimeout:  v.GetDuration("SESSION_IDLE_TIMEOUT"),
		SentinelPrincipalID: v.GetString("SENTINEL_PRINCIPAL_ID"),
		DefaultRoleName:     v.GetString("DEFAULT_ROLE"),
		SuperAdminRole:      strings.ToLower(v.GetString("SUPERADMIN_ROLE")),
	}
}

// IsProduction reports whether the process runs with production guarantees.
func (c Config) IsProduction() bool {
	return c.Environment == EnvProduction
}
