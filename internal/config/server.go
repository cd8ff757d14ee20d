// Package config loads process configuration with struct tags over
// environment variables (github.com/caarlos0/env/v11), with
// github.com/joho/godotenv populating a local .env file first in
// development.
package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// ServerConfig holds the relay server's runtime configuration.
type ServerConfig struct {
	DatabaseURL string `env:"DATABASE_URL" envDefault:"clipslot-server.db"`
	JWTSecret   string `env:"JWT_SECRET,required"`
	ListenAddr  string `env:"LISTEN_ADDR" envDefault:"0.0.0.0:3000"`
	CORSOrigins string `env:"CORS_ORIGINS" envDefault:"*"`

	// NATSURL enables cluster fan-out when set; the single-process broker is
	// otherwise authoritative.
	NATSURL string `env:"NATS_URL" envDefault:""`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	MetricsAddr string `env:"METRICS_ADDR" envDefault:":9100"`

	// LoginRateLimitPerMinute bounds /auth/login and /auth/register attempts
	// per client IP, a brute-force guard.
	LoginRateLimitPerMinute int `env:"LOGIN_RATE_LIMIT_PER_MINUTE" envDefault:"10"`
}

// CORSOriginList splits the comma-separated CORSOrigins value, treating a
// bare "*" as the wildcard gorilla/handlers.AllowedOrigins expects.
func (c *ServerConfig) CORSOriginList() []string {
	if c.CORSOrigins == "" || c.CORSOrigins == "*" {
		return []string{"*"}
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadServerConfig loads .env (if present) then parses environment
// variables into a ServerConfig. Priority: real env vars > .env file >
// struct defaults.
func LoadServerConfig() (*ServerConfig, error) {
	_ = godotenv.Load()

	cfg := &ServerConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse server config: %w", err)
	}
	return cfg, nil
}
