// Package config loads the service configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
type Config struct {
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	RedisURL    string `env:"REDIS_URL,required,notEmpty"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// TokenTTL bounds access token lifetime. Zero means tokens live until logout.
	TokenTTL time.Duration `env:"TOKEN_TTL" envDefault:"0s"`
	// AuthMinDuration pads bearer authentication to a constant floor.
	AuthMinDuration time.Duration `env:"AUTH_MIN_DURATION" envDefault:"200ms"`

	// Per-user limit on authenticated API routes.
	RateLimitAPIEnabled bool `env:"RATE_LIMIT_API_ENABLED" envDefault:"true"`
	RateLimitAPIRPM     int  `env:"RATE_LIMIT_API_RPM" envDefault:"120"`
	RateLimitAPIBurst   int  `env:"RATE_LIMIT_API_BURST" envDefault:"30"`

	// Per-IP limit on /register and /login.
	RateLimitAuthEnabled bool `env:"RATE_LIMIT_AUTH_ENABLED" envDefault:"true"`
	RateLimitAuthRPS     int  `env:"RATE_LIMIT_AUTH_RPS" envDefault:"2"`
	RateLimitAuthBurst   int  `env:"RATE_LIMIT_AUTH_BURST" envDefault:"10"`

	// Comma-separated origins, e.g. "https://app.example.com,https://admin.example.com".
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
	// HSTSMaxAge is advertised outside development. Zero disables HSTS.
	HSTSMaxAge time.Duration `env:"HSTS_MAX_AGE" envDefault:"4320h"`

	RedisPoolSize     int `env:"REDIS_POOL_SIZE" envDefault:"20"`
	RedisMinIdleConns int `env:"REDIS_MIN_IDLE_CONNS" envDefault:"2"`

	// UsageConsumerName names this process in the token-usage consumer
	// group. A stable name, such as the pod name, lets a restarted worker
	// resume its own pending entries. Empty derives one per process.
	UsageConsumerName string `env:"USAGE_CONSUMER_NAME"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate rejects values env parsing accepts but the server cannot run with.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.DatabaseURL) == "":
		return errors.New("DATABASE_URL must not be empty")
	case strings.TrimSpace(c.RedisURL) == "":
		return errors.New("REDIS_URL must not be empty")
	case c.AppPort <= 0 || c.AppPort > 65535:
		return fmt.Errorf("APP_PORT out of range: %d", c.AppPort)
	case c.TokenTTL < 0:
		return errors.New("TOKEN_TTL must not be negative")
	case c.AuthMinDuration < 0:
		return errors.New("AUTH_MIN_DURATION must not be negative")
	case c.MaxRequestBodySize <= 0:
		return errors.New("MAX_REQUEST_BODY_SIZE must be positive")
	case c.HSTSMaxAge < 0:
		return errors.New("HSTS_MAX_AGE must not be negative")
	case c.RedisPoolSize <= 0:
		return errors.New("REDIS_POOL_SIZE must be positive")
	case c.RedisMinIdleConns < 0 || c.RedisMinIdleConns > c.RedisPoolSize:
		return fmt.Errorf("REDIS_MIN_IDLE_CONNS must be between 0 and REDIS_POOL_SIZE, got %d", c.RedisMinIdleConns)
	case c.RateLimitAPIEnabled && (c.RateLimitAPIRPM <= 0 || c.RateLimitAPIBurst <= 0):
		return errors.New("RATE_LIMIT_API_RPM and RATE_LIMIT_API_BURST must be positive when enabled")
	case c.RateLimitAuthEnabled && (c.RateLimitAuthRPS <= 0 || c.RateLimitAuthBurst <= 0):
		return errors.New("RATE_LIMIT_AUTH_RPS and RATE_LIMIT_AUTH_BURST must be positive when enabled")
	}
	return nil
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
