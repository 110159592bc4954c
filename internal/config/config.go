package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	RedisURL    string `env:"REDIS_URL,required"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	MigrationsPath string `env:"MIGRATIONS_PATH" envDefault:"migrations"`

	// Pairing-code lifetime bounds, in minutes. Issue requests outside the
	// bounds are clamped, not rejected.
	PairingCodeDefaultTTLMinutes int `env:"PAIRING_CODE_DEFAULT_TTL_MINUTES" envDefault:"10"`
	PairingCodeMaxTTLMinutes     int `env:"PAIRING_CODE_MAX_TTL_MINUTES" envDefault:"60"`

	// Claim attempts allowed per client IP per minute.
	ClaimRateLimitPerMin int `env:"CLAIM_RATE_LIMIT_PER_MIN" envDefault:"10"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

func (c *Config) PairingCodeDefaultTTL() time.Duration {
	return time.Duration(c.PairingCodeDefaultTTLMinutes) * time.Minute
}

func (c *Config) PairingCodeMaxTTL() time.Duration {
	return time.Duration(c.PairingCodeMaxTTLMinutes) * time.Minute
}

func (c *Config) Validate(isProduction bool) error {
	if c.PairingCodeDefaultTTLMinutes < 1 {
		return fmt.Errorf("PAIRING_CODE_DEFAULT_TTL_MINUTES must be at least 1")
	}
	if c.PairingCodeMaxTTLMinutes < c.PairingCodeDefaultTTLMinutes {
		return fmt.Errorf("PAIRING_CODE_MAX_TTL_MINUTES must be >= PAIRING_CODE_DEFAULT_TTL_MINUTES")
	}
	if c.ClaimRateLimitPerMin < 1 {
		return fmt.Errorf("CLAIM_RATE_LIMIT_PER_MIN must be at least 1")
	}

	if isProduction {
		if c.RedisURL != "" && len(c.RedisURL) >= 8 && c.RedisURL[:8] == "redis://" {
			log.Warn().Msg("REDIS_URL uses redis:// (not TLS) in production: consider using rediss://")
		}
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
