package app

import (
	"context"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Config is the full runtime configuration, read from the environment. The
// three JWT parameters have no defaults on purpose: an engine signing tokens
// with an accidental secret is worse than one that refuses to start.
type Config struct {
	JWTSecret   string        `env:"IDENTITY_JWT_SECRET, required"`
	JWTIssuer   string        `env:"IDENTITY_JWT_ISSUER, required"`
	JWTAudience string        `env:"IDENTITY_JWT_AUDIENCE, required"`
	TokenTTL    time.Duration `env:"IDENTITY_TOKEN_TTL, default=1h"`

	DatabaseFile string `env:"IDENTITY_DATABASE_FILE, default=identity.db"`

	ResetTokenTTL     time.Duration `env:"IDENTITY_RESET_TOKEN_TTL, default=1h"`
	EmailTokenTTL     time.Duration `env:"IDENTITY_EMAIL_TOKEN_TTL, default=24h"`
	ActivityRetention time.Duration `env:"IDENTITY_ACTIVITY_RETENTION, default=2160h"` // 90 days
	HousekeepingEvery time.Duration `env:"IDENTITY_HOUSEKEEPING_INTERVAL, default=1h"`

	LoginBurst  int           `env:"IDENTITY_LOGIN_BURST, default=5"`
	LoginRefill time.Duration `env:"IDENTITY_LOGIN_REFILL, default=10s"`

	Env       string `env:"ENV, default=dev"`
	LogLevel  string `env:"LOG_LEVEL, default=info"`
	LogFormat string `env:"LOG_FORMAT, default=json"`
}

// LoadConfig reads the environment. Missing required variables surface here,
// before anything else is wired.
func LoadConfig(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
