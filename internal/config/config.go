package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	StorageMemory   = "memory"
	StorageBolt     = "bolt"
	StoragePostgres = "postgres"
)

type Config struct {
	// Server
	Port string `env:"PORT" envDefault:"8080"`
	Env  string `env:"ENV" envDefault:"development"`

	// Storage
	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"postgres"`
	DatabaseURL    string `env:"DATABASE_URL"`
	MigrationsDir  string `env:"MIGRATIONS_DIR" envDefault:"migrations"`
	BoltPath       string `env:"BOLT_PATH" envDefault:"studytime.db"`

	// Redis, optional. Enables the distributed session lock and event fan-out.
	RedisURL string `env:"REDIS_URL"`

	// JWT
	JWTSecret string `env:"JWT_SECRET,required,notEmpty"`

	// Frontend
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:5173"`

	// Logging
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile       string `env:"LOG_FILE"`
	LogMaxSizeMB  int    `env:"LOG_MAX_SIZE_MB" envDefault:"100"`
	LogMaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"5"`
	LogMaxAgeDays int    `env:"LOG_MAX_AGE_DAYS" envDefault:"28"`

	// Rate limiting
	RateLimitPerMinute int `env:"RATE_LIMIT_PER_MINUTE" envDefault:"120"`

	// Sessions
	ClampEffectiveStudyTime bool          `env:"CLAMP_EFFECTIVE_STUDY_TIME" envDefault:"false"`
	MaxSessionDuration      time.Duration `env:"MAX_SESSION_DURATION" envDefault:"12h"`
	ReaperInterval          time.Duration `env:"REAPER_INTERVAL" envDefault:"5m"`
	LockTTL                 time.Duration `env:"LOCK_TTL" envDefault:"10s"`
	LockWait                time.Duration `env:"LOCK_WAIT" envDefault:"5s"`
}

// Load reads .env if present, then the process environment.
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate rejects settings that cannot work together.
func (c *Config) Validate() error {
	var errs []error

	switch c.StorageBackend {
	case StorageMemory:
	case StorageBolt:
		if c.BoltPath == "" {
			errs = append(errs, errors.New("BOLT_PATH is required for the bolt backend"))
		}
	case StoragePostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_BACKEND %q", c.StorageBackend))
	}

	if c.RateLimitPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.MaxSessionDuration <= 0 {
		errs = append(errs, errors.New("MAX_SESSION_DURATION must be positive"))
	}
	if c.ReaperInterval <= 0 {
		errs = append(errs, errors.New("REAPER_INTERVAL must be positive"))
	}
	if c.LockWait <= 0 || c.LockTTL <= 0 {
		errs = append(errs, errors.New("LOCK_TTL and LOCK_WAIT must be positive"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}
