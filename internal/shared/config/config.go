package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Saga execution modes.
const (
	ModePipeline = "pipeline"
	ModeBus      = "bus"
)

// Config holds all configuration for the application.
type Config struct {
	AppEnv         string
	Saga           SagaConfig
	Postgres       PostgresConfig
	EncryptionKey  string
	Redis          RedisConfig
	Telegram       TelegramConfig
	MetricsAddr    string
	TriggerPayload string
}

// SagaConfig controls how jobs run.
type SagaConfig struct {
	Mode        string
	StepTimeout time.Duration
	MaxDepth    int
}

// PostgresConfig is optional; without a URL the seeded memory store is used.
type PostgresConfig struct {
	URL string
}

// RedisConfig is optional; with an address committed change sets are published.
type RedisConfig struct {
	Addr    string
	Channel string
}

// TelegramConfig is optional; with a token saga outcomes are sent to ChatID.
type TelegramConfig struct {
	Token  string
	ChatID int64
}

// bindings maps viper keys to the environment variables that feed them.
var bindings = map[string]string{
	"app.env":           "APP_ENV",
	"saga.mode":         "SAGA_MODE",
	"saga.step_timeout": "SAGA_STEP_TIMEOUT",
	"bus.max_depth":     "BUS_MAX_DEPTH",
	"postgres.url":      "DATABASE_URL",
	"encryption.key":    "ENCRYPTION_KEY",
	"redis.addr":        "REDIS_ADDR",
	"redis.channel":     "REDIS_CHANNEL",
	"telegram.token":    "TELEGRAM_TOKEN",
	"telegram.chat_id":  "TELEGRAM_CHAT_ID",
	"metrics.addr":      "METRICS_ADDR",
	"trigger.payload":   "TRIGGER_PAYLOAD",
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// 1. Load .env file into the process environment.
	// If .env is not found, we just proceed, relying on OS-set env vars.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := viper.New()

	// 2. Explicitly bind viper keys to env var names
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("could not bind %s: %w", key, err)
		}
	}

	// 3. Set defaults
	v.SetDefault("app.env", "dev")
	v.SetDefault("saga.mode", ModePipeline)
	v.SetDefault("saga.step_timeout", "5s")
	v.SetDefault("bus.max_depth", 32)
	v.SetDefault("redis.channel", "saga.commits")
	v.SetDefault("trigger.payload", `{ "invoiceId": 1 }`)

	cfg := Config{
		AppEnv: v.GetString("app.env"),
		Saga: SagaConfig{
			Mode:        v.GetString("saga.mode"),
			StepTimeout: v.GetDuration("saga.step_timeout"),
			MaxDepth:    v.GetInt("bus.max_depth"),
		},
		Postgres:      PostgresConfig{URL: v.GetString("postgres.url")},
		EncryptionKey: v.GetString("encryption.key"),
		Redis: RedisConfig{
			Addr:    v.GetString("redis.addr"),
			Channel: v.GetString("redis.channel"),
		},
		Telegram: TelegramConfig{
			Token:  v.GetString("telegram.token"),
			ChatID: v.GetInt64("telegram.chat_id"),
		},
		MetricsAddr:    v.GetString("metrics.addr"),
		TriggerPayload: v.GetString("trigger.payload"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Saga.Mode != ModePipeline && c.Saga.Mode != ModeBus {
		return fmt.Errorf("SAGA_MODE must be %q or %q, got %q", ModePipeline, ModeBus, c.Saga.Mode)
	}
	if c.Saga.StepTimeout < 0 {
		return errors.New("SAGA_STEP_TIMEOUT must not be negative")
	}
	if c.Saga.MaxDepth < 1 {
		return fmt.Errorf("BUS_MAX_DEPTH must be at least 1, got %d", c.Saga.MaxDepth)
	}

	// The encryption key only matters when change sets are persisted.
	if c.Postgres.URL != "" {
		if c.EncryptionKey == "" {
			return errors.New("ENCRYPTION_KEY is required when DATABASE_URL is set")
		}
		if len(c.EncryptionKey) != 64 {
			return fmt.Errorf("ENCRYPTION_KEY must be a 64-character hex string (32 bytes), but got %d chars", len(c.EncryptionKey))
		}
	}

	if c.Telegram.Token != "" && c.Telegram.ChatID == 0 {
		return errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *Config) IsDev() bool {
	return c.AppEnv == "dev" || c.AppEnv == "development"
}
