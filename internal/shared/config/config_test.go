package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable Load reads so the host environment does
// not leak into tests.
func clearEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir()) // No .env here
	for _, env := range bindings {
		t.Setenv(env, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t) // Empty variables count as unset

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.IsDev())
	assert.Equal(t, ModePipeline, cfg.Saga.Mode)
	assert.Equal(t, 5*time.Second, cfg.Saga.StepTimeout)
	assert.Equal(t, 32, cfg.Saga.MaxDepth)
	assert.Empty(t, cfg.Postgres.URL)
	assert.Equal(t, "saga.commits", cfg.Redis.Channel)
	assert.Equal(t, `{ "invoiceId": 1 }`, cfg.TriggerPayload)
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("SAGA_MODE", "bus")
	t.Setenv("SAGA_STEP_TIMEOUT", "250ms")
	t.Setenv("BUS_MAX_DEPTH", "8")
	t.Setenv("DATABASE_URL", "postgres://localhost/financing")
	t.Setenv("ENCRYPTION_KEY", "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REDIS_CHANNEL", "commits")
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "-1001")
	t.Setenv("TRIGGER_PAYLOAD", `{"invoiceId": 1}`)

	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.IsDev())
	assert.Equal(t, ModeBus, cfg.Saga.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Saga.StepTimeout)
	assert.Equal(t, 8, cfg.Saga.MaxDepth)
	assert.Equal(t, "postgres://localhost/financing", cfg.Postgres.URL)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "commits", cfg.Redis.Channel)
	assert.Equal(t, int64(-1001), cfg.Telegram.ChatID)
}

func TestLoad_Invalid(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
	}{
		{"unknown mode", map[string]string{"SAGA_MODE": "queue"}},
		{"zero depth", map[string]string{"SAGA_MODE": "bus", "BUS_MAX_DEPTH": "0"}},
		{"database without key", map[string]string{"SAGA_MODE": "pipeline", "BUS_MAX_DEPTH": "4", "DATABASE_URL": "postgres://x"}},
		{"short key", map[string]string{"SAGA_MODE": "pipeline", "BUS_MAX_DEPTH": "4", "DATABASE_URL": "postgres://x", "ENCRYPTION_KEY": "abcd"}},
		{"telegram without chat", map[string]string{"SAGA_MODE": "pipeline", "BUS_MAX_DEPTH": "4", "TELEGRAM_TOKEN": "token"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
