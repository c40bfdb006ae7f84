package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-secret-of-sixteen+")

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, StoreMemory, cfg.StoreDriver)
	assert.Equal(t, EventBusNone, cfg.EventBus)
	assert.Equal(t, 24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, []string{"EUR", "USD", "GBP"}, cfg.SupportedCurrencies)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", "a-secret-of-sixteen+")
	t.Setenv("PORT", "9090")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "postgres://ledger@localhost/ledger")
	t.Setenv("EVENT_BUS", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("TOKEN_TTL", "30m")
	t.Setenv("SUPPORTED_CURRENCIES", "EUR,CHF")

	cfg, err := Load(zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 30*time.Minute, cfg.TokenTTL)
	assert.Equal(t, []string{"EUR", "CHF"}, cfg.SupportedCurrencies)
}

func TestLoadRejects(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "missing secret", env: map[string]string{}},
		{name: "short secret", env: map[string]string{"JWT_SECRET": "short"}},
		{name: "unknown store", env: map[string]string{"JWT_SECRET": "a-secret-of-sixteen+", "STORE_DRIVER": "mongo"}},
		{name: "postgres without url", env: map[string]string{"JWT_SECRET": "a-secret-of-sixteen+", "STORE_DRIVER": "postgres"}},
		{name: "kafka without brokers", env: map[string]string{"JWT_SECRET": "a-secret-of-sixteen+", "EVENT_BUS": "kafka"}},
		{name: "redis bus without address", env: map[string]string{"JWT_SECRET": "a-secret-of-sixteen+", "EVENT_BUS": "redis"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(zap.NewNop())
			assert.Error(t, err)
		})
	}
}
