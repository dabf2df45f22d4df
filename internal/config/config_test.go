package config_test

import (
	"testing"
	"time"

	"github.com/UnknownOlympus/compass/internal/config"
	"github.com/stretchr/testify/assert"
)

func Test_MustLoadFromEnv(t *testing.T) {
	t.Setenv("COMPASS_ENV", "local")
	t.Setenv("COMPASS_INTERVAL", "10m")
	t.Setenv("COMPASS_PROVIDER_KEY", "testAPIKey")
	t.Setenv("COMPASS_CACHE_BACKEND", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("DB_HOST", "testHost")
	t.Setenv("DB_PORT", "12345")
	t.Setenv("DB_USERNAME", "admin")
	t.Setenv("DB_PASSWORD", "adminpass")
	t.Setenv("DB_NAME", "testName")

	cfg := config.MustLoad()

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, "testHost", cfg.Database.Host)
	assert.Equal(t, "12345", cfg.Database.Port)
	assert.Equal(t, "admin", cfg.Database.User)
	assert.Equal(t, "adminpass", cfg.Database.Password)
	assert.Equal(t, "testName", cfg.Database.Name)
	assert.Equal(t, 10*time.Minute, cfg.Interval)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "testAPIKey", cfg.Provider.APIKey)
	assert.Equal(t, "redis", cfg.Cache.Backend)
	assert.Equal(t, "redis://localhost:6379/0", cfg.Cache.RedisURL)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 4, cfg.Workers)
}

func TestMustLoad_Defaults(t *testing.T) {
	cfg := config.MustLoad()

	assert.Equal(t, "google", cfg.Provider.Type)
	assert.Equal(t, 5*time.Second, cfg.Provider.Timeout)
	assert.Equal(t, "fr", cfg.Provider.Language)
	assert.Equal(t, "FR", cfg.Provider.Country)
	assert.Equal(t, "postgres", cfg.Cache.Backend)
	assert.Equal(t, 10000, cfg.Cache.MemorySize)
	assert.Equal(t, "demande de rma", cfg.Reconciler.RMAMarker)
	assert.Equal(t, "RMA", cfg.Reconciler.RMAStatus)
	assert.Equal(t, "Nouveau", cfg.Reconciler.NewStatus)
	assert.Equal(t, "resolved-tickets", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Brokers)
}

func TestMustLoad_IntervalError(t *testing.T) {
	t.Setenv("COMPASS_INTERVAL", "error_value")

	assert.PanicsWithValue(t, "failed to parse interval from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_ProviderTimeoutError(t *testing.T) {
	t.Setenv("COMPASS_PROVIDER_TIMEOUT", "-1s")

	assert.PanicsWithValue(t, "failed to parse provider timeout from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_PortError(t *testing.T) {
	t.Setenv("COMPASS_HTTP_PORT", "error_value")

	assert.PanicsWithValue(t, "failed to parse port for http server from configuration", func() {
		config.MustLoad()
	})
}

func TestMustLoad_WorkersError(t *testing.T) {
	t.Setenv("COMPASS_WORKERS", "0")

	assert.PanicsWithValue(t, "failed to parse workers from configuration, must be a positive integer", func() {
		config.MustLoad()
	})
}
