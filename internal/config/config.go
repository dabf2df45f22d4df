package config

import (
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the configuration settings for the compass service.
//
// Fields:
// - Env: The current environment (e.g., local, development, production).
// - Port: The port for the HTTP API and monitoring server.
// - Provider: Geocoding provider settings.
// - Workers: The maximum number of concurrent address resolutions.
// - Interval: The duration between document store snapshots.
// - Cache: Geocode cache backend settings.
// - Reconciler: Status reconciliation rules.
// - Database: Configuration settings for the PostgreSQL database.
type Config struct {
	Env              string           // Env is the current environment: local, development, production.
	Port             int              // Port is the HTTP server port.
	Provider         ProviderConfig   // Provider holds the geocoding provider settings.
	Workers          int              // The number of concurrent address resolutions.
	Interval         time.Duration    // The duration between snapshot polls.
	WritebackTimeout time.Duration    // Upper bound for a single background write.
	ZonesFile        string           // Path to a GeoJSON file with sector zones, empty for the built-in set.
	AddrPrefix       string           // Address prefix for more accurate geocoding
	Cache            CacheConfig      // Cache holds the geocode cache settings.
	Reconciler       ReconcilerConfig // Reconciler holds the status rules.
	Kafka            KafkaConfig      // Kafka holds the resolved tickets feed settings.
	Database         PostgresConfig   // Database holds the postgres database configuration
}

// ProviderConfig describes the external geocoding provider.
type ProviderConfig struct {
	Type      string        // Type is one of google, nominatim, visicom.
	APIKey    string        // APIKey for providers that require one.
	Timeout   time.Duration // Timeout bounds a single provider call.
	RateLimit int           // RateLimit is the number of requests per second.
	Language  string        // Language hint sent with every request.
	Country   string        // Country hint (ISO 3166-1 alpha-2) sent with every request.
}

// CacheConfig describes the geocode cache.
type CacheConfig struct {
	Backend    string // Backend is one of postgres, redis, memory.
	MemorySize int    // MemorySize is the capacity of the in-process tier.
	RedisURL   string // RedisURL is used by the redis backend.
}

// ReconcilerConfig holds the status derivation rules.
type ReconcilerConfig struct {
	RMAMarker string // RMAMarker is matched case-insensitively against the ticket request.
	RMAStatus string // RMAStatus is forced when the marker is present.
	NewStatus string // NewStatus is applied to tickets without a status.
}

// KafkaConfig describes the resolved tickets feed. Empty Brokers disables it.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// PostgresConfig struct holds the configuration details for connecting to a PostgreSQL database.
type PostgresConfig struct {
	Host     string // Host is the database server address.
	Port     string // Port is the database server port.
	User     string // User is the database user.
	Password string // Password is the database user's password.
	Name     string // Name is the name of the database.
}

// MustLoad loads the configuration from the environment (and an optional .env file)
// and returns a Config struct. It panics on malformed values.
func MustLoad() *Config {
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	interval, err := time.ParseDuration(v.GetString("COMPASS_INTERVAL"))
	if err != nil || interval <= 0 {
		panic("failed to parse interval from configuration")
	}

	providerTimeout, err := time.ParseDuration(v.GetString("COMPASS_PROVIDER_TIMEOUT"))
	if err != nil || providerTimeout <= 0 {
		panic("failed to parse provider timeout from configuration")
	}

	writebackTimeout, err := time.ParseDuration(v.GetString("COMPASS_WRITEBACK_TIMEOUT"))
	if err != nil || writebackTimeout <= 0 {
		panic("failed to parse writeback timeout from configuration")
	}

	port, err := strconv.Atoi(v.GetString("COMPASS_HTTP_PORT"))
	if err != nil {
		panic("failed to parse port for http server from configuration")
	}

	workers, err := strconv.Atoi(v.GetString("COMPASS_WORKERS"))
	if err != nil || workers < 1 {
		panic("failed to parse workers from configuration, must be a positive integer")
	}

	rateLimit, err := strconv.Atoi(v.GetString("COMPASS_PROVIDER_RATE_LIMIT"))
	if err != nil {
		panic("failed to parse provider rate limit from configuration")
	}

	cacheSize, err := strconv.Atoi(v.GetString("COMPASS_CACHE_MEMORY_SIZE"))
	if err != nil || cacheSize < 1 {
		panic("failed to parse cache memory size from configuration")
	}

	return &Config{
		Env:              v.GetString("COMPASS_ENV"),
		Port:             port,
		Workers:          workers,
		Interval:         interval,
		WritebackTimeout: writebackTimeout,
		ZonesFile:        v.GetString("COMPASS_ZONES_FILE"),
		AddrPrefix:       v.GetString("COMPASS_ADDRESS_PREFIX"),
		Provider: ProviderConfig{
			Type:      v.GetString("COMPASS_PROVIDER_TYPE"),
			APIKey:    v.GetString("COMPASS_PROVIDER_KEY"),
			Timeout:   providerTimeout,
			RateLimit: rateLimit,
			Language:  v.GetString("COMPASS_PROVIDER_LANGUAGE"),
			Country:   v.GetString("COMPASS_PROVIDER_COUNTRY"),
		},
		Cache: CacheConfig{
			Backend:    v.GetString("COMPASS_CACHE_BACKEND"),
			MemorySize: cacheSize,
			RedisURL:   v.GetString("REDIS_URL"),
		},
		Reconciler: ReconcilerConfig{
			RMAMarker: v.GetString("COMPASS_RMA_MARKER"),
			RMAStatus: v.GetString("COMPASS_STATUS_RMA"),
			NewStatus: v.GetString("COMPASS_STATUS_NEW"),
		},
		Kafka: KafkaConfig{
			Brokers: parseList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		Database: PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USERNAME"),
			Password: v.GetString("DB_PASSWORD"),
			Name:     v.GetString("DB_NAME"),
		},
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("COMPASS_ENV", "production")
	v.SetDefault("COMPASS_HTTP_PORT", "8080")
	v.SetDefault("COMPASS_INTERVAL", "30s")
	v.SetDefault("COMPASS_WORKERS", "4")
	v.SetDefault("COMPASS_WRITEBACK_TIMEOUT", "10s")
	v.SetDefault("COMPASS_PROVIDER_TYPE", "google")
	v.SetDefault("COMPASS_PROVIDER_TIMEOUT", "5s")
	v.SetDefault("COMPASS_PROVIDER_RATE_LIMIT", "10")
	v.SetDefault("COMPASS_PROVIDER_LANGUAGE", "fr")
	v.SetDefault("COMPASS_PROVIDER_COUNTRY", "FR")
	v.SetDefault("COMPASS_CACHE_BACKEND", "postgres")
	v.SetDefault("COMPASS_CACHE_MEMORY_SIZE", "10000")
	v.SetDefault("COMPASS_RMA_MARKER", "demande de rma")
	v.SetDefault("COMPASS_STATUS_RMA", "RMA")
	v.SetDefault("COMPASS_STATUS_NEW", "Nouveau")
	v.SetDefault("KAFKA_TOPIC", "resolved-tickets")
	v.SetDefault("DB_PORT", "5432")
}

func parseList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
