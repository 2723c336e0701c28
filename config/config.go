package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the complete application configuration
type Config struct {
	Server      ServerConfig
	Engine      EngineConfig
	Cache       CacheConfig
	Ledger      LedgerConfig
	Providers   ProvidersConfig
	Environment string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// EngineConfig holds execution defaults; provider configs override these
// per provider.
type EngineConfig struct {
	DefaultMaxTokens int
	MaxAttempts      int
	AttemptTimeout   time.Duration
	BackoffBase      time.Duration
}

// CacheConfig holds response-cache configuration. RedisURL, when set,
// switches the cache backend from in-memory to Redis.
type CacheConfig struct {
	TTL        time.Duration
	MaxEntries int
	RedisURL   string
}

// LedgerConfig holds cost-ledger configuration. DatabaseURL, when set,
// enables the durable spend mirror.
type LedgerConfig struct {
	DatabaseURL string
}

// ProvidersConfig holds credentials for providers seeded at startup.
// Further providers register through the admin API.
type ProvidersConfig struct {
	OpenAI OpenAIConfig
}

// OpenAIConfig holds OpenAI provider configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string
}

// New creates a Config instance from environment variables
func New() (*Config, error) {
	// Load .env if present
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Engine: EngineConfig{
			DefaultMaxTokens: getEnvAsInt("ENGINE_DEFAULT_MAX_TOKENS", 1024),
			MaxAttempts:      getEnvAsInt("ENGINE_MAX_ATTEMPTS", 3),
			AttemptTimeout:   getEnvAsDuration("ENGINE_ATTEMPT_TIMEOUT", 30*time.Second),
			BackoffBase:      getEnvAsDuration("ENGINE_BACKOFF_BASE", time.Second),
		},
		Cache: CacheConfig{
			TTL:        getEnvAsDuration("CACHE_TTL", 5*time.Minute),
			MaxEntries: getEnvAsInt("CACHE_MAX_ENTRIES", 1024),
			RedisURL:   getEnv("CACHE_REDIS_URL", ""),
		},
		Ledger: LedgerConfig{
			DatabaseURL: getEnv("LEDGER_DATABASE_URL", ""),
		},
		Providers: ProvidersConfig{
			OpenAI: OpenAIConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", ""),
			},
		},
	}

	return cfg, nil
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions for environment variables

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
