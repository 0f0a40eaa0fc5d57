// Package config reads service configuration from environment variables.
// A .env file is honored outside production for local development.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults for knobs that are safe to run without.
const (
	defaultHTTPPort       = "8080"
	defaultLogLevel       = "info"
	defaultPoolMax        = 10
	defaultIdleTimeout    = time.Minute
	defaultAccountsDBName = "opencampaigndata"
	defaultTracerDBName   = "tracer"
	defaultPageLimit      = 50
	defaultMaxPageLimit   = 500
	defaultMaxQueries     = 60
	defaultQuotaWindow    = time.Minute
	defaultRetention      = 24 * time.Hour
	defaultKeyLength      = 20
	defaultKeyAlphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
)

// DatabaseConfig holds per-logical-database connection settings.
type DatabaseConfig struct {
	URI            string
	Name           string
	MaxConnections int
	IdleTimeout    time.Duration
}

// PageConfig bounds result-page sizes.
type PageConfig struct {
	DefaultLimit int64
	MaxLimit     int64
}

// QuotaConfig controls the sliding-window throttle.
type QuotaConfig struct {
	MaxQueries int
	Window     time.Duration
}

// APIKeyConfig defines the shape of issued API keys.
type APIKeyConfig struct {
	Length   int
	Alphabet string
}

// Config is the full configuration surface the service consumes.
type Config struct {
	HTTPPort string
	LogLevel string

	Accounts DatabaseConfig
	Tracer   DatabaseConfig

	Page           PageConfig
	Quota          QuotaConfig
	UsageRetention time.Duration
	APIKey         APIKeyConfig
}

// Load reads configuration from the environment. The two database URIs
// are required; everything else has a default.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("load .env file: %w", err)
		}
	}

	accountURI := os.Getenv("ACCOUNT_DB_URI")
	if accountURI == "" {
		return nil, errors.New("ACCOUNT_DB_URI environment variable must be set")
	}
	tracerURI := os.Getenv("TRACER_DB_URI")
	if tracerURI == "" {
		return nil, errors.New("TRACER_DB_URI environment variable must be set")
	}

	cfg := &Config{
		HTTPPort: getEnvString("HTTP_PORT", defaultHTTPPort),
		LogLevel: getEnvString("LOG_LEVEL", defaultLogLevel),
		Accounts: DatabaseConfig{
			URI:            accountURI,
			Name:           getEnvString("ACCOUNT_DB_NAME", defaultAccountsDBName),
			MaxConnections: getEnvInt("ACCOUNT_DB_MAX_CONNECTIONS", defaultPoolMax),
			IdleTimeout:    getEnvDuration("ACCOUNT_DB_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Tracer: DatabaseConfig{
			URI:            tracerURI,
			Name:           getEnvString("TRACER_DB_NAME", defaultTracerDBName),
			MaxConnections: getEnvInt("TRACER_DB_MAX_CONNECTIONS", defaultPoolMax),
			IdleTimeout:    getEnvDuration("TRACER_DB_IDLE_TIMEOUT", defaultIdleTimeout),
		},
		Page: PageConfig{
			DefaultLimit: int64(getEnvInt("RESULT_LIMIT_DEFAULT", defaultPageLimit)),
			MaxLimit:     int64(getEnvInt("RESULT_LIMIT_MAX", defaultMaxPageLimit)),
		},
		Quota: QuotaConfig{
			MaxQueries: getEnvInt("MAX_QUERIES_PER_WINDOW", defaultMaxQueries),
			Window:     getEnvDuration("QUOTA_WINDOW", defaultQuotaWindow),
		},
		UsageRetention: getEnvDuration("USAGE_RETENTION", defaultRetention),
		APIKey: APIKeyConfig{
			Length:   getEnvInt("API_KEY_LENGTH", defaultKeyLength),
			Alphabet: getEnvString("API_KEY_ALPHABET", defaultKeyAlphabet),
		},
	}

	if cfg.Page.DefaultLimit > cfg.Page.MaxLimit {
		return nil, fmt.Errorf("RESULT_LIMIT_DEFAULT (%d) exceeds RESULT_LIMIT_MAX (%d)",
			cfg.Page.DefaultLimit, cfg.Page.MaxLimit)
	}
	if cfg.APIKey.Length <= 0 || cfg.APIKey.Alphabet == "" {
		return nil, errors.New("api key length and alphabet must be non-empty")
	}

	return cfg, nil
}

func getEnvString(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return defaultValue
	}
	return parsed
}
