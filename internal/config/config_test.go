package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("APP_ENV", "production") // skip any local .env
	t.Setenv("ACCOUNT_DB_URI", "mongodb://localhost:27017/accounts")
	t.Setenv("TRACER_DB_URI", "mongodb://localhost:27017/tracer")
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 10, cfg.Accounts.MaxConnections)
	assert.Equal(t, time.Minute, cfg.Accounts.IdleTimeout)
	assert.Equal(t, int64(50), cfg.Page.DefaultLimit)
	assert.Equal(t, int64(500), cfg.Page.MaxLimit)
	assert.Equal(t, 60, cfg.Quota.MaxQueries)
	assert.Equal(t, time.Minute, cfg.Quota.Window)
	assert.Equal(t, 24*time.Hour, cfg.UsageRetention)
	assert.Equal(t, 20, cfg.APIKey.Length)
}

func TestLoad_RequiresDatabaseURIs(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("ACCOUNT_DB_URI", "")
	t.Setenv("TRACER_DB_URI", "")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_Overrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCOUNT_DB_MAX_CONNECTIONS", "3")
	t.Setenv("QUOTA_WINDOW", "30s")
	t.Setenv("MAX_QUERIES_PER_WINDOW", "2")
	t.Setenv("USAGE_RETENTION", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Accounts.MaxConnections)
	assert.Equal(t, 30*time.Second, cfg.Quota.Window)
	assert.Equal(t, 2, cfg.Quota.MaxQueries)
	assert.Equal(t, 48*time.Hour, cfg.UsageRetention)
}

func TestLoad_RejectsInvertedPageLimits(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("RESULT_LIMIT_DEFAULT", "1000")
	t.Setenv("RESULT_LIMIT_MAX", "100")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MalformedValuesFallBackToDefaults(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ACCOUNT_DB_MAX_CONNECTIONS", "not-a-number")
	t.Setenv("QUOTA_WINDOW", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Accounts.MaxConnections)
	assert.Equal(t, time.Minute, cfg.Quota.Window)
}
