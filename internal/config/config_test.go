package config_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neexbeast/skywatch/internal/config"
)

// clearEnv blanks every variable Load reads so host settings cannot leak in.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"PORT", "VERSION", "DATABASE_URL", "DB_QUERY_TIMEOUT", "STORAGE_API_URL", "AGGREGATOR_API_URL", "STORAGE_API_TOKEN",
		"UPSTREAM_CONNECT_TIMEOUT", "UPSTREAM_TIMEOUT", "UPSTREAM_RETRIES", "RATE_LIMIT_PER_MINUTE",
		"METRICS_ENABLED", "DEFAULT_CITY", "DEFAULT_LAT", "DEFAULT_LON",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load(config.ServiceDashboard)
	require.NoError(t, err)
	assert.Equal(t, "8082", cfg.Port)
	assert.Equal(t, "dev", cfg.Version)
	assert.Equal(t, "http://localhost:8080", cfg.StorageAPIURL)
	assert.Equal(t, "http://localhost:8081", cfg.AggregatorAPIURL)
	assert.Equal(t, 5*time.Second, cfg.Upstream.ConnectTimeout)
	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 1, cfg.Upstream.Retries)
	assert.Equal(t, 5*time.Second, cfg.QueryTimeout)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.True(t, cfg.MetricsEnabled)
	assert.True(t, cfg.DefaultLocation.IsZero())
}

func TestLoad_PerServicePorts(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATABASE_URL", "postgres://localhost/skywatch")

	storage, err := config.Load(config.ServiceStorage)
	require.NoError(t, err)
	assert.Equal(t, "8080", storage.Port)

	agg, err := config.Load(config.ServiceAggregator)
	require.NoError(t, err)
	assert.Equal(t, "8081", agg.Port)
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("VERSION", "1.2.3")
	t.Setenv("STORAGE_API_URL", "http://storage:8080/")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("DB_QUERY_TIMEOUT", "750ms")
	t.Setenv("UPSTREAM_RETRIES", "0")
	t.Setenv("METRICS_ENABLED", "false")
	t.Setenv("DEFAULT_LAT", "40.7")
	t.Setenv("DEFAULT_LON", "-74.0")

	cfg, err := config.Load(config.ServiceAggregator)
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "1.2.3", cfg.Version)
	assert.Equal(t, "http://storage:8080", cfg.StorageAPIURL)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 750*time.Millisecond, cfg.QueryTimeout)
	assert.Equal(t, 0, cfg.Upstream.Retries)
	assert.False(t, cfg.MetricsEnabled)
	require.True(t, cfg.DefaultLocation.HasCoordinates())
	assert.Equal(t, 40.7, *cfg.DefaultLocation.Lat)
	assert.Equal(t, -74.0, *cfg.DefaultLocation.Lon)
}

func TestLoad_StorageRequiresDatabaseURL(t *testing.T) {
	clearEnv(t)
	_, err := config.Load(config.ServiceStorage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_InvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad duration":    {"UPSTREAM_TIMEOUT", "soon"},
		"zero timeout":    {"UPSTREAM_CONNECT_TIMEOUT", "0s"},
		"bad retries":     {"UPSTREAM_RETRIES", "many"},
		"negative":        {"UPSTREAM_RETRIES", "-1"},
		"bad rate limit":  {"RATE_LIMIT_PER_MINUTE", "0"},
		"zero query":      {"DB_QUERY_TIMEOUT", "0s"},
		"bad bool":        {"METRICS_ENABLED", "maybe"},
		"lat without lon": {"DEFAULT_LAT", "10"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			_, err := config.Load(config.ServiceAggregator)
			require.Error(t, err)
		})
	}
}

func TestLoad_DefaultLatOutOfRange(t *testing.T) {
	clearEnv(t)
	t.Setenv("DEFAULT_LAT", "91")
	t.Setenv("DEFAULT_LON", "0")
	_, err := config.Load(config.ServiceAggregator)
	require.Error(t, err)
}

func TestLoad_UnknownService(t *testing.T) {
	_, err := config.Load(config.Service("nope"))
	require.Error(t, err)
}
