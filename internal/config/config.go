package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/neexbeast/skywatch/internal/readings"
)

// Service names one hop of the chain.
type Service string

const (
	ServiceStorage    Service = "storage-api"
	ServiceAggregator Service = "aggregator"
	ServiceDashboard  Service = "dashboard"
)

var defaultPorts = map[Service]string{
	ServiceStorage:    "8080",
	ServiceAggregator: "8081",
	ServiceDashboard:  "8082",
}

// Config is built once at startup and passed to every component that needs it.
type Config struct {
	Service Service
	Port    string
	Version string

	// DatabaseURL is required by the storage service only.
	DatabaseURL string
	// QueryTimeout bounds every store access.
	QueryTimeout time.Duration

	StorageAPIURL    string
	AggregatorAPIURL string

	// StorageToken guards the storage tier when set; the aggregator sends it upstream.
	StorageToken string

	Upstream Upstream

	RateLimitPerMinute int
	MetricsEnabled     bool

	// DefaultLocation is used by the aggregator when a request names no location.
	DefaultLocation readings.Location
}

// Upstream bounds every outbound hop call.
type Upstream struct {
	ConnectTimeout time.Duration
	Timeout        time.Duration
	Retries        int
}

// Load reads configuration for the given service from the environment.
// A .env file in the working directory is loaded first when present.
func Load(service Service) (*Config, error) {
	port, ok := defaultPorts[service]
	if !ok {
		return nil, fmt.Errorf("unknown service %q", service)
	}
	_ = godotenv.Load()

	cfg := &Config{
		Service:          service,
		Port:             getenvDefault("PORT", port),
		Version:          getenvDefault("VERSION", "dev"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		StorageAPIURL:    strings.TrimRight(getenvDefault("STORAGE_API_URL", "http://localhost:8080"), "/"),
		AggregatorAPIURL: strings.TrimRight(getenvDefault("AGGREGATOR_API_URL", "http://localhost:8081"), "/"),
		StorageToken:     os.Getenv("STORAGE_API_TOKEN"),
	}

	var err error
	if cfg.Upstream.ConnectTimeout, err = getenvDuration("UPSTREAM_CONNECT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Upstream.Timeout, err = getenvDuration("UPSTREAM_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.QueryTimeout, err = getenvDuration("DB_QUERY_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.Upstream.Retries, err = getenvInt("UPSTREAM_RETRIES", 1); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = getenvInt("RATE_LIMIT_PER_MINUTE", 120); err != nil {
		return nil, err
	}
	if cfg.MetricsEnabled, err = getenvBool("METRICS_ENABLED", true); err != nil {
		return nil, err
	}
	if cfg.DefaultLocation, err = loadDefaultLocation(); err != nil {
		return nil, err
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Service == ServiceStorage && c.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required for the storage service")
	}
	if c.Upstream.ConnectTimeout <= 0 || c.Upstream.Timeout <= 0 {
		return errors.New("upstream timeouts must be positive")
	}
	if c.QueryTimeout <= 0 {
		return errors.New("DB_QUERY_TIMEOUT must be positive")
	}
	if c.Upstream.Retries < 0 {
		return errors.New("UPSTREAM_RETRIES must not be negative")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func loadDefaultLocation() (readings.Location, error) {
	loc := readings.Location{City: strings.TrimSpace(os.Getenv("DEFAULT_CITY"))}

	latStr, lonStr := os.Getenv("DEFAULT_LAT"), os.Getenv("DEFAULT_LON")
	if latStr == "" && lonStr == "" {
		return loc, nil
	}
	if latStr == "" || lonStr == "" {
		return loc, errors.New("DEFAULT_LAT and DEFAULT_LON must be set together")
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil || lat < -90 || lat > 90 {
		return loc, fmt.Errorf("invalid DEFAULT_LAT %q", latStr)
	}
	lon, err := strconv.ParseFloat(lonStr, 64)
	if err != nil || lon < -180 || lon > 180 {
		return loc, fmt.Errorf("invalid DEFAULT_LON %q", lonStr)
	}
	loc.Lat, loc.Lon = &lat, &lon
	return loc, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getenvBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
