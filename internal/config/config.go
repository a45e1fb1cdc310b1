package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGeocodingURL    = "https://geocoding-api.open-meteo.com/v1/search"
	DefaultForecastURL     = "https://api.open-meteo.com/v1/forecast"
	DefaultUpstreamTimeout = 8 * time.Second
	DefaultMaxQueryLength  = 200
	maxForecastDays        = 16
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	GeocodingAPIURL   string
	GeocodingLanguage string
	ForecastAPIURL    string
	ForecastDays      int
	UpstreamTimeout   time.Duration

	RequestTimeout time.Duration
	MaxQueryLength int

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration

	DegradedWindow   time.Duration
	DegradedErrorPct int

	TracingEnabled     bool
	ZipkinURL          string
	TracingServiceName string

	TrackedLocations []string
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	GeocodingAPI struct {
		URL      string `yaml:"url"`
		Language string `yaml:"language"`
	} `yaml:"geocoding_api"`

	ForecastAPI struct {
		URL          string `yaml:"url"`
		ForecastDays int    `yaml:"forecast_days"`
	} `yaml:"forecast_api"`

	Upstream struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	Request struct {
		Timeout        string `yaml:"timeout"`
		MaxQueryLength int    `yaml:"max_query_length"`
	} `yaml:"request"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`

	Lifecycle struct {
		DegradedWindow   string `yaml:"degraded_window"`
		DegradedErrorPct int    `yaml:"degraded_error_pct"`
	} `yaml:"lifecycle"`

	Tracing struct {
		Enabled     bool   `yaml:"enabled"`
		ZipkinURL   string `yaml:"zipkin_url"`
		ServiceName string `yaml:"service_name"`
	} `yaml:"tracing"`

	Metrics struct {
		TrackedLocations []string `yaml:"tracked_locations"`
	} `yaml:"metrics"`
}

// Load reads .env (if present), then config/{ENV_NAME}.yaml (default dev), then env overrides.
// Variables already set in the environment win over .env. Call from project root.
func Load() (*Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	if err := godotenv.Load(filepath.Join(cwd, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := fromFile(fc)
	applyEnv(cfg)
	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func fromFile(fc fileConfig) *Config {
	cfg := &Config{}

	cfg.ServerPort = orDefault(fc.Server.Port, "8080")

	cfg.GeocodingAPIURL = orDefault(fc.GeocodingAPI.URL, DefaultGeocodingURL)
	cfg.GeocodingLanguage = orDefault(fc.GeocodingAPI.Language, "en")
	cfg.ForecastAPIURL = orDefault(fc.ForecastAPI.URL, DefaultForecastURL)
	cfg.ForecastDays = fc.ForecastAPI.ForecastDays
	if cfg.ForecastDays == 0 {
		cfg.ForecastDays = 7
	}
	cfg.UpstreamTimeout = parseDurationOrZero(fc.Upstream.Timeout, DefaultUpstreamTimeout)

	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 20*time.Second)
	cfg.MaxQueryLength = fc.Request.MaxQueryLength
	if cfg.MaxQueryLength <= 0 {
		cfg.MaxQueryLength = DefaultMaxQueryLength
	}

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	cfg.DegradedWindow = parseDuration(fc.Lifecycle.DegradedWindow, 60*time.Second)
	cfg.DegradedErrorPct = fc.Lifecycle.DegradedErrorPct
	if cfg.DegradedErrorPct <= 0 {
		cfg.DegradedErrorPct = 50
	}

	cfg.TracingEnabled = fc.Tracing.Enabled
	cfg.ZipkinURL = orDefault(fc.Tracing.ZipkinURL, "http://localhost:9411/api/v2/spans")
	cfg.TracingServiceName = orDefault(fc.Tracing.ServiceName, "weather-lookup-service")

	cfg.TrackedLocations = fc.Metrics.TrackedLocations
	return cfg
}

// applyEnv lets deployment override the upstream endpoints, timeout, port and collector.
func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("GEOCODING_API_URL")); v != "" {
		cfg.GeocodingAPIURL = v
	}
	if v := strings.TrimSpace(os.Getenv("FORECAST_API_URL")); v != "" {
		cfg.ForecastAPIURL = v
	}
	if v := os.Getenv("UPSTREAM_TIMEOUT"); v != "" {
		cfg.UpstreamTimeout = parseDurationOrZero(v, cfg.UpstreamTimeout)
	}
	if v := strings.TrimSpace(os.Getenv("SERVER_PORT")); v != "" {
		cfg.ServerPort = v
	}
	if v := strings.TrimSpace(os.Getenv("ZIPKIN_URL")); v != "" {
		cfg.ZipkinURL = v
	}
}

func orDefault(s, def string) string {
	if s = strings.TrimSpace(s); s == "" {
		return def
	}
	return s
}

// parseDuration parses a duration string and returns defaultVal if parsing fails or result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty string or parse error.
// Zero or negative durations are returned as-is so validate can reject them.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate rejects unusable values and raises RequestTimeout so both upstream calls fit inside it.
func validate(cfg *Config) error {
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive, got %s", cfg.UpstreamTimeout)
	}
	for name, raw := range map[string]string{
		"geocoding_api.url": cfg.GeocodingAPIURL,
		"forecast_api.url":  cfg.ForecastAPIURL,
	} {
		u, err := url.Parse(raw)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("%s must be an absolute URL, got %q", name, raw)
		}
	}
	if cfg.ForecastDays < 1 || cfg.ForecastDays > maxForecastDays {
		return fmt.Errorf("forecast_api.forecast_days must be between 1 and %d, got %d", maxForecastDays, cfg.ForecastDays)
	}
	if cfg.DegradedErrorPct > 100 {
		return fmt.Errorf("lifecycle.degraded_error_pct must be at most 100, got %d", cfg.DegradedErrorPct)
	}
	if minTimeout := 2*cfg.UpstreamTimeout + time.Second; cfg.RequestTimeout < minTimeout {
		cfg.RequestTimeout = minTimeout
	}
	return nil
}
