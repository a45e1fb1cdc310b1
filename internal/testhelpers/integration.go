//go:build integration
// +build integration

// Package testhelpers builds live Open-Meteo clients for tests run with -tags integration.
package testhelpers

import (
	"os"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/config"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
)

// IntegrationTestConfig holds the live endpoints used by integration tests.
type IntegrationTestConfig struct {
	GeocodingURL string
	ForecastURL  string
	Timeout      time.Duration
}

// GetIntegrationConfig reads endpoints from the environment, defaulting to public Open-Meteo.
// Set SKIP_LIVE_API=1 to skip when the network is unavailable.
func GetIntegrationConfig(t *testing.T) IntegrationTestConfig {
	t.Helper()
	if os.Getenv("SKIP_LIVE_API") != "" {
		t.Skip("SKIP_LIVE_API set, skipping live Open-Meteo test")
	}
	cfg := IntegrationTestConfig{
		GeocodingURL: os.Getenv("GEOCODING_API_URL"),
		ForecastURL:  os.Getenv("FORECAST_API_URL"),
		Timeout:      config.DefaultUpstreamTimeout,
	}
	if cfg.GeocodingURL == "" {
		cfg.GeocodingURL = config.DefaultGeocodingURL
	}
	if cfg.ForecastURL == "" {
		cfg.ForecastURL = config.DefaultForecastURL
	}
	return cfg
}

// SetupIntegrationResolver wires live clients into a Resolver that logs through t.
func SetupIntegrationResolver(t *testing.T, cfg IntegrationTestConfig) *service.Resolver {
	t.Helper()
	geocoder, err := client.NewOpenMeteoGeocoder(cfg.GeocodingURL, "en", cfg.Timeout)
	if err != nil {
		t.Fatalf("NewOpenMeteoGeocoder() error = %v", err)
	}
	forecast, err := client.NewOpenMeteoForecastClient(cfg.ForecastURL, client.DefaultForecastDays, cfg.Timeout)
	if err != nil {
		t.Fatalf("NewOpenMeteoForecastClient() error = %v", err)
	}
	return service.NewResolver(geocoder, forecast, config.DefaultMaxQueryLength, zaptest.NewLogger(t, zaptest.Level(zap.DebugLevel)))
}
