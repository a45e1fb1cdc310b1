package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/config"
	httphandler "github.com/kjstillabower/weather-lookup-service/internal/http"
	"github.com/kjstillabower/weather-lookup-service/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	logger, err := observability.NewLogger(httphandler.ServiceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	shutdownTracer, err := observability.InitTracer(observability.TracingConfig{
		Enabled:     cfg.TracingEnabled,
		ZipkinURL:   cfg.ZipkinURL,
		ServiceName: cfg.TracingServiceName,
		Version:     version,
	}, logger)
	if err != nil {
		logger.Fatal("tracing", zap.Error(err))
	}

	geocoder, err := client.NewOpenMeteoGeocoder(cfg.GeocodingAPIURL, cfg.GeocodingLanguage, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("geocoding client", zap.Error(err))
	}
	forecast, err := client.NewOpenMeteoForecastClient(cfg.ForecastAPIURL, cfg.ForecastDays, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("forecast client", zap.Error(err))
	}
	resolver := service.NewResolver(geocoder, forecast, cfg.MaxQueryLength, logger)

	healthConfig := &httphandler.HealthConfig{
		DegradedWindow:   cfg.DegradedWindow,
		DegradedErrorPct: cfg.DegradedErrorPct,
		Version:          version,
	}
	handler := httphandler.NewHandler(resolver, healthConfig, logger)

	observability.RegisterOutcomeGauges(cfg.DegradedWindow)
	if len(cfg.TrackedLocations) > 0 {
		observability.SetTrackedLocations(cfg.TrackedLocations)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           httphandler.NewRouter(handler, cfg.RequestTimeout, logger),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("version", version),
			zap.String("geocoding_api", cfg.GeocodingAPIURL),
			zap.String("forecast_api", cfg.ForecastAPIURL),
			zap.Duration("upstream_timeout", cfg.UpstreamTimeout))
		lifecycle.MarkStarted(time.Now())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer flushCancel()
	if err := observability.FlushTelemetry(flushCtx, logger, shutdownTracer); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
