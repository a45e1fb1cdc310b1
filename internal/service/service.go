package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/reqctx"
	"github.com/kjstillabower/weather-lookup-service/internal/validation"
)

// LabelSeparator joins the parts of a resolved place label.
const LabelSeparator = ", "

// Resolver chains the geocoder and the forecast fetcher for one query at a time.
// It holds no per-request state and is safe for concurrent use.
type Resolver struct {
	geocoder       client.Geocoder
	forecast       client.ForecastFetcher
	maxQueryLength int
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewResolver creates a Resolver. maxQueryLength <= 0 disables the length bound.
// logger is the fallback when the request context carries none.
func NewResolver(geocoder client.Geocoder, forecast client.ForecastFetcher, maxQueryLength int, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{
		geocoder:       geocoder,
		forecast:       forecast,
		maxQueryLength: maxQueryLength,
		logger:         logger,
		tracer:         otel.Tracer("github.com/kjstillabower/weather-lookup-service/internal/service"),
	}
}

// ResolveWeather geocodes query, then fetches the forecast for the first match.
// The payload is always populated; on failure Weather is nil, Error holds the generic
// message, and the returned error is a *Error carrying the Kind and internal cause.
// LocationNotFound is reported through the same *Error even though it is a normal outcome.
func (r *Resolver) ResolveWeather(ctx context.Context, query string) (models.WeatherPayload, error) {
	start := time.Now()
	logger := reqctx.Logger(ctx, r.logger)
	ctx, span := r.tracer.Start(ctx, "ResolveWeather")
	defer span.End()

	trimmed := strings.TrimSpace(query)
	q, err := validation.ValidateQuery(trimmed, r.maxQueryLength)
	if err != nil {
		return models.WeatherPayload{Location: trimmed, Error: invalidQueryMessage(err)}, r.fail(span, KindInvalidInput, err)
	}
	span.SetAttributes(attribute.String("weather.query", q))

	match, found, err := r.geocoder.Geocode(ctx, q)
	if err != nil {
		kind := classify(ctx, err, KindGeocodingUnavailable)
		return failurePayload(q, kind), r.fail(span, kind, fmt.Errorf("geocode %q: %w", q, err))
	}
	if !found {
		logger.Debug("location not found", zap.String("query", q))
		return failurePayload(q, KindLocationNotFound), r.fail(span, KindLocationNotFound, fmt.Errorf("geocode %q: no results", q))
	}

	label := BuildLabel(match)
	logger.Debug("location resolved",
		zap.String("query", q),
		zap.String("label", label),
		zap.Float64("latitude", match.Latitude),
		zap.Float64("longitude", match.Longitude))
	span.SetAttributes(attribute.String("weather.location", label))

	weather, err := r.forecast.Forecast(ctx, match.Latitude, match.Longitude)
	if err != nil {
		kind := classify(ctx, err, KindForecastUnavailable)
		return failurePayload(q, kind), r.fail(span, kind, fmt.Errorf("forecast for %s: %w", label, err))
	}

	logger.Debug("weather served",
		zap.String("location", label),
		zap.Int("forecast_days", weather.Daily.Len()),
		zap.Duration("duration", time.Since(start)))
	return models.WeatherPayload{Location: label, Weather: &weather}, nil
}

func (r *Resolver) fail(span trace.Span, kind Kind, cause error) *Error {
	span.SetAttributes(attribute.String("weather.outcome", kind.String()))
	if kind.Upstream() {
		span.RecordError(cause)
		span.SetStatus(codes.Error, kind.String())
	}
	return &Error{Kind: kind, Err: cause}
}

// classify maps a client error to a Kind. unavailable is the kind used for transport and
// status failures of the stage that failed. A caller that cancelled ctx gets KindCanceled
// whatever the client reported.
func classify(ctx context.Context, err error, unavailable Kind) Kind {
	switch {
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return KindCanceled
	case errors.Is(err, client.ErrTimeout):
		return KindTimeout
	case errors.Is(err, client.ErrUpstreamFailure):
		return unavailable
	default:
		return KindUnknown
	}
}

func invalidQueryMessage(err error) string {
	switch {
	case errors.Is(err, validation.ErrQueryTooLong):
		return MsgQueryTooLong
	case errors.Is(err, validation.ErrQueryControlChars):
		return MsgQueryInvalid
	default:
		return MsgMissingQuery
	}
}

func failurePayload(location string, kind Kind) models.WeatherPayload {
	return models.WeatherPayload{Location: location, Error: kind.Message()}
}

// BuildLabel joins the non-empty name, region and country code of a match.
func BuildLabel(g models.GeoResult) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{g.Name, g.Admin1, g.CountryCode} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, LabelSeparator)
}
