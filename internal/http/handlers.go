package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/reqctx"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
	"github.com/kjstillabower/weather-lookup-service/internal/traffic"
)

// ServiceName is reported by /health.
const ServiceName = "weather-lookup-service"

// WeatherResolver resolves a free-text place query into a weather payload.
type WeatherResolver interface {
	ResolveWeather(ctx context.Context, query string) (models.WeatherPayload, error)
}

// HealthConfig holds lifecycle thresholds for the health handler.
type HealthConfig struct {
	DegradedWindow   time.Duration
	DegradedErrorPct int
	Version          string
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	resolver         WeatherResolver
	healthConfig     *HealthConfig
	logger           *zap.Logger
	healthStatusMu   sync.Mutex
	healthStatusPrev string
}

// NewHandler returns a new Handler. healthConfig may be nil, which disables the degraded check.
func NewHandler(resolver WeatherResolver, healthConfig *HealthConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		resolver:     resolver,
		healthConfig: healthConfig,
		logger:       logger,
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// GetWeather handles GET /weather?q= and GET /weather/{location}.
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if loc, ok := mux.Vars(r)["location"]; ok {
		query = loc
	}
	logger := reqctx.Logger(r.Context(), h.logger)

	payload, err := h.resolver.ResolveWeather(r.Context(), query)
	kind := service.KindNone
	if err != nil {
		var lookupErr *service.Error
		switch {
		case errors.As(err, &lookupErr):
			kind = lookupErr.Kind
		case errors.Is(err, context.Canceled):
			kind = service.KindCanceled
			payload = models.WeatherPayload{Location: strings.TrimSpace(query), Error: kind.Message()}
		default:
			kind = service.KindUnknown
			payload = models.WeatherPayload{Location: strings.TrimSpace(query), Error: kind.Message()}
		}
	}
	observability.RecordLookup(kind.String())

	switch {
	case kind == service.KindInvalidInput:
		logger.Debug("rejected weather query", zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: payload.Error})
		return
	case kind == service.KindCanceled:
		// Caller cancellation stays out of the health window.
		logger.Debug("weather lookup canceled by caller", zap.String("query", payload.Location), zap.Error(err))
		w.WriteHeader(kind.StatusCode())
		return
	case kind.Upstream():
		traffic.RecordError()
		logger.Warn("weather lookup failed",
			zap.String("outcome", kind.String()),
			zap.String("query", payload.Location),
			zap.Error(err))
	case kind == service.KindLocationNotFound:
		traffic.RecordSuccess()
		logger.Debug("location not found", zap.String("query", payload.Location))
	default:
		traffic.RecordSuccess()
	}
	observability.RecordWeatherQuery(strings.TrimSpace(query))
	writeJSON(w, kind.StatusCode(), payload)
}

// healthResult holds the computed health status and metadata for logging.
type healthResult struct {
	status     string
	statusCode int
	reason     string
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	result := h.computeHealthStatus()

	h.healthStatusMu.Lock()
	prev := h.healthStatusPrev
	if prev != "" && prev != result.status {
		h.logger.Info("health status transition",
			zap.String("previous_status", prev),
			zap.String("current_status", result.status),
			zap.String("reason", result.reason))
	}
	h.healthStatusPrev = result.status
	h.healthStatusMu.Unlock()

	upstreams := "healthy"
	if result.reason == "error_rate_breach" {
		upstreams = "unhealthy"
	}
	version := "dev"
	if h.healthConfig != nil && h.healthConfig.Version != "" {
		version = h.healthConfig.Version
	}
	now := time.Now()
	writeJSON(w, result.statusCode, map[string]interface{}{
		"status":  result.status,
		"service": ServiceName,
		"version": version,
		"checks": map[string]string{
			"upstreams": upstreams,
		},
		"uptime":    lifecycle.Uptime(now).Truncate(time.Second).String(),
		"timestamp": now.UTC().Format(time.RFC3339),
	})
}

// computeHealthStatus evaluates conditions in priority order: shutting-down > degraded > healthy.
func (h *Handler) computeHealthStatus() healthResult {
	if lifecycle.IsShuttingDown() {
		return healthResult{"shutting-down", http.StatusServiceUnavailable, "signal"}
	}
	if h.healthConfig != nil && h.healthConfig.DegradedWindow > 0 && h.healthConfig.DegradedErrorPct > 0 {
		errs, total := traffic.ErrorRate(h.healthConfig.DegradedWindow)
		if total > 0 && float64(errs)*100/float64(total) >= float64(h.healthConfig.DegradedErrorPct) {
			return healthResult{"degraded", http.StatusServiceUnavailable, "error_rate_breach"}
		}
	}
	return healthResult{"healthy", http.StatusOK, ""}
}

// writeJSON writes v as JSON with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
