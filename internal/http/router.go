package http

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

// NewRouter wires the public routes and the middleware chain. requestTimeout bounds a whole
// /weather request; the per-call upstream timeout is enforced by the clients.
func NewRouter(h *Handler, requestTimeout time.Duration, logger *zap.Logger) *mux.Router {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(logger))
	router.Use(TracingMiddleware)
	router.Use(MetricsMiddleware)

	weather := TimeoutMiddleware(requestTimeout)(http.HandlerFunc(h.GetWeather))
	router.Handle("/weather", weather).Methods(http.MethodGet)
	router.Handle("/weather/{location}", weather).Methods(http.MethodGet)
	router.HandleFunc("/health", h.GetHealth).Methods(http.MethodGet)
	router.Handle("/metrics", observability.MetricsHandler()).Methods(http.MethodGet)
	return router
}
