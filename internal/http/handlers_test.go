package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjstillabower/weather-lookup-service/internal/client"
	"github.com/kjstillabower/weather-lookup-service/internal/lifecycle"
	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/reqctx"
	"github.com/kjstillabower/weather-lookup-service/internal/service"
	"github.com/kjstillabower/weather-lookup-service/internal/traffic"
)

// stubResolver returns a canned payload and error and records the query it saw.
type stubResolver struct {
	payload models.WeatherPayload
	err     error
	calls   int
	query   string
}

func (s *stubResolver) ResolveWeather(ctx context.Context, query string) (models.WeatherPayload, error) {
	s.calls++
	s.query = query
	return s.payload, s.err
}

func servedPayload() models.WeatherPayload {
	return models.WeatherPayload{
		Location: "Springfield, Illinois, US",
		Weather: &models.WeatherResponse{
			Latitude:  39.80172,
			Longitude: -89.64371,
			Current:   models.CurrentWeather{Temperature2m: 18.2, WeatherCode: 3, IsDay: 1},
			Daily: models.DailyForecast{
				Time:             []string{"2026-10-18"},
				WeatherCode:      []int{3},
				Temperature2mMax: []float64{21.0},
				Temperature2mMin: []float64{9.5},
			},
		},
	}
}

func failed(location string, kind service.Kind) (models.WeatherPayload, error) {
	return models.WeatherPayload{Location: location, Error: kind.Message()},
		&service.Error{Kind: kind, Err: errors.New("upstream detail")}
}

func serveWeather(ctx context.Context, handler *Handler, target string) *httptest.ResponseRecorder {
	router := mux.NewRouter()
	router.HandleFunc("/weather", handler.GetWeather)
	router.HandleFunc("/weather/{location}", handler.GetWeather)
	req := httptest.NewRequest("GET", target, nil).WithContext(ctx)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

// TestHandler_GetWeather_Success verifies that a served lookup returns 200 with the payload.
func TestHandler_GetWeather_Success(t *testing.T) {
	// Arrange
	resolver := &stubResolver{payload: servedPayload()}
	handler := NewHandler(resolver, nil, zap.NewNop())

	// Act
	w := serveWeather(context.Background(), handler, "/weather?q=Springfield")

	// Assert
	if w.Code != http.StatusOK {
		t.Fatalf("GetWeather() status = %d, want %d", w.Code, http.StatusOK)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", ct)
	}
	if resolver.query != "Springfield" {
		t.Errorf("resolver query = %q, want Springfield", resolver.query)
	}

	var body models.WeatherPayload
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if body.Location != "Springfield, Illinois, US" {
		t.Errorf("location = %q, want Springfield, Illinois, US", body.Location)
	}
	if body.Weather == nil || body.Error != "" {
		t.Errorf("want weather set and no error, got weather=%v error=%q", body.Weather, body.Error)
	}
}

// TestHandler_GetWeather_PathAlias verifies /weather/{location} resolves the path segment.
func TestHandler_GetWeather_PathAlias(t *testing.T) {
	resolver := &stubResolver{payload: servedPayload()}
	handler := NewHandler(resolver, nil, zap.NewNop())

	w := serveWeather(context.Background(), handler, "/weather/San%20Francisco")

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if resolver.query != "San Francisco" {
		t.Errorf("resolver query = %q, want San Francisco", resolver.query)
	}
}

// TestHandler_GetWeather_InvalidInput verifies the 400 body carries only the message.
func TestHandler_GetWeather_InvalidInput(t *testing.T) {
	payload, err := failed("", service.KindInvalidInput)
	resolver := &stubResolver{payload: payload, err: err}
	handler := NewHandler(resolver, nil, zap.NewNop())

	w := serveWeather(context.Background(), handler, "/weather?q=%20%20")

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	var body map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body) != 1 || body["error"] != service.MsgMissingQuery {
		t.Errorf("body = %v, want only error=%q", body, service.MsgMissingQuery)
	}
}

// TestHandler_GetWeather_FailureStatus verifies each failure kind maps to its status and message.
func TestHandler_GetWeather_FailureStatus(t *testing.T) {
	tests := []struct {
		kind       service.Kind
		wantStatus int
	}{
		{service.KindLocationNotFound, http.StatusOK},
		{service.KindGeocodingUnavailable, http.StatusBadGateway},
		{service.KindForecastUnavailable, http.StatusBadGateway},
		{service.KindTimeout, http.StatusGatewayTimeout},
		{service.KindUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			payload, err := failed("asdkjasdlkj", tt.kind)
			handler := NewHandler(&stubResolver{payload: payload, err: err}, nil, zap.NewNop())

			w := serveWeather(context.Background(), handler, "/weather?q=asdkjasdlkj")

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}
			raw := w.Body.String()
			if !strings.Contains(raw, `"weather":null`) {
				t.Errorf("body %s should carry weather:null", raw)
			}
			if strings.Contains(raw, "upstream detail") {
				t.Errorf("body %s leaks the internal cause", raw)
			}
			var body models.WeatherPayload
			if err := json.Unmarshal([]byte(raw), &body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error != tt.kind.Message() {
				t.Errorf("error = %q, want %q", body.Error, tt.kind.Message())
			}
		})
	}
}

// TestHandler_GetWeather_UntypedError verifies a resolver error without a Kind becomes Unknown.
func TestHandler_GetWeather_UntypedError(t *testing.T) {
	handler := NewHandler(&stubResolver{err: errors.New("boom")}, nil, zap.NewNop())

	w := serveWeather(context.Background(), handler, "/weather?q=Paris")

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	var body models.WeatherPayload
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Location != "Paris" || body.Error != service.MsgUnknown {
		t.Errorf("body = %+v", body)
	}
}

// TestHandler_GetWeather_LogsUpstreamFailureAtWarn verifies upstream failures are logged with the
// request logger and the internal cause.
func TestHandler_GetWeather_LogsUpstreamFailureAtWarn(t *testing.T) {
	// Arrange: request-scoped observer logger carrying a correlation ID
	core, logs := observer.New(zapcore.DebugLevel)
	reqLogger := zap.New(core).With(zap.String("correlation_id", "test-correlation-id"))
	payload, err := failed("Tokyo", service.KindTimeout)
	handler := NewHandler(&stubResolver{payload: payload, err: err}, nil, zap.NewNop())
	ctx := reqctx.WithLogger(context.Background(), reqLogger)

	// Act
	serveWeather(ctx, handler, "/weather?q=Tokyo")

	// Assert
	entries := logs.FilterMessage("weather lookup failed").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 failure log, got %d", len(entries))
	}
	entry := entries[0]
	if entry.Level != zapcore.WarnLevel {
		t.Errorf("level = %v, want warn", entry.Level)
	}
	fields := entry.ContextMap()
	if fields["outcome"] != "timeout" {
		t.Errorf("outcome = %v, want timeout", fields["outcome"])
	}
	if fields["correlation_id"] != "test-correlation-id" {
		t.Errorf("correlation_id = %v", fields["correlation_id"])
	}
	if !strings.Contains(fields["error"].(string), "upstream detail") {
		t.Errorf("error field = %v, want internal cause", fields["error"])
	}
}

// TestHandler_GetWeather_FeedsHealthWindow verifies only upstream failures count as errors.
func TestHandler_GetWeather_FeedsHealthWindow(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()

	served := &stubResolver{payload: servedPayload()}
	nf, nfErr := failed("x", service.KindLocationNotFound)
	up, upErr := failed("x", service.KindForecastUnavailable)
	bad, badErr := failed("", service.KindInvalidInput)

	serveWeather(context.Background(), NewHandler(served, nil, nil), "/weather?q=a")
	serveWeather(context.Background(), NewHandler(&stubResolver{payload: nf, err: nfErr}, nil, nil), "/weather?q=x")
	serveWeather(context.Background(), NewHandler(&stubResolver{payload: up, err: upErr}, nil, nil), "/weather?q=x")
	serveWeather(context.Background(), NewHandler(&stubResolver{payload: bad, err: badErr}, nil, nil), "/weather?q=")

	errs, total := traffic.ErrorRate(time.Minute)
	if errs != 1 || total != 3 {
		t.Errorf("ErrorRate() = (%d, %d), want (1, 3); invalid input is not an upstream outcome", errs, total)
	}
}

// TestHandler_GetHealth verifies the healthy response schema.
// TestHandler_GetWeather_CallerCanceled verifies that a request abandoned by its caller is
// logged at debug and leaves the health window untouched, so /health stays healthy.
func TestHandler_GetWeather_CallerCanceled(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"results":[{"id":1850147,"name":"Tokyo","latitude":35.6895,"longitude":139.69171,"country_code":"JP"}]}`))
	}))
	defer upstream.Close()
	geocoder, err := client.NewOpenMeteoGeocoder(upstream.URL, "en", time.Second)
	if err != nil {
		t.Fatalf("NewOpenMeteoGeocoder() error = %v", err)
	}
	forecast, err := client.NewOpenMeteoForecastClient(upstream.URL, client.DefaultForecastDays, time.Second)
	if err != nil {
		t.Fatalf("NewOpenMeteoForecastClient() error = %v", err)
	}
	core, logs := observer.New(zapcore.DebugLevel)
	handler := NewHandler(service.NewResolver(geocoder, forecast, 200, zap.NewNop()),
		&HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, zap.New(core))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	w := serveWeather(ctx, handler, "/weather?q=Tokyo")

	if w.Code != service.StatusClientClosedRequest {
		t.Errorf("status = %d, want %d", w.Code, service.StatusClientClosedRequest)
	}
	if errs, total := traffic.ErrorRate(time.Minute); errs != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errs, total)
	}
	if n := logs.FilterMessage("weather lookup failed").Len(); n != 0 {
		t.Errorf("got %d warn failure logs, want 0", n)
	}
	entries := logs.FilterMessage("weather lookup canceled by caller").All()
	if len(entries) != 1 || entries[0].Level != zapcore.DebugLevel {
		t.Errorf("want one debug cancel log, got %+v", entries)
	}

	health := httptest.NewRecorder()
	handler.GetHealth(health, httptest.NewRequest("GET", "/health", nil))
	if health.Code != http.StatusOK {
		t.Errorf("health status = %d, want 200 after a caller abort", health.Code)
	}
}

// TestHandler_GetWeather_UntypedCancel verifies a bare context.Canceled from the resolver is
// treated as a caller abort, not an upstream failure.
func TestHandler_GetWeather_UntypedCancel(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()

	handler := NewHandler(&stubResolver{err: fmt.Errorf("geocode: %w", context.Canceled)}, nil, zap.NewNop())
	w := serveWeather(context.Background(), handler, "/weather?q=Paris")

	if w.Code != service.StatusClientClosedRequest {
		t.Errorf("status = %d, want %d", w.Code, service.StatusClientClosedRequest)
	}
	if errs, total := traffic.ErrorRate(time.Minute); errs != 0 || total != 0 {
		t.Errorf("ErrorRate() = (%d, %d), want (0, 0)", errs, total)
	}
}

func TestHandler_GetHealth(t *testing.T) {
	traffic.Reset()
	lifecycle.SetShuttingDown(false)
	handler := NewHandler(&stubResolver{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50, Version: "1.2.3"}, zap.NewNop())

	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("GetHealth() status = %d, want 200", w.Code)
	}
	var health map[string]interface{}
	if err := json.NewDecoder(w.Body).Decode(&health); err != nil {
		t.Fatalf("Failed to decode health response: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("status = %v, want healthy", health["status"])
	}
	if health["service"] != ServiceName {
		t.Errorf("service = %v, want %s", health["service"], ServiceName)
	}
	if health["version"] != "1.2.3" {
		t.Errorf("version = %v, want 1.2.3", health["version"])
	}
	for _, key := range []string{"checks", "timestamp", "uptime"} {
		if _, ok := health[key]; !ok {
			t.Errorf("health response missing %q", key)
		}
	}
}

// TestHandler_GetHealth_ShuttingDown verifies shutting-down wins over every other state.
func TestHandler_GetHealth_ShuttingDown(t *testing.T) {
	traffic.Reset()
	traffic.RecordError()
	defer traffic.Reset()
	lifecycle.SetShuttingDown(true)
	defer lifecycle.SetShuttingDown(false)

	handler := NewHandler(&stubResolver{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, zap.NewNop())
	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	var health map[string]interface{}
	_ = json.NewDecoder(w.Body).Decode(&health)
	if health["status"] != "shutting-down" {
		t.Errorf("status = %v, want shutting-down", health["status"])
	}
}

// TestHandler_GetHealth_NotDegraded_BelowErrorThreshold verifies 1 error in 3 stays healthy at 50%.
func TestHandler_GetHealth_NotDegraded_BelowErrorThreshold(t *testing.T) {
	traffic.Reset()
	defer traffic.Reset()
	traffic.RecordError()
	traffic.RecordSuccess()
	traffic.RecordSuccess()

	handler := NewHandler(&stubResolver{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, zap.NewNop())
	w := httptest.NewRecorder()
	handler.GetHealth(w, httptest.NewRequest("GET", "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", w.Code)
	}
}

// TestHandler_GetHealth_LogsTransition verifies a single log line per status change.
func TestHandler_GetHealth_LogsTransition(t *testing.T) {
	// Arrange
	traffic.Reset()
	defer traffic.Reset()
	lifecycle.SetShuttingDown(false)
	core, logs := observer.New(zap.DebugLevel)
	handler := NewHandler(&stubResolver{}, &HealthConfig{DegradedWindow: time.Minute, DegradedErrorPct: 50}, zap.New(core))
	req := httptest.NewRequest("GET", "/health", nil)

	// Act: first call establishes the previous status
	traffic.RecordSuccess()
	traffic.RecordSuccess()
	w := httptest.NewRecorder()
	handler.GetHealth(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("first GetHealth status = %d, want 200", w.Code)
	}
	if logs.Len() != 0 {
		t.Fatalf("first call should not log transition; got %d logs", logs.Len())
	}

	// Act: breach the threshold (2 of 4 = 50%)
	traffic.RecordError()
	traffic.RecordError()
	w2 := httptest.NewRecorder()
	handler.GetHealth(w2, req)

	// Assert
	if w2.Code != http.StatusServiceUnavailable {
		t.Fatalf("second GetHealth status = %d, want 503", w2.Code)
	}
	entries := logs.FilterMessage("health status transition").All()
	if len(entries) != 1 {
		t.Fatalf("want 1 transition log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["previous_status"] != "healthy" || fields["current_status"] != "degraded" || fields["reason"] != "error_rate_breach" {
		t.Errorf("transition fields = %v", fields)
	}

	// Act: unchanged status does not log again
	w3 := httptest.NewRecorder()
	handler.GetHealth(w3, req)
	if logs.Len() != 1 {
		t.Errorf("unchanged status should not log; total logs = %d, want 1", logs.Len())
	}
}
