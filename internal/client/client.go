package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kjstillabower/weather-lookup-service/internal/observability"
	"github.com/kjstillabower/weather-lookup-service/internal/reqctx"
)

var (
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrTimeout         = errors.New("upstream timeout")
	ErrInvalidResponse = errors.New("invalid upstream response")
	ErrInvalidConfig   = errors.New("invalid client config")
)

const tracerName = "github.com/kjstillabower/weather-lookup-service/internal/client"

// upstream performs one bounded GET against a JSON API. Each call gets its own deadline,
// released on every return path.
type upstream struct {
	name    string
	baseURL *url.URL
	timeout time.Duration
	client  *http.Client
	tracer  trace.Tracer
}

func newUpstream(name, apiURL string, timeout time.Duration, httpClient *http.Client) (*upstream, error) {
	if apiURL == "" {
		return nil, fmt.Errorf("%w: %s URL is required", ErrInvalidConfig, name)
	}
	u, err := url.Parse(apiURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %s URL %q is not absolute", ErrInvalidConfig, name, apiURL)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("%w: %s timeout must be positive", ErrInvalidConfig, name)
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &upstream{
		name:    name,
		baseURL: u,
		timeout: timeout,
		client:  httpClient,
		tracer:  otel.Tracer(tracerName),
	}, nil
}

// getJSON issues GET baseURL?params and decodes a 2xx body into out.
func (u *upstream) getJSON(ctx context.Context, params url.Values, out interface{}) (err error) {
	start := time.Now()
	ctx, span := u.tracer.Start(ctx, u.name+".get", trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			observability.UpstreamErrorsTotal.WithLabelValues(u.name, string(CategorizeError(err))).Inc()
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	reqCtx, cancel := context.WithTimeout(ctx, u.timeout)
	defer cancel()

	req, err := u.buildRequest(reqCtx, params)
	if err != nil {
		return fmt.Errorf("build %s request: %w", u.name, err)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		observability.RecordUpstreamCall(u.name, "error", time.Since(start))
		return u.transportError(reqCtx, err)
	}
	defer resp.Body.Close()

	status := statusLabel(resp.StatusCode)
	observability.RecordUpstreamCall(u.name, status, time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("%w: %s HTTP %d", ErrUpstreamFailure, u.name, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if isTimeout(reqCtx, err) {
			return fmt.Errorf("%w: %s read body: %w", ErrTimeout, u.name, err)
		}
		return fmt.Errorf("%w: %s parse response: %v", ErrInvalidResponse, u.name, err)
	}
	return nil
}

func (u *upstream) buildRequest(ctx context.Context, params url.Values) (*http.Request, error) {
	full := *u.baseURL
	full.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, full.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if corrID := reqctx.CorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
	return req, nil
}

// transportError classifies a failed round trip. Any deadline expiry is a timeout, whether
// it is the per-call timer or the inbound request deadline. Cancellation is wrapped
// as-is for the service layer to classify.
func (u *upstream) transportError(reqCtx context.Context, err error) error {
	if isTimeout(reqCtx, err) {
		return fmt.Errorf("%w: %s request: %w", ErrTimeout, u.name, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s request canceled: %w", u.name, err)
	}
	return fmt.Errorf("%w: %s request: %w", ErrUpstreamFailure, u.name, err)
}

func isTimeout(reqCtx context.Context, err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(reqCtx.Err(), context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == http.StatusTooManyRequests {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
