// Package view is the terminal counterpart of the search page: it issues one lookup per
// search against the service and renders the result.
package view

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
)

var (
	// ErrSearchInProgress is returned when Search is called while another search is outstanding.
	ErrSearchInProgress = errors.New("view: search already in progress")
	// ErrEmptyQuery is returned for a blank query; no request is sent.
	ErrEmptyQuery = errors.New("view: empty query")
)

// MsgUnexpectedResponse is shown when the service answers with something that is not a payload.
const MsgUnexpectedResponse = "Unexpected response from the weather service. Try again."

// Client talks to the lookup service's /weather endpoint.
type Client struct {
	base       string
	endpoint   *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	searching  atomic.Bool
}

// NewClient creates a Client for the service at baseURL (e.g. http://localhost:8080).
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("view: server URL must be absolute, got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		base:       base,
		endpoint:   u.JoinPath("weather"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

// Search sends exactly one GET /weather?q= for the trimmed query. Service-side failures come
// back as a payload with Error set and a nil error; so does an unreachable service. The
// returned error is reserved for calls that never produced a payload.
func (c *Client) Search(ctx context.Context, query string) (models.WeatherPayload, error) {
	q := strings.TrimSpace(query)
	if q == "" {
		return models.WeatherPayload{}, ErrEmptyQuery
	}
	if !c.searching.CompareAndSwap(false, true) {
		return models.WeatherPayload{}, ErrSearchInProgress
	}
	defer c.searching.Store(false)

	u := *c.endpoint
	u.RawQuery = url.Values{"q": {q}}.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return models.WeatherPayload{}, fmt.Errorf("view: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return models.WeatherPayload{}, ctx.Err()
		}
		c.logger.Debug("weather service unreachable", zap.String("server", c.base), zap.Error(err))
		return models.WeatherPayload{Location: q, Error: UnreachableMessage(c.base)}, nil
	}
	defer resp.Body.Close()

	var payload models.WeatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		c.logger.Debug("undecodable response", zap.Int("status", resp.StatusCode), zap.Error(err))
		return models.WeatherPayload{Location: q, Error: MsgUnexpectedResponse}, nil
	}
	if payload.Location == "" {
		payload.Location = q
	}
	if payload.Weather == nil && payload.Error == "" {
		payload.Error = MsgUnexpectedResponse
	}
	c.logger.Debug("search complete",
		zap.String("query", q),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))
	return payload, nil
}

// UnreachableMessage is the text shown when no connection to base could be made.
func UnreachableMessage(base string) string {
	return fmt.Sprintf("Could not reach the weather service at %s. Is it running?", base)
}
