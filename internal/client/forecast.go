package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

// CurrentFields and DailyFields are the variables requested from the forecast API.
var (
	CurrentFields = []string{
		"temperature_2m",
		"relative_humidity_2m",
		"apparent_temperature",
		"weather_code",
		"wind_speed_10m",
		"wind_direction_10m",
		"is_day",
	}
	DailyFields = []string{
		"weather_code",
		"temperature_2m_max",
		"temperature_2m_min",
		"time",
	}
)

// DefaultForecastDays is the length of the daily window.
const DefaultForecastDays = 7

// ForecastFetcher returns current conditions and a daily forecast for a coordinate.
type ForecastFetcher interface {
	Forecast(ctx context.Context, latitude, longitude float64) (models.WeatherResponse, error)
}

// OpenMeteoForecastClient implements ForecastFetcher against the Open-Meteo forecast API.
type OpenMeteoForecastClient struct {
	up   *upstream
	days int
}

// NewOpenMeteoForecastClient creates a forecast client. days <= 0 uses DefaultForecastDays.
func NewOpenMeteoForecastClient(apiURL string, days int, timeout time.Duration) (*OpenMeteoForecastClient, error) {
	return newOpenMeteoForecastClient(apiURL, days, timeout, nil)
}

func newOpenMeteoForecastClient(apiURL string, days int, timeout time.Duration, httpClient *http.Client) (*OpenMeteoForecastClient, error) {
	up, err := newUpstream(observability.UpstreamForecast, apiURL, timeout, httpClient)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		days = DefaultForecastDays
	}
	return &OpenMeteoForecastClient{up: up, days: days}, nil
}

// Forecast fetches in the location's own timezone (timezone=auto). A body whose daily
// sequences differ in length is rejected as ErrInvalidResponse.
func (c *OpenMeteoForecastClient) Forecast(ctx context.Context, latitude, longitude float64) (models.WeatherResponse, error) {
	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	params.Set("current", strings.Join(CurrentFields, ","))
	params.Set("daily", strings.Join(DailyFields, ","))
	params.Set("timezone", "auto")
	params.Set("forecast_days", strconv.Itoa(c.days))

	var resp models.WeatherResponse
	if err := c.up.getJSON(ctx, params, &resp); err != nil {
		return models.WeatherResponse{}, err
	}
	if err := resp.Daily.Validate(); err != nil {
		return models.WeatherResponse{}, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	return resp, nil
}
