package client

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/weather-lookup-service/internal/models"
	"github.com/kjstillabower/weather-lookup-service/internal/observability"
)

// Geocoder resolves a place name to its best-ranked match.
type Geocoder interface {
	// Geocode returns (match, true, nil) on a hit and (zero, false, nil) when the service
	// answered with no results.
	Geocode(ctx context.Context, name string) (models.GeoResult, bool, error)
}

// OpenMeteoGeocoder implements Geocoder against the Open-Meteo geocoding API.
type OpenMeteoGeocoder struct {
	up       *upstream
	language string
}

// NewOpenMeteoGeocoder creates a geocoder. language defaults to "en".
func NewOpenMeteoGeocoder(apiURL, language string, timeout time.Duration) (*OpenMeteoGeocoder, error) {
	return newOpenMeteoGeocoder(apiURL, language, timeout, nil)
}

func newOpenMeteoGeocoder(apiURL, language string, timeout time.Duration, httpClient *http.Client) (*OpenMeteoGeocoder, error) {
	up, err := newUpstream(observability.UpstreamGeocoding, apiURL, timeout, httpClient)
	if err != nil {
		return nil, err
	}
	if language == "" {
		language = "en"
	}
	return &OpenMeteoGeocoder{up: up, language: language}, nil
}

type geocodingResponse struct {
	Results []models.GeoResult `json:"results"`
}

// Geocode asks for exactly one match. A missing "results" field counts as zero matches.
func (g *OpenMeteoGeocoder) Geocode(ctx context.Context, name string) (models.GeoResult, bool, error) {
	params := url.Values{}
	params.Set("name", name)
	params.Set("count", "1")
	params.Set("language", g.language)
	params.Set("format", "json")

	var resp geocodingResponse
	if err := g.up.getJSON(ctx, params, &resp); err != nil {
		return models.GeoResult{}, false, err
	}
	if len(resp.Results) == 0 {
		return models.GeoResult{}, false, nil
	}
	return resp.Results[0], true, nil
}
