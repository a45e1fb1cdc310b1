package models

import "fmt"

// GeoResult is a single ranked match from the geocoding API.
type GeoResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1,omitempty"`
}

// CurrentWeather is a snapshot of conditions at a single instant.
type CurrentWeather struct {
	Temperature2m       float64 `json:"temperature_2m"`
	RelativeHumidity2m  float64 `json:"relative_humidity_2m"`
	ApparentTemperature float64 `json:"apparent_temperature"`
	WeatherCode         int     `json:"weather_code"`
	WindSpeed10m        float64 `json:"wind_speed_10m"`
	WindDirection10m    float64 `json:"wind_direction_10m"`
	IsDay               int     `json:"is_day"`
}

// DailyForecast holds parallel per-day sequences; index i refers to the same day in every slice.
type DailyForecast struct {
	Time             []string  `json:"time"`
	WeatherCode      []int     `json:"weather_code"`
	Temperature2mMax []float64 `json:"temperature_2m_max"`
	Temperature2mMin []float64 `json:"temperature_2m_min"`
}

// Len returns the number of forecast days.
func (d DailyForecast) Len() int {
	return len(d.Time)
}

// Validate reports an error when the parallel sequences differ in length.
func (d DailyForecast) Validate() error {
	n := len(d.Time)
	if len(d.WeatherCode) != n || len(d.Temperature2mMax) != n || len(d.Temperature2mMin) != n {
		return fmt.Errorf("daily forecast sequences differ in length: time=%d weather_code=%d max=%d min=%d",
			n, len(d.WeatherCode), len(d.Temperature2mMax), len(d.Temperature2mMin))
	}
	return nil
}

// WeatherResponse is the forecast bundle returned to callers.
type WeatherResponse struct {
	Latitude  float64        `json:"latitude"`
	Longitude float64        `json:"longitude"`
	Timezone  string         `json:"timezone,omitempty"`
	Current   CurrentWeather `json:"current"`
	Daily     DailyForecast  `json:"daily"`
}

// WeatherPayload is the single response body for a lookup. Weather is set only on success;
// Error is set only when Weather is nil.
type WeatherPayload struct {
	Location string           `json:"location"`
	Weather  *WeatherResponse `json:"weather"`
	Error    string           `json:"error,omitempty"`
}
