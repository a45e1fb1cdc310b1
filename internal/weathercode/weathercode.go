// Package weathercode translates WMO weather interpretation codes into short display labels.
package weathercode

import "sort"

// UnknownLabel is returned for codes outside the WMO table.
const UnknownLabel = "Unknown"

var labels = map[int]string{
	0:  "Clear",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Rain",
	65: "Heavy rain",
	66: "Light freezing rain",
	67: "Freezing rain",
	71: "Slight snow",
	73: "Snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Rain showers",
	82: "Heavy rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

// LabelFor returns the label for code, or UnknownLabel.
func LabelFor(code int) string {
	if l, ok := labels[code]; ok {
		return l
	}
	return UnknownLabel
}

// Known reports whether code is in the table.
func Known(code int) bool {
	_, ok := labels[code]
	return ok
}

// Codes returns every known code in ascending order.
func Codes() []int {
	out := make([]int, 0, len(labels))
	for c := range labels {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}
