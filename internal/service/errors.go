package service

import (
	"fmt"
	"net/http"
)

// Kind classifies how a lookup ended.
type Kind int

const (
	KindNone Kind = iota
	KindInvalidInput
	KindLocationNotFound
	KindGeocodingUnavailable
	KindForecastUnavailable
	KindTimeout
	KindUnknown
	KindCanceled
)

// StatusClientClosedRequest is the non-standard status recorded when the caller goes away
// before the lookup finishes.
const StatusClientClosedRequest = 499

// User-facing messages. Internal causes are logged, never returned.
const (
	MsgMissingQuery         = "Missing or empty location query (q)"
	MsgQueryTooLong         = "Location query too long"
	MsgQueryInvalid         = "Location query contains invalid characters"
	MsgLocationNotFound     = "Location not found"
	MsgGeocodingUnavailable = "Location lookup is unavailable right now. Try again."
	MsgForecastUnavailable  = "Weather data is unavailable right now. Try again."
	MsgTimeout              = "The weather service took too long to respond. Try again."
	MsgUnknown              = "Failed to fetch weather. Try again."
	MsgCanceled             = "Request canceled"
)

func (k Kind) String() string {
	switch k {
	case KindNone:
		return "success"
	case KindInvalidInput:
		return "invalid_input"
	case KindLocationNotFound:
		return "location_not_found"
	case KindGeocodingUnavailable:
		return "geocoding_unavailable"
	case KindForecastUnavailable:
		return "forecast_unavailable"
	case KindTimeout:
		return "timeout"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Message returns the generic caller-facing text for k.
func (k Kind) Message() string {
	switch k {
	case KindNone:
		return ""
	case KindInvalidInput:
		return MsgMissingQuery
	case KindLocationNotFound:
		return MsgLocationNotFound
	case KindGeocodingUnavailable:
		return MsgGeocodingUnavailable
	case KindForecastUnavailable:
		return MsgForecastUnavailable
	case KindTimeout:
		return MsgTimeout
	case KindCanceled:
		return MsgCanceled
	default:
		return MsgUnknown
	}
}

// StatusCode maps k to its HTTP status. Not-found is a well-formed answer, hence 200.
func (k Kind) StatusCode() int {
	switch k {
	case KindNone, KindLocationNotFound:
		return http.StatusOK
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindGeocodingUnavailable, KindForecastUnavailable:
		return http.StatusBadGateway
	case KindTimeout:
		return http.StatusGatewayTimeout
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// Upstream reports whether k is an upstream fault (5xx class).
func (k Kind) Upstream() bool {
	return k.StatusCode() >= http.StatusInternalServerError
}

// Error is the typed failure returned by ResolveWeather. Err is the internal cause.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
