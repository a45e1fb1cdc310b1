package client

import (
	"context"
	"errors"
	"net"
)

// ErrorCategory is a stable label for error classification in metrics.
type ErrorCategory string

// Error category constants used as metric labels (upstreamErrorsTotal).
const (
	ErrorCategoryTimeout  ErrorCategory = "timeout"
	ErrorCategoryNetwork  ErrorCategory = "network"
	ErrorCategoryUpstream ErrorCategory = "upstream_status"
	ErrorCategoryParsing  ErrorCategory = "parsing"
	ErrorCategoryCanceled ErrorCategory = "canceled"
	ErrorCategoryUnknown  ErrorCategory = "unknown"
)

// CategorizeError maps an error to a stable ErrorCategory for metrics.
func CategorizeError(err error) ErrorCategory {
	if err == nil {
		return ""
	}

	if errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorCategoryTimeout
	}

	if errors.Is(err, ErrInvalidResponse) {
		return ErrorCategoryParsing
	}

	if errors.Is(err, context.Canceled) {
		return ErrorCategoryCanceled
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return ErrorCategoryNetwork
	}

	if errors.Is(err, ErrUpstreamFailure) {
		return ErrorCategoryUpstream
	}

	return ErrorCategoryUnknown
}
