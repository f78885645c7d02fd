package openrouter

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

type HTTPStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *HTTPStatusError) Error() string {
	if e == nil {
		return "openrouter status error"
	}
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("openrouter %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("openrouter %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func classifyOpenRouterError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		// A hung endpoint should trip the breaker even though the call is not retried.
		return resilience.ErrorClassification{RecordFailure: true}
	}
	if domain.IsKind(err, domain.ErrMalformedResponse) {
		return resilience.ErrorClassification{}
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		if isRetryableHTTPStatus(statusErr.StatusCode) {
			return resilience.ErrorClassification{
				Retryable:     true,
				RecordFailure: true,
			}
		}
		return resilience.ErrorClassification{}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{
			Retryable:     true,
			RecordFailure: true,
		}
	}

	return resilience.ErrorClassification{RecordFailure: true}
}

// wrapInferenceError tags a failed call as temporary or permanent.
func wrapInferenceError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) || domain.IsKind(err, domain.ErrMalformedResponse) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || classifyOpenRouterError(err).Retryable {
		return domain.WrapError(domain.ErrTemporary, operation, err)
	}
	return domain.WrapError(domain.ErrInference, operation, err)
}

func isRetryableHTTPStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}
