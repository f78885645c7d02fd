package nats

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

// classifyPublishError decides whether a failed file event publish gets another attempt.
// Only connection trouble is retried; a bad subject or an oversized payload fails the same way every time.
func classifyPublishError(err error) resilience.ErrorClassification {
	switch {
	case err == nil:
		return resilience.ErrorClassification{}
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	case isTransientBusError(err):
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	default:
		return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
	}
}

// isTransientBusError reports failures that a reconnecting client can recover from.
// A closed connection never reconnects, so it is not one of them.
func isTransientBusError(err error) bool {
	return errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrReconnectBufExceeded)
}

// publishError names the event that could not be announced. Transient bus
// failures and an open breaker come back as ErrTemporary.
func publishError(event domain.FileEvent, err error) error {
	if err == nil {
		return nil
	}
	if domain.IsKind(err, domain.ErrTemporary) {
		return err
	}
	op := fmt.Sprintf("publish %s event for %s", event.Type, event.Filename)
	if isTransientBusError(err) || resilience.IsCircuitOpen(err) {
		return domain.WrapError(domain.ErrTemporary, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
