package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

func TestDecodeFileEvent(t *testing.T) {
	raw, _ := json.Marshal(domain.FileEvent{Type: domain.FileClassified, Filename: "a.pdf", Tag: domain.CategoryPDF})

	event, err := decodeFileEvent(raw)
	if err != nil {
		t.Fatalf("decodeFileEvent() error = %v", err)
	}
	if event.Type != domain.FileClassified || event.Filename != "a.pdf" || event.Tag != domain.CategoryPDF {
		t.Fatalf("unexpected event: %+v", event)
	}

	for _, bad := range []string{`not json`, `{"type":"uploaded"}`, `{"filename":"a.txt"}`} {
		if _, err := decodeFileEvent([]byte(bad)); err == nil {
			t.Fatalf("decodeFileEvent(%s) expected error", bad)
		}
	}
}

func newTestBus(publish func(string, []byte) error, executor *resilience.Executor) *Bus {
	return &Bus{
		publish:  publish,
		subject:  "files.events",
		executor: executor,
		logger:   slog.New(slog.DiscardHandler),
	}
}

func fastRetryExecutor() *resilience.Executor {
	cfg := resilience.StorageConfig()
	cfg.RetryInitialBackoff = time.Millisecond
	cfg.RetryMaxBackoff = time.Millisecond
	cfg.BreakerEnabled = false
	return resilience.NewExecutor(cfg, resilience.WithLogger(slog.New(slog.DiscardHandler)))
}

func TestPublishFileEventRetriesTransientFailures(t *testing.T) {
	calls := 0
	var got domain.FileEvent
	bus := newTestBus(func(subject string, data []byte) error {
		calls++
		if calls < 3 {
			return nats.ErrTimeout
		}
		if subject != "files.events" {
			t.Fatalf("unexpected subject %q", subject)
		}
		return json.Unmarshal(data, &got)
	}, fastRetryExecutor())

	event := domain.FileEvent{Type: domain.FileUploaded, Filename: "a.txt"}
	if err := bus.PublishFileEvent(context.Background(), event); err != nil {
		t.Fatalf("PublishFileEvent() error = %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if got.Type != domain.FileUploaded || got.Filename != "a.txt" {
		t.Fatalf("unexpected published event: %+v", got)
	}
}

func TestPublishFileEventExhaustedRetriesAreTemporary(t *testing.T) {
	calls := 0
	bus := newTestBus(func(string, []byte) error {
		calls++
		return nats.ErrDisconnected
	}, fastRetryExecutor())

	err := bus.PublishFileEvent(context.Background(), domain.FileEvent{Type: domain.FileDeleted, Filename: "a.txt"})
	if !domain.IsKind(err, domain.ErrTemporary) {
		t.Fatalf("expected ErrTemporary, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
}

func TestPublishFileEventDoesNotRetryPermanentFailures(t *testing.T) {
	for _, cause := range []error{nats.ErrMaxPayload, nats.ErrConnectionClosed, errors.New("invalid subject")} {
		calls := 0
		bus := newTestBus(func(string, []byte) error {
			calls++
			return cause
		}, fastRetryExecutor())

		err := bus.PublishFileEvent(context.Background(), domain.FileEvent{Type: domain.FileUploaded, Filename: "a.txt"})
		if err == nil || domain.IsKind(err, domain.ErrTemporary) {
			t.Fatalf("%v: expected a permanent error, got %v", cause, err)
		}
		if !errors.Is(err, cause) {
			t.Fatalf("%v: cause lost in %v", cause, err)
		}
		if calls != 1 {
			t.Fatalf("%v: expected a single attempt, got %d", cause, calls)
		}
	}
}

func TestPublishFileEventWithoutExecutorCallsOnce(t *testing.T) {
	calls := 0
	bus := newTestBus(func(string, []byte) error {
		calls++
		return nats.ErrTimeout
	}, nil)

	err := bus.PublishFileEvent(context.Background(), domain.FileEvent{Type: domain.FileUploaded, Filename: "a.txt"})
	if !domain.IsKind(err, domain.ErrTemporary) || calls != 1 {
		t.Fatalf("expected one temporary failure, got calls=%d err=%v", calls, err)
	}
}

func TestClassifyPublishErrorSkipsCancellation(t *testing.T) {
	class := classifyPublishError(fmt.Errorf("publish: %w", context.Canceled))
	if class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must neither retry nor trip the breaker: %+v", class)
	}
}
