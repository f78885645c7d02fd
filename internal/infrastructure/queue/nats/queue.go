package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

// Bus publishes file lifecycle events and lets workers consume them.
type Bus struct {
	conn     *nats.Conn
	publish  func(subject string, data []byte) error
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	Name                 string
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string) (*Bus, error) {
	return NewWithOptions(url, subject, Options{})
}

func NewWithOptions(url, subject string, options Options) (*Bus, error) {
	name := options.Name
	if name == "" {
		name = "smart-file-explorer"
	}
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats.disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats.reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Bus{
		conn:     conn,
		publish:  conn.Publish,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (b *Bus) Close() {
	if b.conn != nil {
		b.conn.Close()
	}
}

func (b *Bus) PublishFileEvent(ctx context.Context, event domain.FileEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal file event: %w", err)
	}
	call := func(_ context.Context) error {
		return b.publish(b.subject, payload)
	}

	if b.executor != nil {
		err = b.executor.Execute(ctx, "nats.publish_file_event", call, classifyPublishError)
	} else {
		err = call(ctx)
	}
	return publishError(event, err)
}

// SubscribeFileEvents delivers events of the given types to handler until ctx is cancelled.
// Subscribers share a queue group, so each event is handled by one worker.
func (b *Bus) SubscribeFileEvents(ctx context.Context, group string, types []domain.FileEventType, handler func(context.Context, domain.FileEvent) error) error {
	wanted := make(map[domain.FileEventType]bool, len(types))
	for _, t := range types {
		wanted[t] = true
	}

	sub, err := b.conn.QueueSubscribe(b.subject, group, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}
		event, err := decodeFileEvent(msg.Data)
		if err != nil {
			b.logger.Warn("nats.event_decode_failed", "error", err)
			return
		}
		if len(wanted) > 0 && !wanted[event.Type] {
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, event); err != nil {
			b.logger.Error("nats.event_handler_failed", "type", event.Type, "filename", event.Filename, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := b.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := b.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func decodeFileEvent(data []byte) (domain.FileEvent, error) {
	var event domain.FileEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.FileEvent{}, fmt.Errorf("unmarshal file event: %w", err)
	}
	if event.Type == "" || event.Filename == "" {
		return domain.FileEvent{}, errors.New("file event is missing type or filename")
	}
	return event, nil
}
