package ports

import (
	"context"
	"io"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

// ObjectStore is the durable, key-addressed blob store bound to one bucket.
// Missing keys are reported as domain.ErrFileNotFound, I/O failures as domain.ErrStoreUnavailable.
type ObjectStore interface {
	EnsureBucket(ctx context.Context) error
	Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// MetadataStore owns the serialization contract of the metadata index.
type MetadataStore interface {
	Load(ctx context.Context) (domain.MetadataIndex, error)
	Save(ctx context.Context, idx domain.MetadataIndex) error
}

// TextExtractor converts raw bytes into text. It never fails; parse errors are carried in the result.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, filename string) domain.Extraction
}

// ChatCompleter sends one chat-completion request to the remote model.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []domain.ChatMessage, model string) (string, error)
}

// FileClassifier tags a filename with a taxonomy category.
type FileClassifier interface {
	Classify(ctx context.Context, filename string) domain.Classification
}

// FileSummarizer produces a short summary of extracted text.
type FileSummarizer interface {
	Summarize(ctx context.Context, text, filename string) domain.Summary
}

// SummaryCache keeps recently generated summaries.
type SummaryCache interface {
	Get(ctx context.Context, filename string) (string, bool, error)
	Set(ctx context.Context, filename, summary string, ttl time.Duration) error
	Invalidate(ctx context.Context, filename string) error
}

// EventPublisher announces file lifecycle events to downstream consumers.
type EventPublisher interface {
	PublishFileEvent(ctx context.Context, event domain.FileEvent) error
}

// EnrichmentRecorder observes best-effort enrichment outcomes.
type EnrichmentRecorder interface {
	RecordExtraction(format domain.Format, err error)
	RecordClassification(outcome domain.ClassificationOutcome)
	RecordSummarization(err error, cached bool)
	RecordIndexFlushFailure()
}
