package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

const DefaultReservedKey = "metadata.json"

type FileServiceOptions struct {
	// ReservedKey is the object key holding the metadata index. It never appears in listings.
	ReservedKey string
	// PersistSummaries writes successful on-demand summaries into the index.
	PersistSummaries bool
	SummaryCacheTTL  time.Duration

	Cache    ports.SummaryCache
	Events   ports.EventPublisher
	Recorder ports.EnrichmentRecorder
	Logger   *slog.Logger
}

// FileService stores files and coordinates best-effort enrichment around them.
// Only failures of the stored object itself are returned as errors.
type FileService struct {
	store      ports.ObjectStore
	index      *Index
	extractor  ports.TextExtractor
	classifier ports.FileClassifier
	summarizer ports.FileSummarizer

	reservedKey      string
	persistSummaries bool
	cacheTTL         time.Duration
	cache            ports.SummaryCache
	events           ports.EventPublisher
	recorder         ports.EnrichmentRecorder
	logger           *slog.Logger
}

func NewFileService(
	store ports.ObjectStore,
	index *Index,
	extractor ports.TextExtractor,
	classifier ports.FileClassifier,
	summarizer ports.FileSummarizer,
	opts FileServiceOptions,
) *FileService {
	svc := &FileService{
		store:            store,
		index:            index,
		extractor:        extractor,
		classifier:       classifier,
		summarizer:       summarizer,
		reservedKey:      opts.ReservedKey,
		persistSummaries: opts.PersistSummaries,
		cacheTTL:         opts.SummaryCacheTTL,
		cache:            opts.Cache,
		events:           opts.Events,
		recorder:         opts.Recorder,
		logger:           opts.Logger,
	}
	if svc.reservedKey == "" {
		svc.reservedKey = DefaultReservedKey
	}
	if svc.cacheTTL <= 0 {
		svc.cacheTTL = time.Hour
	}
	if svc.cache == nil {
		svc.cache = nopCache{}
	}
	if svc.events == nil {
		svc.events = nopEvents{}
	}
	if svc.recorder == nil {
		svc.recorder = nopRecorder{}
	}
	if svc.logger == nil {
		svc.logger = slog.Default()
	}
	return svc
}

func (s *FileService) Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string) error {
	if err := s.put(ctx, filename, body, size, contentType); err != nil {
		return err
	}
	s.invalidateSummary(ctx, filename)
	s.publish(ctx, domain.FileEvent{Type: domain.FileUploaded, Filename: filename})
	s.logger.Info("files.upload.ok", "filename", filename, "size", size)
	return nil
}

// UploadAndClassify stores the file first; classification and indexing cannot fail the upload.
func (s *FileService) UploadAndClassify(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (*domain.UploadResult, error) {
	if err := s.put(ctx, filename, body, size, contentType); err != nil {
		return nil, err
	}
	s.invalidateSummary(ctx, filename)

	classification := s.classifier.Classify(ctx, filename)
	s.recorder.RecordClassification(classification.Outcome)
	tag := resolveTag(classification)

	if err := s.index.SetTag(ctx, filename, tag); err != nil {
		s.indexFlushFailed(filename, err)
	}

	s.publish(ctx, domain.FileEvent{Type: domain.FileClassified, Filename: filename, Tag: tag})
	s.logger.Info("files.upload_ai.ok",
		"filename", filename,
		"tag", tag,
		"outcome", classification.Outcome,
	)
	return &domain.UploadResult{Filename: filename, Tag: tag}, nil
}

func (s *FileService) List(ctx context.Context) ([]string, error) {
	keys, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key == s.reservedKey {
			continue
		}
		out = append(out, key)
	}
	return out, nil
}

func (s *FileService) ListWithMetadata(ctx context.Context) ([]domain.FileRecord, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	s.index.Sync(ctx)
	snapshot := s.index.Snapshot()

	records := make([]domain.FileRecord, 0, len(keys))
	for _, key := range keys {
		entry := snapshot[key]
		records = append(records, domain.FileRecord{
			Filename: key,
			Tag:      tagOrUnknown(entry.Tag),
			Summary:  entry.Summary,
		})
	}
	return records, nil
}

// Search matches query case-insensitively against indexed filenames and tags.
func (s *FileService) Search(ctx context.Context, query string) []domain.SearchHit {
	needle := strings.ToLower(query)
	s.index.Sync(ctx)
	snapshot := s.index.Snapshot()

	hits := make([]domain.SearchHit, 0)
	for filename, entry := range snapshot {
		if filename == s.reservedKey {
			continue
		}
		if strings.Contains(strings.ToLower(string(entry.Tag)), needle) ||
			strings.Contains(strings.ToLower(filename), needle) {
			hits = append(hits, domain.SearchHit{Filename: filename, Tag: tagOrUnknown(entry.Tag)})
		}
	}
	sort.Slice(hits, func(a, b int) bool { return hits[a].Filename < hits[b].Filename })
	return hits
}

// Summarize extracts and summarizes a stored file on demand.
// Enrichment failures come back as sentinel text in a successful result.
func (s *FileService) Summarize(ctx context.Context, filename string) (*domain.SummaryResult, error) {
	if err := s.validateReadable(filename); err != nil {
		return nil, err
	}

	if cached, ok, err := s.cache.Get(ctx, filename); err != nil {
		s.logger.Warn("files.summary_cache.get_failed", "filename", filename, "error", err)
	} else if ok {
		s.recorder.RecordSummarization(nil, true)
		return &domain.SummaryResult{Filename: filename, Summary: cached}, nil
	}

	data, err := s.readAll(ctx, filename)
	if err != nil {
		return nil, err
	}

	extraction := s.extractor.Extract(ctx, data, filename)
	s.recorder.RecordExtraction(extraction.Format, extraction.Err)
	text := resolveText(extraction)
	if extraction.Err != nil {
		s.logger.Warn("files.extract_failed", "filename", filename, "format", extraction.Format, "error", extraction.Err)
	}

	summary := s.summarizer.Summarize(ctx, text, filename)
	s.recorder.RecordSummarization(summary.Err, false)
	result := &domain.SummaryResult{Filename: filename, Summary: resolveSummary(summary)}
	if summary.Err != nil {
		return result, nil
	}

	if err := s.cache.Set(ctx, filename, result.Summary, s.cacheTTL); err != nil {
		s.logger.Warn("files.summary_cache.set_failed", "filename", filename, "error", err)
	}
	if s.persistSummaries {
		if err := s.index.SetSummary(ctx, filename, result.Summary); err != nil {
			s.indexFlushFailed(filename, err)
		}
	}
	s.publish(ctx, domain.FileEvent{Type: domain.FileSummarized, Filename: filename})
	s.logger.Info("files.summarize.ok",
		"filename", filename,
		"format", extraction.Format,
		"truncated", summary.Truncated,
		"persisted", s.persistSummaries,
	)
	return result, nil
}

// Delete removes the object and then its index entry. Unknown filenames succeed without side effects on the index.
func (s *FileService) Delete(ctx context.Context, filename string) error {
	if err := s.validateWritable(filename); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, filename); err != nil {
		return fmt.Errorf("delete object: %w", err)
	}

	removed, err := s.index.Remove(ctx, filename)
	if err != nil {
		s.indexFlushFailed(filename, err)
	}
	s.invalidateSummary(ctx, filename)
	s.publish(ctx, domain.FileEvent{Type: domain.FileDeleted, Filename: filename})
	s.logger.Info("files.delete.ok", "filename", filename, "index_entry_removed", removed)
	return nil
}

func (s *FileService) Open(ctx context.Context, filename string) (io.ReadCloser, error) {
	if err := s.validateReadable(filename); err != nil {
		return nil, err
	}
	reader, err := s.store.Get(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("open object: %w", err)
	}
	return reader, nil
}

// Backfill classifies stored objects that have no tag yet and returns how many were tagged.
func (s *FileService) Backfill(ctx context.Context) (int, error) {
	keys, err := s.List(ctx)
	if err != nil {
		return 0, err
	}

	tagged := 0
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return tagged, err
		}
		ok, err := s.TagIfMissing(ctx, key)
		if err != nil {
			continue
		}
		if ok {
			tagged++
		}
	}
	return tagged, nil
}

// TagIfMissing classifies one stored file unless the index already holds a tag for it.
// It reports whether a new tag was written.
func (s *FileService) TagIfMissing(ctx context.Context, filename string) (bool, error) {
	if err := s.validateWritable(filename); err != nil {
		return false, err
	}
	s.index.Sync(ctx)
	if entry, ok := s.index.Get(filename); ok && entry.Tag != "" {
		return false, nil
	}
	// An event can outlive its object; never index a file that is gone.
	reader, err := s.store.Get(ctx, filename)
	if err != nil {
		if domain.IsKind(err, domain.ErrFileNotFound) {
			s.logger.Info("files.backfill.skipped_missing", "filename", filename)
			return false, nil
		}
		return false, fmt.Errorf("check object: %w", err)
	}
	_ = reader.Close()

	classification := s.classifier.Classify(ctx, filename)
	s.recorder.RecordClassification(classification.Outcome)
	tag := resolveTag(classification)
	if err := s.index.SetTag(ctx, filename, tag); err != nil {
		s.indexFlushFailed(filename, err)
		return false, err
	}
	s.logger.Info("files.backfill.tagged", "filename", filename, "tag", tag, "outcome", classification.Outcome)
	return true, nil
}

func (s *FileService) put(ctx context.Context, filename string, body io.Reader, size int64, contentType string) error {
	if err := s.validateWritable(filename); err != nil {
		return err
	}
	if err := s.store.Put(ctx, filename, body, size, contentType); err != nil {
		return fmt.Errorf("save to object storage: %w", err)
	}
	return nil
}

func (s *FileService) readAll(ctx context.Context, filename string) ([]byte, error) {
	reader, err := s.store.Get(ctx, filename)
	if err != nil {
		return nil, fmt.Errorf("fetch object: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(reader); err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "read object", err)
	}
	return buf.Bytes(), nil
}

func (s *FileService) validateWritable(filename string) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	if filename == s.reservedKey {
		return domain.WrapError(domain.ErrInvalidInput, "validate filename", fmt.Errorf("%q is reserved", filename))
	}
	return nil
}

func (s *FileService) validateReadable(filename string) error {
	if err := validateFilename(filename); err != nil {
		return err
	}
	if filename == s.reservedKey {
		return domain.WrapError(domain.ErrFileNotFound, "validate filename", fmt.Errorf("%q", filename))
	}
	return nil
}

func validateFilename(filename string) error {
	switch {
	case strings.TrimSpace(filename) == "":
		return domain.WrapError(domain.ErrInvalidInput, "validate filename", errors.New("filename is required"))
	case filename == "." || filename == "..":
		return domain.WrapError(domain.ErrInvalidInput, "validate filename", fmt.Errorf("%q is not a file name", filename))
	case strings.ContainsAny(filename, "/\\"):
		return domain.WrapError(domain.ErrInvalidInput, "validate filename", fmt.Errorf("%q contains a path separator", filename))
	}
	return nil
}

func (s *FileService) invalidateSummary(ctx context.Context, filename string) {
	if err := s.cache.Invalidate(ctx, filename); err != nil {
		s.logger.Warn("files.summary_cache.invalidate_failed", "filename", filename, "error", err)
	}
}

func (s *FileService) publish(ctx context.Context, event domain.FileEvent) {
	if err := s.events.PublishFileEvent(ctx, event); err != nil {
		s.logger.Warn("files.event.publish_failed", "type", event.Type, "filename", event.Filename, "error", err)
	}
}

func (s *FileService) indexFlushFailed(filename string, err error) {
	s.recorder.RecordIndexFlushFailure()
	s.logger.Error("index.flush_failed", "filename", filename, "error", err)
}

func resolveTag(c domain.Classification) domain.Category {
	switch c.Outcome {
	case domain.ClassifiedByExtension, domain.ClassifiedByModel:
		if c.Category.Storable() {
			return c.Category
		}
		return domain.CategoryDocument
	case domain.ClassifiedOutOfTaxonomy:
		return domain.CategoryDocument
	default:
		return domain.CategoryUnknown
	}
}

func resolveText(e domain.Extraction) string {
	if e.Err != nil {
		return domain.ExtractionFailedText
	}
	return e.Text
}

func resolveSummary(s domain.Summary) string {
	if s.Err != nil {
		return domain.SummaryUnavailableText
	}
	return s.Text
}

func tagOrUnknown(tag domain.Category) domain.Category {
	if tag == "" {
		return domain.CategoryUnknown
	}
	return tag
}

type nopCache struct{}

func (nopCache) Get(context.Context, string) (string, bool, error)        { return "", false, nil }
func (nopCache) Set(context.Context, string, string, time.Duration) error { return nil }
func (nopCache) Invalidate(context.Context, string) error                 { return nil }

type nopEvents struct{}

func (nopEvents) PublishFileEvent(context.Context, domain.FileEvent) error { return nil }

type nopRecorder struct{}

func (nopRecorder) RecordExtraction(domain.Format, error)             {}
func (nopRecorder) RecordClassification(domain.ClassificationOutcome) {}
func (nopRecorder) RecordSummarization(error, bool)                   {}
func (nopRecorder) RecordIndexFlushFailure()                          {}
