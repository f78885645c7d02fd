package usecase

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

type chatFake struct {
	mu       sync.Mutex
	reply    string
	err      error
	calls    int
	messages [][]domain.ChatMessage
	models   []string
	ctxErr   error
	deadline bool
}

func (f *chatFake) Complete(ctx context.Context, messages []domain.ChatMessage, model string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.messages = append(f.messages, messages)
	f.models = append(f.models, model)
	f.ctxErr = ctx.Err()
	_, f.deadline = ctx.Deadline()
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

type objectStoreFake struct {
	mu        sync.Mutex
	objects   map[string][]byte
	putErr    error
	getErr    error
	listErr   error
	deleteErr error
	deletes   []string
}

func newObjectStoreFake() *objectStoreFake {
	return &objectStoreFake{objects: map[string][]byte{}}
}

func (f *objectStoreFake) EnsureBucket(context.Context) error { return nil }

func (f *objectStoreFake) Put(_ context.Context, key string, data io.Reader, _ int64, _ string) error {
	if f.putErr != nil {
		return f.putErr
	}
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[key] = raw
	return nil
}

func (f *objectStoreFake) Get(_ context.Context, key string) (io.ReadCloser, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.objects[key]
	if !ok {
		return nil, domain.WrapError(domain.ErrFileNotFound, "get object", errors.New(key))
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

func (f *objectStoreFake) List(context.Context) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, 0, len(f.objects))
	for key := range f.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys, nil
}

func (f *objectStoreFake) Delete(_ context.Context, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, key)
	delete(f.objects, key)
	return nil
}

type metadataStoreFake struct {
	mu      sync.Mutex
	loaded  domain.MetadataIndex
	loadErr error
	saveErr error
	saves   int
	saved   domain.MetadataIndex
}

func (f *metadataStoreFake) Load(context.Context) (domain.MetadataIndex, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.loaded.Clone(), nil
}

func (f *metadataStoreFake) Save(_ context.Context, idx domain.MetadataIndex) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = idx.Clone()
	f.loaded = idx.Clone()
	return nil
}

type extractorFake struct {
	extraction domain.Extraction
	calls      int
}

func (f *extractorFake) Extract(context.Context, []byte, string) domain.Extraction {
	f.calls++
	return f.extraction
}

type classifierFake struct {
	classification domain.Classification
	calls          []string
}

func (f *classifierFake) Classify(_ context.Context, filename string) domain.Classification {
	f.calls = append(f.calls, filename)
	return f.classification
}

type summarizerFake struct {
	summary domain.Summary
	texts   []string
}

func (f *summarizerFake) Summarize(_ context.Context, text, _ string) domain.Summary {
	f.texts = append(f.texts, text)
	return f.summary
}

type summaryCacheFake struct {
	entries     map[string]string
	sets        int
	invalidated []string
}

func (f *summaryCacheFake) Get(_ context.Context, filename string) (string, bool, error) {
	summary, ok := f.entries[filename]
	return summary, ok, nil
}

func (f *summaryCacheFake) Set(_ context.Context, filename, summary string, _ time.Duration) error {
	if f.entries == nil {
		f.entries = map[string]string{}
	}
	f.sets++
	f.entries[filename] = summary
	return nil
}

func (f *summaryCacheFake) Invalidate(_ context.Context, filename string) error {
	f.invalidated = append(f.invalidated, filename)
	delete(f.entries, filename)
	return nil
}

type recorderFake struct {
	classifications []domain.ClassificationOutcome
	flushFailures   int
	summaryErrors   int
}

func (f *recorderFake) RecordExtraction(domain.Format, error) {}

func (f *recorderFake) RecordClassification(outcome domain.ClassificationOutcome) {
	f.classifications = append(f.classifications, outcome)
}

func (f *recorderFake) RecordSummarization(err error, _ bool) {
	if err != nil {
		f.summaryErrors++
	}
}

func (f *recorderFake) RecordIndexFlushFailure() { f.flushFailures++ }
