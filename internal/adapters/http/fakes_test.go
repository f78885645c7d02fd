package httpadapter

import (
	"context"
	"io"
	"strings"

	"github.com/kirillkom/smart-file-explorer/internal/config"
	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

type fileServiceFake struct {
	uploadErr   error
	uploaded    map[string]string
	result      *domain.UploadResult
	names       []string
	records     []domain.FileRecord
	listErr     error
	hits        []domain.SearchHit
	queries     []string
	summary     *domain.SummaryResult
	summaryErr  error
	deleteErr   error
	deleted     []string
	content     string
	openErr     error
	contentType string
}

func (f *fileServiceFake) Upload(_ context.Context, filename string, body io.Reader, _ int64, contentType string) error {
	if f.uploadErr != nil {
		return f.uploadErr
	}
	raw, _ := io.ReadAll(body)
	if f.uploaded == nil {
		f.uploaded = map[string]string{}
	}
	f.uploaded[filename] = string(raw)
	f.contentType = contentType
	return nil
}

func (f *fileServiceFake) UploadAndClassify(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (*domain.UploadResult, error) {
	if err := f.Upload(ctx, filename, body, size, contentType); err != nil {
		return nil, err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &domain.UploadResult{Filename: filename, Tag: domain.CategoryText}, nil
}

func (f *fileServiceFake) List(context.Context) ([]string, error) {
	return f.names, f.listErr
}

func (f *fileServiceFake) ListWithMetadata(context.Context) ([]domain.FileRecord, error) {
	return f.records, f.listErr
}

func (f *fileServiceFake) Search(_ context.Context, query string) []domain.SearchHit {
	f.queries = append(f.queries, query)
	if f.hits == nil {
		return []domain.SearchHit{}
	}
	return f.hits
}

func (f *fileServiceFake) Summarize(_ context.Context, filename string) (*domain.SummaryResult, error) {
	if f.summaryErr != nil {
		return nil, f.summaryErr
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &domain.SummaryResult{Filename: filename, Summary: "- gist"}, nil
}

func (f *fileServiceFake) Delete(_ context.Context, filename string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deleted = append(f.deleted, filename)
	return nil
}

func (f *fileServiceFake) Open(context.Context, string) (io.ReadCloser, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return io.NopCloser(strings.NewReader(f.content)), nil
}

func testConfig() config.Config {
	cfg := config.Defaults()
	cfg.APIMaxInFlight = 0
	return cfg
}
