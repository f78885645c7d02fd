package ports

import (
	"context"
	"io"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

// FileService is the inbound contract for storage plus enrichment.
type FileService interface {
	Upload(ctx context.Context, filename string, body io.Reader, size int64, contentType string) error
	UploadAndClassify(ctx context.Context, filename string, body io.Reader, size int64, contentType string) (*domain.UploadResult, error)
	List(ctx context.Context) ([]string, error)
	ListWithMetadata(ctx context.Context) ([]domain.FileRecord, error)
	Search(ctx context.Context, query string) []domain.SearchHit
	Summarize(ctx context.Context, filename string) (*domain.SummaryResult, error)
	Delete(ctx context.Context, filename string) error
	Open(ctx context.Context, filename string) (io.ReadCloser, error)
}
