package minio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

// partSize matches the multipart chunking used for uploads of unknown length.
const partSize = 10 << 20

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Region skips the bucket location lookup when set.
	Region string
}

// Storage is an ObjectStore over one MinIO/S3 bucket.
type Storage struct {
	client   *minio.Client
	bucket   string
	executor *resilience.Executor
	logger   *slog.Logger
}

func New(cfg Config, executor *resilience.Executor, logger *slog.Logger) (*Storage, error) {
	if cfg.Endpoint == "" {
		return nil, errors.New("minio endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, errors.New("minio bucket is required")
	}
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	if executor == nil {
		executor = resilience.NewExecutor(resilience.StorageConfig())
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{
		client:   client,
		bucket:   cfg.Bucket,
		executor: executor,
		logger:   logger,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *Storage) EnsureBucket(ctx context.Context) error {
	err := s.executor.Execute(ctx, "minio.ensure_bucket", func(callCtx context.Context) error {
		exists, err := s.client.BucketExists(callCtx, s.bucket)
		if err != nil {
			return err
		}
		if exists {
			return nil
		}
		if err := s.client.MakeBucket(callCtx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			if code := minio.ToErrorResponse(err).Code; code == "BucketAlreadyOwnedByYou" || code == "BucketAlreadyExists" {
				return nil
			}
			return err
		}
		s.logger.Info("minio.bucket_created", "bucket", s.bucket)
		return nil
	}, classifyMinioError)
	return wrapStoreError("ensure bucket", err)
}

// Put streams data into the bucket. The body is consumed once, so it is never retried.
func (s *Storage) Put(ctx context.Context, key string, data io.Reader, size int64, contentType string) error {
	if size < 0 {
		size = -1
	}
	opts := minio.PutObjectOptions{ContentType: contentType, PartSize: partSize}
	_, err := s.client.PutObject(ctx, s.bucket, key, data, size, opts)
	return wrapStoreError("put object", err)
}

func (s *Storage) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var object *minio.Object
	err := s.executor.Execute(ctx, "minio.get_object", func(callCtx context.Context) error {
		obj, err := s.client.GetObject(callCtx, s.bucket, key, minio.GetObjectOptions{})
		if err != nil {
			return err
		}
		// GetObject is lazy; Stat surfaces a missing key before the caller starts reading.
		if _, err := obj.Stat(); err != nil {
			obj.Close()
			return err
		}
		object = obj
		return nil
	}, classifyMinioError)
	if err != nil {
		return nil, wrapStoreError("get object", err)
	}
	return object, nil
}

func (s *Storage) List(ctx context.Context) ([]string, error) {
	var keys []string
	err := s.executor.Execute(ctx, "minio.list_objects", func(callCtx context.Context) error {
		keys = keys[:0]
		for info := range s.client.ListObjects(callCtx, s.bucket, minio.ListObjectsOptions{Recursive: true}) {
			if info.Err != nil {
				return info.Err
			}
			keys = append(keys, info.Key)
		}
		return nil
	}, classifyMinioError)
	if err != nil {
		return nil, wrapStoreError("list objects", err)
	}
	return keys, nil
}

func (s *Storage) Delete(ctx context.Context, key string) error {
	err := s.executor.Execute(ctx, "minio.remove_object", func(callCtx context.Context) error {
		return s.client.RemoveObject(callCtx, s.bucket, key, minio.RemoveObjectOptions{})
	}, classifyMinioError)
	return wrapStoreError("remove object", err)
}

func classifyMinioError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	if isNotFound(err) {
		return resilience.ErrorClassification{}
	}

	resp := minio.ToErrorResponse(err)
	switch resp.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests, http.StatusInternalServerError,
		http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if resp.Code == "SlowDown" || resp.Code == "ServiceUnavailable" {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{RecordFailure: true}
}

func isNotFound(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchObject"
}

// wrapStoreError maps a failed bucket operation to a domain error kind.
func wrapStoreError(operation string, err error) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return domain.WrapError(domain.ErrFileNotFound, operation, err)
	default:
		return domain.WrapError(domain.ErrStoreUnavailable, operation, err)
	}
}
