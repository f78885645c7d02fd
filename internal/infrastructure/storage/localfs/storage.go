package localfs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

// tempPrefix marks in-progress writes; such files are never listed.
const tempPrefix = ".upload-"

// Storage keeps one flat directory of objects, mirroring a single bucket.
type Storage struct {
	basePath string
}

func New(basePath string) (*Storage, error) {
	if basePath == "" {
		basePath = "./data/storage"
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &Storage{basePath: basePath}, nil
}

func (s *Storage) EnsureBucket(_ context.Context) error {
	if err := os.MkdirAll(s.basePath, 0o755); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "ensure storage dir", err)
	}
	return nil
}

// Put writes to a temporary file and renames it into place, so readers never see a partial object.
func (s *Storage) Put(_ context.Context, key string, data io.Reader, _ int64, _ string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.basePath, tempPrefix+"*")
	if err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "create file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := io.Copy(tmp, data); err != nil {
		tmp.Close()
		return domain.WrapError(domain.ErrStoreUnavailable, "write file", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "close file", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.WrapError(domain.ErrStoreUnavailable, "commit file", err)
	}
	return nil
}

func (s *Storage) Get(_ context.Context, key string) (io.ReadCloser, error) {
	path, err := s.path(key)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.WrapError(domain.ErrFileNotFound, "open file", err)
	}
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "open file", err)
	}
	return f, nil
}

func (s *Storage) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return nil, domain.WrapError(domain.ErrStoreUnavailable, "list storage dir", err)
	}
	keys := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() || strings.HasPrefix(entry.Name(), tempPrefix) {
			continue
		}
		keys = append(keys, entry.Name())
	}
	sort.Strings(keys)
	return keys, nil
}

// Delete is idempotent like an S3 DeleteObject: a missing key is not an error.
func (s *Storage) Delete(_ context.Context, key string) error {
	path, err := s.path(key)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return domain.WrapError(domain.ErrStoreUnavailable, "remove file", err)
	}
	return nil
}

func (s *Storage) path(key string) (string, error) {
	if key == "" || key == "." || key == ".." || strings.ContainsAny(key, `/\`) || strings.HasPrefix(key, tempPrefix) {
		return "", domain.WrapError(domain.ErrInvalidInput, "resolve object key", fmt.Errorf("invalid key %q", key))
	}
	return filepath.Join(s.basePath, key), nil
}
