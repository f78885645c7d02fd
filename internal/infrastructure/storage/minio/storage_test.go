package minio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/infrastructure/resilience"
)

// fakeS3 serves the handful of path-style bucket calls the adapter makes.
type fakeS3 struct {
	mu      sync.Mutex
	objects map[string]string
	deleted []string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/user-files")
	switch {
	case path == "" || path == "/":
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusOK)
			return
		}
		f.writeListing(w)
	case r.Method == http.MethodDelete:
		key := strings.TrimPrefix(path, "/")
		f.deleted = append(f.deleted, key)
		delete(f.objects, key)
		w.WriteHeader(http.StatusNoContent)
	default:
		key := strings.TrimPrefix(path, "/")
		body, ok := f.objects[key]
		if !ok {
			w.Header().Set("Content-Type", "application/xml")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>NoSuchKey</Code><Message>The specified key does not exist.</Message><Key>%s</Key><BucketName>user-files</BucketName></Error>`, key)
			return
		}
		w.Header().Set("Content-Length", fmt.Sprint(len(body)))
		w.Header().Set("Content-Type", "text/plain")
		w.Header().Set("ETag", `"0123456789abcdef"`)
		w.Header().Set("Last-Modified", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC).Format(http.TimeFormat))
		w.WriteHeader(http.StatusOK)
		if r.Method != http.MethodHead {
			_, _ = io.WriteString(w, body)
		}
	}
}

func (f *fakeS3) writeListing(w http.ResponseWriter) {
	var contents strings.Builder
	for _, key := range []string{"a.txt", "metadata.json"} {
		if _, ok := f.objects[key]; !ok {
			continue
		}
		fmt.Fprintf(&contents, `<Contents><Key>%s</Key><LastModified>2024-01-02T03:04:05.000Z</LastModified><ETag>"0123456789abcdef"</ETag><Size>%d</Size><StorageClass>STANDARD</StorageClass></Contents>`, key, len(f.objects[key]))
	}
	w.Header().Set("Content-Type", "application/xml")
	fmt.Fprintf(w, `<?xml version="1.0" encoding="UTF-8"?><ListBucketResult xmlns="http://s3.amazonaws.com/doc/2006-03-01/"><Name>user-files</Name><Prefix></Prefix><KeyCount>%d</KeyCount><MaxKeys>1000</MaxKeys><IsTruncated>false</IsTruncated>%s</ListBucketResult>`,
		len(f.objects), contents.String())
}

func newTestStorage(t *testing.T, fake *fakeS3) *Storage {
	t.Helper()
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	executor := resilience.NewExecutor(resilience.Config{RetryMaxAttempts: 1, BreakerEnabled: false})
	store, err := New(Config{
		Endpoint:  strings.TrimPrefix(server.URL, "http://"),
		AccessKey: "minioadmin",
		SecretKey: "minioadmin",
		Bucket:    "user-files",
		Region:    "us-east-1",
	}, executor, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return store
}

func TestStorageListGetDelete(t *testing.T) {
	fake := &fakeS3{objects: map[string]string{"a.txt": "hello", "metadata.json": "{}"}}
	store := newTestStorage(t, fake)
	ctx := context.Background()

	if err := store.EnsureBucket(ctx); err != nil {
		t.Fatalf("EnsureBucket() error = %v", err)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if strings.Join(keys, ",") != "a.txt,metadata.json" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	rc, err := store.Get(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	raw, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("read object: %v", err)
	}
	if string(raw) != "hello" {
		t.Fatalf("unexpected content: %q", raw)
	}

	if err := store.Delete(ctx, "a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if len(fake.deleted) != 1 || fake.deleted[0] != "a.txt" {
		t.Fatalf("unexpected deletes: %v", fake.deleted)
	}
}

func TestStorageGetMissingKeyIsNotFound(t *testing.T) {
	store := newTestStorage(t, &fakeS3{objects: map[string]string{}})

	_, err := store.Get(context.Background(), "ghost.txt")
	if !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestClassifyMinioErrorIgnoresCancellation(t *testing.T) {
	class := classifyMinioError(context.Canceled)
	if class.Retryable || class.RecordFailure {
		t.Fatalf("cancellation must be neither retried nor recorded: %+v", class)
	}
}
