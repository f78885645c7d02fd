package localfs

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

func TestPutGetListDeleteRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := store.Put(ctx, "b.txt", strings.NewReader("second"), 6, "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "a.txt", strings.NewReader("first"), 5, "text/plain"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := store.Put(ctx, "a.txt", strings.NewReader("overwritten"), 11, "text/plain"); err != nil {
		t.Fatalf("Put() overwrite error = %v", err)
	}

	keys, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if strings.Join(keys, ",") != "a.txt,b.txt" {
		t.Fatalf("unexpected keys: %v", keys)
	}

	rc, err := store.Get(ctx, "a.txt")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	raw, _ := io.ReadAll(rc)
	rc.Close()
	if string(raw) != "overwritten" {
		t.Fatalf("unexpected content: %q", raw)
	}

	if err := store.Delete(ctx, "a.txt"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := store.Delete(ctx, "a.txt"); err != nil {
		t.Fatalf("Delete() of missing key error = %v", err)
	}
	if _, err := store.Get(ctx, "a.txt"); !domain.IsKind(err, domain.ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}

func TestListSkipsDirectoriesAndPartialWrites(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := os.Mkdir(filepath.Join(dir, "nested"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, tempPrefix+"123"), []byte("x"), 0o644); err != nil {
		t.Fatalf("write temp: %v", err)
	}
	if err := store.Put(context.Background(), "kept.bin", strings.NewReader("x"), 1, ""); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	keys, err := store.List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(keys) != 1 || keys[0] != "kept.bin" {
		t.Fatalf("unexpected keys: %v", keys)
	}
}

func TestKeysCannotEscapeBaseDir(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	for _, key := range []string{"", "..", "../escape.txt", "a/b.txt", `a\b.txt`} {
		if err := store.Put(context.Background(), key, strings.NewReader("x"), 1, ""); !domain.IsKind(err, domain.ErrInvalidInput) {
			t.Fatalf("Put(%q) expected ErrInvalidInput, got %v", key, err)
		}
	}
}
