package usecase

import (
	"context"
	"log/slog"
	"sync"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

// Index owns the in-memory metadata index and its persisted copy.
// Mutations update memory and flush the full snapshot under one lock, so
// concurrent writers never interleave a read-modify-write cycle.
type Index struct {
	store  ports.MetadataStore
	logger *slog.Logger
	shared bool

	mu      sync.Mutex
	entries domain.MetadataIndex
}

type IndexOption func(*Index)

// WithSharedStore marks the persisted index as written by other processes too.
// Every mutation then re-reads the persisted copy before applying its change,
// and Sync picks up entries written elsewhere.
func WithSharedStore(shared bool) IndexOption {
	return func(i *Index) {
		i.shared = shared
	}
}

func NewIndex(store ports.MetadataStore, logger *slog.Logger, opts ...IndexOption) *Index {
	if logger == nil {
		logger = slog.Default()
	}
	i := &Index{
		store:   store,
		logger:  logger,
		entries: domain.MetadataIndex{},
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Load replaces the in-memory copy with the persisted index.
// Any failure leaves an empty index; the store may not exist yet.
func (i *Index) Load(ctx context.Context) {
	loaded, err := i.store.Load(ctx)
	if err != nil {
		i.logger.Warn("index.load_failed", "error", err)
		loaded = domain.MetadataIndex{}
	}
	if loaded == nil {
		loaded = domain.MetadataIndex{}
	}

	i.mu.Lock()
	i.entries = loaded
	i.mu.Unlock()

	i.logger.Info("index.loaded", "entries", len(loaded))
}

// Refresh re-reads the persisted index for a process that shares it with other writers.
// Unlike Load, a failure keeps the current in-memory copy.
func (i *Index) Refresh(ctx context.Context) error {
	loaded, err := i.store.Load(ctx)
	if err != nil {
		return err
	}
	if loaded == nil {
		loaded = domain.MetadataIndex{}
	}

	i.mu.Lock()
	i.entries = loaded
	i.mu.Unlock()
	return nil
}

// Sync refreshes a shared index before a read. Failures are logged and the
// current copy is served. It is a no-op for an index with a single writer.
func (i *Index) Sync(ctx context.Context) {
	if !i.shared {
		return
	}
	if err := i.Refresh(ctx); err != nil {
		i.logger.Warn("index.sync_failed", "error", err)
	}
}

func (i *Index) Get(filename string) (domain.FileEntry, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	entry, ok := i.entries[filename]
	return entry, ok
}

func (i *Index) Snapshot() domain.MetadataIndex {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.entries.Clone()
}

// SetTag replaces the entry for filename with a fresh tag-only entry.
func (i *Index) SetTag(ctx context.Context, filename string, tag domain.Category) error {
	if !tag.Storable() {
		tag = domain.CategoryUnknown
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	i.reloadLocked(ctx)
	i.entries[filename] = domain.FileEntry{Tag: tag}
	return i.flushLocked(ctx)
}

// SetSummary keeps the existing tag and replaces the summary.
func (i *Index) SetSummary(ctx context.Context, filename, summary string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.reloadLocked(ctx)
	entry := i.entries[filename]
	entry.Summary = summary
	i.entries[filename] = entry
	return i.flushLocked(ctx)
}

// Remove deletes the entry for filename. An absent entry is a no-op and nothing is written.
func (i *Index) Remove(ctx context.Context, filename string) (bool, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.reloadLocked(ctx)
	if _, ok := i.entries[filename]; !ok {
		return false, nil
	}
	delete(i.entries, filename)
	return true, i.flushLocked(ctx)
}

// reloadLocked replaces memory with the persisted copy of a shared index, so a
// mutation lands on top of what other writers saved. A failed read keeps memory.
func (i *Index) reloadLocked(ctx context.Context) {
	if !i.shared {
		return
	}
	loaded, err := i.store.Load(ctx)
	if err != nil {
		i.logger.Warn("index.reload_failed", "error", err)
		return
	}
	if loaded == nil {
		loaded = domain.MetadataIndex{}
	}
	i.entries = loaded
}

func (i *Index) flushLocked(ctx context.Context) error {
	if err := i.store.Save(ctx, i.entries.Clone()); err != nil {
		return domain.WrapError(domain.ErrIndexPersist, "flush metadata index", err)
	}
	return nil
}
