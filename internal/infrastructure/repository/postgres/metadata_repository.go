package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
)

// MetadataRepository stores the metadata index as one row per file.
// Save keeps full-replace semantics: the table always mirrors one in-memory snapshot.
type MetadataRepository struct {
	db *sql.DB
}

func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

func (r *MetadataRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/backfill startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2025091701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS file_metadata (
	filename TEXT PRIMARY KEY,
	tag TEXT NOT NULL DEFAULT '',
	summary TEXT NOT NULL DEFAULT '',
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_file_metadata_tag ON file_metadata(tag);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *MetadataRepository) Load(ctx context.Context) (domain.MetadataIndex, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT filename, tag, summary
FROM file_metadata
ORDER BY filename
`)
	if err != nil {
		return nil, fmt.Errorf("query file metadata: %w", err)
	}
	defer rows.Close()

	idx := domain.MetadataIndex{}
	for rows.Next() {
		var filename, tag, summary string
		if err := rows.Scan(&filename, &tag, &summary); err != nil {
			return nil, fmt.Errorf("scan file metadata: %w", err)
		}
		category := domain.Category(tag)
		if tag != "" && !category.Storable() {
			category = domain.CategoryUnknown
		}
		idx[filename] = domain.FileEntry{Tag: category, Summary: summary}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file metadata: %w", err)
	}
	return idx, nil
}

// Save replaces the table content with idx in a single transaction.
func (r *MetadataRepository) Save(ctx context.Context, idx domain.MetadataIndex) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin metadata tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM file_metadata`); err != nil {
		return fmt.Errorf("clear file metadata: %w", err)
	}

	filenames := make([]string, 0, len(idx))
	for filename := range idx {
		filenames = append(filenames, filename)
	}
	sort.Strings(filenames)

	now := time.Now().UTC()
	for _, filename := range filenames {
		entry := idx[filename]
		_, err := tx.ExecContext(ctx, `
INSERT INTO file_metadata (filename, tag, summary, updated_at)
VALUES ($1, $2, $3, $4)
`, filename, string(entry.Tag), entry.Summary, now)
		if err != nil {
			return fmt.Errorf("insert file metadata %q: %w", filename, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit metadata tx: %w", err)
	}
	return nil
}
