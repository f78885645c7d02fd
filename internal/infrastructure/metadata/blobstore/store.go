package blobstore

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/kirillkom/smart-file-explorer/internal/core/domain"
	"github.com/kirillkom/smart-file-explorer/internal/core/ports"
)

//go:embed metadata.schema.json
var schemaJSON []byte

// Store keeps the whole metadata index as one JSON object in the file bucket.
type Store struct {
	objects ports.ObjectStore
	key     string
	schema  *jsonschema.Schema
}

func New(objects ports.ObjectStore, key string) (*Store, error) {
	if key == "" {
		key = "metadata.json"
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("metadata.schema.json", bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("add metadata schema: %w", err)
	}
	schema, err := compiler.Compile("metadata.schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", err)
	}
	return &Store{objects: objects, key: key, schema: schema}, nil
}

// Load reads the index object. A missing object is an empty index, not an error.
func (s *Store) Load(ctx context.Context) (domain.MetadataIndex, error) {
	reader, err := s.objects.Get(ctx, s.key)
	if domain.IsKind(err, domain.ErrFileNotFound) {
		return domain.MetadataIndex{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("fetch metadata object: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read metadata object: %w", err)
	}
	return s.decode(raw)
}

func (s *Store) Save(ctx context.Context, idx domain.MetadataIndex) error {
	if idx == nil {
		idx = domain.MetadataIndex{}
	}
	raw, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata index: %w", err)
	}
	if err := s.objects.Put(ctx, s.key, bytes.NewReader(raw), int64(len(raw)), "application/json"); err != nil {
		return fmt.Errorf("write metadata object: %w", err)
	}
	return nil
}

func (s *Store) decode(raw []byte) (domain.MetadataIndex, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return domain.MetadataIndex{}, nil
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("unmarshal metadata index: %w", err)
	}
	if err := s.schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("metadata index does not match schema: %w", err)
	}

	var idx domain.MetadataIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("decode metadata index: %w", err)
	}
	if idx == nil {
		idx = domain.MetadataIndex{}
	}
	for filename, entry := range idx {
		if entry.Tag != "" && !entry.Tag.Storable() {
			entry.Tag = domain.CategoryUnknown
			idx[filename] = entry
		}
	}
	return idx, nil
}
