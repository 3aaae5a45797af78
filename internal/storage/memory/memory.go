package memory

import (
	"slices"
	"sync"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage"
)

// Store keeps an index in process memory. Nothing survives a restart.
type Store struct {
	mu      sync.RWMutex
	meta    *models.IndexMetadata
	vectors models.VectorBlock
}

var _ storage.Backend = (*Store)(nil)

func New() *Store { return &Store{} }

func (s *Store) Location() string { return "memory" }

func (s *Store) Close() error { return nil }

func (s *Store) Exists() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.meta != nil
}

func (s *Store) Read() (*models.IndexMetadata, models.VectorBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.meta == nil {
		return nil, nil, errs.New(errs.ErrIndexNotFound, s.Location(), "", "no index written")
	}
	meta := *s.meta
	meta.Items = slices.Clone(s.meta.Items)
	return &meta, cloneBlock(s.vectors), nil
}

func (s *Store) Write(meta *models.IndexMetadata, vectors models.VectorBlock) error {
	out := *meta
	out.Items = slices.Clone(meta.Items)
	out.Count = len(out.Items)
	out.Dim = vectors.Dim()
	if err := storage.Validate(s.Location(), &out, vectors); err != nil {
		return err
	}
	block := cloneBlock(vectors)

	s.mu.Lock()
	s.meta, s.vectors = &out, block
	s.mu.Unlock()

	meta.Count = out.Count
	meta.Dim = out.Dim
	return nil
}

func cloneBlock(v models.VectorBlock) models.VectorBlock {
	out := make(models.VectorBlock, len(v))
	for i, row := range v {
		out[i] = slices.Clone(row)
	}
	return out
}
