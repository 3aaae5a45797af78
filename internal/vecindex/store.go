// Package vecindex holds the loaded index of a data directory and answers
// nearest-neighbour queries against it.
package vecindex

import (
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage"
	"go.uber.org/zap"
)

// Snapshot is everything persisted alongside the vectors.
type Snapshot struct {
	Items     []models.FieldDescriptor
	SchemaSHA string
	Source    *models.SchemaSource
	QueryType string
	LeafTypes []string
}

// state is an immutable loaded index. It is swapped wholesale, never edited.
type state struct {
	meta    *models.IndexMetadata
	vectors models.VectorBlock
}

// Store caches the persisted index for the configured embedding model. All
// access goes through one mutex, which is also the rebuild lock.
type Store struct {
	backend storage.Backend
	model   string
	logger  *zap.Logger

	mu    sync.Mutex
	state *state
}

func New(backend storage.Backend, model string, logger *zap.Logger) *Store {
	return &Store{backend: backend, model: model, logger: logging.OrNop(logger)}
}

// Model is the embedding model this store accepts.
func (s *Store) Model() string { return s.model }

// Location describes the backing storage.
func (s *Store) Location() string { return s.backend.Location() }

func (s *Store) IsReady() bool {
	return s.backend.Exists()
}

// Load returns the index metadata, reading it from storage on first use.
func (s *Store) Load() (*models.IndexMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return describe(st), nil
}

func (s *Store) Save(vectors models.VectorBlock, snap Snapshot) (*models.IndexMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(vectors, snap)
}

// Update runs fn with the store lock held. The View passed to fn must not
// escape it.
func (s *Store) Update(fn func(v *View) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(&View{s: s})
}

// View exposes store operations to code already holding the lock.
type View struct{ s *Store }

func (v *View) IsReady() bool { return v.s.backend.Exists() }

func (v *View) Load() (*models.IndexMetadata, error) {
	st, err := v.s.load()
	if err != nil {
		return nil, err
	}
	return describe(st), nil
}

func (v *View) Save(vectors models.VectorBlock, snap Snapshot) (*models.IndexMetadata, error) {
	return v.s.save(vectors, snap)
}

func (s *Store) load() (*state, error) {
	if s.state != nil {
		return s.state, nil
	}
	meta, vectors, err := s.backend.Read()
	if err != nil {
		return nil, err
	}
	if meta.EmbeddingModel != s.model {
		return nil, errs.ModelMismatch(s.backend.Location(), meta.EmbeddingModel, s.model)
	}
	s.state = &state{meta: meta, vectors: vectors}
	s.logger.Debug("index loaded",
		zap.String("location", s.backend.Location()),
		zap.Int("count", len(meta.Items)),
		zap.Int("dim", vectors.Dim()))
	return s.state, nil
}

func (s *Store) save(vectors models.VectorBlock, snap Snapshot) (*models.IndexMetadata, error) {
	meta := &models.IndexMetadata{
		EmbeddingModel: s.model,
		SchemaSHA:      snap.SchemaSHA,
		SchemaSource:   snap.Source,
		QueryType:      snap.QueryType,
		LeafTypes:      slices.Clone(snap.LeafTypes),
		Items:          slices.Clone(snap.Items),
	}
	if err := s.backend.Write(meta, vectors); err != nil {
		return nil, fmt.Errorf("save index to %s: %w", s.backend.Location(), err)
	}
	s.state = &state{meta: meta, vectors: vectors}
	s.logger.Info("index committed",
		zap.String("location", s.backend.Location()),
		zap.Int("count", meta.Count),
		zap.String("schema_sha", meta.SchemaSHA))
	return describe(s.state), nil
}

// describe returns a copy of the cached metadata with the derived count.
func describe(st *state) *models.IndexMetadata {
	meta := *st.meta
	meta.Count = len(meta.Items)
	return &meta
}

// Search scores query against every stored row by dot product and returns
// the best limit hits, highest first, ties in stored order. limit is clamped
// to [1, item count].
func (s *Store) Search(query []float32, limit int) ([]models.SearchHit, *models.IndexMetadata, error) {
	s.mu.Lock()
	st, err := s.load()
	s.mu.Unlock()
	if err != nil {
		return nil, nil, err
	}

	n := len(st.meta.Items)
	if n == 0 {
		return []models.SearchHit{}, describe(st), nil
	}
	if dim := st.vectors.Dim(); len(query) != dim {
		return nil, nil, errs.New(errs.ErrModelMismatch, s.backend.Location(), "",
			"query vector has dim %d, index has %d", len(query), dim)
	}
	limit = max(1, min(limit, n))

	scores := make([]float32, n)
	order := make([]int, n)
	for i, row := range st.vectors {
		scores[i] = Dot(row, query)
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return scores[order[a]] > scores[order[b]] })

	hits := make([]models.SearchHit, limit)
	for i := range hits {
		idx := order[i]
		item := st.meta.Items[idx]
		hits[i] = models.SearchHit{
			TypeName:  item.TypeName,
			FieldName: item.FieldName,
			Summary:   item.Summary,
			Score:     scores[idx],
			Index:     idx,
		}
	}
	return hits, describe(st), nil
}

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return float32(sum)
}
