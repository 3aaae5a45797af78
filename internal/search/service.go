package search

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/0x5457/gql-index/internal/constants"
	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/synth"
	"github.com/0x5457/gql-index/internal/vecindex"
	"go.uber.org/zap"
)

var ErrEmptyQuery = errors.New("query must not be empty")

// Service answers free-text schema searches. Every search first makes sure
// the index matches the current schema.
type Service struct {
	Embedder embeddings.Embedder
	Store    *vecindex.Store
	Indexer  indexer.Indexer
	Logger   *zap.Logger
}

// ClampLimit bounds a requested result count to [1, MaxSearchLimit].
func ClampLimit(limit int) int {
	return max(1, min(limit, constants.MaxSearchLimit))
}

// Search returns the nearest fields to query. Hits on the root query type
// come first, then the rest, each group by descending score.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]models.FieldHit, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if _, err := s.Indexer.EnsureIndex(ctx, false); err != nil {
		return nil, err
	}

	qvec, err := s.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, errs.Wrap(errs.ErrEmbeddingBackend, s.Store.Location(), "", err)
	}
	hits, meta, err := s.Store.Search(qvec, ClampLimit(limit))
	if err != nil {
		return nil, err
	}

	catalog := synth.NewCatalog(meta)
	root := catalog.RootType()
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].TypeName == root && hits[j].TypeName != root
	})

	tokens := synth.Tokenize(query)
	out := make([]models.FieldHit, len(hits))
	for i, h := range hits {
		out[i] = synth.Annotate(h, catalog, tokens, meta.SchemaSHA)
	}
	logging.OrNop(s.Logger).Debug("schema search",
		zap.String("query", query),
		zap.Int("hits", len(out)))
	return out, nil
}
