package search_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/factory"
	"github.com/0x5457/gql-index/internal/indexer/pipeline"
	"github.com/0x5457/gql-index/internal/search"
	"github.com/0x5457/gql-index/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T) (*search.Service, *testutil.CountingEmbedder) {
	t.Helper()
	tmp := t.TempDir()
	schemaPath := filepath.Join(tmp, "schema.graphql")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testutil.CatalogSDL), 0o644))

	cfg := config.Default()
	cfg.DataDir = filepath.Join(tmp, "data")
	cfg.SchemaPath = schemaPath
	cfg.EmbedProvider = config.ProviderLocal

	emb := testutil.NewCountingEmbedder(embeddings.NewLocal(64))
	comps, err := factory.NewComponentFactory(&cfg, nil).WithEmbedder(emb).CreateComponents()
	require.NoError(t, err)
	t.Cleanup(func() { _ = comps.Cleanup() })
	return comps.Searcher, emb
}

func TestSearchBuildsIndexOnce(t *testing.T) {
	svc, emb := newService(t)
	ctx := context.Background()

	_, err := svc.Search(ctx, "product by id", 5)
	require.NoError(t, err)
	_, err = svc.Search(ctx, "reviews of a product", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, emb.Batches())
}

func TestSearchOrdersRootFirst(t *testing.T) {
	svc, _ := newService(t)
	hits, err := svc.Search(context.Background(), "product category name", 10)
	require.NoError(t, err)
	require.Len(t, hits, 10)

	sha := pipeline.ComputeSchemaSHA(testutil.CatalogSDL)
	seenNonRoot := false
	for i, h := range hits {
		assert.Equal(t, sha, h.SchemaSHA)
		if h.Type == "Query" {
			assert.False(t, seenNonRoot, "root hit after non-root hit")
			assert.NotEmpty(t, h.QueryTemplate)
		} else {
			seenNonRoot = true
			assert.Empty(t, h.QueryTemplate)
		}
		if i > 0 && (hits[i-1].Type == "Query") == (h.Type == "Query") {
			assert.GreaterOrEqual(t, hits[i-1].Score, h.Score)
		}
	}
}

func TestSearchExactSummaryScoresOne(t *testing.T) {
	svc, _ := newService(t)
	query := "Query.product(id: ID!) -> Product | desc: Look up a single product by its identifier."
	hits, err := svc.Search(context.Background(), query, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "Query", hits[0].Type)
	assert.Equal(t, "product", hits[0].Field)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
	assert.Contains(t, hits[0].QueryTemplate, "query { product(id: <ID!>) {")
}

func TestSearchClampsLimit(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	hits, err := svc.Search(ctx, "product", 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, err = svc.Search(ctx, "product", 100)
	require.NoError(t, err)
	assert.Len(t, hits, 19)

	assert.Equal(t, 20, search.ClampLimit(21))
	assert.Equal(t, 1, search.ClampLimit(-3))
	assert.Equal(t, 7, search.ClampLimit(7))
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	svc, emb := newService(t)
	_, err := svc.Search(context.Background(), "   ", 5)
	assert.ErrorIs(t, err, search.ErrEmptyQuery)
	assert.Equal(t, 0, emb.Batches())
}
