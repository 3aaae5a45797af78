package embeddings_test

import (
	"context"
	"math"
	"testing"

	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func Test_LocalEmbedder_Deterministic(t *testing.T) {
	e := embeddings.NewLocal(8)
	v1, _ := e.EmbedQuery(context.Background(), "hello")
	v2, _ := e.EmbedQuery(context.Background(), "hello")
	if len(v1) != 8 || len(v2) != 8 {
		t.Fatalf("unexpected dim")
	}
	for i := range v1 {
		if v1[i] != v2[i] {
			t.Fatalf("vectors differ at %d", i)
		}
	}
}

func Test_LocalEmbedder_UnitNorm(t *testing.T) {
	e := embeddings.NewLocal(32)
	vecs, err := e.EmbedTexts(context.Background(), []string{
		"Query.product(id: ID!) -> Product",
		"Product.name -> String!",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.InDelta(t, 1.0, norm(vecs[0]), 1e-5)
	assert.InDelta(t, 1.0, norm(vecs[1]), 1e-5)
	// empty text has no features and stays the zero vector
	assert.Equal(t, 0.0, norm(vecs[2]))
}

func Test_LocalEmbedder_QueryMatchesBatch(t *testing.T) {
	e := embeddings.NewLocal(16)
	ctx := context.Background()
	batch, err := e.EmbedTexts(ctx, []string{"find product"})
	require.NoError(t, err)
	one, err := e.EmbedQuery(ctx, "find product")
	require.NoError(t, err)
	assert.Equal(t, batch[0], one)
}

func TestNormalize(t *testing.T) {
	v := embeddings.Normalize([]float32{3, 4})
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	zero := embeddings.Normalize([]float32{0, 0, 0})
	assert.Equal(t, []float32{0, 0, 0}, zero)
}
