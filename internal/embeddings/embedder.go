package embeddings

import (
	"context"
	"fmt"
	"math"

	"github.com/0x5457/gql-index/internal/errs"
)

// Embedder converts text into unit-length vectors. Every EmbedTexts call is
// a single backend request; callers decide how to batch.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	ModelName() string
}

// Normalize scales v in place to unit length. A zero vector stays zero.
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1 / math.Sqrt(sum)
	for i, x := range v {
		v[i] = float32(float64(x) * inv)
	}
	return v
}

// normalizeAll normalizes each row and checks the batch shape.
func normalizeAll(vecs [][]float32, want int) ([][]float32, error) {
	if len(vecs) != want {
		return nil, fmt.Errorf("%w: got %d embeddings for %d texts", errs.ErrEmbeddingBackend, len(vecs), want)
	}
	for i := range vecs {
		if i > 0 && len(vecs[i]) != len(vecs[0]) {
			return nil, fmt.Errorf("%w: embedding %d has dim %d, expected %d",
				errs.ErrEmbeddingBackend, i, len(vecs[i]), len(vecs[0]))
		}
		Normalize(vecs[i])
	}
	return vecs, nil
}

// embedOne implements EmbedQuery as EmbedTexts of a singleton.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	vecs, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}
