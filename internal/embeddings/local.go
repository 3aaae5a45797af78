package embeddings

import (
	"context"
	"crypto/sha1"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode"
)

// LocalEmbedder derives vectors from hashed word features. It needs no
// network and is deterministic, which makes it the backend for tests and
// offline use. Texts sharing words land close to each other.
type LocalEmbedder struct {
	dim int
}

func NewLocal(dim int) *LocalEmbedder { return &LocalEmbedder{dim: dim} }

func (e *LocalEmbedder) ModelName() string { return fmt.Sprintf("local-hash-%d", e.dim) }

func (e *LocalEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	vecs := make([][]float32, len(texts))
	for i, t := range texts {
		vecs[i] = Normalize(hashToVector(t, e.dim))
	}
	return vecs, nil
}

func (e *LocalEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return embedOne(ctx, e, text)
}

func hashToVector(s string, dim int) []float32 {
	vec := make([]float32, dim)
	if dim == 0 {
		return vec
	}
	words := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := sha1.Sum([]byte(w))
		for i := 0; i < 4; i++ {
			// each word sets four signed buckets
			bucket := int(binary.BigEndian.Uint16(h[i*2:])) % dim
			sign := float32(1)
			if h[12+i]&1 == 1 {
				sign = -1
			}
			vec[bucket] += sign * (float32(h[8+i])/255.0 + 0.5)
		}
	}
	return vec
}
