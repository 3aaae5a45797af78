package vecindex_test

import (
	"context"
	"testing"

	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage/file"
	"github.com/0x5457/gql-index/internal/vecindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func items(names ...string) []models.FieldDescriptor {
	out := make([]models.FieldDescriptor, len(names))
	for i, n := range names {
		out[i] = models.FieldDescriptor{
			TypeName:   "Query",
			FieldName:  n,
			ReturnType: "String",
			Summary:    "Query." + n + " -> String",
		}
	}
	return out
}

func unit(dim, axis int) []float32 {
	v := make([]float32, dim)
	v[axis] = 1
	return v
}

func TestStoreSaveLoadSearch(t *testing.T) {
	dir := t.TempDir()
	store := vecindex.New(file.New(dir), "model-a", nil)
	assert.False(t, store.IsReady())

	vectors := models.VectorBlock{unit(3, 0), unit(3, 1), unit(3, 2)}
	src := models.FileSource("schema.graphql")
	meta, err := store.Save(vectors, vecindex.Snapshot{
		Items:     items("a", "b", "c"),
		SchemaSHA: "sha-1",
		Source:    &src,
		QueryType: "Query",
	})
	require.NoError(t, err)
	assert.Equal(t, 3, meta.Count)
	assert.Equal(t, "model-a", meta.EmbeddingModel)
	assert.True(t, store.IsReady())

	// a fresh store over the same directory sees the committed index
	reopened := vecindex.New(file.New(dir), "model-a", nil)
	loaded, err := reopened.Load()
	require.NoError(t, err)
	assert.Equal(t, "sha-1", loaded.SchemaSHA)
	assert.Equal(t, items("a", "b", "c"), loaded.Items)

	hits, _, err := reopened.Search(unit(3, 1), 5)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "b", hits[0].FieldName)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
	assert.Equal(t, 1, hits[0].Index)
}

func TestStoreModelMismatch(t *testing.T) {
	dir := t.TempDir()
	_, err := vecindex.New(file.New(dir), "model-a", nil).
		Save(models.VectorBlock{unit(2, 0)}, vecindex.Snapshot{Items: items("a")})
	require.NoError(t, err)

	other := vecindex.New(file.New(dir), "model-b", nil)
	_, err = other.Load()
	assert.ErrorIs(t, err, errs.ErrModelMismatch)
	assert.Contains(t, err.Error(), "model-a")
	assert.Contains(t, err.Error(), "model-b")

	_, _, err = other.Search(unit(2, 0), 1)
	assert.ErrorIs(t, err, errs.ErrModelMismatch)
}

func TestStoreLoadMissing(t *testing.T) {
	_, err := vecindex.New(file.New(t.TempDir()), "model-a", nil).Load()
	assert.ErrorIs(t, err, errs.ErrIndexNotFound)
}

func TestSearchClampsLimit(t *testing.T) {
	store := vecindex.New(file.New(t.TempDir()), "m", nil)
	_, err := store.Save(models.VectorBlock{unit(2, 0), unit(2, 1)}, vecindex.Snapshot{Items: items("a", "b")})
	require.NoError(t, err)

	hits, _, err := store.Search(unit(2, 0), 0)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	hits, _, err = store.Search(unit(2, 0), 50)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestSearchTiesKeepStoredOrder(t *testing.T) {
	store := vecindex.New(file.New(t.TempDir()), "m", nil)
	vectors := models.VectorBlock{unit(2, 1), unit(2, 0), unit(2, 0), unit(2, 0)}
	_, err := store.Save(vectors, vecindex.Snapshot{Items: items("w", "x", "y", "z")})
	require.NoError(t, err)

	hits, _, err := store.Search(unit(2, 0), 4)
	require.NoError(t, err)
	var names []string
	for _, h := range hits {
		names = append(names, h.FieldName)
	}
	assert.Equal(t, []string{"x", "y", "z", "w"}, names)
}

func TestSearchEmptyIndex(t *testing.T) {
	store := vecindex.New(file.New(t.TempDir()), "m", nil)
	_, err := store.Save(models.VectorBlock{}, vecindex.Snapshot{})
	require.NoError(t, err)

	hits, meta, err := store.Search([]float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Equal(t, 0, meta.Count)
}

func TestSearchExactTextScoresOne(t *testing.T) {
	ctx := context.Background()
	emb := embeddings.NewLocal(32)
	fields := items("product", "category", "reviews")
	texts := make([]string, len(fields))
	for i, f := range fields {
		texts[i] = f.Summary
	}
	vectors, err := emb.EmbedTexts(ctx, texts)
	require.NoError(t, err)

	store := vecindex.New(file.New(t.TempDir()), emb.ModelName(), nil)
	_, err = store.Save(vectors, vecindex.Snapshot{Items: fields})
	require.NoError(t, err)

	q, err := emb.EmbedQuery(ctx, fields[1].Summary)
	require.NoError(t, err)
	hits, _, err := store.Search(q, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "category", hits[0].FieldName)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-5)
}

func TestSearchRejectsWrongDim(t *testing.T) {
	store := vecindex.New(file.New(t.TempDir()), "m", nil)
	_, err := store.Save(models.VectorBlock{unit(3, 0)}, vecindex.Snapshot{Items: items("a")})
	require.NoError(t, err)
	_, _, err = store.Search([]float32{1, 0}, 1)
	assert.ErrorIs(t, err, errs.ErrModelMismatch)
}

func TestUpdateHoldsLock(t *testing.T) {
	store := vecindex.New(file.New(t.TempDir()), "m", nil)
	err := store.Update(func(v *vecindex.View) error {
		assert.False(t, v.IsReady())
		_, err := v.Save(models.VectorBlock{unit(2, 0)}, vecindex.Snapshot{Items: items("a")})
		if err != nil {
			return err
		}
		meta, err := v.Load()
		if err != nil {
			return err
		}
		assert.Equal(t, 1, meta.Count)
		return nil
	})
	require.NoError(t, err)
}
