package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/0x5457/gql-index/internal/storage/file"
	"github.com/0x5457/gql-index/internal/storage/memory"
	"github.com/0x5457/gql-index/internal/storage/sqlite"
	"github.com/0x5457/gql-index/internal/storage/sqlvec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backends(t *testing.T) map[string]storage.Backend {
	t.Helper()
	dir := t.TempDir()
	lite, err := sqlite.New(filepath.Join(dir, "index.db"))
	require.NoError(t, err)
	vec, err := sqlvec.New(filepath.Join(dir, "vec.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = lite.Close()
		_ = vec.Close()
	})
	return map[string]storage.Backend{
		"file":   file.New(filepath.Join(dir, "files")),
		"sqlite": lite,
		"sqlvec": vec,
		"memory": memory.New(),
	}
}

func fixture(n, dim int) (*models.IndexMetadata, models.VectorBlock) {
	src := models.EndpointSource("https://api.example.com/graphql", []string{"Authorization"})
	meta := &models.IndexMetadata{
		EmbeddingModel: "model-a",
		SchemaSHA:      "sha",
		SchemaSource:   &src,
	}
	vectors := make(models.VectorBlock, n)
	for i := range n {
		meta.Items = append(meta.Items, models.FieldDescriptor{
			TypeName:  "Query",
			FieldName: string(rune('a' + i)),
			Summary:   "Query." + string(rune('a'+i)) + " -> String",
		})
		row := make([]float32, dim)
		row[i%dim] = 1
		row[(i+1)%dim] = -0.5
		vectors[i] = row
	}
	return meta, vectors
}

func TestBackendsRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert.False(t, b.Exists())
			_, _, err := b.Read()
			assert.ErrorIs(t, err, errs.ErrIndexNotFound)

			meta, vectors := fixture(5, 4)
			require.NoError(t, b.Write(meta, vectors))
			assert.True(t, b.Exists())

			got, gotVecs, err := b.Read()
			require.NoError(t, err)
			assert.Equal(t, meta.Items, got.Items)
			assert.Equal(t, vectors, gotVecs)
			assert.Equal(t, 5, got.Count)
			assert.Equal(t, 4, got.Dim)
			require.NotNil(t, got.SchemaSource)
			assert.True(t, got.SchemaSource.Equal(*meta.SchemaSource))

			// replacing with a different width drops the old rows entirely
			meta2, vectors2 := fixture(2, 3)
			meta2.EmbeddingModel = "model-b"
			require.NoError(t, b.Write(meta2, vectors2))
			got, gotVecs, err = b.Read()
			require.NoError(t, err)
			assert.Equal(t, "model-b", got.EmbeddingModel)
			assert.Equal(t, vectors2, gotVecs)
		})
	}
}

func TestBackendsRejectMisaligned(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			meta, vectors := fixture(3, 4)
			require.Error(t, b.Write(meta, vectors[:2]))
			assert.False(t, b.Exists())
		})
	}
}

func TestValidate(t *testing.T) {
	meta, vectors := fixture(2, 3)
	require.NoError(t, storage.Validate("x", meta, vectors))

	meta.Count = 7
	assert.ErrorIs(t, storage.Validate("x", meta, vectors), errs.ErrCorruptIndex)

	meta.Count = 0
	vectors[1] = vectors[1][:2]
	assert.ErrorIs(t, storage.Validate("x", meta, vectors), errs.ErrCorruptIndex)
}

func TestVectorCodec(t *testing.T) {
	v := []float32{1, -2.5, 3.25e-8}
	got, err := storage.DecodeVector(storage.EncodeVector(v))
	require.NoError(t, err)
	assert.Equal(t, v, got)

	_, err = storage.DecodeVector([]byte{1, 2, 3})
	assert.Error(t, err)
}

func TestAcquireDirLock(t *testing.T) {
	dir := t.TempDir()
	release, err := storage.AcquireDirLock(dir, 0)
	require.NoError(t, err)
	release()

	release, err = storage.AcquireDirLock(dir, 0)
	require.NoError(t, err)
	release()
}
