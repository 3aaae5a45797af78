package factory

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/0x5457/gql-index/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateComponents(t *testing.T) {
	tmp := t.TempDir()
	schemaPath := filepath.Join(tmp, "schema.graphql")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testutil.ProductSDL), 0o644))

	cfg := config.Default()
	cfg.DataDir = filepath.Join(tmp, "data")
	cfg.SchemaPath = schemaPath
	cfg.EmbedProvider = config.ProviderLocal
	cfg.StoreBackend = config.BackendSQLite

	comps, err := NewComponentFactory(&cfg, nil).CreateComponents()
	require.NoError(t, err)
	defer func() { require.NoError(t, comps.Cleanup()) }()

	assert.Equal(t, "local-hash-64", comps.Embedder.ModelName())
	assert.IsType(t, &schema.FileProvider{}, comps.Provider)
	assert.IsType(t, &schema.ValidatingExecutor{}, comps.Executor)

	meta, err := comps.Indexer.EnsureIndex(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, 6, meta.Count)
	assert.FileExists(t, filepath.Join(cfg.DataDir, "index.db"))
}

func TestCreateComponentsRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.StoreBackend = "redis"
	_, err := NewComponentFactory(&cfg, nil).CreateComponents()
	assert.Error(t, err)
}
