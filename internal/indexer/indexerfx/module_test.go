package indexerfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/config/configfx"
	"github.com/0x5457/gql-index/internal/embeddings/embeddingsfx"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/parser/parserfx"
	"github.com/0x5457/gql-index/internal/schema/schemafx"
	"github.com/0x5457/gql-index/internal/storage/storagefx"
	"github.com/0x5457/gql-index/internal/testutil"
	"github.com/0x5457/gql-index/internal/vecindex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestIndexerModule(t *testing.T) {
	for _, backend := range []string{config.BackendFile, config.BackendSQLite, config.BackendMemory} {
		t.Run(backend, func(t *testing.T) {
			tmp := t.TempDir()
			schemaPath := filepath.Join(tmp, "schema.graphql")
			require.NoError(t, os.WriteFile(schemaPath, []byte(testutil.ProductSDL), 0o644))

			cfg := config.Default()
			cfg.DataDir = filepath.Join(tmp, "data")
			cfg.SchemaPath = schemaPath
			cfg.EmbedProvider = config.ProviderLocal
			cfg.StoreBackend = backend

			var idx indexer.Indexer
			var store *vecindex.Store
			app := fx.New(
				configfx.Module,
				parserfx.Module,
				embeddingsfx.Module,
				storagefx.Module,
				schemafx.Module,
				Module,
				fx.Supply(cfg),
				fx.Populate(&idx, &store),
			)

			ctx := context.Background()
			require.NoError(t, app.Start(ctx))
			defer func() {
				require.NoError(t, app.Stop(ctx))
			}()

			meta, err := idx.EnsureIndex(ctx, false)
			require.NoError(t, err)
			assert.Equal(t, 6, meta.Count)
			assert.Equal(t, "local-hash-64", store.Model())
			assert.True(t, store.IsReady())
		})
	}
}
