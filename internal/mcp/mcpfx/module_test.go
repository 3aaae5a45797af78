package mcpfx

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/config/configfx"
	"github.com/0x5457/gql-index/internal/embeddings/embeddingsfx"
	"github.com/0x5457/gql-index/internal/indexer/indexerfx"
	"github.com/0x5457/gql-index/internal/parser/parserfx"
	"github.com/0x5457/gql-index/internal/schema/schemafx"
	"github.com/0x5457/gql-index/internal/search/searchfx"
	"github.com/0x5457/gql-index/internal/storage/storagefx"
	"github.com/0x5457/gql-index/internal/testutil"
	"github.com/0x5457/gql-index/internal/vecindex"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func newApp(t *testing.T, schemaPath string, targets ...any) *fx.App {
	t.Helper()
	cfg := config.Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "data")
	cfg.SchemaPath = schemaPath
	cfg.EmbedProvider = config.ProviderLocal

	return fx.New(
		configfx.Module,
		parserfx.Module,
		embeddingsfx.Module,
		storagefx.Module,
		schemafx.Module,
		indexerfx.Module,
		searchfx.Module,
		Module,
		fx.Supply(cfg),
		fx.Populate(targets...),
	)
}

func waitDone(t *testing.T, lc *Lifecycle) {
	t.Helper()
	select {
	case <-lc.Done():
	case <-time.After(10 * time.Second):
		t.Fatal("warm-up did not finish")
	}
}

func TestLifecycleWarmsIndex(t *testing.T) {
	schemaPath := filepath.Join(t.TempDir(), "schema.graphql")
	require.NoError(t, os.WriteFile(schemaPath, []byte(testutil.CatalogSDL), 0o644))

	var (
		srv   *server.MCPServer
		lc    *Lifecycle
		store *vecindex.Store
	)
	app := newApp(t, schemaPath, &srv, &lc, &store)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, srv)
	waitDone(t, lc)
	assert.True(t, store.IsReady())
}

func TestLifecycleWarmUpFailureIsNotFatal(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.graphql")

	var (
		lc    *Lifecycle
		store *vecindex.Store
	)
	app := newApp(t, missing, &lc, &store)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	waitDone(t, lc)
	assert.False(t, store.IsReady())
}
