package storagefx

import (
	"context"
	"testing"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/config/configfx"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestStorageModule(t *testing.T) {
	for _, kind := range []string{
		config.BackendFile, config.BackendSQLite, config.BackendSQLVec, config.BackendMemory,
	} {
		t.Run(kind, func(t *testing.T) {
			cfg := config.Default()
			cfg.DataDir = t.TempDir()
			cfg.StoreBackend = kind

			var backend storage.Backend
			app := fx.New(
				configfx.Module,
				Module,
				fx.Supply(cfg),
				fx.Populate(&backend),
			)

			ctx := context.Background()
			require.NoError(t, app.Start(ctx))
			defer func() {
				require.NoError(t, app.Stop(ctx))
			}()

			assert.NotNil(t, backend)
			assert.False(t, backend.Exists())
		})
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open("s3", t.TempDir())
	assert.Error(t, err)
	_, err = Open(config.BackendFile, "")
	assert.Error(t, err)
}
