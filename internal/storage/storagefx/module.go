package storagefx

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/0x5457/gql-index/internal/storage/file"
	"github.com/0x5457/gql-index/internal/storage/memory"
	"github.com/0x5457/gql-index/internal/storage/sqlite"
	"github.com/0x5457/gql-index/internal/storage/sqlvec"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Database file names used inside the data directory by the SQL backends.
const (
	SQLiteFile = "index.db"
	SQLVecFile = "index-vec.db"
)

// Params represents dependencies for storage components
type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    *config.Config
	Logger    *zap.Logger `optional:"true"`
}

// NewBackend opens the configured index backend in the data directory
func NewBackend(params Params) (storage.Backend, error) {
	backend, err := Open(params.Config.StoreBackend, params.Config.DataDir)
	if err != nil {
		return nil, err
	}
	if params.Logger != nil {
		fields := []zap.Field{
			zap.String("backend", params.Config.StoreBackend),
			zap.String("location", backend.Location()),
		}
		if vs, ok := backend.(*sqlvec.Store); ok {
			if v, err := vs.Version(); err == nil {
				fields = append(fields, zap.String("sqlite_vec", v))
			}
		}
		params.Logger.Debug("index store opened", fields...)
	}
	params.Lifecycle.Append(fx.Hook{
		OnStop: func(context.Context) error { return backend.Close() },
	})
	return backend, nil
}

// Open creates a backend by name without fx.
func Open(kind, dataDir string) (storage.Backend, error) {
	if kind != config.BackendMemory && dataDir == "" {
		return nil, fmt.Errorf("data dir must be specified")
	}
	switch kind {
	case config.BackendFile, "":
		return file.New(dataDir), nil
	case config.BackendMemory:
		return memory.New(), nil
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create data dir %s: %w", dataDir, err)
	}
	switch kind {
	case config.BackendSQLite:
		return sqlite.New(filepath.Join(dataDir, SQLiteFile))
	case config.BackendSQLVec:
		return sqlvec.New(filepath.Join(dataDir, SQLVecFile))
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

// Module provides storage components
var Module = fx.Module("storage",
	fx.Provide(NewBackend),
)
