package appfx

import (
	"github.com/0x5457/gql-index/cmd/cmdsfx"
	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/config/configfx"
	"github.com/0x5457/gql-index/internal/embeddings/embeddingsfx"
	"github.com/0x5457/gql-index/internal/indexer/indexerfx"
	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/mcp/mcpfx"
	"github.com/0x5457/gql-index/internal/parser/parserfx"
	"github.com/0x5457/gql-index/internal/schema/schemafx"
	"github.com/0x5457/gql-index/internal/search/searchfx"
	"github.com/0x5457/gql-index/internal/storage/storagefx"
	"go.uber.org/fx"
)

// Module combines all application modules
var Module = fx.Options(
	configfx.Module,
	parserfx.Module,
	embeddingsfx.Module,
	storagefx.Module,
	schemafx.Module,
	indexerfx.Module,
	searchfx.Module,
	mcpfx.Module,
	cmdsfx.Module,
)

// NewApp creates an Fx app for cfg. Extra options typically populate or
// invoke the components a command needs.
func NewApp(cfg config.Config, opts ...fx.Option) *fx.App {
	return fx.New(
		Module,
		logging.FxLogger(cfg.LogLevel),
		fx.Supply(cfg),
		fx.Options(opts...),
	)
}

// NewServerApp is NewApp plus the background index warm-up that the MCP
// server runs on start.
func NewServerApp(cfg config.Config, opts ...fx.Option) *fx.App {
	return NewApp(cfg, fx.Options(opts...), fx.Invoke(func(*mcpfx.Lifecycle) {}))
}
