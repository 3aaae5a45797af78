package mcpfx

import (
	"context"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/logging"
	appmcp "github.com/0x5457/gql-index/internal/mcp"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/0x5457/gql-index/internal/search"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for MCP server
type Params struct {
	fx.In

	SearchService *search.Service
	Indexer       indexer.Indexer
	Executor      schema.Executor
	Config        *config.Config
	Logger        *zap.Logger `optional:"true"`
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(params Params) *server.MCPServer {
	return appmcp.New(params.SearchService, params.Indexer, params.Executor, appmcp.ServerOptions{
		Instructions: params.Config.Instructions,
		Logger:       params.Logger,
	})
}

// Lifecycle warms the index in the background once the app starts, so the
// first search does not pay for the initial build. A failed warm-up is
// logged and the next search retries.
type Lifecycle struct {
	indexer indexer.Indexer
	logger  *zap.Logger
	done    chan struct{}
}

// LifecycleParams represents dependencies for the MCP lifecycle
type LifecycleParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Indexer   indexer.Indexer
	Logger    *zap.Logger `optional:"true"`
}

// NewLifecycle creates the lifecycle manager and registers its hooks
func NewLifecycle(params LifecycleParams) *Lifecycle {
	m := &Lifecycle{
		indexer: params.Indexer,
		logger:  logging.OrNop(params.Logger),
		done:    make(chan struct{}),
	}
	params.Lifecycle.Append(fx.Hook{OnStart: m.Start, OnStop: m.Stop})
	return m
}

// Start launches the warm-up and returns immediately
func (m *Lifecycle) Start(context.Context) error {
	// The start context expires with the start timeout; the build must not.
	go m.warm(context.Background())
	return nil
}

func (m *Lifecycle) warm(ctx context.Context) {
	defer close(m.done)
	meta, err := m.indexer.EnsureIndex(ctx, false)
	if err != nil {
		m.logger.Warn("index warm-up failed", zap.Error(err))
		return
	}
	m.logger.Info("index ready",
		zap.Int("fields", meta.Count),
		zap.String("model", meta.EmbeddingModel),
		zap.String("schema_sha", meta.SchemaSHA))
}

// Done is closed when the warm-up finished, successfully or not
func (m *Lifecycle) Done() <-chan struct{} { return m.done }

// Stop waits for a running warm-up until ctx expires
func (m *Lifecycle) Stop(ctx context.Context) error {
	select {
	case <-m.done:
	case <-ctx.Done():
		m.logger.Warn("index warm-up still running at shutdown")
	}
	return nil
}

// Module provides MCP server components
var Module = fx.Module("mcp",
	fx.Provide(
		NewMCPServer,
		NewLifecycle,
	),
)
