package schemafx

import (
	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/schema"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for schema components
type Params struct {
	fx.In

	Config *config.Config
	Logger *zap.Logger `optional:"true"`
}

// Result exposes the schema source and the query executor that matches it
type Result struct {
	fx.Out

	Provider schema.Provider
	Executor schema.Executor
}

// New builds the provider and executor for the configured schema source.
// An endpoint takes precedence over a schema file.
func New(params Params) Result {
	cfg := params.Config
	if cfg.UsesEndpoint() {
		endpoint := schema.NewEndpoint(cfg.EndpointURL, cfg.Headers, cfg.Timeout)
		return Result{
			Provider: schema.NewIntrospectionProvider(endpoint, params.Logger),
			Executor: schema.NewProxyExecutor(endpoint),
		}
	}
	provider := schema.NewFileProvider(cfg.SchemaPath)
	return Result{
		Provider: provider,
		Executor: schema.NewValidatingExecutor(provider),
	}
}

// Module provides schema components
var Module = fx.Module("schema",
	fx.Provide(New),
)
