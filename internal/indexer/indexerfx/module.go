package indexerfx

import (
	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/indexer/pipeline"
	"github.com/0x5457/gql-index/internal/parser"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/0x5457/gql-index/internal/vecindex"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// StoreParams represents dependencies for the vector index store
type StoreParams struct {
	fx.In

	Backend  storage.Backend
	Embedder embeddings.Embedder
	Logger   *zap.Logger `optional:"true"`
}

// NewStore creates the index store bound to the embedder's model
func NewStore(params StoreParams) *vecindex.Store {
	return vecindex.New(params.Backend, params.Embedder.ModelName(), params.Logger)
}

// Params represents dependencies for indexer components
type Params struct {
	fx.In

	Config    *config.Config
	Provider  schema.Provider
	Flattener parser.Flattener
	Embedder  embeddings.Embedder
	Store     *vecindex.Store
	Logger    *zap.Logger `optional:"true"`
}

// NewIndexer creates a new indexer instance
func NewIndexer(params Params) indexer.Indexer {
	return pipeline.New(
		params.Provider,
		params.Flattener,
		params.Embedder,
		params.Store,
		params.Logger,
		pipeline.Options{DataDir: params.Config.LockDir()},
	)
}

// Module provides indexer components
var Module = fx.Module("indexer",
	fx.Provide(NewStore, NewIndexer),
)
