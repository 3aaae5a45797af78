package searchfx

import (
	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/search"
	"github.com/0x5457/gql-index/internal/vecindex"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params represents dependencies for search service
type Params struct {
	fx.In

	Embedder embeddings.Embedder
	Store    *vecindex.Store
	Indexer  indexer.Indexer
	Logger   *zap.Logger `optional:"true"`
}

// NewSearchService creates a new search service instance
func NewSearchService(params Params) *search.Service {
	return &search.Service{
		Embedder: params.Embedder,
		Store:    params.Store,
		Indexer:  params.Indexer,
		Logger:   params.Logger,
	}
}

// Module provides search components
var Module = fx.Module("search",
	fx.Provide(NewSearchService),
)
