package embeddingsfx

import (
	"fmt"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/constants"
	"github.com/0x5457/gql-index/internal/embeddings"
	"go.uber.org/fx"
)

// Params represents dependencies for embeddings components
type Params struct {
	fx.In

	Config *config.Config
}

// NewEmbedder creates the embedder selected by the configured provider
func NewEmbedder(params Params) (embeddings.Embedder, error) {
	cfg := params.Config
	switch cfg.EmbedProvider {
	case config.ProviderOpenAI:
		return embeddings.NewOpenAI(embeddings.OpenAIConfig{
			BaseURL: cfg.EmbedURL,
			Model:   cfg.EmbedModel,
			APIKey:  cfg.EmbedAPIKey,
			Timeout: cfg.Timeout,
		})
	case config.ProviderAPI:
		url := cfg.EmbedURL
		if url == "" {
			url = constants.DefaultEmbedURL
		}
		return embeddings.NewApi(url, cfg.EmbedModel, cfg.Timeout), nil
	case config.ProviderLocal:
		return NewLocalEmbedder(cfg.EmbedDim), nil
	default:
		return nil, fmt.Errorf("unsupported embed provider: %s", cfg.EmbedProvider)
	}
}

// NewLocalEmbedder creates a local embedder for testing
func NewLocalEmbedder(dimension int) embeddings.Embedder {
	return embeddings.NewLocal(dimension)
}

// Module provides embeddings components
var Module = fx.Module("embeddings",
	fx.Provide(NewEmbedder),
)
