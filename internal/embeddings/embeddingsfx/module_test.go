package embeddingsfx

import (
	"context"
	"testing"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/config/configfx"
	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestEmbeddingsModule(t *testing.T) {
	cases := []struct {
		provider string
		model    string
		want     string
	}{
		{config.ProviderLocal, "ignored", "local-hash-64"},
		{config.ProviderAPI, "minilm", "minilm"},
		{config.ProviderOpenAI, "text-embedding-3-small", "text-embedding-3-small"},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			cfg := config.Default()
			cfg.EmbedProvider = tc.provider
			cfg.EmbedModel = tc.model
			cfg.EmbedAPIKey = "sk-test"

			var embedder embeddings.Embedder
			app := fx.New(
				configfx.Module,
				Module,
				fx.Supply(cfg),
				fx.Populate(&embedder),
			)

			ctx := context.Background()
			require.NoError(t, app.Start(ctx))
			defer func() {
				require.NoError(t, app.Stop(ctx))
			}()

			assert.NotNil(t, embedder)
			assert.Equal(t, tc.want, embedder.ModelName())
		})
	}
}
