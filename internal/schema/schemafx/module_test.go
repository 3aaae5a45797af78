package schemafx

import (
	"context"
	"testing"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/config/configfx"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestSchemaModule(t *testing.T) {
	cases := []struct {
		name     string
		endpoint string
		kind     models.SourceKind
	}{
		{"file", "", models.SourceFile},
		{"endpoint", "https://api.example.com/graphql", models.SourceEndpoint},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.EmbedProvider = config.ProviderLocal
			cfg.EndpointURL = tc.endpoint
			cfg.Headers = map[string]string{"X-Api-Key": "k"}

			var provider schema.Provider
			var executor schema.Executor
			app := fx.New(
				configfx.Module,
				Module,
				fx.Supply(cfg),
				fx.Populate(&provider, &executor),
			)

			ctx := context.Background()
			require.NoError(t, app.Start(ctx))
			defer func() {
				require.NoError(t, app.Stop(ctx))
			}()

			assert.Equal(t, tc.kind, provider.Source().Kind)
			assert.NotNil(t, executor)
			_, refreshes := provider.(schema.Refresher)
			assert.Equal(t, tc.endpoint != "", refreshes)
		})
	}
}
