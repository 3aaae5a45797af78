package parserfx

import (
	"context"
	"testing"

	"github.com/0x5457/gql-index/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/fx"
)

func TestParserModule(t *testing.T) {
	var flattener parser.Flattener
	app := fx.New(
		Module,
		fx.Populate(&flattener),
	)

	ctx := context.Background()
	require.NoError(t, app.Start(ctx))
	defer func() {
		require.NoError(t, app.Stop(ctx))
	}()

	assert.NotNil(t, flattener)
	flat, err := flattener.Flatten(`type Query { ping: String }`)
	require.NoError(t, err)
	assert.Len(t, flat.Fields, 1)
}
