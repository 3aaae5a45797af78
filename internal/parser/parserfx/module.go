package parserfx

import (
	"github.com/0x5457/gql-index/internal/parser"
	"github.com/0x5457/gql-index/internal/parser/sdlparser"
	"go.uber.org/fx"
)

// NewFlattener creates a new GraphQL SDL flattener instance
func NewFlattener() parser.Flattener {
	return sdlparser.New()
}

// Module provides parser components
var Module = fx.Module("parser",
	fx.Provide(NewFlattener),
)
