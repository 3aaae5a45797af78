package parser

import "github.com/0x5457/gql-index/internal/models"

// Flattener turns schema text into an ordered list of field descriptors.
type Flattener interface {
	Flatten(schemaText string) (*models.FlatSchema, error)
}
