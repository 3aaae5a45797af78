package indexer

import (
	"context"

	"github.com/0x5457/gql-index/internal/models"
)

// Indexer keeps the persisted index in step with the current schema.
type Indexer interface {
	// EnsureIndex reuses the committed index when it still matches the schema
	// and rebuilds it otherwise. force always rebuilds.
	EnsureIndex(ctx context.Context, force bool) (*models.IndexMetadata, error)
}
