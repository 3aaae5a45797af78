// Package schema supplies schema text to the indexer and runs queries for
// the run_query tool, either against a local SDL file or a live endpoint.
package schema

import (
	"context"
	"fmt"
	"os"

	"github.com/0x5457/gql-index/internal/models"
)

// Provider returns the current schema text and a descriptor of where it
// came from.
type Provider interface {
	Fetch(ctx context.Context) (string, models.SchemaSource, error)
	Source() models.SchemaSource
}

// Refresher is implemented by providers that cache fetched text. Refresh
// drops the cache so the next Fetch goes back to the origin.
type Refresher interface {
	Refresh()
}

// FileProvider reads SDL from disk on every Fetch, so edits are picked up
// by the next index check.
type FileProvider struct {
	path string
}

func NewFileProvider(path string) *FileProvider {
	return &FileProvider{path: path}
}

func (p *FileProvider) Source() models.SchemaSource { return models.FileSource(p.path) }

func (p *FileProvider) Fetch(_ context.Context) (string, models.SchemaSource, error) {
	b, err := os.ReadFile(p.path)
	if err != nil {
		return "", models.SchemaSource{}, fmt.Errorf("cannot read schema file %s: %w", p.path, err)
	}
	return string(b), p.Source(), nil
}
