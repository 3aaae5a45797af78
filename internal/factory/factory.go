package factory

import (
	"fmt"

	"github.com/0x5457/gql-index/internal/config"
	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/embeddings/embeddingsfx"
	"github.com/0x5457/gql-index/internal/indexer/pipeline"
	"github.com/0x5457/gql-index/internal/parser"
	"github.com/0x5457/gql-index/internal/parser/sdlparser"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/0x5457/gql-index/internal/schema/schemafx"
	"github.com/0x5457/gql-index/internal/search"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/0x5457/gql-index/internal/storage/storagefx"
	"github.com/0x5457/gql-index/internal/vecindex"
	"go.uber.org/zap"
)

// Components holds all the main components
type Components struct {
	Config    *config.Config
	Provider  schema.Provider
	Executor  schema.Executor
	Flattener parser.Flattener
	Embedder  embeddings.Embedder
	Backend   storage.Backend
	Store     *vecindex.Store
	Indexer   *pipeline.Indexer
	Searcher  *search.Service
}

// ComponentFactory creates and manages component instances without fx
type ComponentFactory struct {
	config   *config.Config
	logger   *zap.Logger
	embedder embeddings.Embedder
}

// NewComponentFactory creates a new component factory
func NewComponentFactory(cfg *config.Config, logger *zap.Logger) *ComponentFactory {
	return &ComponentFactory{config: cfg, logger: logger}
}

// WithEmbedder replaces the configured embedder, e.g. with a test double
func (f *ComponentFactory) WithEmbedder(e embeddings.Embedder) *ComponentFactory {
	f.embedder = e
	return f
}

// CreateComponents creates all components with the given configuration
func (f *ComponentFactory) CreateComponents() (*Components, error) {
	if err := f.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	embedder, err := f.CreateEmbedder()
	if err != nil {
		return nil, fmt.Errorf("create embedder failed: %w", err)
	}

	backend, err := f.CreateBackend()
	if err != nil {
		return nil, fmt.Errorf("create index store failed: %w", err)
	}

	src := schemafx.New(schemafx.Params{Config: f.config, Logger: f.logger})
	flattener := f.CreateFlattener()
	store := vecindex.New(backend, embedder.ModelName(), f.logger)
	idx := f.CreateIndexer(src.Provider, flattener, embedder, store)

	return &Components{
		Config:    f.config,
		Provider:  src.Provider,
		Executor:  src.Executor,
		Flattener: flattener,
		Embedder:  embedder,
		Backend:   backend,
		Store:     store,
		Indexer:   idx,
		Searcher: &search.Service{
			Embedder: embedder,
			Store:    store,
			Indexer:  idx,
			Logger:   f.logger,
		},
	}, nil
}

// CreateFlattener creates a schema flattener instance
func (f *ComponentFactory) CreateFlattener() parser.Flattener {
	return sdlparser.New()
}

// CreateEmbedder creates the configured embedder instance
func (f *ComponentFactory) CreateEmbedder() (embeddings.Embedder, error) {
	if f.embedder != nil {
		return f.embedder, nil
	}
	return embeddingsfx.NewEmbedder(embeddingsfx.Params{Config: f.config})
}

// CreateBackend opens the configured persistence backend
func (f *ComponentFactory) CreateBackend() (storage.Backend, error) {
	return storagefx.Open(f.config.StoreBackend, f.config.DataDir)
}

// CreateIndexer creates an indexer over the given components
func (f *ComponentFactory) CreateIndexer(
	provider schema.Provider,
	flattener parser.Flattener,
	embedder embeddings.Embedder,
	store *vecindex.Store,
) *pipeline.Indexer {
	return pipeline.New(provider, flattener, embedder, store, f.logger,
		pipeline.Options{DataDir: f.config.LockDir()})
}

// Cleanup releases resources held by components
func (c *Components) Cleanup() error {
	if c.Backend == nil {
		return nil
	}
	if err := c.Backend.Close(); err != nil {
		return fmt.Errorf("close index store failed: %w", err)
	}
	return nil
}
