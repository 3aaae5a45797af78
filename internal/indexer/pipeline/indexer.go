package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/0x5457/gql-index/internal/embeddings"
	"github.com/0x5457/gql-index/internal/errs"
	"github.com/0x5457/gql-index/internal/indexer"
	"github.com/0x5457/gql-index/internal/logging"
	"github.com/0x5457/gql-index/internal/models"
	"github.com/0x5457/gql-index/internal/parser"
	"github.com/0x5457/gql-index/internal/schema"
	"github.com/0x5457/gql-index/internal/storage"
	"github.com/0x5457/gql-index/internal/vecindex"
	"go.uber.org/zap"
)

type Options struct {
	// DataDir holds the cross-process rebuild lock. Empty disables it.
	DataDir     string
	LockTimeout time.Duration
}

type Indexer struct {
	provider schema.Provider
	f        parser.Flattener
	e        embeddings.Embedder
	store    *vecindex.Store
	logger   *zap.Logger
	opt      Options

	rebuilds atomic.Int64
}

var _ indexer.Indexer = (*Indexer)(nil)

func New(
	provider schema.Provider,
	f parser.Flattener,
	e embeddings.Embedder,
	store *vecindex.Store,
	logger *zap.Logger,
	opt Options,
) *Indexer {
	if opt.LockTimeout <= 0 {
		opt.LockTimeout = 5 * time.Minute
	}
	return &Indexer{provider: provider, f: f, e: e, store: store, logger: logging.OrNop(logger), opt: opt}
}

// ComputeSchemaSHA is the content hash recorded with an index.
func ComputeSchemaSHA(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// Rebuilds reports how many rebuilds this indexer committed.
func (i *Indexer) Rebuilds() int { return int(i.rebuilds.Load()) }

func (i *Indexer) EnsureIndex(ctx context.Context, force bool) (*models.IndexMetadata, error) {
	if force {
		if r, ok := i.provider.(schema.Refresher); ok {
			r.Refresh()
		}
	}
	text, src, err := i.provider.Fetch(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema unavailable from %s: %w", i.provider.Source(), err)
	}
	sha := ComputeSchemaSHA(text)

	var out *models.IndexMetadata
	err = i.store.Update(func(v *vecindex.View) error {
		reason, meta := i.decide(v, force, sha, src)
		if reason == models.ReasonNone {
			out = meta
			return nil
		}
		i.logger.Info("rebuilding schema index",
			zap.String("reason", string(reason)),
			zap.String("source", src.String()),
			zap.String("location", i.store.Location()))

		if i.opt.DataDir != "" {
			release, err := storage.AcquireDirLock(i.opt.DataDir, i.opt.LockTimeout)
			if err != nil {
				return fmt.Errorf("cannot lock %s for rebuild: %w", i.opt.DataDir, err)
			}
			defer release()
		}
		meta, err := i.rebuild(ctx, v, text, sha, src)
		if err != nil {
			return err
		}
		out = meta
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// decide walks the rebuild rules in order. The first rule that fires wins.
func (i *Indexer) decide(v *vecindex.View, force bool, sha string, src models.SchemaSource) (models.RebuildReason, *models.IndexMetadata) {
	if force {
		return models.ReasonForced, nil
	}
	if !v.IsReady() {
		return models.ReasonMissing, nil
	}
	meta, err := v.Load()
	if err != nil {
		i.logger.Warn("stored index unusable", zap.Error(err))
		return models.ReasonUnreadable, nil
	}
	if meta.SchemaSHA != sha {
		return models.ReasonSchemaChanged, nil
	}
	if meta.SchemaSource != nil && !meta.SchemaSource.Equal(src) {
		return models.ReasonSourceChanged, nil
	}
	return models.ReasonNone, meta
}

func (i *Indexer) rebuild(
	ctx context.Context,
	v *vecindex.View,
	text, sha string,
	src models.SchemaSource,
) (*models.IndexMetadata, error) {
	start := time.Now()
	flat, err := i.f.Flatten(text)
	if err != nil {
		return nil, errs.Wrap(errs.ErrParse, i.opt.DataDir, src.String(), err)
	}

	texts := make([]string, len(flat.Fields))
	for idx, fd := range flat.Fields {
		texts[idx] = fd.Summary
	}
	vectors := models.VectorBlock{}
	if len(texts) > 0 {
		vecs, err := i.e.EmbedTexts(ctx, texts)
		if err != nil {
			return nil, errs.Wrap(errs.ErrEmbeddingBackend, i.opt.DataDir, src.String(), err)
		}
		vectors = vecs
	}

	meta, err := v.Save(vectors, vecindex.Snapshot{
		Items:     flat.Fields,
		SchemaSHA: sha,
		Source:    &src,
		QueryType: flat.QueryType,
		LeafTypes: flat.LeafTypes,
	})
	if err != nil {
		return nil, fmt.Errorf("rebuild from %s: %w", src, err)
	}
	i.rebuilds.Add(1)
	i.logger.Info("schema index rebuilt",
		zap.Int("fields", meta.Count),
		zap.String("model", meta.EmbeddingModel),
		zap.Duration("took", time.Since(start)))
	return meta, nil
}
