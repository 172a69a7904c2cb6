// Package docstore is an embeddable document store over Redis Stack with
// full-text retrieval, vector queries and embedding-based reranking.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbredis "github.com/kailas-cloud/docstore/internal/db/redis"
	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/metrics"
	documentrepo "github.com/kailas-cloud/docstore/internal/repository/document"
	"github.com/kailas-cloud/docstore/internal/repository/embcache"
	searchrepo "github.com/kailas-cloud/docstore/internal/repository/search"
	evaldatauc "github.com/kailas-cloud/docstore/internal/usecase/evaldata"
	rerankuc "github.com/kailas-cloud/docstore/internal/usecase/rerank"
	storeuc "github.com/kailas-cloud/docstore/internal/usecase/store"
)

// Re-exported sentinel errors for callers matching with errors.Is.
var (
	// ErrNotFound signals a missing document.
	ErrNotFound = domain.ErrDocumentNotFound
	// ErrDuplicateID signals a write colliding with an existing document ID.
	ErrDuplicateID = domain.ErrDuplicateID
	// ErrInvalidTemplate signals a custom query template that does not resolve.
	ErrInvalidTemplate = domain.ErrTemplateSubstitution
	// ErrEmbeddingNotConfigured signals an embedding operation without a
	// configured embedder.
	ErrEmbeddingNotConfigured = domain.ErrMissingConfiguration
	// ErrEmbeddingProvider signals an embedding provider failure.
	ErrEmbeddingProvider = domain.ErrEmbeddingProviderError
)

const defaultReadinessTimeout = 10 * time.Second

// Embedder turns a batch of texts into vectors, one per input, in input
// order. Plug in any provider via WithEmbedder to enable rerank and the
// embedding side of retrieval.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) ([][]float32, error)
}

// Client is the docstore SDK entry point.
type Client struct {
	store    *dbredis.Store
	storeSvc *storeuc.Service
	rerank   *rerankuc.Service
	evaldata *evaldatauc.Service
	index    string
}

// New creates a docstore Client and connects to the database.
func New(opts ...Option) (*Client, error) {
	cfg := defaultClientConfig()
	for _, o := range opts {
		o(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("docstore: database address required (use WithRedis)")
	}

	indexSchema, err := cfg.schema()
	if err != nil {
		return nil, fmt.Errorf("docstore: %w", err)
	}

	store, err := dbredis.NewStore(dbredis.Config{
		Addrs:    cfg.addrs,
		Username: cfg.username,
		Password: cfg.password,
		DB:       cfg.db,
	})
	if err != nil {
		return nil, fmt.Errorf("docstore: create store: %w", err)
	}

	if err := store.WaitForReady(context.Background(), cfg.readinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("docstore: database not ready: %w", err)
	}

	logger := cfg.logger
	docRepo := documentrepo.New(store, indexSchema, logger)
	searchRepo := searchrepo.New(store, indexSchema)
	storeSvc := storeuc.New(docRepo, searchRepo, cfg.index, logger)

	var rerankSvc *rerankuc.Service
	if cfg.embedder != nil {
		var embedder domain.BatchEmbedder = &embedderAdapter{inner: cfg.embedder}
		if cfg.instruction != "" {
			embedder = domain.NewInstructionEmbedder(embedder, cfg.instruction)
		}
		if cfg.cacheEmbeddings {
			embedder = embcache.New(embedder, store, metrics.EmbeddingCacheTotal, logger)
		}
		rerankSvc = rerankuc.New(embedder, logger)
	}

	return &Client{
		store:    store,
		storeSvc: storeSvc,
		rerank:   rerankSvc,
		evaldata: evaldatauc.New(docRepo, logger),
		index:    cfg.index,
	}, nil
}

// Close releases the database connection.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// EnsureIndex creates the default search index if it does not exist.
func (c *Client) EnsureIndex(ctx context.Context) error {
	return c.storeSvc.EnsureIndex(ctx, c.index)
}

// embedderAdapter satisfies the internal embedder contract on top of the
// public Embedder. Token usage is unknown for caller-supplied providers.
type embedderAdapter struct {
	inner Embedder
}

func (a *embedderAdapter) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	vecs, err := a.inner.BatchEmbed(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("embed: %w", err)
	}
	return domain.BatchEmbeddingResult{Embeddings: vecs}, nil
}
