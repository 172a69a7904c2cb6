package store

import (
	"context"
	"errors"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
)

// DefaultTopK bounds query results when the caller does not say otherwise.
const DefaultTopK = 10

// scanPageSize is the backend page size of the lazy full-index iterators.
const scanPageSize = 1000

// The backend reports vector scores as cosine similarity + 1.0; queries by
// embedding shift them back so callers see plain similarity.
const embeddingScoreAdjustment = -1.0

// QueryOptions tune a text query.
type QueryOptions struct {
	// Filters restrict candidates without affecting ranking.
	Filters filter.Filters
	// TopK bounds the result size; zero means DefaultTopK.
	TopK int
	// CustomTemplate, when set, replaces the default query construction.
	// ${question} binds to the query text, other placeholders to filter
	// value lists.
	CustomTemplate string
	// Index overrides the store's default index.
	Index string
}

// EmbeddingQueryOptions tune a query by embedding.
type EmbeddingQueryOptions struct {
	// TopK bounds the result size; zero means DefaultTopK.
	TopK int
	// CandidateIDs restricts scoring to the given document IDs.
	CandidateIDs []string
	// Index overrides the store's default index.
	Index string
}

// Service is the document store facade over one default index.
type Service struct {
	docs   DocumentRepository
	search SearchRepository
	index  string
	log    *zap.Logger
}

// New creates a document store service.
func New(docs DocumentRepository, search SearchRepository, index string, log *zap.Logger) *Service {
	return &Service{docs: docs, search: search, index: index, log: log}
}

// Index returns the store's default index name.
func (s *Service) Index() string { return s.index }

// GetByID returns a document by ID, or nil when it does not exist.
func (s *Service) GetByID(ctx context.Context, id string) (*domdoc.Document, error) {
	doc, err := s.docs.Get(ctx, s.index, id)
	if err != nil {
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document %s: %w", id, err)
	}
	return &doc, nil
}

// GetIDsByTags returns the IDs of documents matching the tag filters. The
// result is capped at the candidate-set limit; truncation is silent here
// and logged at debug by the repository.
func (s *Service) GetIDsByTags(ctx context.Context, filters filter.Filters) ([]string, error) {
	s.log.Debug("resolving document IDs by tags",
		zap.String("index", s.index),
		zap.Any("filters", filters.Map()))

	ids, err := s.docs.IDsByTags(ctx, s.index, filters)
	if err != nil {
		return nil, fmt.Errorf("ids by tags: %w", err)
	}
	return ids, nil
}

// WriteDocuments writes documents with per-document create semantics. A
// duplicate ID fails only that document; the returned batch.WriteError
// lists every outcome and already-written documents are not rolled back.
func (s *Service) WriteDocuments(ctx context.Context, docs []domdoc.Document) error {
	return s.docs.BulkCreate(ctx, s.index, docs)
}

// DocumentCount returns the number of documents in the default index.
func (s *Service) DocumentCount(ctx context.Context) (int, error) {
	return s.docs.Count(ctx, s.index)
}

// AllDocuments lazily iterates every document in the default index in
// backend page order. Each range restarts the scan from the beginning.
func (s *Service) AllDocuments(ctx context.Context) iter.Seq2[domdoc.Document, error] {
	return func(yield func(domdoc.Document, error) bool) {
		offset := 0
		for {
			docs, total, err := s.docs.Scan(ctx, s.index, filter.Filters{}, offset, scanPageSize)
			if err != nil {
				yield(domdoc.Document{}, fmt.Errorf("scan documents: %w", err))
				return
			}
			for i := range docs {
				if !yield(docs[i], nil) {
					return
				}
			}
			offset += scanPageSize
			if offset >= total {
				return
			}
		}
	}
}

// Query runs a ranked text query and returns documents in backend order.
// With a custom template the query body is built by substitution instead of
// the default free-text construction.
func (s *Service) Query(ctx context.Context, queryText string, opts QueryOptions) ([]domdoc.Document, error) {
	index := s.index
	if opts.Index != "" {
		index = opts.Index
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	if opts.CustomTemplate != "" {
		docs, err := s.search.Template(ctx, index, opts.CustomTemplate, queryText, opts.Filters, topK, 0)
		if err != nil {
			return nil, fmt.Errorf("query with template: %w", err)
		}
		return docs, nil
	}

	docs, err := s.search.Text(ctx, index, queryText, opts.Filters, topK, 0)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	return docs, nil
}

// QueryByEmbedding runs a similarity query against the embedding field and
// returns documents in descending similarity order with plain cosine
// similarity scores.
func (s *Service) QueryByEmbedding(
	ctx context.Context, vec []float32, opts EmbeddingQueryOptions,
) ([]domdoc.Document, error) {
	index := s.index
	if opts.Index != "" {
		index = opts.Index
	}
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	docs, err := s.search.Vector(ctx, index, vec, opts.CandidateIDs, topK, embeddingScoreAdjustment)
	if err != nil {
		return nil, fmt.Errorf("query by embedding: %w", err)
	}
	return docs, nil
}

// QueryHybrid runs the text and embedding queries side by side and merges
// the two rankings with Reciprocal Rank Fusion. Returned query scores are
// the fused RRF scores, not backend relevance.
func (s *Service) QueryHybrid(
	ctx context.Context, queryText string, vec []float32, opts QueryOptions,
) ([]domdoc.Document, error) {
	topK := opts.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	textDocs, err := s.Query(ctx, queryText, opts)
	if err != nil {
		return nil, fmt.Errorf("hybrid text leg: %w", err)
	}

	vecDocs, err := s.QueryByEmbedding(ctx, vec, EmbeddingQueryOptions{
		TopK:  topK,
		Index: opts.Index,
	})
	if err != nil {
		return nil, fmt.Errorf("hybrid vector leg: %w", err)
	}

	return fuseRRF(vecDocs, textDocs, topK), nil
}

// AllHitsInIndex lazily iterates raw backend hits of an arbitrary index
// without document decoding, for consumers that read non-document records.
func (s *Service) AllHitsInIndex(ctx context.Context, index string, filters filter.Filters) iter.Seq2[db.Hit, error] {
	return func(yield func(db.Hit, error) bool) {
		offset := 0
		for {
			hits, total, err := s.search.Hits(ctx, index, filters, offset, scanPageSize)
			if err != nil {
				yield(db.Hit{}, fmt.Errorf("scan hits %s: %w", index, err))
				return
			}
			for _, h := range hits {
				if !yield(h, nil) {
					return
				}
			}
			offset += scanPageSize
			if offset >= total {
				return
			}
		}
	}
}

// EnsureIndex idempotently creates an index with the store's schema
// mapping. An empty name means the default index.
func (s *Service) EnsureIndex(ctx context.Context, index string) error {
	if index == "" {
		index = s.index
	}
	return s.docs.EnsureIndex(ctx, index)
}
