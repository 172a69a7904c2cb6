package docstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"

	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/domain/batch"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
	storeuc "github.com/kailas-cloud/docstore/internal/usecase/store"
)

// QueryOptions tune a text query.
type QueryOptions struct {
	// Filters restrict candidates by exact tag match, field name to
	// accepted values. Values within a field are OR-ed, fields are AND-ed.
	Filters map[string][]string
	// TopK bounds the result size; zero applies the default of 10.
	TopK int
	// CustomTemplate replaces the default query construction. ${question}
	// binds to the query text, other placeholders to filter value lists.
	CustomTemplate string
	// Index overrides the client's default index.
	Index string
}

// EmbeddingQueryOptions tune a query by embedding vector.
type EmbeddingQueryOptions struct {
	// TopK bounds the result size; zero applies the default of 10.
	TopK int
	// CandidateIDs restricts scoring to the given document IDs.
	CandidateIDs []string
	// Index overrides the client's default index.
	Index string
}

// WriteResult is the per-document outcome of a bulk write.
type WriteResult struct {
	ID  string
	Err error
}

// RankedDocument is a document with its similarity score to a rerank query.
type RankedDocument struct {
	Document Document
	// Score is cosine similarity to the query, higher is better.
	Score float64
}

// Write stores documents in bulk. Each document is created atomically; a
// duplicate ID fails that item without touching the others. The returned
// slice has one entry per input document in input order. A non-nil error
// means the write could not be attempted at all.
func (c *Client) Write(ctx context.Context, docs []Document) ([]WriteResult, error) {
	domainDocs, err := toDomainBatch(docs)
	if err != nil {
		return nil, err
	}

	err = c.storeSvc.WriteDocuments(ctx, domainDocs)
	if err == nil {
		results := make([]WriteResult, len(docs))
		for i, d := range docs {
			results[i] = WriteResult{ID: d.ID}
		}
		return results, nil
	}

	var writeErr *batch.WriteError
	if errors.As(err, &writeErr) {
		items := writeErr.Results()
		results := make([]WriteResult, len(items))
		for i, r := range items {
			results[i] = WriteResult{ID: r.ID(), Err: r.Err()}
		}
		return results, nil
	}
	return nil, err
}

// Get retrieves a document by ID. Returns ErrNotFound if absent.
func (c *Client) Get(ctx context.Context, id string) (Document, error) {
	doc, err := c.storeSvc.GetByID(ctx, id)
	if err != nil {
		return Document{}, err
	}
	if doc == nil {
		return Document{}, fmt.Errorf("document %q: %w", id, domain.ErrDocumentNotFound)
	}
	return fromDomain(*doc), nil
}

// Count returns the number of documents in the default index.
func (c *Client) Count(ctx context.Context) (int, error) {
	return c.storeSvc.DocumentCount(ctx)
}

// IDsByTags returns the IDs of documents matching the given tag filters.
// The result is capped at 10000 IDs.
func (c *Client) IDsByTags(ctx context.Context, filters map[string][]string) ([]string, error) {
	f, err := filter.New(filters)
	if err != nil {
		return nil, err
	}
	return c.storeSvc.GetIDsByTags(ctx, f)
}

// All lazily iterates over every document in the default index. The
// sequence is restartable and pages through the backend on demand.
func (c *Client) All(ctx context.Context) iter.Seq2[Document, error] {
	return func(yield func(Document, error) bool) {
		for doc, err := range c.storeSvc.AllDocuments(ctx) {
			if err != nil {
				yield(Document{}, err)
				return
			}
			if !yield(fromDomain(doc), nil) {
				return
			}
		}
	}
}

// Query retrieves documents by full-text relevance.
func (c *Client) Query(ctx context.Context, queryText string, opts QueryOptions) ([]Document, error) {
	f, err := filter.New(opts.Filters)
	if err != nil {
		return nil, err
	}
	docs, err := c.storeSvc.Query(ctx, queryText, storeuc.QueryOptions{
		Filters:        f,
		TopK:           opts.TopK,
		CustomTemplate: opts.CustomTemplate,
		Index:          opts.Index,
	})
	if err != nil {
		return nil, err
	}
	return fromDomainBatch(docs), nil
}

// QueryByEmbedding retrieves documents by vector similarity to the given
// embedding. Requires the client to be configured with an embedding field.
func (c *Client) QueryByEmbedding(
	ctx context.Context, vec []float32, opts EmbeddingQueryOptions,
) ([]Document, error) {
	docs, err := c.storeSvc.QueryByEmbedding(ctx, vec, storeuc.EmbeddingQueryOptions{
		TopK:         opts.TopK,
		CandidateIDs: opts.CandidateIDs,
		Index:        opts.Index,
	})
	if err != nil {
		return nil, err
	}
	return fromDomainBatch(docs), nil
}

// QueryHybrid runs the text and embedding queries side by side and merges
// the rankings with Reciprocal Rank Fusion. Query scores on the results are
// the fused scores.
func (c *Client) QueryHybrid(
	ctx context.Context, queryText string, vec []float32, opts QueryOptions,
) ([]Document, error) {
	f, err := filter.New(opts.Filters)
	if err != nil {
		return nil, err
	}
	docs, err := c.storeSvc.QueryHybrid(ctx, queryText, vec, storeuc.QueryOptions{
		Filters:        f,
		TopK:           opts.TopK,
		CustomTemplate: opts.CustomTemplate,
		Index:          opts.Index,
	})
	if err != nil {
		return nil, err
	}
	return fromDomainBatch(docs), nil
}

// Rerank reorders candidate documents by embedding similarity to the query.
// Requires an embedder (use WithEmbedder). topK of zero keeps the top 5.
func (c *Client) Rerank(
	ctx context.Context, query string, docs []Document, topK int,
) ([]RankedDocument, error) {
	if c.rerank == nil {
		return nil, fmt.Errorf("rerank: embedder not configured: %w", domain.ErrMissingConfiguration)
	}

	domainDocs, err := toDomainBatch(docs)
	if err != nil {
		return nil, err
	}

	result, err := c.rerank.Rerank(ctx, query, domainDocs, topK)
	if err != nil {
		return nil, err
	}

	ranked := make([]RankedDocument, 0, len(result.Ranked()))
	for _, r := range result.Ranked() {
		ranked = append(ranked, RankedDocument{
			Document: fromDomain(r.Document()),
			Score:    r.Score(),
		})
	}
	return ranked, nil
}

// AddEvalData ingests a SQuAD-format JSON dataset from r, writing paragraph
// documents to docIndex and question labels to labelIndex.
func (c *Client) AddEvalData(ctx context.Context, r io.Reader, docIndex, labelIndex string) error {
	return c.evaldata.Add(ctx, r, docIndex, labelIndex)
}
