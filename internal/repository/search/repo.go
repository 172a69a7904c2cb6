package search

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/docstore/internal/db"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	SearchVector(ctx context.Context, q *db.VectorQuery) (*db.SearchResult, error)
	SearchScan(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error)
}

// Repo implements usecase/store.SearchRepository.
type Repo struct {
	store   store
	builder *Builder
	codec   *document.Codec
}

// New creates a search repository bound to one index schema.
func New(s store, indexSchema schema.IndexSchema) *Repo {
	return &Repo{
		store:   s,
		builder: NewBuilder(indexSchema),
		codec:   document.NewCodec(indexSchema),
	}
}

// Text runs a scored free-text search and decodes hits in backend order.
func (r *Repo) Text(
	ctx context.Context, index, queryText string, f filter.Filters, topK int, scoreAdjustment float64,
) ([]domdoc.Document, error) {
	q := r.builder.Text(index, queryText, f, topK)

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search text %s: %w", index, err)
	}
	return r.decodeHits(index, sr, scoreAdjustment)
}

// Template substitutes and runs a caller-supplied query template.
func (r *Repo) Template(
	ctx context.Context, index, tmpl, queryText string, f filter.Filters, topK int, scoreAdjustment float64,
) ([]domdoc.Document, error) {
	q, err := r.builder.Template(index, tmpl, queryText, f, topK)
	if err != nil {
		return nil, err
	}

	sr, err := r.store.SearchText(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search template %s: %w", index, err)
	}
	return r.decodeHits(index, sr, scoreAdjustment)
}

// Vector runs a KNN similarity search and decodes hits in backend order.
func (r *Repo) Vector(
	ctx context.Context, index string, vec []float32, candidateIDs []string, topK int, scoreAdjustment float64,
) ([]domdoc.Document, error) {
	q, err := r.builder.Vector(index, vec, candidateIDs, topK)
	if err != nil {
		return nil, err
	}

	sr, err := r.store.SearchVector(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search vector %s: %w", index, err)
	}
	return r.decodeHits(index, sr, scoreAdjustment)
}

// Hits returns one raw page of an index without document decoding.
func (r *Repo) Hits(
	ctx context.Context, index string, f filter.Filters, offset, limit int,
) ([]db.Hit, int, error) {
	q := &db.ScanQuery{
		Index:   document.IndexName(index),
		Filters: f.Map(),
		Offset:  offset,
		Limit:   limit,
	}

	sr, err := r.store.SearchScan(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("search scan %s: %w", index, err)
	}
	if sr == nil {
		return nil, 0, nil
	}
	return sr.Hits, sr.Total, nil
}

func (r *Repo) decodeHits(index string, sr *db.SearchResult, scoreAdjustment float64) ([]domdoc.Document, error) {
	if sr == nil || len(sr.Hits) == 0 {
		return nil, nil
	}

	docs := make([]domdoc.Document, 0, len(sr.Hits))
	for _, hit := range sr.Hits {
		id := document.ExtractID(hit.Key, index)
		doc, err := r.codec.Decode(id, hit, scoreAdjustment)
		if err != nil {
			return nil, fmt.Errorf("decode hit %s: %w", hit.Key, err)
		}
		docs = append(docs, doc)
	}
	return docs, nil
}
