package store

import (
	"context"

	"github.com/kailas-cloud/docstore/internal/db"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
)

// DocumentRepository defines the storage contract for single documents and
// index lifecycle.
type DocumentRepository interface {
	Get(ctx context.Context, index, id string) (domdoc.Document, error)
	BulkCreate(ctx context.Context, index string, docs []domdoc.Document) error
	Count(ctx context.Context, index string) (int, error)
	IDsByTags(ctx context.Context, index string, filters filter.Filters) ([]string, error)
	Scan(ctx context.Context, index string, filters filter.Filters, offset, limit int) ([]domdoc.Document, int, error)
	EnsureIndex(ctx context.Context, index string) error
}

// SearchRepository executes ranked queries and raw index scans.
type SearchRepository interface {
	Text(
		ctx context.Context, index, queryText string,
		filters filter.Filters, topK int, scoreAdjustment float64,
	) ([]domdoc.Document, error)

	Template(
		ctx context.Context, index, tmpl, queryText string,
		filters filter.Filters, topK int, scoreAdjustment float64,
	) ([]domdoc.Document, error)

	Vector(
		ctx context.Context, index string, vec []float32,
		candidateIDs []string, topK int, scoreAdjustment float64,
	) ([]domdoc.Document, error)

	Hits(ctx context.Context, index string, filters filter.Filters, offset, limit int) ([]db.Hit, int, error)
}
