package evaldata

import (
	"context"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

// Store defines the write contract for evaluation documents and labels.
type Store interface {
	EnsureIndex(ctx context.Context, index string) error
	BulkCreate(ctx context.Context, index string, docs []domdoc.Document) error
	BulkCreateRaw(ctx context.Context, index string, records []document.RawRecord) error
}
