package rerank

import (
	"context"

	"github.com/kailas-cloud/docstore/internal/domain"
)

// Embedder vectorizes texts for similarity ranking.
type Embedder interface {
	BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}
