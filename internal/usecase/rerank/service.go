package rerank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/rank"
)

// DefaultTopK bounds rerank results when the caller does not say otherwise.
const DefaultTopK = 5

// Service reranks candidate documents by embedding similarity to a query.
type Service struct {
	embedder Embedder
	log      *zap.Logger
}

// New creates a rerank service.
func New(embedder Embedder, log *zap.Logger) *Service {
	return &Service{embedder: embedder, log: log}
}

// Rerank embeds the query and every candidate text in one batch, orders
// candidates by ascending cosine distance to the query and returns the top
// topK of them with similarity scores. Ties keep the input order; candidates
// are tracked by position, so duplicate texts rank independently.
func (s *Service) Rerank(
	ctx context.Context, query string, docs []domdoc.Document, topK int,
) (rank.Result, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if len(docs) == 0 {
		return rank.NewResult(query, topK, nil), nil
	}

	// query first, candidates after, all in one provider round trip
	texts := make([]string, 0, len(docs)+1)
	texts = append(texts, query)
	for i := range docs {
		texts = append(texts, docs[i].Text())
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		return rank.Result{}, fmt.Errorf("embed rerank batch: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return rank.Result{}, fmt.Errorf(
			"embed rerank batch: got %d vectors for %d texts", len(res.Embeddings), len(texts))
	}

	queryVec := res.Embeddings[0]
	distances := make([]float64, len(docs))
	order := make([]int, len(docs))
	for i := range docs {
		distances[i] = cosineDistance(queryVec, res.Embeddings[i+1])
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return distances[order[a]] < distances[order[b]]
	})

	if topK < len(order) {
		order = order[:topK]
	}
	ranked := make([]rank.Ranked, 0, len(order))
	for _, idx := range order {
		ranked = append(ranked, rank.NewRanked(docs[idx], 1-distances[idx]))
	}

	s.log.Debug("reranked candidates",
		zap.Int("candidates", len(docs)),
		zap.Int("returned", len(ranked)),
		zap.Int("prompt_tokens", res.PromptTokens))

	return rank.NewResult(query, topK, ranked), nil
}

// cosineDistance is 1 - cos(a, b). A zero-norm vector is treated as
// maximally distant.
func cosineDistance(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		if i >= len(b) {
			break
		}
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
