package embedding

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/metrics"
)

// maxAPIBatchSize bounds the number of texts sent in one provider request.
const maxAPIBatchSize = 256

// BudgetChecker is the consumer interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// GuardedEmbedder wraps a BatchEmbedder with token budget enforcement and
// provider batch-size chunking. Request metrics live in the transport layer;
// this layer owns budget tracking and its gauge only.
type GuardedEmbedder struct {
	inner    domain.BatchEmbedder
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewGuardedEmbedder wraps an embedder. budget may be nil, disabling
// enforcement while keeping chunking.
func NewGuardedEmbedder(
	inner domain.BatchEmbedder, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *GuardedEmbedder {
	return &GuardedEmbedder{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// BatchEmbed checks the budget, splits texts into provider-sized chunks,
// delegates, and records token usage.
func (g *GuardedEmbedder) BatchEmbed(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if g.budget != nil {
		if err := g.budget.Check(ctx); err != nil {
			g.logger.Error("embedding budget exceeded",
				zap.String("provider", g.provider),
				zap.String("model", g.model),
				zap.Int("batch_size", len(texts)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("budget check: %w", err)
		}
	}

	start := time.Now()

	result, err := g.embedChunked(ctx, texts)
	if err != nil {
		return domain.BatchEmbeddingResult{}, err
	}

	g.recordUsage(result.TotalTokens)

	g.logger.Debug("batch embedding completed",
		zap.String("provider", g.provider),
		zap.String("model", g.model),
		zap.Duration("duration", time.Since(start)),
		zap.Int("batch_size", len(texts)),
		zap.Int("prompt_tokens", result.PromptTokens),
		zap.Int("total_tokens", result.TotalTokens),
	)

	return result, nil
}

// embedChunked splits texts into chunks of maxAPIBatchSize, re-checking the
// budget between chunks.
func (g *GuardedEmbedder) embedChunked(
	ctx context.Context, texts []string,
) (domain.BatchEmbeddingResult, error) {
	var all [][]float32
	var promptTokens, totalTokens int

	for offset := 0; offset < len(texts); offset += maxAPIBatchSize {
		if g.budget != nil && offset > 0 {
			if err := g.budget.Check(ctx); err != nil {
				return domain.BatchEmbeddingResult{}, fmt.Errorf("budget check (chunk %d): %w", offset, err)
			}
		}

		end := min(offset+maxAPIBatchSize, len(texts))
		chunk := texts[offset:end]

		res, err := g.inner.BatchEmbed(ctx, chunk)
		if err != nil {
			g.logger.Error("batch embedding request failed",
				zap.String("provider", g.provider),
				zap.String("model", g.model),
				zap.Int("chunk_offset", offset),
				zap.Int("chunk_size", len(chunk)),
				zap.Error(err),
			)
			return domain.BatchEmbeddingResult{}, fmt.Errorf("batch embed: %w", err)
		}

		all = append(all, res.Embeddings...)
		promptTokens += res.PromptTokens
		totalTokens += res.TotalTokens
	}

	return domain.BatchEmbeddingResult{
		Embeddings:   all,
		PromptTokens: promptTokens,
		TotalTokens:  totalTokens,
	}, nil
}

func (g *GuardedEmbedder) recordUsage(totalTokens int) {
	if g.budget == nil || totalTokens <= 0 {
		return
	}
	g.budget.Record(int64(totalTokens))
	gauge := metrics.EmbeddingBudgetTokensRemaining
	gauge.WithLabelValues(g.provider, "daily").Set(float64(g.budget.RemainingDaily()))
	gauge.WithLabelValues(g.provider, "monthly").Set(float64(g.budget.RemainingMonthly()))
}
