package rerank

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/domain"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
)

// mockEmbedder implements Embedder for tests.
type mockEmbedder struct {
	embedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
	calls   int
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	if m.embedFn != nil {
		return m.embedFn(ctx, texts)
	}
	return domain.BatchEmbeddingResult{}, nil
}

// vectorsByText builds an embed function that maps each input text to a
// fixed vector.
func vectorsByText(t *testing.T, byText map[string][]float32) func(context.Context, []string) (domain.BatchEmbeddingResult, error) {
	t.Helper()
	return func(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
		out := make([][]float32, len(texts))
		for i, text := range texts {
			vec, ok := byText[text]
			if !ok {
				t.Fatalf("no vector configured for %q", text)
			}
			out[i] = vec
		}
		return domain.BatchEmbeddingResult{Embeddings: out}, nil
	}
}

func newTestService(t *testing.T) (*Service, *mockEmbedder) {
	t.Helper()
	me := &mockEmbedder{}
	return New(me, zap.NewNop()), me
}

func testDoc(t *testing.T, id, text string) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, text, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}
