package document

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/db"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	jsonGetFn     func(ctx context.Context, key string) ([]byte, error)
	bulkCreateFn  func(ctx context.Context, items []db.CreateItem) ([]error, error)
	searchScanFn  func(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error)
	searchIDsFn   func(ctx context.Context, index string, filters map[string][]string, limit int) ([]string, error)
	searchCountFn func(ctx context.Context, index string) (int, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
}

func (m *mockStore) JSONGet(ctx context.Context, key string) ([]byte, error) {
	if m.jsonGetFn != nil {
		return m.jsonGetFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) BulkCreate(ctx context.Context, items []db.CreateItem) ([]error, error) {
	if m.bulkCreateFn != nil {
		return m.bulkCreateFn(ctx, items)
	}
	return make([]error, len(items)), nil
}

func (m *mockStore) SearchScan(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error) {
	if m.searchScanFn != nil {
		return m.searchScanFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchIDs(
	ctx context.Context, index string, filters map[string][]string, limit int,
) ([]string, error) {
	if m.searchIDsFn != nil {
		return m.searchIDsFn(ctx, index, filters, limit)
	}
	return nil, nil
}

func (m *mockStore) SearchCount(ctx context.Context, index string) (int, error) {
	if m.searchCountFn != nil {
		return m.searchCountFn(ctx, index)
	}
	return 0, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func testSchema(t *testing.T) schema.IndexSchema {
	t.Helper()
	return schema.MustNew(
		schema.WithTagFields("year", "origin"),
		schema.WithEmbedding("embedding", 4),
	)
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	repo := New(ms, testSchema(t), zap.NewNop())
	return repo, ms
}

func testDocument(t *testing.T, id string) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "hello world", map[string]any{"year": "2020"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}
