package search

import (
	"context"
	"testing"

	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	searchTextFn   func(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
	searchVectorFn func(ctx context.Context, q *db.VectorQuery) (*db.SearchResult, error)
	searchScanFn   func(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error)
}

func (m *mockStore) SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error) {
	if m.searchTextFn != nil {
		return m.searchTextFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchVector(ctx context.Context, q *db.VectorQuery) (*db.SearchResult, error) {
	if m.searchVectorFn != nil {
		return m.searchVectorFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) SearchScan(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error) {
	if m.searchScanFn != nil {
		return m.searchScanFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func testSchema(t *testing.T) schema.IndexSchema {
	t.Helper()
	return schema.MustNew(
		schema.WithSearchFields("text", "name"),
		schema.WithTagFields("year", "origin"),
		schema.WithEmbedding("embedding", 4),
	)
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, testSchema(t)), ms
}

func mustFilters(t *testing.T, fields map[string][]string) filter.Filters {
	t.Helper()
	f, err := filter.New(fields)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return f
}
