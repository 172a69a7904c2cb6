package store

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/db"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
)

// mockDocs implements DocumentRepository for tests.
type mockDocs struct {
	getFn         func(ctx context.Context, index, id string) (domdoc.Document, error)
	bulkCreateFn  func(ctx context.Context, index string, docs []domdoc.Document) error
	countFn       func(ctx context.Context, index string) (int, error)
	idsByTagsFn   func(ctx context.Context, index string, filters filter.Filters) ([]string, error)
	scanFn        func(ctx context.Context, index string, filters filter.Filters, offset, limit int) ([]domdoc.Document, int, error)
	ensureIndexFn func(ctx context.Context, index string) error
}

func (m *mockDocs) Get(ctx context.Context, index, id string) (domdoc.Document, error) {
	if m.getFn != nil {
		return m.getFn(ctx, index, id)
	}
	return domdoc.Document{}, nil
}

func (m *mockDocs) BulkCreate(ctx context.Context, index string, docs []domdoc.Document) error {
	if m.bulkCreateFn != nil {
		return m.bulkCreateFn(ctx, index, docs)
	}
	return nil
}

func (m *mockDocs) Count(ctx context.Context, index string) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, index)
	}
	return 0, nil
}

func (m *mockDocs) IDsByTags(ctx context.Context, index string, filters filter.Filters) ([]string, error) {
	if m.idsByTagsFn != nil {
		return m.idsByTagsFn(ctx, index, filters)
	}
	return nil, nil
}

func (m *mockDocs) Scan(
	ctx context.Context, index string, filters filter.Filters, offset, limit int,
) ([]domdoc.Document, int, error) {
	if m.scanFn != nil {
		return m.scanFn(ctx, index, filters, offset, limit)
	}
	return nil, 0, nil
}

func (m *mockDocs) EnsureIndex(ctx context.Context, index string) error {
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, index)
	}
	return nil
}

// mockSearch implements SearchRepository for tests.
type mockSearch struct {
	textFn func(
		ctx context.Context, index, queryText string,
		filters filter.Filters, topK int, scoreAdjustment float64,
	) ([]domdoc.Document, error)
	templateFn func(
		ctx context.Context, index, tmpl, queryText string,
		filters filter.Filters, topK int, scoreAdjustment float64,
	) ([]domdoc.Document, error)
	vectorFn func(
		ctx context.Context, index string, vec []float32,
		candidateIDs []string, topK int, scoreAdjustment float64,
	) ([]domdoc.Document, error)
	hitsFn func(
		ctx context.Context, index string, filters filter.Filters, offset, limit int,
	) ([]db.Hit, int, error)
}

func (m *mockSearch) Text(
	ctx context.Context, index, queryText string,
	filters filter.Filters, topK int, scoreAdjustment float64,
) ([]domdoc.Document, error) {
	if m.textFn != nil {
		return m.textFn(ctx, index, queryText, filters, topK, scoreAdjustment)
	}
	return nil, nil
}

func (m *mockSearch) Template(
	ctx context.Context, index, tmpl, queryText string,
	filters filter.Filters, topK int, scoreAdjustment float64,
) ([]domdoc.Document, error) {
	if m.templateFn != nil {
		return m.templateFn(ctx, index, tmpl, queryText, filters, topK, scoreAdjustment)
	}
	return nil, nil
}

func (m *mockSearch) Vector(
	ctx context.Context, index string, vec []float32,
	candidateIDs []string, topK int, scoreAdjustment float64,
) ([]domdoc.Document, error) {
	if m.vectorFn != nil {
		return m.vectorFn(ctx, index, vec, candidateIDs, topK, scoreAdjustment)
	}
	return nil, nil
}

func (m *mockSearch) Hits(
	ctx context.Context, index string, filters filter.Filters, offset, limit int,
) ([]db.Hit, int, error) {
	if m.hitsFn != nil {
		return m.hitsFn(ctx, index, filters, offset, limit)
	}
	return nil, 0, nil
}

func newTestService(t *testing.T) (*Service, *mockDocs, *mockSearch) {
	t.Helper()
	md := &mockDocs{}
	ms := &mockSearch{}
	svc := New(md, ms, "main", zap.NewNop())
	return svc, md, ms
}

func testDoc(t *testing.T, id string) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "text of "+id, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}
