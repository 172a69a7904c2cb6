package chi

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/rank"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
	healthuc "github.com/kailas-cloud/docstore/internal/usecase/health"
	storeuc "github.com/kailas-cloud/docstore/internal/usecase/store"
)

// mockStore implements DocumentStore for handler tests.
type mockStore struct {
	getByIDFn          func(ctx context.Context, id string) (*domdoc.Document, error)
	getIDsByTagsFn     func(ctx context.Context, filters filter.Filters) ([]string, error)
	writeDocumentsFn   func(ctx context.Context, docs []domdoc.Document) error
	documentCountFn    func(ctx context.Context) (int, error)
	queryFn            func(ctx context.Context, queryText string, opts storeuc.QueryOptions) ([]domdoc.Document, error)
	queryByEmbeddingFn func(ctx context.Context, vec []float32, opts storeuc.EmbeddingQueryOptions) ([]domdoc.Document, error)
}

func (m *mockStore) GetByID(ctx context.Context, id string) (*domdoc.Document, error) {
	if m.getByIDFn != nil {
		return m.getByIDFn(ctx, id)
	}
	return nil, nil
}

func (m *mockStore) GetIDsByTags(ctx context.Context, filters filter.Filters) ([]string, error) {
	if m.getIDsByTagsFn != nil {
		return m.getIDsByTagsFn(ctx, filters)
	}
	return nil, nil
}

func (m *mockStore) WriteDocuments(ctx context.Context, docs []domdoc.Document) error {
	if m.writeDocumentsFn != nil {
		return m.writeDocumentsFn(ctx, docs)
	}
	return nil
}

func (m *mockStore) DocumentCount(ctx context.Context) (int, error) {
	if m.documentCountFn != nil {
		return m.documentCountFn(ctx)
	}
	return 0, nil
}

func (m *mockStore) Query(
	ctx context.Context, queryText string, opts storeuc.QueryOptions,
) ([]domdoc.Document, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, queryText, opts)
	}
	return nil, nil
}

func (m *mockStore) QueryByEmbedding(
	ctx context.Context, vec []float32, opts storeuc.EmbeddingQueryOptions,
) ([]domdoc.Document, error) {
	if m.queryByEmbeddingFn != nil {
		return m.queryByEmbeddingFn(ctx, vec, opts)
	}
	return nil, nil
}

// mockReranker implements Reranker for handler tests.
type mockReranker struct {
	rerankFn func(ctx context.Context, query string, docs []domdoc.Document, topK int) (rank.Result, error)
}

func (m *mockReranker) Rerank(
	ctx context.Context, query string, docs []domdoc.Document, topK int,
) (rank.Result, error) {
	if m.rerankFn != nil {
		return m.rerankFn(ctx, query, docs, topK)
	}
	return rank.Result{}, nil
}

// mockEvalData implements EvalDataLoader for handler tests.
type mockEvalData struct {
	addFn func(ctx context.Context, r io.Reader, docIndex, labelIndex string) error
}

func (m *mockEvalData) Add(ctx context.Context, r io.Reader, docIndex, labelIndex string) error {
	if m.addFn != nil {
		return m.addFn(ctx, r, docIndex, labelIndex)
	}
	return nil
}

// mockHealth implements HealthChecker for handler tests.
type mockHealth struct {
	report healthuc.Report
}

func (m *mockHealth) Check(_ context.Context) healthuc.Report { return m.report }

type testMocks struct {
	store    *mockStore
	reranker *mockReranker
	evaldata *mockEvalData
	health   *mockHealth
}

func newTestServer(t *testing.T) (*Server, *testMocks) {
	t.Helper()
	m := &testMocks{
		store:    &mockStore{},
		reranker: &mockReranker{},
		evaldata: &mockEvalData{},
		health:   &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
	}
	srv := NewServer(m.store, m.reranker, m.evaldata, m.health, zap.NewNop())
	return srv, m
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader = http.NoBody
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	rr := httptest.NewRecorder()
	srv.Routes(nil).ServeHTTP(rr, req)
	return rr
}

func testDoc(t *testing.T, id string) domdoc.Document {
	t.Helper()
	doc, err := domdoc.New(id, "text of "+id, map[string]any{"year": "2020"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return doc
}
