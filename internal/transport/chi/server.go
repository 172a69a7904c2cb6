package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/rank"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
	"github.com/kailas-cloud/docstore/internal/metrics"
	healthuc "github.com/kailas-cloud/docstore/internal/usecase/health"
	storeuc "github.com/kailas-cloud/docstore/internal/usecase/store"
)

const maxWriteBatchSize = 1000

// errorCode is the machine-readable error identifier in error responses.
type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeDocumentNotFound       errorCode = "document_not_found"
	codeDuplicateDocumentID    errorCode = "duplicate_document_id"
	codeInvalidQueryTemplate   errorCode = "invalid_query_template"
	codeEmbeddingNotConfigured errorCode = "embedding_not_configured"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeEmbeddingQuotaExceeded errorCode = "embedding_quota_exceeded"
	codeInternalError          errorCode = "internal_error"
)

// DocumentStore is the retrieval and write surface consumed by the API.
type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domdoc.Document, error)
	GetIDsByTags(ctx context.Context, filters filter.Filters) ([]string, error)
	WriteDocuments(ctx context.Context, docs []domdoc.Document) error
	DocumentCount(ctx context.Context) (int, error)
	Query(ctx context.Context, queryText string, opts storeuc.QueryOptions) ([]domdoc.Document, error)
	QueryByEmbedding(ctx context.Context, vec []float32, opts storeuc.EmbeddingQueryOptions) ([]domdoc.Document, error)
}

// Reranker reorders retrieved documents by similarity to a query.
type Reranker interface {
	Rerank(ctx context.Context, query string, docs []domdoc.Document, topK int) (rank.Result, error)
}

// EvalDataLoader ingests evaluation datasets.
type EvalDataLoader interface {
	Add(ctx context.Context, r io.Reader, docIndex, labelIndex string) error
}

// HealthChecker reports component availability.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// Server is the HTTP API server.
type Server struct {
	store    DocumentStore
	reranker Reranker
	evaldata EvalDataLoader
	health   HealthChecker
	logger   *zap.Logger
}

// NewServer creates an HTTP API server. reranker and evaldata may be nil
// when the embedding provider is not configured.
func NewServer(
	store DocumentStore,
	reranker Reranker,
	evaldata EvalDataLoader,
	health HealthChecker,
	logger *zap.Logger,
) *Server {
	return &Server{
		store:    store,
		reranker: reranker,
		evaldata: evaldata,
		health:   health,
		logger:   logger,
	}
}

// Routes builds the router with the standard middleware chain.
func (s *Server) Routes(apiKeys []string) chi.Router {
	r := chi.NewRouter()
	r.Use(jsonRecoverer(s.logger))
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(metrics.Middleware())
	r.Use(BearerAuthMiddleware(apiKeys))

	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/query", s.Query)
		r.Post("/query_by_embedding", s.QueryByEmbedding)
		r.Post("/rerank", s.Rerank)
		r.Post("/eval_data", s.AddEvalData)
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.WriteDocuments)
			r.Get("/count", s.DocumentCount)
			r.Post("/ids_by_tags", s.IDsByTags)
			r.Get("/{id}", s.GetDocument)
		})
	})

	return r
}

type queryRequest struct {
	Query       string              `json:"query"`
	Filters     map[string][]string `json:"filters,omitempty"`
	TopK        int                 `json:"top_k,omitempty"`
	CustomQuery string              `json:"custom_query,omitempty"`
	Index       string              `json:"index,omitempty"`
}

type documentListResponse struct {
	Items []documentDTO `json:"items"`
	Total int           `json:"total"`
}

// Query handles POST /api/v1/query.
func (s *Server) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := filter.New(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	kind := "text"
	if req.CustomQuery != "" {
		kind = "template"
	}

	start := time.Now()
	docs, err := s.store.Query(r.Context(), req.Query, storeuc.QueryOptions{
		Filters:        f,
		TopK:           req.TopK,
		CustomTemplate: req.CustomQuery,
		Index:          req.Index,
	})
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues(kind, "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues(kind, "success").Inc()
	metrics.SearchRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, documentListResponse{Items: docsToDTO(docs), Total: len(docs)})
}

type embeddingQueryRequest struct {
	Embedding    []float32 `json:"embedding"`
	TopK         int       `json:"top_k,omitempty"`
	CandidateIDs []string  `json:"candidate_ids,omitempty"`
	Index        string    `json:"index,omitempty"`
}

// QueryByEmbedding handles POST /api/v1/query_by_embedding.
func (s *Server) QueryByEmbedding(w http.ResponseWriter, r *http.Request) {
	var req embeddingQueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Embedding) == 0 {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "embedding is required")
		return
	}

	start := time.Now()
	docs, err := s.store.QueryByEmbedding(r.Context(), req.Embedding, storeuc.EmbeddingQueryOptions{
		TopK:         req.TopK,
		CandidateIDs: req.CandidateIDs,
		Index:        req.Index,
	})
	if err != nil {
		metrics.SearchRequestsTotal.WithLabelValues("embedding", "error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.SearchRequestsTotal.WithLabelValues("embedding", "success").Inc()
	metrics.SearchRequestDuration.WithLabelValues("embedding").Observe(time.Since(start).Seconds())

	writeJSON(w, http.StatusOK, documentListResponse{Items: docsToDTO(docs), Total: len(docs)})
}

// GetDocument handles GET /api/v1/documents/{id}.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	doc, err := s.store.GetByID(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	if doc == nil {
		writeError(w, http.StatusNotFound, codeDocumentNotFound, "document not found")
		return
	}

	writeJSON(w, http.StatusOK, docToDTO(doc))
}

type writeDocumentsRequest struct {
	Documents []documentDTO `json:"documents"`
}

type writeResultItem struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

type writeDocumentsResponse struct {
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Items     []writeResultItem `json:"items"`
}

// WriteDocuments handles POST /api/v1/documents.
func (s *Server) WriteDocuments(w http.ResponseWriter, r *http.Request) {
	var req writeDocumentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if len(req.Documents) == 0 || len(req.Documents) > maxWriteBatchSize {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"documents count must be between 1 and 1000")
		return
	}

	docs := make([]domdoc.Document, 0, len(req.Documents))
	for _, dto := range req.Documents {
		doc, err := dtoToDoc(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		docs = append(docs, doc)
	}

	metrics.DocumentsWrittenTotal.Add(float64(len(docs)))

	err := s.store.WriteDocuments(r.Context(), docs)
	if err == nil {
		metrics.DocumentWritesTotal.WithLabelValues("success").Inc()
		items := make([]writeResultItem, len(docs))
		for i := range docs {
			items[i] = writeResultItem{ID: docs[i].ID(), Status: string(batch.StatusOK)}
		}
		writeJSON(w, http.StatusOK, writeDocumentsResponse{Succeeded: len(docs), Items: items})
		return
	}

	var werr *batch.WriteError
	if errors.As(err, &werr) {
		metrics.DocumentWritesTotal.WithLabelValues("partial").Inc()
		results := werr.Results()
		succeeded, failed := 0, 0
		items := make([]writeResultItem, len(results))
		for i, res := range results {
			items[i] = writeResultItem{ID: res.ID(), Status: string(res.Status())}
			if res.Status() == batch.StatusOK {
				succeeded++
			} else {
				failed++
				items[i].Error = safeDomainMessage(res.Err())
			}
		}
		writeJSON(w, http.StatusMultiStatus, writeDocumentsResponse{
			Succeeded: succeeded,
			Failed:    failed,
			Items:     items,
		})
		return
	}

	metrics.DocumentWritesTotal.WithLabelValues("error").Inc()
	s.handleDomainError(w, err)
}

// DocumentCount handles GET /api/v1/documents/count.
func (s *Server) DocumentCount(w http.ResponseWriter, r *http.Request) {
	n, err := s.store.DocumentCount(r.Context())
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": n})
}

type idsByTagsRequest struct {
	Filters map[string][]string `json:"filters"`
}

type idsByTagsResponse struct {
	IDs   []string `json:"ids"`
	Total int      `json:"total"`
}

// IDsByTags handles POST /api/v1/documents/ids_by_tags.
func (s *Server) IDsByTags(w http.ResponseWriter, r *http.Request) {
	var req idsByTagsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	f, err := filter.New(req.Filters)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ids, err := s.store.GetIDsByTags(r.Context(), f)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, idsByTagsResponse{IDs: ids, Total: len(ids)})
}

type rerankRequest struct {
	Query     string        `json:"query"`
	TopK      int           `json:"top_k,omitempty"`
	Documents []documentDTO `json:"documents"`
}

type rankedItem struct {
	Document documentDTO `json:"document"`
	Score    float64     `json:"score"`
}

type rerankResponse struct {
	Query string       `json:"query"`
	Items []rankedItem `json:"items"`
}

// Rerank handles POST /api/v1/rerank.
func (s *Server) Rerank(w http.ResponseWriter, r *http.Request) {
	if s.reranker == nil {
		writeError(w, http.StatusBadRequest, codeEmbeddingNotConfigured,
			"reranking requires an embedding provider")
		return
	}

	var req rerankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Query == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed, "query is required")
		return
	}

	docs := make([]domdoc.Document, 0, len(req.Documents))
	for _, dto := range req.Documents {
		doc, err := dtoToDoc(dto)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		docs = append(docs, doc)
	}

	metrics.RerankCandidates.Observe(float64(len(docs)))

	res, err := s.reranker.Rerank(r.Context(), req.Query, docs, req.TopK)
	if err != nil {
		metrics.RerankRequestsTotal.WithLabelValues("error").Inc()
		s.handleDomainError(w, err)
		return
	}
	metrics.RerankRequestsTotal.WithLabelValues("success").Inc()

	items := make([]rankedItem, 0, len(res.Ranked()))
	for _, ranked := range res.Ranked() {
		doc := ranked.Document()
		items = append(items, rankedItem{Document: docToDTO(&doc), Score: ranked.Score()})
	}
	writeJSON(w, http.StatusOK, rerankResponse{Query: res.Query(), Items: items})
}

// AddEvalData handles POST /api/v1/eval_data. The request body is the
// SQuAD-style dataset; target indexes come from query parameters.
func (s *Server) AddEvalData(w http.ResponseWriter, r *http.Request) {
	if s.evaldata == nil {
		writeError(w, http.StatusBadRequest, codeEmbeddingNotConfigured,
			"evaluation data loading is not configured")
		return
	}

	docIndex := r.URL.Query().Get("doc_index")
	labelIndex := r.URL.Query().Get("label_index")
	if docIndex == "" || labelIndex == "" {
		writeError(w, http.StatusBadRequest, codeValidationFailed,
			"doc_index and label_index query parameters are required")
		return
	}

	if err := s.evaldata.Add(r.Context(), r.Body, docIndex, labelIndex); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// documentDTO is the wire representation of a document.
type documentDTO struct {
	ID               string         `json:"id"`
	Text             string         `json:"text"`
	Name             *string        `json:"name,omitempty"`
	Meta             map[string]any `json:"meta,omitempty"`
	ExternalSourceID *string        `json:"external_source_id,omitempty"`
	QueryScore       *float64       `json:"query_score,omitempty"`
	Embedding        []float32      `json:"embedding,omitempty"`
}

func docToDTO(doc *domdoc.Document) documentDTO {
	dto := documentDTO{
		ID:         doc.ID(),
		Text:       doc.Text(),
		QueryScore: doc.QueryScore(),
		Embedding:  doc.Embedding(),
	}

	meta := make(map[string]any)
	for k, v := range doc.Meta() {
		if k == domdoc.NameKey {
			if name, ok := v.(string); ok {
				dto.Name = &name
			}
			continue
		}
		meta[k] = v
	}
	if len(meta) > 0 {
		dto.Meta = meta
	}

	if extID, ok := doc.ExternalSourceID(); ok {
		dto.ExternalSourceID = &extID
	}
	return dto
}

func docsToDTO(docs []domdoc.Document) []documentDTO {
	items := make([]documentDTO, len(docs))
	for i := range docs {
		items[i] = docToDTO(&docs[i])
	}
	return items
}

func dtoToDoc(dto documentDTO) (domdoc.Document, error) {
	meta := make(map[string]any, len(dto.Meta)+1)
	for k, v := range dto.Meta {
		meta[k] = v
	}
	if dto.Name != nil {
		meta[domdoc.NameKey] = *dto.Name
	}

	doc, err := domdoc.New(dto.ID, dto.Text, meta)
	if err != nil {
		return domdoc.Document{}, err
	}
	if dto.ExternalSourceID != nil {
		doc = doc.WithExternalSourceID(*dto.ExternalSourceID)
	}
	if len(dto.Embedding) > 0 {
		doc = doc.WithEmbedding(dto.Embedding)
	}
	return doc, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrDocumentNotFound,
		domain.ErrDuplicateID,
		domain.ErrMissingField,
		domain.ErrMissingConfiguration,
		domain.ErrTemplateSubstitution,
		domain.ErrEmbeddingProviderError,
		domain.ErrEmbeddingQuotaExceeded,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)

	var terr *domain.TemplateError
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		writeError(w, http.StatusNotFound, codeDocumentNotFound, msg)
	case errors.Is(err, domain.ErrDuplicateID):
		writeError(w, http.StatusConflict, codeDuplicateDocumentID, msg)
	case errors.As(err, &terr):
		writeError(w, http.StatusBadRequest, codeInvalidQueryTemplate, terr.Error())
	case errors.Is(err, domain.ErrTemplateSubstitution):
		writeError(w, http.StatusBadRequest, codeInvalidQueryTemplate, msg)
	case errors.Is(err, domain.ErrMissingConfiguration):
		writeError(w, http.StatusBadRequest, codeEmbeddingNotConfigured, msg)
	case errors.Is(err, domain.ErrEmbeddingQuotaExceeded):
		writeError(w, http.StatusTooManyRequests, codeEmbeddingQuotaExceeded, msg)
	case errors.Is(err, domain.ErrEmbeddingProviderError):
		writeError(w, http.StatusBadGateway, codeEmbeddingProviderError, msg)
	default:
		s.logger.Error("internal error", zap.Error(err))
		writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
	}
}
