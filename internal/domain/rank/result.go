package rank

import domdoc "github.com/kailas-cloud/docstore/internal/domain/document"

// Ranked is a single reranked document with its injected similarity score.
// The score is cosine similarity to the query (1 - distance), distinct from
// the document's backend QueryScore.
type Ranked struct {
	doc   domdoc.Document
	score float64
}

// NewRanked creates a ranked document entry.
func NewRanked(doc domdoc.Document, score float64) Ranked {
	return Ranked{doc: doc, score: score}
}

// Document returns the source document.
func (r Ranked) Document() domdoc.Document { return r.doc }

// Score returns the cosine similarity to the query.
func (r Ranked) Score() float64 { return r.score }

// Result is the outcome of a rerank operation.
type Result struct {
	query  string
	topK   int
	ranked []Ranked
}

// NewResult creates a rerank result.
func NewResult(query string, topK int, ranked []Ranked) Result {
	return Result{query: query, topK: topK, ranked: ranked}
}

// Query returns the original query string.
func (r Result) Query() string { return r.query }

// TopK returns the requested result count.
func (r Result) TopK() int { return r.topK }

// Ranked returns documents ordered by descending similarity.
func (r Result) Ranked() []Ranked { return r.ranked }
