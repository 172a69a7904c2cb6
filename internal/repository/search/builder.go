package search

import (
	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

// Builder compiles store-level query requests into backend query payloads.
type Builder struct {
	schema schema.IndexSchema
}

// NewBuilder creates a query builder bound to an index schema.
func NewBuilder(s schema.IndexSchema) *Builder {
	return &Builder{schema: s}
}

// Text builds a scored free-text query over the schema's search fields.
// A term matching in several search fields scores higher than the same term
// matching once. Empty query text matches every document, so filters alone
// can drive the result set.
func (b *Builder) Text(index, queryText string, f filter.Filters, topK int) *db.TextQuery {
	return &db.TextQuery{
		Index:         document.IndexName(index),
		Text:          queryText,
		Fields:        b.schema.SearchFields(),
		Filters:       f.Map(),
		MatchAll:      queryText == "",
		TopK:          topK,
		ExcludeFields: b.schema.ExcludedMetaFields(),
	}
}

// Template builds a text query from a caller-supplied query template.
func (b *Builder) Template(index, tmpl, queryText string, f filter.Filters, topK int) (*db.TextQuery, error) {
	return compileTemplate(b.schema, index, tmpl, queryText, f, topK)
}

// Vector builds a KNN similarity query against the schema's embedding field.
// A non-empty candidate ID set narrows the scan to those documents.
// Requires an embedding-enabled schema.
func (b *Builder) Vector(index string, vec []float32, candidateIDs []string, topK int) (*db.VectorQuery, error) {
	if !b.schema.HasEmbedding() {
		return nil, domain.ErrMissingConfiguration
	}
	return &db.VectorQuery{
		Index:         document.IndexName(index),
		Field:         b.schema.EmbeddingField(),
		Vector:        vec,
		K:             topK,
		CandidateIDs:  candidateIDs,
		ExcludeFields: b.schema.ExcludedMetaFields(),
	}, nil
}
