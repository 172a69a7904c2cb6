package docstore

import (
	"fmt"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
)

// Document is the public document representation.
type Document struct {
	// ID is the unique document identifier. Required.
	ID string
	// Text is the document body. Required.
	Text string
	// Name is an optional human-readable title, stored under the "name"
	// meta key.
	Name string
	// Meta carries arbitrary metadata fields.
	Meta map[string]any
	// ExternalSourceID links the document to an upstream system.
	ExternalSourceID string
	// QueryScore is the retrieval relevance of the document. Populated on
	// query results, ignored on writes.
	QueryScore *float64
	// Embedding is the optional precomputed vector for the document body.
	Embedding []float32
}

func (d Document) toDomain() (domdoc.Document, error) {
	meta := make(map[string]any, len(d.Meta)+1)
	for k, v := range d.Meta {
		meta[k] = v
	}
	if d.Name != "" {
		meta[domdoc.NameKey] = d.Name
	}

	doc, err := domdoc.New(d.ID, d.Text, meta)
	if err != nil {
		return domdoc.Document{}, fmt.Errorf("document %q: %w", d.ID, err)
	}
	if d.ExternalSourceID != "" {
		doc = doc.WithExternalSourceID(d.ExternalSourceID)
	}
	if len(d.Embedding) > 0 {
		doc = doc.WithEmbedding(d.Embedding)
	}
	return doc, nil
}

func fromDomain(doc domdoc.Document) Document {
	var name string
	meta := doc.Meta()
	if v, ok := meta[domdoc.NameKey]; ok {
		if s, ok := v.(string); ok {
			name = s
			trimmed := make(map[string]any, len(meta))
			for k, val := range meta {
				if k != domdoc.NameKey {
					trimmed[k] = val
				}
			}
			meta = trimmed
		}
	}

	out := Document{
		ID:         doc.ID(),
		Text:       doc.Text(),
		Name:       name,
		Meta:       meta,
		QueryScore: doc.QueryScore(),
		Embedding:  doc.Embedding(),
	}
	if esID, ok := doc.ExternalSourceID(); ok {
		out.ExternalSourceID = esID
	}
	return out
}

func toDomainBatch(docs []Document) ([]domdoc.Document, error) {
	out := make([]domdoc.Document, len(docs))
	for i, d := range docs {
		doc, err := d.toDomain()
		if err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
		out[i] = doc
	}
	return out, nil
}

func fromDomainBatch(docs []domdoc.Document) []Document {
	out := make([]Document, len(docs))
	for i, d := range docs {
		out[i] = fromDomain(d)
	}
	return out
}
