package document

import "fmt"

// NameKey is the canonical meta key the configured name field is renamed to.
const NameKey = "name"

// Document is the canonical normalized unit of retrievable content
// (immutable value object).
type Document struct {
	id               string
	text             string
	externalSourceID string
	hasExternalID    bool
	meta             map[string]any
	queryScore       *float64
	embedding        []float32
}

// New validates and creates a Document for writing.
// ID and text are required; meta must not shadow the text content.
func New(id, text string, meta map[string]any) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if text == "" {
		return Document{}, fmt.Errorf("document text is required")
	}
	return Document{id: id, text: text, meta: cloneMeta(meta)}, nil
}

// Reconstruct creates a Document without validation (codec hydration).
func Reconstruct(
	id, text string, externalSourceID *string,
	meta map[string]any, queryScore *float64, embedding []float32,
) Document {
	d := Document{
		id:         id,
		text:       text,
		meta:       meta,
		queryScore: queryScore,
		embedding:  embedding,
	}
	if externalSourceID != nil {
		d.externalSourceID = *externalSourceID
		d.hasExternalID = true
	}
	return d
}

// ID returns the document identifier, unique within an index.
func (d *Document) ID() string { return d.id }

// Text returns the primary indexed content.
func (d *Document) Text() string { return d.text }

// ExternalSourceID returns the cross-reference to an external origin
// document, and whether one is set.
func (d *Document) ExternalSourceID() (string, bool) {
	return d.externalSourceID, d.hasExternalID
}

// Meta returns the metadata fields. Never contains the text field; always
// carries the canonical NameKey after decoding.
func (d *Document) Meta() map[string]any { return d.meta }

// QueryScore returns the backend relevance score with any caller adjustment
// applied, or nil when the backend produced no score.
func (d *Document) QueryScore() *float64 { return d.queryScore }

// Embedding returns the stored embedding vector, if the store is
// embedding-enabled and the hit carried one.
func (d *Document) Embedding() []float32 { return d.embedding }

// WithExternalSourceID returns a copy with the external source ID set.
func (d *Document) WithExternalSourceID(id string) Document {
	c := *d
	c.externalSourceID = id
	c.hasExternalID = true
	return c
}

// WithEmbedding returns a copy with the given embedding set.
func (d *Document) WithEmbedding(v []float32) Document {
	c := *d
	c.embedding = v
	return c
}

func cloneMeta(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
