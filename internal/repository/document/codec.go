package document

import (
	"encoding/json"
	"fmt"

	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
)

// Codec converts between domain Documents and backend JSON payloads
// according to a single index schema.
type Codec struct {
	schema schema.IndexSchema
}

// NewCodec creates a codec bound to the given schema.
func NewCodec(s schema.IndexSchema) *Codec {
	return &Codec{schema: s}
}

// Decode normalizes a backend hit into a domain Document.
//
// The configured text field is required and becomes Document.Text. The
// configured name field is renamed to the canonical meta name key (nil when
// absent). All other source fields land in meta, except the external source
// ID, the embedding field, internal bookkeeping fields and the schema's
// excluded fields. A native score is shifted by scoreAdjustment; a missing
// or zero native score yields a nil query score.
func (c *Codec) Decode(id string, hit db.Hit, scoreAdjustment float64) (domdoc.Document, error) {
	source := hit.Source

	text, ok := source[c.schema.TextField()].(string)
	if !ok {
		return domdoc.Document{}, domain.NewMissingField(c.schema.TextField())
	}

	excluded := make(map[string]bool, len(c.schema.ExcludedMetaFields()))
	for _, f := range c.schema.ExcludedMetaFields() {
		excluded[f] = true
	}

	meta := make(map[string]any)
	for k, v := range source {
		switch k {
		case c.schema.TextField(), c.schema.ExternalSourceIDField(), db.IDField:
			continue
		}
		if k == c.schema.EmbeddingField() || excluded[k] {
			continue
		}
		meta[k] = v
	}

	nameValue := meta[c.schema.NameField()]
	delete(meta, c.schema.NameField())
	meta[domdoc.NameKey] = nameValue

	var externalID *string
	if v, ok := source[c.schema.ExternalSourceIDField()].(string); ok {
		externalID = &v
	}

	var queryScore *float64
	if hit.HasScore && hit.Score != 0 {
		s := hit.Score + scoreAdjustment
		queryScore = &s
	}

	var embedding []float32
	if c.schema.HasEmbedding() {
		embedding = decodeEmbedding(source[c.schema.EmbeddingField()])
	}

	return domdoc.Reconstruct(id, text, externalID, meta, queryScore, embedding), nil
}

// Encode serializes a domain Document into the backend JSON payload.
// Meta fields are flattened alongside the schema's named fields, and the
// internal ID field is embedded so candidate-ID restrictions can match it.
func (c *Codec) Encode(doc *domdoc.Document) ([]byte, error) {
	payload := make(map[string]any, len(doc.Meta())+3)
	for k, v := range doc.Meta() {
		payload[k] = v
	}

	payload[c.schema.TextField()] = doc.Text()
	payload[db.IDField] = doc.ID()

	if extID, ok := doc.ExternalSourceID(); ok {
		payload[c.schema.ExternalSourceIDField()] = extID
	}

	if c.schema.HasEmbedding() && doc.Embedding() != nil {
		if len(doc.Embedding()) != c.schema.EmbeddingDim() {
			return nil, fmt.Errorf("document %s: embedding has %d dimensions, index expects %d",
				doc.ID(), len(doc.Embedding()), c.schema.EmbeddingDim())
		}
		payload[c.schema.EmbeddingField()] = doc.Embedding()
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal document %s: %w", doc.ID(), err)
	}
	return data, nil
}

// decodeEmbedding converts the JSON number array form back to []float32.
func decodeEmbedding(v any) []float32 {
	raw, ok := v.([]any)
	if !ok {
		return nil
	}
	emb := make([]float32, 0, len(raw))
	for _, n := range raw {
		f, ok := n.(float64)
		if !ok {
			return nil
		}
		emb = append(emb, float32(f))
	}
	return emb
}
