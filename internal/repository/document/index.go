package document

import (
	"fmt"

	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
)

// BuildIndexDefinition maps an index schema onto a backend FT index over
// JSON documents. Search fields index as TEXT, tag fields and the internal
// ID as TAG, the embedding field as a cosine FLAT vector.
func BuildIndexDefinition(index string, s schema.IndexSchema) *db.IndexDefinition {
	def := &db.IndexDefinition{
		Name:     IndexName(index),
		Prefixes: []string{fmt.Sprintf("%s%s:", domain.KeyPrefix, index)},
	}

	seen := make(map[string]bool)
	add := func(f db.IndexField) {
		if seen[f.Alias] {
			return
		}
		seen[f.Alias] = true
		def.Fields = append(def.Fields, f)
	}

	for _, name := range s.SearchFields() {
		add(db.IndexField{Name: "$." + name, Alias: name, Type: db.IndexFieldText})
	}
	for _, name := range s.TagFields() {
		add(db.IndexField{Name: "$." + name, Alias: name, Type: db.IndexFieldTag})
	}

	add(db.IndexField{
		Name:  "$." + s.ExternalSourceIDField(),
		Alias: s.ExternalSourceIDField(),
		Type:  db.IndexFieldTag,
	})
	add(db.IndexField{
		Name:  fmt.Sprintf("$.%s", db.IDField),
		Alias: db.IDField,
		Type:  db.IndexFieldTag,
	})

	if s.HasEmbedding() {
		add(db.IndexField{
			Name:           "$." + s.EmbeddingField(),
			Alias:          s.EmbeddingField(),
			Type:           db.IndexFieldVector,
			VectorDim:      s.EmbeddingDim(),
			VectorDistance: db.DistanceCosine,
		})
	}

	return def
}
