package store

import (
	"sort"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack
// et al. 2009).
const rrfK = 60

// fuseRRF merges vector and text result lists via Reciprocal Rank Fusion:
// score(d) = sum of 1/(k + rank_i(d)) over the rankings d appears in. When
// a document appears in both lists the vector result is kept, it may carry
// the embedding. Each returned document has its query score replaced by the
// fused score.
func fuseRRF(vector, text []domdoc.Document, topK int) []domdoc.Document {
	type scored struct {
		doc   domdoc.Document
		score float64
		order int
	}

	merged := make(map[string]*scored, len(vector)+len(text))
	order := 0

	for rank := range vector {
		doc := vector[rank]
		merged[doc.ID()] = &scored{
			doc:   doc,
			score: 1.0 / float64(rrfK+rank+1),
			order: order,
		}
		order++
	}

	for rank := range text {
		doc := text[rank]
		s := 1.0 / float64(rrfK+rank+1)
		if existing, ok := merged[doc.ID()]; ok {
			existing.score += s
			continue
		}
		merged[doc.ID()] = &scored{doc: doc, score: s, order: order}
		order++
	}

	fused := make([]*scored, 0, len(merged))
	for _, s := range merged {
		fused = append(fused, s)
	}
	// Ties resolve by first appearance, vector list first.
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].score != fused[j].score {
			return fused[i].score > fused[j].score
		}
		return fused[i].order < fused[j].order
	})

	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}

	out := make([]domdoc.Document, len(fused))
	for i, s := range fused {
		out[i] = withQueryScore(s.doc, s.score)
	}
	return out
}

func withQueryScore(d domdoc.Document, score float64) domdoc.Document {
	var ext *string
	if v, ok := d.ExternalSourceID(); ok {
		ext = &v
	}
	return domdoc.Reconstruct(d.ID(), d.Text(), ext, d.Meta(), &score, d.Embedding())
}
