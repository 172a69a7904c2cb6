package db

// IDField is the internal tag field indexing each document's identifier,
// used for candidate-ID restrictions. Stripped from hit sources before
// decoding.
const IDField = "__id"

// TextQuery is the input for a scored full-text search.
type TextQuery struct {
	Index string
	// Text is matched across Fields; a term matching in several fields
	// scores higher than the same term matching once.
	Text   string
	Fields []string
	// Filters restrict candidates (AND across fields, OR within values)
	// without affecting ranking score.
	Filters map[string][]string
	// CandidateIDs intersects the match with an ID-membership filter.
	CandidateIDs []string
	// MatchAll matches every document when Text is empty.
	MatchAll      bool
	TopK          int
	ExcludeFields []string
}

// VectorQuery is the input for a KNN similarity search.
type VectorQuery struct {
	Index string
	// Field is the dense-vector field to score against.
	Field  string
	Vector []float32
	K      int
	// CandidateIDs narrows the scan to an ID set; empty means all documents.
	CandidateIDs  []string
	ExcludeFields []string
}

// ScanQuery is the input for an unscored index page.
type ScanQuery struct {
	Index   string
	Filters map[string][]string
	Offset  int
	Limit   int
}

// Hit is a single backend result record before normalization.
type Hit struct {
	Key      string
	Score    float64
	HasScore bool
	Source   map[string]any
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total int
	Hits  []Hit
}
