package db

import (
	"context"
	"time"
)

// Store is the main backend facade combining all sub-interfaces.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	IndexManager
	Searcher
	BulkCreator
	DocReader
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks backend connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	// CreateIndex creates an FT index. Returns ErrIndexExists when an index
	// with the same name already exists.
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides ranked and unranked search over FT indexes.
type Searcher interface {
	// SearchText runs a scored full-text search.
	SearchText(ctx context.Context, q *TextQuery) (*SearchResult, error)
	// SearchVector runs a KNN similarity search. Hit scores are exposed as
	// cosine_similarity + 1.0 so they are never negative.
	SearchVector(ctx context.Context, q *VectorQuery) (*SearchResult, error)
	// SearchScan returns an unscored page of an index.
	SearchScan(ctx context.Context, q *ScanQuery) (*SearchResult, error)
	// SearchIDs returns up to limit matching document keys, content omitted.
	SearchIDs(ctx context.Context, index string, filters map[string][]string, limit int) ([]string, error)
	// SearchCount returns the number of documents in an index.
	SearchCount(ctx context.Context, index string) (int, error)
}

// CreateItem holds one key+document pair for a bulk create.
type CreateItem struct {
	Key  string
	Data []byte
}

// BulkCreator writes documents with per-item create semantics.
type BulkCreator interface {
	// BulkCreate pipelines atomic creates. The returned slice is parallel to
	// items; a nil entry means the item was written, ErrKeyExists means the
	// key was already present. Written items stay written on partial failure.
	BulkCreate(ctx context.Context, items []CreateItem) ([]error, error)
}

// DocReader reads single stored documents.
type DocReader interface {
	// JSONGet returns the raw document at key, or ErrKeyNotFound.
	JSONGet(ctx context.Context, key string) ([]byte, error)
}

// KVStore provides plain key-value operations (embedding cache, budget
// counters).
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	IncrBy(ctx context.Context, key string, val int64) error
	// Expire sets a TTL on a key. With nx, only keys without an expiry are
	// touched.
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
