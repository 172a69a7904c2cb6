package document

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/docstore/internal/db"
	"github.com/kailas-cloud/docstore/internal/domain"
	"github.com/kailas-cloud/docstore/internal/domain/batch"
	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/domain/schema"
	"github.com/kailas-cloud/docstore/internal/domain/search/filter"
)

// Key returns the backend key of a document within an index.
func Key(index, id string) string {
	return fmt.Sprintf("%s%s:%s", domain.KeyPrefix, index, id)
}

// IndexName returns the backend FT index name for an index.
func IndexName(index string) string {
	return fmt.Sprintf("%s%s:idx", domain.KeyPrefix, index)
}

// ExtractID strips the key prefix back to the document identifier.
func ExtractID(key, index string) string {
	prefix := fmt.Sprintf("%s%s:", domain.KeyPrefix, index)
	return strings.TrimPrefix(key, prefix)
}

// store is the consumer interface for documents (ISP).
type store interface {
	JSONGet(ctx context.Context, key string) ([]byte, error)
	BulkCreate(ctx context.Context, items []db.CreateItem) ([]error, error)
	SearchScan(ctx context.Context, q *db.ScanQuery) (*db.SearchResult, error)
	SearchIDs(ctx context.Context, index string, filters map[string][]string, limit int) ([]string, error)
	SearchCount(ctx context.Context, index string) (int, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
}

// Repo implements usecase/store.DocumentRepository.
type Repo struct {
	store  store
	schema schema.IndexSchema
	codec  *Codec
	log    *zap.Logger
}

// New creates a document repository bound to one index schema.
func New(s store, indexSchema schema.IndexSchema, log *zap.Logger) *Repo {
	return &Repo{store: s, schema: indexSchema, codec: NewCodec(indexSchema), log: log}
}

// EnsureIndex creates the backend index for this schema if it is absent.
func (r *Repo) EnsureIndex(ctx context.Context, index string) error {
	err := r.store.CreateIndex(ctx, BuildIndexDefinition(index, r.schema))
	if err != nil && !errors.Is(err, db.ErrIndexExists) {
		return fmt.Errorf("create index %s: %w", index, err)
	}
	return nil
}

// Codec returns the schema-bound codec shared with the search repository.
func (r *Repo) Codec() *Codec {
	return r.codec
}

// Get returns a document by ID, without a query score.
func (r *Repo) Get(ctx context.Context, index, id string) (domdoc.Document, error) {
	key := Key(index, id)
	raw, err := r.store.JSONGet(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domdoc.Document{}, domain.ErrDocumentNotFound
		}
		return domdoc.Document{}, fmt.Errorf("json.get %s: %w", key, err)
	}

	var source map[string]any
	if err := json.Unmarshal(raw, &source); err != nil {
		return domdoc.Document{}, fmt.Errorf("unmarshal %s: %w", key, err)
	}

	return r.codec.Decode(id, db.Hit{Key: key, Source: source}, 0)
}

// BulkCreate writes documents with per-document create semantics in one
// pipelined call, bounded by the bulk write timeout. A duplicate ID fails
// only that document; documents already written stay written. The returned
// error is nil when every document was created, otherwise a
// batch.WriteError carrying per-document outcomes.
func (r *Repo) BulkCreate(ctx context.Context, index string, docs []domdoc.Document) error {
	if len(docs) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, domain.BulkWriteTimeoutSec*time.Second)
	defer cancel()

	ids := make([]string, 0, len(docs))
	items := make([]db.CreateItem, 0, len(docs))
	for i := range docs {
		data, err := r.codec.Encode(&docs[i])
		if err != nil {
			return err
		}
		ids = append(ids, docs[i].ID())
		items = append(items, db.CreateItem{Key: Key(index, docs[i].ID()), Data: data})
	}

	return r.writeItems(ctx, index, ids, items)
}

// RawRecord is an arbitrary JSON record written without document encoding,
// for non-document payloads such as evaluation labels.
type RawRecord struct {
	ID     string
	Fields map[string]any
}

// BulkCreateRaw writes raw records with the same per-record create semantics
// and timeout as BulkCreate.
func (r *Repo) BulkCreateRaw(ctx context.Context, index string, records []RawRecord) error {
	if len(records) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, domain.BulkWriteTimeoutSec*time.Second)
	defer cancel()

	ids := make([]string, 0, len(records))
	items := make([]db.CreateItem, 0, len(records))
	for _, rec := range records {
		payload := make(map[string]any, len(rec.Fields)+1)
		for k, v := range rec.Fields {
			payload[k] = v
		}
		payload[db.IDField] = rec.ID

		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
		ids = append(ids, rec.ID)
		items = append(items, db.CreateItem{Key: Key(index, rec.ID), Data: data})
	}

	return r.writeItems(ctx, index, ids, items)
}

func (r *Repo) writeItems(ctx context.Context, index string, ids []string, items []db.CreateItem) error {
	itemErrs, err := r.store.BulkCreate(ctx, items)
	if err != nil {
		return fmt.Errorf("bulk create %s: %w", index, err)
	}

	results := make([]batch.Result, 0, len(ids))
	for i, id := range ids {
		switch {
		case itemErrs[i] == nil:
			results = append(results, batch.NewOK(id))
		case errors.Is(itemErrs[i], db.ErrKeyExists):
			results = append(results, batch.NewError(id, fmt.Errorf("%w: %s", domain.ErrDuplicateID, id)))
		default:
			results = append(results, batch.NewError(id, itemErrs[i]))
		}
	}

	if werr := batch.NewWriteError(results); werr != nil {
		return werr
	}
	return nil
}

// Count returns the number of documents in an index.
func (r *Repo) Count(ctx context.Context, index string) (int, error) {
	n, err := r.store.SearchCount(ctx, IndexName(index))
	if err != nil {
		return 0, fmt.Errorf("search count %s: %w", index, err)
	}
	return n, nil
}

// IDsByTags returns the IDs of documents matching the tag filters, capped at
// the candidate-set limit. Hitting the cap is logged, not an error.
func (r *Repo) IDsByTags(ctx context.Context, index string, filters filter.Filters) ([]string, error) {
	keys, err := r.store.SearchIDs(ctx, IndexName(index), filters.Map(), domain.MaxIDsByTags)
	if err != nil {
		return nil, fmt.Errorf("search ids %s: %w", index, err)
	}

	if len(keys) == domain.MaxIDsByTags {
		r.log.Debug("candidate ID set hit the cap, result may be truncated",
			zap.String("index", index),
			zap.Int("cap", domain.MaxIDsByTags))
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		ids = append(ids, ExtractID(key, index))
	}
	return ids, nil
}

// Scan returns one unscored page of documents. Documents that fail to
// decode are skipped.
func (r *Repo) Scan(ctx context.Context, index string, filters filter.Filters, offset, limit int) (
	[]domdoc.Document, int, error,
) {
	q := &db.ScanQuery{
		Index:   IndexName(index),
		Filters: filters.Map(),
		Offset:  offset,
		Limit:   limit,
	}

	sr, err := r.store.SearchScan(ctx, q)
	if err != nil {
		return nil, 0, fmt.Errorf("search scan %s: %w", index, err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, 0, nil
	}

	docs := make([]domdoc.Document, 0, len(sr.Hits))
	for _, hit := range sr.Hits {
		id := ExtractID(hit.Key, index)
		doc, err := r.codec.Decode(id, hit, 0)
		if err != nil {
			r.log.Warn("skipping undecodable document",
				zap.String("index", index),
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		docs = append(docs, doc)
	}

	return docs, sr.Total, nil
}
