package redis

import (
	"context"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/docstore/internal/db"
)

// JSONGet retrieves the JSON document stored at key.
func (s *Store) JSONGet(ctx context.Context, key string) ([]byte, error) {
	cmd := s.b().Arbitrary("JSON.GET").Keys(key).Build()
	raw, err := s.do(ctx, cmd).ToString()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, db.ErrKeyNotFound
		}
		return nil, &db.Error{Op: db.OpJSONGet, Err: err}
	}
	if raw == "" {
		return nil, db.ErrKeyNotFound
	}
	return []byte(raw), nil
}

// BulkCreate writes each item as a new JSON document in one pipelined
// round trip. The returned slice is positionally aligned with items: nil
// means written, db.ErrKeyExists means the key was already present.
// Writes are independent; one collision does not roll back the others.
func (s *Store) BulkCreate(ctx context.Context, items []db.CreateItem) ([]error, error) {
	if len(items) == 0 {
		return nil, nil
	}

	cmds := make([]rueidis.Completed, 0, len(items))
	for _, item := range items {
		cmds = append(cmds,
			s.b().Arbitrary("JSON.SET").Keys(item.Key).Args("$", string(item.Data), "NX").Build())
	}

	results := s.client.DoMulti(ctx, cmds...)

	errs := make([]error, len(items))
	for i, res := range results {
		if err := res.Error(); err != nil {
			if rueidis.IsRedisNil(err) {
				// NX refused the write: the key already holds a document.
				errs[i] = db.ErrKeyExists
				continue
			}
			errs[i] = &db.Error{Op: db.OpJSONSet, Err: err}
		}
	}

	return errs, nil
}
