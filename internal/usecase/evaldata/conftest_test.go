package evaldata

import (
	"context"
	"testing"

	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

// mockStore implements Store for tests.
type mockStore struct {
	ensureIndexFn   func(ctx context.Context, index string) error
	bulkCreateFn    func(ctx context.Context, index string, docs []domdoc.Document) error
	bulkCreateRawFn func(ctx context.Context, index string, records []document.RawRecord) error

	ensured []string
}

func (m *mockStore) EnsureIndex(ctx context.Context, index string) error {
	m.ensured = append(m.ensured, index)
	if m.ensureIndexFn != nil {
		return m.ensureIndexFn(ctx, index)
	}
	return nil
}

func (m *mockStore) BulkCreate(ctx context.Context, index string, docs []domdoc.Document) error {
	if m.bulkCreateFn != nil {
		return m.bulkCreateFn(ctx, index, docs)
	}
	return nil
}

func (m *mockStore) BulkCreateRaw(ctx context.Context, index string, records []document.RawRecord) error {
	if m.bulkCreateRawFn != nil {
		return m.bulkCreateRawFn(ctx, index, records)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, zap.NewNop()), ms
}

const sampleDataset = `{
  "data": [
    {
      "title": "Normandy",
      "paragraphs": [
        {
          "context": "The Normans were the people who gave their name to Normandy.",
          "qas": [
            {
              "question": "Who gave their name to Normandy?",
              "answers": [{"text": "The Normans", "answer_start": 0}]
            },
            {
              "question": "What did the Normans name?",
              "answers": [{"text": "Normandy", "answer_start": 52}]
            }
          ]
        },
        {
          "context": "Normandy is a region in France.",
          "qas": [
            {
              "question": "Where is Normandy?",
              "answers": [{"text": "France", "answer_start": 24}]
            }
          ]
        }
      ]
    }
  ]
}`
