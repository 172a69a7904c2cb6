package evaldata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

// OriginGoldLabel marks label records as reference answers.
const OriginGoldLabel = "gold_label"

// dataset is the SQuAD-style evaluation schema.
type dataset struct {
	Data []article `json:"data"`
}

type article struct {
	Title      string      `json:"title"`
	Paragraphs []paragraph `json:"paragraphs"`
}

type paragraph struct {
	Context string `json:"context"`
	QAs     []qa   `json:"qas"`
}

type qa struct {
	Question string   `json:"question"`
	Answers  []answer `json:"answers"`
}

type answer struct {
	Text        string `json:"text"`
	AnswerStart int    `json:"answer_start"`
}

// Service loads evaluation datasets into paired document and label indexes.
type Service struct {
	store Store
	log   *zap.Logger
}

// New creates an evaluation data service.
func New(store Store, log *zap.Logger) *Service {
	return &Service{store: store, log: log}
}

// Add parses a SQuAD-style dataset and writes its paragraphs as documents
// into docIndex and its questions as gold-label records into labelIndex.
// Documents and labels share a content-derived join key, so the same
// paragraph always maps to the same document ID across loads. Both indexes
// are created first if absent.
func (s *Service) Add(ctx context.Context, r io.Reader, docIndex, labelIndex string) error {
	var ds dataset
	if err := json.NewDecoder(r).Decode(&ds); err != nil {
		return fmt.Errorf("decode eval dataset: %w", err)
	}

	if err := s.store.EnsureIndex(ctx, docIndex); err != nil {
		return fmt.Errorf("ensure doc index: %w", err)
	}
	if err := s.store.EnsureIndex(ctx, labelIndex); err != nil {
		return fmt.Errorf("ensure label index: %w", err)
	}

	var docs []domdoc.Document
	var labels []document.RawRecord

	for _, art := range ds.Data {
		for _, para := range art.Paragraphs {
			docID := contentHash(para.Context)

			var meta map[string]any
			if art.Title != "" {
				meta = map[string]any{domdoc.NameKey: art.Title}
			}
			doc, err := domdoc.New(docID, para.Context, meta)
			if err != nil {
				return fmt.Errorf("eval document %s: %w", docID, err)
			}
			docs = append(docs, doc)

			for _, q := range para.QAs {
				labels = append(labels, document.RawRecord{
					ID: contentHash(docID + ":" + q.Question),
					Fields: map[string]any{
						"question":   q.Question,
						"answers":    q.Answers,
						"doc_id":     docID,
						"origin":     OriginGoldLabel,
						"index_name": docIndex,
					},
				})
			}
		}
	}

	s.log.Info("loading evaluation data",
		zap.String("doc_index", docIndex),
		zap.String("label_index", labelIndex),
		zap.Int("documents", len(docs)),
		zap.Int("labels", len(labels)))

	if err := s.store.BulkCreate(ctx, docIndex, docs); err != nil {
		return fmt.Errorf("write eval documents: %w", err)
	}
	if err := s.store.BulkCreateRaw(ctx, labelIndex, labels); err != nil {
		return fmt.Errorf("write eval labels: %w", err)
	}
	return nil
}

// contentHash is the fixed join-key hash. Changing it breaks the link
// between previously stored evaluation documents and labels.
func contentHash(text string) string {
	return fmt.Sprintf("%016x", xxhash.Sum64String(text))
}
