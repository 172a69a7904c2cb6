package evaldata

import (
	"context"
	"errors"
	"strings"
	"testing"

	domdoc "github.com/kailas-cloud/docstore/internal/domain/document"
	"github.com/kailas-cloud/docstore/internal/repository/document"
)

func TestAdd_WritesDocumentsAndLabels(t *testing.T) {
	svc, ms := newTestService(t)

	var gotDocs []domdoc.Document
	var gotLabels []document.RawRecord
	ms.bulkCreateFn = func(_ context.Context, index string, docs []domdoc.Document) error {
		if index != "eval_docs" {
			t.Errorf("unexpected doc index: %s", index)
		}
		gotDocs = docs
		return nil
	}
	ms.bulkCreateRawFn = func(_ context.Context, index string, records []document.RawRecord) error {
		if index != "eval_labels" {
			t.Errorf("unexpected label index: %s", index)
		}
		gotLabels = records
		return nil
	}

	err := svc.Add(context.Background(), strings.NewReader(sampleDataset), "eval_docs", "eval_labels")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(gotDocs) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(gotDocs))
	}
	if gotDocs[0].Text() != "The Normans were the people who gave their name to Normandy." {
		t.Errorf("unexpected text: %s", gotDocs[0].Text())
	}
	if name := gotDocs[0].Meta()[domdoc.NameKey]; name != "Normandy" {
		t.Errorf("expected the article title as name, got %v", name)
	}

	if len(gotLabels) != 3 {
		t.Fatalf("expected 3 labels, got %d", len(gotLabels))
	}
	first := gotLabels[0].Fields
	if first["question"] != "Who gave their name to Normandy?" {
		t.Errorf("unexpected question: %v", first["question"])
	}
	if first["origin"] != OriginGoldLabel {
		t.Errorf("unexpected origin: %v", first["origin"])
	}
	if first["index_name"] != "eval_docs" {
		t.Errorf("unexpected index_name: %v", first["index_name"])
	}
	if first["doc_id"] != gotDocs[0].ID() {
		t.Errorf("label must join to its paragraph document: %v != %s", first["doc_id"], gotDocs[0].ID())
	}
}

func TestAdd_EnsuresBothIndexesFirst(t *testing.T) {
	svc, ms := newTestService(t)
	written := false
	ms.bulkCreateFn = func(_ context.Context, _ string, _ []domdoc.Document) error {
		if len(ms.ensured) != 2 {
			t.Error("indexes must be ensured before any write")
		}
		written = true
		return nil
	}

	err := svc.Add(context.Background(), strings.NewReader(sampleDataset), "d", "l")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !written {
		t.Fatal("expected a document write")
	}
	if len(ms.ensured) != 2 || ms.ensured[0] != "d" || ms.ensured[1] != "l" {
		t.Errorf("unexpected ensured indexes: %v", ms.ensured)
	}
}

func TestAdd_JoinKeyIsDeterministic(t *testing.T) {
	svc, ms := newTestService(t)

	var runs [][]string
	ms.bulkCreateFn = func(_ context.Context, _ string, docs []domdoc.Document) error {
		ids := make([]string, len(docs))
		for i := range docs {
			ids[i] = docs[i].ID()
		}
		runs = append(runs, ids)
		return nil
	}

	for range 2 {
		err := svc.Add(context.Background(), strings.NewReader(sampleDataset), "d", "l")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if len(runs) != 2 || len(runs[0]) != 2 {
		t.Fatalf("unexpected runs: %v", runs)
	}
	if runs[0][0] != runs[1][0] || runs[0][1] != runs[1][1] {
		t.Errorf("the same content must hash to the same ID: %v", runs)
	}
	if runs[0][0] == runs[0][1] {
		t.Error("distinct paragraphs must not collide")
	}
}

func TestAdd_InvalidJSON(t *testing.T) {
	svc, ms := newTestService(t)

	err := svc.Add(context.Background(), strings.NewReader("{not json"), "d", "l")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(ms.ensured) != 0 {
		t.Error("a parse failure must not touch the backend")
	}
}

func TestAdd_EnsureIndexFailureStopsLoad(t *testing.T) {
	svc, ms := newTestService(t)
	ms.ensureIndexFn = func(_ context.Context, _ string) error {
		return errors.New("connection refused")
	}
	written := false
	ms.bulkCreateFn = func(_ context.Context, _ string, _ []domdoc.Document) error {
		written = true
		return nil
	}

	if err := svc.Add(context.Background(), strings.NewReader(sampleDataset), "d", "l"); err == nil {
		t.Fatal("expected error")
	}
	if written {
		t.Error("documents must not be written when index creation fails")
	}
}

func TestAdd_LabelWriteErrorPropagates(t *testing.T) {
	svc, ms := newTestService(t)
	ms.bulkCreateRawFn = func(_ context.Context, _ string, _ []document.RawRecord) error {
		return errors.New("duplicate label")
	}

	if err := svc.Add(context.Background(), strings.NewReader(sampleDataset), "d", "l"); err == nil {
		t.Fatal("expected error")
	}
}
