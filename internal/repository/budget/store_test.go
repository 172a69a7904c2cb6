package budget

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/docstore/internal/db"
)

type mockKV struct {
	values map[string][]byte
	incrs  map[string]int64
	ttls   map[string]time.Duration

	getErr  error
	incrErr error
	expErr  error
}

func newMockKV() *mockKV {
	return &mockKV{
		values: make(map[string][]byte),
		incrs:  make(map[string]int64),
		ttls:   make(map[string]time.Duration),
	}
}

func (m *mockKV) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKV) IncrBy(_ context.Context, key string, val int64) error {
	if m.incrErr != nil {
		return m.incrErr
	}
	m.incrs[key] += val
	return nil
}

func (m *mockKV) Expire(_ context.Context, key string, ttl time.Duration, _ bool) error {
	if m.expErr != nil {
		return m.expErr
	}
	m.ttls[key] = ttl
	return nil
}

func TestIncrBy_SetsTTLByWindow(t *testing.T) {
	kv := newMockKV()
	s := New(kv, 48*time.Hour, 62*24*time.Hour)

	dailyKey := "docstore:budget:openai:daily:2026-09-01"
	monthlyKey := "docstore:budget:openai:monthly:2026-09"

	if err := s.IncrBy(context.Background(), dailyKey, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.IncrBy(context.Background(), monthlyKey, 100); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if kv.ttls[dailyKey] != 48*time.Hour {
		t.Errorf("daily TTL: got %v, want 48h", kv.ttls[dailyKey])
	}
	if kv.ttls[monthlyKey] != 62*24*time.Hour {
		t.Errorf("monthly TTL: got %v, want 62 days", kv.ttls[monthlyKey])
	}
	if kv.incrs[dailyKey] != 100 {
		t.Errorf("daily counter: got %d, want 100", kv.incrs[dailyKey])
	}
}

func TestGet_MissingKeyIsZero(t *testing.T) {
	s := New(newMockKV(), time.Hour, time.Hour)

	val, err := s.Get(context.Background(), "docstore:budget:openai:daily:2026-09-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 0 {
		t.Errorf("missing key: got %d, want 0", val)
	}
}

func TestGet_ParsesStoredValue(t *testing.T) {
	kv := newMockKV()
	kv.values["k"] = []byte("1234")
	s := New(kv, time.Hour, time.Hour)

	val, err := s.Get(context.Background(), "k")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != 1234 {
		t.Errorf("value: got %d, want 1234", val)
	}
}

func TestGet_NonNumericValueErrors(t *testing.T) {
	kv := newMockKV()
	kv.values["k"] = []byte("not a number")
	s := New(kv, time.Hour, time.Hour)

	if _, err := s.Get(context.Background(), "k"); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestIncrBy_BackendErrorPropagates(t *testing.T) {
	kv := newMockKV()
	kv.incrErr = errors.New("down")
	s := New(kv, time.Hour, time.Hour)

	if err := s.IncrBy(context.Background(), "k", 1); err == nil {
		t.Fatal("expected error")
	}
}
