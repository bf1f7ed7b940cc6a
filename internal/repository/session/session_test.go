package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/ragchat/internal/db"
)

type mockKVStore struct {
	data map[string][]byte
	ttl  time.Duration
	err  error
}

func (m *mockKVStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.err != nil {
		return nil, m.err
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.data[key] = value
	m.ttl = ttl
	return nil
}

func TestKV_RoundTrip(t *testing.T) {
	ms := &mockKVStore{data: map[string][]byte{}}
	s := NewKV(ms, time.Minute)
	ctx := context.Background()

	got, err := s.LastSource(ctx, "abc")
	if err != nil || got != "" {
		t.Fatalf("expected empty source, got %q, %v", got, err)
	}

	if err := s.SetLastSource(ctx, "abc", "manual.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := ms.data["ragchat:session:abc"]; !ok {
		t.Fatalf("expected key ragchat:session:abc, got %v", ms.data)
	}
	if ms.ttl != time.Minute {
		t.Errorf("expected ttl 1m, got %v", ms.ttl)
	}

	got, err = s.LastSource(ctx, "abc")
	if err != nil || got != "manual.pdf" {
		t.Fatalf("expected manual.pdf, got %q, %v", got, err)
	}
}

func TestKV_EmptyIDIsNoop(t *testing.T) {
	ms := &mockKVStore{data: map[string][]byte{}, err: errors.New("must not be called")}
	s := NewKV(ms, 0)

	if err := s.SetLastSource(context.Background(), "", "x"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, err := s.LastSource(context.Background(), ""); err != nil || got != "" {
		t.Fatalf("expected empty, got %q, %v", got, err)
	}
}

func TestKV_StoreError(t *testing.T) {
	ms := &mockKVStore{data: map[string][]byte{}, err: errors.New("down")}
	s := NewKV(ms, 0)

	if _, err := s.LastSource(context.Background(), "abc"); err == nil {
		t.Fatal("expected error")
	}
	if err := s.SetLastSource(context.Background(), "abc", "x"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMemory_Expiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	if err := m.SetLastSource(ctx, "a", "one.pdf"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, _ := m.LastSource(ctx, "a"); got != "one.pdf" {
		t.Fatalf("expected one.pdf, got %q", got)
	}
	if got, _ := m.LastSource(ctx, "b"); got != "" {
		t.Fatalf("sessions must not leak, got %q", got)
	}

	now = now.Add(time.Hour)
	if got, _ := m.LastSource(ctx, "a"); got != "" {
		t.Fatalf("expected expired session, got %q", got)
	}
}

func TestMemory_SweepOnWrite(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	m := NewMemory(time.Minute)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	_ = m.SetLastSource(ctx, "old", "x")
	now = now.Add(2 * time.Minute)
	_ = m.SetLastSource(ctx, "new", "y")

	if len(m.sessions) != 1 {
		t.Errorf("expected expired session swept, have %d", len(m.sessions))
	}
}
