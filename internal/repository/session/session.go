// Package session remembers the last ingested source per client session.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kailas-cloud/ragchat/internal/db"
)

// KeyPrefix namespaces session keys in the KV store.
const KeyPrefix = "ragchat:session:"

// DefaultTTL is used when a store is created with a non-positive ttl.
const DefaultTTL = 24 * time.Hour

// kvStore is the consumer interface for KV-backed sessions (ISP).
type kvStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// KV stores sessions in Redis or Valkey with a sliding TTL.
type KV struct {
	store kvStore
	ttl   time.Duration
}

// NewKV creates a KV-backed session store.
func NewKV(s kvStore, ttl time.Duration) *KV {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &KV{store: s, ttl: ttl}
}

// LastSource returns the session's last ingested source, or "" when unknown.
func (k *KV) LastSource(ctx context.Context, id string) (string, error) {
	if id == "" {
		return "", nil
	}
	data, err := k.store.Get(ctx, KeyPrefix+id)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return "", nil
		}
		return "", fmt.Errorf("get session: %w", err)
	}
	return string(data), nil
}

// SetLastSource records source as the session's default and refreshes the TTL.
func (k *KV) SetLastSource(ctx context.Context, id, source string) error {
	if id == "" {
		return nil
	}
	if err := k.store.SetWithTTL(ctx, KeyPrefix+id, []byte(source), k.ttl); err != nil {
		return fmt.Errorf("set session: %w", err)
	}
	return nil
}

type memEntry struct {
	source  string
	expires time.Time
}

// Memory keeps sessions in process memory. Expired entries are dropped on access
// and swept on every write.
type Memory struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]memEntry
}

// NewMemory creates an in-memory session store.
func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now, sessions: make(map[string]memEntry)}
}

// LastSource returns the session's last ingested source, or "" when unknown or expired.
func (m *Memory) LastSource(_ context.Context, id string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.sessions[id]
	if !ok {
		return "", nil
	}
	if !m.now().Before(e.expires) {
		delete(m.sessions, id)
		return "", nil
	}
	return e.source, nil
}

// SetLastSource records source as the session's default.
func (m *Memory) SetLastSource(_ context.Context, id, source string) error {
	if id == "" {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, e := range m.sessions {
		if !now.Before(e.expires) {
			delete(m.sessions, k)
		}
	}
	m.sessions[id] = memEntry{source: source, expires: now.Add(m.ttl)}
	return nil
}
