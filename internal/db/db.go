package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	KVStore
	IndexManager
	Searcher
	MemberWriter
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// KVStore provides expiring key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// IndexManager provides FT index lifecycle operations.
type IndexManager interface {
	CreateIndex(ctx context.Context, schema Schema) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher provides search operations over FT indexes.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
	SearchCount(ctx context.Context, q *CountQuery) (int, error)
}

// MemberWriter writes groups of hashes tracked by a member set. The set at setKey
// holds the keys of every hash in the group.
type MemberWriter interface {
	// AddMembers writes items and records their keys in setKey in one transaction.
	AddMembers(ctx context.Context, setKey string, items []HashSetItem) error
	// ReplaceMembers deletes every hash listed in setKey, then writes items and records
	// their keys, in one transaction. It returns the number of hashes removed.
	ReplaceMembers(ctx context.Context, setKey string, items []HashSetItem) (int, error)
}
