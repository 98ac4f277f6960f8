// Package db defines the storage contracts of the Redis/Valkey vector store.
// Repositories depend on the narrow interfaces; internal/db/redis implements all of them.
package db

import (
	"context"
	"time"
)

// Store is everything the Redis/Valkey driver offers.
//
//nolint:interfacebloat // consumers use the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	GroupStore
	IndexManager
	Searcher
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem is one point hash of a grouped write.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore keeps bucket metadata and sweeps bucket keys.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Del(ctx context.Context, keys ...string) (int, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore backs the embedding cache.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// GroupStore keeps a ticket's point hashes under one set key so they are written and removed together.
// All keys of a group must share a cluster hash slot.
type GroupStore interface {
	// HSetGroup replaces every item and adds its key to the group in one MULTI/EXEC.
	HSetGroup(ctx context.Context, groupKey string, items []HashSetItem) error
	// GroupMembers lists the keys of a group.
	GroupMembers(ctx context.Context, groupKey string) ([]string, error)
	// DelFromGroup deletes keys and removes them from the group in one MULTI/EXEC.
	DelFromGroup(ctx context.Context, groupKey string, keys []string) error
	// DelGroup atomically deletes every member and the group itself, returning the member count.
	DelGroup(ctx context.Context, groupKey string) (int, error)
}

// IndexManager creates and drops the per-bucket FT index.
type IndexManager interface {
	CreateIndex(ctx context.Context, def *IndexDefinition) error
	DropIndex(ctx context.Context, name string) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN over one vector field of an index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *KNNQuery) (*SearchResult, error)
}
