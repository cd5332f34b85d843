package cache

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("cache: key not found")

// Store represents a simple TTL-based cache abstraction that can be backed
// by memory, Redis, or any other KV store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// SetStore adds set-membership operations used to persist dependency edges.
// SAdd refreshes the set's expiry to ttl when ttl > 0.
type SetStore interface {
	Store
	SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
}

// Pinger is implemented by stores that can verify connectivity up front.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Closer is implemented by stores holding connections or goroutines.
type Closer interface {
	Close() error
}
