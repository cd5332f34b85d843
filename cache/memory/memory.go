// Package memory provides an in-process cache.SetStore backed by ttlcache.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"github.com/adeilh/minutes/cache"
)

type entry struct {
	data    []byte
	members map[string]struct{}
}

// Store keeps values and sets in a single ttlcache instance. Reads never
// extend an entry's lifetime.
type Store struct {
	mu        sync.Mutex
	c         *ttlcache.Cache[string, entry]
	closeOnce sync.Once
}

// NewStore builds a Store and starts its expiry loop; call Close to stop it.
func NewStore() *Store {
	c := ttlcache.New[string, entry](
		ttlcache.WithDisableTouchOnHit[string, entry](),
	)
	go c.Start()
	return &Store{c: c}
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.lookup(key)
	if !ok || e.data == nil {
		return nil, cache.ErrNotFound
	}
	return append([]byte(nil), e.data...), nil
}

func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.c.Set(key, entry{data: append([]byte(nil), value...)}, normalizeTTL(ttl))
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lookup(key); !ok {
		return cache.ErrNotFound
	}
	s.c.Delete(key)
	return nil
}

func (s *Store) SAdd(ctx context.Context, key string, ttl time.Duration, members ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	set := make(map[string]struct{}, len(members))
	existing, ok := s.lookup(key)
	if ok {
		for m := range existing.members {
			set[m] = struct{}{}
		}
	}
	for _, m := range members {
		set[m] = struct{}{}
	}
	s.c.Set(key, entry{members: set}, normalizeTTL(ttl))
	return nil
}

func (s *Store) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e, ok := s.lookup(key)
	if !ok {
		return nil, nil
	}
	out := make([]string, 0, len(e.members))
	for m := range e.members {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

// Close stops the expiry loop.
func (s *Store) Close() error {
	s.closeOnce.Do(s.c.Stop)
	return nil
}

func (s *Store) lookup(key string) (entry, bool) {
	item := s.c.Get(key)
	if item == nil || item.IsExpired() {
		return entry{}, false
	}
	return item.Value(), true
}

func normalizeTTL(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return ttlcache.NoTTL
	}
	return ttl
}
