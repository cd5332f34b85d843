package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/apex/log"
)

// Manager is the cache entry point used by services. It encodes values as
// JSON at the store boundary, applies per-kind TTLs and tracks dependency
// edges between keys. It never returns errors: every failure is logged and
// reported as a miss, so callers must treat the cache as an optimisation.
//
// A Manager whose store fails the startup ping stays disabled for its whole
// lifetime and all operations become no-ops.
type Manager struct {
	store   SetStore
	enabled bool
	opts    options
	log     log.Interface
}

// NewManager probes store and returns a Manager. A nil store or a failed
// ping yields a disabled Manager.
func NewManager(ctx context.Context, store SetStore, opts ...Option) *Manager {
	cfg := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	m := &Manager{store: store, opts: cfg, log: cfg.logger}
	if store == nil {
		m.log.Warn("cache store not configured, running with cache disabled")
		return m
	}
	if p, ok := store.(Pinger); ok && !cfg.pingDisabled {
		if ctx == nil {
			ctx = context.Background()
		}
		if err := p.Ping(ctx); err != nil {
			m.log.WithError(err).Warn("cache store unreachable, running with cache disabled")
			return m
		}
	}
	m.enabled = true
	m.log.Info("cache initialized")
	return m
}

// Disabled returns a Manager that caches nothing.
func Disabled() *Manager {
	return &Manager{opts: defaultOptions(), log: log.Log}
}

// Enabled reports whether the backing store passed its startup probe.
func (m *Manager) Enabled() bool { return m != nil && m.enabled }

// TTL returns the configured default TTL for kind.
func (m *Manager) TTL(kind Kind) time.Duration {
	if d, ok := m.opts.ttls[kind]; ok {
		return d
	}
	return FallbackTTL
}

// Get decodes the value stored under key into dest. It reports false on a
// miss, on a decode failure, on a store error and when caching is disabled.
func (m *Manager) Get(ctx context.Context, key string, dest any) bool {
	if !m.Enabled() {
		return false
	}
	payload, err := m.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.WithError(err).WithField("key", key).Warn("cache get failed")
		}
		return false
	}
	if err := json.Unmarshal(payload, dest); err != nil {
		m.log.WithError(err).WithField("key", key).Warn("cache decode failed")
		return false
	}
	return true
}

// Get is the typed form of Manager.Get.
func Get[T any](ctx context.Context, m *Manager, key string) (T, bool) {
	var v T
	if !m.Get(ctx, key, &v) {
		var zero T
		return zero, false
	}
	return v, true
}

// Set stores value under key for ttl. A non-positive ttl falls back to FallbackTTL.
func (m *Manager) Set(ctx context.Context, key string, value any, ttl time.Duration) {
	if !m.Enabled() {
		return
	}
	if ttl <= 0 {
		ttl = FallbackTTL
	}
	payload, err := json.Marshal(value)
	if err != nil {
		m.log.WithError(err).WithField("key", key).Warn("cache encode failed")
		return
	}
	if err := m.store.Set(ctx, key, payload, ttl); err != nil {
		m.log.WithError(err).WithField("key", key).Warn("cache set failed")
	}
}

// SetKind stores value using the default TTL configured for kind.
func (m *Manager) SetKind(ctx context.Context, kind Kind, key string, value any) {
	m.Set(ctx, key, value, m.TTL(kind))
}

// Delete removes key and the dependency set recorded for it.
func (m *Manager) Delete(ctx context.Context, key string) {
	if !m.Enabled() {
		return
	}
	for _, k := range []string{key, m.depsKey(key)} {
		if err := m.store.Delete(ctx, k); err != nil && !errors.Is(err, ErrNotFound) {
			m.log.WithError(err).WithField("key", k).Warn("cache delete failed")
		}
	}
}

// AddDependency records that invalidating parent must also invalidate child.
// Adding the same edge twice has no further effect.
func (m *Manager) AddDependency(ctx context.Context, parent, child string) {
	if !m.Enabled() || parent == "" || child == "" {
		return
	}
	if err := m.store.SAdd(ctx, m.depsKey(parent), m.opts.depTTL, child); err != nil {
		m.log.WithError(err).WithField("parent", parent).WithField("child", child).Warn("cache add dependency failed")
	}
}

// Dependencies lists the children currently recorded for parent.
func (m *Manager) Dependencies(ctx context.Context, parent string) []string {
	if !m.Enabled() {
		return nil
	}
	members, err := m.store.SMembers(ctx, m.depsKey(parent))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			m.log.WithError(err).WithField("key", parent).Warn("cache dependency lookup failed")
		}
		return nil
	}
	return members
}

// InvalidateWithDependencies deletes key and every key reachable from it
// through dependency edges. Children go before their parent. Each key is
// visited once per call, so cyclic graphs terminate.
func (m *Manager) InvalidateWithDependencies(ctx context.Context, key string) {
	if !m.Enabled() {
		return
	}
	m.invalidate(ctx, key, make(map[string]struct{}))
}

func (m *Manager) invalidate(ctx context.Context, key string, visited map[string]struct{}) {
	if _, seen := visited[key]; seen {
		return
	}
	visited[key] = struct{}{}
	for _, child := range m.Dependencies(ctx, key) {
		m.invalidate(ctx, child, visited)
	}
	m.Delete(ctx, key)
}

// Close releases the backing store when it holds resources.
func (m *Manager) Close() error {
	if m == nil || m.store == nil {
		return nil
	}
	if c, ok := m.store.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (m *Manager) depsKey(key string) string {
	return m.opts.depPrefix + key
}
