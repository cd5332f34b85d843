package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/adeilh/minutes/cache"
)

var (
	ErrSessionInvalidDescriptor = errors.New("auth: invalid session descriptor")
	ErrSessionExpired           = errors.New("auth: session expired")
)

type SessionStoreOptions struct {
	Prefix     string
	DefaultTTL time.Duration
	Now        func() time.Time
}

// CacheSessionStore keeps sessions as JSON records under "<prefix>:<id>" in a
// cache.Store. Record expiry in the store mirrors the session's ExpiresAt.
type CacheSessionStore struct {
	store      cache.Store
	prefix     string
	defaultTTL time.Duration
	now        func() time.Time
}

func NewCacheSessionStore(store cache.Store, opts SessionStoreOptions) *CacheSessionStore {
	s := &CacheSessionStore{
		store:      store,
		prefix:     opts.Prefix,
		defaultTTL: opts.DefaultTTL,
		now:        opts.Now,
	}
	if s.prefix == "" {
		s.prefix = "session"
	}
	if s.defaultTTL <= 0 {
		s.defaultTTL = time.Hour
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// DefaultTTL is the lifetime given to sessions created without ExpiresAt.
func (s *CacheSessionStore) DefaultTTL() time.Duration { return s.defaultTTL }

func (s *CacheSessionStore) key(id string) string {
	return s.prefix + ":" + id
}

func (s *CacheSessionStore) Create(ctx context.Context, desc SessionDescriptor) (SessionToken, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}
	prepared, ttl, err := s.prepareDescriptor(desc)
	if err != nil {
		return nil, err
	}
	if err := s.put(ctx, prepared, ttl); err != nil {
		return nil, err
	}
	return sessionToken{desc: prepared}, nil
}

// Get fetches a session by ID. Unknown and expired sessions both report
// ErrSessionExpired.
func (s *CacheSessionStore) Get(ctx context.Context, id string) (SessionToken, error) {
	if err := contextError(ctx); err != nil {
		return nil, err
	}
	if id == "" {
		return nil, ErrSessionInvalidDescriptor
	}
	payload, err := s.store.Get(ctx, s.key(id))
	if err != nil {
		if errors.Is(err, cache.ErrNotFound) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	var desc SessionDescriptor
	if err := json.Unmarshal(payload, &desc); err != nil {
		return nil, err
	}
	if !desc.ExpiresAt.After(s.now()) {
		_ = s.store.Delete(ctx, s.key(id))
		return nil, ErrSessionExpired
	}
	return sessionToken{desc: desc}, nil
}

func (s *CacheSessionStore) Delete(ctx context.Context, id string) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if id == "" {
		return ErrSessionInvalidDescriptor
	}
	if err := s.store.Delete(ctx, s.key(id)); err != nil && !errors.Is(err, cache.ErrNotFound) {
		return err
	}
	return nil
}

// Touch moves the session's expiry to expiresAt.
func (s *CacheSessionStore) Touch(ctx context.Context, id string, expiresAt time.Time) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if id == "" {
		return ErrSessionInvalidDescriptor
	}
	ttl := expiresAt.Sub(s.now())
	if ttl <= 0 {
		return ErrSessionExpired
	}
	token, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	desc := token.Descriptor()
	desc.ExpiresAt = expiresAt
	return s.put(ctx, desc, ttl)
}

func (s *CacheSessionStore) put(ctx context.Context, desc SessionDescriptor, ttl time.Duration) error {
	record, err := json.Marshal(desc)
	if err != nil {
		return err
	}
	return s.store.Set(ctx, s.key(desc.ID), record, ttl)
}

func (s *CacheSessionStore) prepareDescriptor(desc SessionDescriptor) (SessionDescriptor, time.Duration, error) {
	if desc.Subject == "" {
		return SessionDescriptor{}, 0, ErrSessionInvalidDescriptor
	}
	out := desc
	if len(desc.Metadata) > 0 {
		out.Metadata = make(map[string]string, len(desc.Metadata))
		for k, v := range desc.Metadata {
			out.Metadata[k] = v
		}
	}
	now := s.now()
	if out.ID == "" {
		id, err := randomID()
		if err != nil {
			return SessionDescriptor{}, 0, err
		}
		out.ID = id
	}
	if out.IssuedAt.IsZero() {
		out.IssuedAt = now
	}
	if out.ExpiresAt.IsZero() {
		out.ExpiresAt = out.IssuedAt.Add(s.defaultTTL)
	}
	if out.ExpiresAt.Before(out.IssuedAt) {
		return SessionDescriptor{}, 0, ErrSessionInvalidDescriptor
	}
	ttl := out.ExpiresAt.Sub(now)
	if ttl <= 0 {
		ttl = time.Second
	}
	return out, ttl, nil
}

type sessionToken struct {
	desc SessionDescriptor
}

func (t sessionToken) Descriptor() SessionDescriptor { return t.desc }

func (t sessionToken) IsExpired(at time.Time) bool {
	if t.desc.ExpiresAt.IsZero() {
		return false
	}
	return !at.Before(t.desc.ExpiresAt)
}
