package cache_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adeilh/minutes/cache"
	"github.com/adeilh/minutes/cache/memory"
	"github.com/adeilh/minutes/cache/redis"
)

var quiet = &log.Logger{Handler: discard.Default, Level: log.DebugLevel}

type meetingRecord struct {
	Title string `json:"title"`
}

func newManager(t *testing.T, opts ...cache.Option) (*cache.Manager, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	m := cache.NewManager(context.Background(), store, append([]cache.Option{cache.WithLogger(quiet)}, opts...)...)
	t.Cleanup(func() { _ = m.Close() })
	require.True(t, m.Enabled())
	return m, store
}

func TestManagerGetNeverWritten(t *testing.T) {
	m, _ := newManager(t)
	var out meetingRecord
	assert.False(t, m.Get(context.Background(), "meeting:unknown", &out))
}

func TestManagerSetThenGet(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Set(ctx, "meeting:m1", meetingRecord{Title: "X"}, 60*time.Second)

	got, ok := cache.Get[meetingRecord](ctx, m, "meeting:m1")
	require.True(t, ok)
	assert.Equal(t, "X", got.Title)
}

func TestManagerSetExpires(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Set(ctx, "item:i1", meetingRecord{Title: "short"}, 50*time.Millisecond)
	_, ok := cache.Get[meetingRecord](ctx, m, "item:i1")
	require.True(t, ok)

	time.Sleep(120 * time.Millisecond)
	_, ok = cache.Get[meetingRecord](ctx, m, "item:i1")
	assert.False(t, ok)
}

func TestManagerDeleteRemovesEntryAndDependencies(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Set(ctx, "meeting:m1", meetingRecord{Title: "X"}, time.Minute)
	m.AddDependency(ctx, "meeting:m1", "section:s1")
	m.Delete(ctx, "meeting:m1")
	m.Delete(ctx, "meeting:never-written")

	_, ok := cache.Get[meetingRecord](ctx, m, "meeting:m1")
	assert.False(t, ok)
	assert.Empty(t, m.Dependencies(ctx, "meeting:m1"))
}

func TestManagerDecodeFailureIsMiss(t *testing.T) {
	m, store := newManager(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "meeting:bad", []byte("{not json"), time.Minute))

	var out meetingRecord
	assert.False(t, m.Get(ctx, "meeting:bad", &out))
}

func TestManagerSetKindUsesDefaultTTL(t *testing.T) {
	m, _ := newManager(t, cache.WithTTL(cache.KindItem, 50*time.Millisecond))
	ctx := context.Background()

	assert.Equal(t, 60*time.Second, m.TTL(cache.KindMeeting))
	assert.Equal(t, time.Hour, m.TTL(cache.KindTemplate))
	assert.Equal(t, 5*time.Minute, m.TTL(cache.KindUser))
	assert.Equal(t, cache.FallbackTTL, m.TTL(cache.Kind("unknown")))

	m.SetKind(ctx, cache.KindItem, "item:i1", meetingRecord{Title: "i"})
	time.Sleep(120 * time.Millisecond)
	_, ok := cache.Get[meetingRecord](ctx, m, "item:i1")
	assert.False(t, ok)
}

func TestInvalidateWithDependenciesCascades(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	for _, k := range []string{"meeting:m1", "section:s1", "section:s2", "item:i1", "meeting:other"} {
		m.Set(ctx, k, meetingRecord{Title: k}, time.Minute)
	}
	m.AddDependency(ctx, "meeting:m1", "section:s1")
	m.AddDependency(ctx, "meeting:m1", "section:s2")
	m.AddDependency(ctx, "section:s1", "item:i1")
	m.AddDependency(ctx, "section:s1", "item:i1")

	assert.Equal(t, []string{"item:i1"}, m.Dependencies(ctx, "section:s1"))

	m.InvalidateWithDependencies(ctx, "meeting:m1")

	for _, k := range []string{"meeting:m1", "section:s1", "section:s2", "item:i1"} {
		_, ok := cache.Get[meetingRecord](ctx, m, k)
		assert.False(t, ok, k)
	}
	_, ok := cache.Get[meetingRecord](ctx, m, "meeting:other")
	assert.True(t, ok)
}

func TestInvalidateWithDependenciesTerminatesOnCycle(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Set(ctx, "a", meetingRecord{Title: "a"}, time.Minute)
	m.Set(ctx, "b", meetingRecord{Title: "b"}, time.Minute)
	m.AddDependency(ctx, "a", "b")
	m.AddDependency(ctx, "b", "a")
	m.AddDependency(ctx, "b", "b")

	done := make(chan struct{})
	go func() {
		m.InvalidateWithDependencies(ctx, "a")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("invalidation did not terminate on a cyclic graph")
	}

	_, okA := cache.Get[meetingRecord](ctx, m, "a")
	_, okB := cache.Get[meetingRecord](ctx, m, "b")
	assert.False(t, okA)
	assert.False(t, okB)
}

func TestInvalidateVisitsEachKeyOnce(t *testing.T) {
	inner := memory.NewStore()
	defer inner.Close()
	store := &countingStore{SetStore: inner, deletes: map[string]int{}}
	m := cache.NewManager(context.Background(), store, cache.WithLogger(quiet))
	ctx := context.Background()

	m.AddDependency(ctx, "meeting:m1", "section:s1")
	m.AddDependency(ctx, "meeting:m1", "section:s2")
	m.AddDependency(ctx, "section:s1", "item:i1")
	m.AddDependency(ctx, "section:s2", "item:i1")

	m.InvalidateWithDependencies(ctx, "meeting:m1")

	assert.Equal(t, 1, store.deletes["item:i1"])
	assert.Equal(t, 1, store.deletes["meeting:m1"])
}

func TestManagerDisabledWhenStoreUnreachable(t *testing.T) {
	store := redis.NewStore(redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	m := cache.NewManager(context.Background(), store, cache.WithLogger(quiet))
	defer m.Close()
	ctx := context.Background()

	require.False(t, m.Enabled())

	m.Set(ctx, "meeting:m1", meetingRecord{Title: "X"}, time.Minute)
	m.AddDependency(ctx, "meeting:m1", "section:s1")
	m.InvalidateWithDependencies(ctx, "meeting:m1")
	m.Delete(ctx, "meeting:m1")

	_, ok := cache.Get[meetingRecord](ctx, m, "meeting:m1")
	assert.False(t, ok)
	assert.Nil(t, m.Dependencies(ctx, "meeting:m1"))
}

func TestManagerNilStoreAndDisabled(t *testing.T) {
	ctx := context.Background()
	for _, m := range []*cache.Manager{cache.NewManager(ctx, nil, cache.WithLogger(quiet)), cache.Disabled()} {
		assert.False(t, m.Enabled())
		m.Set(ctx, "k", 1, time.Minute)
		_, ok := cache.Get[int](ctx, m, "k")
		assert.False(t, ok)
		assert.NoError(t, m.Close())
	}
}

func TestManagerStoreErrorsAreMisses(t *testing.T) {
	store := &failingStore{err: errors.New("connection reset")}
	m := cache.NewManager(context.Background(), store, cache.WithLogger(quiet), cache.WithoutPing())
	ctx := context.Background()

	require.True(t, m.Enabled())
	m.Set(ctx, "meeting:m1", meetingRecord{Title: "X"}, time.Minute)
	_, ok := cache.Get[meetingRecord](ctx, m, "meeting:m1")
	assert.False(t, ok)
	m.AddDependency(ctx, "meeting:m1", "section:s1")
	m.InvalidateWithDependencies(ctx, "meeting:m1")
}

type countingStore struct {
	cache.SetStore
	deletes map[string]int
}

func (s *countingStore) Delete(ctx context.Context, key string) error {
	s.deletes[key]++
	return s.SetStore.Delete(ctx, key)
}

type failingStore struct{ err error }

func (s *failingStore) Get(context.Context, string) ([]byte, error) { return nil, s.err }
func (s *failingStore) Set(context.Context, string, []byte, time.Duration) error {
	return s.err
}
func (s *failingStore) Delete(context.Context, string) error { return s.err }
func (s *failingStore) SAdd(context.Context, string, time.Duration, ...string) error {
	return s.err
}
func (s *failingStore) SMembers(context.Context, string) ([]string, error) { return nil, s.err }
func (s *failingStore) Ping(context.Context) error                         { return s.err }
