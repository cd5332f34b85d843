package redis

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/adeilh/minutes/cache"
	testredis "github.com/adeilh/minutes/internal/testutil/rediscontainer"
)

var redisErr error

func TestMain(m *testing.M) {
	redisErr = testredis.Setup()
	if redisErr != nil {
		fmt.Println("redis integration tests skipped:", redisErr)
	}

	code := m.Run()

	if redisErr == nil {
		if err := testredis.Teardown(); err != nil {
			fmt.Fprintln(os.Stderr, "warning: failed to stop redis test container:", err)
		}
	}

	os.Exit(code)
}

func requireRedis(t *testing.T) *Store {
	t.Helper()
	if redisErr != nil {
		t.Skipf("redis unavailable: %v", redisErr)
	}
	store := NewStore(Options{Addr: testredis.Addr()})
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreSetGetDelete(t *testing.T) {
	store := requireRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := fmt.Sprintf("redis:test:%d", time.Now().UnixNano())
	value := []byte(`{"title":"X"}`)

	if err := store.Set(ctx, key, value, 0); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	payload, err := store.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if string(payload) != string(value) {
		t.Fatalf("Get() = %q, want %q", payload, value)
	}

	if err := store.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Delete(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("second Delete() = %v, want ErrNotFound", err)
	}
}

func TestStoreTTL(t *testing.T) {
	store := requireRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("redis:ttl:%d", time.Now().UnixNano())
	ttl := 200 * time.Millisecond

	if err := store.Set(ctx, key, []byte("value"), ttl); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	time.Sleep(ttl + 100*time.Millisecond)

	if _, err := store.Get(ctx, key); !errors.Is(err, cache.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after TTL, got %v", err)
	}
}

func TestStoreSetMembership(t *testing.T) {
	store := requireRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	key := fmt.Sprintf("deps:meeting:%d", time.Now().UnixNano())

	if err := store.SAdd(ctx, key, time.Minute, "section:s1", "section:s2"); err != nil {
		t.Fatalf("SAdd() error = %v", err)
	}
	if err := store.SAdd(ctx, key, time.Minute, "section:s1"); err != nil {
		t.Fatalf("SAdd() repeat error = %v", err)
	}

	members, err := store.SMembers(ctx, key)
	if err != nil {
		t.Fatalf("SMembers() error = %v", err)
	}
	sort.Strings(members)
	if strings.Join(members, ",") != "section:s1,section:s2" {
		t.Fatalf("SMembers() = %v", members)
	}

	empty, err := store.SMembers(ctx, key+":missing")
	if err != nil {
		t.Fatalf("SMembers() missing error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no members, got %v", empty)
	}
}

func TestStorePing(t *testing.T) {
	store := requireRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := store.Ping(ctx); err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
}

func TestStoreContextCancellation(t *testing.T) {
	store := NewStore(Options{Addr: "127.0.0.1:1"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Set(ctx, "any", []byte("value"), 0); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStorePingUnreachable(t *testing.T) {
	store := NewStore(Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond})
	defer store.Close()

	if err := store.Ping(context.Background()); err == nil {
		t.Fatalf("expected Ping() to fail against closed port")
	}
}

func TestStoreClosed(t *testing.T) {
	store := NewStore(Options{Addr: "127.0.0.1:1"})
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := store.Get(context.Background(), "k"); !errors.Is(err, ErrClosed) {
		t.Fatalf("Get() after Close = %v, want ErrClosed", err)
	}
}

func TestStoreConcurrentSetGet(t *testing.T) {
	store := requireRedis(t)

	const workers = 32
	const opsPerWorker = 100

	var wg sync.WaitGroup
	errCh := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < opsPerWorker; i++ {
				key := fmt.Sprintf("redis:concurrent:%d:%d", worker, i)
				val := []byte(key)

				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				if err := store.Set(ctx, key, val, time.Second); err != nil {
					errCh <- fmt.Errorf("worker %d set failed: %w", worker, err)
					cancel()
					return
				}
				payload, err := store.Get(ctx, key)
				cancel()
				if err != nil {
					errCh <- fmt.Errorf("worker %d get failed: %w", worker, err)
					return
				}
				if string(payload) != string(val) {
					errCh <- fmt.Errorf("worker %d mismatch: got %q want %q", worker, payload, val)
					return
				}
			}
		}(w)
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		t.Errorf("concurrent op failed: %v", err)
	}
}

func TestStorePipeline(t *testing.T) {
	store := requireRedis(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	pipeline, err := store.Pipeline(ctx)
	if err != nil {
		t.Fatalf("Pipeline() error = %v", err)
	}
	defer pipeline.Close()

	key1 := fmt.Sprintf("redis:pipeline:%d:1", time.Now().UnixNano())
	key2 := fmt.Sprintf("redis:pipeline:%d:2", time.Now().UnixNano())

	pipeline.Queue("SET", key1, "v1")
	pipeline.Queue("SET", key2, "v2")
	pipeline.Queue("MGET", key1, key2)

	responses, err := pipeline.Exec(ctx)
	if err != nil {
		t.Fatalf("Exec() error = %v", err)
	}

	if len(responses) != 3 {
		t.Fatalf("expected 3 responses, got %d", len(responses))
	}

	if !isOK(responses[0]) || !isOK(responses[1]) {
		t.Fatalf("SET responses = %v, %v, want OK", responses[0], responses[1])
	}

	values, err := stringsReply(responses[2])
	if err != nil {
		t.Fatalf("stringsReply() error = %v", err)
	}
	if len(values) != 2 || values[0] != "v1" || values[1] != "v2" {
		t.Fatalf("unexpected MGET payload: %v", values)
	}
}
