package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apex/log"
	"github.com/apex/log/handlers/discard"
	"golang.org/x/crypto/bcrypt"

	"github.com/adeilh/minutes/cache"
	"github.com/adeilh/minutes/cache/memory"
)

type countingUsers struct {
	*MemoryUserRepository
	byID atomic.Int32
}

func (c *countingUsers) GetUserByID(ctx context.Context, id string) (User, error) {
	c.byID.Add(1)
	return c.MemoryUserRepository.GetUserByID(ctx, id)
}

func newUserService(t *testing.T) (*UserService, *countingUsers) {
	t.Helper()
	backing := memory.NewStore()
	t.Cleanup(func() { _ = backing.Close() })
	quiet := &log.Logger{Handler: discard.Default, Level: log.DebugLevel}
	m := cache.NewManager(context.Background(), backing, cache.WithLogger(quiet))

	repo := &countingUsers{MemoryUserRepository: NewMemoryUserRepository()}
	svc, err := NewUserService(UserServiceConfig{
		Repository: repo,
		Hasher:     NewBcryptHasher(WithBcryptCost(bcrypt.MinCost)),
		Sessions:   NewCacheSessionStore(backing, SessionStoreOptions{}),
		SessionTTL: time.Minute,
		Cache:      m,
	})
	if err != nil {
		t.Fatalf("NewUserService() error = %v", err)
	}
	return svc, repo
}

func TestNewUserServiceRequiresDependencies(t *testing.T) {
	if _, err := NewUserService(UserServiceConfig{}); !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected ErrUserInvalidInput, got %v", err)
	}
}

func TestUserServiceRegisterAndAuthenticate(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", " Alice@Example.com ", []byte("meeting-notes-42"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("email not normalised: %q", user.Email)
	}

	got, err := svc.Authenticate(ctx, "alice@example.com", []byte("meeting-notes-42"))
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("authenticated %s, want %s", got.ID, user.ID)
	}
	if _, err := svc.Authenticate(ctx, "alice@example.com", []byte("wrong-password-1")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Authenticate(ctx, "bob@example.com", []byte("meeting-notes-42")); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestUserServiceRegisterRejects(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "a@example.com", []byte("meeting-notes-42")); !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected invalid input for blank username, got %v", err)
	}
	if _, err := svc.Register(ctx, "a", "not-an-email", []byte("meeting-notes-42")); !errors.Is(err, ErrUserInvalidInput) {
		t.Fatalf("expected invalid input for bad email, got %v", err)
	}
	_, err := svc.Register(ctx, "a", "a@example.com", []byte("short"))
	if !errors.Is(err, ErrUserInvalidInput) || !errors.Is(err, ErrPasswordTooShort) {
		t.Fatalf("expected wrapped ErrPasswordTooShort, got %v", err)
	}
	if _, err := svc.Register(ctx, "a", "a@example.com", []byte("meeting-notes-42")); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, "b", "a@example.com", []byte("meeting-notes-42")); !errors.Is(err, ErrUserEmailInUse) {
		t.Fatalf("expected ErrUserEmailInUse, got %v", err)
	}
}

func TestUserServiceGetIsCached(t *testing.T) {
	svc, repo := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", []byte("meeting-notes-42"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		got, err := svc.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Username != "alice" {
			t.Fatalf("username = %q", got.Username)
		}
	}
	if n := repo.byID.Load(); n != 1 {
		t.Fatalf("repository hit %d times, want 1", n)
	}
	if _, err := svc.Get(ctx, "missing"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserServiceSessionLifecycle(t *testing.T) {
	svc, _ := newUserService(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "alice@example.com", []byte("meeting-notes-42"))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	session, err := svc.Login(ctx, "alice@example.com", []byte("meeting-notes-42"), SessionDescriptor{UserAgent: "test"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	desc := session.Descriptor()
	if desc.Subject != user.ID {
		t.Fatalf("session subject = %q, want %q", desc.Subject, user.ID)
	}

	refreshed, err := svc.Refresh(ctx, desc.ID)
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if refreshed.Descriptor().ExpiresAt.Before(desc.ExpiresAt) {
		t.Fatalf("refresh moved expiry backwards")
	}

	if err := svc.Logout(ctx, desc.ID); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}
	if _, err := svc.Refresh(ctx, desc.ID); !errors.Is(err, ErrSessionExpired) {
		t.Fatalf("expected ErrSessionExpired after logout, got %v", err)
	}
	if _, err := svc.Login(ctx, "alice@example.com", []byte("nope-nope-1"), SessionDescriptor{}); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}
