package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adeilh/minutes/cache"
)

var (
	ErrUserNotFound        = errors.New("auth: user not found")
	ErrUserEmailInUse      = errors.New("auth: email already in use")
	ErrUserInvalidInput    = errors.New("auth: invalid user input")
	ErrInvalidCredentials  = errors.New("auth: invalid credentials")
	ErrSessionsUnavailable = errors.New("auth: session store not configured")
)

// User is an account. The password hash never leaves the process in JSON,
// so cached copies carry no hash.
type User struct {
	ID           string       `json:"id"`
	Username     string       `json:"username"`
	Email        string       `json:"email"`
	PasswordHash PasswordHash `json:"-"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

// UserRepository abstracts persistence so callers can map to any table schema.
type UserRepository interface {
	CreateUser(ctx context.Context, user User) error
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
}

// UserService handles registration, credential checks and the session
// lifecycle built on top of them.
type UserService struct {
	repo     UserRepository
	hasher   PasswordHasher
	sessions SessionStore
	sessTTL  time.Duration
	now      func() time.Time
	get      cache.Func[string, User]
}

// UserServiceConfig wires dependencies for UserService.
type UserServiceConfig struct {
	Repository UserRepository
	Hasher     PasswordHasher
	Sessions   SessionStore
	SessionTTL time.Duration
	Cache      *cache.Manager
	Now        func() time.Time
}

func NewUserService(cfg UserServiceConfig) (*UserService, error) {
	if cfg.Repository == nil || cfg.Hasher == nil {
		return nil, ErrUserInvalidInput
	}
	svc := &UserService{
		repo:     cfg.Repository,
		hasher:   cfg.Hasher,
		sessions: cfg.Sessions,
		sessTTL:  cfg.SessionTTL,
		now:      cfg.Now,
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	if svc.sessTTL <= 0 {
		svc.sessTTL = time.Hour
	}
	m := cfg.Cache
	if m == nil {
		m = cache.Disabled()
	}
	svc.get = cache.Memoize(m, cache.KindUser, "user", nil, cfg.Repository.GetUserByID)
	return svc, nil
}

// Register validates the input, hashes the password and stores a new user.
func (s *UserService) Register(ctx context.Context, username, email string, password []byte) (User, error) {
	username = strings.TrimSpace(username)
	email = normalizeEmail(email)
	if username == "" || !ValidateEmail(email) {
		return User{}, ErrUserInvalidInput
	}
	hash, err := s.hasher.Hash(ctx, password, PasswordOptions{})
	if err != nil {
		return User{}, fmt.Errorf("%w: %w", ErrUserInvalidInput, err)
	}
	now := s.now().UTC()
	user := User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return User{}, err
	}
	return user, nil
}

// Authenticate returns the user when password matches. Unknown emails and
// wrong passwords both report ErrInvalidCredentials.
func (s *UserService) Authenticate(ctx context.Context, email string, password []byte) (User, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err := s.hasher.Compare(ctx, password, user.PasswordHash); err != nil {
		if errors.Is(err, ErrPasswordMismatch) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	return user, nil
}

// Get returns the user profile, served from the cache when possible.
func (s *UserService) Get(ctx context.Context, id string) (User, error) {
	if id == "" {
		return User{}, ErrUserNotFound
	}
	return s.get(ctx, id)
}

// Login authenticates and opens a session for the user.
func (s *UserService) Login(ctx context.Context, email string, password []byte, desc SessionDescriptor) (SessionToken, error) {
	if s.sessions == nil {
		return nil, ErrSessionsUnavailable
	}
	user, err := s.Authenticate(ctx, email, password)
	if err != nil {
		return nil, err
	}
	desc.Subject = user.ID
	desc.ID = ""
	now := s.now()
	desc.IssuedAt = now
	desc.ExpiresAt = now.Add(s.sessTTL)
	return s.sessions.Create(ctx, desc)
}

// Refresh pushes the session's expiry a full session TTL into the future.
func (s *UserService) Refresh(ctx context.Context, sessionID string) (SessionToken, error) {
	if s.sessions == nil {
		return nil, ErrSessionsUnavailable
	}
	if err := s.sessions.Touch(ctx, sessionID, s.now().Add(s.sessTTL)); err != nil {
		return nil, err
	}
	return s.sessions.Get(ctx, sessionID)
}

func (s *UserService) Logout(ctx context.Context, sessionID string) error {
	if s.sessions == nil {
		return ErrSessionsUnavailable
	}
	return s.sessions.Delete(ctx, sessionID)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// MemoryUserRepository is a UserRepository kept in process memory.
type MemoryUserRepository struct {
	mu      sync.RWMutex
	users   map[string]User
	byEmail map[string]string
}

func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{
		users:   make(map[string]User),
		byEmail: make(map[string]string),
	}
}

func (r *MemoryUserRepository) CreateUser(ctx context.Context, user User) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.byEmail[user.Email]; exists {
		return ErrUserEmailInUse
	}
	r.users[user.ID] = user
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *MemoryUserRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	if err := contextError(ctx); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byEmail[email]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return r.users[id], nil
}

func (r *MemoryUserRepository) GetUserByID(ctx context.Context, id string) (User, error) {
	if err := contextError(ctx); err != nil {
		return User{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return user, nil
}
