// Package auth covers user accounts and bearer sessions: password hashing,
// a user service with a cached profile lookup, a session store kept in a
// cache.Store, and net/http middleware that resolves bearer tokens to sessions.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"time"
)

// SessionDescriptor represents the persisted shape of a session token.
type SessionDescriptor struct {
	ID        string            `json:"id"`
	Subject   string            `json:"subject"`
	IssuedAt  time.Time         `json:"issued_at"`
	ExpiresAt time.Time         `json:"expires_at"`
	IP        string            `json:"ip,omitempty"`
	UserAgent string            `json:"user_agent,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// SessionToken surfaces runtime helpers for issued sessions.
type SessionToken interface {
	Descriptor() SessionDescriptor
	IsExpired(at time.Time) bool
}

// SessionStore persists session tokens and supports lifecycle management.
type SessionStore interface {
	Create(ctx context.Context, desc SessionDescriptor) (SessionToken, error)
	Get(ctx context.Context, id string) (SessionToken, error)
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, expiresAt time.Time) error
}

// PasswordHash contains the metadata needed to verify a hashed password.
type PasswordHash struct {
	Algorithm string    `json:"algorithm"`
	Cost      int       `json:"cost"`
	Salt      []byte    `json:"salt,omitempty"`
	Value     []byte    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordOptions overrides hasher defaults for a single call.
type PasswordOptions struct {
	Cost   int
	MaxAge time.Duration
}

// PasswordHasher manages password hashing and verification.
type PasswordHasher interface {
	Hash(ctx context.Context, plain []byte, opts PasswordOptions) (PasswordHash, error)
	Compare(ctx context.Context, plain []byte, hash PasswordHash) error
	NeedsRehash(hash PasswordHash, opts PasswordOptions) bool
}

// randomID returns a URL-safe token with 256 bits of entropy.
func randomID() (string, error) {
	buf := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func contextError(ctx context.Context) error {
	if ctx == nil {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
