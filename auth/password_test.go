package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func TestValidatePassword(t *testing.T) {
	cases := []struct {
		in   string
		want error
	}{
		{"short1", ErrPasswordTooShort},
		{"onlyletters", ErrPasswordTooWeak},
		{"1234567890", ErrPasswordTooWeak},
		{"Password1", ErrPasswordCommon},
		{"meeting-notes-42", nil},
	}
	for _, tc := range cases {
		if err := ValidatePassword([]byte(tc.in)); !errors.Is(err, tc.want) {
			t.Fatalf("ValidatePassword(%q) = %v, want %v", tc.in, err, tc.want)
		}
	}
	long := make([]byte, MaxPasswordLength+1)
	for i := range long {
		long[i] = 'a'
	}
	long[0] = '1'
	if err := ValidatePassword(long); !errors.Is(err, ErrPasswordTooLong) {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}
}

func TestValidateEmail(t *testing.T) {
	if !ValidateEmail("alice@example.com") {
		t.Fatalf("expected valid email")
	}
	for _, bad := range []string{"", "alice", "alice@", "@example.com", "a b@example.com"} {
		if ValidateEmail(bad) {
			t.Fatalf("ValidateEmail(%q) = true", bad)
		}
	}
}

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(WithBcryptCost(bcrypt.MinCost))
	ctx := context.Background()

	hash, err := h.Hash(ctx, []byte("correct-horse-1"), PasswordOptions{})
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash.Algorithm != AlgorithmBcrypt || hash.Cost != bcrypt.MinCost {
		t.Fatalf("unexpected hash metadata: %+v", hash)
	}
	if err := h.Compare(ctx, []byte("correct-horse-1"), hash); err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if err := h.Compare(ctx, []byte("wrong-horse-1"), hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
}

func TestBcryptHasherPepper(t *testing.T) {
	ctx := context.Background()
	peppered := NewBcryptHasher(WithBcryptCost(bcrypt.MinCost), WithPepper([]byte("s3cret")))
	plain := NewBcryptHasher(WithBcryptCost(bcrypt.MinCost))

	hash, err := peppered.Hash(ctx, []byte("correct-horse-1"), PasswordOptions{})
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := plain.Compare(ctx, []byte("correct-horse-1"), hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected mismatch without pepper, got %v", err)
	}
}

func TestBcryptHasherNeedsRehash(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	h := NewBcryptHasher(WithBcryptCost(bcrypt.MinCost+1), WithMaxAge(time.Hour), WithHasherNow(func() time.Time { return now }))

	if !h.NeedsRehash(PasswordHash{Algorithm: AlgorithmBcrypt, Cost: bcrypt.MinCost, CreatedAt: now}, PasswordOptions{}) {
		t.Fatalf("expected rehash for lower cost")
	}
	if !h.NeedsRehash(PasswordHash{Algorithm: AlgorithmBcrypt, Cost: bcrypt.MinCost + 1, CreatedAt: now.Add(-2 * time.Hour)}, PasswordOptions{}) {
		t.Fatalf("expected rehash for stale hash")
	}
	if h.NeedsRehash(PasswordHash{Algorithm: AlgorithmBcrypt, Cost: bcrypt.MinCost + 1, CreatedAt: now}, PasswordOptions{}) {
		t.Fatalf("fresh hash should not need rehash")
	}
	if !h.NeedsRehash(PasswordHash{Algorithm: AlgorithmArgon2id}, PasswordOptions{}) {
		t.Fatalf("foreign algorithm should need rehash")
	}
}

func TestArgon2idHasherRoundTrip(t *testing.T) {
	h := NewArgon2idHasher(WithArgon2Params(1, 8*1024, 1))
	ctx := context.Background()

	hash, err := h.Hash(ctx, []byte("correct-horse-1"), PasswordOptions{})
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if err := h.Compare(ctx, []byte("correct-horse-1"), hash); err != nil {
		t.Fatalf("Compare() error = %v", err)
	}
	if err := h.Compare(ctx, []byte("wrong-horse-1"), hash); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if h.NeedsRehash(hash, PasswordOptions{}) {
		t.Fatalf("hash with current params should not need rehash")
	}
	stronger := NewArgon2idHasher(WithArgon2Params(2, 8*1024, 1))
	if !stronger.NeedsRehash(hash, PasswordOptions{}) {
		t.Fatalf("expected rehash when time cost increases")
	}
}

func TestArgon2idHasherRejectsMalformedHash(t *testing.T) {
	h := NewArgon2idHasher(WithArgon2Params(1, 8*1024, 1))
	err := h.Compare(context.Background(), []byte("x"), PasswordHash{Algorithm: AlgorithmArgon2id, Value: []byte("$argon2id$broken")})
	if !errors.Is(err, ErrPasswordInvalidHash) {
		t.Fatalf("expected ErrPasswordInvalidHash, got %v", err)
	}
}

func TestHasherHonoursCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewBcryptHasher(WithBcryptCost(bcrypt.MinCost)).Hash(ctx, []byte("correct-horse-1"), PasswordOptions{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
