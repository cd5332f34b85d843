package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrPasswordTooShort         = errors.New("auth: password too short")
	ErrPasswordTooLong          = errors.New("auth: password too long")
	ErrPasswordTooWeak          = errors.New("auth: password needs a letter and a digit")
	ErrPasswordCommon           = errors.New("auth: password is too common")
	ErrPasswordMismatch         = errors.New("auth: password does not match")
	ErrPasswordInvalidAlgorithm = errors.New("auth: unsupported password algorithm")
	ErrPasswordInvalidHash      = errors.New("auth: invalid password hash")
)

const (
	AlgorithmBcrypt   = "bcrypt"
	AlgorithmArgon2id = "argon2id"
)

const (
	DefaultBcryptCost    = 12
	DefaultArgon2Time    = 3
	DefaultArgon2Memory  = 64 * 1024
	DefaultArgon2Threads = 4
	DefaultArgon2KeyLen  = 32
	DefaultSaltLength    = 16
	MinPasswordLength    = 8
	MaxPasswordLength    = 72
)

var commonPasswords = map[string]struct{}{
	"password": {}, "password1": {}, "12345678": {}, "123456789": {},
	"qwerty123": {}, "letmein1": {}, "iloveyou1": {}, "welcome1": {},
	"admin123": {}, "passw0rd": {}, "abc12345": {}, "minutes1": {},
}

// ValidatePassword enforces the account password policy: length bounds, at
// least one letter and one digit, and not a well-known password.
func ValidatePassword(password []byte) error {
	n := len([]rune(string(password)))
	if n < MinPasswordLength {
		return ErrPasswordTooShort
	}
	// bcrypt ignores everything past 72 bytes.
	if len(password) > MaxPasswordLength {
		return ErrPasswordTooLong
	}
	var letter, digit bool
	for _, r := range string(password) {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !letter || !digit {
		return ErrPasswordTooWeak
	}
	if _, ok := commonPasswords[strings.ToLower(string(password))]; ok {
		return ErrPasswordCommon
	}
	return nil
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// ValidateEmail validates an email address format.
func ValidateEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 254 {
		return false
	}
	return emailRegex.MatchString(email)
}

// HasherOption configures the hashers in this package.
type HasherOption func(*hasherConfig)

type hasherConfig struct {
	bcryptCost int
	argonTime  uint32
	argonMem   uint32
	argonPar   uint8
	pepper     []byte
	maxAge     time.Duration
	now        func() time.Time
}

func newHasherConfig(opts []HasherOption) hasherConfig {
	cfg := hasherConfig{
		bcryptCost: DefaultBcryptCost,
		argonTime:  DefaultArgon2Time,
		argonMem:   DefaultArgon2Memory,
		argonPar:   DefaultArgon2Threads,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// WithBcryptCost sets the bcrypt cost factor; out-of-range values are ignored.
func WithBcryptCost(cost int) HasherOption {
	return func(c *hasherConfig) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			c.bcryptCost = cost
		}
	}
}

// WithArgon2Params sets Argon2id time, memory (KiB) and parallelism.
func WithArgon2Params(t, memory uint32, threads uint8) HasherOption {
	return func(c *hasherConfig) {
		if t > 0 {
			c.argonTime = t
		}
		if memory > 0 {
			c.argonMem = memory
		}
		if threads > 0 {
			c.argonPar = threads
		}
	}
}

// WithPepper sets a server-side secret appended to every password.
func WithPepper(pepper []byte) HasherOption {
	return func(c *hasherConfig) { c.pepper = append([]byte(nil), pepper...) }
}

// WithMaxAge makes NeedsRehash report hashes older than d.
func WithMaxAge(d time.Duration) HasherOption {
	return func(c *hasherConfig) {
		if d > 0 {
			c.maxAge = d
		}
	}
}

func WithHasherNow(fn func() time.Time) HasherOption {
	return func(c *hasherConfig) {
		if fn != nil {
			c.now = fn
		}
	}
}

func (c hasherConfig) peppered(plain []byte) []byte {
	out := make([]byte, 0, len(plain)+len(c.pepper))
	out = append(out, plain...)
	return append(out, c.pepper...)
}

func (c hasherConfig) expired(hash PasswordHash, opts PasswordOptions) bool {
	maxAge := c.maxAge
	if opts.MaxAge > 0 {
		maxAge = opts.MaxAge
	}
	return maxAge > 0 && !hash.CreatedAt.IsZero() && c.now().Sub(hash.CreatedAt) > maxAge
}

// BcryptHasher implements PasswordHasher using bcrypt.
type BcryptHasher struct{ cfg hasherConfig }

func NewBcryptHasher(opts ...HasherOption) *BcryptHasher {
	return &BcryptHasher{cfg: newHasherConfig(opts)}
}

func (h *BcryptHasher) Hash(ctx context.Context, plain []byte, opts PasswordOptions) (PasswordHash, error) {
	if err := contextError(ctx); err != nil {
		return PasswordHash{}, err
	}
	if err := ValidatePassword(plain); err != nil {
		return PasswordHash{}, err
	}
	cost := h.cfg.bcryptCost
	if opts.Cost >= bcrypt.MinCost && opts.Cost <= bcrypt.MaxCost {
		cost = opts.Cost
	}
	combined := h.cfg.peppered(plain)
	defer clearBytes(combined)

	hashed, err := bcrypt.GenerateFromPassword(combined, cost)
	if err != nil {
		return PasswordHash{}, fmt.Errorf("auth: bcrypt hash failed: %w", err)
	}
	return PasswordHash{Algorithm: AlgorithmBcrypt, Cost: cost, Value: hashed, CreatedAt: h.cfg.now()}, nil
}

func (h *BcryptHasher) Compare(ctx context.Context, plain []byte, hash PasswordHash) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if hash.Algorithm != AlgorithmBcrypt {
		return ErrPasswordInvalidAlgorithm
	}
	if len(hash.Value) == 0 {
		return ErrPasswordInvalidHash
	}
	combined := h.cfg.peppered(plain)
	defer clearBytes(combined)

	if err := bcrypt.CompareHashAndPassword(hash.Value, combined); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrPasswordMismatch
		}
		return fmt.Errorf("auth: bcrypt compare failed: %w", err)
	}
	return nil
}

func (h *BcryptHasher) NeedsRehash(hash PasswordHash, opts PasswordOptions) bool {
	if hash.Algorithm != AlgorithmBcrypt {
		return true
	}
	target := h.cfg.bcryptCost
	if opts.Cost > 0 {
		target = opts.Cost
	}
	return hash.Cost < target || h.cfg.expired(hash, opts)
}

// Argon2idHasher implements PasswordHasher using Argon2id. The encoded value
// follows the PHC string format so parameters travel with the hash.
type Argon2idHasher struct{ cfg hasherConfig }

func NewArgon2idHasher(opts ...HasherOption) *Argon2idHasher {
	return &Argon2idHasher{cfg: newHasherConfig(opts)}
}

func (h *Argon2idHasher) Hash(ctx context.Context, plain []byte, _ PasswordOptions) (PasswordHash, error) {
	if err := contextError(ctx); err != nil {
		return PasswordHash{}, err
	}
	if err := ValidatePassword(plain); err != nil {
		return PasswordHash{}, err
	}
	salt := make([]byte, DefaultSaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return PasswordHash{}, fmt.Errorf("auth: failed to generate salt: %w", err)
	}
	combined := h.cfg.peppered(plain)
	defer clearBytes(combined)

	key := argon2.IDKey(combined, salt, h.cfg.argonTime, h.cfg.argonMem, h.cfg.argonPar, DefaultArgon2KeyLen)
	encoded := fmt.Sprintf("$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version, h.cfg.argonMem, h.cfg.argonTime, h.cfg.argonPar,
		base64.RawStdEncoding.EncodeToString(salt), base64.RawStdEncoding.EncodeToString(key))
	return PasswordHash{
		Algorithm: AlgorithmArgon2id,
		Cost:      int(h.cfg.argonTime),
		Salt:      salt,
		Value:     []byte(encoded),
		CreatedAt: h.cfg.now(),
	}, nil
}

func (h *Argon2idHasher) Compare(ctx context.Context, plain []byte, hash PasswordHash) error {
	if err := contextError(ctx); err != nil {
		return err
	}
	if hash.Algorithm != AlgorithmArgon2id {
		return ErrPasswordInvalidAlgorithm
	}
	p, err := decodeArgon2(hash.Value)
	if err != nil {
		return err
	}
	combined := h.cfg.peppered(plain)
	defer clearBytes(combined)

	computed := argon2.IDKey(combined, p.salt, p.time, p.memory, p.threads, uint32(len(p.key)))
	if subtle.ConstantTimeCompare(computed, p.key) != 1 {
		return ErrPasswordMismatch
	}
	return nil
}

func (h *Argon2idHasher) NeedsRehash(hash PasswordHash, opts PasswordOptions) bool {
	if hash.Algorithm != AlgorithmArgon2id {
		return true
	}
	p, err := decodeArgon2(hash.Value)
	if err != nil {
		return true
	}
	if p.time < h.cfg.argonTime || p.memory < h.cfg.argonMem || p.threads < h.cfg.argonPar {
		return true
	}
	return h.cfg.expired(hash, opts)
}

type argon2Params struct {
	time    uint32
	memory  uint32
	threads uint8
	salt    []byte
	key     []byte
}

func decodeArgon2(encoded []byte) (argon2Params, error) {
	parts := strings.Split(string(encoded), "$")
	if len(parts) != 6 {
		return argon2Params{}, ErrPasswordInvalidHash
	}
	if parts[1] != AlgorithmArgon2id {
		return argon2Params{}, ErrPasswordInvalidAlgorithm
	}
	var version int
	if _, err := fmt.Sscanf(parts[2], "v=%d", &version); err != nil || version != argon2.Version {
		return argon2Params{}, ErrPasswordInvalidHash
	}
	var p argon2Params
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &p.memory, &p.time, &p.threads); err != nil {
		return argon2Params{}, ErrPasswordInvalidHash
	}
	var err error
	if p.salt, err = base64.RawStdEncoding.DecodeString(parts[4]); err != nil {
		return argon2Params{}, ErrPasswordInvalidHash
	}
	if p.key, err = base64.RawStdEncoding.DecodeString(parts[5]); err != nil || len(p.key) == 0 {
		return argon2Params{}, ErrPasswordInvalidHash
	}
	return p, nil
}

func clearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
