package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/lib/pq"

	"github.com/adeilh/minutes/auth"
)

// UserRepository persists auth.User records inside PostgreSQL.
type UserRepository struct {
	db *sql.DB
}

var _ auth.UserRepository = (*UserRepository)(nil)

// NewUserRepository wraps an existing *sql.DB connection.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) CreateUser(ctx context.Context, user auth.User) error {
	const query = `INSERT INTO users (id, username, email, password_hash, created_at, updated_at)
                   VALUES ($1, $2, $3, $4, $5, $6)`
	hashJSON, err := json.Marshal(user.PasswordHash)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, query, user.ID, user.Username, user.Email, hashJSON, user.CreatedAt, user.UpdatedAt)
	return translateUserError(err)
}

func (r *UserRepository) GetUserByEmail(ctx context.Context, email string) (auth.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE email = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *UserRepository) GetUserByID(ctx context.Context, id string) (auth.User, error) {
	const query = `SELECT id, username, email, password_hash, created_at, updated_at FROM users WHERE id = $1`
	return r.scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *UserRepository) scanUser(row *sql.Row) (auth.User, error) {
	var (
		hashJSON []byte
		user     auth.User
	)
	err := row.Scan(&user.ID, &user.Username, &user.Email, &hashJSON, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return auth.User{}, auth.ErrUserNotFound
		}
		return auth.User{}, translateUserError(err)
	}
	if err := json.Unmarshal(hashJSON, &user.PasswordHash); err != nil {
		return auth.User{}, err
	}
	return user, nil
}

func translateUserError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return auth.ErrUserEmailInUse
		case codeInvalidText:
			// Malformed UUIDs cannot name an existing user.
			return auth.ErrUserNotFound
		}
	}
	return err
}
