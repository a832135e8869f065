package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carrental/internal/db"
)

var ErrEmailTaken = errors.New("email already registered")

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*db.User, error)
	GetByID(ctx context.Context, id string) (*db.User, error)
	CreateWithProfile(ctx context.Context, user *db.User, profile *db.Profile) error
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	CreatePasswordReset(ctx context.Context, reset db.PasswordReset) error
	ConsumePasswordReset(ctx context.Context, token string, now time.Time) (*db.PasswordReset, error)
}

type userRepository struct {
	db *sql.DB
}

func NewUserRepository(conn *sql.DB) UserRepository {
	return &userRepository{db: conn}
}

// GetByEmail returns nil, nil when no account uses email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*db.User, error) {
	var u db.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, provider, created_at FROM users WHERE lower(email) = lower($1)", email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Provider, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*db.User, error) {
	var u db.User
	err := r.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, provider, created_at FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Provider, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

// CreateWithProfile inserts the credentials and the profile in one transaction.
func (r *userRepository) CreateWithProfile(ctx context.Context, user *db.User, profile *db.Profile) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	user.CreatedAt = now
	_, err = tx.ExecContext(ctx,
		"INSERT INTO users (id, email, password_hash, provider, created_at) VALUES ($1, $2, $3, $4, $5)",
		user.ID, user.Email, user.PasswordHash, user.Provider, user.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrEmailTaken
		}
		return fmt.Errorf("error inserting user: %w", err)
	}

	profile.ID = user.ID
	profile.CreatedAt, profile.UpdatedAt = now, now
	if err := upsertProfile(ctx, tx, profile); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *userRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET password_hash = $2 WHERE id = $1", userID, passwordHash)
	if err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return requireAffected(res)
}

func (r *userRepository) CreatePasswordReset(ctx context.Context, reset db.PasswordReset) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO password_resets (token, user_id, expires_at) VALUES ($1, $2, $3)",
		reset.Token, reset.UserID, reset.ExpiresAt)
	if err != nil {
		return fmt.Errorf("error storing password reset: %w", err)
	}
	return nil
}

// ConsumePasswordReset deletes the token and returns it if it had not expired.
func (r *userRepository) ConsumePasswordReset(ctx context.Context, token string, now time.Time) (*db.PasswordReset, error) {
	var reset db.PasswordReset
	err := r.db.QueryRowContext(ctx,
		"DELETE FROM password_resets WHERE token = $1 RETURNING token, user_id, expires_at", token).
		Scan(&reset.Token, &reset.UserID, &reset.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !now.Before(reset.ExpiresAt) {
		return nil, ErrNotFound
	}
	return &reset, nil
}
