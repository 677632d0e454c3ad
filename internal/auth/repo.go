package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

// Repository defines persistence operations for the credential store.
// FindByEmail returns shared.ErrNotFound when no user matches; Create returns
// shared.ErrDuplicateKey when the email is already taken.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*User, error)
	Create(ctx context.Context, in NewUser) (*User, error)
}

// pgxQuerier is the subset of *pgxpool.Pool used by PGRepository.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const pgUniqueViolation = "23505"

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	db pgxQuerier
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(db pgxQuerier) *PGRepository {
	return &PGRepository{db: db}
}

// FindByEmail fetches a user by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	var user User
	err := r.db.QueryRow(ctx,
		`SELECT id, full_name, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&user.ID, &user.FullName, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, fmt.Errorf("select user: %w", err)
	}
	return &user, nil
}

// Create inserts a user; the users_email_key constraint decides races.
func (r *PGRepository) Create(ctx context.Context, in NewUser) (*User, error) {
	now := time.Now().UTC()
	id, err := newUserID(now)
	if err != nil {
		return nil, err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO users (id, full_name, email, password_hash, created_at) VALUES ($1, $2, $3, $4, $5)`,
		id, in.FullName, in.Email, in.PasswordHash, now,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, shared.ErrDuplicateKey
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}
	return &User{
		ID:           id,
		FullName:     in.FullName,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		CreatedAt:    now,
	}, nil
}

var _ Repository = (*PGRepository)(nil)
