package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

type stubRow struct {
	err error
}

func (r stubRow) Scan(dest ...any) error { return r.err }

type stubQuerier struct {
	execErr error
	rowErr  error
	lastSQL string
	args    []any
}

func (s *stubQuerier) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	s.lastSQL = sql
	s.args = args
	return pgconn.NewCommandTag("INSERT 0 1"), s.execErr
}

func (s *stubQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	s.lastSQL = sql
	s.args = args
	return stubRow{err: s.rowErr}
}

func TestPGRepositoryFindByEmailNotFound(t *testing.T) {
	repo := NewRepository(&stubQuerier{rowErr: pgx.ErrNoRows})
	_, err := repo.FindByEmail(context.Background(), "a@x.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPGRepositoryFindByEmailFailure(t *testing.T) {
	repo := NewRepository(&stubQuerier{rowErr: errors.New("conn closed")})
	_, err := repo.FindByEmail(context.Background(), "a@x.com")
	require.Error(t, err)
	assert.NotErrorIs(t, err, shared.ErrNotFound)
}

func TestPGRepositoryCreateMapsUniqueViolation(t *testing.T) {
	db := &stubQuerier{execErr: &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}}
	repo := NewRepository(db)
	_, err := repo.Create(context.Background(), NewUser{FullName: "A", Email: "a@x.com", PasswordHash: "h"})
	assert.ErrorIs(t, err, shared.ErrDuplicateKey)
}

func TestPGRepositoryCreate(t *testing.T) {
	db := &stubQuerier{}
	repo := NewRepository(db)
	user, err := repo.Create(context.Background(), NewUser{FullName: "A", Email: "a@x.com", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Len(t, user.ID, 26)
	assert.Contains(t, db.lastSQL, "INSERT INTO users")
	require.Len(t, db.args, 5)
	assert.Equal(t, "a@x.com", db.args[2])
	assert.Equal(t, "h", db.args[3])
}
