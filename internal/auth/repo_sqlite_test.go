package auth

import (
	"context"
	"errors"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/Git-me-Harish/Video-KYC/internal/database"
	"github.com/Git-me-Harish/Video-KYC/internal/shared"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "users.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, err = database.Migrate(context.Background(), db, database.DialectSQLite)
	require.NoError(t, err)
	return NewSQLiteRepository(db)
}

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.FindByEmail(ctx, "a@x.com")
	require.ErrorIs(t, err, shared.ErrNotFound)

	created, err := repo.Create(ctx, NewUser{FullName: "Alice A", Email: "a@x.com", PasswordHash: "$2a$04$hash"})
	require.NoError(t, err)
	assert.Len(t, created.ID, 26)

	found, err := repo.FindByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)
	assert.Equal(t, "Alice A", found.FullName)
	assert.Equal(t, "$2a$04$hash", found.PasswordHash)
	assert.False(t, found.CreatedAt.IsZero())
}

func TestSQLiteRepositoryDuplicateKey(t *testing.T) {
	repo := newSQLiteRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, NewUser{FullName: "Alice", Email: "a@x.com", PasswordHash: "h1"})
	require.NoError(t, err)
	_, err = repo.Create(ctx, NewUser{FullName: "Bob", Email: "a@x.com", PasswordHash: "h2"})
	assert.ErrorIs(t, err, shared.ErrDuplicateKey)
}

func TestSQLiteConcurrentCreateSingleWinner(t *testing.T) {
	repo := newSQLiteRepo(t)
	const n = 12

	var wins, dups atomic.Int32
	var g errgroup.Group
	for i := 0; i < n; i++ {
		g.Go(func() error {
			_, err := repo.Create(context.Background(), NewUser{FullName: "Racer", Email: "race@x.com", PasswordHash: "h"})
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, shared.ErrDuplicateKey):
				dups.Add(1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, 1, wins.Load())
	assert.EqualValues(t, n-1, dups.Load())
}

func TestServiceOverSQLiteConflicts(t *testing.T) {
	svc := newTestService(t, newSQLiteRepo(t))
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{FullName: "Alice A", Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, RegisterInput{FullName: "Alice B", Email: "a@x.com", Password: "other-pass"})
	assert.ErrorIs(t, err, shared.ErrConflict)

	user, err := svc.Authenticate(ctx, LoginInput{Email: "a@x.com", Password: "secret1"})
	require.NoError(t, err)
	assert.Equal(t, "Alice A", user.FullName)
}
