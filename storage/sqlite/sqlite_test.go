package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/storage/sqlite"
)

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "nim.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

var created = time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC)

func TestOpen_MigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nim.db")

	db, err := sqlite.Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = sqlite.Open(context.Background(), path, nil)
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestContactsRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewContactsRepository(openDB(t))

	ana := &core.Contact{
		ID: "c1", OwnerID: "owner", Nickname: "Ana", Type: core.ContactAddress,
		Value: "0xAbCdEf0000000000000000000000000000000001", CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, repo.Create(ctx, ana))
	require.NoError(t, repo.Create(ctx, &core.Contact{
		ID: "c2", OwnerID: "owner", Nickname: "bruno", Type: core.ContactEmail,
		Value: "bruno@example.com", TargetUserID: "u-bruno", CreatedAt: created, UpdatedAt: created,
	}))
	require.NoError(t, repo.Create(ctx, &core.Contact{
		ID: "c3", OwnerID: "someone-else", Nickname: "ana", Type: core.ContactAddress,
		Value: "0x0000000000000000000000000000000000000002", CreatedAt: created, UpdatedAt: created,
	}), "nicknames are unique per owner only")

	t.Run("duplicate nickname differs only in case", func(t *testing.T) {
		err := repo.Create(ctx, &core.Contact{
			ID: "c4", OwnerID: "owner", Nickname: "ANA", Type: core.ContactAddress,
			Value: "0x0000000000000000000000000000000000000003", CreatedAt: created, UpdatedAt: created,
		})
		assert.ErrorIs(t, err, &core.DuplicateNicknameError{})
	})

	t.Run("find by nickname", func(t *testing.T) {
		got, err := repo.FindByNickname(ctx, "owner", " aNa ")
		require.NoError(t, err)
		assert.Equal(t, "c1", got.ID)
		assert.Equal(t, ana.Value, got.Value)
		assert.Equal(t, created, got.CreatedAt)
	})

	t.Run("find by value", func(t *testing.T) {
		got, err := repo.FindByOwnerAndValue(ctx, "owner", "BRUNO@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u-bruno", got.TargetUserID)

		_, err = repo.FindByOwnerAndValue(ctx, "someone-else", "bruno@example.com")
		assert.ErrorIs(t, err, &core.NotFoundError{})
	})

	t.Run("list by owner", func(t *testing.T) {
		list, err := repo.ListByOwner(ctx, "owner")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Ana", list[0].Nickname)
		assert.Equal(t, "bruno", list[1].Nickname)

		empty, err := repo.ListByOwner(ctx, "nobody")
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, repo.Delete(ctx, "c2"))
		_, err := repo.Get(ctx, "c2")
		assert.ErrorIs(t, err, &core.NotFoundError{})
		assert.ErrorIs(t, repo.Delete(ctx, "c2"), &core.NotFoundError{})
	})
}

func TestUsersRepository(t *testing.T) {
	ctx := context.Background()
	repo := sqlite.NewUsersRepository(openDB(t))

	profile := &core.UserProfile{
		GoogleUserID: "g-1", Email: "Ana@Example.com", Name: "Ana",
		CreatedAt: created, UpdatedAt: created,
	}
	require.NoError(t, repo.Upsert(ctx, profile))

	got, err := repo.FindByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "g-1", got.GoogleUserID)
	assert.Nil(t, got.FaucetLastUsedAt)

	later := created.Add(time.Hour)
	got.WalletAddressTestnet = "0xAbCdEf0000000000000000000000000000000009"
	got.FaucetLastUsedAt = &later
	got.FaucetUseCount = 1
	got.UpdatedAt = later
	require.NoError(t, repo.Update(ctx, got))

	byAddr, err := repo.FindByAddress(ctx, "0xabcdef0000000000000000000000000000000009")
	require.NoError(t, err)
	assert.Equal(t, "g-1", byAddr.GoogleUserID)
	require.NotNil(t, byAddr.FaucetLastUsedAt)
	assert.Equal(t, later, *byAddr.FaucetLastUsedAt)
	assert.Equal(t, 1, byAddr.FaucetUseCount)
	assert.Equal(t, created, byAddr.CreatedAt)

	// Upsert keeps the original creation time.
	profile.Name = "Ana María"
	profile.CreatedAt = later
	require.NoError(t, repo.Upsert(ctx, profile))
	reloaded, err := repo.Get(ctx, "g-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana María", reloaded.Name)
	assert.Equal(t, created, reloaded.CreatedAt)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, &core.NotFoundError{})
	assert.ErrorIs(t, repo.Update(ctx, &core.UserProfile{GoogleUserID: "missing"}), &core.NotFoundError{})
	_, err = repo.FindByAddress(ctx, "0x0000000000000000000000000000000000000000")
	assert.ErrorIs(t, err, &core.NotFoundError{})
}
