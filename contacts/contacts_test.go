package contacts_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/contacts"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/storage/sqlite"
)

const addr = "0xAbCdEf0000000000000000000000000000000001"

func newService(t *testing.T) (*contacts.Service, *sqlite.UsersRepository) {
	t.Helper()
	db, err := sqlite.Open(context.Background(), filepath.Join(t.TempDir(), "nim.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	users := sqlite.NewUsersRepository(db)
	return contacts.NewService(sqlite.NewContactsRepository(db), users, nil), users
}

func TestService_AddAddress(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	c, err := svc.AddAddress(ctx, "owner", "  Ana  ", addr)
	require.NoError(t, err)
	assert.Equal(t, "Ana", c.Nickname)
	assert.Equal(t, core.ContactAddress, c.Type)
	assert.NotEmpty(t, c.ID)

	got, err := svc.GetByNickname(ctx, "owner", "ana")
	require.NoError(t, err)
	assert.Equal(t, c.ID, got.ID)
}

func TestService_Validation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	tests := []struct {
		name     string
		nickname string
		value    string
		email    bool
	}{
		{name: "empty nickname", nickname: "  ", value: addr},
		{name: "nickname too long", nickname: strings.Repeat("a", 33), value: addr},
		{name: "nickname with symbols", nickname: "ana<script>", value: addr},
		{name: "short address", nickname: "ana", value: "0x1234"},
		{name: "bad email", nickname: "ana", value: "ana@", email: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err error
			if tt.email {
				_, err = svc.AddEmail(ctx, "owner", tt.nickname, tt.value)
			} else {
				_, err = svc.AddAddress(ctx, "owner", tt.nickname, tt.value)
			}
			assert.ErrorIs(t, err, &core.InvalidArgumentsError{})
		})
	}

	list, err := svc.List(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestService_NicknameUniquePerOwner(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	_, err := svc.AddAddress(ctx, "owner", "mamá", addr)
	require.NoError(t, err)

	_, err = svc.AddEmail(ctx, "owner", "MAMÁ", "mama@example.com")
	assert.ErrorIs(t, err, &core.DuplicateNicknameError{})

	_, err = svc.AddAddress(ctx, "other-owner", "mamá", addr)
	assert.NoError(t, err)
}

func TestService_AddEmailLinksRegisteredUser(t *testing.T) {
	ctx := context.Background()
	svc, users := newService(t)

	now := time.Now().UTC()
	require.NoError(t, users.Upsert(ctx, &core.UserProfile{
		GoogleUserID: "g-bruno", Email: "bruno@example.com", CreatedAt: now, UpdatedAt: now,
	}))

	linked, err := svc.AddEmail(ctx, "owner", "bruno", "Bruno@Example.com")
	require.NoError(t, err)
	assert.Equal(t, "bruno@example.com", linked.Value)
	assert.Equal(t, "g-bruno", linked.TargetUserID)

	unlinked, err := svc.AddEmail(ctx, "owner", "carla", "carla@example.com")
	require.NoError(t, err)
	assert.Empty(t, unlinked.TargetUserID)
}

func TestService_DeleteOnlyOwn(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	c, err := svc.AddAddress(ctx, "owner", "ana", addr)
	require.NoError(t, err)

	assert.ErrorIs(t, svc.Delete(ctx, "intruder", c.ID), &core.NotFoundError{})
	require.NoError(t, svc.Delete(ctx, "owner", c.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "owner", c.ID), &core.NotFoundError{})
}
