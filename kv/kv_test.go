package kv_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/kv"
)

func openStore(t *testing.T, path string, opts ...kv.Option) *kv.Store {
	t.Helper()
	s, err := kv.Open(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_SetGetDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "kv.db"))

	_, err := s.Get(ctx, kv.KeyUserID)
	assert.ErrorIs(t, err, kv.ErrNotFound)

	require.NoError(t, s.Set(ctx, kv.KeyUserID, "user-1"))
	require.NoError(t, s.Set(ctx, kv.KeyUserID, "user-2"))

	got, err := s.Get(ctx, kv.KeyUserID)
	require.NoError(t, err)
	assert.Equal(t, "user-2", got)

	require.NoError(t, s.Delete(ctx, kv.KeyUserID))
	require.NoError(t, s.Delete(ctx, kv.KeyUserID))

	_, err = s.Get(ctx, kv.KeyUserID)
	assert.ErrorIs(t, err, kv.ErrNotFound)
}

func TestStore_JSON(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, filepath.Join(t.TempDir(), "kv.db"))

	type entry struct {
		Role string `json:"role"`
		Text string `json:"text"`
	}
	in := []entry{{Role: "user", Text: "hola"}, {Role: "assistant", Text: "¿En qué te ayudo?"}}
	require.NoError(t, s.SetJSON(ctx, kv.KeyChatHistory, in))

	var out []entry
	require.NoError(t, s.GetJSON(ctx, kv.KeyChatHistory, &out))
	assert.Equal(t, in, out)
}

func TestStore_Encryption(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.db")

	sealed := openStore(t, path, kv.WithEncryption("correct horse"))
	assert.True(t, sealed.Encrypted())
	require.NoError(t, sealed.Set(ctx, kv.KeyUserPrivateKey, "0xdeadbeef"))

	got, err := sealed.Get(ctx, kv.KeyUserPrivateKey)
	require.NoError(t, err)
	assert.Equal(t, "0xdeadbeef", got)
	require.NoError(t, sealed.Close())

	t.Run("reopen with same passphrase", func(t *testing.T) {
		s := openStore(t, path, kv.WithEncryption("correct horse"))
		got, err := s.Get(ctx, kv.KeyUserPrivateKey)
		require.NoError(t, err)
		assert.Equal(t, "0xdeadbeef", got)
	})

	t.Run("reopen without passphrase", func(t *testing.T) {
		s := openStore(t, path)
		assert.False(t, s.Encrypted())
		_, err := s.Get(ctx, kv.KeyUserPrivateKey)
		assert.ErrorIs(t, err, kv.ErrEncrypted)
	})

	t.Run("reopen with wrong passphrase", func(t *testing.T) {
		s := openStore(t, path, kv.WithEncryption("battery staple"))
		_, err := s.Get(ctx, kv.KeyUserPrivateKey)
		assert.Error(t, err)
	})
}
