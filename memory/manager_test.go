package memory_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/memory"
	"github.com/becomeliminal/nim-wallet/memory/embedder/mock"
	"github.com/becomeliminal/nim-wallet/memory/store/chromem"
)

func newManager(t *testing.T, cfg *memory.Config) (*memory.SimpleManager, *chromem.ChromemStore) {
	t.Helper()

	store, err := chromem.New("", nil)
	require.NoError(t, err)

	return memory.NewSimpleManager(store, mock.New(128), cfg, nil), store
}

func TestSimpleManager_RecordAndRetrieve(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t, &memory.Config{Enabled: true, MinSimilarity: 0.1})

	err := manager.RecordTurn(ctx, "user123", &memory.Turn{
		UserMessage: "send 2 AVAX to my sister ana",
		Reply:       "Sending 2 AVAX to ana@example.com. Confirm?",
		Action:      "SEND",
	})
	require.NoError(t, err)

	formatted, err := manager.Retrieve(ctx, "user123", "send AVAX to my sister")
	require.NoError(t, err)

	assert.True(t, strings.Contains(formatted, "RELEVANT PAST CONVERSATIONS"))
	assert.Contains(t, formatted, "my sister ana")
}

func TestSimpleManager_UserNamespacing(t *testing.T) {
	ctx := context.Background()
	manager, _ := newManager(t, &memory.Config{Enabled: true})

	require.NoError(t, manager.RecordTurn(ctx, "user1", &memory.Turn{
		UserMessage: "pay rent to landlord",
		Action:      "SEND",
		Dispatched:  true,
	}))
	require.NoError(t, manager.RecordTurn(ctx, "user2", &memory.Turn{
		UserMessage: "pay rent to landlord",
		Action:      "SEND",
		Dispatched:  true,
	}))

	formatted, err := manager.Retrieve(ctx, "user1", "pay rent to landlord")
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(formatted, "pay rent"))
}

func TestSimpleManager_SkipsGreetings(t *testing.T) {
	ctx := context.Background()
	manager, store := newManager(t, &memory.Config{Enabled: true})

	require.NoError(t, manager.RecordTurn(ctx, "user1", &memory.Turn{
		UserMessage: "hola",
		Reply:       "Hola, ¿en qué te ayudo?",
		Action:      "GREETING",
	}))

	assert.Equal(t, 0, store.Count("user1"))
}

func TestSimpleManager_StoresFailures(t *testing.T) {
	ctx := context.Background()
	manager, store := newManager(t, &memory.Config{Enabled: true})

	require.NoError(t, manager.RecordTurn(ctx, "user1", &memory.Turn{
		UserMessage: "x",
		Action:      "ERROR",
		Failed:      true,
	}))

	assert.Equal(t, 1, store.Count("user1"))
}

func TestSimpleManager_RespectsCap(t *testing.T) {
	ctx := context.Background()
	manager, store := newManager(t, &memory.Config{Enabled: true, MaxMemoriesPerUser: 1})

	for i := 0; i < 3; i++ {
		require.NoError(t, manager.RecordTurn(ctx, "user1", &memory.Turn{
			UserMessage: "send money",
			Action:      "SEND",
		}))
	}

	assert.Equal(t, 1, store.Count("user1"))
}

func TestSimpleManager_DisabledConfig(t *testing.T) {
	ctx := context.Background()
	manager, store := newManager(t, &memory.Config{Enabled: false})

	require.NoError(t, manager.RecordTurn(ctx, "user1", &memory.Turn{
		UserMessage: "send money",
		Action:      "SEND",
		Dispatched:  true,
	}))
	assert.Equal(t, 0, store.Count("user1"))

	formatted, err := manager.Retrieve(ctx, "user1", "send money")
	require.NoError(t, err)
	assert.Empty(t, formatted)
}

func TestSimpleManager_EmptyStoreRetrievesNothing(t *testing.T) {
	manager, _ := newManager(t, &memory.Config{Enabled: true})

	formatted, err := manager.Retrieve(context.Background(), "nobody", "balance")
	require.NoError(t, err)
	assert.Empty(t, formatted)
}
