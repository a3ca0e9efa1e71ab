package wallet_test

import (
	"context"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/history"
	"github.com/becomeliminal/nim-wallet/kv"
	"github.com/becomeliminal/nim-wallet/wallet"
)

func newSimulated(t *testing.T, funded common.Address, balance *big.Int) *simulated.Backend {
	t.Helper()
	backend := simulated.NewBackend(types.GenesisAlloc{
		funded: {Balance: balance},
	})
	t.Cleanup(func() { backend.Close() })
	return backend
}

func avax(s string) *big.Int {
	return wallet.ToWei(decimal.RequireFromString(s))
}

func TestEVMClient_SendNative(t *testing.T) {
	ctx := context.Background()
	sender, err := wallet.NewAccount()
	require.NoError(t, err)
	backend := newSimulated(t, sender.Address, avax("10"))

	client, err := wallet.NewEVMClient(ctx, backend.Client(), wallet.ChainConfig{Symbol: "AVAX"})
	require.NoError(t, err)
	assert.Equal(t, int64(1337), client.ChainID().Int64())

	balance, err := client.Balance(ctx, sender.Address)
	require.NoError(t, err)
	assert.Equal(t, avax("10"), balance)

	to := common.HexToAddress(recipient)
	hash, err := client.SendNative(ctx, sender.Key, to, avax("1.5"))
	require.NoError(t, err)
	assert.NotEqual(t, common.Hash{}, hash)
	backend.Commit()

	got, err := client.Balance(ctx, to)
	require.NoError(t, err)
	assert.Equal(t, avax("1.5"), got)
}

func TestEVMClient_InsufficientFunds(t *testing.T) {
	ctx := context.Background()
	sender, err := wallet.NewAccount()
	require.NoError(t, err)
	backend := newSimulated(t, sender.Address, avax("1"))

	client, err := wallet.NewEVMClient(ctx, backend.Client(), wallet.ChainConfig{})
	require.NoError(t, err)

	_, err = client.SendNative(ctx, sender.Key, common.HexToAddress(recipient), avax("1"))
	assert.ErrorIs(t, err, wallet.ErrInsufficientFunds)
}

func TestEVMClient_ChainIDMismatch(t *testing.T) {
	sender, err := wallet.NewAccount()
	require.NoError(t, err)
	backend := newSimulated(t, sender.Address, avax("1"))

	_, err = wallet.NewEVMClient(context.Background(), backend.Client(), wallet.Mainnet)
	assert.ErrorContains(t, err, "expected 43114")
}

func TestEVMClient_DetectorSeesTransfer(t *testing.T) {
	ctx := context.Background()
	sender, err := wallet.NewAccount()
	require.NoError(t, err)
	receiver, err := wallet.NewAccount()
	require.NoError(t, err)
	backend := newSimulated(t, sender.Address, avax("5"))

	client, err := wallet.NewEVMClient(ctx, backend.Client(), wallet.ChainConfig{Symbol: "AVAX", ExplorerURL: "https://explorer.test"})
	require.NoError(t, err)

	store, err := kv.Open(ctx, filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	hist := history.NewStore(store)

	head, err := client.BlockNumber(ctx)
	require.NoError(t, err)
	detector := history.NewDetector(client, client.Signer(), hist, receiver.Address,
		history.WithStartBlock(head+1), history.WithExplorer(client.Chain().TxURL))

	hash, err := client.SendNative(ctx, sender.Key, receiver.Address, avax("2"))
	require.NoError(t, err)
	backend.Commit()

	recorded, err := detector.Scan(ctx)
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, hash.Hex(), recorded[0].Hash)
	assert.Equal(t, sender.Address.Hex(), recorded[0].Sender)
	assert.Equal(t, "2", recorded[0].Amount)
	assert.Equal(t, "https://explorer.test/tx/"+hash.Hex(), recorded[0].ExplorerURL)
}
