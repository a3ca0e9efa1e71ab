package client_test

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/auth"
	"github.com/becomeliminal/nim-wallet/client"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/engine"
	"github.com/becomeliminal/nim-wallet/history"
	"github.com/becomeliminal/nim-wallet/llm"
	"github.com/becomeliminal/nim-wallet/server"
	"github.com/becomeliminal/nim-wallet/wallet"
)

// cannedModel answers completions in order.
type cannedModel struct {
	mu      sync.Mutex
	replies []string
}

func (m *cannedModel) Name() string { return "canned" }

func (m *cannedModel) Complete(context.Context, llm.Request) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.replies) == 0 {
		return "", errors.New("no reply left")
	}
	r := m.replies[0]
	m.replies = m.replies[1:]
	return r, nil
}

// recordingChain accepts every transfer.
type recordingChain struct {
	sent []common.Address
}

func (c *recordingChain) Balance(context.Context, common.Address) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (c *recordingChain) SendNative(_ context.Context, _ *ecdsa.PrivateKey, to common.Address, _ *big.Int) (common.Hash, error) {
	c.sent = append(c.sent, to)
	return common.HexToHash("0xbeef"), nil
}

func (c *recordingChain) Wrap(context.Context, *ecdsa.PrivateKey, *big.Int) (common.Hash, error) {
	return common.Hash{}, errors.New("not supported")
}

func (c *recordingChain) Unwrap(context.Context, *ecdsa.PrivateKey, *big.Int) (common.Hash, error) {
	return common.Hash{}, errors.New("not supported")
}

func (c *recordingChain) ChainID() *big.Int { return big.NewInt(43113) }

func TestEndToEnd_ConfirmedSend(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	const to = "0xAbC0000000000000000000000000000000000123"

	model := &cannedModel{replies: []string{
		`{"action":"SEND","parameters":{"recipientAddress":"` + to + `","amount":"10","currency":"AVAX"},"confirmationRequired":true,"confirmationMessage":"¿Envío 10 AVAX a ` + to + `?","responseMessage":"¿Envío 10 AVAX a ` + to + `?"}`,
		`{"action":"SEND","parameters":{"recipientAddress":"` + to + `","amount":"10","currency":"AVAX"},"confirmationRequired":false,"responseMessage":"Enviando 10 AVAX..."}`,
		"Listo, enviaste 10 AVAX.",
	}}

	tokens, err := auth.NewTokens("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)
	token, err := tokens.Issue("g-1", "ana@example.com")
	require.NoError(t, err)

	router := server.NewRouter(server.Deps{
		Agent:  engine.NewEngine(model),
		Tokens: tokens,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	store := openKV(t)
	hist := history.NewStore(store)
	account, err := wallet.NewAccount()
	require.NoError(t, err)
	chain := &recordingChain{}
	handler := wallet.NewHandler(chain, wallet.Fuji, account, hist)

	session := client.NewSession(client.NewAPI(srv.URL, client.WithToken(token)), handler, store,
		client.WithNetwork(core.Testnet))

	turn, err := session.Send(ctx, "send 10 AVAX to "+to)
	require.NoError(t, err)
	require.Nil(t, turn.Action)
	require.NotNil(t, turn.State)
	assert.True(t, turn.State.AwaitingConfirmation())
	assert.Empty(t, chain.sent)

	turn, err = session.Send(ctx, "yes")
	require.NoError(t, err)
	require.NotNil(t, turn.Action)
	assert.Equal(t, core.ActionDetails{
		Type:             core.ActionSendTransaction,
		RecipientAddress: to,
		Amount:           "10",
		Currency:         "AVAX",
	}, *turn.Action)
	require.NotNil(t, turn.Result)
	assert.True(t, turn.Result.Success, turn.Result.ResponseMessage)
	assert.Equal(t, []string{"Enviando 10 AVAX...", "Listo, enviaste 10 AVAX."}, turn.Messages)
	assert.Nil(t, turn.State)

	require.Equal(t, []common.Address{common.HexToAddress(to)}, chain.sent)
	entries, err := hist.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, core.TxSent, entries[0].Type)
	assert.Equal(t, common.HexToHash("0xbeef").Hex(), entries[0].Hash)
}
