package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/client"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/history"
	"github.com/becomeliminal/nim-wallet/kv"
)

type echoBackend struct {
	messages []string
}

func (b *echoBackend) Chat(_ context.Context, req client.ChatRequest) (*client.Reply, error) {
	b.messages = append(b.messages, req.Message)
	return &client.Reply{ResponseMessage: "eco: " + req.Message}, nil
}

func (b *echoBackend) ReportResult(context.Context, client.ReportRequest) (*client.Reply, error) {
	return &client.Reply{}, nil
}

func (b *echoBackend) ReportEnrichedResult(context.Context, client.ReportRequest) (*client.Reply, error) {
	return &client.Reply{}, nil
}

type noopHandler struct{}

func (noopHandler) Handle(context.Context, core.ActionDetails) core.ActionResult {
	return core.ActionResult{}
}

func TestChatLoop(t *testing.T) {
	logger = zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := kv.Open(ctx, filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	backend := &echoBackend{}
	session := client.NewSession(backend, noopHandler{}, store)

	in := strings.NewReader("hola\n\n/history\n/reset\n/quit\nignored\n")
	var out bytes.Buffer
	require.NoError(t, chatLoop(ctx, in, &out, session, history.NewStore(store)))

	assert.Equal(t, []string{"hola"}, backend.messages)
	assert.Contains(t, out.String(), "eco: hola")
	assert.Contains(t, out.String(), "Conversation cleared.")
}

func TestChatLoop_StopsAtEOF(t *testing.T) {
	logger = zap.NewNop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := kv.Open(ctx, filepath.Join(t.TempDir(), "wallet.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	session := client.NewSession(&echoBackend{}, noopHandler{}, store)
	var out bytes.Buffer
	assert.NoError(t, chatLoop(ctx, strings.NewReader("uno\n"), &out, session, history.NewStore(store)))
	assert.Contains(t, out.String(), "eco: uno")
}

func TestContactNicknames(t *testing.T) {
	logger = zap.NewNop()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"contacts":[
			{"id":"1","nickname":"ana","type":"address","value":"0xAbC0000000000000000000000000000000000123"},
			{"id":"2","nickname":"luis","type":"email","value":"luis@example.com"}
		]}`))
	}))
	t.Cleanup(srv.Close)

	lookup := contactNicknames(context.Background(), client.NewAPI(srv.URL, client.WithToken("t")))

	assert.Equal(t, "ana", lookup(context.Background(), "0xabc0000000000000000000000000000000000123"))
	assert.Empty(t, lookup(context.Background(), "0x0000000000000000000000000000000000000001"))
}

func TestContactNicknames_BackendDown(t *testing.T) {
	logger = zap.NewNop()
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	lookup := contactNicknames(context.Background(), client.NewAPI(srv.URL))
	assert.Empty(t, lookup(context.Background(), "0xabc0000000000000000000000000000000000123"))
}
