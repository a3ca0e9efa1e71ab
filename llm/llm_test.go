package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/llm"
	"github.com/becomeliminal/nim-wallet/retry"
	"github.com/becomeliminal/nim-wallet/tools"
)

func TestOpenRouterComplete(t *testing.T) {
	var got map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"  {\"action\":\"GREETING\"}  "}}]}`))
	}))
	defer srv.Close()

	p, err := llm.NewOpenRouter(llm.OpenRouterConfig{APIKey: "key", BaseURL: srv.URL, Model: "m"})
	require.NoError(t, err)

	text, err := p.Complete(context.Background(), llm.Request{
		System: "sys",
		Prompt: "hola",
		Schema: tools.ConversationStateSchema(),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"action":"GREETING"}`, text)

	assert.Equal(t, "m", got["model"])
	messages := got["messages"].([]interface{})
	assert.Len(t, messages, 2)
	format := got["response_format"].(map[string]interface{})
	assert.Equal(t, "json_schema", format["type"])
}

func TestOpenRouterStatusClassification(t *testing.T) {
	testCases := []struct {
		name      string
		status    int
		permanent bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, permanent: false},
		{name: "server error", status: http.StatusBadGateway, permanent: false},
		{name: "bad request", status: http.StatusBadRequest, permanent: true},
	}

	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer srv.Close()

			p, err := llm.NewOpenRouter(llm.OpenRouterConfig{APIKey: "key", BaseURL: srv.URL})
			require.NoError(t, err)

			_, err = p.Complete(context.Background(), llm.Request{Prompt: "x"})
			require.Error(t, err)
			assert.Equal(t, tt.permanent, retry.IsPermanent(err))
		})
	}
}

type flakyProvider struct {
	failures int
	calls    int
}

func (f *flakyProvider) Name() string { return "flaky" }

func (f *flakyProvider) Complete(ctx context.Context, req llm.Request) (string, error) {
	f.calls++
	if f.calls <= f.failures {
		return "", errors.New("unavailable")
	}
	return "done", nil
}

func TestWithRetry(t *testing.T) {
	inner := &flakyProvider{failures: 2}
	p := llm.WithRetry(inner, retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}, nil)

	text, err := p.Complete(context.Background(), llm.Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "done", text)
	assert.Equal(t, 3, inner.calls)
	assert.Equal(t, "flaky", p.Name())
}

func TestNewRejectsUnknownProvider(t *testing.T) {
	_, err := llm.New(context.Background(), "davinci", llm.Keys{}, "")
	require.Error(t, err)

	_, err = llm.New(context.Background(), "anthropic", llm.Keys{}, "")
	require.Error(t, err, "missing key must be reported")
}
