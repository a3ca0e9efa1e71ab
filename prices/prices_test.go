package prices_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/prices"
	"github.com/becomeliminal/nim-wallet/retry"
)

func TestClient_PriceIsCached(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/simple/price", r.URL.Path)
		assert.Equal(t, "avalanche-2", r.URL.Query().Get("ids"))
		assert.Equal(t, "usd", r.URL.Query().Get("vs_currencies"))
		_, _ = w.Write([]byte(`{"avalanche-2":{"usd":27.45}}`))
	}))
	defer srv.Close()

	c, err := prices.NewClient(srv.URL)
	require.NoError(t, err)
	defer c.Close()

	q, err := c.Price(context.Background(), "avax", "")
	require.NoError(t, err)
	assert.Equal(t, "AVAX", q.Symbol)
	assert.Equal(t, "usd", q.VsCurrency)
	assert.Equal(t, "27.45", q.Price.String())

	_, err = c.Price(context.Background(), "AVAX", "USD")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"ethereum":{"usd":3100}}`))
	}))
	defer srv.Close()

	c, err := prices.NewClient(srv.URL, prices.WithRetry(retry.Config{MaxAttempts: 2, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	defer c.Close()

	q, err := c.Price(context.Background(), "ETH", "usd")
	require.NoError(t, err)
	assert.Equal(t, "3100", q.Price.String())
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c, err := prices.NewClient(srv.URL, prices.WithRetry(retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond}))
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Price(context.Background(), "USDC", "usd")
	assert.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_UnknownSymbol(t *testing.T) {
	c, err := prices.NewClient("http://127.0.0.1:0")
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Price(context.Background(), "DOGE", "usd")
	assert.ErrorIs(t, err, &core.InvalidArgumentsError{})
	assert.False(t, prices.Supported("doge"))
	assert.True(t, prices.Supported("stx"))
}

func TestClient_MissingCurrency(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"blockstack":{}}`))
	}))
	defer srv.Close()

	c, err := prices.NewClient(srv.URL)
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Price(context.Background(), "STX", "eur")
	assert.ErrorIs(t, err, &core.NotFoundError{})
}
