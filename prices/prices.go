// Package prices fetches spot prices from a CoinGecko-compatible API.
package prices

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/retry"
)

const (
	DefaultBaseURL = "https://api.coingecko.com/api/v3"
	DefaultTTL     = 60 * time.Second
)

// coinIDs maps ticker symbols to CoinGecko coin IDs.
var coinIDs = map[string]string{
	"AVAX":  "avalanche-2",
	"WAVAX": "wrapped-avax",
	"STX":   "blockstack",
	"ETH":   "ethereum",
	"USDC":  "usd-coin",
}

// Quote is one spot price.
type Quote struct {
	Symbol     string          `json:"symbol"`
	VsCurrency string          `json:"vsCurrency"`
	Price      decimal.Decimal `json:"price"`
	FetchedAt  time.Time       `json:"fetchedAt"`
}

// Client fetches prices and caches them for a short TTL.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cache      *ristretto.Cache
	ttl        time.Duration
	retry      retry.Config
	logger     *zap.Logger
	now        func() time.Time
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

func WithTTL(ttl time.Duration) Option {
	return func(cl *Client) { cl.ttl = ttl }
}

func WithRetry(cfg retry.Config) Option {
	return func(cl *Client) { cl.retry = cfg }
}

func WithLogger(logger *zap.Logger) Option {
	return func(cl *Client) {
		if logger != nil {
			cl.logger = logger
		}
	}
}

// NewClient creates a price client for baseURL (DefaultBaseURL when empty).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	c := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cache:      cache,
		ttl:        DefaultTTL,
		retry:      retry.Config{MaxAttempts: 3, Timeout: 10 * time.Second},
		logger:     zap.NewNop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Supported reports whether symbol has a known coin ID.
func Supported(symbol string) bool {
	_, ok := coinIDs[strings.ToUpper(strings.TrimSpace(symbol))]
	return ok
}

// Price returns the price of symbol in vs (default "usd").
func (c *Client) Price(ctx context.Context, symbol, vs string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	vs = strings.ToLower(strings.TrimSpace(vs))
	if vs == "" {
		vs = "usd"
	}

	id, ok := coinIDs[symbol]
	if !ok {
		return nil, &core.InvalidArgumentsError{Msg: fmt.Sprintf("unsupported symbol %q", symbol)}
	}

	key := symbol + "|" + vs
	if cached, ok := c.cache.Get(key); ok {
		quote := cached.(Quote)
		return &quote, nil
	}

	price, err := retry.Do(ctx, c.retry, func(ctx context.Context) (decimal.Decimal, error) {
		return c.fetch(ctx, id, vs)
	})
	if err != nil {
		return nil, err
	}

	quote := Quote{Symbol: symbol, VsCurrency: vs, Price: price, FetchedAt: c.now().UTC()}
	c.cache.SetWithTTL(key, quote, 1, c.ttl)
	c.cache.Wait()

	c.logger.Debug("price fetched", zap.String("symbol", symbol), zap.String("price", price.String()))
	return &quote, nil
}

// Close releases the cache.
func (c *Client) Close() {
	c.cache.Close()
}

func (c *Client) fetch(ctx context.Context, id, vs string) (decimal.Decimal, error) {
	q := url.Values{}
	q.Set("ids", id)
	q.Set("vs_currencies", vs)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/simple/price?"+q.Encode(), nil)
	if err != nil {
		return decimal.Zero, retry.Permanent(fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return decimal.Zero, fmt.Errorf("fetch price: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return decimal.Zero, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("price API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return decimal.Zero, err
		}
		return decimal.Zero, retry.Permanent(err)
	}

	var result map[string]map[string]decimal.Decimal
	if err := json.Unmarshal(body, &result); err != nil {
		return decimal.Zero, retry.Permanent(fmt.Errorf("unmarshal response: %w", err))
	}
	price, ok := result[id][vs]
	if !ok {
		return decimal.Zero, retry.Permanent(&core.NotFoundError{Msg: fmt.Sprintf("no %s price for %s", vs, id)})
	}
	return price, nil
}
