package history

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
)

// Poller defaults.
const (
	DefaultPollInterval = 30 * time.Second
	DefaultEpsilon      = "0.0001"
)

const nativeDecimals = 18

// BalanceReader reads the native balance of an account in wei.
type BalanceReader interface {
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
}

// Poller turns unexplained balance increases into received entries.
//
// The first tick only records a baseline. On later ticks an increase larger
// than epsilon, minus whatever the block scanner already attributed since the
// previous tick, is recorded with sender Unknown. Ticks run on the caller's
// goroutine one after another, so they never overlap.
type Poller struct {
	balances BalanceReader
	store    *Store
	account  common.Address
	currency string
	interval time.Duration
	epsilon  decimal.Decimal
	logger   *zap.Logger
	now      func() time.Time

	last     *decimal.Decimal
	lastTick time.Time
}

// PollerOption configures a Poller.
type PollerOption func(*Poller)

// WithInterval sets the time between ticks.
func WithInterval(d time.Duration) PollerOption {
	return func(p *Poller) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithEpsilon sets the smallest increase that counts as a transfer.
func WithEpsilon(eps decimal.Decimal) PollerOption {
	return func(p *Poller) { p.epsilon = eps }
}

// WithCurrency sets the symbol recorded on synthesized entries.
func WithCurrency(symbol string) PollerOption {
	return func(p *Poller) { p.currency = symbol }
}

// WithPollerLogger sets the poller logger.
func WithPollerLogger(logger *zap.Logger) PollerOption {
	return func(p *Poller) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPollerClock overrides time.Now.
func WithPollerClock(now func() time.Time) PollerOption {
	return func(p *Poller) { p.now = now }
}

// NewPoller creates a poller for account.
func NewPoller(balances BalanceReader, store *Store, account common.Address, opts ...PollerOption) *Poller {
	p := &Poller{
		balances: balances,
		store:    store,
		account:  account,
		currency: core.NativeCurrency,
		interval: DefaultPollInterval,
		epsilon:  decimal.RequireFromString(DefaultEpsilon),
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run ticks immediately and then every interval until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	p.logger.Info("balance poller started",
		zap.String("account", p.account.Hex()),
		zap.Duration("interval", p.interval),
	)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		if _, err := p.Tick(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("balance poll failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			p.logger.Info("balance poller stopped")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Tick reads the balance once. It returns the synthesized entry, if any.
func (p *Poller) Tick(ctx context.Context) (*core.Transaction, error) {
	wei, err := p.balances.Balance(ctx, p.account)
	if err != nil {
		return nil, err
	}
	current := decimal.NewFromBigInt(wei, -nativeDecimals)
	tickAt := p.now().UTC()

	previous, previousTick := p.last, p.lastTick
	p.last, p.lastTick = &current, tickAt

	if previous == nil {
		p.logger.Debug("balance baseline", zap.String("balance", current.String()))
		return nil, nil
	}

	delta := current.Sub(*previous)
	if delta.LessThanOrEqual(p.epsilon) {
		return nil, nil
	}

	attributed, err := p.store.ReceivedSince(ctx, previousTick)
	if err != nil {
		return nil, err
	}
	unexplained := delta.Sub(attributed)
	if unexplained.LessThanOrEqual(p.epsilon) {
		return nil, nil
	}

	tx := core.Transaction{
		Type:      core.TxReceived,
		Amount:    unexplained.String(),
		Currency:  p.currency,
		Sender:    core.UnknownCounterparty,
		Recipient: p.account.Hex(),
		Timestamp: tickAt,
		Confirmed: true,
		Source:    core.SourcePoll,
	}
	if _, err := p.store.Append(ctx, tx); err != nil {
		return nil, err
	}

	p.logger.Info("incoming transfer detected from balance change",
		zap.String("amount", tx.Amount),
		zap.String("attributed", attributed.String()),
	)
	return &tx, nil
}
