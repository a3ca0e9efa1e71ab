package history

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
)

// BlockReader reads blocks from the chain.
type BlockReader interface {
	BlockNumber(ctx context.Context) (uint64, error)
	BlockByNumber(ctx context.Context, number uint64) (*types.Block, error)
}

// NicknameFunc maps an address to a contact nickname, or "".
type NicknameFunc func(ctx context.Context, address string) string

// Detector scans new blocks for native transfers to the account and records
// them with the real sender. Hashes already in the store are skipped.
type Detector struct {
	blocks    BlockReader
	signer    types.Signer
	store     *Store
	account   common.Address
	currency  string
	interval  time.Duration
	maxBlocks uint64
	txURL     func(hash string) string
	nickname  NicknameFunc
	logger    *zap.Logger

	next uint64
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithScanInterval sets the time between scans. Default 10s.
func WithScanInterval(d time.Duration) DetectorOption {
	return func(det *Detector) {
		if d > 0 {
			det.interval = d
		}
	}
}

// WithMaxBlocksPerScan bounds how far one scan catches up. Default 50.
func WithMaxBlocksPerScan(n uint64) DetectorOption {
	return func(d *Detector) {
		if n > 0 {
			d.maxBlocks = n
		}
	}
}

// WithExplorer sets the function that links a hash on the block explorer.
func WithExplorer(txURL func(hash string) string) DetectorOption {
	return func(d *Detector) { d.txURL = txURL }
}

// WithNicknames sets the sender nickname lookup.
func WithNicknames(fn NicknameFunc) DetectorOption {
	return func(d *Detector) { d.nickname = fn }
}

// WithStartBlock makes the first scan begin at n instead of the chain head.
func WithStartBlock(n uint64) DetectorOption {
	return func(d *Detector) { d.next = n }
}

// WithDetectorCurrency sets the symbol recorded on entries.
func WithDetectorCurrency(symbol string) DetectorOption {
	return func(d *Detector) { d.currency = symbol }
}

// WithDetectorLogger sets the detector logger.
func WithDetectorLogger(logger *zap.Logger) DetectorOption {
	return func(d *Detector) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDetector creates a detector for account.
func NewDetector(blocks BlockReader, signer types.Signer, store *Store, account common.Address, opts ...DetectorOption) *Detector {
	d := &Detector{
		blocks:    blocks,
		signer:    signer,
		store:     store,
		account:   account,
		currency:  core.NativeCurrency,
		interval:  10 * time.Second,
		maxBlocks: 50,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run scans until ctx is done.
func (d *Detector) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		if _, err := d.Scan(ctx); err != nil && ctx.Err() == nil {
			d.logger.Warn("block scan failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Scan processes blocks up to the current head, at most maxBlocks of them,
// and returns the entries it recorded.
func (d *Detector) Scan(ctx context.Context) ([]core.Transaction, error) {
	head, err := d.blocks.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	if d.next == 0 {
		d.next = head
	}
	if d.next > head {
		return nil, nil
	}

	last := head
	if last-d.next >= d.maxBlocks {
		last = d.next + d.maxBlocks - 1
	}

	var recorded []core.Transaction
	for n := d.next; n <= last; n++ {
		block, err := d.blocks.BlockByNumber(ctx, n)
		if err != nil {
			return recorded, err
		}

		for _, tx := range block.Transactions() {
			entry, ok := d.match(ctx, block, tx)
			if !ok {
				continue
			}
			added, err := d.store.Append(ctx, entry)
			if err != nil {
				return recorded, err
			}
			if added {
				d.logger.Info("incoming transfer detected",
					zap.String("hash", entry.Hash),
					zap.String("from", entry.Sender),
					zap.String("amount", entry.Amount),
				)
				recorded = append(recorded, entry)
			}
		}
		d.next = n + 1
	}
	return recorded, nil
}

func (d *Detector) match(ctx context.Context, block *types.Block, tx *types.Transaction) (core.Transaction, bool) {
	to := tx.To()
	if to == nil || *to != d.account || tx.Value() == nil || tx.Value().Sign() <= 0 {
		return core.Transaction{}, false
	}

	from, err := types.Sender(d.signer, tx)
	if err != nil {
		return core.Transaction{}, false
	}

	hash := tx.Hash().Hex()
	entry := core.Transaction{
		Hash:      hash,
		Type:      core.TxReceived,
		Amount:    decimal.NewFromBigInt(tx.Value(), -nativeDecimals).String(),
		Currency:  d.currency,
		Sender:    from.Hex(),
		Recipient: d.account.Hex(),
		Timestamp: time.Unix(int64(block.Time()), 0).UTC(),
		Confirmed: true,
		Source:    core.SourceScan,
	}
	if d.txURL != nil {
		entry.ExplorerURL = d.txURL(hash)
	}
	if d.nickname != nil {
		entry.SenderNickname = d.nickname(ctx, entry.Sender)
	}
	return entry, true
}
