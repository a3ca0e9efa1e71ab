package users

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/storage"
	"github.com/becomeliminal/nim-wallet/wallet"
)

// Faucet defaults.
const (
	DefaultFaucetAmount   = "0.05"
	DefaultFaucetCooldown = 24 * time.Hour
)

// NativeSender broadcasts native-token transfers.
type NativeSender interface {
	SendNative(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, wei *big.Int) (common.Hash, error)
}

type FaucetConfig struct {
	Amount   decimal.Decimal
	Cooldown time.Duration
}

// ClaimResult describes a successful faucet payout.
type ClaimResult struct {
	Hash        string    `json:"hash"`
	ExplorerURL string    `json:"explorerUrl"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	Recipient   string    `json:"recipient"`
	NextClaimAt time.Time `json:"nextClaimAt"`
}

// Faucet pays testnet tokens to registered testnet wallets, at most once per
// cooldown per user.
type Faucet struct {
	users   storage.UserRepository
	sender  NativeSender
	account *wallet.Account
	chain   wallet.ChainConfig
	cfg     FaucetConfig
	logger  *zap.Logger
	now     func() time.Time

	mu sync.Mutex
}

func NewFaucet(users storage.UserRepository, sender NativeSender, account *wallet.Account, chain wallet.ChainConfig, cfg FaucetConfig, logger *zap.Logger) (*Faucet, error) {
	if chain.Network != core.Testnet {
		return nil, errors.New("faucet only runs on testnet")
	}
	if account == nil {
		return nil, errors.New("faucet account is required")
	}
	if !cfg.Amount.IsPositive() {
		cfg.Amount = decimal.RequireFromString(DefaultFaucetAmount)
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultFaucetCooldown
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Faucet{
		users:   users,
		sender:  sender,
		account: account,
		chain:   chain,
		cfg:     cfg,
		logger:  logger,
		now:     time.Now,
	}, nil
}

// Claim sends the faucet amount to the user's testnet wallet.
func (f *Faucet) Claim(ctx context.Context, userID string) (*ClaimResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	profile, err := f.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	to := profile.WalletAddressTestnet
	if to == "" {
		return nil, &core.InvalidArgumentsError{Msg: "register a testnet wallet before using the faucet"}
	}

	now := f.now().UTC()
	if last := profile.FaucetLastUsedAt; last != nil {
		next := last.Add(f.cfg.Cooldown)
		if now.Before(next) {
			return nil, &core.CooldownError{Msg: fmt.Sprintf("faucet available again at %s", next.Format(time.RFC3339))}
		}
	}

	hash, err := f.sender.SendNative(ctx, f.account.Key, common.HexToAddress(to), wallet.ToWei(f.cfg.Amount))
	if err != nil {
		return nil, fmt.Errorf("faucet transfer: %w", err)
	}

	profile.FaucetLastUsedAt = &now
	profile.FaucetUseCount++
	profile.UpdatedAt = now
	if err := f.users.Update(ctx, profile); err != nil {
		// The transfer went out; the cooldown will not be enforced for this claim.
		f.logger.Error("record faucet use", zap.String("user", userID), zap.String("hash", hash.Hex()), zap.Error(err))
	}

	f.logger.Info("faucet claim",
		zap.String("user", userID),
		zap.String("to", to),
		zap.String("hash", hash.Hex()),
	)
	return &ClaimResult{
		Hash:        hash.Hex(),
		ExplorerURL: f.chain.TxURL(hash.Hex()),
		Amount:      f.cfg.Amount.String(),
		Currency:    f.chain.Symbol,
		Recipient:   to,
		NextClaimAt: now.Add(f.cfg.Cooldown),
	}, nil
}
