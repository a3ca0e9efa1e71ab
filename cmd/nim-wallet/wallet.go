package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/client"
	"github.com/becomeliminal/nim-wallet/config"
	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/history"
	"github.com/becomeliminal/nim-wallet/kv"
	"github.com/becomeliminal/nim-wallet/wallet"
)

// localWallet is everything the wallet-side commands share.
type localWallet struct {
	cfg     config.Client
	network core.Network
	store   *kv.Store
	account *wallet.Account
	evm     *wallet.EVMClient
	history *history.Store
	handler *wallet.Handler
	api     *client.API
	token   string
}

func (w *localWallet) Close() {
	if err := w.store.Close(); err != nil {
		logger.Warn("close wallet store", zap.Error(err))
	}
}

// openWallet loads the client config, opens the local store and dials the
// chain. A private key is generated and saved on first use.
func openWallet(ctx context.Context) (*localWallet, error) {
	cfg, _, err := config.LoadClient()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := newLogger(cfg.LogLevel, false); err != nil {
		return nil, err
	}

	network, ok := core.ParseNetwork(cfg.Network)
	if !ok {
		return nil, fmt.Errorf("unknown NETWORK %q", cfg.Network)
	}

	var kvOpts []kv.Option
	kvOpts = append(kvOpts, kv.WithLogger(logger))
	if cfg.EncryptionKey != "" {
		kvOpts = append(kvOpts, kv.WithEncryption(cfg.EncryptionKey))
	} else {
		logger.Warn("KV_ENCRYPTION_KEY not set, the private key is stored unencrypted", zap.String("path", cfg.KVPath))
	}
	store, err := kv.Open(ctx, cfg.KVPath, kvOpts...)
	if err != nil {
		return nil, err
	}

	w := &localWallet{cfg: cfg, network: network, store: store}
	if err := w.init(ctx); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}

func (w *localWallet) init(ctx context.Context) error {
	account, err := w.loadAccount(ctx)
	if err != nil {
		return err
	}
	w.account = account

	chain := wallet.ChainFor(w.network, w.cfg.RPCURL)
	evm, err := wallet.Dial(ctx, chain, wallet.WithEVMLogger(logger))
	if err != nil {
		return fmt.Errorf("dial %s: %w", chain.RPCURL, err)
	}
	w.evm = evm
	w.history = history.NewStore(w.store)
	w.handler = wallet.NewHandler(evm, chain, account, w.history, wallet.WithHandlerLogger(logger))

	token, err := w.loadToken(ctx)
	if err != nil {
		return err
	}
	w.token = token
	w.api = client.NewAPI(w.cfg.BackendURL, client.WithToken(token))
	return nil
}

func (w *localWallet) loadAccount(ctx context.Context) (*wallet.Account, error) {
	hexKey, err := w.store.Get(ctx, kv.KeyUserPrivateKey)
	if err == nil {
		return wallet.AccountFromHex(hexKey)
	}
	if !errors.Is(err, kv.ErrNotFound) {
		return nil, fmt.Errorf("read private key: %w", err)
	}

	account, err := wallet.NewAccount()
	if err != nil {
		return nil, err
	}
	if err := w.store.Set(ctx, kv.KeyUserPrivateKey, account.PrivateKeyHex()); err != nil {
		return nil, fmt.Errorf("save private key: %w", err)
	}
	logger.Info("created wallet", zap.String("address", account.Address.Hex()))
	return account, nil
}

// loadToken prefers USER_TOKEN and remembers it for later runs.
func (w *localWallet) loadToken(ctx context.Context) (string, error) {
	if w.cfg.Token != "" {
		if err := w.store.Set(ctx, kv.KeyUserToken, w.cfg.Token); err != nil {
			return "", fmt.Errorf("save token: %w", err)
		}
		return w.cfg.Token, nil
	}
	token, err := w.store.Get(ctx, kv.KeyUserToken)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	return token, err
}

// registerAddress tells the backend which address this wallet uses on the
// current network. Saving the same address again is a no-op server side.
func (w *localWallet) registerAddress(ctx context.Context) {
	if w.token == "" {
		logger.Info("no session token, skipping wallet registration")
		return
	}
	profile, err := w.api.SaveWallet(ctx, w.network, w.account.Address.Hex())
	if err != nil {
		logger.Warn("register wallet address", zap.Error(err))
		return
	}
	if err := w.store.Set(ctx, kv.KeyUserID, profile.GoogleUserID); err != nil {
		logger.Warn("save user id", zap.Error(err))
	}
}

func runHistory(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	entries, err := w.history.Recent(ctx, wallet.HistoryLimit, true)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), history.FormatForDisplay(entries))
	return nil
}

func runWrap(cmd *cobra.Command, args []string) error {
	return runConversion(cmd, core.ActionWrap, args[0])
}

func runUnwrap(cmd *cobra.Command, args []string) error {
	return runConversion(cmd, core.ActionUnwrap, args[0])
}

func runConversion(cmd *cobra.Command, action core.ActionType, amount string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	result := w.handler.Handle(ctx, core.ActionDetails{Type: action, Amount: amount})
	fmt.Fprintln(cmd.OutOrStdout(), result.ResponseMessage)
	if !result.Success {
		return errors.New("conversion failed")
	}
	return nil
}

func runFaucet(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	w, err := openWallet(ctx)
	if err != nil {
		return err
	}
	defer w.Close()

	if w.network != core.Testnet {
		return errors.New("the faucet only pays out on testnet")
	}

	var until time.Time
	err = w.store.GetJSON(ctx, kv.KeyFaucetCooldownUntil, &until)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		return err
	}
	if time.Now().Before(until) {
		return fmt.Errorf("faucet already claimed, try again after %s", until.Local().Format(time.RFC1123))
	}

	w.registerAddress(ctx)
	claim, err := w.api.ClaimFaucet(ctx)
	if err != nil {
		var cooldown *core.CooldownError
		if errors.As(err, &cooldown) {
			return fmt.Errorf("faucet cooling down: %w", err)
		}
		return err
	}
	if err := w.store.SetJSON(ctx, kv.KeyFaucetCooldownUntil, claim.NextClaimAt); err != nil {
		logger.Warn("save faucet cooldown", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Received %s %s\n", claim.Amount, claim.Currency)
	fmt.Fprintln(out, claim.ExplorerURL)
	return nil
}
