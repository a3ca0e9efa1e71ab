package wallet

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/core"
	"github.com/becomeliminal/nim-wallet/history"
)

// ErrorPrefix starts every failed ActionResult message.
const ErrorPrefix = "Error al procesar la solicitud: "

// HistoryLimit is the number of entries FETCH_HISTORY returns.
const HistoryLimit = 20

var (
	errMissingRecipient = errors.New("falta la dirección del destinatario")
	errMissingAmount    = errors.New("falta el monto")
)

// History is where the handler records and reads local transactions.
type History interface {
	Append(ctx context.Context, tx core.Transaction) (bool, error)
	Recent(ctx context.Context, n int, includePending bool) ([]core.Transaction, error)
}

// Handler executes the actions the dispatcher hands to the wallet.
type Handler struct {
	chain   ChainClient
	config  ChainConfig
	account *Account
	history History
	logger  *zap.Logger
	now     func() time.Time
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithHandlerLogger sets the handler logger.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithHandlerClock overrides time.Now for recorded entries.
func WithHandlerClock(now func() time.Time) HandlerOption {
	return func(h *Handler) { h.now = now }
}

// NewHandler creates a handler that signs with account on chain.
func NewHandler(chain ChainClient, config ChainConfig, account *Account, hist History, opts ...HandlerOption) *Handler {
	h := &Handler{
		chain:   chain,
		config:  config,
		account: account,
		history: hist,
		logger:  zap.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Address returns the account the handler acts for.
func (h *Handler) Address() common.Address {
	return h.account.Address
}

// Handle executes details and never returns an error: failures come back as
// an unsuccessful result carrying the error text.
func (h *Handler) Handle(ctx context.Context, details core.ActionDetails) core.ActionResult {
	var (
		result core.ActionResult
		err    error
	)

	switch details.Type {
	case core.ActionFetchBalance:
		result, err = h.fetchBalance(ctx)
	case core.ActionSendTransaction:
		result, err = h.send(ctx, details)
	case core.ActionFetchHistory:
		result, err = h.fetchHistory(ctx)
	case core.ActionWrap:
		result, err = h.wrap(ctx, details, true)
	case core.ActionUnwrap:
		result, err = h.wrap(ctx, details, false)
	default:
		err = fmt.Errorf("acción no soportada: %q", details.Type)
	}

	if err != nil {
		h.logger.Warn("action failed", zap.String("action", string(details.Type)), zap.Error(err))
		return core.ActionResult{Success: false, ResponseMessage: ErrorPrefix + err.Error()}
	}
	return result
}

func (h *Handler) fetchBalance(ctx context.Context) (core.ActionResult, error) {
	wei, err := h.chain.Balance(ctx, h.account.Address)
	if err != nil {
		return core.ActionResult{}, err
	}
	balance := FormatAmount(FromWei(wei))

	return core.ActionResult{
		Success:         true,
		ResponseMessage: fmt.Sprintf("Tu saldo es de %s %s.", balance, h.config.Symbol),
		Data: map[string]interface{}{
			"address":  h.account.Address.Hex(),
			"balance":  balance,
			"currency": h.config.Symbol,
			"network":  string(h.config.Network),
		},
	}, nil
}

func (h *Handler) send(ctx context.Context, details core.ActionDetails) (core.ActionResult, error) {
	to := strings.TrimSpace(details.RecipientAddress)
	if to == "" {
		return core.ActionResult{}, errMissingRecipient
	}
	if !core.IsAddress(to) {
		return core.ActionResult{}, fmt.Errorf("dirección de destinatario inválida: %s", to)
	}
	if strings.TrimSpace(details.Amount) == "" {
		return core.ActionResult{}, errMissingAmount
	}
	amount, err := core.ParseAmount(details.Amount)
	if err != nil {
		return core.ActionResult{}, err
	}
	currency := core.NormalizeCurrency(details.Currency)
	if currency != h.config.Symbol {
		return core.ActionResult{}, fmt.Errorf("moneda no soportada: %s", currency)
	}

	recipient := common.HexToAddress(to)
	hash, err := h.chain.SendNative(ctx, h.account.Key, recipient, ToWei(amount))
	if err != nil {
		return core.ActionResult{}, err
	}

	explorerURL := h.config.TxURL(hash.Hex())
	entry := core.Transaction{
		Hash:        hash.Hex(),
		Type:        core.TxSent,
		Amount:      amount.String(),
		Currency:    currency,
		Recipient:   recipient.Hex(),
		Sender:      h.account.Address.Hex(),
		Timestamp:   h.now().UTC(),
		ExplorerURL: explorerURL,
		Source:      core.SourceLocal,
	}
	if details.RecipientEmail != "" && !core.IsAddress(details.RecipientEmail) {
		entry.RecipientNickname = details.RecipientEmail
	}
	// The transfer is already broadcast; a history failure must not report it as failed.
	if _, err := h.history.Append(ctx, entry); err != nil {
		h.logger.Error("record sent transaction", zap.String("hash", entry.Hash), zap.Error(err))
	}

	return core.ActionResult{
		Success: true,
		ResponseMessage: fmt.Sprintf("Transacción enviada: %s %s a %s. Hash: %s",
			entry.Amount, currency, recipient.Hex(), entry.Hash),
		Data: map[string]interface{}{
			"hash":        entry.Hash,
			"explorerUrl": explorerURL,
			"amount":      entry.Amount,
			"currency":    currency,
			"recipient":   recipient.Hex(),
		},
	}, nil
}

func (h *Handler) fetchHistory(ctx context.Context) (core.ActionResult, error) {
	items, err := h.history.Recent(ctx, HistoryLimit, false)
	if err != nil {
		return core.ActionResult{}, err
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return core.ActionResult{
		Success:         true,
		ResponseMessage: history.FormatForDisplay(items),
		Data:            items,
	}, nil
}

func (h *Handler) wrap(ctx context.Context, details core.ActionDetails, wrap bool) (core.ActionResult, error) {
	if strings.TrimSpace(details.Amount) == "" {
		return core.ActionResult{}, errMissingAmount
	}
	amount, err := core.ParseAmount(details.Amount)
	if err != nil {
		return core.ActionResult{}, err
	}

	op, verb := h.chain.Unwrap, "Convertiste %s W%s a %s."
	if wrap {
		op, verb = h.chain.Wrap, "Convertiste %s %s a W%s."
	}
	hash, err := op(ctx, h.account.Key, ToWei(amount))
	if err != nil {
		return core.ActionResult{}, err
	}

	message := fmt.Sprintf(verb, amount.String(), h.config.Symbol, h.config.Symbol)
	return core.ActionResult{
		Success:         true,
		ResponseMessage: fmt.Sprintf("%s Hash: %s", message, hash.Hex()),
		Data: map[string]interface{}{
			"hash":        hash.Hex(),
			"explorerUrl": h.config.TxURL(hash.Hex()),
			"amount":      amount.String(),
		},
	}, nil
}
