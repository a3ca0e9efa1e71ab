package wallet

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/becomeliminal/nim-wallet/retry"
)

// ErrInsufficientFunds is returned before broadcasting when the account
// cannot cover value plus the maximum fee.
var ErrInsufficientFunds = errors.New("insufficient funds for amount plus network fee")

const nativeTransferGas = 21000

// wavaxABI is the subset of the WAVAX (WETH9) contract the wallet calls.
const wavaxABI = `[
	{"type":"function","name":"deposit","stateMutability":"payable","inputs":[],"outputs":[]},
	{"type":"function","name":"withdraw","stateMutability":"nonpayable","inputs":[{"name":"wad","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"owner","type":"address"}],"outputs":[{"name":"","type":"uint256"}]}
]`

// ChainClient is the wallet's view of the chain.
type ChainClient interface {
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	SendNative(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, wei *big.Int) (common.Hash, error)
	Wrap(ctx context.Context, key *ecdsa.PrivateKey, wei *big.Int) (common.Hash, error)
	Unwrap(ctx context.Context, key *ecdsa.PrivateKey, wei *big.Int) (common.Hash, error)
	ChainID() *big.Int
}

// Backend is the RPC surface EVMClient needs. *ethclient.Client and the
// go-ethereum simulated client both satisfy it.
type Backend interface {
	ethereum.ChainStateReader
	ethereum.ContractCaller
	ethereum.GasEstimator
	ethereum.GasPricer1559
	ethereum.PendingStateReader
	ethereum.TransactionSender
	ethereum.BlockNumberReader
	HeaderByNumber(ctx context.Context, number *big.Int) (*types.Header, error)
	BlockByNumber(ctx context.Context, number *big.Int) (*types.Block, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// EVMClient implements ChainClient over a JSON-RPC backend.
type EVMClient struct {
	backend Backend
	chain   ChainConfig
	chainID *big.Int
	signer  types.Signer
	wavax   abi.ABI
	reads   retry.Config
	logger  *zap.Logger
}

// EVMOption configures an EVMClient.
type EVMOption func(*EVMClient)

// WithReadRetry overrides the retry policy applied to read calls.
func WithReadRetry(cfg retry.Config) EVMOption {
	return func(c *EVMClient) { c.reads = cfg }
}

// WithEVMLogger sets the client logger.
func WithEVMLogger(logger *zap.Logger) EVMOption {
	return func(c *EVMClient) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Dial connects to chain.RPCURL and verifies the chain ID.
func Dial(ctx context.Context, chain ChainConfig, opts ...EVMOption) (*EVMClient, error) {
	rpc, err := ethclient.DialContext(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", chain.RPCURL, err)
	}
	c, err := NewEVMClient(ctx, rpc, chain, opts...)
	if err != nil {
		rpc.Close()
		return nil, err
	}
	return c, nil
}

// NewEVMClient wraps an existing backend. When chain.ChainID is nil the
// backend's chain ID is adopted; otherwise the two must agree.
func NewEVMClient(ctx context.Context, backend Backend, chain ChainConfig, opts ...EVMOption) (*EVMClient, error) {
	parsed, err := abi.JSON(strings.NewReader(wavaxABI))
	if err != nil {
		return nil, fmt.Errorf("parse wavax abi: %w", err)
	}

	c := &EVMClient{
		backend: backend,
		chain:   chain,
		wavax:   parsed,
		reads:   retry.Config{MaxAttempts: 3, Timeout: retry.DefaultConfig.Timeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	id, err := retry.Do(ctx, c.reads, backend.ChainID)
	if err != nil {
		return nil, fmt.Errorf("chain id: %w", err)
	}
	if chain.ChainID != nil && chain.ChainID.Cmp(id) != 0 {
		return nil, fmt.Errorf("rpc %s serves chain %s, expected %s", chain.RPCURL, id, chain.ChainID)
	}

	c.chainID = id
	c.chain.ChainID = id
	c.signer = types.LatestSignerForChainID(id)
	return c, nil
}

// ChainID returns the chain the client is connected to.
func (c *EVMClient) ChainID() *big.Int {
	return new(big.Int).Set(c.chainID)
}

// Chain returns the client's chain configuration.
func (c *EVMClient) Chain() ChainConfig {
	return c.chain
}

// Balance returns the latest native balance of account in wei.
func (c *EVMClient) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	return retry.Do(ctx, c.reads, func(ctx context.Context) (*big.Int, error) {
		return c.backend.BalanceAt(ctx, account, nil)
	})
}

// WrappedBalance returns the WAVAX balance of account in wei.
func (c *EVMClient) WrappedBalance(ctx context.Context, account common.Address) (*big.Int, error) {
	data, err := c.wavax.Pack("balanceOf", account)
	if err != nil {
		return nil, err
	}
	to := c.chain.WrappedNative
	out, err := retry.Do(ctx, c.reads, func(ctx context.Context) ([]byte, error) {
		return c.backend.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	})
	if err != nil {
		return nil, fmt.Errorf("balanceOf: %w", err)
	}
	values, err := c.wavax.Unpack("balanceOf", out)
	if err != nil || len(values) != 1 {
		return nil, fmt.Errorf("decode balanceOf: %w", err)
	}
	balance, ok := values[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("decode balanceOf: unexpected %T", values[0])
	}
	return balance, nil
}

// BlockNumber returns the latest block height.
func (c *EVMClient) BlockNumber(ctx context.Context) (uint64, error) {
	return retry.Do(ctx, c.reads, c.backend.BlockNumber)
}

// BlockByNumber fetches a full block.
func (c *EVMClient) BlockByNumber(ctx context.Context, number uint64) (*types.Block, error) {
	n := new(big.Int).SetUint64(number)
	return retry.Do(ctx, c.reads, func(ctx context.Context) (*types.Block, error) {
		return c.backend.BlockByNumber(ctx, n)
	})
}

// Signer returns the transaction signer for the connected chain.
func (c *EVMClient) Signer() types.Signer {
	return c.signer
}

// SendNative transfers wei to to. The broadcast itself is attempted once.
func (c *EVMClient) SendNative(ctx context.Context, key *ecdsa.PrivateKey, to common.Address, wei *big.Int) (common.Hash, error) {
	return c.transact(ctx, key, &to, wei, nil)
}

// Wrap deposits wei into the WAVAX contract.
func (c *EVMClient) Wrap(ctx context.Context, key *ecdsa.PrivateKey, wei *big.Int) (common.Hash, error) {
	data, err := c.wavax.Pack("deposit")
	if err != nil {
		return common.Hash{}, err
	}
	to := c.chain.WrappedNative
	return c.transact(ctx, key, &to, wei, data)
}

// Unwrap withdraws wei of WAVAX back to the native token.
func (c *EVMClient) Unwrap(ctx context.Context, key *ecdsa.PrivateKey, wei *big.Int) (common.Hash, error) {
	data, err := c.wavax.Pack("withdraw", wei)
	if err != nil {
		return common.Hash{}, err
	}
	to := c.chain.WrappedNative
	return c.transact(ctx, key, &to, new(big.Int), data)
}

func (c *EVMClient) transact(ctx context.Context, key *ecdsa.PrivateKey, to *common.Address, value *big.Int, data []byte) (common.Hash, error) {
	from := crypto.PubkeyToAddress(key.PublicKey)

	nonce, err := retry.Do(ctx, c.reads, func(ctx context.Context) (uint64, error) {
		return c.backend.PendingNonceAt(ctx, from)
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("nonce: %w", err)
	}

	tip, err := retry.Do(ctx, c.reads, c.backend.SuggestGasTipCap)
	if err != nil {
		return common.Hash{}, fmt.Errorf("gas tip: %w", err)
	}
	head, err := retry.Do(ctx, c.reads, func(ctx context.Context) (*types.Header, error) {
		return c.backend.HeaderByNumber(ctx, nil)
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("latest header: %w", err)
	}
	feeCap := new(big.Int).Set(tip)
	if head.BaseFee != nil {
		feeCap.Add(feeCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	}

	gas := uint64(nativeTransferGas)
	if len(data) > 0 {
		msg := ethereum.CallMsg{From: from, To: to, Value: value, Data: data}
		gas, err = retry.Do(ctx, c.reads, func(ctx context.Context) (uint64, error) {
			return c.backend.EstimateGas(ctx, msg)
		})
		if err != nil {
			return common.Hash{}, fmt.Errorf("estimate gas: %w", err)
		}
	}

	balance, err := c.Balance(ctx, from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("balance: %w", err)
	}
	cost := new(big.Int).Mul(feeCap, new(big.Int).SetUint64(gas))
	cost.Add(cost, value)
	if balance.Cmp(cost) < 0 {
		return common.Hash{}, ErrInsufficientFunds
	}

	tx, err := types.SignNewTx(key, c.signer, &types.DynamicFeeTx{
		ChainID:   c.chainID,
		Nonce:     nonce,
		GasTipCap: tip,
		GasFeeCap: feeCap,
		Gas:       gas,
		To:        to,
		Value:     value,
		Data:      data,
	})
	if err != nil {
		return common.Hash{}, fmt.Errorf("sign: %w", err)
	}

	if err := c.backend.SendTransaction(ctx, tx); err != nil {
		return common.Hash{}, fmt.Errorf("broadcast: %w", err)
	}

	c.logger.Info("transaction broadcast",
		zap.String("hash", tx.Hash().Hex()),
		zap.String("to", to.Hex()),
		zap.String("value_wei", value.String()),
	)
	return tx.Hash(), nil
}
