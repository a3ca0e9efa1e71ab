package wallet

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/becomeliminal/nim-wallet/core"
)

// ChainConfig describes one Avalanche C-Chain deployment.
type ChainConfig struct {
	Network       core.Network
	ChainID       *big.Int
	RPCURL        string
	ExplorerURL   string // base URL, transactions live under /tx/{hash}
	WrappedNative common.Address
	Symbol        string
}

// Avalanche C-Chain mainnet.
var Mainnet = ChainConfig{
	Network:       core.Mainnet,
	ChainID:       big.NewInt(43114),
	RPCURL:        "https://api.avax.network/ext/bc/C/rpc",
	ExplorerURL:   "https://snowtrace.io",
	WrappedNative: common.HexToAddress("0xB31f66AA3C1e785363F0875A1B74E27b85FD66c7"),
	Symbol:        "AVAX",
}

// Fuji is the Avalanche C-Chain testnet.
var Fuji = ChainConfig{
	Network:       core.Testnet,
	ChainID:       big.NewInt(43113),
	RPCURL:        "https://api.avax-test.network/ext/bc/C/rpc",
	ExplorerURL:   "https://testnet.snowtrace.io",
	WrappedNative: common.HexToAddress("0xd00ae08403B9bbb9124bB305C09058E32C39A48c"),
	Symbol:        "AVAX",
}

// ChainFor returns the configuration of network, overriding the RPC URL when rpcURL is set.
func ChainFor(network core.Network, rpcURL string) ChainConfig {
	cfg := Mainnet
	if network == core.Testnet {
		cfg = Fuji
	}
	if rpcURL != "" {
		cfg.RPCURL = rpcURL
	}
	return cfg
}

// TxURL links a transaction on the block explorer.
func (c ChainConfig) TxURL(hash string) string {
	return fmt.Sprintf("%s/tx/%s", c.ExplorerURL, hash)
}
