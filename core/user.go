package core

import (
	"strings"
	"time"
)

// Network selects the chain a wallet address lives on.
type Network string

const (
	Mainnet Network = "mainnet"
	Testnet Network = "testnet"
)

// ParseNetwork accepts "mainnet"/"testnet" (and the "fuji" alias for testnet).
func ParseNetwork(s string) (Network, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mainnet", "":
		return Mainnet, true
	case "testnet", "fuji":
		return Testnet, true
	}
	return "", false
}

// UserProfile is the server-side record of a signed-in user.
type UserProfile struct {
	GoogleUserID         string     `json:"googleUserId" firestore:"googleUserId"`
	Email                string     `json:"email" firestore:"email"`
	Name                 string     `json:"name,omitempty" firestore:"name,omitempty"`
	WalletAddressMainnet string     `json:"walletAddressMainnet,omitempty" firestore:"walletAddressMainnet,omitempty"`
	WalletAddressTestnet string     `json:"walletAddressTestnet,omitempty" firestore:"walletAddressTestnet,omitempty"`
	FaucetLastUsedAt     *time.Time `json:"faucetLastUsedAt,omitempty" firestore:"faucetLastUsedAt,omitempty"`
	FaucetUseCount       int        `json:"faucetUseCount" firestore:"faucetUseCount"`
	CreatedAt            time.Time  `json:"createdAt" firestore:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt" firestore:"updatedAt"`
}

// WalletAddress returns the address registered for the given network.
func (u *UserProfile) WalletAddress(n Network) string {
	if n == Testnet {
		return u.WalletAddressTestnet
	}
	return u.WalletAddressMainnet
}

// SetWalletAddress stores addr for the given network.
func (u *UserProfile) SetWalletAddress(n Network, addr string) {
	if n == Testnet {
		u.WalletAddressTestnet = addr
		return
	}
	u.WalletAddressMainnet = addr
}

// GoogleIdentity is what the OAuth callback learns about a user.
type GoogleIdentity struct {
	Subject string
	Email   string
	Name    string
}
