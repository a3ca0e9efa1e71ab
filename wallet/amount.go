package wallet

import (
	"math/big"

	"github.com/shopspring/decimal"
)

const nativeDecimals = 18

// ToWei converts a decimal amount of the native token to wei, truncating
// anything below 1 wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Shift(nativeDecimals).Truncate(0).BigInt()
}

// FromWei converts wei to a decimal amount of the native token.
func FromWei(wei *big.Int) decimal.Decimal {
	if wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(wei, -nativeDecimals)
}

// FormatAmount renders an amount with at most six decimals and no trailing zeros.
func FormatAmount(d decimal.Decimal) string {
	return d.Truncate(6).String()
}
