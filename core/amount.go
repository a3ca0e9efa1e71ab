package core

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// NativeCurrency is assumed when a send names no currency.
const NativeCurrency = "AVAX"

// ParseAmount parses a user-facing decimal amount and requires it to be positive.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, &InvalidArgumentsError{Msg: "amount is required"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &InvalidArgumentsError{Msg: fmt.Sprintf("invalid amount %q", s)}
	}
	if !d.IsPositive() {
		return decimal.Zero, &InvalidArgumentsError{Msg: "amount must be greater than zero"}
	}
	return d, nil
}

// NormalizeCurrency upper-cases a symbol and defaults it to NativeCurrency.
func NormalizeCurrency(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return NativeCurrency
	}
	return s
}
