// Package core holds the domain model shared by the scheduling and
// alerting engines: accounts, transactions, budgets, and the pure date
// and money arithmetic they rely on.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a positive decimal amount from user or stored input.
// Both dot and comma decimal separators are accepted.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatUSD renders an amount as a dollar string with two decimals,
// e.g. 600 -> "$600.00".
func FormatUSD(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// PercentageUsed returns spent/ceiling*100. A ceiling of zero or less
// yields zero rather than a division error.
func PercentageUsed(spent, ceiling decimal.Decimal) decimal.Decimal {
	if ceiling.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero
	}
	return spent.Div(ceiling).Mul(decimal.NewFromInt(100))
}
