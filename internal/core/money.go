// Package core holds the cash book's domain types and money handling.
//
// Monetary amounts travel through the system as shopspring decimals so
// that running-balance arithmetic never loses precision to floats.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// CoerceAmount converts a possibly missing or malformed amount string to a
// Decimal, yielding zero instead of an error. Aggregation uses this at
// every read boundary: one bad record must lower a single row to zero, not
// poison every running total after it.
func CoerceAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
