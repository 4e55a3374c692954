package market

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// ExchangeInfo is the instrument catalog an exchange publishes.
type ExchangeInfo struct {
	ServerTime time.Time
	Symbols    []SymbolInfo
}

// SymbolInfo describes one listed symbol.
type SymbolInfo struct {
	Symbol string
	Base   string
	Quote  string
	Status string
}

// PairPrice pairs a symbol with its last price.
type PairPrice struct {
	Pair  Pair
	Price *apd.Decimal
}
