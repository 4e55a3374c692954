// Package market holds the exchange-independent domain value types: trading
// pairs, timeframes, klines, balances, and the domain-level errors surfaced
// before any network activity.
package market

import (
	"fmt"
	"strings"
)

// Pair is a base+quote asset identifier. Formatting differs per exchange, so
// the type keeps the parts separate and offers the common renderings.
type Pair struct {
	Base  string
	Quote string
}

// NewPair builds a pair from its parts, uppercasing both.
func NewPair(base, quote string) Pair {
	return Pair{Base: strings.ToUpper(base), Quote: strings.ToUpper(quote)}
}

// ParsePair accepts "BTC/USDT", "BTC-USDT", or "BTC_USDT".
func ParsePair(s string) (Pair, error) {
	for _, sep := range []string{"/", "-", "_"} {
		if base, quote, ok := strings.Cut(s, sep); ok && base != "" && quote != "" {
			return NewPair(base, quote), nil
		}
	}
	return Pair{}, fmt.Errorf("cannot parse pair %q: expected a '/', '-', or '_' separator", s)
}

// IsZero reports whether the pair is unset.
func (p Pair) IsZero() bool { return p.Base == "" && p.Quote == "" }

// String renders the canonical "BASE/QUOTE" form.
func (p Pair) String() string { return p.Base + "/" + p.Quote }

// Concat renders "BASEQUOTE", the form Binance and Bybit take.
func (p Pair) Concat() string { return p.Base + p.Quote }

// Dashed renders "BASE-QUOTE", the form Kucoin takes.
func (p Pair) Dashed() string { return p.Base + "-" + p.Quote }

// Underscored renders "BASE_QUOTE", the form MEXC futures and BitFlyer take.
func (p Pair) Underscored() string { return p.Base + "_" + p.Quote }
