package market

import (
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Kline is one candlestick. Prices and volume are exact decimals; exchanges
// transmit them as strings and binary floats would corrupt them.
type Kline struct {
	OpenTime time.Time
	Open     *apd.Decimal
	High     *apd.Decimal
	Low      *apd.Decimal
	Close    *apd.Decimal
	Volume   *apd.Decimal
}

// Klines is a kline series with its timeframe and an optional open-interest
// track. The two tracks carry their own timestamps and need not align.
type Klines struct {
	V  []Kline
	Tf Timeframe
	Oi []OpenInterest
}

// OpenInterest is one open-interest observation. Lsr is the long/short
// ratio when the exchange reports one, zero otherwise.
type OpenInterest struct {
	Total *apd.Decimal
	Lsr   float64
	Time  time.Time
}

// AssetBalance is the balance of a single asset at a point in time.
type AssetBalance struct {
	Asset   string
	Balance *apd.Decimal
	Time    time.Time
}

// Total sums a balance list into one decimal. Assets are not converted; the
// caller is responsible for only summing like-denominated balances.
func Total(balances []AssetBalance) (*apd.Decimal, error) {
	sum := apd.New(0, 0)
	ctx := apd.BaseContext.WithPrecision(30)
	for _, b := range balances {
		if b.Balance == nil {
			continue
		}
		if _, err := ctx.Add(sum, sum, b.Balance); err != nil {
			return nil, err
		}
	}
	return sum, nil
}

// ParseDecimal reads an exchange-transmitted decimal string.
func ParseDecimal(s string) (*apd.Decimal, error) {
	d, _, err := apd.NewFromString(s)
	return d, err
}
