package binance

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/market"
)

// klineTimeframes are the intervals the kline endpoints accept.
var klineTimeframes = []market.Timeframe{
	market.Minutes(1), market.Minutes(3), market.Minutes(5), market.Minutes(15), market.Minutes(30),
	market.Hours(1), market.Hours(2), market.Hours(4), market.Hours(6), market.Hours(8), market.Hours(12),
	market.Days(1), market.Days(3), market.Weeks(1), market.Months(1),
}

const maxKlineLimit = 1500

// Klines fetches USD-margined futures candlesticks. Klines whose interval
// has not elapsed yet are dropped unless CompleteKlinesOnly is off: the
// server returns the forming kline early, stamped with its projected open.
func (c *Client) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int, opts ...Option) (market.Klines, error) {
	if !tf.In(klineTimeframes) {
		return market.Klines{}, &market.UnsupportedTimeframeError{Provided: tf, Allowed: klineTimeframes}
	}
	if limit < 1 || limit > maxKlineLimit {
		return market.Klines{}, &market.OutOfRangeError{
			Param:    "limit",
			Provided: strconv.Itoa(limit),
			Allowed:  fmt.Sprintf("1..%d", maxKlineLimit),
		}
	}

	query := map[string]string{
		"symbol":   pair.Concat(),
		"interval": tf.String(),
		"limit":    strconv.Itoa(limit),
	}
	var rows [][]any
	if err := c.Get(ctx, "/fapi/v1/klines", query, &rows, withFutures(opts)...); err != nil {
		return market.Klines{}, err
	}

	completeOnly := c.opts.merged(opts).CompleteKlinesOnly
	klines := make([]market.Kline, 0, len(rows))
	for i, row := range rows {
		kline, err := parseKlineRow(row)
		if err != nil {
			return market.Klines{}, err
		}
		if completeOnly && !klineClosed(kline.OpenTime, tf, time.Now()) {
			ev := c.logger.Warn()
			if i == len(rows)-1 {
				ev = c.logger.Trace()
			}
			ev.Time("open_time", kline.OpenTime).Str("tf", tf.String()).Msg("dropping unclosed kline")
			continue
		}
		klines = append(klines, kline)
	}
	return market.Klines{V: klines, Tf: tf}, nil
}

// klineClosed reports whether at least 99% of the kline's interval has
// elapsed. The margin absorbs clock skew against the server.
func klineClosed(openTime time.Time, tf market.Timeframe, now time.Time) bool {
	closeBy := openTime.Add(tf.Duration() * 99 / 100)
	return now.After(closeBy)
}

func parseKlineRow(row []any) (market.Kline, error) {
	if len(row) < 6 {
		return market.Kline{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}
	openMs, ok := row[0].(float64)
	if !ok {
		return market.Kline{}, fmt.Errorf("kline open time is %T, want number", row[0])
	}
	fields := make([]*apd.Decimal, 5)
	for i := 0; i < 5; i++ {
		s, ok := row[i+1].(string)
		if !ok {
			return market.Kline{}, fmt.Errorf("kline field %d is %T, want string", i+1, row[i+1])
		}
		d, err := market.ParseDecimal(s)
		if err != nil {
			return market.Kline{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		fields[i] = d
	}
	return market.Kline{
		OpenTime: time.UnixMilli(int64(openMs)),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

// Price fetches the last USD-margined futures price for one pair.
func (c *Client) Price(ctx context.Context, pair market.Pair, opts ...Option) (*apd.Decimal, error) {
	var out struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	query := map[string]string{"symbol": pair.Concat()}
	if err := c.Get(ctx, "/fapi/v1/ticker/price", query, &out, withFutures(opts)...); err != nil {
		return nil, err
	}
	return market.ParseDecimal(out.Price)
}

// Prices fetches spot last prices. When pairs is non-empty only those are
// returned; otherwise every listing with a recognizable quote asset is.
func (c *Client) Prices(ctx context.Context, pairs []market.Pair, opts ...Option) ([]market.PairPrice, error) {
	var all []struct {
		Symbol string `json:"symbol"`
		Price  string `json:"price"`
	}
	err := c.GetNoQuery(ctx, "/api/v3/ticker/price", &all, append([]Option{WithHTTPURL(URLSpot)}, opts...)...)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]market.Pair, len(pairs))
	for _, p := range pairs {
		wanted[p.Concat()] = p
	}

	out := make([]market.PairPrice, 0, len(all))
	for _, entry := range all {
		pair, ok := wanted[entry.Symbol]
		if !ok {
			if len(pairs) > 0 {
				continue
			}
			pair, ok = splitSymbol(entry.Symbol)
			if !ok {
				continue
			}
		}
		price, err := market.ParseDecimal(entry.Price)
		if err != nil {
			return nil, err
		}
		out = append(out, market.PairPrice{Pair: pair, Price: price})
	}
	return out, nil
}

// commonQuotes are the quote assets used to split concatenated symbols when
// the caller didn't name the pairs.
var commonQuotes = []string{"USDT", "USDC", "FDUSD", "BUSD", "TUSD", "BTC", "ETH", "BNB", "EUR", "TRY", "USD"}

func splitSymbol(symbol string) (market.Pair, bool) {
	for _, quote := range commonQuotes {
		if len(symbol) > len(quote) && symbol[len(symbol)-len(quote):] == quote {
			return market.NewPair(symbol[:len(symbol)-len(quote)], quote), true
		}
	}
	return market.Pair{}, false
}

// OpenInterest fetches the current USD-margined futures open interest.
func (c *Client) OpenInterest(ctx context.Context, pair market.Pair, opts ...Option) (market.OpenInterest, error) {
	var out struct {
		OpenInterest string `json:"openInterest"`
		Symbol       string `json:"symbol"`
		Time         int64  `json:"time"`
	}
	query := map[string]string{"symbol": pair.Concat()}
	if err := c.Get(ctx, "/fapi/v1/openInterest", query, &out, withFutures(opts)...); err != nil {
		return market.OpenInterest{}, err
	}
	total, err := market.ParseDecimal(out.OpenInterest)
	if err != nil {
		return market.OpenInterest{}, err
	}
	return market.OpenInterest{Total: total, Time: time.UnixMilli(out.Time)}, nil
}

// ExchangeInfo fetches the USD-margined futures instrument catalog.
func (c *Client) ExchangeInfo(ctx context.Context, opts ...Option) (market.ExchangeInfo, error) {
	var out struct {
		ServerTime int64 `json:"serverTime"`
		Symbols    []struct {
			Symbol     string `json:"symbol"`
			Status     string `json:"status"`
			BaseAsset  string `json:"baseAsset"`
			QuoteAsset string `json:"quoteAsset"`
		} `json:"symbols"`
	}
	if err := c.GetNoQuery(ctx, "/fapi/v1/exchangeInfo", &out, withFutures(opts)...); err != nil {
		return market.ExchangeInfo{}, err
	}
	info := market.ExchangeInfo{ServerTime: time.UnixMilli(out.ServerTime)}
	for _, s := range out.Symbols {
		info.Symbols = append(info.Symbols, market.SymbolInfo{
			Symbol: s.Symbol,
			Base:   s.BaseAsset,
			Quote:  s.QuoteAsset,
			Status: s.Status,
		})
	}
	return info, nil
}

// withFutures defaults the call to the USD-margined futures deployment while
// letting explicit caller options win.
func withFutures(opts []Option) []Option {
	return append([]Option{WithHTTPURL(URLFuturesUsdM)}, opts...)
}
