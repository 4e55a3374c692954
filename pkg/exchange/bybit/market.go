package bybit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/market"
)

// klineTimeframes are the intervals /v5/market/kline accepts.
var klineTimeframes = []market.Timeframe{
	market.Minutes(1), market.Minutes(3), market.Minutes(5), market.Minutes(15), market.Minutes(30),
	market.Hours(1), market.Hours(2), market.Hours(4), market.Hours(6), market.Hours(12),
	market.Days(1), market.Weeks(1), market.Months(1),
}

const maxKlineLimit = 1000

// interval renders a timeframe in Bybit's v5 notation: minutes as a bare
// number, then D, W, M.
func interval(tf market.Timeframe) string {
	switch tf.Unit {
	case market.UnitDay:
		return "D"
	case market.UnitWeek:
		return "W"
	case market.UnitMonth:
		return "M"
	default:
		return strconv.Itoa(tf.Minutes())
	}
}

// Klines fetches linear-contract candlesticks, oldest first. Bybit stamps the
// response with server time; klines whose interval had not elapsed by then
// are dropped unless CompleteKlinesOnly is off.
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
		"category": "linear",
		"symbol":   pair.Concat(),
		"interval": interval(tf),
		"limit":    strconv.Itoa(limit),
	}
	var out struct {
		Result struct {
			Symbol string     `json:"symbol"`
			List   [][]string `json:"list"`
		} `json:"result"`
		Time int64 `json:"time"`
	}
	if err := c.Get(ctx, "/v5/market/kline", query, &out, opts...); err != nil {
		return market.Klines{}, err
	}

	completeOnly := c.opts.merged(opts).CompleteKlinesOnly
	serverTime := time.UnixMilli(out.Time)

	// Bybit lists newest first; reverse while parsing.
	klines := make([]market.Kline, 0, len(out.Result.List))
	for i := len(out.Result.List) - 1; i >= 0; i-- {
		kline, err := parseKlineRow(out.Result.List[i])
		if err != nil {
			return market.Klines{}, err
		}
		if completeOnly && !serverTime.After(kline.OpenTime.Add(tf.Duration())) {
			c.logger.Trace().Time("open_time", kline.OpenTime).Str("tf", tf.String()).Msg("dropping unclosed kline")
			continue
		}
		klines = append(klines, kline)
	}
	return market.Klines{V: klines, Tf: tf}, nil
}

func parseKlineRow(row []string) (market.Kline, error) {
	if len(row) < 6 {
		return market.Kline{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}
	openMs, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return market.Kline{}, fmt.Errorf("kline open time: %w", err)
	}
	fields := make([]*apd.Decimal, 5)
	for i := 0; i < 5; i++ {
		d, err := market.ParseDecimal(row[i+1])
		if err != nil {
			return market.Kline{}, fmt.Errorf("kline field %d: %w", i+1, err)
		}
		fields[i] = d
	}
	return market.Kline{
		OpenTime: time.UnixMilli(openMs),
		Open:     fields[0],
		High:     fields[1],
		Low:      fields[2],
		Close:    fields[3],
		Volume:   fields[4],
	}, nil
}

type tickerEnvelope struct {
	Result struct {
		Category string `json:"category"`
		List     []struct {
			Symbol            string `json:"symbol"`
			LastPrice         string `json:"lastPrice"`
			OpenInterest      string `json:"openInterest"`
			OpenInterestValue string `json:"openInterestValue"`
		} `json:"list"`
	} `json:"result"`
	Time int64 `json:"time"`
}

// Price fetches the last linear-contract price for one pair.
func (c *Client) Price(ctx context.Context, pair market.Pair, opts ...Option) (*apd.Decimal, error) {
	query := map[string]string{"category": "linear", "symbol": pair.Concat()}
	var out tickerEnvelope
	if err := c.Get(ctx, "/v5/market/tickers", query, &out, opts...); err != nil {
		return nil, err
	}
	if len(out.Result.List) == 0 {
		return nil, fmt.Errorf("no ticker returned for %s", pair.Concat())
	}
	return market.ParseDecimal(out.Result.List[0].LastPrice)
}

// Prices fetches spot last prices. When pairs is non-empty only those are
// returned; otherwise every listing with a recognizable quote asset is.
func (c *Client) Prices(ctx context.Context, pairs []market.Pair, opts ...Option) ([]market.PairPrice, error) {
	query := map[string]string{"category": "spot"}
	var all tickerEnvelope
	if err := c.Get(ctx, "/v5/market/tickers", query, &all, opts...); err != nil {
		return nil, err
	}

	wanted := make(map[string]market.Pair, len(pairs))
	for _, p := range pairs {
		wanted[p.Concat()] = p
	}

	out := make([]market.PairPrice, 0, len(all.Result.List))
	for _, entry := range all.Result.List {
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
		price, err := market.ParseDecimal(entry.LastPrice)
		if err != nil {
			return nil, err
		}
		out = append(out, market.PairPrice{Pair: pair, Price: price})
	}
	return out, nil
}

var commonQuotes = []string{"USDT", "USDC", "BTC", "ETH", "EUR", "DAI", "BRL"}

func splitSymbol(symbol string) (market.Pair, bool) {
	for _, quote := range commonQuotes {
		if len(symbol) > len(quote) && symbol[len(symbol)-len(quote):] == quote {
			return market.NewPair(symbol[:len(symbol)-len(quote)], quote), true
		}
	}
	return market.Pair{}, false
}

// OpenInterest fetches the current linear-contract open interest from the
// ticker endpoint.
func (c *Client) OpenInterest(ctx context.Context, pair market.Pair, opts ...Option) (market.OpenInterest, error) {
	query := map[string]string{"category": "linear", "symbol": pair.Concat()}
	var out tickerEnvelope
	if err := c.Get(ctx, "/v5/market/tickers", query, &out, opts...); err != nil {
		return market.OpenInterest{}, err
	}
	if len(out.Result.List) == 0 {
		return market.OpenInterest{}, fmt.Errorf("no ticker returned for %s", pair.Concat())
	}
	total, err := market.ParseDecimal(out.Result.List[0].OpenInterest)
	if err != nil {
		return market.OpenInterest{}, err
	}
	return market.OpenInterest{Total: total, Time: time.UnixMilli(out.Time)}, nil
}

// ExchangeInfo fetches the linear-contract instrument catalog.
func (c *Client) ExchangeInfo(ctx context.Context, opts ...Option) (market.ExchangeInfo, error) {
	query := map[string]string{"category": "linear", "limit": "1000"}
	var out struct {
		Result struct {
			List []struct {
				Symbol    string `json:"symbol"`
				Status    string `json:"status"`
				BaseCoin  string `json:"baseCoin"`
				QuoteCoin string `json:"quoteCoin"`
			} `json:"list"`
		} `json:"result"`
		Time int64 `json:"time"`
	}
	if err := c.Get(ctx, "/v5/market/instruments-info", query, &out, opts...); err != nil {
		return market.ExchangeInfo{}, err
	}
	info := market.ExchangeInfo{ServerTime: time.UnixMilli(out.Time)}
	for _, s := range out.Result.List {
		info.Symbols = append(info.Symbols, market.SymbolInfo{
			Symbol: s.Symbol,
			Base:   s.BaseCoin,
			Quote:  s.QuoteCoin,
			Status: s.Status,
		})
	}
	return info, nil
}
