package mexc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/market"
)

// contractIntervals maps timeframes to the contract API's interval notation.
var contractIntervals = map[market.Timeframe]string{
	market.Minutes(1):  "Min1",
	market.Minutes(5):  "Min5",
	market.Minutes(15): "Min15",
	market.Minutes(30): "Min30",
	market.Hours(1):    "Min60",
	market.Hours(4):    "Hour4",
	market.Hours(8):    "Hour8",
	market.Days(1):     "Day1",
	market.Weeks(1):    "Week1",
	market.Months(1):   "Month1",
}

func klineTimeframes() []market.Timeframe {
	return []market.Timeframe{
		market.Minutes(1), market.Minutes(5), market.Minutes(15), market.Minutes(30),
		market.Hours(1), market.Hours(4), market.Hours(8),
		market.Days(1), market.Weeks(1), market.Months(1),
	}
}

const maxKlineLimit = 2000

// Klines fetches contract candlesticks, oldest first. The contract API
// returns columns rather than rows: parallel arrays for time, open, close,
// high, low, and volume. The forming candle is dropped unless
// CompleteKlinesOnly is off.
func (c *Client) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int, opts ...Option) (market.Klines, error) {
	interval, ok := contractIntervals[tf]
	if !ok {
		return market.Klines{}, &market.UnsupportedTimeframeError{Provided: tf, Allowed: klineTimeframes()}
	}
	if limit < 1 || limit > maxKlineLimit {
		return market.Klines{}, &market.OutOfRangeError{
			Param:    "limit",
			Provided: strconv.Itoa(limit),
			Allowed:  fmt.Sprintf("1..%d", maxKlineLimit),
		}
	}

	// No limit parameter; the window start bounds the row count.
	start := time.Now().Add(-time.Duration(limit) * tf.Duration()).Unix()
	query := map[string]string{
		"interval": interval,
		"start":    strconv.FormatInt(start, 10),
	}
	var out struct {
		Data struct {
			Time  []int64       `json:"time"`
			Open  []json.Number `json:"open"`
			Close []json.Number `json:"close"`
			High  []json.Number `json:"high"`
			Low   []json.Number `json:"low"`
			Vol   []json.Number `json:"vol"`
		} `json:"data"`
	}
	if err := c.Get(ctx, "/api/v1/contract/kline/"+pair.Underscored(), query, &out, opts...); err != nil {
		return market.Klines{}, err
	}

	completeOnly := c.opts.merged(opts).CompleteKlinesOnly
	now := time.Now()
	cols := out.Data

	klines := make([]market.Kline, 0, len(cols.Time))
	for i, openSec := range cols.Time {
		if i >= len(cols.Open) || i >= len(cols.Close) || i >= len(cols.High) || i >= len(cols.Low) || i >= len(cols.Vol) {
			return market.Klines{}, fmt.Errorf("kline columns have unequal lengths at index %d", i)
		}
		openTime := time.Unix(openSec, 0)
		if completeOnly && now.Before(openTime.Add(tf.Duration())) {
			c.logger.Trace().Time("open_time", openTime).Str("tf", tf.String()).Msg("dropping unclosed kline")
			continue
		}
		fields := make([]*apd.Decimal, 5)
		for j, num := range []json.Number{cols.Open[i], cols.High[i], cols.Low[i], cols.Close[i], cols.Vol[i]} {
			d, err := market.ParseDecimal(num.String())
			if err != nil {
				return market.Klines{}, fmt.Errorf("kline field %d at index %d: %w", j, i, err)
			}
			fields[j] = d
		}
		klines = append(klines, market.Kline{
			OpenTime: openTime,
			Open:     fields[0],
			High:     fields[1],
			Low:      fields[2],
			Close:    fields[3],
			Volume:   fields[4],
		})
	}
	return market.Klines{V: klines, Tf: tf}, nil
}

// Price fetches the contract index price for one pair.
func (c *Client) Price(ctx context.Context, pair market.Pair, opts ...Option) (*apd.Decimal, error) {
	var out struct {
		Data struct {
			Symbol     string      `json:"symbol"`
			IndexPrice json.Number `json:"indexPrice"`
			Timestamp  int64       `json:"timestamp"`
		} `json:"data"`
	}
	if err := c.GetNoQuery(ctx, "/api/v1/contract/index_price/"+pair.Underscored(), &out, opts...); err != nil {
		return nil, err
	}
	return market.ParseDecimal(out.Data.IndexPrice.String())
}

// Prices fetches the last price of every contract ticker. When pairs is
// non-empty only those are returned.
func (c *Client) Prices(ctx context.Context, pairs []market.Pair, opts ...Option) ([]market.PairPrice, error) {
	var out struct {
		Data []struct {
			Symbol    string      `json:"symbol"`
			LastPrice json.Number `json:"lastPrice"`
		} `json:"data"`
	}
	if err := c.GetNoQuery(ctx, "/api/v1/contract/ticker", &out, opts...); err != nil {
		return nil, err
	}

	wanted := make(map[string]market.Pair, len(pairs))
	for _, p := range pairs {
		wanted[p.Underscored()] = p
	}

	prices := make([]market.PairPrice, 0, len(out.Data))
	for _, entry := range out.Data {
		pair, ok := wanted[entry.Symbol]
		if !ok {
			if len(pairs) > 0 {
				continue
			}
			parsed, err := market.ParsePair(entry.Symbol)
			if err != nil {
				continue
			}
			pair = parsed
		}
		price, err := market.ParseDecimal(entry.LastPrice.String())
		if err != nil {
			return nil, err
		}
		prices = append(prices, market.PairPrice{Pair: pair, Price: price})
	}
	return prices, nil
}

// OpenInterest fetches the contract hold volume for one pair from the
// ticker endpoint.
func (c *Client) OpenInterest(ctx context.Context, pair market.Pair, opts ...Option) (market.OpenInterest, error) {
	query := map[string]string{"symbol": pair.Underscored()}
	var out struct {
		Data struct {
			Symbol    string      `json:"symbol"`
			HoldVol   json.Number `json:"holdVol"`
			Timestamp int64       `json:"timestamp"`
		} `json:"data"`
	}
	if err := c.Get(ctx, "/api/v1/contract/ticker", query, &out, opts...); err != nil {
		return market.OpenInterest{}, err
	}
	total, err := market.ParseDecimal(out.Data.HoldVol.String())
	if err != nil {
		return market.OpenInterest{}, err
	}
	return market.OpenInterest{Total: total, Time: time.UnixMilli(out.Data.Timestamp)}, nil
}

// ExchangeInfo fetches the contract catalog.
func (c *Client) ExchangeInfo(ctx context.Context, opts ...Option) (market.ExchangeInfo, error) {
	var out struct {
		Data []struct {
			Symbol    string `json:"symbol"`
			BaseCoin  string `json:"baseCoin"`
			QuoteCoin string `json:"quoteCoin"`
			State     int    `json:"state"`
		} `json:"data"`
	}
	if err := c.GetNoQuery(ctx, "/api/v1/contract/detail", &out, opts...); err != nil {
		return market.ExchangeInfo{}, err
	}
	info := market.ExchangeInfo{ServerTime: time.Now()}
	for _, s := range out.Data {
		// State 0 is live; everything else is paused, delivering, or delisted.
		status := "TRADING"
		if s.State != 0 {
			status = "DISABLED"
		}
		info.Symbols = append(info.Symbols, market.SymbolInfo{
			Symbol: s.Symbol,
			Base:   s.BaseCoin,
			Quote:  s.QuoteCoin,
			Status: status,
		})
	}
	return info, nil
}
