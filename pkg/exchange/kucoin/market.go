package kucoin

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"

	"tradewire/pkg/market"
)

// candleTypes maps timeframes to Kucoin's candle type notation.
var candleTypes = map[market.Timeframe]string{
	market.Minutes(1):  "1min",
	market.Minutes(3):  "3min",
	market.Minutes(5):  "5min",
	market.Minutes(15): "15min",
	market.Minutes(30): "30min",
	market.Hours(1):    "1hour",
	market.Hours(2):    "2hour",
	market.Hours(4):    "4hour",
	market.Hours(6):    "6hour",
	market.Hours(8):    "8hour",
	market.Hours(12):   "12hour",
	market.Days(1):     "1day",
	market.Weeks(1):    "1week",
}

func klineTimeframes() []market.Timeframe {
	return []market.Timeframe{
		market.Minutes(1), market.Minutes(3), market.Minutes(5), market.Minutes(15), market.Minutes(30),
		market.Hours(1), market.Hours(2), market.Hours(4), market.Hours(6), market.Hours(8), market.Hours(12),
		market.Days(1), market.Weeks(1),
	}
}

const maxKlineLimit = 1500

// Klines fetches spot candlesticks, oldest first. Kucoin serves the forming
// candle as its newest row; it is dropped unless CompleteKlinesOnly is off.
func (c *Client) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int, opts ...Option) (market.Klines, error) {
	candleType, ok := candleTypes[tf]
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

	// Kucoin has no limit parameter; the window start bounds the row count.
	startAt := time.Now().Add(-time.Duration(limit) * tf.Duration()).Unix()
	query := map[string]string{
		"symbol":  pair.Dashed(),
		"type":    candleType,
		"startAt": strconv.FormatInt(startAt, 10),
	}
	var out struct {
		Code string     `json:"code"`
		Data [][]string `json:"data"`
	}
	if err := c.Get(ctx, "/api/v1/market/candles", query, &out, opts...); err != nil {
		return market.Klines{}, err
	}

	completeOnly := c.opts.merged(opts).CompleteKlinesOnly
	now := time.Now()

	// Kucoin lists newest first; reverse while parsing.
	klines := make([]market.Kline, 0, len(out.Data))
	for i := len(out.Data) - 1; i >= 0; i-- {
		kline, err := parseCandleRow(out.Data[i])
		if err != nil {
			return market.Klines{}, err
		}
		if completeOnly && now.Before(kline.OpenTime.Add(tf.Duration())) {
			c.logger.Trace().Time("open_time", kline.OpenTime).Str("tf", tf.String()).Msg("dropping unclosed kline")
			continue
		}
		klines = append(klines, kline)
	}
	return market.Klines{V: klines, Tf: tf}, nil
}

// parseCandleRow decodes one candle: [time(s), open, close, high, low,
// volume, turnover], all strings.
func parseCandleRow(row []string) (market.Kline, error) {
	if len(row) < 6 {
		return market.Kline{}, fmt.Errorf("candle row has %d fields, want at least 6", len(row))
	}
	openSec, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return market.Kline{}, fmt.Errorf("candle open time: %w", err)
	}
	fields := make([]*apd.Decimal, 5)
	for i := 0; i < 5; i++ {
		d, err := market.ParseDecimal(row[i+1])
		if err != nil {
			return market.Kline{}, fmt.Errorf("candle field %d: %w", i+1, err)
		}
		fields[i] = d
	}
	return market.Kline{
		OpenTime: time.Unix(openSec, 0),
		Open:     fields[0],
		Close:    fields[1],
		High:     fields[2],
		Low:      fields[3],
		Volume:   fields[4],
	}, nil
}

// Price fetches the spot last trade price from the level-1 orderbook.
func (c *Client) Price(ctx context.Context, pair market.Pair, opts ...Option) (*apd.Decimal, error) {
	query := map[string]string{"symbol": pair.Dashed()}
	var out struct {
		Code string `json:"code"`
		Data struct {
			Time  int64  `json:"time"`
			Price string `json:"price"`
		} `json:"data"`
	}
	if err := c.Get(ctx, "/api/v1/market/orderbook/level1", query, &out, opts...); err != nil {
		return nil, err
	}
	return market.ParseDecimal(out.Data.Price)
}

// Prices fetches spot last prices for all tickers. When pairs is non-empty
// only those are returned.
func (c *Client) Prices(ctx context.Context, pairs []market.Pair, opts ...Option) ([]market.PairPrice, error) {
	var out struct {
		Code string `json:"code"`
		Data struct {
			Time   int64 `json:"time"`
			Ticker []struct {
				Symbol string `json:"symbol"`
				Last   string `json:"last"`
			} `json:"ticker"`
		} `json:"data"`
	}
	if err := c.GetNoQuery(ctx, "/api/v1/market/allTickers", &out, opts...); err != nil {
		return nil, err
	}

	wanted := make(map[string]market.Pair, len(pairs))
	for _, p := range pairs {
		wanted[p.Dashed()] = p
	}

	prices := make([]market.PairPrice, 0, len(out.Data.Ticker))
	for _, entry := range out.Data.Ticker {
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
		if entry.Last == "" {
			continue // never-traded listing
		}
		price, err := market.ParseDecimal(entry.Last)
		if err != nil {
			return nil, err
		}
		prices = append(prices, market.PairPrice{Pair: pair, Price: price})
	}
	return prices, nil
}

// OpenInterest is not available on Kucoin spot.
func (c *Client) OpenInterest(ctx context.Context, pair market.Pair, opts ...Option) (market.OpenInterest, error) {
	return market.OpenInterest{}, &market.MethodNotSupportedError{Exchange: "kucoin", Instrument: market.Spot}
}

// ExchangeInfo fetches the spot instrument catalog.
func (c *Client) ExchangeInfo(ctx context.Context, opts ...Option) (market.ExchangeInfo, error) {
	var out struct {
		Code string `json:"code"`
		Data []struct {
			Symbol        string `json:"symbol"`
			BaseCurrency  string `json:"baseCurrency"`
			QuoteCurrency string `json:"quoteCurrency"`
			EnableTrading bool   `json:"enableTrading"`
		} `json:"data"`
	}
	if err := c.GetNoQuery(ctx, "/api/v2/symbols", &out, opts...); err != nil {
		return market.ExchangeInfo{}, err
	}
	info := market.ExchangeInfo{ServerTime: time.Now()}
	for _, s := range out.Data {
		status := "TRADING"
		if !s.EnableTrading {
			status = "DISABLED"
		}
		info.Symbols = append(info.Symbols, market.SymbolInfo{
			Symbol: s.Symbol,
			Base:   s.BaseCurrency,
			Quote:  s.QuoteCurrency,
			Status: status,
		})
	}
	return info, nil
}
