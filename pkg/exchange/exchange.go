// Package exchange unifies the per-venue clients behind one capability
// interface and a thread-safe registry, so callers can hold venues by name
// and share a single dispatch engine across all of them.
package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/exchange/binance"
	"tradewire/pkg/exchange/bybit"
	"tradewire/pkg/exchange/kucoin"
	"tradewire/pkg/exchange/mexc"
	"tradewire/pkg/market"
	"tradewire/pkg/ws"
)

// Exchange is the venue-independent view of a client: credentials and
// dispatch knobs plus the unified domain operations. Venue-specific options
// are not reachable through it; drop to the concrete client for those.
type Exchange interface {
	Name() string
	Auth(pubkey, secret string)
	IsAuthenticated() bool
	SetLogger(logger zerolog.Logger)
	SetMaxTries(n int)
	SetTimeout(d time.Duration)
	SetRecvWindow(d time.Duration)

	Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int) (market.Klines, error)
	Price(ctx context.Context, pair market.Pair) (*apd.Decimal, error)
	Prices(ctx context.Context, pairs []market.Pair) ([]market.PairPrice, error)
	OpenInterest(ctx context.Context, pair market.Pair) (market.OpenInterest, error)
	ExchangeInfo(ctx context.Context) (market.ExchangeInfo, error)

	Balances(ctx context.Context) ([]market.AssetBalance, error)
	AssetBalance(ctx context.Context, asset string) (market.AssetBalance, error)

	WsConnection(topics []string) (*ws.Conn, error)
}

// New constructs the named exchange on a shared dispatch engine. Known names
// are binance, bybit, kucoin, and mexc; bitFlyer and Coincheck offer raw verb
// access only and are not constructible here.
func New(name string, tr *transport.Client) (Exchange, error) {
	switch name {
	case "binance":
		return &binanceExchange{binance.NewWithTransport(tr)}, nil
	case "bybit":
		return &bybitExchange{bybit.NewWithTransport(tr)}, nil
	case "kucoin":
		return &kucoinExchange{kucoin.NewWithTransport(tr)}, nil
	case "mexc":
		return &mexcExchange{mexc.NewWithTransport(tr)}, nil
	}
	return nil, fmt.Errorf("unknown exchange %q", name)
}

// The adapters pin down the variadic per-venue option parameters so the
// concrete clients fit the interface.

type binanceExchange struct{ *binance.Client }

func (e *binanceExchange) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int) (market.Klines, error) {
	return e.Client.Klines(ctx, pair, tf, limit)
}

func (e *binanceExchange) Price(ctx context.Context, pair market.Pair) (*apd.Decimal, error) {
	return e.Client.Price(ctx, pair)
}

func (e *binanceExchange) Prices(ctx context.Context, pairs []market.Pair) ([]market.PairPrice, error) {
	return e.Client.Prices(ctx, pairs)
}

func (e *binanceExchange) OpenInterest(ctx context.Context, pair market.Pair) (market.OpenInterest, error) {
	return e.Client.OpenInterest(ctx, pair)
}

func (e *binanceExchange) ExchangeInfo(ctx context.Context) (market.ExchangeInfo, error) {
	return e.Client.ExchangeInfo(ctx)
}

func (e *binanceExchange) Balances(ctx context.Context) ([]market.AssetBalance, error) {
	return e.Client.Balances(ctx)
}

func (e *binanceExchange) AssetBalance(ctx context.Context, asset string) (market.AssetBalance, error) {
	return e.Client.AssetBalance(ctx, asset)
}

func (e *binanceExchange) WsConnection(topics []string) (*ws.Conn, error) {
	return e.Client.WsConnection(topics)
}

type bybitExchange struct{ *bybit.Client }

func (e *bybitExchange) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int) (market.Klines, error) {
	return e.Client.Klines(ctx, pair, tf, limit)
}

func (e *bybitExchange) Price(ctx context.Context, pair market.Pair) (*apd.Decimal, error) {
	return e.Client.Price(ctx, pair)
}

func (e *bybitExchange) Prices(ctx context.Context, pairs []market.Pair) ([]market.PairPrice, error) {
	return e.Client.Prices(ctx, pairs)
}

func (e *bybitExchange) OpenInterest(ctx context.Context, pair market.Pair) (market.OpenInterest, error) {
	return e.Client.OpenInterest(ctx, pair)
}

func (e *bybitExchange) ExchangeInfo(ctx context.Context) (market.ExchangeInfo, error) {
	return e.Client.ExchangeInfo(ctx)
}

func (e *bybitExchange) Balances(ctx context.Context) ([]market.AssetBalance, error) {
	return e.Client.Balances(ctx)
}

func (e *bybitExchange) AssetBalance(ctx context.Context, asset string) (market.AssetBalance, error) {
	return e.Client.AssetBalance(ctx, asset)
}

func (e *bybitExchange) WsConnection(topics []string) (*ws.Conn, error) {
	return e.Client.WsConnection(topics)
}

type kucoinExchange struct{ *kucoin.Client }

func (e *kucoinExchange) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int) (market.Klines, error) {
	return e.Client.Klines(ctx, pair, tf, limit)
}

func (e *kucoinExchange) Price(ctx context.Context, pair market.Pair) (*apd.Decimal, error) {
	return e.Client.Price(ctx, pair)
}

func (e *kucoinExchange) Prices(ctx context.Context, pairs []market.Pair) ([]market.PairPrice, error) {
	return e.Client.Prices(ctx, pairs)
}

func (e *kucoinExchange) OpenInterest(ctx context.Context, pair market.Pair) (market.OpenInterest, error) {
	return e.Client.OpenInterest(ctx, pair)
}

func (e *kucoinExchange) ExchangeInfo(ctx context.Context) (market.ExchangeInfo, error) {
	return e.Client.ExchangeInfo(ctx)
}

func (e *kucoinExchange) Balances(ctx context.Context) ([]market.AssetBalance, error) {
	return e.Client.Balances(ctx)
}

func (e *kucoinExchange) AssetBalance(ctx context.Context, asset string) (market.AssetBalance, error) {
	return e.Client.AssetBalance(ctx, asset)
}

func (e *kucoinExchange) WsConnection(topics []string) (*ws.Conn, error) {
	return e.Client.WsConnection(topics)
}

type mexcExchange struct{ *mexc.Client }

func (e *mexcExchange) Klines(ctx context.Context, pair market.Pair, tf market.Timeframe, limit int) (market.Klines, error) {
	return e.Client.Klines(ctx, pair, tf, limit)
}

func (e *mexcExchange) Price(ctx context.Context, pair market.Pair) (*apd.Decimal, error) {
	return e.Client.Price(ctx, pair)
}

func (e *mexcExchange) Prices(ctx context.Context, pairs []market.Pair) ([]market.PairPrice, error) {
	return e.Client.Prices(ctx, pairs)
}

func (e *mexcExchange) OpenInterest(ctx context.Context, pair market.Pair) (market.OpenInterest, error) {
	return e.Client.OpenInterest(ctx, pair)
}

func (e *mexcExchange) ExchangeInfo(ctx context.Context) (market.ExchangeInfo, error) {
	return e.Client.ExchangeInfo(ctx)
}

func (e *mexcExchange) Balances(ctx context.Context) ([]market.AssetBalance, error) {
	return e.Client.Balances(ctx)
}

func (e *mexcExchange) AssetBalance(ctx context.Context, asset string) (market.AssetBalance, error) {
	return e.Client.AssetBalance(ctx, asset)
}

func (e *mexcExchange) WsConnection(topics []string) (*ws.Conn, error) {
	return e.Client.WsConnection(topics)
}
