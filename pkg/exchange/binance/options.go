// Package binance implements the Binance HTTP and WebSocket handlers: request
// signing, response decoding, stream framing, and the domain operations built
// on top of them.
package binance

import (
	"time"

	"tradewire/pkg/core"
)

// HTTPURL selects a Binance REST deployment.
type HTTPURL int

// Binance REST deployments.
const (
	// URLNone leaves the base URL unset; requests fail until one is chosen.
	URLNone HTTPURL = iota
	// URLSpot is api.binance.com.
	URLSpot
	// URLSpotData is data.binance.com, the market-data-only mirror.
	URLSpotData
	// URLFuturesUsdM is fapi.binance.com, USD-margined futures.
	URLFuturesUsdM
	// URLFuturesCoinM is dapi.binance.com, coin-margined futures.
	URLFuturesCoinM
	// URLEuropeanOptions is eapi.binance.com.
	URLEuropeanOptions
)

// WSURL selects a Binance WebSocket deployment.
type WSURL int

// Binance WebSocket deployments.
const (
	// WSNone leaves the stream URL unset.
	WSNone WSURL = iota
	// WSSpot is stream.binance.com:9443.
	WSSpot
	// WSFuturesUsdM is fstream.binance.com.
	WSFuturesUsdM
	// WSFuturesCoinM is dstream.binance.com.
	WSFuturesCoinM
)

// Options is the full per-client, per-call option bag. Option values are
// merged into a copy for each call, so concurrent calls never contend.
type Options struct {
	Pubkey        string
	Secret        core.Secret
	RecvWindow    time.Duration
	HTTPURL       HTTPURL
	BaseURL       string
	Auth          core.AuthLevel
	Testnet       bool
	RequestConfig core.RequestConfig
	WSURL         WSURL
	WsConfig      core.WsConfig
	WsTopics      []string

	// CompleteKlinesOnly drops klines whose interval has not elapsed yet;
	// Binance returns the forming kline with its projected open time.
	CompleteKlinesOnly bool
}

// DefaultOptions returns the stock option bag: no credentials, no base URL,
// complete klines only, default request and stream configs.
func DefaultOptions() Options {
	return Options{
		RequestConfig:      core.DefaultRequestConfig(),
		WsConfig:           core.DefaultWsConfig(""),
		CompleteKlinesOnly: true,
	}
}

// Option mutates an option bag.
type Option func(*Options)

// WithPubkey sets the API key.
func WithPubkey(pubkey string) Option {
	return func(o *Options) { o.Pubkey = pubkey }
}

// WithSecret sets the API secret.
func WithSecret(secret string) Option {
	return func(o *Options) { o.Secret = core.NewSecret(secret) }
}

// WithRecvWindow sets the grace period between the signed timestamp and
// server receipt.
func WithRecvWindow(w time.Duration) Option {
	return func(o *Options) { o.RecvWindow = w }
}

// WithBaseURL overrides the REST base URL with a raw address, bypassing the
// deployment table. Useful for proxies and local test servers.
func WithBaseURL(raw string) Option {
	return func(o *Options) { o.BaseURL = raw }
}

// WithHTTPURL selects the REST deployment.
func WithHTTPURL(u HTTPURL) Option {
	return func(o *Options) { o.HTTPURL = u }
}

// WithAuth sets how much authentication requests carry.
func WithAuth(level core.AuthLevel) Option {
	return func(o *Options) { o.Auth = level }
}

// WithTestnet routes requests to the testnet deployment.
func WithTestnet(testnet bool) Option {
	return func(o *Options) { o.Testnet = testnet }
}

// WithRequestConfig replaces the per-request dispatch settings.
func WithRequestConfig(cfg core.RequestConfig) Option {
	return func(o *Options) { o.RequestConfig = cfg }
}

// WithWSURL selects the WebSocket deployment.
func WithWSURL(u WSURL) Option {
	return func(o *Options) { o.WSURL = u }
}

// WithWsConfig replaces the stream connection settings. The URL field is
// still overridden by WithWSURL unless that is WSNone.
func WithWsConfig(cfg core.WsConfig) Option {
	return func(o *Options) { o.WsConfig = cfg }
}

// WithWsTopics sets the stream topics replayed on every (re)connect.
func WithWsTopics(topics ...string) Option {
	return func(o *Options) { o.WsTopics = topics }
}

// WithCompleteKlinesOnly toggles dropping of not-yet-closed klines.
func WithCompleteKlinesOnly(on bool) Option {
	return func(o *Options) { o.CompleteKlinesOnly = on }
}

// merged returns a copy of o with opts applied in order.
func (o Options) merged(opts []Option) Options {
	merged := o
	for _, opt := range opts {
		opt(&merged)
	}
	return merged
}

// IsAuthenticated reports whether an API key has been configured.
func (o Options) IsAuthenticated() bool {
	return o.Pubkey != ""
}
