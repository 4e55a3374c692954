// Package mexc implements the MEXC futures HTTP and WebSocket handlers:
// header-based HMAC signing, the success/code envelope, stream framing, and
// the domain operations built on top of them.
package mexc

import (
	"time"

	"tradewire/pkg/core"
)

// HTTPURL selects a MEXC REST deployment.
type HTTPURL int

// MEXC REST deployments.
const (
	// URLFutures is contract.mexc.com. It has no testnet.
	URLFutures HTTPURL = iota
	// URLSpot is api.mexc.com.
	URLSpot
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
	WsConfig      core.WsConfig
	WsTopics      []string

	// CompleteKlinesOnly drops the forming kline from candle responses.
	CompleteKlinesOnly bool
}

// DefaultOptions returns the stock option bag: no credentials, the futures
// deployment, complete klines only.
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

// WithTestnet routes requests to the testnet deployment where one exists.
func WithTestnet(testnet bool) Option {
	return func(o *Options) { o.Testnet = testnet }
}

// WithRequestConfig replaces the per-request dispatch settings.
func WithRequestConfig(cfg core.RequestConfig) Option {
	return func(o *Options) { o.RequestConfig = cfg }
}

// WithWsConfig replaces the stream connection settings.
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
