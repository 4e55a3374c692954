// Package kucoin implements the Kucoin HTTP and WebSocket handlers: the
// base64 HMAC signing scheme with its encrypted passphrase, the HTTP-200
// error envelope, stream framing, and the domain operations built on top.
package kucoin

import (
	"tradewire/pkg/core"
)

// HTTPURL selects a Kucoin REST deployment.
type HTTPURL int

// Kucoin REST deployments.
const (
	// URLSpot is api.kucoin.com.
	URLSpot HTTPURL = iota
	// URLFutures is api-futures.kucoin.com.
	URLFutures
)

// WSURL selects a Kucoin WebSocket deployment.
type WSURL int

// Kucoin WebSocket deployments.
const (
	// WSSpot is ws-api-spot.kucoin.com.
	WSSpot WSURL = iota
	// WSFutures is ws-api-futures.kucoin.com.
	WSFutures
)

// Options is the full per-client, per-call option bag. Option values are
// merged into a copy for each call, so concurrent calls never contend.
type Options struct {
	Pubkey        string
	Secret        core.Secret
	Passphrase    core.Secret
	HTTPURL       HTTPURL
	BaseURL       string
	Auth          core.AuthLevel
	Testnet       bool
	RequestConfig core.RequestConfig
	WSURL         WSURL
	WsConfig      core.WsConfig
	WsTopics      []string

	// CompleteKlinesOnly drops the forming kline from candle responses.
	CompleteKlinesOnly bool
}

// DefaultOptions returns the stock option bag: no credentials, the spot
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

// WithPassphrase sets the API passphrase chosen at key creation. Kucoin
// requires it on every signed request, encrypted with the secret.
func WithPassphrase(passphrase string) Option {
	return func(o *Options) { o.Passphrase = core.NewSecret(passphrase) }
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

// WithTestnet routes requests to the sandbox deployment.
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

// IsAuthenticated reports whether the full credential triple is configured.
// Kucoin needs key, secret, and passphrase for every signed request.
func (o Options) IsAuthenticated() bool {
	return o.Pubkey != "" && o.Secret.IsSet() && o.Passphrase.IsSet()
}
