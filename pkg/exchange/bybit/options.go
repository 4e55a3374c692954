// Package bybit implements the Bybit HTTP and WebSocket handlers: the v5
// header signing scheme and its legacy variants, envelope decoding, stream
// framing, and the domain operations built on top of them.
package bybit

import (
	"time"

	"tradewire/pkg/core"
)

// HTTPURL selects a Bybit REST deployment.
type HTTPURL int

// Bybit REST deployments.
const (
	// URLBybit is api.bybit.com.
	URLBybit HTTPURL = iota
	// URLBytick is api.bytick.com, the alternate domain. It has no testnet.
	URLBytick
)

// WSURL selects a Bybit WebSocket deployment.
type WSURL int

// Bybit WebSocket deployments.
const (
	// WSBybit is stream.bybit.com.
	WSBybit WSURL = iota
	// WSBytick is stream.bytick.com. It has no testnet.
	WSBytick
)

// SignVariant selects which of Bybit's signing generations a request uses.
// Endpoints from different API generations coexist, so this is per-call.
type SignVariant int

const (
	// VariantV5 signs v3 and v5 endpoints with X-BAPI-* headers.
	VariantV5 SignVariant = iota
	// VariantUsdcV1 is VariantV5 plus the X-BAPI-SIGN-TYPE header the
	// legacy USDC contract endpoints require.
	VariantUsdcV1
	// VariantSpotV1 signs legacy spot endpoints with a sorted query and an
	// urlencoded body.
	VariantSpotV1
	// VariantBelowV3 signs the remaining legacy endpoints with a sorted
	// query and a JSON body.
	VariantBelowV3
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
	Variant       SignVariant
	Testnet       bool
	RequestConfig core.RequestConfig
	WSURL         WSURL
	WsAuth        bool
	WsConfig      core.WsConfig
	WsTopics      []string

	// CompleteKlinesOnly drops klines whose interval had not elapsed at the
	// server timestamp stamped on the response.
	CompleteKlinesOnly bool
}

// DefaultOptions returns the stock option bag: no credentials, the main
// deployment, v5 signing, complete klines only.
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

// WithVariant selects the signing generation.
func WithVariant(v SignVariant) Option {
	return func(o *Options) { o.Variant = v }
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

// WithWsAuth toggles the authentication frame sent before subscribing.
func WithWsAuth(on bool) Option {
	return func(o *Options) { o.WsAuth = on }
}

// WithWsConfig replaces the stream connection settings. The URL field is
// still overridden by WithWSURL unless a raw URL was set in the config.
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

// IsAuthenticated reports whether an API key has been configured. Some
// endpoints accept the key alone, so the secret is not required here.
func (o Options) IsAuthenticated() bool {
	return o.Pubkey != ""
}
