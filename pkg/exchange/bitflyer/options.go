// Package bitflyer implements the bitFlyer Lightning HTTP handler and a
// verb-level client facade. Only raw endpoint access is offered; the unified
// domain operations do not cover this venue.
package bitflyer

import (
	"tradewire/pkg/core"
)

// Options is the full per-client, per-call option bag.
type Options struct {
	Pubkey        string
	Secret        core.Secret
	BaseURL       string
	Auth          core.AuthLevel
	Testnet       bool
	RequestConfig core.RequestConfig
}

// DefaultOptions returns the stock option bag.
func DefaultOptions() Options {
	return Options{RequestConfig: core.DefaultRequestConfig()}
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

// WithBaseURL overrides the REST base URL with a raw address.
func WithBaseURL(raw string) Option {
	return func(o *Options) { o.BaseURL = raw }
}

// WithAuth sets how much authentication requests carry. Any level above
// AuthNone signs the request; bitFlyer has no key-only mode.
func WithAuth(level core.AuthLevel) Option {
	return func(o *Options) { o.Auth = level }
}

// WithRequestConfig replaces the per-request dispatch settings.
func WithRequestConfig(cfg core.RequestConfig) Option {
	return func(o *Options) { o.RequestConfig = cfg }
}

func (o Options) merged(opts []Option) Options {
	merged := o
	for _, opt := range opts {
		opt(&merged)
	}
	return merged
}

// IsAuthenticated reports whether key and secret are both set.
func (o Options) IsAuthenticated() bool {
	return o.Pubkey != "" && o.Secret.IsSet()
}
