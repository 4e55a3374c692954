package coincheck

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/core"
)

// Client is the Coincheck facade. It offers raw verb-level access only; this
// venue is not part of the unified domain operations.
type Client struct {
	transport *transport.Client
	logger    zerolog.Logger
	opts      Options
}

// New builds a Coincheck client with its own dispatch engine.
func New(opts ...Option) *Client {
	return NewWithTransport(transport.NewClient(), opts...)
}

// NewWithTransport builds a Coincheck client on a shared dispatch engine.
func NewWithTransport(tr *transport.Client, opts ...Option) *Client {
	return &Client{
		transport: tr,
		logger:    zerolog.Nop(),
		opts:      DefaultOptions().merged(opts),
	}
}

// Name returns the exchange identifier.
func (c *Client) Name() string { return "coincheck" }

// SetLogger installs a logger on the facade and its transport.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.transport.SetLogger(logger)
}

// Update applies options to the client's default bag.
func (c *Client) Update(opts ...Option) {
	c.opts = c.opts.merged(opts)
}

// Auth stores the API key and secret and switches the default auth level to
// signed.
func (c *Client) Auth(pubkey, secret string) {
	c.Update(WithPubkey(pubkey), WithSecret(secret), WithAuth(core.AuthSign))
}

// IsAuthenticated reports whether key and secret are both set.
func (c *Client) IsAuthenticated() bool { return c.opts.IsAuthenticated() }

// SetMaxTries sets the attempt budget for subsequent requests.
func (c *Client) SetMaxTries(n int) { c.opts.RequestConfig.MaxTries = n }

// SetTimeout sets the per-attempt timeout for subsequent requests.
func (c *Client) SetTimeout(d time.Duration) { c.opts.RequestConfig.Timeout = d }

// SetMaxSimultaneousRequests replaces the transport's in-flight cap.
func (c *Client) SetMaxSimultaneousRequests(n int64) {
	c.transport.SetMaxSimultaneousRequests(n)
}

// Clone returns an independent facade sharing this client's transport and
// current in-flight budget.
func (c *Client) Clone() *Client {
	return &Client{transport: c.transport.Clone(), logger: c.logger, opts: c.opts}
}

// Get dispatches a GET with a query.
func (c *Client) Get(ctx context.Context, path string, query any, out any, opts ...Option) error {
	return c.request(ctx, http.MethodGet, path, query, nil, out, opts)
}

// GetNoQuery dispatches a GET without a query.
func (c *Client) GetNoQuery(ctx context.Context, path string, out any, opts ...Option) error {
	return c.request(ctx, http.MethodGet, path, nil, nil, out, opts)
}

// Post dispatches a POST with a form body.
func (c *Client) Post(ctx context.Context, path string, body any, out any, opts ...Option) error {
	return c.request(ctx, http.MethodPost, path, nil, body, out, opts)
}

// Delete dispatches a DELETE with a query.
func (c *Client) Delete(ctx context.Context, path string, query any, out any, opts ...Option) error {
	return c.request(ctx, http.MethodDelete, path, query, nil, out, opts)
}

// Request dispatches an arbitrary method with both query and body.
func (c *Client) Request(ctx context.Context, method, path string, query any, body any, out any, opts ...Option) error {
	return c.request(ctx, method, path, query, body, out, opts)
}

func (c *Client) request(ctx context.Context, method, path string, query any, body any, out any, opts []Option) error {
	merged := c.opts.merged(opts)
	vals, err := transport.QueryValues(query)
	if err != nil {
		return core.NewRequestError(core.StageBuild, &core.BuildError{Reason: "encode query", Err: err})
	}
	h := newHandler(merged, c.logger)
	return c.transport.Dispatch(ctx, method, path, vals, body, h, merged.RequestConfig, merged.Testnet, out)
}
