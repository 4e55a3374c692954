package bybit

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/core"
	"tradewire/pkg/ws"
)

// Client is the Bybit facade: verb-level access to any endpoint plus the
// unified domain operations. The zero value is not usable; construct with
// New or NewWithTransport.
type Client struct {
	transport *transport.Client
	logger    zerolog.Logger
	opts      Options
}

// New builds a Bybit client with its own dispatch engine.
func New(opts ...Option) *Client {
	return NewWithTransport(transport.NewClient(), opts...)
}

// NewWithTransport builds a Bybit client on a shared dispatch engine, so
// several exchange clients can share one in-flight request budget.
func NewWithTransport(tr *transport.Client, opts ...Option) *Client {
	return &Client{
		transport: tr,
		logger:    zerolog.Nop(),
		opts:      DefaultOptions().merged(opts),
	}
}

// Name returns the exchange identifier.
func (c *Client) Name() string { return "bybit" }

// SetLogger installs a logger on the facade and its transport.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.logger = logger
	c.transport.SetLogger(logger)
}

// Update applies options to the client's default bag. Per-call options still
// override these.
func (c *Client) Update(opts ...Option) {
	c.opts = c.opts.merged(opts)
}

// Auth stores API credentials in the default bag and switches the default
// auth level to signed.
func (c *Client) Auth(pubkey, secret string) {
	c.Update(WithPubkey(pubkey), WithSecret(secret), WithAuth(core.AuthSign))
}

// IsAuthenticated reports whether credentials are configured.
func (c *Client) IsAuthenticated() bool { return c.opts.IsAuthenticated() }

// SetMaxTries sets the attempt budget for subsequent requests.
func (c *Client) SetMaxTries(n int) { c.opts.RequestConfig.MaxTries = n }

// SetTimeout sets the per-attempt timeout for subsequent requests.
func (c *Client) SetTimeout(d time.Duration) { c.opts.RequestConfig.Timeout = d }

// SetRecvWindow sets the signed-request receive window.
func (c *Client) SetRecvWindow(d time.Duration) { c.opts.RecvWindow = d }

// SetMaxSimultaneousRequests replaces the transport's in-flight cap. Clients
// cloned earlier keep the previous cap.
func (c *Client) SetMaxSimultaneousRequests(n int64) {
	c.transport.SetMaxSimultaneousRequests(n)
}

// Clone returns an independent facade sharing this client's transport and
// current in-flight budget.
func (c *Client) Clone() *Client {
	return &Client{transport: c.transport.Clone(), logger: c.logger, opts: c.opts}
}

// Get dispatches a GET with a query. query accepts nil, url.Values,
// map[string]string, or a struct with `url` tags.
func (c *Client) Get(ctx context.Context, path string, query any, out any, opts ...Option) error {
	return c.request(ctx, http.MethodGet, path, query, nil, out, opts)
}

// GetNoQuery dispatches a GET without a query.
func (c *Client) GetNoQuery(ctx context.Context, path string, out any, opts ...Option) error {
	return c.request(ctx, http.MethodGet, path, nil, nil, out, opts)
}

// Post dispatches a POST with a body.
func (c *Client) Post(ctx context.Context, path string, body any, out any, opts ...Option) error {
	return c.request(ctx, http.MethodPost, path, nil, body, out, opts)
}

// PostNoBody dispatches a POST without a body.
func (c *Client) PostNoBody(ctx context.Context, path string, out any, opts ...Option) error {
	return c.request(ctx, http.MethodPost, path, nil, nil, out, opts)
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

// WsConnection opens a managed stream subscribed to the given topics. The
// connection dials lazily on the first Next call.
func (c *Client) WsConnection(topics []string, opts ...Option) (*ws.Conn, error) {
	merged := c.opts.merged(opts)
	if len(topics) > 0 {
		merged.WsTopics = topics
	}
	conn, err := ws.New(newWsHandler(merged))
	if err != nil {
		return nil, err
	}
	conn.SetLogger(c.logger)
	return conn, nil
}
