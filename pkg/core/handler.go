package core

import (
	"encoding/json"
	"net/http"
	"net/url"
	"time"
)

// WireRequest is the mutable request under construction that the dispatch
// core hands to a RequestHandler. The handler appends query parameters, sets
// headers, and attaches the serialized body. Attempt is zero-based and lets
// handlers produce fresh timestamps and signatures on every retry.
type WireRequest struct {
	Method  string
	URL     *url.URL
	Header  http.Header
	Body    []byte
	Attempt int
}

// SetQuery replaces the request's encoded query string.
func (r *WireRequest) SetQuery(v url.Values) {
	r.URL.RawQuery = v.Encode()
}

// Query parses and returns the current query parameters.
func (r *WireRequest) Query() url.Values {
	v, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		return url.Values{}
	}
	return v
}

// AddQuery appends the given parameters to the existing query string.
func (r *WireRequest) AddQuery(extra url.Values) {
	q := r.Query()
	for k, vs := range extra {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	r.SetQuery(q)
}

// Response is the received HTTP response a RequestHandler interprets: status,
// headers, and the fully read body.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RequestHandler is the strategy an exchange plugs into the dispatch core.
// One handler value covers one exchange's signing and decoding rules; the
// core owns everything generic (concurrency cap, retry, transport).
type RequestHandler interface {
	// BaseURL resolves the absolute base URL. When testnet is set and the
	// configured endpoint has no testnet deployment, it returns
	// MissingTestnetError before any network activity happens.
	BaseURL(testnet bool) (*url.URL, error)

	// BuildRequest finalizes the wire request: signs it, sets headers, and
	// serializes body into r.Body. body is the caller-supplied payload, nil
	// when the verb carries none. Called once per attempt.
	BuildRequest(r *WireRequest, body any) error

	// HandleResponse classifies the response and, on success, decodes the
	// body into out (a non-nil pointer, or nil when the caller discards the
	// payload). Errors the exchange transmitted inside a 200 response are
	// detected here.
	HandleResponse(resp *Response, out any) error
}

// WsConfig carries the parameters the connection manager needs to open and
// maintain one WebSocket connection.
type WsConfig struct {
	// URL is the absolute WebSocket endpoint.
	URL string `validate:"required,startswith=ws"`

	// Topics are the subscription topics replayed on every (re)connect.
	Topics []string

	// Auth requests the authentication exchange before subscribing.
	Auth bool

	// ConnectCooldown is the minimum spacing between dial attempts.
	ConnectCooldown time.Duration `validate:"min=0"`

	// RefreshAfter forces a proactive reconnect once a connection has been
	// up this long. Zero disables refresh.
	RefreshAfter time.Duration `validate:"min=0"`

	// MessageTimeout reconnects when nothing arrives for this long. Zero
	// disables the idle check.
	MessageTimeout time.Duration `validate:"min=0"`

	// ReconnectionWait is the overlap delay before the previous generation
	// is torn down after its replacement connects.
	ReconnectionWait time.Duration `validate:"min=0"`
}

// DefaultWsConfig returns the stock connection parameters.
func DefaultWsConfig(wsURL string) WsConfig {
	return WsConfig{
		URL:              wsURL,
		ConnectCooldown:  3 * time.Second,
		RefreshAfter:     12 * time.Hour,
		MessageTimeout:   16 * time.Minute,
		ReconnectionWait: 300 * time.Millisecond,
	}
}

// Validate checks the config against its struct tags.
func (c WsConfig) Validate() error {
	return validate.Struct(c)
}

// ContentEvent is one normalized payload-bearing WebSocket message.
type ContentEvent struct {
	// Topic is the subscription topic the message belongs to.
	Topic string
	// EventType is the exchange's event discriminator, when present.
	EventType string
	// Time is the exchange-reported event time, zero when absent.
	Time time.Time
	// Data is the raw payload for the caller to decode.
	Data json.RawMessage
}

// Classified is a WsHandler's verdict on one inbound frame: zero or more
// protocol replies to write back, and at most one content event to deliver.
type Classified struct {
	Replies [][]byte
	Content *ContentEvent
}

// WsHandler is the per-exchange strategy for a WebSocket connection: it
// supplies the connection parameters and translates between the exchange's
// frame dialect and normalized content events.
type WsHandler interface {
	// Config returns the connection parameters. Called once per manager.
	Config() (WsConfig, error)

	// HandleAuth produces the authentication frames sent right after the
	// connection opens, before subscriptions. Empty when auth is off.
	HandleAuth() ([][]byte, error)

	// HandleSubscribe produces the subscription frames for the topics.
	HandleSubscribe(topics []string) ([][]byte, error)

	// HandleMessage classifies one inbound text frame.
	HandleMessage(raw []byte) (Classified, error)
}
