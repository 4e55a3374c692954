// Package transport implements the exchange-agnostic HTTP dispatch core: a
// semaphore-bounded, timeout-retrying request loop that delegates signing and
// response interpretation to a per-exchange handler.
package transport

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"
	"resty.dev/v3"

	"tradewire/internal/circuitbreaker"
	"tradewire/internal/ratelimit"
	"tradewire/pkg/core"
)

// DefaultMaxSimultaneousRequests is the stock in-flight request cap.
const DefaultMaxSimultaneousRequests = 100

// Client is the shared dispatch engine. One Client serves any number of
// exchange handlers; the in-flight cap spans all of them.
type Client struct {
	http   *resty.Client
	logger zerolog.Logger

	mu  sync.RWMutex
	sem *semaphore.Weighted

	limiter *ratelimit.Limiter
	breaker *circuitbreaker.Breaker
}

// NewClient builds a dispatch client with the default in-flight cap. Pacing
// and circuit breaking are off until installed.
func NewClient() *Client {
	hc := resty.New()
	hc.SetRetryCount(0) // the dispatch loop owns retries

	return &Client{
		http:   hc,
		logger: zerolog.Nop(),
		sem:    semaphore.NewWeighted(DefaultMaxSimultaneousRequests),
	}
}

// Clone returns a client sharing this client's transport and current
// semaphore. A later SetMaxSimultaneousRequests on either client does not
// affect the other; they diverge from that point.
func (c *Client) Clone() *Client {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return &Client{
		http:    c.http,
		logger:  c.logger,
		sem:     c.sem,
		limiter: c.limiter,
		breaker: c.breaker,
	}
}

// SetLogger installs a logger for request traces and retry events.
func (c *Client) SetLogger(logger zerolog.Logger) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.logger = logger
}

// SetMaxSimultaneousRequests replaces the in-flight cap. The old semaphore is
// swapped out whole, so clones made earlier keep the previous cap.
func (c *Client) SetMaxSimultaneousRequests(n int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sem = semaphore.NewWeighted(n)
}

// SetLimiter installs an optional client-side pacer applied before each
// dispatch. Nil removes it.
func (c *Client) SetLimiter(l *ratelimit.Limiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.limiter = l
}

// SetBreaker installs an optional circuit breaker consulted before each
// dispatch. Nil removes it.
func (c *Client) SetBreaker(b *circuitbreaker.Breaker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.breaker = b
}

// Close releases the underlying transport.
func (c *Client) Close() error {
	return c.http.Close()
}

func (c *Client) snapshot() (*semaphore.Weighted, *ratelimit.Limiter, *circuitbreaker.Breaker, zerolog.Logger) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sem, c.limiter, c.breaker, c.logger
}

// ErrCircuitOpen is returned when the installed breaker refuses the dispatch.
var ErrCircuitOpen = errors.New("circuit breaker open")

// Dispatch runs one logical request: resolve the base URL through the
// handler, then attempt up to cfg.MaxTries sends, re-signing each attempt.
// Only transport timeouts trigger another attempt; every other failure is
// returned immediately. On success the handler decodes the body into out.
func (c *Client) Dispatch(ctx context.Context, method, path string, query url.Values, body any, h core.RequestHandler, cfg core.RequestConfig, testnet bool, out any) error {
	sem, limiter, breaker, logger := c.snapshot()

	if err := sem.Acquire(ctx, 1); err != nil {
		return core.NewRequestError(core.StageOther, err)
	}
	defer sem.Release(1)

	if limiter != nil {
		if err := limiter.Wait(ctx); err != nil {
			return core.NewRequestError(core.StageOther, err)
		}
	}
	if breaker != nil && !breaker.Allow() {
		return core.NewRequestError(core.StageOther, ErrCircuitOpen)
	}

	base, err := h.BaseURL(testnet)
	if err != nil {
		return core.NewRequestError(core.StageURL, err)
	}
	full := *base
	full.Path = joinPath(base.Path, cfg.URLPrefix+path)
	if query != nil {
		full.RawQuery = query.Encode()
	}

	err = c.attemptLoop(ctx, method, &full, body, h, cfg, logger, out)
	if breaker != nil {
		breaker.Record(err == nil)
	}
	return err
}

func (c *Client) attemptLoop(ctx context.Context, method string, full *url.URL, body any, h core.RequestHandler, cfg core.RequestConfig, logger zerolog.Logger, out any) error {
	for attempt := 0; ; attempt++ {
		u := *full // fresh copy so re-signing never stacks parameters
		wire := &core.WireRequest{
			Method:  method,
			URL:     &u,
			Header:  http.Header{},
			Attempt: attempt,
		}
		if err := h.BuildRequest(wire, body); err != nil {
			return core.NewRequestError(core.StageBuild, err)
		}

		resp, err := c.send(ctx, wire, cfg.Timeout)
		if err != nil {
			if attempt+1 < cfg.MaxTries && isAttemptTimeout(ctx, err) {
				logger.Info().
					Str("method", method).
					Str("url", u.Redacted()).
					Int("attempt", attempt+1).
					Msg("request timed out, retrying")
				if serr := sleep(ctx, cfg.RetryCooldown); serr != nil {
					return core.NewRequestError(core.StageOther, serr)
				}
				continue
			}
			return core.NewRequestError(core.StageSend, err)
		}

		logger.Debug().
			Str("method", method).
			Str("url", u.Redacted()).
			Int("status", resp.StatusCode).
			Int("size", len(resp.Body)).
			Msg("http response")

		if err := h.HandleResponse(resp, out); err != nil {
			return core.NewRequestError(core.StageHandle, err)
		}
		return nil
	}
}

func (c *Client) send(ctx context.Context, wire *core.WireRequest, timeout time.Duration) (*core.Response, error) {
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req := c.http.R().SetContext(actx)
	for k, vs := range wire.Header {
		for _, v := range vs {
			req.SetHeader(k, v)
		}
	}
	if len(wire.Body) > 0 {
		req.SetBody(wire.Body)
	}

	resp, err := req.Execute(wire.Method, wire.URL.String())
	if err != nil {
		return nil, err
	}
	return &core.Response{
		StatusCode: resp.StatusCode(),
		Header:     resp.Header(),
		Body:       resp.Bytes(),
	}, nil
}

// isAttemptTimeout reports whether err is a per-attempt timeout rather than a
// caller cancellation or a hard transport failure.
func isAttemptTimeout(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func joinPath(basePath, path string) string {
	if basePath == "" || basePath == "/" {
		return path
	}
	return basePath + path
}
