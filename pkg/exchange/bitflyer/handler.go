package bitflyer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/core"
)

// handler signs and decodes bitFlyer Lightning REST traffic. The signature
// is a hex HMAC over timestamp || method || path?query || body.
// https://lightning.bitflyer.com/docs?lang=en#authentication
type handler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

func newHandler(opts Options, logger zerolog.Logger) *handler {
	return &handler{opts: opts, logger: logger, now: time.Now}
}

func (h *handler) BaseURL(testnet bool) (*url.URL, error) {
	if h.opts.BaseURL != "" {
		return url.Parse(h.opts.BaseURL)
	}
	if testnet {
		return nil, &core.MissingTestnetError{Mainnet: "https://api.bitflyer.com"}
	}
	return url.Parse("https://api.bitflyer.com")
}

func (h *handler) BuildRequest(r *core.WireRequest, body any) error {
	if body != nil {
		encoded, err := transport.JSONBody(body)
		if err != nil {
			return &core.BuildError{Reason: "could not serialize body as JSON", Err: err}
		}
		r.Body = encoded
		r.Header.Set("Content-Type", "application/json")
	}

	if h.opts.Auth == core.AuthNone {
		return nil
	}
	if h.opts.Pubkey == "" {
		return &core.AuthError{Kind: core.AuthMissingPubkey}
	}
	if !h.opts.Secret.IsSet() {
		return &core.AuthError{Kind: core.AuthMissingSecret}
	}

	timestamp := strconv.FormatInt(h.now().UnixMilli(), 10)
	pathWithQuery := r.URL.Path
	if r.URL.RawQuery != "" {
		pathWithQuery += "?" + r.URL.RawQuery
	}

	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(r.Method))
	mac.Write([]byte(pathWithQuery))
	mac.Write(r.Body)

	r.Header.Set("ACCESS-KEY", h.opts.Pubkey)
	r.Header.Set("ACCESS-TIMESTAMP", timestamp)
	r.Header.Set("ACCESS-SIGN", hex.EncodeToString(mac.Sum(nil)))
	r.Header.Set("Content-Type", "application/json")
	return nil
}

func (h *handler) HandleResponse(resp *core.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := sonic.Unmarshal(resp.Body, out); err != nil {
			h.logger.Debug().Err(err).Msg("failed to parse response")
			return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
		}
		return nil
	}

	if resp.StatusCode == 429 {
		var until *time.Time
		if header := resp.Header.Get("Retry-After"); header != "" {
			if seconds, err := strconv.Atoi(header); err == nil {
				t := h.now().Add(time.Duration(seconds) * time.Second)
				until = &t
			} else {
				h.logger.Debug().Str("value", header).Msg("invalid Retry-After header")
			}
		}
		return &core.RateLimitError{Until: until}
	}

	var apiErr struct {
		Status       int    `json:"status"`
		ErrorMessage string `json:"error_message"`
	}
	if err := sonic.Unmarshal(resp.Body, &apiErr); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse error response")
		return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
	}
	if resp.StatusCode == 401 {
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: strconv.Itoa(apiErr.Status), Msg: apiErr.ErrorMessage}
	}
	return &core.APIError{Exchange: "bitflyer", Code: strconv.Itoa(apiErr.Status), Msg: apiErr.ErrorMessage}
}
