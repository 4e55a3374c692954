package coincheck

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

// handler signs and decodes Coincheck REST traffic. The signature is a hex
// HMAC over nonce || full_url || body, with the millisecond timestamp doubling
// as the strictly increasing nonce.
// https://coincheck.com/documents/exchange/api#auth
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
		return nil, &core.MissingTestnetError{Mainnet: "https://coincheck.com"}
	}
	return url.Parse("https://coincheck.com")
}

func (h *handler) BuildRequest(r *core.WireRequest, body any) error {
	if body != nil {
		encoded, err := transport.FormBody(body)
		if err != nil {
			return &core.BuildError{Reason: "could not serialize body as application/x-www-form-urlencoded", Err: err}
		}
		r.Body = encoded
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
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

	nonce := strconv.FormatInt(h.now().UnixMilli(), 10)

	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte(nonce))
	mac.Write([]byte(r.URL.String()))
	mac.Write(r.Body)

	r.Header.Set("ACCESS-KEY", h.opts.Pubkey)
	r.Header.Set("ACCESS-NONCE", nonce)
	r.Header.Set("ACCESS-SIGNATURE", hex.EncodeToString(mac.Sum(nil)))
	return nil
}

func (h *handler) HandleResponse(resp *core.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Coincheck answers HTTP 200 with success=false on API errors.
		var envelope struct {
			Success *bool  `json:"success"`
			Error   string `json:"error"`
		}
		if err := sonic.Unmarshal(resp.Body, &envelope); err != nil {
			h.logger.Debug().Err(err).Msg("failed to parse response")
			return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
		}
		if envelope.Success != nil && !*envelope.Success {
			return &core.APIError{Exchange: "coincheck", Msg: envelope.Error}
		}
		if out == nil {
			return nil
		}
		if err := sonic.Unmarshal(resp.Body, out); err != nil {
			h.logger.Debug().Err(err).Msg("failed to parse successful response")
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
		Error string `json:"error"`
	}
	if err := sonic.Unmarshal(resp.Body, &apiErr); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse error response")
		return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
	}
	if resp.StatusCode == 401 {
		return &core.AuthError{Kind: core.AuthUnauthorized, Msg: apiErr.Error}
	}
	return &core.APIError{Exchange: "coincheck", Code: strconv.Itoa(resp.StatusCode), Msg: apiErr.Error}
}
