package kucoin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/core"
)

// handler signs and decodes Kucoin REST traffic. The signature is a base64
// HMAC over timestamp || method || path?query || body, and the passphrase is
// itself HMAC-encrypted with the secret (key version 2).
// https://www.kucoin.com/docs/basic-info/connection-method/authentication/creating-a-request
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
	switch h.opts.HTTPURL {
	case URLFutures:
		if testnet {
			return url.Parse("https://api-sandbox-futures.kucoin.com")
		}
		return url.Parse("https://api-futures.kucoin.com")
	default:
		if testnet {
			return url.Parse("https://openapi-sandbox.kucoin.com")
		}
		return url.Parse("https://api.kucoin.com")
	}
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
	if !h.opts.Passphrase.IsSet() {
		return &core.AuthError{Kind: core.AuthMissingPassphrase}
	}

	timestamp := strconv.FormatInt(h.now().UnixMilli(), 10)
	secret := []byte(h.opts.Secret.Expose())

	pathWithQuery := r.URL.Path
	if r.URL.RawQuery != "" {
		pathWithQuery += "?" + r.URL.RawQuery
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(timestamp))
	mac.Write([]byte(r.Method))
	mac.Write([]byte(pathWithQuery))
	mac.Write(r.Body)
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	passMac := hmac.New(sha256.New, secret)
	passMac.Write([]byte(h.opts.Passphrase.Expose()))
	encryptedPassphrase := base64.StdEncoding.EncodeToString(passMac.Sum(nil))

	r.Header.Set("KC-API-KEY", h.opts.Pubkey)
	r.Header.Set("KC-API-SIGN", signature)
	r.Header.Set("KC-API-TIMESTAMP", timestamp)
	r.Header.Set("KC-API-PASSPHRASE", encryptedPassphrase)
	r.Header.Set("KC-API-KEY-VERSION", "2")
	r.Header.Set("Content-Type", "application/json")
	return nil
}

func (h *handler) HandleResponse(resp *core.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Kucoin answers HTTP 200 even for API errors; the envelope code is
		// the truth.
		var envelope struct {
			Code string `json:"code"`
			Msg  string `json:"msg"`
		}
		if err := sonic.Unmarshal(resp.Body, &envelope); err != nil {
			h.logger.Debug().Err(err).Msg("failed to parse response")
			return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
		}
		if envelope.Code != "" && envelope.Code != "200000" {
			return h.classify(envelope.Code, envelope.Msg)
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
		Code string `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := sonic.Unmarshal(resp.Body, &apiErr); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse error response")
		return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
	}
	return h.classify(apiErr.Code, apiErr.Msg)
}

// classify maps a Kucoin error code to the shared taxonomy. Kucoin codes are
// strings, and the 4000xx band covers the authentication failures.
func (h *handler) classify(code, msg string) error {
	switch code {
	case "400002":
		return &core.AuthError{Kind: core.AuthTimestamp, Code: code, Msg: msg}
	case "400003", "400004":
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: code, Msg: msg}
	case "400005":
		return &core.AuthError{Kind: core.AuthSignature, Code: code, Msg: msg}
	case "400006", "400007":
		return &core.AuthError{Kind: core.AuthPermission, Code: code, Msg: msg}
	case "429000":
		return &core.RateLimitError{}
	}
	return &core.APIError{Exchange: "kucoin", Code: code, Msg: msg}
}
