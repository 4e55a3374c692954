package mexc

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

// handler signs and decodes MEXC contract REST traffic. The signature is a
// hex HMAC over pubkey || timestamp || params, where params is the encoded
// query for GET/DELETE and the raw body otherwise.
// https://mexcdevelop.github.io/apidocs/contract_v1_en/#signed
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
	case URLSpot:
		if testnet {
			return url.Parse("https://api-testnet.mexc.com")
		}
		return url.Parse("https://api.mexc.com")
	default:
		if testnet {
			return nil, &core.MissingTestnetError{Mainnet: "https://contract.mexc.com"}
		}
		return url.Parse("https://contract.mexc.com")
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
	r.Header.Set("ApiKey", h.opts.Pubkey)

	if h.opts.Auth != core.AuthSign {
		return nil
	}
	if !h.opts.Secret.IsSet() {
		return &core.AuthError{Kind: core.AuthMissingSecret}
	}

	timestamp := strconv.FormatInt(h.now().UnixMilli(), 10)

	// GET and DELETE sign the encoded query; everything else signs the raw
	// body bytes.
	params := r.URL.RawQuery
	if r.Method != "GET" && r.Method != "DELETE" {
		params = string(r.Body)
	}

	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte(h.opts.Pubkey))
	mac.Write([]byte(timestamp))
	mac.Write([]byte(params))

	r.Header.Set("Request-Time", timestamp)
	if h.opts.RecvWindow > 0 {
		r.Header.Set("Recv-Window", strconv.FormatInt(h.opts.RecvWindow.Milliseconds(), 10))
	}
	r.Header.Set("Signature", hex.EncodeToString(mac.Sum(nil)))
	return nil
}

func (h *handler) HandleResponse(resp *core.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// The contract API answers HTTP 200 even for failures; success and
		// code in the envelope carry the verdict.
		var envelope struct {
			Success *bool  `json:"success"`
			Code    int    `json:"code"`
			Message string `json:"message"`
		}
		if err := sonic.Unmarshal(resp.Body, &envelope); err != nil {
			h.logger.Debug().Err(err).Msg("failed to parse response")
			return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
		}
		if envelope.Success != nil && !*envelope.Success {
			return h.classify(envelope.Code, envelope.Message)
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
		Code    int    `json:"code"`
		Message string `json:"message"`
	}
	if err := sonic.Unmarshal(resp.Body, &apiErr); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse error response")
		return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
	}
	return h.classify(apiErr.Code, apiErr.Message)
}

// classify maps a contract-API error code to the shared taxonomy.
func (h *handler) classify(code int, msg string) error {
	codeStr := strconv.Itoa(code)
	switch code {
	case 401:
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: codeStr, Msg: msg}
	case 402:
		return &core.AuthError{Kind: core.AuthKeyExpired, Code: codeStr, Msg: msg}
	case 602:
		return &core.AuthError{Kind: core.AuthSignature, Code: codeStr, Msg: msg}
	case 701:
		return &core.AuthError{Kind: core.AuthPermission, Code: codeStr, Msg: msg}
	case 510:
		return &core.RateLimitError{}
	}
	return &core.APIError{Exchange: "mexc", Code: codeStr, Msg: msg}
}
