package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/url"
	"strconv"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/core"
)

// handler signs and decodes Binance REST traffic.
// https://binance-docs.github.io/apidocs/spot/en/#general-api-information
type handler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

func newHandler(opts Options, logger zerolog.Logger) *handler {
	return &handler{opts: opts, logger: logger, now: time.Now}
}

var errNoBaseURL = errors.New("no Binance base URL configured")

func (h *handler) BaseURL(testnet bool) (*url.URL, error) {
	if h.opts.BaseURL != "" {
		return url.Parse(h.opts.BaseURL)
	}
	var mainnet string
	switch h.opts.HTTPURL {
	case URLSpot:
		mainnet = "https://api.binance.com"
		if testnet {
			return url.Parse("https://testnet.binance.vision")
		}
	case URLSpotData:
		mainnet = "https://data.binance.com"
	case URLFuturesUsdM:
		mainnet = "https://fapi.binance.com"
		if testnet {
			return url.Parse("https://testnet.binancefuture.com")
		}
	case URLFuturesCoinM:
		mainnet = "https://dapi.binance.com"
		if testnet {
			return url.Parse("https://testnet.binancefuture.com")
		}
	case URLEuropeanOptions:
		mainnet = "https://eapi.binance.com"
	default:
		return nil, errNoBaseURL
	}
	if testnet {
		return nil, &core.MissingTestnetError{Mainnet: mainnet}
	}
	return url.Parse(mainnet)
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
	if !validHeaderValue(h.opts.Pubkey) {
		return &core.AuthError{Kind: core.AuthInvalidKeyChar}
	}
	r.Header.Set("X-MBX-APIKEY", h.opts.Pubkey)

	if h.opts.Auth != core.AuthSign {
		return nil
	}
	if !h.opts.Secret.IsSet() {
		return &core.AuthError{Kind: core.AuthMissingSecret}
	}

	q := r.Query()
	q.Set("timestamp", strconv.FormatInt(h.now().UnixMilli(), 10))
	if h.opts.RecvWindow > 0 {
		q.Set("recvWindow", strconv.FormatInt(h.opts.RecvWindow.Milliseconds(), 10))
	}
	r.SetQuery(q)

	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte(r.URL.RawQuery))
	mac.Write(r.Body)
	signature := hex.EncodeToString(mac.Sum(nil))

	// Appended raw so the signed bytes stay exactly what was hashed.
	r.URL.RawQuery += "&signature=" + signature
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

	// https://binance-docs.github.io/apidocs/spot/en/#limits
	if resp.StatusCode == 429 || resp.StatusCode == 418 {
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
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := sonic.Unmarshal(resp.Body, &apiErr); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse error response")
		return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
	}
	return h.classify(apiErr.Code, apiErr.Msg)
}

// classify maps a Binance error code to the shared taxonomy.
func (h *handler) classify(code int, msg string) error {
	codeStr := strconv.Itoa(code)
	switch code {
	case -1002:
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: codeStr, Msg: msg}
	case -1021:
		return &core.AuthError{Kind: core.AuthTimestamp, Code: codeStr, Msg: msg}
	case -1022:
		return &core.AuthError{Kind: core.AuthSignature, Code: codeStr, Msg: msg}
	case -2014:
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: codeStr, Msg: msg}
	case -2015:
		return &core.AuthError{Kind: core.AuthPermission, Code: codeStr, Msg: msg}
	}

	name, known := errorCodeNames[code]
	if !known {
		h.logger.Warn().Int("code", code).Str("msg", msg).Msg("unrecognized Binance error code")
	}
	return &core.APIError{Exchange: "binance", Code: codeStr, Name: name, Msg: msg}
}

func validHeaderValue(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return false
		}
	}
	return true
}
