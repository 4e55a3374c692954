package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/rs/zerolog"

	"tradewire/internal/transport"
	"tradewire/pkg/core"
)

// handler signs and decodes Bybit REST traffic. Bybit kept every signing
// generation live, so the handler implements all of them and Options.Variant
// picks one per call.
// https://bybit-exchange.github.io/docs/v5/intro
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
	case URLBytick:
		if testnet {
			return nil, &core.MissingTestnetError{Mainnet: "https://api.bytick.com"}
		}
		return url.Parse("https://api.bytick.com")
	default:
		if testnet {
			return url.Parse("https://api-testnet.bybit.com")
		}
		return url.Parse("https://api.bybit.com")
	}
}

func (h *handler) BuildRequest(r *core.WireRequest, body any) error {
	if h.opts.Auth == core.AuthNone {
		if body != nil {
			encoded, err := transport.JSONBody(body)
			if err != nil {
				return &core.BuildError{Reason: "could not serialize body as JSON", Err: err}
			}
			r.Body = encoded
			r.Header.Set("Content-Type", "application/json")
		}
		return nil
	}

	if h.opts.Pubkey == "" {
		return &core.AuthError{Kind: core.AuthMissingPubkey}
	}
	if !validHeaderValue(h.opts.Pubkey) {
		return &core.AuthError{Kind: core.AuthInvalidKeyChar}
	}
	if !h.opts.Secret.IsSet() {
		return &core.AuthError{Kind: core.AuthMissingSecret}
	}

	timestamp := h.now().UnixMilli()
	switch h.opts.Variant {
	case VariantSpotV1:
		return h.legacySign(r, body, timestamp, true)
	case VariantBelowV3:
		return h.legacySign(r, body, timestamp, false)
	case VariantUsdcV1:
		return h.headerSign(r, body, timestamp, true)
	default:
		return h.headerSign(r, body, timestamp, false)
	}
}

// headerSign implements the v3/v5 scheme: the signature covers
// timestamp || key || recvWindow || payload and rides in X-BAPI-* headers.
func (h *handler) headerSign(r *core.WireRequest, body any, timestamp int64, versionHeader bool) error {
	payload := r.URL.RawQuery
	if r.Method != http.MethodGet && r.Method != http.MethodDelete {
		encoded := []byte("{}")
		if body != nil {
			var err error
			encoded, err = transport.JSONBody(body)
			if err != nil {
				return &core.BuildError{Reason: "could not serialize body as JSON", Err: err}
			}
		}
		r.Body = encoded
		r.Header.Set("Content-Type", "application/json")
		payload = string(encoded)
	}

	ts := strconv.FormatInt(timestamp, 10)
	signed := ts + h.opts.Pubkey
	if h.opts.RecvWindow > 0 {
		signed += strconv.FormatInt(h.opts.RecvWindow.Milliseconds(), 10)
	}
	signed += payload

	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte(signed))

	if versionHeader {
		r.Header.Set("X-BAPI-SIGN-TYPE", "2")
	}
	r.Header.Set("X-BAPI-SIGN", hex.EncodeToString(mac.Sum(nil)))
	r.Header.Set("X-BAPI-API-KEY", h.opts.Pubkey)
	r.Header.Set("X-BAPI-TIMESTAMP", ts)
	if h.opts.RecvWindow > 0 {
		r.Header.Set("X-BAPI-RECV-WINDOW", strconv.FormatInt(h.opts.RecvWindow.Milliseconds(), 10))
	}
	return nil
}

// legacySign implements the pre-v3 scheme: parameters plus api_key and
// timestamp are sorted, signed, and the signature appended as sign=. Spot v1
// sends urlencoded bodies, the other legacy endpoints JSON.
func (h *handler) legacySign(r *core.WireRequest, body any, timestamp int64, spot bool) error {
	recvKey := "recv_window"
	if spot {
		recvKey = "recvWindow"
	}

	if r.Method == http.MethodGet || r.Method == http.MethodDelete {
		pairs := queryPairs(r.Query())
		if h.opts.RecvWindow > 0 {
			pairs = append(pairs, [2]string{recvKey, strconv.FormatInt(h.opts.RecvWindow.Milliseconds(), 10)})
		}
		canonical := sortAndJoin(pairs, h.opts.Pubkey, timestamp)
		r.URL.RawQuery = canonical + "&sign=" + h.signHex(canonical)

		if body == nil {
			return nil
		}
		return h.legacyBody(r, body, spot)
	}

	encoded := ""
	if body != nil {
		raw, err := transport.FormBody(body)
		if err != nil {
			return &core.BuildError{Reason: "could not serialize body as application/x-www-form-urlencoded", Err: err}
		}
		encoded = string(raw)
	}
	if h.opts.RecvWindow > 0 {
		if encoded != "" {
			encoded += "&"
		}
		encoded += recvKey + "=" + strconv.FormatInt(h.opts.RecvWindow.Milliseconds(), 10)
	}

	var pairs [][2]string
	if encoded != "" {
		for _, pair := range strings.Split(encoded, "&") {
			k, v, _ := strings.Cut(pair, "=")
			pairs = append(pairs, [2]string{k, v})
		}
	}
	canonical := sortAndJoin(pairs, h.opts.Pubkey, timestamp)
	signed := canonical + "&sign=" + h.signHex(canonical)

	if spot {
		r.Body = []byte(signed)
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return nil
	}

	values, err := url.ParseQuery(signed)
	if err != nil {
		return &core.BuildError{Reason: "could not reparse signed parameters", Err: err}
	}
	object := make(map[string]string, len(values))
	for k := range values {
		object[k] = values.Get(k)
	}
	jsonBody, err := sonic.Marshal(object)
	if err != nil {
		return &core.BuildError{Reason: "could not serialize signed parameters as JSON", Err: err}
	}
	r.Body = jsonBody
	r.Header.Set("Content-Type", "application/json")
	return nil
}

func (h *handler) legacyBody(r *core.WireRequest, body any, spot bool) error {
	if spot {
		encoded, err := transport.FormBody(body)
		if err != nil {
			return &core.BuildError{Reason: "could not serialize body as application/x-www-form-urlencoded", Err: err}
		}
		r.Body = encoded
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return nil
	}
	encoded, err := transport.JSONBody(body)
	if err != nil {
		return &core.BuildError{Reason: "could not serialize body as JSON", Err: err}
	}
	r.Body = encoded
	r.Header.Set("Content-Type", "application/json")
	return nil
}

func (h *handler) signHex(payload string) string {
	mac := hmac.New(sha256.New, []byte(h.opts.Secret.Expose()))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func queryPairs(values url.Values) [][2]string {
	var pairs [][2]string
	for key, vs := range values {
		for _, v := range vs {
			pairs = append(pairs, [2]string{key, v})
		}
	}
	return pairs
}

// sortAndJoin builds the canonical legacy parameter string: pairs plus
// api_key and timestamp, sorted, joined with & and = omitted for empty
// values.
func sortAndJoin(pairs [][2]string, pubkey string, timestamp int64) string {
	pairs = append(pairs,
		[2]string{"api_key", pubkey},
		[2]string{"timestamp", strconv.FormatInt(timestamp, 10)},
	)
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i][0] != pairs[j][0] {
			return pairs[i][0] < pairs[j][0]
		}
		return pairs[i][1] < pairs[j][1]
	})

	var b strings.Builder
	for i, pair := range pairs {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(pair[0])
		if pair[1] != "" {
			b.WriteByte('=')
			b.WriteString(pair[1])
		}
	}
	return b.String()
}

func (h *handler) HandleResponse(resp *core.Response, out any) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		// Bybit answers HTTP 200 even for API errors; retCode is the truth.
		var envelope struct {
			RetCode *int64 `json:"retCode"`
			RetMsg  string `json:"retMsg"`
		}
		if err := sonic.Unmarshal(resp.Body, &envelope); err != nil {
			h.logger.Debug().Err(err).Msg("failed to parse response")
			return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
		}
		if envelope.RetCode != nil && *envelope.RetCode != 0 {
			return h.classify(int(*envelope.RetCode), envelope.RetMsg)
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

	// https://bybit-exchange.github.io/docs/v5/rate-limit
	if resp.StatusCode == http.StatusTooManyRequests {
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
	// A bare 403 is Bybit's IP-level rate limit; no reset time is given.
	if resp.StatusCode == http.StatusForbidden {
		return &core.RateLimitError{}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		msg := string(resp.Body)
		if msg == "" {
			msg = "HTTP 401 Unauthorized"
		}
		return &core.AuthError{Kind: core.AuthUnauthorized, Msg: msg}
	}

	var apiErr struct {
		RetCode int64  `json:"retCode"`
		RetMsg  string `json:"retMsg"`
		Code    int64  `json:"ret_code"`
		Msg     string `json:"ret_msg"`
	}
	if err := sonic.Unmarshal(resp.Body, &apiErr); err != nil {
		h.logger.Debug().Err(err).Msg("failed to parse error response")
		return &core.ParseError{Err: err, Body: core.TruncateBody(resp.Body)}
	}
	code, msg := apiErr.RetCode, apiErr.RetMsg
	if code == 0 && apiErr.Code != 0 {
		code, msg = apiErr.Code, apiErr.Msg
	}
	return h.classify(int(code), msg)
}

// classify maps a Bybit error code to the shared taxonomy.
func (h *handler) classify(code int, msg string) error {
	codeStr := strconv.Itoa(code)
	switch code {
	case 10003:
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: codeStr, Msg: msg}
	case 10004:
		return &core.AuthError{Kind: core.AuthSignature, Code: codeStr, Msg: msg}
	case 10005:
		return &core.AuthError{Kind: core.AuthPermission, Code: codeStr, Msg: msg}
	case 10007, 10010:
		return &core.AuthError{Kind: core.AuthUnauthorized, Code: codeStr, Msg: msg}
	case 33004:
		return &core.AuthError{Kind: core.AuthKeyExpired, Code: codeStr, Msg: msg}
	case 10006, 10018:
		return &core.RateLimitError{}
	}

	name, known := errorCodeNames[code]
	if !known {
		h.logger.Warn().Int("code", code).Str("msg", msg).Msg("unrecognized Bybit error code")
	}
	return &core.APIError{Exchange: "bybit", Code: codeStr, Name: name, Msg: msg}
}

func validHeaderValue(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < 0x20 || s[i] == 0x7f {
			return false
		}
	}
	return true
}
