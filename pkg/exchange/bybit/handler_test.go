package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradewire/pkg/core"
)

func fixedClock() time.Time {
	return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
}

func newTestHandler(opts Options) *handler {
	h := newHandler(opts, zerolog.Nop())
	h.now = fixedClock
	return h
}

func wire(t *testing.T, method, rawURL string) *core.WireRequest {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &core.WireRequest{Method: method, URL: u, Header: http.Header{}}
}

func referenceHMAC(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandler_BaseURL(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	u, err := h.BaseURL(false)
	require.NoError(t, err)
	assert.Equal(t, "https://api.bybit.com", u.String())

	u, err = h.BaseURL(true)
	require.NoError(t, err)
	assert.Equal(t, "https://api-testnet.bybit.com", u.String())

	h = newTestHandler(DefaultOptions().merged([]Option{WithHTTPURL(URLBytick)}))
	_, err = h.BaseURL(true)
	var tnErr *core.MissingTestnetError
	require.ErrorAs(t, err, &tnErr)
	assert.Equal(t, "https://api.bytick.com", tnErr.Mainnet)
}

func TestHandler_V5SignatureGet(t *testing.T) {
	const secret = "top-secret"
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("my-key"),
		WithSecret(secret),
		WithAuth(core.AuthSign),
		WithRecvWindow(5 * time.Second),
	}))
	r := wire(t, http.MethodGet, "https://api.bybit.com/v5/account/wallet-balance?accountType=UNIFIED")

	require.NoError(t, h.BuildRequest(r, nil))

	assert.Equal(t, "my-key", r.Header.Get("X-BAPI-API-KEY"))
	assert.Equal(t, "1748779200000", r.Header.Get("X-BAPI-TIMESTAMP"))
	assert.Equal(t, "5000", r.Header.Get("X-BAPI-RECV-WINDOW"))
	assert.Empty(t, r.Header.Get("X-BAPI-SIGN-TYPE"))

	want := referenceHMAC(secret, "1748779200000my-key5000accountType=UNIFIED")
	assert.Equal(t, want, r.Header.Get("X-BAPI-SIGN"))
	// The query itself stays untouched; the signature rides in headers.
	assert.Equal(t, "accountType=UNIFIED", r.URL.RawQuery)
}

func TestHandler_V5SignatureCoversJSONBody(t *testing.T) {
	const secret = "top-secret"
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("my-key"),
		WithSecret(secret),
		WithAuth(core.AuthSign),
	}))
	r := wire(t, http.MethodPost, "https://api.bybit.com/v5/order/create")

	require.NoError(t, h.BuildRequest(r, map[string]string{"symbol": "BTCUSDT"}))

	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	want := referenceHMAC(secret, "1748779200000my-key"+string(r.Body))
	assert.Equal(t, want, r.Header.Get("X-BAPI-SIGN"))
}

func TestHandler_V5EmptyPostBodyBecomesEmptyObject(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("key"),
		WithSecret("secret"),
		WithAuth(core.AuthSign),
	}))
	r := wire(t, http.MethodPost, "https://api.bybit.com/v5/position/set-leverage")

	require.NoError(t, h.BuildRequest(r, nil))
	assert.Equal(t, "{}", string(r.Body))
}

func TestHandler_UsdcVariantAddsSignTypeHeader(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("key"),
		WithSecret("secret"),
		WithAuth(core.AuthSign),
		WithVariant(VariantUsdcV1),
	}))
	r := wire(t, http.MethodGet, "https://api.bybit.com/option/usdc/openapi/private/v1/query-position")

	require.NoError(t, h.BuildRequest(r, nil))
	assert.Equal(t, "2", r.Header.Get("X-BAPI-SIGN-TYPE"))
}

func TestHandler_LegacySpotGetSignsSortedQuery(t *testing.T) {
	const secret = "legacy-secret"
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("my-key"),
		WithSecret(secret),
		WithAuth(core.AuthSign),
		WithVariant(VariantSpotV1),
	}))
	r := wire(t, http.MethodGet, "https://api.bybit.com/spot/v1/order?symbol=BTCUSDT&orderId=42")

	require.NoError(t, h.BuildRequest(r, nil))

	canonical, signature, found := strings.Cut(r.URL.RawQuery, "&sign=")
	require.True(t, found)
	assert.Equal(t, "api_key=my-key&orderId=42&symbol=BTCUSDT&timestamp=1748779200000", canonical)
	assert.Equal(t, referenceHMAC(secret, canonical), signature)
}

func TestHandler_LegacySpotPostSignsSortedBody(t *testing.T) {
	const secret = "legacy-secret"
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("my-key"),
		WithSecret(secret),
		WithAuth(core.AuthSign),
		WithVariant(VariantSpotV1),
	}))
	r := wire(t, http.MethodPost, "https://api.bybit.com/spot/v1/order")

	require.NoError(t, h.BuildRequest(r, map[string]string{"symbol": "BTCUSDT"}))

	assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
	canonical, signature, found := strings.Cut(string(r.Body), "&sign=")
	require.True(t, found)
	assert.Equal(t, "api_key=my-key&symbol=BTCUSDT&timestamp=1748779200000", canonical)
	assert.Equal(t, referenceHMAC(secret, canonical), signature)
}

func TestHandler_LegacyBelowV3PostSendsJSON(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("key"),
		WithSecret("secret"),
		WithAuth(core.AuthSign),
		WithVariant(VariantBelowV3),
	}))
	r := wire(t, http.MethodPost, "https://api.bybit.com/v2/private/order/create")

	require.NoError(t, h.BuildRequest(r, map[string]string{"symbol": "BTCUSD"}))

	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	assert.Contains(t, string(r.Body), `"api_key":"key"`)
	assert.Contains(t, string(r.Body), `"sign":`)
	assert.Contains(t, string(r.Body), `"symbol":"BTCUSD"`)
}

func TestHandler_MissingCredentials(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{WithAuth(core.AuthSign)}))
	err := h.BuildRequest(wire(t, http.MethodGet, "https://api.bybit.com/x"), nil)
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingPubkey, authErr.Kind)

	h = newTestHandler(DefaultOptions().merged([]Option{WithPubkey("key"), WithAuth(core.AuthSign)}))
	err = h.BuildRequest(wire(t, http.MethodGet, "https://api.bybit.com/x"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingSecret, authErr.Kind)
}

func TestHandler_RetCodeErrorOnHTTP200(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	body := []byte(`{"retCode":10004,"retMsg":"error sign!","result":{}}`)
	err := h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: body}, nil)

	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthSignature, authErr.Kind)
	assert.Equal(t, "error sign!", authErr.Msg)
}

func TestHandler_RetCodeZeroDecodesResult(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	var out struct {
		Result struct {
			Symbol string `json:"symbol"`
		} `json:"result"`
	}
	body := []byte(`{"retCode":0,"retMsg":"OK","result":{"symbol":"BTCUSDT"}}`)
	require.NoError(t, h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: body}, &out))
	assert.Equal(t, "BTCUSDT", out.Result.Symbol)
}

func TestHandler_RateLimit429ReadsRetryAfter(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	// Bybit's edge serves plain-text bodies on HTTP 429; the status alone
	// decides, the body must not be parsed.
	header := http.Header{}
	header.Set("Retry-After", "30")
	err := h.HandleResponse(&core.Response{StatusCode: 429, Header: header, Body: []byte("Too Many Requests")}, nil)

	var rlErr *core.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	require.NotNil(t, rlErr.Until)
	assert.Equal(t, fixedClock().Add(30*time.Second), *rlErr.Until)

	err = h.HandleResponse(&core.Response{StatusCode: 429, Header: http.Header{}, Body: nil}, nil)
	require.ErrorAs(t, err, &rlErr)
	assert.Nil(t, rlErr.Until)
}

func TestHandler_Forbidden403IsRateLimit(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	err := h.HandleResponse(&core.Response{StatusCode: 403, Header: http.Header{}, Body: nil}, nil)
	var rlErr *core.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Nil(t, rlErr.Until)
}

func TestHandler_Unauthorized401(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	err := h.HandleResponse(&core.Response{StatusCode: 401, Header: http.Header{}, Body: []byte("denied")}, nil)
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthUnauthorized, authErr.Kind)
	assert.Equal(t, "denied", authErr.Msg)
}

func TestHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		code int
		kind core.AuthErrorKind
	}{
		{10003, core.AuthUnauthorized},
		{10004, core.AuthSignature},
		{10005, core.AuthPermission},
		{10007, core.AuthUnauthorized},
		{33004, core.AuthKeyExpired},
	}

	h := newTestHandler(DefaultOptions())
	for _, tt := range tests {
		err := h.classify(tt.code, "nope")
		var authErr *core.AuthError
		require.ErrorAs(t, err, &authErr, "code %d", tt.code)
		assert.Equal(t, tt.kind, authErr.Kind, "code %d", tt.code)
	}

	var rlErr *core.RateLimitError
	assert.ErrorAs(t, h.classify(10006, "visits"), &rlErr)
	assert.ErrorAs(t, h.classify(10018, "ip"), &rlErr)

	var apiErr *core.APIError
	require.ErrorAs(t, h.classify(110007, "balance"), &apiErr)
	assert.Equal(t, "INSUFFICIENT_AVAILABLE_BALANCE", apiErr.Name)

	require.ErrorAs(t, h.classify(424242, "?"), &apiErr)
	assert.Empty(t, apiErr.Name)
	assert.Equal(t, "424242", apiErr.Code)
}
