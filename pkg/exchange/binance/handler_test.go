package binance

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/url"
	"strconv"
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

func wireGet(t *testing.T, rawURL string) *core.WireRequest {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return &core.WireRequest{Method: http.MethodGet, URL: u, Header: http.Header{}}
}

func TestHandler_BaseURL(t *testing.T) {
	tests := []struct {
		name    string
		httpURL HTTPURL
		testnet bool
		want    string
		wantErr bool
	}{
		{"spot", URLSpot, false, "https://api.binance.com", false},
		{"spot testnet", URLSpot, true, "https://testnet.binance.vision", false},
		{"usdm futures", URLFuturesUsdM, false, "https://fapi.binance.com", false},
		{"usdm futures testnet", URLFuturesUsdM, true, "https://testnet.binancefuture.com", false},
		{"coinm futures", URLFuturesCoinM, false, "https://dapi.binance.com", false},
		{"data mirror has no testnet", URLSpotData, true, "", true},
		{"options has no testnet", URLEuropeanOptions, true, "", true},
		{"unset", URLNone, false, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(DefaultOptions().merged([]Option{WithHTTPURL(tt.httpURL)}))
			u, err := h.BaseURL(tt.testnet)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.String())
		})
	}
}

func TestHandler_BaseURL_MissingTestnetTyped(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{WithHTTPURL(URLEuropeanOptions)}))

	_, err := h.BaseURL(true)
	var tnErr *core.MissingTestnetError
	require.ErrorAs(t, err, &tnErr)
	assert.Equal(t, "https://eapi.binance.com", tnErr.Mainnet)
}

func TestHandler_UnsignedRequestCarriesNoAuthArtifacts(t *testing.T) {
	h := newTestHandler(DefaultOptions())
	r := wireGet(t, "https://fapi.binance.com/fapi/v1/klines?symbol=BTCUSDT&interval=1m&limit=2")

	require.NoError(t, h.BuildRequest(r, nil))

	assert.Empty(t, r.Header.Get("X-MBX-APIKEY"))
	assert.NotContains(t, r.URL.RawQuery, "signature")
	assert.NotContains(t, r.URL.RawQuery, "timestamp")
}

func TestHandler_KeyAuthSetsHeaderOnly(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("my-key"),
		WithAuth(core.AuthKey),
	}))
	r := wireGet(t, "https://api.binance.com/api/v3/userDataStream")

	require.NoError(t, h.BuildRequest(r, nil))

	assert.Equal(t, "my-key", r.Header.Get("X-MBX-APIKEY"))
	assert.NotContains(t, r.URL.RawQuery, "signature")
}

func TestHandler_SignatureMatchesReferenceHMAC(t *testing.T) {
	const secret = "NhqPtmdSJYdKjVHjA7PZj4Mge3R5YNiP1e3UZjInClVN65XAbvqqM6A7H5fATj0j"
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("vmPUZE6mv9SD5VNHk4HlWFsOr6aKE2zvsw0MuIgwCIPy6utIco14y7Ju91duEh8A"),
		WithSecret(secret),
		WithAuth(core.AuthSign),
		WithRecvWindow(5 * time.Second),
	}))
	r := wireGet(t, "https://fapi.binance.com/fapi/v3/balance?foo=bar")

	require.NoError(t, h.BuildRequest(r, nil))

	q := r.Query()
	assert.Equal(t, "1748779200000", q.Get("timestamp"))
	assert.Equal(t, "5000", q.Get("recvWindow"))

	signature := q.Get("signature")
	require.NotEmpty(t, signature)

	// Recompute over exactly what precedes the signature parameter.
	signed := r.URL.RawQuery[:len(r.URL.RawQuery)-len("&signature=")-len(signature)]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestHandler_SignatureCoversBody(t *testing.T) {
	const secret = "top-secret"
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("key"),
		WithSecret(secret),
		WithAuth(core.AuthSign),
	}))
	r := wireGet(t, "https://api.binance.com/api/v3/order")
	r.Method = http.MethodPost

	require.NoError(t, h.BuildRequest(r, map[string]string{"symbol": "BTCUSDT"}))

	assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
	assert.Equal(t, "symbol=BTCUSDT", string(r.Body))

	signature := r.Query().Get("signature")
	signed := r.URL.RawQuery[:len(r.URL.RawQuery)-len("&signature=")-len(signature)]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(signed))
	mac.Write(r.Body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), signature)
}

func TestHandler_MissingCredentials(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{WithAuth(core.AuthSign)}))
	r := wireGet(t, "https://fapi.binance.com/fapi/v3/balance")

	err := h.BuildRequest(r, nil)
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingPubkey, authErr.Kind)

	h = newTestHandler(DefaultOptions().merged([]Option{WithPubkey("key"), WithAuth(core.AuthSign)}))
	err = h.BuildRequest(wireGet(t, "https://fapi.binance.com/fapi/v3/balance"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingSecret, authErr.Kind)
}

func TestHandler_InvalidCharacterInKey(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("bad\nkey"),
		WithAuth(core.AuthKey),
	}))

	err := h.BuildRequest(wireGet(t, "https://api.binance.com/x"), nil)
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthInvalidKeyChar, authErr.Kind)
}

func TestHandler_RateLimitWithRetryAfter(t *testing.T) {
	h := newTestHandler(DefaultOptions())
	header := http.Header{}
	header.Set("Retry-After", "30")

	err := h.HandleResponse(&core.Response{StatusCode: 429, Header: header, Body: []byte(`{}`)}, nil)

	var rlErr *core.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	require.NotNil(t, rlErr.Until)
	assert.Equal(t, fixedClock().Add(30*time.Second), *rlErr.Until)
}

func TestHandler_RateLimitWithoutRetryAfter(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	err := h.HandleResponse(&core.Response{StatusCode: 418, Header: http.Header{}, Body: nil}, nil)

	var rlErr *core.RateLimitError
	require.ErrorAs(t, err, &rlErr)
	assert.Nil(t, rlErr.Until)
}

func TestHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		code int
		kind core.AuthErrorKind
	}{
		{-1002, core.AuthUnauthorized},
		{-1021, core.AuthTimestamp},
		{-1022, core.AuthSignature},
		{-2014, core.AuthUnauthorized},
		{-2015, core.AuthPermission},
	}

	h := newTestHandler(DefaultOptions())
	for _, tt := range tests {
		body := []byte(`{"code":` + strconv.Itoa(tt.code) + `,"msg":"nope"}`)
		err := h.HandleResponse(&core.Response{StatusCode: 401, Header: http.Header{}, Body: body}, nil)

		var authErr *core.AuthError
		require.ErrorAs(t, err, &authErr, "code %d", tt.code)
		assert.Equal(t, tt.kind, authErr.Kind, "code %d", tt.code)
		assert.Equal(t, "nope", authErr.Msg)
	}
}

func TestHandler_NamedAndUnknownCodes(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	err := h.HandleResponse(&core.Response{StatusCode: 400, Header: http.Header{}, Body: []byte(`{"code":-1121,"msg":"Invalid symbol."}`)}, nil)
	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "BAD_SYMBOL", apiErr.Name)

	err = h.HandleResponse(&core.Response{StatusCode: 400, Header: http.Header{}, Body: []byte(`{"code":-9999,"msg":"?"}`)}, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Empty(t, apiErr.Name)
	assert.Equal(t, "-9999", apiErr.Code)
}

func TestHandler_SuccessDecodesAndGarbageIsParseError(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	var out struct {
		Price string `json:"price"`
	}
	err := h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: []byte(`{"price":"42.1"}`)}, &out)
	require.NoError(t, err)
	assert.Equal(t, "42.1", out.Price)

	err = h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: []byte(`<html>`)}, &out)
	var parseErr *core.ParseError
	assert.ErrorAs(t, err, &parseErr)
}
