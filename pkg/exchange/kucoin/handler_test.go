package kucoin

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/http"
	"net/url"
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

func signedCredentials() []Option {
	return []Option{
		WithPubkey("my-key"),
		WithSecret("my-secret"),
		WithPassphrase("my-passphrase"),
		WithAuth(core.AuthSign),
	}
}

func base64HMAC(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestHandler_BaseURL(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	u, err := h.BaseURL(false)
	require.NoError(t, err)
	assert.Equal(t, "https://api.kucoin.com", u.String())

	u, err = h.BaseURL(true)
	require.NoError(t, err)
	assert.Equal(t, "https://openapi-sandbox.kucoin.com", u.String())

	h = newTestHandler(DefaultOptions().merged([]Option{WithHTTPURL(URLFutures)}))
	u, err = h.BaseURL(false)
	require.NoError(t, err)
	assert.Equal(t, "https://api-futures.kucoin.com", u.String())
}

func TestHandler_SignatureMatchesReference(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged(signedCredentials()))
	r := wire(t, http.MethodGet, "https://api.kucoin.com/api/v1/accounts?currency=USDT")

	require.NoError(t, h.BuildRequest(r, nil))

	assert.Equal(t, "my-key", r.Header.Get("KC-API-KEY"))
	assert.Equal(t, "1748779200000", r.Header.Get("KC-API-TIMESTAMP"))
	assert.Equal(t, "2", r.Header.Get("KC-API-KEY-VERSION"))

	prehash := "1748779200000GET/api/v1/accounts?currency=USDT"
	assert.Equal(t, base64HMAC("my-secret", prehash), r.Header.Get("KC-API-SIGN"))
	assert.Equal(t, base64HMAC("my-secret", "my-passphrase"), r.Header.Get("KC-API-PASSPHRASE"))
}

func TestHandler_SignatureCoversJSONBody(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged(signedCredentials()))
	r := wire(t, http.MethodPost, "https://api.kucoin.com/api/v1/orders")

	require.NoError(t, h.BuildRequest(r, map[string]string{"symbol": "BTC-USDT"}))

	assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
	prehash := "1748779200000POST/api/v1/orders" + string(r.Body)
	assert.Equal(t, base64HMAC("my-secret", prehash), r.Header.Get("KC-API-SIGN"))
}

func TestHandler_MissingCredentials(t *testing.T) {
	var authErr *core.AuthError

	h := newTestHandler(DefaultOptions().merged([]Option{WithAuth(core.AuthSign)}))
	err := h.BuildRequest(wire(t, http.MethodGet, "https://api.kucoin.com/x"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingPubkey, authErr.Kind)

	h = newTestHandler(DefaultOptions().merged([]Option{WithPubkey("key"), WithAuth(core.AuthSign)}))
	err = h.BuildRequest(wire(t, http.MethodGet, "https://api.kucoin.com/x"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingSecret, authErr.Kind)

	h = newTestHandler(DefaultOptions().merged([]Option{WithPubkey("key"), WithSecret("secret"), WithAuth(core.AuthSign)}))
	err = h.BuildRequest(wire(t, http.MethodGet, "https://api.kucoin.com/x"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingPassphrase, authErr.Kind)
}

func TestHandler_ErrorEnvelopeOnHTTP200(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	body := []byte(`{"code":"400003","msg":"KC-API-KEY not exists"}`)
	err := h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: body}, nil)

	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthUnauthorized, authErr.Kind)
	assert.Equal(t, "400003", authErr.Code)
}

func TestHandler_SuccessEnvelopeDecodes(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	var out struct {
		Data struct {
			Price string `json:"price"`
		} `json:"data"`
	}
	body := []byte(`{"code":"200000","data":{"price":"65000.1"}}`)
	require.NoError(t, h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: body}, &out))
	assert.Equal(t, "65000.1", out.Data.Price)
}

func TestHandler_ErrorClassification(t *testing.T) {
	tests := []struct {
		code string
		kind core.AuthErrorKind
	}{
		{"400002", core.AuthTimestamp},
		{"400003", core.AuthUnauthorized},
		{"400004", core.AuthUnauthorized},
		{"400005", core.AuthSignature},
		{"400006", core.AuthPermission},
		{"400007", core.AuthPermission},
	}

	h := newTestHandler(DefaultOptions())
	for _, tt := range tests {
		err := h.classify(tt.code, "nope")
		var authErr *core.AuthError
		require.ErrorAs(t, err, &authErr, "code %s", tt.code)
		assert.Equal(t, tt.kind, authErr.Kind, "code %s", tt.code)
	}

	var rlErr *core.RateLimitError
	assert.ErrorAs(t, h.classify("429000", "slow down"), &rlErr)
	err := h.HandleResponse(&core.Response{StatusCode: 429, Header: http.Header{}, Body: nil}, nil)
	assert.ErrorAs(t, err, &rlErr)
	assert.Nil(t, rlErr.Until)

	header := http.Header{}
	header.Set("Retry-After", "30")
	err = h.HandleResponse(&core.Response{StatusCode: 429, Header: header, Body: []byte("Too Many Requests")}, nil)
	require.ErrorAs(t, err, &rlErr)
	require.NotNil(t, rlErr.Until)
	assert.Equal(t, fixedClock().Add(30*time.Second), *rlErr.Until)

	var apiErr *core.APIError
	require.ErrorAs(t, h.classify("900001", "symbol not found"), &apiErr)
	assert.Equal(t, "kucoin", apiErr.Exchange)
	assert.Equal(t, "900001", apiErr.Code)
}
