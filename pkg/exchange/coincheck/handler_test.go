package coincheck

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
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

func hexHMAC(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestHandler_BaseURL(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	u, err := h.BaseURL(false)
	require.NoError(t, err)
	assert.Equal(t, "https://coincheck.com", u.String())

	var tnErr *core.MissingTestnetError
	_, err = h.BaseURL(true)
	require.ErrorAs(t, err, &tnErr)
}

func TestHandler_SignatureCoversFullURLAndBody(t *testing.T) {
	h := newTestHandler(DefaultOptions().merged([]Option{
		WithPubkey("my-key"),
		WithSecret("my-secret"),
		WithAuth(core.AuthSign),
	}))
	r := wire(t, http.MethodPost, "https://coincheck.com/api/exchange/orders")

	require.NoError(t, h.BuildRequest(r, map[string]string{"pair": "btc_jpy"}))

	assert.Equal(t, "my-key", r.Header.Get("ACCESS-KEY"))
	assert.Equal(t, "1748779200000", r.Header.Get("ACCESS-NONCE"))
	assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))

	payload := "1748779200000https://coincheck.com/api/exchange/orders" + string(r.Body)
	assert.Equal(t, hexHMAC("my-secret", payload), r.Header.Get("ACCESS-SIGNATURE"))
}

func TestHandler_MissingCredentials(t *testing.T) {
	var authErr *core.AuthError

	h := newTestHandler(DefaultOptions().merged([]Option{WithAuth(core.AuthSign)}))
	err := h.BuildRequest(wire(t, http.MethodGet, "https://coincheck.com/api/accounts/balance"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingPubkey, authErr.Kind)

	h = newTestHandler(DefaultOptions().merged([]Option{WithPubkey("key"), WithAuth(core.AuthSign)}))
	err = h.BuildRequest(wire(t, http.MethodGet, "https://coincheck.com/api/accounts/balance"), nil)
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthMissingSecret, authErr.Kind)
}

func TestHandler_FailureEnvelopeOnHTTP200(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	body := []byte(`{"success":false,"error":"invalid authentication"}`)
	err := h.HandleResponse(&core.Response{StatusCode: 200, Header: http.Header{}, Body: body}, nil)

	var apiErr *core.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "coincheck", apiErr.Exchange)
	assert.Equal(t, "invalid authentication", apiErr.Msg)
}

func TestHandler_ErrorResponses(t *testing.T) {
	h := newTestHandler(DefaultOptions())

	var rlErr *core.RateLimitError
	err := h.HandleResponse(&core.Response{StatusCode: 429, Header: http.Header{}, Body: nil}, nil)
	assert.ErrorAs(t, err, &rlErr)
	assert.Nil(t, rlErr.Until)

	header := http.Header{}
	header.Set("Retry-After", "30")
	err = h.HandleResponse(&core.Response{StatusCode: 429, Header: header, Body: []byte("Too Many Requests")}, nil)
	require.ErrorAs(t, err, &rlErr)
	require.NotNil(t, rlErr.Until)
	assert.Equal(t, fixedClock().Add(30*time.Second), *rlErr.Until)

	body := []byte(`{"error":"invalid api key"}`)
	err = h.HandleResponse(&core.Response{StatusCode: 401, Header: http.Header{}, Body: body}, nil)
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, core.AuthUnauthorized, authErr.Kind)
}

func TestClient_VerbAccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ticker", r.URL.Path)
		assert.Empty(t, r.Header.Get("ACCESS-KEY"))
		fmt.Fprint(w, `{"last":9500000,"bid":9499000,"ask":9501000}`)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))

	var out struct {
		Last float64 `json:"last"`
	}
	require.NoError(t, c.GetNoQuery(context.Background(), "/api/ticker", &out))
	assert.Equal(t, 9500000.0, out.Last)
}

func TestClient_SignedRequestCarriesHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "FAKE", r.Header.Get("ACCESS-KEY"))
		assert.NotEmpty(t, r.Header.Get("ACCESS-NONCE"))
		assert.NotEmpty(t, r.Header.Get("ACCESS-SIGNATURE"))
		fmt.Fprint(w, `{"success":true,"jpy":"100000.0","btc":"0.5"}`)
	}))
	defer srv.Close()

	c := New(WithBaseURL(srv.URL))
	c.Auth("FAKE", "FAKE")
	require.True(t, c.IsAuthenticated())

	var out struct {
		JPY string `json:"jpy"`
	}
	require.NoError(t, c.GetNoQuery(context.Background(), "/api/accounts/balance", &out))
	assert.Equal(t, "100000.0", out.JPY)
}
