package core

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestError_UnwrapsToLeaf(t *testing.T) {
	leaf := &AuthError{Kind: AuthSignature, Code: "-1022"}
	err := NewRequestError(StageHandle, leaf)

	var authErr *AuthError
	require.True(t, errors.As(err, &authErr))
	assert.Equal(t, AuthSignature, authErr.Kind)
	assert.Equal(t, "-1022", authErr.Code)

	var reqErr *RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, StageHandle, reqErr.Stage)
}

func TestStage_String(t *testing.T) {
	tests := []struct {
		stage    Stage
		expected string
	}{
		{StageURL, "url"},
		{StageBuild, "build"},
		{StageSend, "send"},
		{StageReceive, "receive"},
		{StageHandle, "handle"},
		{StageOther, "other"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, tt.stage.String())
	}
}

func TestAuthError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *AuthError
		contains []string
	}{
		{
			name:     "client side missing secret",
			err:      &AuthError{Kind: AuthMissingSecret},
			contains: []string{"missing secret"},
		},
		{
			name:     "server side with code",
			err:      &AuthError{Kind: AuthTimestamp, Code: "-1021", Msg: "Timestamp outside recvWindow"},
			contains: []string{"bad timestamp", "-1021", "recvWindow"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				assert.Contains(t, msg, s)
			}
		})
	}
}

func TestRateLimitError_Error(t *testing.T) {
	assert.Equal(t, "IP timed out or banned", (&RateLimitError{}).Error())

	until := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	withUntil := &RateLimitError{Until: &until}
	assert.Contains(t, withUntil.Error(), "2025-06-01T12:00:00Z")
}

func TestParseError_Unwrap(t *testing.T) {
	inner := errors.New("unexpected token")
	err := &ParseError{Err: inner, Body: "<html>"}

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "<html>")
}

func TestMissingTestnetError_Error(t *testing.T) {
	err := &MissingTestnetError{Mainnet: "https://coincheck.com"}
	assert.Contains(t, err.Error(), "https://coincheck.com")
	assert.Contains(t, err.Error(), "testnet")
}

func TestWsError_Unwrap(t *testing.T) {
	inner := errors.New("connection refused")
	err := NewWsError("transport", inner)

	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "ws transport")
}

func TestTruncateBody(t *testing.T) {
	short := []byte(`{"ok":true}`)
	assert.Equal(t, `{"ok":true}`, TruncateBody(short))

	long := []byte(strings.Repeat("x", 1000))
	got := TruncateBody(long)
	assert.Len(t, got, 256+len("...(truncated)"))
	assert.True(t, strings.HasSuffix(got, "...(truncated)"))
}
