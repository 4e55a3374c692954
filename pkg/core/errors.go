// Package core defines the contracts shared by the dispatch engine and the
// per-exchange handlers: request/response envelopes, handler interfaces,
// configuration records, and the error taxonomy.
package core

import (
	"fmt"
	"time"
)

// Stage identifies which phase of a dispatched request produced an error.
type Stage int

// Dispatch stages, in pipeline order.
const (
	// StageURL indicates base-URL resolution failed before any network activity.
	StageURL Stage = iota
	// StageBuild indicates the handler failed to construct the wire request.
	StageBuild
	// StageSend indicates the transport failed to deliver the request.
	StageSend
	// StageReceive indicates the response body could not be read after headers arrived.
	StageReceive
	// StageHandle indicates the handler rejected or could not decode the response.
	StageHandle
	// StageOther covers failures outside the pipeline proper.
	StageOther
)

// String returns the string representation of the dispatch stage.
func (s Stage) String() string {
	return [...]string{"url", "build", "send", "receive", "handle", "other"}[s]
}

// RequestError is the error type returned by the dispatch core. The Stage
// distinguishes build, send, receive, and handle failures; the wrapped error
// carries the detail (AuthError, RateLimitError, APIError, ParseError, ...).
type RequestError struct {
	Stage Stage
	Err   error
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return fmt.Sprintf("request %s: %v", e.Stage, e.Err)
}

// Unwrap returns the wrapped error so callers can match with errors.As.
func (e *RequestError) Unwrap() error { return e.Err }

// NewRequestError wraps err with the given dispatch stage.
func NewRequestError(stage Stage, err error) *RequestError {
	return &RequestError{Stage: stage, Err: err}
}

// AuthErrorKind categorizes authentication failures, both client-side
// (missing credentials) and server-side (rejected credentials).
type AuthErrorKind int

// Authentication failure categories.
const (
	// AuthMissingPubkey means a signed request was attempted without an API key.
	AuthMissingPubkey AuthErrorKind = iota
	// AuthMissingSecret means a signed request was attempted without a secret.
	AuthMissingSecret
	// AuthMissingPassphrase means the exchange requires an API passphrase that was not set.
	AuthMissingPassphrase
	// AuthUnauthorized means the exchange rejected the credentials.
	AuthUnauthorized
	// AuthKeyExpired means the API key has expired.
	AuthKeyExpired
	// AuthSignature means the exchange rejected the request signature.
	AuthSignature
	// AuthTimestamp means the signed timestamp fell outside the receive window.
	AuthTimestamp
	// AuthPermission means the key lacks permission for the endpoint or IP.
	AuthPermission
	// AuthInvalidKeyChar means the API key contains characters invalid in a header.
	AuthInvalidKeyChar
)

// String returns the string representation of the auth failure kind.
func (k AuthErrorKind) String() string {
	return [...]string{
		"missing pubkey",
		"missing secret",
		"missing passphrase",
		"unauthorized",
		"key expired",
		"bad signature",
		"bad timestamp",
		"permission denied",
		"invalid character in api key",
	}[k]
}

// AuthError is an authentication failure. Code and Msg preserve the
// exchange-level error code and human message when the failure came from a
// server response; both are empty for client-side failures.
type AuthError struct {
	Kind AuthErrorKind
	Code string
	Msg  string
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("auth: %s (%s): %s", e.Kind, e.Code, e.Msg)
	}
	if e.Msg != "" {
		return fmt.Sprintf("auth: %s: %s", e.Kind, e.Msg)
	}
	return "auth: " + e.Kind.String()
}

// RateLimitError reports an IP timeout or ban. Until is the unban time when
// the exchange supplied one (usually via Retry-After), nil otherwise.
//
// The dispatch core never retries on this error; callers own the backoff.
type RateLimitError struct {
	Until *time.Time
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.Until != nil {
		return fmt.Sprintf("IP timed out or banned until %s", e.Until.Format(time.RFC3339))
	}
	return "IP timed out or banned"
}

// APIError is an error the exchange transmitted on purpose that does not map
// to a more specific variant. Code keeps the exchange-level error code, Name
// the recognized identifier when the code is known.
type APIError struct {
	Exchange string
	Code     string
	Name     string
	Msg      string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("%s api error %s (%s): %s", e.Exchange, e.Code, e.Name, e.Msg)
	}
	return fmt.Sprintf("%s api error %s: %s", e.Exchange, e.Code, e.Msg)
}

// ParseError means a response body could not be decoded as the expected type.
// Body holds a truncated copy of the offending payload for diagnostics.
type ParseError struct {
	Err  error
	Body string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("parse response: %v (body: %s)", e.Err, e.Body)
}

// Unwrap returns the underlying decode error.
func (e *ParseError) Unwrap() error { return e.Err }

// BuildError means the handler could not construct a wire request for a
// reason other than missing credentials (those are AuthError).
type BuildError struct {
	Reason string
	Err    error
}

// Error implements the error interface.
func (e *BuildError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("build request: %s: %v", e.Reason, e.Err)
	}
	return "build request: " + e.Reason
}

// Unwrap returns the underlying error, if any.
func (e *BuildError) Unwrap() error { return e.Err }

// MissingTestnetError is returned when the testnet flag is set but the chosen
// endpoint has no testnet deployment. It fails before any network activity.
type MissingTestnetError struct {
	Mainnet string
}

// Error implements the error interface.
func (e *MissingTestnetError) Error() string {
	return "exchange does not provide a testnet for endpoint " + e.Mainnet
}

// WsError is the error type surfaced by the WebSocket connection manager and
// WS handlers. Op names the failing operation: "url", "auth", "subscribe",
// "transport", "parse", or "closed".
type WsError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *WsError) Error() string {
	return fmt.Sprintf("ws %s: %v", e.Op, e.Err)
}

// Unwrap returns the wrapped error.
func (e *WsError) Unwrap() error { return e.Err }

// NewWsError wraps err with the given WS operation name.
func NewWsError(op string, err error) *WsError {
	return &WsError{Op: op, Err: err}
}

const maxLoggedBody = 256

// TruncateBody renders a response body for log output, cutting it down to a
// bounded prefix so oversized payloads don't flood the logs.
func TruncateBody(body []byte) string {
	if len(body) <= maxLoggedBody {
		return string(body)
	}
	return string(body[:maxLoggedBody]) + "...(truncated)"
}
