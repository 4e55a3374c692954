package core

import (
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// AuthLevel states how much authentication a request carries.
type AuthLevel int

const (
	// AuthNone sends the request fully anonymous.
	AuthNone AuthLevel = iota
	// AuthKey attaches the API key without signing.
	AuthKey
	// AuthSign attaches the API key, timestamp, and signature.
	AuthSign
)

// String returns the string representation of the auth level.
func (a AuthLevel) String() string {
	return [...]string{"none", "key", "sign"}[a]
}

// RequestConfig tunes one dispatched HTTP request. The zero value is not
// usable; start from DefaultRequestConfig.
type RequestConfig struct {
	// URLPrefix is inserted between the base URL and the endpoint path.
	URLPrefix string

	// Timeout bounds a single attempt, not the whole call.
	Timeout time.Duration `validate:"gt=0"`

	// MaxTries is the total number of attempts. Only transport timeouts
	// trigger another attempt.
	MaxTries int `validate:"min=1"`

	// RetryCooldown is the pause between attempts.
	RetryCooldown time.Duration `validate:"min=0"`
}

// DefaultRequestConfig returns the stock per-request settings: one attempt,
// 3s timeout, 500ms cooldown between retries when retries are enabled.
func DefaultRequestConfig() RequestConfig {
	return RequestConfig{
		Timeout:       3 * time.Second,
		MaxTries:      1,
		RetryCooldown: 500 * time.Millisecond,
	}
}

// Validate checks the config against its struct tags.
func (c RequestConfig) Validate() error {
	return validate.Struct(c)
}
