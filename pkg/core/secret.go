package core

// Secret wraps a credential so that accidental formatting or logging never
// leaks the value. The zero value is an unset secret.
type Secret struct {
	value string
}

// NewSecret wraps a credential string.
func NewSecret(v string) Secret { return Secret{value: v} }

// Expose returns the underlying credential. Call sites should be limited to
// signing code.
func (s Secret) Expose() string { return s.value }

// IsSet reports whether a credential has been stored.
func (s Secret) IsSet() bool { return s.value != "" }

// String implements fmt.Stringer with a redacted placeholder.
func (s Secret) String() string {
	if s.value == "" {
		return "<unset>"
	}
	return "<redacted>"
}

// GoString redacts the value under the %#v verb as well.
func (s Secret) GoString() string { return "core.Secret{" + s.String() + "}" }

// MarshalJSON always emits a redacted placeholder, never the credential.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + s.String() + `"`), nil
}
