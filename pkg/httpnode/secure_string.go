package httpnode

import (
	"encoding/json"
	"fmt"
)

// SecureString holds a sensitive value (password, token) that is masked
// whenever it is logged, printed, or marshaled.
type SecureString struct {
	value string
}

// NewSecureString wraps a plain string value.
func NewSecureString(value string) SecureString {
	return SecureString{value: value}
}

// String returns a masked representation.
func (s SecureString) String() string {
	if s.value == "" {
		return ""
	}
	return "***REDACTED***"
}

// Value returns the underlying value. Only call this where the real
// credential is needed, e.g. building an Authorization header.
func (s SecureString) Value() string {
	return s.value
}

// IsEmpty reports whether no value was set.
func (s SecureString) IsEmpty() bool {
	return s.value == ""
}

// MarshalJSON masks the value.
func (s SecureString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON accepts the plaintext value from input.
func (s *SecureString) UnmarshalJSON(data []byte) error {
	var value string
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	s.value = value
	return nil
}

// GoString masks the value under %#v.
func (s SecureString) GoString() string {
	if s.value == "" {
		return "SecureString{}"
	}
	return fmt.Sprintf("SecureString{value:%q}", s.String())
}
