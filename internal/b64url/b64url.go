// Package b64url implements the unpadded, URL-safe Base64 alphabet used for
// JWT segments and raw message envelopes.
package b64url

import (
	"encoding/base64"
	"fmt"
)

// DecodeError indicates input that is not valid unpadded URL-safe Base64.
type DecodeError struct {
	Message string
	Cause   error
}

func (e *DecodeError) Error() string {
	return "base64url decode error: " + e.Message
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// Is implements error matching for errors.Is.
func (e *DecodeError) Is(target error) bool {
	_, ok := target.(*DecodeError)
	return ok
}

// Encode encodes arbitrary bytes using the URL-safe alphabet with padding
// stripped. Encoding always operates on the byte representation, so multi-byte
// UTF-8 content round-trips intact.
func Encode(data []byte) string {
	return base64.RawURLEncoding.EncodeToString(data)
}

// EncodeString encodes the UTF-8 bytes of s.
func EncodeString(s string) string {
	return Encode([]byte(s))
}

// Decode is the exact inverse of Encode. It fails with a DecodeError when the
// input contains characters outside [A-Za-z0-9_-] or is truncated.
func Decode(s string) ([]byte, error) {
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-', c == '_':
		default:
			return nil, &DecodeError{Message: fmt.Sprintf("invalid character %q at offset %d", c, i)}
		}
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, &DecodeError{Message: "truncated input", Cause: err}
	}
	return data, nil
}

// DecodeString decodes s and interprets the result as a UTF-8 string.
func DecodeString(s string) (string, error) {
	data, err := Decode(s)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
