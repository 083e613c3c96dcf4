package domain

import (
	"crypto/rand"
	"fmt"
)

// DomainKeySize is the length of generated entity identifiers.
const DomainKeySize = 32

const keyAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// NewKey returns a random alphanumeric string of the given length drawn from
// a cryptographically secure source.
func NewKey(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("%w: key length must be positive", ErrValidation)
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return string(buf), nil
}
