package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
)

// ErrAuthentication is returned by Cipher.Open for any integrity failure. A
// wrong key and a tampered ciphertext are deliberately indistinguishable.
var ErrAuthentication = errors.New("authentication failed")

// randReader is swapped in tests to simulate entropy failures.
var randReader io.Reader = rand.Reader

// RandomBytes returns n bytes from the system CSPRNG.
func RandomBytes(n int) ([]byte, error) {
	if n <= 0 {
		return nil, errors.New("invalid byte count")
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(randReader, b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}

// NewSalt generates a random salt of the given size.
func NewSalt(size int) ([]byte, error) {
	salt, err := RandomBytes(size)
	if err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}
