// Package generate produces random passwords.
package generate

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"

	"southwinds.dev/rooster/secure"
)

const (
	lower   = "abcdefghijklmnopqrstuvwxyz"
	upper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	digits  = "0123456789"
	symbols = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

	// MaxLength bounds generated passwords.
	MaxLength = 4096
	// maxAttempts bounds the retries needed to hit every character class.
	maxAttempts = 1000
)

// Options controls the shape of generated passwords.
type Options struct {
	Length int
	// Alnum restricts the alphabet to letters and digits.
	Alnum bool
}

var (
	defaultReader io.Reader = rand.Reader
	randReader              = defaultReader
)

// Password generates a password that contains at least one character of every
// class allowed by opts.
func Password(opts Options) (*secure.Buffer, error) {
	classes := []string{lower, upper, digits}
	if !opts.Alnum {
		classes = append(classes, symbols)
	}
	if opts.Length < len(classes) || opts.Length > MaxLength {
		return nil, fmt.Errorf("password length must be between %d and %d", len(classes), MaxLength)
	}

	alphabet := ""
	for _, c := range classes {
		alphabet += c
	}
	size := big.NewInt(int64(len(alphabet)))

	out := make([]byte, opts.Length)
	for attempt := 0; attempt < maxAttempts; attempt++ {
		for i := range out {
			n, err := rand.Int(randReader, size)
			if err != nil {
				secure.Wipe(out)
				return nil, fmt.Errorf("failed to generate password: %w", err)
			}
			out[i] = alphabet[n.Int64()]
		}
		if coversAll(out, classes) {
			return secure.New(out), nil
		}
	}
	secure.Wipe(out)
	return nil, fmt.Errorf("failed to generate password covering every character class")
}

func coversAll(password []byte, classes []string) bool {
	for _, class := range classes {
		found := false
		for _, b := range password {
			if containsByte(class, b) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func containsByte(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == b {
			return true
		}
	}
	return false
}
