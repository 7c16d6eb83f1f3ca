// Package format reads and writes the on-disk envelope:
//
//	[1 byte: format version]
//	[SaltSize bytes: KDF salt]
//	[NonceSize bytes: AEAD nonce]
//	[N bytes: ciphertext || authentication tag]
//
// Only the version byte is meaningful before a scheme is chosen; the sizes of the
// remaining fields depend on that scheme.
package format

import (
	"errors"
	"fmt"
)

var (
	// ErrEmpty is returned for zero-length input.
	ErrEmpty = errors.New("empty input")
	// ErrTruncated is returned when the input is shorter than the scheme's header.
	ErrTruncated = errors.New("input is truncated")
	// ErrVersionMismatch is returned by Parse when the version byte does not
	// belong to the requested scheme.
	ErrVersionMismatch = errors.New("format version mismatch")
)

// Envelope is a parsed store file. Salt, Nonce and Ciphertext alias the input.
type Envelope struct {
	Version    byte
	Salt       []byte
	Nonce      []byte
	Ciphertext []byte
}

// PeekVersion returns the version byte without interpreting anything else.
func PeekVersion(data []byte) (byte, error) {
	if len(data) == 0 {
		return 0, ErrEmpty
	}
	return data[0], nil
}

// Parse splits data according to scheme s.
func Parse(data []byte, s Scheme) (Envelope, error) {
	version, err := PeekVersion(data)
	if err != nil {
		return Envelope{}, err
	}
	if version != s.Version {
		return Envelope{}, fmt.Errorf("%w: found %d, expected %d", ErrVersionMismatch, version, s.Version)
	}

	nonceSize := s.Cipher.NonceSize()
	headerLen := 1 + s.SaltSize + nonceSize
	if len(data) < headerLen {
		return Envelope{}, fmt.Errorf("%w: %d bytes, need at least %d", ErrTruncated, len(data), headerLen)
	}

	return Envelope{
		Version:    version,
		Salt:       data[1 : 1+s.SaltSize],
		Nonce:      data[1+s.SaltSize : headerLen],
		Ciphertext: data[headerLen:],
	}, nil
}

// Header returns version || salt.
func (e Envelope) Header() []byte {
	header := make([]byte, 1+len(e.Salt))
	header[0] = e.Version
	copy(header[1:], e.Salt)
	return header
}

// Marshal serialises the envelope.
func (e Envelope) Marshal() []byte {
	out := make([]byte, 0, 1+len(e.Salt)+len(e.Nonce)+len(e.Ciphertext))
	out = append(out, e.Version)
	out = append(out, e.Salt...)
	out = append(out, e.Nonce...)
	out = append(out, e.Ciphertext...)
	return out
}
