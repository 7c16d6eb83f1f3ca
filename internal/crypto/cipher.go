package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"southwinds.dev/rooster/secure"
)

// Cipher is an AEAD bound to a key held in a secure.Buffer.
type Cipher interface {
	Name() string
	NonceSize() int
	// NewNonce draws a fresh random nonce. Callers must use a new nonce for
	// every Seal.
	NewNonce() ([]byte, error)
	Seal(key *secure.Buffer, nonce, plaintext, aad []byte) ([]byte, error)
	// Open returns ErrAuthentication when the tag does not verify.
	Open(key *secure.Buffer, nonce, ciphertext, aad []byte) ([]byte, error)
}

type aeadCipher struct {
	name      string
	nonceSize int
	newAEAD   func(key []byte) (cipher.AEAD, error)
}

// XChaCha20Poly1305 is the cipher of the current format.
func XChaCha20Poly1305() Cipher {
	return aeadCipher{
		name:      "xchacha20-poly1305",
		nonceSize: chacha20poly1305.NonceSizeX,
		newAEAD:   chacha20poly1305.NewX,
	}
}

// ChaCha20Poly1305 is the cipher of format 2.
func ChaCha20Poly1305() Cipher {
	return aeadCipher{
		name:      "chacha20-poly1305",
		nonceSize: chacha20poly1305.NonceSize,
		newAEAD:   chacha20poly1305.New,
	}
}

// AESGCM is the AES-256-GCM cipher of format 1.
func AESGCM() Cipher {
	return aeadCipher{
		name:      "aes-256-gcm",
		nonceSize: 12,
		newAEAD: func(key []byte) (cipher.AEAD, error) {
			block, err := aes.NewCipher(key)
			if err != nil {
				return nil, err
			}
			return cipher.NewGCM(block)
		},
	}
}

func (c aeadCipher) Name() string {
	return c.name
}

func (c aeadCipher) NonceSize() int {
	return c.nonceSize
}

func (c aeadCipher) NewNonce() ([]byte, error) {
	nonce, err := RandomBytes(c.nonceSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return nonce, nil
}

func (c aeadCipher) Seal(key *secure.Buffer, nonce, plaintext, aad []byte) ([]byte, error) {
	if len(nonce) != c.nonceSize {
		return nil, fmt.Errorf("invalid nonce size %d for %s", len(nonce), c.name)
	}
	var sealed []byte
	err := key.Use(func(k []byte) error {
		aead, err := c.newAEAD(k)
		if err != nil {
			return fmt.Errorf("failed to create cipher: %w", err)
		}
		sealed = aead.Seal(nil, nonce, plaintext, aad)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sealed, nil
}

func (c aeadCipher) Open(key *secure.Buffer, nonce, ciphertext, aad []byte) ([]byte, error) {
	if len(nonce) != c.nonceSize {
		return nil, ErrAuthentication
	}
	var plaintext []byte
	err := key.Use(func(k []byte) error {
		aead, err := c.newAEAD(k)
		if err != nil {
			return fmt.Errorf("failed to create cipher: %w", err)
		}
		if len(ciphertext) < aead.Overhead() {
			return ErrAuthentication
		}
		plaintext, err = aead.Open(nil, nonce, ciphertext, aad)
		if err != nil {
			return ErrAuthentication
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return plaintext, nil
}
