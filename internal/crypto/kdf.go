package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/pbkdf2"
	"southwinds.dev/rooster/internal/misc"
	"southwinds.dev/rooster/secure"
)

// KDF turns a passphrase and a persisted salt into a symmetric key. Derive is
// deterministic: the same passphrase and salt always produce the same key.
type KDF interface {
	Name() string
	Derive(passphrase *secure.Buffer, salt []byte) (*secure.Buffer, error)
}

// Argon2id derives keys with argon2.IDKey.
type Argon2id struct {
	Time    uint32
	Memory  uint32 // KiB
	Threads uint8
	KeyLen  uint32
}

// DefaultArgon2id returns the parameters used by the current format.
func DefaultArgon2id() Argon2id {
	return Argon2id{
		Time:    misc.ArgonTime,
		Memory:  misc.ArgonMemory,
		Threads: misc.ArgonThreads,
		KeyLen:  misc.ArgonKeyLen,
	}
}

func (a Argon2id) Name() string {
	return fmt.Sprintf("argon2id(t=%d,m=%d,p=%d)", a.Time, a.Memory, a.Threads)
}

func (a Argon2id) Derive(passphrase *secure.Buffer, salt []byte) (*secure.Buffer, error) {
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	var key *secure.Buffer
	err := passphrase.Use(func(p []byte) error {
		derived := argon2.IDKey(p, salt, a.Time, a.Memory, a.Threads, a.KeyLen)
		// New wipes the unprotected derived key
		key = secure.New(derived)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access passphrase: %w", err)
	}
	return key, nil
}

// PBKDF2 derives keys with PBKDF2-HMAC-SHA256. Only legacy formats use it.
type PBKDF2 struct {
	Iterations int
	KeyLen     int
}

func (k PBKDF2) Name() string {
	return fmt.Sprintf("pbkdf2-sha256(i=%d)", k.Iterations)
}

func (k PBKDF2) Derive(passphrase *secure.Buffer, salt []byte) (*secure.Buffer, error) {
	if len(salt) == 0 {
		return nil, errors.New("salt is required")
	}
	var key *secure.Buffer
	err := passphrase.Use(func(p []byte) error {
		key = secure.New(pbkdf2.Key(p, salt, k.Iterations, k.KeyLen, sha256.New))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to access passphrase: %w", err)
	}
	return key, nil
}
