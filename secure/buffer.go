// Package secure holds secret material (passphrases, derived keys, entry
// passwords) outside of ordinary Go memory.
//
// A Buffer keeps its payload sealed inside a memguard enclave. Plaintext is only
// materialised inside a locked, guard-paged buffer for the duration of a Use
// callback and is wiped on every exit path of that callback, including panics
// and returned errors. Formatting a Buffer with fmt, slog or encoding/json never
// reveals the payload.
package secure

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"

	"github.com/awnumar/memguard"
)

const redacted = "[REDACTED]"

// ErrDestroyed is returned when a destroyed Buffer is accessed.
var ErrDestroyed = errors.New("secure buffer has been destroyed")

// Buffer is a scrubbed container for secret bytes.
//
// The zero value is an empty, usable buffer.
type Buffer struct {
	enclave   *memguard.Enclave
	destroyed bool
}

// New seals data into a Buffer. The data slice is wiped before New returns,
// so callers must not use it afterwards.
func New(data []byte) *Buffer {
	if len(data) == 0 {
		return &Buffer{}
	}
	// NewEnclave copies data and wipes the source
	return &Buffer{enclave: memguard.NewEnclave(data)}
}

// NewFromString seals a copy of s. The string itself cannot be wiped, so this
// is only meant for values that already live in ordinary memory (flags, tests).
func NewFromString(s string) *Buffer {
	return New([]byte(s))
}

// Use opens the buffer and calls fn with the plaintext. The slice passed to fn
// is wiped once fn returns and must not be retained.
func (b *Buffer) Use(fn func(data []byte) error) error {
	if b.IsDestroyed() {
		return ErrDestroyed
	}
	if b.enclave == nil {
		return fn([]byte{})
	}

	lb, err := b.enclave.Open()
	if err != nil {
		return fmt.Errorf("failed to open secure buffer: %w", err)
	}
	defer lb.Destroy()

	return fn(lb.Bytes())
}

// Bytes returns a copy of the plaintext held in ordinary memory. The caller
// owns the copy and should wipe it with Wipe when done.
func (b *Buffer) Bytes() ([]byte, error) {
	var out []byte
	err := b.Use(func(data []byte) error {
		out = make([]byte, len(data))
		copy(out, data)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Clone returns an independent Buffer holding the same payload.
func (b *Buffer) Clone() (*Buffer, error) {
	data, err := b.Bytes()
	if err != nil {
		return nil, err
	}
	return New(data), nil
}

// Equal reports whether both buffers hold the same payload, in constant time.
func (b *Buffer) Equal(other *Buffer) bool {
	if b == nil || other == nil {
		return b == other
	}
	equal := false
	_ = b.Use(func(left []byte) error {
		return other.Use(func(right []byte) error {
			equal = subtle.ConstantTimeCompare(left, right) == 1
			return nil
		})
	})
	return equal
}

// Len returns the payload size in bytes.
func (b *Buffer) Len() int {
	if b.IsDestroyed() || b.enclave == nil {
		return 0
	}
	return b.enclave.Size()
}

// IsEmpty reports whether the buffer holds no payload.
func (b *Buffer) IsEmpty() bool {
	return b.Len() == 0
}

// IsDestroyed reports whether Destroy has been called.
func (b *Buffer) IsDestroyed() bool {
	return b == nil || b.destroyed
}

// Destroy releases the payload. The sealed enclave is dropped; its key material
// is wiped by memguard.Purge at process exit. Destroy is idempotent.
func (b *Buffer) Destroy() {
	if b == nil || b.destroyed {
		return
	}
	b.destroyed = true
	b.enclave = nil
}

// String implements fmt.Stringer without revealing the payload.
func (b *Buffer) String() string {
	return redacted
}

// GoString implements fmt.GoStringer for %#v.
func (b *Buffer) GoString() string {
	return "secure.Buffer{" + redacted + "}"
}

// Format keeps every fmt verb (including %x and %q) redacted.
func (b *Buffer) Format(f fmt.State, verb rune) {
	if verb == 'v' && f.Flag('#') {
		_, _ = fmt.Fprint(f, b.GoString())
		return
	}
	_, _ = fmt.Fprint(f, redacted)
}

// LogValue implements slog.LogValuer.
func (b *Buffer) LogValue() slog.Value {
	return slog.StringValue(redacted)
}

// MarshalJSON never emits the payload.
func (b *Buffer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalYAML never emits the payload.
func (b *Buffer) MarshalYAML() (interface{}, error) {
	return redacted, nil
}

// MarshalText never emits the payload.
func (b *Buffer) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Wipe zeroes a plaintext slice obtained from Bytes or from any other secret
// source.
func Wipe(data []byte) {
	memguard.WipeBytes(data)
}
