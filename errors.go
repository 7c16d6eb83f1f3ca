package rooster

import (
	"errors"
	"fmt"
	"strings"

	"southwinds.dev/rooster/internal/crypto"
	"southwinds.dev/rooster/internal/format"
	"southwinds.dev/rooster/internal/schema"
)

var (
	// ErrAuthentication is returned when a file cannot be decrypted. A wrong
	// passphrase and a tampered file produce the same error.
	ErrAuthentication = crypto.ErrAuthentication

	// ErrVersionMismatch means the file was written by another format version.
	ErrVersionMismatch = format.ErrVersionMismatch
	// ErrUnsupportedVersion means no upgrade path exists from the file's version.
	ErrUnsupportedVersion = errors.New("unsupported format version")
	// ErrMalformed means the file or its decrypted document is structurally invalid.
	ErrMalformed = schema.ErrMalformed

	// ErrDuplicateName is returned when an entry name is already taken.
	ErrDuplicateName = errors.New("entry already exists")
	// ErrNotFound is returned when no entry has the requested name.
	ErrNotFound = errors.New("entry not found")
	// ErrInvalidName is returned for empty names and for names or usernames
	// that are not valid UTF-8.
	ErrInvalidName = errors.New("invalid entry name")

	// ErrClosed is returned by operations on a closed store.
	ErrClosed = errors.New("store is closed")
)

// IOError wraps failures of the underlying file operations.
type IOError struct {
	Op  string
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// FormatError reports a file that cannot be interpreted. Err is one of
// ErrVersionMismatch, ErrUnsupportedVersion or ErrMalformed.
type FormatError struct {
	Version byte
	Reason  string
	Err     error
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("format version %d: %v", e.Version, e.Err)
	}
	return fmt.Sprintf("format version %d: %v: %s", e.Version, e.Err, e.Reason)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// NameError reports an entry-collection contract violation for Name.
type NameError struct {
	Name string
	Err  error
}

func (e *NameError) Error() string {
	return fmt.Sprintf("%v: %q", e.Err, e.Name)
}

func (e *NameError) Unwrap() error {
	return e.Err
}

// EncryptError reports an entropy or cipher failure while producing a file.
type EncryptError struct {
	Err error
}

func (e *EncryptError) Error() string {
	return fmt.Sprintf("encryption failed: %v", e.Err)
}

func (e *EncryptError) Unwrap() error {
	return e.Err
}

func malformed(version byte, cause error) *FormatError {
	return &FormatError{Version: version, Reason: reason(cause, ErrMalformed), Err: ErrMalformed}
}

// reason returns the detail of cause without the sentinel it wraps, since
// FormatError prints the sentinel itself.
func reason(cause, sentinel error) string {
	msg := cause.Error()
	if !errors.Is(cause, sentinel) {
		return msg
	}
	if msg == sentinel.Error() {
		return ""
	}
	return strings.TrimPrefix(msg, sentinel.Error()+": ")
}
