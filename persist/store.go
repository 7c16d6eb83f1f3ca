package persist

import "errors"

// ErrNotExist is returned by Load when there is no store file yet.
var ErrNotExist = errors.New("store file does not exist")

// Writer persists a complete, already encrypted store file. Save must be
// all-or-nothing: after a failed Save the previous content is still intact.
type Writer interface {
	Save(data []byte) error
}

// Store defines the interface for loading and persisting the store file.
// All data passed to this interface is encrypted by the caller.
type Store interface {
	Writer

	// Load returns the whole file. It returns ErrNotExist when the file is
	// missing; an existing empty file yields an empty slice.
	Load() ([]byte, error)

	// Exists reports whether the file is present.
	Exists() (bool, error)

	// Location describes where the data lives, for messages and logs.
	Location() string
}
