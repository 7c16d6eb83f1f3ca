package rooster

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gopkg.in/yaml.v3"
	"southwinds.dev/rooster/secure"
)

// ExportFormat selects the plaintext encoding used by Export.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportYAML ExportFormat = "yaml"
)

type exportDocument struct {
	Entries []exportEntry `json:"entries" yaml:"entries"`
}

type exportEntry struct {
	Name      string    `json:"name" yaml:"name"`
	Username  string    `json:"username" yaml:"username"`
	Password  string    `json:"password" yaml:"password"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
}

// Export writes every entry, passwords included, as UNENCRYPTED JSON or YAML.
//
// This is an escape hatch for moving data out of the store. Anything written
// here is no longer protected by the master passphrase, and the passwords pass
// through ordinary Go strings that cannot be wiped.
func (s *Store) Export(w io.Writer, f ExportFormat) error {
	if s.closed {
		return ErrClosed
	}

	doc := exportDocument{Entries: make([]exportEntry, 0, len(s.order))}
	for _, name := range s.order {
		e := s.entries[name]
		password, err := e.Password.Bytes()
		if err != nil {
			return fmt.Errorf("failed to read password of %q: %w", name, err)
		}
		doc.Entries = append(doc.Entries, exportEntry{
			Name:      e.Name,
			Username:  e.Username,
			Password:  string(password),
			CreatedAt: e.CreatedAt.UTC(),
			UpdatedAt: e.UpdatedAt.UTC(),
		})
		secure.Wipe(password)
	}

	var err error
	switch f {
	case ExportJSON, "":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(doc)
	case ExportYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err = enc.Encode(doc); err == nil {
			err = enc.Close()
		}
	default:
		return fmt.Errorf("unknown export format %q", f)
	}
	if err != nil {
		ioErr := &IOError{Op: "export", Err: err}
		s.auditLog("store_exported", ioErr, nil)
		return ioErr
	}

	s.auditLog("store_exported", nil, map[string]interface{}{"format": string(f), "entries": len(doc.Entries)})
	return nil
}
