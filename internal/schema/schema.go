// Package schema maps decrypted store payloads to and from records.
//
// Every payload is a JSON object carrying a "schema" tag. Decode checks the tag
// before looking at any entry, so a payload of another schema is refused
// without a partial parse.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"southwinds.dev/rooster/secure"
)

const (
	// V1 is the legacy document: app/user/pass with a single timestamp.
	V1 = 1
	// V2 is the current document.
	V2 = 2
)

var (
	// ErrMalformed is returned for structurally invalid documents.
	ErrMalformed = errors.New("malformed document")
	// ErrSchemaMismatch is returned when the tag differs from the expected schema.
	ErrSchemaMismatch = errors.New("document schema mismatch")
	// ErrUnknownSchema is returned for schemas this package cannot handle.
	ErrUnknownSchema = errors.New("unknown document schema")
)

// Record is one decoded entry. Password is plaintext in ordinary memory; callers
// move it into a secure.Buffer (which wipes it) or call Wipe.
type Record struct {
	Name      string
	Username  string
	Password  []byte
	CreatedAt int64
	UpdatedAt int64
}

type codec interface {
	encode(records []Record) ([]byte, error)
	decode(data []byte) ([]Record, error)
}

var codecs = map[int]codec{
	V1: v1Codec{},
	V2: v2Codec{},
}

// Peek returns the schema tag of a document.
func Peek(data []byte) (int, error) {
	var tag struct {
		Schema *int `json:"schema"`
	}
	if err := json.Unmarshal(data, &tag); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if tag.Schema == nil {
		return 0, fmt.Errorf("%w: missing schema tag", ErrMalformed)
	}
	return *tag.Schema, nil
}

// Encode serialises records as a document of the given schema.
func Encode(schema int, records []Record) ([]byte, error) {
	c, ok := codecs[schema]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, schema)
	}
	if err := validate(records); err != nil {
		return nil, err
	}
	return c.encode(records)
}

// Decode parses a document of the given schema. On error no records are
// returned and any password bytes decoded so far are wiped.
func Decode(schema int, data []byte) ([]Record, error) {
	c, ok := codecs[schema]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSchema, schema)
	}
	found, err := Peek(data)
	if err != nil {
		return nil, err
	}
	if found != schema {
		return nil, fmt.Errorf("%w: found %d, expected %d", ErrSchemaMismatch, found, schema)
	}

	if err = checkRepeatedKeys(data); err != nil {
		return nil, err
	}

	records, err := c.decode(data)
	if err != nil {
		return nil, err
	}
	if err = validate(records); err != nil {
		Wipe(records)
		return nil, err
	}
	return records, nil
}

// Wipe zeroes the password bytes of every record.
func Wipe(records []Record) {
	for i := range records {
		secure.Wipe(records[i].Password)
	}
}

// checkRepeatedKeys walks every object in data and fails on a key that
// appears twice. encoding/json would otherwise keep the last value silently.
func checkRepeatedKeys(data []byte) error {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 || (trimmed[0] != '{' && trimmed[0] != '[') {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	open, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	object := open == json.Delim('{')
	seen := make(map[string]struct{})
	for dec.More() {
		if object {
			tok, err := dec.Token()
			if err != nil {
				return fmt.Errorf("%w: %v", ErrMalformed, err)
			}
			key, _ := tok.(string)
			if _, dup := seen[key]; dup {
				return fmt.Errorf("%w: repeated key %q", ErrMalformed, key)
			}
			seen[key] = struct{}{}
		}
		var value json.RawMessage
		if err = dec.Decode(&value); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		err = checkRepeatedKeys(value)
		secure.Wipe(value)
		if err != nil {
			return err
		}
	}
	return nil
}

func validate(records []Record) error {
	seen := make(map[string]struct{}, len(records))
	for i, r := range records {
		if r.Name == "" {
			return fmt.Errorf("%w: entry %d has an empty name", ErrMalformed, i)
		}
		if !utf8.ValidString(r.Name) || !utf8.ValidString(r.Username) {
			return fmt.Errorf("%w: entry %d is not valid UTF-8", ErrMalformed, i)
		}
		if _, dup := seen[r.Name]; dup {
			return fmt.Errorf("%w: duplicate entry name %q", ErrMalformed, r.Name)
		}
		seen[r.Name] = struct{}{}
		if r.CreatedAt < 0 || r.UpdatedAt < 0 {
			return fmt.Errorf("%w: entry %q has a negative timestamp", ErrMalformed, r.Name)
		}
		if r.UpdatedAt < r.CreatedAt {
			return fmt.Errorf("%w: entry %q was updated before it was created", ErrMalformed, r.Name)
		}
	}
	return nil
}
