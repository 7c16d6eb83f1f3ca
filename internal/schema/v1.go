package schema

import (
	"encoding/json"
	"fmt"
)

// documentV1 is the legacy layout. It stored passwords as JSON strings and kept
// a single modification timestamp per entry.
type documentV1 struct {
	Schema    int        `json:"schema"`
	Passwords *[]entryV1 `json:"passwords"`
}

type entryV1 struct {
	App     *string `json:"app"`
	User    *string `json:"user"`
	Pass    *string `json:"pass"`
	Updated *int64  `json:"updated"`
}

type v1Codec struct{}

func (v1Codec) encode(records []Record) ([]byte, error) {
	entries := make([]entryV1, len(records))
	for i := range records {
		r := &records[i]
		pass := string(r.Password)
		entries[i] = entryV1{App: &r.Name, User: &r.Username, Pass: &pass, Updated: &r.UpdatedAt}
	}
	data, err := json.Marshal(documentV1{Schema: V1, Passwords: &entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

// decode maps the single timestamp onto both created and updated.
func (v1Codec) decode(data []byte) ([]Record, error) {
	var doc documentV1
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Passwords == nil {
		return nil, fmt.Errorf("%w: missing passwords", ErrMalformed)
	}

	records := make([]Record, 0, len(*doc.Passwords))
	for i, e := range *doc.Passwords {
		if e.App == nil || e.User == nil || e.Pass == nil || e.Updated == nil {
			Wipe(records)
			return nil, fmt.Errorf("%w: legacy entry %d is incomplete", ErrMalformed, i)
		}
		records = append(records, Record{
			Name:      *e.App,
			Username:  *e.User,
			Password:  []byte(*e.Pass),
			CreatedAt: *e.Updated,
			UpdatedAt: *e.Updated,
		})
	}
	return records, nil
}
