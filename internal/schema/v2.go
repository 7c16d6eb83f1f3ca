package schema

import (
	"encoding/json"
	"fmt"

	"southwinds.dev/rooster/secure"
)

type documentV2 struct {
	Schema  int        `json:"schema"`
	Entries *[]entryV2 `json:"entries"`
}

// entryV2 uses pointers so missing fields can be told apart from zero values.
// Password is []byte and therefore base64 in the document.
type entryV2 struct {
	Name      *string `json:"name"`
	Username  *string `json:"username"`
	Password  []byte  `json:"password"`
	CreatedAt *int64  `json:"created_at"`
	UpdatedAt *int64  `json:"updated_at"`
}

type v2Codec struct{}

func (v2Codec) encode(records []Record) ([]byte, error) {
	entries := make([]entryV2, len(records))
	for i := range records {
		r := &records[i]
		password := r.Password
		if password == nil {
			password = []byte{}
		}
		entries[i] = entryV2{
			Name:      &r.Name,
			Username:  &r.Username,
			Password:  password,
			CreatedAt: &r.CreatedAt,
			UpdatedAt: &r.UpdatedAt,
		}
	}
	data, err := json.Marshal(documentV2{Schema: V2, Entries: &entries})
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}
	return data, nil
}

func (v2Codec) decode(data []byte) ([]Record, error) {
	var doc documentV2
	if err := json.Unmarshal(data, &doc); err != nil {
		wipeEntriesV2(doc.Entries)
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if doc.Entries == nil {
		return nil, fmt.Errorf("%w: missing entries", ErrMalformed)
	}

	records := make([]Record, 0, len(*doc.Entries))
	for i, e := range *doc.Entries {
		var missing string
		switch {
		case e.Name == nil:
			missing = "name"
		case e.Username == nil:
			missing = "username"
		case e.Password == nil:
			missing = "password"
		case e.CreatedAt == nil:
			missing = "created_at"
		case e.UpdatedAt == nil:
			missing = "updated_at"
		}
		if missing != "" {
			wipeEntriesV2(doc.Entries)
			return nil, fmt.Errorf("%w: entry %d is missing %s", ErrMalformed, i, missing)
		}
		records = append(records, Record{
			Name:      *e.Name,
			Username:  *e.Username,
			Password:  e.Password,
			CreatedAt: *e.CreatedAt,
			UpdatedAt: *e.UpdatedAt,
		})
	}
	return records, nil
}

func wipeEntriesV2(entries *[]entryV2) {
	if entries == nil {
		return
	}
	for _, e := range *entries {
		secure.Wipe(e.Password)
	}
}
