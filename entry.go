package rooster

import (
	"fmt"
	"time"

	"southwinds.dev/rooster/secure"
)

// Entry is a named credential. Timestamps have second resolution and
// UpdatedAt is never earlier than CreatedAt.
type Entry struct {
	Name      string
	Username  string
	Password  *secure.Buffer
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the non-secret view of an entry returned by List.
type Summary struct {
	Name     string `json:"name" yaml:"name"`
	Username string `json:"username" yaml:"username"`
}

// NewEntry creates an entry. The store sets the timestamps when it is added.
func NewEntry(name, username string, password *secure.Buffer) *Entry {
	return &Entry{Name: name, Username: username, Password: password}
}

// Clone returns an entry with an independent password buffer.
func (e *Entry) Clone() (*Entry, error) {
	c := *e
	if e.Password != nil {
		password, err := e.Password.Clone()
		if err != nil {
			return nil, fmt.Errorf("failed to clone password of %q: %w", e.Name, err)
		}
		c.Password = password
	}
	return &c, nil
}

// Destroy releases the password.
func (e *Entry) Destroy() {
	if e == nil {
		return
	}
	e.Password.Destroy()
}

func (e *Entry) summary() Summary {
	return Summary{Name: e.Name, Username: e.Username}
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func truncate(t time.Time) time.Time {
	return time.Unix(t.Unix(), 0)
}
