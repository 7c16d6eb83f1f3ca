package rooster

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"southwinds.dev/rooster/audit"
	"southwinds.dev/rooster/internal/crypto"
	"southwinds.dev/rooster/internal/format"
	"southwinds.dev/rooster/internal/misc"
	"southwinds.dev/rooster/internal/schema"
	"southwinds.dev/rooster/secure"
)

// testSchemes keeps the production layouts but with derivation parameters
// cheap enough for unit tests.
func testSchemes(t *testing.T) format.Registry {
	t.Helper()
	schemes := format.DefaultSchemes()
	for i := range schemes {
		switch kdf := schemes[i].KDF.(type) {
		case crypto.PBKDF2:
			kdf.Iterations = 16
			schemes[i].KDF = kdf
		case crypto.Argon2id:
			kdf.Time = 1
			kdf.Memory = 64
			kdf.Threads = 1
			schemes[i].KDF = kdf
		}
	}
	r, err := format.NewRegistry(misc.CurrentFormat, schemes...)
	require.NoError(t, err)
	return r
}

type clock struct {
	now time.Time
}

func newClock(sec int64) *clock {
	return &clock{now: time.Unix(sec, 0)}
}

func (c *clock) Now() time.Time {
	return c.now
}

func (c *clock) Set(sec int64) {
	c.now = time.Unix(sec, 0)
}

func testOptions(t *testing.T, extra ...Option) []Option {
	return append([]Option{WithSchemes(testSchemes(t))}, extra...)
}

func pass(s string) *secure.Buffer {
	return secure.NewFromString(s)
}

func newTestStore(t *testing.T, passphrase string, extra ...Option) *Store {
	t.Helper()
	s, err := New(pass(passphrase), testOptions(t, extra...)...)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func addEntry(t *testing.T, s *Store, name, username, password string) {
	t.Helper()
	require.NoError(t, s.Add(NewEntry(name, username, pass(password))))
}

func passwordOf(t *testing.T, e *Entry) string {
	t.Helper()
	data, err := e.Password.Bytes()
	require.NoError(t, err)
	defer secure.Wipe(data)
	return string(data)
}

// legacyFile produces a file the way an older release wrote it.
func legacyFile(t *testing.T, version byte, passphrase string, records []schema.Record) []byte {
	t.Helper()
	s, ok := testSchemes(t).Lookup(version)
	require.True(t, ok)
	return legacyFileWithScheme(t, s, passphrase, records)
}

func legacyFileWithScheme(t *testing.T, s format.Scheme, passphrase string, records []schema.Record) []byte {
	t.Helper()
	doc, err := schema.Encode(s.Schema, records)
	require.NoError(t, err)
	return sealedFile(t, s, passphrase, doc)
}

// sealedFile encrypts an arbitrary document under s.
func sealedFile(t *testing.T, s format.Scheme, passphrase string, doc []byte) []byte {
	t.Helper()
	salt, err := crypto.NewSalt(s.SaltSize)
	require.NoError(t, err)
	key, err := s.KDF.Derive(pass(passphrase), salt)
	require.NoError(t, err)
	defer key.Destroy()

	nonce, err := s.Cipher.NewNonce()
	require.NoError(t, err)

	env := format.Envelope{Version: s.Version, Salt: salt, Nonce: nonce}
	env.Ciphertext, err = s.Cipher.Seal(key, nonce, doc, s.AAD(env))
	require.NoError(t, err)
	return env.Marshal()
}

type failingWriter struct{}

func (failingWriter) Save([]byte) error {
	return errors.New("disk full")
}

type recordedEvent struct {
	action   string
	success  bool
	metadata map[string]interface{}
}

type recordingAudit struct {
	mu     sync.Mutex
	events []recordedEvent
}

var _ audit.Logger = (*recordingAudit)(nil)

func (r *recordingAudit) Log(action string, success bool, metadata map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, recordedEvent{action: action, success: success, metadata: metadata})
	return nil
}

func (r *recordingAudit) Query(audit.QueryOptions) (audit.QueryResult, error) {
	return audit.QueryResult{}, nil
}

func (r *recordingAudit) Close() error {
	return nil
}

func (r *recordingAudit) actions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.action)
	}
	return out
}
