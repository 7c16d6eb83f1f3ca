// Package rooster is an encrypted, single-user password store.
//
// A Store is the decrypted, in-memory view of one store file. It is created
// with New, loaded with FromInput, upgraded from an older format with Upgrade,
// or resolved from raw file bytes with Open. Mutations only touch memory; Sync
// writes the whole store back through a persist.Writer in one all-or-nothing
// step.
//
// A Store is not safe for concurrent use, and nothing prevents two processes
// from opening the same file.
package rooster

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"unicode/utf8"

	"southwinds.dev/rooster/internal/crypto"
	"southwinds.dev/rooster/internal/format"
	"southwinds.dev/rooster/internal/misc"
	"southwinds.dev/rooster/internal/schema"
	"southwinds.dev/rooster/persist"
	"southwinds.dev/rooster/secure"
)

// Store holds decrypted entries and the key they are written back with.
type Store struct {
	scheme  format.Scheme
	salt    []byte
	key     *secure.Buffer
	entries map[string]*Entry
	order   []string
	state   State
	closed  bool
	opts    options
}

// New creates an empty store in the current format with a fresh salt.
func New(passphrase *secure.Buffer, opts ...Option) (*Store, error) {
	o := newOptions(opts)
	scheme := o.schemes.Current()

	salt, err := crypto.NewSalt(scheme.SaltSize)
	if err != nil {
		return nil, &EncryptError{Err: err}
	}
	key, err := scheme.KDF.Derive(passphrase, salt)
	if err != nil {
		return nil, &EncryptError{Err: err}
	}

	s := newStore(scheme, salt, key, StateFresh, o)
	o.logger.Info("created store", "version", scheme.Version)
	s.auditLog("store_created", nil, map[string]interface{}{"version": scheme.Version})
	return s, nil
}

// FromInput decrypts a file in the current format. Files of another version
// fail with a FormatError wrapping ErrVersionMismatch.
func FromInput(passphrase *secure.Buffer, data []byte, opts ...Option) (*Store, error) {
	return fromInput(passphrase, data, newOptions(opts))
}

func fromInput(passphrase *secure.Buffer, data []byte, o options) (*Store, error) {
	scheme := o.schemes.Current()

	env, err := parseEnvelope(data, scheme)
	if err != nil {
		return nil, err
	}
	plaintext, key, err := decryptEnvelope(passphrase, env, scheme)
	if err != nil {
		o.audit.Log("store_loaded", false, map[string]interface{}{"version": scheme.Version})
		return nil, err
	}
	defer secure.Wipe(plaintext)

	records, err := schema.Decode(scheme.Schema, plaintext)
	if err != nil {
		key.Destroy()
		return nil, malformed(scheme.Version, err)
	}

	s := newStore(scheme, slices.Clone(env.Salt), key, StateLoaded, o)
	s.load(records)
	o.logger.Info("loaded store", "version", scheme.Version, "entries", len(s.order))
	s.auditLog("store_loaded", nil, map[string]interface{}{"version": scheme.Version, "entries": len(s.order)})
	return s, nil
}

// Open resolves raw file bytes into a store: empty input creates a new store,
// current-format input is decrypted, and only a version mismatch falls back to
// Upgrade. An authentication failure is returned as is.
func Open(passphrase *secure.Buffer, data []byte, opts ...Option) (*Store, error) {
	if len(data) == 0 {
		return New(passphrase, opts...)
	}

	o := newOptions(opts)
	s, err := fromInput(passphrase, data, o)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, ErrVersionMismatch) {
		return nil, err
	}
	o.logger.Debug("current format does not match, trying upgrade", "version", data[0])
	return upgrade(passphrase, data, o)
}

func newStore(scheme format.Scheme, salt []byte, key *secure.Buffer, state State, o options) *Store {
	return &Store{
		scheme:  scheme,
		salt:    salt,
		key:     key,
		entries: make(map[string]*Entry),
		state:   state,
		opts:    o,
	}
}

// load takes ownership of the records' password bytes.
func (s *Store) load(records []schema.Record) {
	for _, r := range records {
		s.entries[r.Name] = &Entry{
			Name:      r.Name,
			Username:  r.Username,
			Password:  secure.New(r.Password),
			CreatedAt: unixTime(r.CreatedAt),
			UpdatedAt: unixTime(r.UpdatedAt),
		}
		s.order = append(s.order, r.Name)
	}
}

// Add inserts e and takes ownership of its password. CreatedAt and UpdatedAt
// are both set to the current time.
func (s *Store) Add(e *Entry) error {
	if s.closed {
		return ErrClosed
	}
	if e == nil {
		return &NameError{Err: ErrInvalidName}
	}
	if err := checkName(e.Name); err != nil {
		return err
	}
	if !utf8.ValidString(e.Username) {
		return &NameError{Name: e.Name, Err: ErrInvalidName}
	}
	if _, exists := s.entries[e.Name]; exists {
		return &NameError{Name: e.Name, Err: ErrDuplicateName}
	}

	now := truncate(s.opts.now())
	added := &Entry{Name: e.Name, Username: e.Username, Password: e.Password, CreatedAt: now, UpdatedAt: now}
	if added.Password == nil {
		added.Password = secure.New(nil)
	}
	s.entries[added.Name] = added
	s.order = append(s.order, added.Name)
	s.touch()
	s.auditLog("entry_added", nil, map[string]interface{}{"name": added.Name})
	return nil
}

// Get returns an independent copy of the named entry. The caller owns the copy
// and should Destroy it.
func (s *Store) Get(name string) (*Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.entries[name]
	if !ok {
		return nil, &NameError{Name: name, Err: ErrNotFound}
	}
	return e.Clone()
}

// ChangePassword replaces the named entry with transform's result. The
// transform receives a copy. Name and CreatedAt are kept whatever transform
// returns, and UpdatedAt is set to the current time but never moves backwards.
// The replaced password is destroyed.
func (s *Store) ChangePassword(name string, transform func(Entry) Entry) error {
	if s.closed {
		return ErrClosed
	}
	current, ok := s.entries[name]
	if !ok {
		return &NameError{Name: name, Err: ErrNotFound}
	}
	working, err := current.Clone()
	if err != nil {
		return err
	}

	result := transform(*working)
	if !utf8.ValidString(result.Username) {
		if result.Password != working.Password {
			result.Password.Destroy()
		}
		working.Destroy()
		return &NameError{Name: name, Err: ErrInvalidName}
	}
	if result.Password == nil {
		result.Password = working.Password
	} else if result.Password != working.Password {
		working.Password.Destroy()
	}

	updatedAt := truncate(s.opts.now())
	if updatedAt.Before(current.UpdatedAt) {
		updatedAt = current.UpdatedAt
	}
	s.entries[name] = &Entry{
		Name:      current.Name,
		Username:  result.Username,
		Password:  result.Password,
		CreatedAt: current.CreatedAt,
		UpdatedAt: updatedAt,
	}
	current.Destroy()

	s.touch()
	s.auditLog("entry_changed", nil, map[string]interface{}{"name": name})
	return nil
}

// Rename moves an entry to a new name, keeping its position in List.
func (s *Store) Rename(oldName, newName string) error {
	if s.closed {
		return ErrClosed
	}
	e, ok := s.entries[oldName]
	if !ok {
		return &NameError{Name: oldName, Err: ErrNotFound}
	}
	if err := checkName(newName); err != nil {
		return err
	}
	if _, taken := s.entries[newName]; taken && newName != oldName {
		return &NameError{Name: newName, Err: ErrDuplicateName}
	}

	now := truncate(s.opts.now())
	if now.After(e.UpdatedAt) {
		e.UpdatedAt = now
	}
	if newName != oldName {
		delete(s.entries, oldName)
		e.Name = newName
		s.entries[newName] = e
		s.order[slices.Index(s.order, oldName)] = newName
	}

	s.touch()
	s.auditLog("entry_renamed", nil, map[string]interface{}{"from": oldName, "to": newName})
	return nil
}

// Delete removes the named entry and hands it to the caller, who should
// Destroy it.
func (s *Store) Delete(name string) (*Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	e, ok := s.entries[name]
	if !ok {
		return nil, &NameError{Name: name, Err: ErrNotFound}
	}
	delete(s.entries, name)
	s.order = slices.DeleteFunc(s.order, func(n string) bool { return n == name })

	s.touch()
	s.auditLog("entry_deleted", nil, nil)
	return e, nil
}

// List returns names and usernames in insertion order.
func (s *Store) List() []Summary {
	if s.closed {
		return nil
	}
	out := make([]Summary, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.entries[name].summary())
	}
	return out
}

// Search returns copies of the entries whose name or username contains query,
// ignoring case, sorted by name.
func (s *Store) Search(query string) ([]*Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}

	var out []*Entry
	for _, name := range s.order {
		e := s.entries[name]
		if !misc.ContainsFold(e.Name, query) && !misc.ContainsFold(e.Username, query) {
			continue
		}
		c, err := e.Clone()
		if err != nil {
			for _, done := range out {
				done.Destroy()
			}
			return nil, err
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Sync encrypts the store under a fresh nonce and hands the file to w in a
// single Save. On failure the in-memory store is left as it was and the caller
// must assume nothing was persisted.
func (s *Store) Sync(w persist.Writer) error {
	if s.closed {
		return ErrClosed
	}
	data, err := s.seal()
	if err != nil {
		s.auditLog("store_synced", err, nil)
		return err
	}
	if err = w.Save(data); err != nil {
		ioErr := &IOError{Op: "sync", Err: err}
		s.auditLog("store_synced", ioErr, nil)
		return ioErr
	}

	s.state = StateSynced
	s.opts.logger.Info("synced store", "version", s.scheme.Version, "entries", len(s.order))
	s.auditLog("store_synced", nil, map[string]interface{}{"version": s.scheme.Version, "entries": len(s.order)})
	return nil
}

func (s *Store) seal() ([]byte, error) {
	records, err := s.records()
	if err != nil {
		return nil, &EncryptError{Err: err}
	}
	doc, err := schema.Encode(s.scheme.Schema, records)
	schema.Wipe(records)
	if err != nil {
		return nil, malformed(s.scheme.Version, err)
	}
	defer secure.Wipe(doc)

	nonce, err := s.scheme.Cipher.NewNonce()
	if err != nil {
		return nil, &EncryptError{Err: err}
	}
	env := format.Envelope{Version: s.scheme.Version, Salt: s.salt, Nonce: nonce}
	env.Ciphertext, err = s.scheme.Cipher.Seal(s.key, nonce, doc, s.scheme.AAD(env))
	if err != nil {
		return nil, &EncryptError{Err: err}
	}
	return env.Marshal(), nil
}

// records copies every password out of secure memory. Callers wipe the result.
func (s *Store) records() ([]schema.Record, error) {
	records := make([]schema.Record, 0, len(s.order))
	for _, name := range s.order {
		e := s.entries[name]
		password, err := e.Password.Bytes()
		if err != nil {
			schema.Wipe(records)
			return nil, fmt.Errorf("failed to read password of %q: %w", name, err)
		}
		records = append(records, schema.Record{
			Name:      e.Name,
			Username:  e.Username,
			Password:  password,
			CreatedAt: e.CreatedAt.Unix(),
			UpdatedAt: e.UpdatedAt.Unix(),
		})
	}
	return records, nil
}

// ChangeMasterPassword derives a new key from passphrase and the existing salt.
// The file is re-encrypted on the next Sync.
func (s *Store) ChangeMasterPassword(passphrase *secure.Buffer) error {
	if s.closed {
		return ErrClosed
	}
	key, err := s.scheme.KDF.Derive(passphrase, s.salt)
	if err != nil {
		return &EncryptError{Err: err}
	}
	s.key.Destroy()
	s.key = key

	s.touch()
	s.auditLog("master_password_changed", nil, nil)
	return nil
}

// State returns the lifecycle state.
func (s *Store) State() State {
	return s.state
}

// Version returns the format version Sync writes.
func (s *Store) Version() byte {
	return s.scheme.Version
}

// Len returns the number of entries.
func (s *Store) Len() int {
	return len(s.order)
}

// Close destroys the key and every password. Close is idempotent.
func (s *Store) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.key.Destroy()
	for _, e := range s.entries {
		e.Destroy()
	}
	s.entries = nil
	s.order = nil
}

func (s *Store) touch() {
	s.state = StateDirty
}

func (s *Store) auditLog(action string, err error, metadata map[string]interface{}) {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}
	if err != nil {
		metadata["error"] = err.Error()
	}
	if logErr := s.opts.audit.Log(action, err == nil, metadata); logErr != nil {
		s.opts.logger.Warn("failed to write audit event", "action", action, "error", logErr)
	}
}

// checkName rejects names that would not survive a round trip through the
// store file.
func checkName(name string) error {
	if name == "" {
		return &NameError{Err: ErrInvalidName}
	}
	if !utf8.ValidString(name) {
		return &NameError{Name: name, Err: ErrInvalidName}
	}
	return nil
}

func parseEnvelope(data []byte, scheme format.Scheme) (format.Envelope, error) {
	env, err := format.Parse(data, scheme)
	switch {
	case err == nil:
		return env, nil
	case errors.Is(err, format.ErrVersionMismatch):
		return format.Envelope{}, &FormatError{Version: data[0], Reason: reason(err, ErrVersionMismatch), Err: ErrVersionMismatch}
	case errors.Is(err, format.ErrEmpty):
		return format.Envelope{}, malformed(scheme.Version, err)
	default:
		return format.Envelope{}, malformed(data[0], err)
	}
}

// decryptEnvelope derives the key for env and opens its ciphertext. The caller
// owns both results and must wipe the plaintext.
func decryptEnvelope(passphrase *secure.Buffer, env format.Envelope, scheme format.Scheme) ([]byte, *secure.Buffer, error) {
	key, err := scheme.KDF.Derive(passphrase, env.Salt)
	if err != nil {
		return nil, nil, &EncryptError{Err: err}
	}
	plaintext, err := scheme.Cipher.Open(key, env.Nonce, env.Ciphertext, scheme.AAD(env))
	if err != nil {
		key.Destroy()
		return nil, nil, ErrAuthentication
	}
	return plaintext, key, nil
}
