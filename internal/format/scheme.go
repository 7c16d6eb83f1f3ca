package format

import (
	"fmt"
	"sort"

	"southwinds.dev/rooster/internal/crypto"
	"southwinds.dev/rooster/internal/misc"
)

// Scheme binds a format version to the key derivation, cipher and document
// schema that produced files of that version.
type Scheme struct {
	Version  byte
	SaltSize int
	KDF      crypto.KDF
	Cipher   crypto.Cipher
	// Schema is the document schema of the decrypted payload.
	Schema int
	// BindHeader authenticates version and salt as additional data.
	BindHeader bool
}

// AAD returns the additional authenticated data for an envelope.
func (s Scheme) AAD(env Envelope) []byte {
	if !s.BindHeader {
		return nil
	}
	return env.Header()
}

func (s Scheme) String() string {
	return fmt.Sprintf("v%d(%s, %s, schema %d)", s.Version, s.KDF.Name(), s.Cipher.Name(), s.Schema)
}

// Registry holds every known scheme and designates the current one.
type Registry struct {
	schemes map[byte]Scheme
	current byte
}

// NewRegistry builds a registry. The current version must be among schemes.
func NewRegistry(current byte, schemes ...Scheme) (Registry, error) {
	r := Registry{schemes: make(map[byte]Scheme, len(schemes)), current: current}
	for _, s := range schemes {
		if _, dup := r.schemes[s.Version]; dup {
			return Registry{}, fmt.Errorf("duplicate scheme for version %d", s.Version)
		}
		r.schemes[s.Version] = s
	}
	if _, ok := r.schemes[current]; !ok {
		return Registry{}, fmt.Errorf("no scheme registered for current version %d", current)
	}
	return r, nil
}

// DefaultRegistry returns the production schemes.
func DefaultRegistry() Registry {
	r, err := NewRegistry(misc.CurrentFormat, DefaultSchemes()...)
	if err != nil {
		// static configuration; unreachable unless the constants are broken
		panic(err)
	}
	return r
}

// DefaultSchemes lists every format version this build can read.
func DefaultSchemes() []Scheme {
	return []Scheme{
		{
			Version:  misc.FormatV1,
			SaltSize: misc.SaltSize,
			KDF:      crypto.PBKDF2{Iterations: misc.PBKDF2IterV1, KeyLen: misc.PBKDF2KeyLen},
			Cipher:   crypto.AESGCM(),
			Schema:   1,
		},
		{
			Version:  misc.FormatV2,
			SaltSize: misc.SaltSize,
			KDF:      crypto.PBKDF2{Iterations: misc.PBKDF2IterV2, KeyLen: misc.PBKDF2KeyLen},
			Cipher:   crypto.ChaCha20Poly1305(),
			Schema:   2,
		},
		{
			Version:    misc.FormatV3,
			SaltSize:   misc.SaltSize,
			KDF:        crypto.DefaultArgon2id(),
			Cipher:     crypto.XChaCha20Poly1305(),
			Schema:     2,
			BindHeader: true,
		},
	}
}

// Current returns the scheme new files are written with.
func (r Registry) Current() Scheme {
	return r.schemes[r.current]
}

// Lookup returns the scheme for a version.
func (r Registry) Lookup(version byte) (Scheme, bool) {
	s, ok := r.schemes[version]
	return s, ok
}

// Versions returns the known versions in ascending order.
func (r Registry) Versions() []byte {
	versions := make([]byte, 0, len(r.schemes))
	for v := range r.schemes {
		versions = append(versions, v)
	}
	sort.Slice(versions, func(i, j int) bool { return versions[i] < versions[j] })
	return versions
}
