package rooster

import (
	"fmt"
	"slices"

	"southwinds.dev/rooster/internal/format"
	"southwinds.dev/rooster/internal/misc"
	"southwinds.dev/rooster/internal/schema"
	"southwinds.dev/rooster/secure"
)

// upgradePath maps each format version to its successor.
var upgradePath = map[byte]byte{
	misc.FormatV1: misc.FormatV2,
	misc.FormatV2: misc.FormatV3,
}

// Upgrade decrypts a file written by an older format version and converts it to
// the current one. The salt is kept and the key is derived once, under the
// current scheme, after the document has been migrated. Nothing is written: the
// store is in StateMigrated until the caller syncs it.
//
// Upgrading a current-format file is a no-op equivalent to FromInput.
func Upgrade(passphrase *secure.Buffer, data []byte, opts ...Option) (*Store, error) {
	return upgrade(passphrase, data, newOptions(opts))
}

func upgrade(passphrase *secure.Buffer, data []byte, o options) (*Store, error) {
	version, err := format.PeekVersion(data)
	if err != nil {
		return nil, malformed(0, err)
	}
	current := o.schemes.Current()
	if version == current.Version {
		return fromInput(passphrase, data, o)
	}

	from, ok := o.schemes.Lookup(version)
	if !ok {
		return nil, &FormatError{Version: version, Reason: fmt.Sprintf("known versions are %v", o.schemes.Versions()), Err: ErrUnsupportedVersion}
	}
	env, err := parseEnvelope(data, from)
	if err != nil {
		return nil, err
	}
	doc, key, err := decryptEnvelope(passphrase, env, from)
	if err != nil {
		return nil, err
	}
	key.Destroy()

	scheme := from
	for scheme.Version != current.Version {
		next, ok := upgradePath[scheme.Version]
		target, known := o.schemes.Lookup(next)
		if !ok || !known {
			secure.Wipe(doc)
			return nil, &FormatError{
				Version: scheme.Version,
				Reason:  fmt.Sprintf("no upgrade path to version %d", current.Version),
				Err:     ErrUnsupportedVersion,
			}
		}

		migrated, err := migrateDocument(doc, scheme.Schema, target.Schema)
		secure.Wipe(doc)
		if err != nil {
			return nil, malformed(scheme.Version, err)
		}
		doc = migrated

		o.logger.Debug("upgraded format",
			"from", scheme.Version,
			"to", target.Version,
			"rekey", scheme.KDF.Name() != target.KDF.Name())
		scheme = target
	}
	defer secure.Wipe(doc)

	records, err := schema.Decode(current.Schema, doc)
	if err != nil {
		return nil, malformed(version, err)
	}

	salt := slices.Clone(env.Salt)
	key, err = current.KDF.Derive(passphrase, salt)
	if err != nil {
		schema.Wipe(records)
		return nil, &EncryptError{Err: err}
	}

	s := newStore(current, salt, key, StateMigrated, o)
	s.load(records)
	o.logger.Info("migrated store", "from", version, "to", current.Version, "entries", len(s.order))
	s.auditLog("store_migrated", nil, map[string]interface{}{"from": version, "to": current.Version})
	return s, nil
}

// migrateDocument rewrites a decrypted document from one schema to another.
// The result is always a new slice.
func migrateDocument(doc []byte, from, to int) ([]byte, error) {
	records, err := schema.Decode(from, doc)
	if err != nil {
		return nil, err
	}
	defer schema.Wipe(records)
	return schema.Encode(to, records)
}
