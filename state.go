package rooster

// State tracks how the in-memory store relates to the file it came from.
type State int

const (
	// StateFresh is a new store that has never been written.
	StateFresh State = iota
	// StateLoaded is a store decrypted from a current-format file.
	StateLoaded
	// StateMigrated is a store upgraded from an older format and not yet written.
	StateMigrated
	// StateDirty is a store with unsynced mutations.
	StateDirty
	// StateSynced is a store whose content matches the last successful Sync.
	StateSynced
)

func (s State) String() string {
	switch s {
	case StateFresh:
		return "fresh"
	case StateLoaded:
		return "loaded"
	case StateMigrated:
		return "migrated"
	case StateDirty:
		return "dirty"
	case StateSynced:
		return "synced"
	default:
		return "unknown"
	}
}

// NeedsSync reports whether the file is missing or behind the in-memory store.
// A migrated store is only written once it is also modified.
func (s State) NeedsSync() bool {
	return s == StateFresh || s == StateDirty
}
