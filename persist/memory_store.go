package persist

import "slices"

// MemoryStore keeps the store file in memory. It is used by tests and by
// callers that only need an encrypted blob, such as re-encryption checks.
type MemoryStore struct {
	data   []byte
	exists bool
	saves  int
}

// NewMemoryStore returns a MemoryStore, pre-populated when data is not nil.
func NewMemoryStore(data []byte) *MemoryStore {
	return &MemoryStore{data: slices.Clone(data), exists: data != nil}
}

func (m *MemoryStore) Location() string {
	return "memory"
}

func (m *MemoryStore) Exists() (bool, error) {
	return m.exists, nil
}

func (m *MemoryStore) Load() ([]byte, error) {
	if !m.exists {
		return nil, ErrNotExist
	}
	return slices.Clone(m.data), nil
}

func (m *MemoryStore) Save(data []byte) error {
	m.data = slices.Clone(data)
	m.exists = true
	m.saves++
	return nil
}

// Saves returns how many times Save has been called.
func (m *MemoryStore) Saves() int {
	return m.saves
}
