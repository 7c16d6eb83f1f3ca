// Package clipboard copies passwords to the system clipboard and optionally
// clears them again after a delay.
package clipboard

import (
	"fmt"
	"sync"
	"time"

	"github.com/atotto/clipboard"
)

// Manager handles clipboard operations with automatic clearing.
// Uses a single timer so repeated copies never leak goroutines.
type Manager struct {
	mu         sync.Mutex
	timer      *time.Timer
	pending    chan struct{}
	clearAfter time.Duration
	write      func(string) error
}

// NewManager creates a clipboard manager. A zero clearAfter leaves copied text
// in place.
func NewManager(clearAfter time.Duration) *Manager {
	return &Manager{clearAfter: clearAfter, write: clipboard.WriteAll}
}

// Available reports whether a clipboard utility was found on this system.
func Available() bool {
	return !clipboard.Unsupported
}

// Copy copies text to the clipboard and schedules clearing if configured.
func (m *Manager) Copy(text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stopLocked()

	if err := m.write(text); err != nil {
		return fmt.Errorf("failed to write to clipboard: %w", err)
	}

	if m.clearAfter <= 0 {
		return nil
	}

	done := make(chan struct{})
	m.pending = done
	m.timer = time.AfterFunc(m.clearAfter, func() {
		defer close(done)
		_ = m.write("")
	})
	return nil
}

// ClearAfter returns the configured clearing delay.
func (m *Manager) ClearAfter() time.Duration {
	return m.clearAfter
}

// Wait blocks until a scheduled clear has run. It returns immediately when
// nothing is scheduled. A short-lived process calls it before exiting.
func (m *Manager) Wait() {
	m.mu.Lock()
	pending := m.pending
	m.mu.Unlock()

	if pending != nil {
		<-pending
	}
}

// Close stops any pending timers without clearing.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopLocked()
}

func (m *Manager) stopLocked() {
	if m.timer != nil {
		if m.timer.Stop() {
			// the callback will never run, release waiters
			close(m.pending)
		}
		m.timer = nil
		m.pending = nil
	}
}
