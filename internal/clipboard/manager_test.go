package clipboard

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeBoard struct {
	mu      sync.Mutex
	content string
	writes  int
	err     error
}

func (f *fakeBoard) write(s string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.content = s
	f.writes++
	return nil
}

func (f *fakeBoard) get() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.content
}

func newTestManager(clearAfter time.Duration) (*Manager, *fakeBoard) {
	board := &fakeBoard{}
	m := NewManager(clearAfter)
	m.write = board.write
	return m, board
}

func TestManagerCopyWithoutClear(t *testing.T) {
	m, board := newTestManager(0)
	defer m.Close()

	require.NoError(t, m.Copy("test-secret"))
	assert.Equal(t, "test-secret", board.get())

	// nothing scheduled, must not block
	m.Wait()
	assert.Equal(t, "test-secret", board.get())
}

func TestManagerAutoClear(t *testing.T) {
	m, board := newTestManager(20 * time.Millisecond)
	defer m.Close()

	require.NoError(t, m.Copy("test-secret"))
	m.Wait()
	assert.Equal(t, "", board.get())
}

func TestManagerMultipleCopies(t *testing.T) {
	m, board := newTestManager(time.Minute)

	for i := 0; i < 10; i++ {
		require.NoError(t, m.Copy("test"))
	}
	assert.Equal(t, 10, board.writes)

	assert.Equal(t, "test", board.get())

	// Close cancels the one pending clear
	m.Close()
	m.Wait()
	assert.Equal(t, "test", board.get())
}

func TestManagerCloseReleasesWaiters(t *testing.T) {
	m, _ := newTestManager(time.Minute)
	require.NoError(t, m.Copy("test"))

	done := make(chan struct{})
	go func() {
		m.Wait()
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	m.Close()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after Close")
	}
}

func TestManagerWriteError(t *testing.T) {
	m, board := newTestManager(0)
	board.err = errors.New("no clipboard utility")
	assert.ErrorContains(t, m.Copy("x"), "no clipboard utility")
}
