package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(":memory:")
	require.NoError(t, err, "Should create in-memory test store")
	t.Cleanup(func() {
		assert.NoError(t, s.Close())
	})
	return s
}

// TestMarkAndCheck tests the basic ledger round trip
func TestMarkAndCheck(t *testing.T) {
	s := setupTestStore(t)

	processed, err := s.IsProcessed("msg-1")
	require.NoError(t, err)
	assert.False(t, processed)

	require.NoError(t, s.MarkProcessed("msg-1", "run-a", "Order shipped"))

	processed, err = s.IsProcessed("msg-1")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = s.IsProcessed("msg-2")
	require.NoError(t, err)
	assert.False(t, processed, "other ids stay unprocessed")
}

// TestMarkProcessed_Idempotent tests that re-recording an id is a no-op
func TestMarkProcessed_Idempotent(t *testing.T) {
	s := setupTestStore(t)

	require.NoError(t, s.MarkProcessed("msg-1", "run-a", "first"))
	require.NoError(t, s.MarkProcessed("msg-1", "run-b", "second"))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestOpen_CreatesDirectory tests that the database directory is created
func TestOpen_CreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "ledger.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.MarkProcessed("msg-1", "run-a", ""))

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
