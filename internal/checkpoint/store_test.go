package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsZero(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	cp, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, Zero(), cp)
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	s := NewStore(filepath.Join(t.TempDir(), "checkpoint.json"))
	block := uint64(12345)
	cp := Checkpoint{LastProcessedBlock: &block, PendingAgentIDs: []string{"7", "3", "7"}}

	require.NoError(t, s.Save(cp))

	loaded, err := s.Load()
	require.NoError(t, err)
	assert.Equal(t, uint64(12345), *loaded.LastProcessedBlock)
	assert.Equal(t, []string{"7", "3"}, loaded.PendingAgentIDs)
}

func TestLoad_SanitizesOnRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	raw, err := json.Marshal(map[string]interface{}{
		"lastProcessedBlock": nil,
		"pendingAgentIds":    []string{"5", "abc", "-3", "5", "9"},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	s := NewStore(path)
	cp, err := s.Load()
	require.NoError(t, err)
	assert.Nil(t, cp.LastProcessedBlock)
	assert.Equal(t, []string{"5", "9"}, cp.PendingAgentIDs)
}

func TestSave_AtomicRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkpoint.json")
	s := NewStore(path)
	require.NoError(t, s.Save(Zero()))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no leftover temp file after a successful save")
}
