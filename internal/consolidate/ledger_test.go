package consolidate

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLedgerMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_rows.json")

	l := LoadLedger(path, zerolog.Nop())
	assert.Equal(t, 0, l.Sources())
	assert.False(t, l.Contains("sheet_0", "abc"))
}

func TestLoadLedgerCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_rows.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l := LoadLedger(path, zerolog.Nop())
	assert.Equal(t, 0, l.Sources())
}

func TestLedgerCommitRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_rows.json")

	l := LoadLedger(path, zerolog.Nop())
	require.NoError(t, l.Commit(map[string][]string{
		"sheetA_0": {"fp1", "fp2"},
		"sheetB_7": {"fp3"},
	}))

	assert.True(t, l.Contains("sheetA_0", "fp1"))
	assert.False(t, l.Contains("sheetA_0", "fp3"))

	// A fresh load sees exactly the committed state.
	reloaded := LoadLedger(path, zerolog.Nop())
	assert.Equal(t, 2, reloaded.Sources())
	assert.True(t, reloaded.Contains("sheetA_0", "fp2"))
	assert.True(t, reloaded.Contains("sheetB_7", "fp3"))
}

func TestLedgerCommitIsIncremental(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed_rows.json")

	l := LoadLedger(path, zerolog.Nop())
	require.NoError(t, l.Commit(map[string][]string{"k_0": {"fp1"}}))
	// committing a fingerprint twice must not duplicate it in the document
	require.NoError(t, l.Commit(map[string][]string{"k_0": {"fp1", "fp2"}}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string][]string
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, []string{"fp1", "fp2"}, doc["k_0"])
}

func TestLedgerSaveFailureLeavesDurableStateAlone(t *testing.T) {
	// Point the ledger into a directory that does not exist: the save must
	// fail and report it, so callers know the fingerprints are not durable.
	path := filepath.Join(t.TempDir(), "missing", "processed_rows.json")

	l := LoadLedger(path, zerolog.Nop())
	err := l.Commit(map[string][]string{"k_0": {"fp1"}})
	assert.Error(t, err)

	reloaded := LoadLedger(path, zerolog.Nop())
	assert.False(t, reloaded.Contains("k_0", "fp1"))
}
