package cli

import (
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflow/internal/journal"
)

func TestReplayDeterministicPasses(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "replay", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pass: pass-1")
	assert.Contains(t, out, "✓ All passes verified deterministic")
	// The construction pseudo-pass is not replayed.
	assert.Contains(t, out, "Replay Summary: 1 pass(es)")
}

func TestReplaySpecificPass(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "replay", "--db", db, "--pass", "pass-1", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ Pass: pass-1")
	assert.Contains(t, out, "Events: 3")
}

func TestReplayUnknownPass(t *testing.T) {
	db := seedJournal(t)

	_, err := executeCommand(t, "replay", "--db", db, "--pass", "ghost")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "no journaled events")
}

func TestReplayEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := executeCommand(t, "replay", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No passes found in journal.")
}

func TestReplayMissingJournal(t *testing.T) {
	_, err := executeCommand(t, "replay", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestReplayJSON(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "--format", "json", "replay", "--db", db)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, data["all_deterministic"])
}
