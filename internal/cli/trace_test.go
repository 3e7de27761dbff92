package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/reflow/internal/field"
	"github.com/roach88/reflow/internal/journal"
)

// seedJournal creates a journal file holding one construction event
// and one two-event pass.
func seedJournal(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "trace.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	defer j.Close()

	events := []field.Event{
		{Seq: 1, Pass: "", Kind: field.EventCreate, Owner: "p", Field: "width"},
		{Seq: 2, Pass: "pass-1", Kind: field.EventPassBegin},
		{Seq: 3, Pass: "pass-1", Kind: field.EventMark, Owner: "p", Field: "width"},
		{Seq: 4, Pass: "pass-1", Kind: field.EventSet, Owner: "p", Field: "width", Changed: true},
	}
	require.NoError(t, j.WriteEvents(context.Background(), events))
	return path
}

func TestTraceText(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "trace", "--db", db)
	require.NoError(t, err)

	assert.Contains(t, out, "[1] create p.width")
	assert.Contains(t, out, "[2] PASS pass-1")
	assert.Contains(t, out, "[3] mark p.width")
	assert.Contains(t, out, "[4] set p.width changed=true")
	assert.Contains(t, out, "Total Events: 4")
}

func TestTracePassFilter(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "trace", "--db", db, "--pass", "pass-1")
	require.NoError(t, err)
	assert.NotContains(t, out, "create p.width")
	assert.Contains(t, out, "[2] PASS pass-1")
	assert.Contains(t, out, "Total Events: 3")
}

func TestTraceKindFilter(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "trace", "--db", db, "--kind", "set")
	require.NoError(t, err)
	assert.Contains(t, out, "set p.width")
	assert.NotContains(t, out, "mark p.width")
}

func TestTraceEmptyJournal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.db")
	j, err := journal.Open(path)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	out, err := executeCommand(t, "trace", "--db", path)
	require.NoError(t, err)
	assert.Contains(t, out, "No events in journal.")
}

func TestTraceMissingJournal(t *testing.T) {
	_, err := executeCommand(t, "trace", "--db", filepath.Join(t.TempDir(), "nope.db"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestTraceJSON(t *testing.T) {
	db := seedJournal(t)

	out, err := executeCommand(t, "--format", "json", "trace", "--db", db)
	require.NoError(t, err)

	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)

	data, ok := resp.Data.(map[string]any)
	require.True(t, ok)
	events, ok := data["events"].([]any)
	require.True(t, ok)
	assert.Len(t, events, 4)
}
