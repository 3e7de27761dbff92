package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitError(t *testing.T) {
	err := NewExitError(ExitFailure, "something failed")
	assert.Equal(t, "something failed", err.Error())
	assert.Equal(t, ExitFailure, err.Code)
	assert.Nil(t, err.Unwrap())

	inner := errors.New("root cause")
	wrapped := WrapExitError(ExitCommandError, "command broke", inner)
	assert.Equal(t, "command broke: root cause", wrapped.Error())
	assert.Equal(t, inner, wrapped.Unwrap())
}

func TestGetExitCode(t *testing.T) {
	assert.Equal(t, ExitFailure, GetExitCode(errors.New("plain")))
	assert.Equal(t, ExitCommandError, GetExitCode(NewExitError(ExitCommandError, "boom")))

	// ExitError found through wrapping.
	wrapped := fmt.Errorf("outer: %w", NewExitError(ExitCommandError, "inner"))
	assert.Equal(t, ExitCommandError, GetExitCode(wrapped))
}

func TestFormatterSuccessText(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "text", Writer: buf}

	require.NoError(t, f.Success("all good"))
	assert.Equal(t, "all good\n", buf.String())
}

func TestFormatterSuccessJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Success(map[string]int{"trees": 2}))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Nil(t, resp.Error)
}

func TestFormatterErrorText(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "text", Writer: buf, Verbose: true}

	require.NoError(t, f.Error("E005", "not found", "extra context"))
	assert.Contains(t, buf.String(), "Error [E005]: not found")
	assert.Contains(t, buf.String(), "Details: extra context")
}

func TestFormatterErrorJSON(t *testing.T) {
	buf := new(bytes.Buffer)
	f := &OutputFormatter{Format: "json", Writer: buf}

	require.NoError(t, f.Error("E005", "not found", nil))

	var resp CLIResponse
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "E005", resp.Error.Code)
	assert.Equal(t, "not found", resp.Error.Message)
}

func TestVerboseLog(t *testing.T) {
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)

	f := &OutputFormatter{Format: "json", Writer: out, ErrWriter: errOut, Verbose: true}
	f.VerboseLog("loaded %d files", 3)
	assert.Empty(t, out.String(), "verbose output must not corrupt the JSON stream")
	assert.Equal(t, "loaded 3 files\n", errOut.String())

	quiet := &OutputFormatter{Format: "text", Writer: out, Verbose: false}
	quiet.VerboseLog("should not appear")
	assert.Empty(t, out.String())
}
