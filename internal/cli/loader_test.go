package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadErrCode(t *testing.T, err error) string {
	t.Helper()
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr), "expected *LoadError, got %T: %v", err, err)
	return loadErr.Code
}

func TestLoadSpecsMissingDir(t *testing.T) {
	result, errs := LoadSpecs(filepath.Join(t.TempDir(), "nope"), LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, loadErrCode(t, errs[0]))
}

func TestLoadSpecsNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "specs.cue")
	require.NoError(t, os.WriteFile(file, []byte("tree: {}"), 0o644))

	result, errs := LoadSpecs(file, LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNotFound, loadErrCode(t, errs[0]))
}

func TestLoadSpecsNoFiles(t *testing.T) {
	result, errs := LoadSpecs(t.TempDir(), LoadModeFailFast)
	assert.Nil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoFiles, loadErrCode(t, errs[0]))
}

func TestLoadSpecsValid(t *testing.T) {
	dir := writeSpecsDir(t, validSpec)

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Empty(t, errs)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.FileCount)
	require.Len(t, result.Trees, 1)
	assert.Equal(t, "viewport", result.Trees[0].Name)
	assert.Len(t, result.Trees[0].Nodes, 3)
}

func TestLoadSpecsNoTrees(t *testing.T) {
	dir := writeSpecsDir(t, `other: {answer: 42}`)

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.NotNil(t, result)
	require.Len(t, errs, 1)
	assert.Equal(t, ErrCodeNoTrees, loadErrCode(t, errs[0]))
}

func TestLoadSpecsBadCUE(t *testing.T) {
	dir := writeSpecsDir(t, `tree: viewport: {node: p: {`)

	result, errs := LoadSpecs(dir, LoadModeFailFast)
	assert.Nil(t, result)
	require.NotEmpty(t, errs)
	code := loadErrCode(t, errs[0])
	assert.Contains(t, []string{ErrCodeLoadFailed, ErrCodeBuildFailed}, code)
}

func TestFindCUEFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.cue"), []byte("a: 1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("ignored"), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c.cue"), []byte("c: 3"), 0o644))

	files, err := FindCUEFiles(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindTree(t *testing.T) {
	dir := writeSpecsDir(t, validSpec)
	result, errs := LoadSpecs(dir, LoadModeFailFast)
	require.Empty(t, errs)

	spec, err := findTree(result, "")
	require.NoError(t, err)
	assert.Equal(t, "viewport", spec.Name)

	spec, err = findTree(result, "viewport")
	require.NoError(t, err)
	assert.Equal(t, "viewport", spec.Name)

	_, err = findTree(result, "ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}
