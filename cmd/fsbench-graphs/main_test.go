package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupEnv(t *testing.T) (out, logFile string) {
	dir := t.TempDir()
	out = filepath.Join(dir, "output")
	logFile = filepath.Join(dir, "logs", "graphs.log")
	t.Setenv("FSBENCH_INPUT_DIR", filepath.Join(dir, "input"))
	t.Setenv("FSBENCH_OUTPUT_DIR", out)
	t.Setenv("FSBENCH_LOG_FILE", logFile)
	return out, logFile
}

func TestRunDedup(t *testing.T) {
	out, logFile := setupEnv(t)
	var stderr bytes.Buffer
	rc := newRootCommand(&stderr)
	rc.SetArgs([]string{"--test", "dedup"})
	require.NoError(t, rc.Execute())

	_, err := os.Stat(filepath.Join(out, "archive"))
	assert.NoError(t, err)
	content, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"message":"END"`)
	assert.Contains(t, stderr.String(), "START")
}

func TestRunInvalidTest(t *testing.T) {
	setupEnv(t)
	var stderr bytes.Buffer
	rc := newRootCommand(&stderr)
	rc.SetArgs([]string{"--test", "iozone"})
	assert.Error(t, rc.Execute())
	assert.Contains(t, stderr.String(), "unknown test")
}

func TestRunInvalidWorkers(t *testing.T) {
	setupEnv(t)
	t.Setenv("FSBENCH_WORKERS", "0")
	rc := newRootCommand(new(bytes.Buffer))
	rc.SetArgs([]string{})
	assert.Error(t, rc.Execute())
}
