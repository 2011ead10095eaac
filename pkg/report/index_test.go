package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteIndex(t *testing.T) {
	dir := t.TempDir()
	runs, shots := sampleRuns(t, dir)
	s := BuildSummary(runs, shots)

	path, err := WriteIndex(dir, s)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, IndexFile), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var got Summary
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, s, got)

	// rewriting replaces the file and leaves no temp files behind
	_, err = WriteIndex(dir, BuildSummary(runs[:1], nil))
	require.NoError(t, err)
	matches, err := filepath.Glob(filepath.Join(dir, ".report.json.*"))
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestWriteIndex_MissingDir(t *testing.T) {
	_, err := WriteIndex(filepath.Join(t.TempDir(), "missing"), Summary{})
	assert.Error(t, err)
}
