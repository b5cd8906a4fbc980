package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  - Roofing\n  - Fence repair\n  - Snow removal\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"Roofing", "Fence repair", "Snow removal"}, c.Jobs())
}

func TestLoadMissingFileIsEmpty(t *testing.T) {
	c, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	require.Empty(t, c.Jobs())
}

func TestLoadMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs: [unclosed"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestJobsReturnsCopy(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "jobs.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jobs:\n  - Roofing\n"), 0o600))

	c, err := Load(path)
	require.NoError(t, err)

	jobs := c.Jobs()
	jobs[0] = "mutated"
	require.Equal(t, []string{"Roofing"}, c.Jobs())
}
