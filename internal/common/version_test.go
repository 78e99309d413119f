package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadVersionFile_FillsDefaultsOnly(t *testing.T) {
	origVersion, origBuild, origCommit := Version, Build, GitCommit
	t.Cleanup(func() { Version, Build, GitCommit = origVersion, origBuild, origCommit })

	Version, Build, GitCommit = "dev", "unknown", "abc1234"

	path := filepath.Join(t.TempDir(), ".version")
	content := "# generated\nversion: 1.2.0\nbuild: 2025-10-16T14:00:00\ncommit: ffffff\nnonsense line\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	loadVersionFile(path)

	assert.Equal(t, "1.2.0", Version)
	assert.Equal(t, "2025-10-16T14:00:00", Build)
	assert.Equal(t, "abc1234", GitCommit) // ldflags value wins
	assert.Equal(t, "twpulse 1.2.0 (build: 2025-10-16T14:00:00, commit: abc1234)", GetFullVersion())
}

func TestLoadVersionFile_Missing(t *testing.T) {
	origVersion := Version
	t.Cleanup(func() { Version = origVersion })

	Version = "dev"
	loadVersionFile(filepath.Join(t.TempDir(), "missing"))
	assert.Equal(t, "dev", Version)
}
