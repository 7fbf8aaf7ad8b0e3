package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDestinationUsesUTCMinute(t *testing.T) {
	loc := time.FixedZone("CEST", 2*60*60)
	ts := time.Date(2024, 5, 1, 14, 3, 59, 0, loc)

	got := Destination("/var/backups/", ts)
	assert.Equal(t, "/var/backups/2024-05-01-12-03", got)
}

func TestDestinationRelativeRootIsAbsolute(t *testing.T) {
	got := Destination("_output-backup", time.Date(2024, 1, 2, 3, 4, 0, 0, time.UTC))
	assert.True(t, filepath.IsAbs(filepath.FromSlash(got)))
	assert.Equal(t, "2024-01-02-03-04", filepath.Base(got))
}

func TestListNewestFirst(t *testing.T) {
	root := t.TempDir()
	mk := func(name string, files ...string) {
		for _, f := range files {
			p := filepath.Join(root, name, f)
			require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o750))
			require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))
		}
		require.NoError(t, os.MkdirAll(filepath.Join(root, name), 0o750))
	}
	mk("2024-01-01-10-00", "a.js")
	mk("2024-03-01-09-30", "a.js", "css/b.css")
	mk("not-a-backup", "x")
	require.NoError(t, os.WriteFile(filepath.Join(root, "2024-04-01-00-00"), nil, 0o600))

	backups, err := List(root)
	require.NoError(t, err)
	require.Len(t, backups, 2)
	assert.Equal(t, "2024-03-01-09-30", backups[0].Name)
	assert.Equal(t, 2, backups[0].Files)
	assert.Equal(t, "2024-01-01-10-00", backups[1].Name)
	assert.Equal(t, 1, backups[1].Files)
}

func TestListMissingRoot(t *testing.T) {
	backups, err := List(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)
	assert.Empty(t, backups)
}
