package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEntry(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"default.toml", "soft.YAML", "notes.txt"} {
		assert.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	assert.NoError(t, os.Mkdir(filepath.Join(dir, "old"), 0o755))
	assert.NoError(t, os.Symlink(filepath.Join(dir, "default.toml"), filepath.Join(dir, "active.toml")))
	assert.NoError(t, os.Symlink(filepath.Join(dir, "missing.toml"), filepath.Join(dir, "broken.toml")))

	e := NewEntry(dir)
	names, err := e.FilesWithSuffix(".toml", ".yaml", ".yml")
	assert.NoError(t, err)
	assert.Equal(t, []string{"active.toml", "default.toml", "soft.YAML"}, names)

	dirs, err := e.Dirs()
	assert.NoError(t, err)
	assert.Contains(t, dirs, "old")
	assert.Equal(t, filepath.Join(dir, "old"), dirs["old"].Path())

	missing := NewEntry(filepath.Join(dir, "nope"))
	_, err = missing.Files()
	assert.Error(t, err)
}
