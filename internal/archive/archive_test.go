package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bundle.zip")
	out, err := os.Create(path)
	require.NoError(t, err)

	w := zip.NewWriter(out)
	for name, content := range entries {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, out.Close())
	return path
}

func TestExtract(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"build/filelist.json":     `[]`,
		"build/models/user.go":    "package models",
		"build/ts/models/user.ts": "export interface User {}",
	})
	dest := t.TempDir()

	require.NoError(t, Extract(zipPath, dest))

	data, err := os.ReadFile(filepath.Join(dest, "build", "models", "user.go"))
	require.NoError(t, err)
	assert.Equal(t, "package models", string(data))
}

func TestExtract_CorruptArchive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("this is not a zip"), 0o644))

	err := Extract(path, t.TempDir())
	assert.ErrorIs(t, err, ErrCorruptArchive)
}

func TestExtract_RejectsTraversal(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"../outside.txt": "nope",
	})

	err := Extract(zipPath, t.TempDir())
	assert.ErrorIs(t, err, ErrCorruptArchive)
}

func TestList(t *testing.T) {
	zipPath := buildZip(t, map[string]string{
		"build/filelist.json": `[]`,
		"build/a.txt":         "a",
	})

	names, err := List(zipPath)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"build/filelist.json", "build/a.txt"}, names)
}
