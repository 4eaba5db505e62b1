package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
}

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "b.hcl"))
	writeFile(t, filepath.Join(root, "nested", "a.hcl"))
	writeFile(t, filepath.Join(root, "notes.txt"))

	files, err := FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "a.hcl"),
	}, files)
}

func TestFindFilesByExtension_EmptyExtensionPanics(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}

func TestListFiles(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "s2_R1.fastq.gz"))
	writeFile(t, filepath.Join(root, "s1_R1.fastq.gz"))
	writeFile(t, filepath.Join(root, "sub", "ignored.fastq.gz"))

	target := filepath.Join(t.TempDir(), "elsewhere.fastq.gz")
	writeFile(t, target)
	require.NoError(t, os.Symlink(target, filepath.Join(root, "s3_R1.fastq.gz")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling.fastq.gz")))

	files, err := ListFiles(root)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "s1_R1.fastq.gz"),
		filepath.Join(root, "s2_R1.fastq.gz"),
		filepath.Join(root, "s3_R1.fastq.gz"),
	}, files)
}

func TestListFiles_MissingDir(t *testing.T) {
	_, err := ListFiles(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
	assert.True(t, os.IsNotExist(err))
}

func TestExists(t *testing.T) {
	root := t.TempDir()
	assert.True(t, Exists(root))
	assert.False(t, Exists(filepath.Join(root, "missing")))
}
