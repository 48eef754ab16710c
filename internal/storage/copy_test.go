package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCopyTreeFilePreservesMetadata(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "src.bin")
	dst := filepath.Join(root, "dst.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o640))

	modified := time.Date(2019, 6, 7, 8, 9, 10, 0, time.UTC)
	require.NoError(t, os.Chtimes(src, modified, modified))

	written, err := CopyTree(src, dst, CopyOptions{Verify: true, BufferSize: 2})
	require.NoError(t, err)
	assert.EqualValues(t, 7, written)

	content, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))

	info, err := os.Stat(dst)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(modified))
	if runtime.GOOS != "windows" {
		assert.Equal(t, os.FileMode(0o640), info.Mode().Perm())
	}
}

func TestCopyTreeDirectory(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "project")
	require.NoError(t, os.MkdirAll(filepath.Join(src, "nested", "deeper"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(src, "readme.md"), []byte("# hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "nested", "deeper", "data.csv"), []byte("a,b\n"), 0o600))
	if runtime.GOOS != "windows" {
		require.NoError(t, os.Symlink("readme.md", filepath.Join(src, "link.md")))
	}

	dst := filepath.Join(root, "copy")
	written, err := CopyTree(src, dst, CopyOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 8, written)

	content, err := os.ReadFile(filepath.Join(dst, "nested", "deeper", "data.csv"))
	require.NoError(t, err)
	assert.Equal(t, "a,b\n", string(content))

	if runtime.GOOS != "windows" {
		target, linkErr := os.Readlink(filepath.Join(dst, "link.md"))
		require.NoError(t, linkErr)
		assert.Equal(t, "readme.md", target)
	}

	_, err = os.Stat(filepath.Join(src, "readme.md"))
	assert.NoError(t, err, "copy must leave the source intact")
}

func TestCopyTreeRefusesExistingDestination(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	dst := filepath.Join(root, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	_, err := CopyTree(src, dst, CopyOptions{})
	require.Error(t, err)

	content, readErr := os.ReadFile(dst)
	require.NoError(t, readErr)
	assert.Equal(t, "old", string(content))
}

func TestMovePathSameVolume(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "a.txt")
	dst := filepath.Join(root, "nested", "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0o644))

	require.NoError(t, MovePath(src, dst))

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(dst)
	assert.NoError(t, err)
}
