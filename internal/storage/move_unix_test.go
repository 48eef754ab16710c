//go:build unix

package storage

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"go-fileops/pkg/fserr"
)

func crossDeviceRename(oldpath string, newpath string) error {
	return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
}

func writeVictimTree(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a-important.txt"), []byte("keep me"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "z-pinned.txt"), []byte("pinned"), 0o644))
}

func TestMoveAcrossVolumesRemovesSource(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "victim")
	dst := filepath.Join(root, "store", "victim")
	writeVictimTree(t, src)

	mover := &Mover{rename: crossDeviceRename, removeAll: os.RemoveAll}
	require.NoError(t, mover.Move(src, dst))

	_, err := os.Lstat(src)
	assert.True(t, os.IsNotExist(err))
	content, err := os.ReadFile(filepath.Join(dst, "a-important.txt"))
	require.NoError(t, err)
	assert.Equal(t, "keep me", string(content))
}

func TestMoveAcrossVolumesKeepsCopyWhenSourceRemovalFails(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	src := filepath.Join(root, "victim")
	dst := filepath.Join(root, "store", "victim")
	writeVictimTree(t, src)

	// Removal deletes the first file and then fails on the pinned one.
	partialRemove := func(path string) error {
		if path != src {
			return os.RemoveAll(path)
		}
		if err := os.Remove(filepath.Join(path, "a-important.txt")); err != nil {
			return err
		}
		return &os.PathError{Op: "unlinkat", Path: filepath.Join(path, "z-pinned.txt"), Err: unix.EPERM}
	}

	mover := &Mover{rename: crossDeviceRename, removeAll: partialRemove}
	err := mover.Move(src, dst)
	require.Error(t, err)
	assert.Equal(t, fserr.PartialMove, fserr.KindOf(err))
	assert.Equal(t, src, fserr.PathOf(err))
	assert.Contains(t, err.Error(), dst)

	for name, want := range map[string]string{"a-important.txt": "keep me", "z-pinned.txt": "pinned"} {
		content, readErr := os.ReadFile(filepath.Join(dst, name))
		require.NoError(t, readErr, name)
		assert.Equal(t, want, string(content))
	}
	_, err = os.Lstat(filepath.Join(src, "z-pinned.txt"))
	assert.NoError(t, err)
}

func TestMoveAcrossVolumesDiscardsFailedCopy(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dst := filepath.Join(root, "store", "missing")

	mover := &Mover{rename: crossDeviceRename, removeAll: os.RemoveAll}
	err := mover.Move(filepath.Join(root, "missing"), dst)
	require.Error(t, err)
	assert.Equal(t, fserr.NotFound, fserr.KindOf(err))

	_, statErr := os.Lstat(dst)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}
