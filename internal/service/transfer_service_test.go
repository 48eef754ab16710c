package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

func TestCopyRenameProducesDistinctNames(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	src := env.write(t, "in/report.txt", "new")
	dst := env.write(t, "out/report.txt", "existing")

	seen := map[string]bool{dst: true}
	for i := 0; i < 3; i++ {
		result, err := env.transfer.Copy(context.Background(), model.NewTransferRequest(src, dst, model.ConflictRename))
		require.NoError(t, err)
		assert.True(t, result.Renamed)
		assert.False(t, seen[result.Destination], "destination %s reused", result.Destination)
		seen[result.Destination] = true
		assert.Equal(t, "new", readFile(t, result.Destination))
	}

	assert.True(t, seen[env.path("out", "report (1).txt")])
	assert.True(t, seen[env.path("out", "report (3).txt")])
	assert.Equal(t, "existing", readFile(t, dst))
}

func TestRenameGivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.transfer = NewTransferService(env.resolver, TransferOptions{RenameMaxAttempts: 2})

	src := env.write(t, "a.txt", "a")
	dst := env.write(t, "out/a.txt", "x")
	env.write(t, "out/a (1).txt", "x")
	env.write(t, "out/a (2).txt", "x")

	_, err := env.transfer.Copy(context.Background(), model.NewTransferRequest(src, dst, model.ConflictRename))
	assert.True(t, fserr.Is(err, fserr.ConflictUnresolved))
}

func TestNextFreeNameKeepsDirectoryAndDotfileNamesWhole(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	got, err := nextFreeName(filepath.Join(dir, "photos.2024"), true, 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "photos.2024 (1)"), got)

	got, err = nextFreeName(filepath.Join(dir, ".env"), false, 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ".env (1)"), got)

	got, err = nextFreeName(filepath.Join(dir, "archive.tar.gz"), false, 5)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "archive.tar (1).gz"), got)
}

func TestConflictPolicies(t *testing.T) {
	t.Parallel()

	t.Run("fail leaves both untouched", func(t *testing.T) {
		env := newTestEnv(t)
		src := env.write(t, "a.txt", "source")
		dst := env.write(t, "b.txt", "target")

		_, err := env.transfer.Move(context.Background(), model.NewTransferRequest(src, dst, model.ConflictFail))
		assert.True(t, fserr.Is(err, fserr.ConflictUnresolved))
		assert.Equal(t, "source", readFile(t, src))
		assert.Equal(t, "target", readFile(t, dst))
	})

	t.Run("skip reports skipped", func(t *testing.T) {
		env := newTestEnv(t)
		src := env.write(t, "a.txt", "source")
		dst := env.write(t, "b.txt", "target")

		result, err := env.transfer.Move(context.Background(), model.NewTransferRequest(src, dst, model.ConflictSkip))
		require.NoError(t, err)
		assert.True(t, result.Skipped)
		assert.FileExists(t, src)
		assert.Equal(t, "target", readFile(t, dst))
	})

	t.Run("overwrite replaces a file", func(t *testing.T) {
		env := newTestEnv(t)
		src := env.write(t, "a.txt", "source")
		dst := env.write(t, "b.txt", "target")

		_, err := env.transfer.Move(context.Background(), model.NewTransferRequest(src, dst, model.ConflictOverwrite))
		require.NoError(t, err)
		assert.NoFileExists(t, src)
		assert.Equal(t, "source", readFile(t, dst))
	})

	t.Run("overwrite replaces a directory with a copy", func(t *testing.T) {
		env := newTestEnv(t)
		src := env.write(t, "a.txt", "source")
		env.write(t, "target/old.txt", "old")

		result, err := env.transfer.Copy(context.Background(), model.NewTransferRequest(src, env.path("target"), model.ConflictOverwrite))
		require.NoError(t, err)
		assert.Equal(t, "source", readFile(t, result.Destination))
		assert.FileExists(t, src)
	})
}

func TestMoveOntoItselfIsNoop(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	src := env.write(t, "same.txt", "data")

	result, err := env.transfer.Move(context.Background(), model.NewTransferRequest(src, src, model.ConflictFail))
	require.NoError(t, err)
	assert.Equal(t, src, result.Destination)
	assert.Equal(t, "data", readFile(t, src))
}

func TestCopyDirectoryIntoItselfIsRejected(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.write(t, "tree/leaf.txt", "x")

	_, err := env.transfer.Copy(context.Background(),
		model.NewTransferRequest(env.path("tree"), env.path("tree", "nested", "tree"), model.ConflictRename))
	assert.True(t, fserr.Is(err, fserr.InvalidPath))
}

func TestCopyDirectoryRecursively(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	env.write(t, "src/a.txt", "a")
	env.write(t, "src/sub/b.txt", "bb")

	result, err := env.transfer.Copy(context.Background(),
		model.NewTransferRequest(env.path("src"), env.path("dst", "copy"), model.ConflictRename))
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Bytes)
	assert.Equal(t, "bb", readFile(t, env.path("dst", "copy", "sub", "b.txt")))

	entries, err := os.ReadDir(env.path("dst"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directory must not be left behind")
}

func TestMoveMissingSourceIsNotFound(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	_, err := env.transfer.Move(context.Background(),
		model.NewTransferRequest(env.path("ghost.txt"), env.path("x.txt"), model.ConflictRename))
	assert.True(t, fserr.Is(err, fserr.NotFound))
	assert.Equal(t, env.path("ghost.txt"), fserr.PathOf(err))
}

func TestTransferHonoursCancelledContext(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	src := env.write(t, "a.txt", "a")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.transfer.Copy(ctx, model.NewTransferRequest(src, env.path("b.txt"), model.ConflictRename))
	assert.True(t, fserr.Is(err, fserr.Cancelled))
	assert.NoFileExists(t, env.path("b.txt"))
}

func crossDeviceRename(source string) func(string, string) error {
	return func(oldPath string, newPath string) error {
		if oldPath == source {
			return &os.LinkError{Op: "rename", Old: oldPath, New: newPath, Err: syscall.EXDEV}
		}
		return os.Rename(oldPath, newPath)
	}
}

func TestMoveAcrossVolumesCopiesThenRemoves(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	src := env.write(t, "vol1/movie.bin", "0123456789")
	env.transfer.rename = crossDeviceRename(src)

	result, err := env.transfer.Move(context.Background(),
		model.NewTransferRequest(src, env.path("vol2", "movie.bin"), model.ConflictRename))
	require.NoError(t, err)
	assert.True(t, result.CrossVolume)
	assert.EqualValues(t, 10, result.Bytes)
	assert.NoFileExists(t, src)
	assert.Equal(t, "0123456789", readFile(t, env.path("vol2", "movie.bin")))
}

func TestMoveAcrossVolumesReportsPartialMove(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	src := env.write(t, "vol1/locked.txt", "keep me")
	env.transfer.rename = crossDeviceRename(src)
	env.transfer.removeAll = func(path string) error {
		if path == src {
			return &os.PathError{Op: "unlinkat", Path: path, Err: syscall.EBUSY}
		}
		return os.RemoveAll(path)
	}

	result, err := env.transfer.Move(context.Background(),
		model.NewTransferRequest(src, env.path("vol2", "locked.txt"), model.ConflictRename))
	require.Error(t, err)
	assert.True(t, fserr.Is(err, fserr.PartialMove))
	assert.True(t, errors.Is(err, syscall.EBUSY))
	assert.Equal(t, src, fserr.PathOf(err))
	assert.Equal(t, env.path("vol2", "locked.txt"), result.Destination)

	assert.Equal(t, "keep me", readFile(t, src))
	assert.Equal(t, "keep me", readFile(t, env.path("vol2", "locked.txt")))
}

func TestResolverRootsAreEnforced(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	src := env.write(t, "a.txt", "a")

	_, err := env.transfer.Copy(context.Background(),
		model.NewTransferRequest(src, filepath.Join(t.TempDir(), "escape.txt"), model.ConflictRename))
	assert.True(t, fserr.Is(err, fserr.PermissionDenied))
}
