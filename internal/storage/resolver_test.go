package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

func TestResolverResolve(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "report.txt"), []byte("q3"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(root, "docs"), 0o755))

	resolver, err := NewResolver(root, nil)
	require.NoError(t, err)

	t.Run("relative path resolves against working dir", func(t *testing.T) {
		spec, resolveErr := resolver.Resolve("report.txt")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(root, "report.txt"), spec.Path)
		require.Equal(t, model.EntryFile, spec.Type)
	})

	t.Run("absolute path is cleaned", func(t *testing.T) {
		spec, resolveErr := resolver.Resolve(root + "/docs/../docs/")
		require.NoError(t, resolveErr)
		require.Equal(t, filepath.Join(root, "docs"), spec.Path)
		require.Equal(t, model.EntryDirectory, spec.Type)
	})

	t.Run("missing path fails with NotFound", func(t *testing.T) {
		_, resolveErr := resolver.Resolve("nope.txt")
		require.Error(t, resolveErr)
		require.Equal(t, fserr.NotFound, fserr.KindOf(resolveErr))
	})

	t.Run("missing target is tagged missing", func(t *testing.T) {
		spec, resolveErr := resolver.ResolveTarget("nope.txt")
		require.NoError(t, resolveErr)
		require.Equal(t, model.EntryMissing, spec.Type)
		require.False(t, spec.Exists())
	})

	t.Run("target below a regular file is missing", func(t *testing.T) {
		spec, resolveErr := resolver.ResolveTarget("report.txt/child")
		require.NoError(t, resolveErr)
		require.Equal(t, model.EntryMissing, spec.Type)
	})

	t.Run("control characters are rejected", func(t *testing.T) {
		_, resolveErr := resolver.Resolve("docs\nreport.txt")
		require.Equal(t, fserr.InvalidPath, fserr.KindOf(resolveErr))
	})

	t.Run("null bytes are rejected", func(t *testing.T) {
		_, resolveErr := resolver.Resolve("docs\x00/report.txt")
		require.Equal(t, fserr.InvalidPath, fserr.KindOf(resolveErr))
	})

	t.Run("empty path is rejected", func(t *testing.T) {
		_, resolveErr := resolver.Resolve("")
		require.Equal(t, fserr.InvalidPath, fserr.KindOf(resolveErr))
	})
}

func TestResolverReportsSymlinkWithoutFollowing(t *testing.T) {
	t.Parallel()
	if runtime.GOOS == "windows" {
		t.Skip("symlinks need elevated privileges on windows")
	}

	root := t.TempDir()
	target := filepath.Join(root, "target")
	require.NoError(t, os.Mkdir(target, 0o755))
	require.NoError(t, os.Symlink(target, filepath.Join(root, "link")))

	resolver, err := NewResolver(root, nil)
	require.NoError(t, err)

	spec, err := resolver.Resolve("link")
	require.NoError(t, err)
	require.Equal(t, model.EntrySymlink, spec.Type)
}

func TestResolverPermittedRoots(t *testing.T) {
	t.Parallel()

	allowed := t.TempDir()
	other := t.TempDir()

	resolver, err := NewResolver(allowed, []string{allowed})
	require.NoError(t, err)

	_, err = resolver.ResolveTarget(filepath.Join(allowed, "inside.txt"))
	require.NoError(t, err)

	_, err = resolver.ResolveTarget(filepath.Join(other, "outside.txt"))
	require.Equal(t, fserr.PermissionDenied, fserr.KindOf(err))

	_, err = resolver.ResolveTarget("../escape.txt")
	require.Equal(t, fserr.PermissionDenied, fserr.KindOf(err))
}

func TestIsWithinRoot(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		require.True(t, isWithinRoot(`C:\Storage\Root`, `C:\Storage\Root\folder\file.txt`))
		return
	}

	require.True(t, isWithinRoot("/tmp/root", "/tmp/root/folder/file.txt"))
	require.True(t, isWithinRoot("/", "/etc"))
	require.False(t, isWithinRoot("/tmp/root", "/tmp/rootkit/file.txt"))
	require.False(t, isWithinRoot(`/tmp/Root`, `/tmp/root/folder/file.txt`))
	require.True(t, IsWithin("/data/a", "/data/a/b/../c"))
}
