package service

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

func TestListRecursiveIsSortedByPath(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.write(t, "tree/b.txt", "b")
	env.write(t, "tree/a/z.txt", "z")
	env.write(t, "tree/a/y.bin", "")

	data, err := env.entries.List(context.Background(), env.path("tree"), model.ListOptions{Recursive: true, WithMimeType: true})
	require.NoError(t, err)

	paths := make([]string, len(data.Entries))
	for i, entry := range data.Entries {
		paths[i] = entry.Path
	}
	assert.Equal(t, []string{
		env.path("tree", "a"),
		env.path("tree", "a", "y.bin"),
		env.path("tree", "a", "z.txt"),
		env.path("tree", "b.txt"),
	}, paths)
	assert.Equal(t, model.EntryDirectory, data.Entries[0].Metadata.Type)
	assert.Contains(t, data.Entries[2].MimeType, "text/plain")
}

func TestListFlatSkipsNested(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	env.write(t, "flat/one.txt", "1")
	env.write(t, "flat/sub/two.txt", "2")

	data, err := env.entries.List(context.Background(), env.path("flat"), model.ListOptions{})
	require.NoError(t, err)
	require.Len(t, data.Entries, 2)
	assert.Equal(t, "one.txt", data.Entries[0].Name)
	assert.Equal(t, "sub", data.Entries[1].Name)
	assert.Empty(t, data.Entries[0].MimeType)

	_, err = env.entries.List(context.Background(), env.path("flat", "one.txt"), model.ListOptions{})
	assert.True(t, fserr.Is(err, fserr.NotADirectory))
}

func TestMimeTypeOfEmptyTextFileUsesExtension(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	data, err := env.entries.MimeType(env.write(t, "empty.txt", ""))
	require.NoError(t, err)
	assert.Contains(t, data.MimeType, "text/plain")

	_, err = env.entries.MimeType(env.path("nope.txt"))
	assert.True(t, fserr.Is(err, fserr.NotFound))
}

func TestUtimesKeepsMillisecondPrecision(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	path := env.write(t, "times.txt", "t")
	modified := time.Date(2024, 3, 1, 10, 30, 15, 123_000_000, time.UTC)
	accessed := modified.Add(time.Hour)

	meta, err := env.entries.Utimes(path, accessed.UnixMilli(), modified.UnixMilli())
	require.NoError(t, err)
	assert.Equal(t, modified.UnixMilli(), meta.ModifiedAt.UnixMilli())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(modified))
}

func TestCreateSymlink(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	target := env.write(t, "real.txt", "real")
	link, err := env.entries.CreateSymlink(target, env.path("alias.txt"))
	require.NoError(t, err)
	assert.Equal(t, model.EntrySymlink, link.Type)

	resolved, err := os.Readlink(link.Path)
	require.NoError(t, err)
	assert.Equal(t, target, resolved)

	_, err = env.entries.CreateSymlink("", env.path("empty-link"))
	assert.True(t, fserr.Is(err, fserr.InvalidPath))
}
