// Package trashstore holds the platform trash areas entries are moved into.
package trashstore

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"go-fileops/internal/storage"
	"go-fileops/pkg/fserr"
)

// Entry is one item found in a store.
type Entry struct {
	Location     string    `json:"location"`
	OriginalPath string    `json:"original_path"`
	TrashedAt    time.Time `json:"trashed_at"`
	Size         int64     `json:"size"`
	IsDir        bool      `json:"is_dir"`
}

// Store is the narrow capability every trash format implements. Locations are
// opaque to callers and only meaningful to the store that issued them.
//
// MoveToStore returns the location together with a PartialMove error when the
// entry was copied into the store but could not be fully removed from its origin.
// RestoreFromStore reports PartialMove the same way in the other direction; the
// stored entry and its metadata are then left in place.
type Store interface {
	Name() string
	MoveToStore(ctx context.Context, path string, trashedAt time.Time) (string, error)
	EnumerateStore(ctx context.Context) ([]Entry, error)
	RestoreFromStore(ctx context.Context, location string, dest string) error
	Probe(location string) (bool, error)
	Purge(ctx context.Context, location string) error
}

const (
	BackendAuto        = "auto"
	BackendDir         = "dir"
	BackendFreedesktop = "freedesktop"
)

// Default picks the store for backend. "auto" selects the freedesktop home trash on
// systems that follow the XDG layout and a private directory store elsewhere.
func Default(backend string, root string) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(backend)) {
	case BackendDir:
		return NewDirStore(root)
	case BackendFreedesktop:
		return NewFreedesktopStore("")
	case "", BackendAuto:
		if usesXDGTrash(runtime.GOOS) {
			store, err := NewFreedesktopStore("")
			if err == nil {
				return store, nil
			}
			slog.Warn("freedesktop trash unavailable, using directory store", "root", root, "error", err)
		}
		return NewDirStore(root)
	default:
		return nil, fserr.New(fserr.TrashUnavailable, "trash", "", "unknown trash backend "+backend)
	}
}

func usesXDGTrash(goos string) bool {
	switch goos {
	case "linux", "freebsd", "openbsd", "netbsd", "dragonfly":
		return true
	default:
		return false
	}
}

// layout is the files/ + info/ pair both stores use.
type layout struct {
	root  string
	files string
	info  string
	move  func(src string, dst string) error
}

func newLayout(root string) (layout, error) {
	if strings.TrimSpace(root) == "" {
		return layout{}, fserr.New(fserr.TrashUnavailable, "trash", root, "trash root is not configured")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return layout{}, fserr.Wrap(fserr.TrashUnavailable, "trash", root, err)
	}

	l := layout{
		root:  rootAbs,
		files: filepath.Join(rootAbs, "files"),
		info:  filepath.Join(rootAbs, "info"),
		move:  storage.MovePath,
	}
	if err := l.ensure(); err != nil {
		return layout{}, err
	}
	return l, nil
}

func (l layout) ensure() error {
	for _, dir := range []string{l.files, l.info} {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fserr.Wrap(fserr.TrashUnavailable, "trash", dir, err)
		}
	}
	return nil
}

func (l layout) owns(location string) error {
	if filepath.Dir(filepath.Clean(location)) != l.files {
		return fserr.New(fserr.InvalidPath, "trash", location, "location does not belong to this trash store")
	}
	return nil
}

func (l layout) probe(location string) (bool, error) {
	if err := l.owns(location); err != nil {
		return false, err
	}

	_, err := os.Lstat(location)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, fserr.FromOS("probe", location, err)
	}
}

func (l layout) restore(location string, dest string, infoPath string) error {
	if err := l.owns(location); err != nil {
		return err
	}

	if err := l.move(location, dest); err != nil {
		return err
	}

	if err := os.Remove(infoPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("trash: could not remove info file", "path", infoPath, "error", err)
	}
	return nil
}

// moveIn moves path to location. The info file is dropped unless the entry reached
// the store, in which case it describes the stored copy.
func (l layout) moveIn(path string, location string, infoPath string) (string, error) {
	if err := l.move(path, location); err != nil {
		if fserr.Is(err, fserr.PartialMove) {
			return location, err
		}
		_ = os.Remove(infoPath)
		return "", err
	}
	return location, nil
}

func (l layout) purge(location string, infoPath string) error {
	if err := l.owns(location); err != nil {
		return err
	}

	if err := os.RemoveAll(location); err != nil {
		return fserr.FromOS("purge", location, err)
	}
	if err := os.Remove(infoPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("trash: could not remove info file", "path", infoPath, "error", err)
	}
	return nil
}

func entrySize(location string) (int64, bool) {
	info, err := os.Lstat(location)
	if err != nil {
		return 0, false
	}
	if info.IsDir() {
		return 0, true
	}
	return info.Size(), false
}
