package trashstore

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-fileops/pkg/fserr"
)

const (
	trashInfoSuffix     = ".trashinfo"
	trashInfoTimeFormat = "2006-01-02T15:04:05"
	maxNameAttempts     = 10000
)

// FreedesktopStore implements the XDG home trash: files/ holds the entries and
// info/<name>.trashinfo records Path= and DeletionDate= for each.
type FreedesktopStore struct {
	layout layout
}

// NewFreedesktopStore opens the trash at root, or the user's home trash when root
// is empty.
func NewFreedesktopStore(root string) (*FreedesktopStore, error) {
	if root == "" {
		root = DefaultFreedesktopRoot()
	}

	l, err := newLayout(root)
	if err != nil {
		return nil, err
	}
	return &FreedesktopStore{layout: l}, nil
}

// DefaultFreedesktopRoot resolves $XDG_DATA_HOME/Trash, defaulting XDG_DATA_HOME to
// ~/.local/share.
func DefaultFreedesktopRoot() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "Trash")
}

func (s *FreedesktopStore) Name() string {
	return BackendFreedesktop
}

func (s *FreedesktopStore) Root() string {
	return s.layout.root
}

func (s *FreedesktopStore) MoveToStore(_ context.Context, path string, trashedAt time.Time) (string, error) {
	if err := s.layout.ensure(); err != nil {
		return "", err
	}

	name, infoPath, err := s.reserve(path, trashedAt)
	if err != nil {
		return "", err
	}

	return s.layout.moveIn(path, filepath.Join(s.layout.files, name), infoPath)
}

// reserve claims a free name by creating its .trashinfo file exclusively.
func (s *FreedesktopStore) reserve(path string, trashedAt time.Time) (string, string, error) {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	content := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		escapeTrashPath(path), trashedAt.Local().Format(trashInfoTimeFormat))

	for attempt := 0; attempt < maxNameAttempts; attempt++ {
		name := base
		if attempt > 0 {
			name = fmt.Sprintf("%s.%d%s", stem, attempt, ext)
		}

		if _, err := os.Lstat(filepath.Join(s.layout.files, name)); err == nil {
			continue
		}

		infoPath := filepath.Join(s.layout.info, name+trashInfoSuffix)
		file, err := os.OpenFile(infoPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return "", "", fserr.Wrap(fserr.TrashUnavailable, "trash", path, err)
		}

		_, writeErr := file.WriteString(content)
		closeErr := file.Close()
		if writeErr != nil || closeErr != nil {
			_ = os.Remove(infoPath)
			return "", "", fserr.Wrap(fserr.TrashUnavailable, "trash", path, errors.Join(writeErr, closeErr))
		}

		return name, infoPath, nil
	}

	return "", "", fserr.New(fserr.TrashUnavailable, "trash", path, "no free name in trash store")
}

func (s *FreedesktopStore) EnumerateStore(ctx context.Context) ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.layout.files)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fserr.FromOS("enumerate", s.layout.files, err)
	}

	entries := make([]Entry, 0, len(dirEntries))
	for _, dirEntry := range dirEntries {
		if err := ctx.Err(); err != nil {
			return nil, fserr.FromOS("enumerate", s.layout.files, err)
		}

		location := filepath.Join(s.layout.files, dirEntry.Name())
		entry := Entry{Location: location}
		entry.Size, entry.IsDir = entrySize(location)

		if original, deletedAt, parseErr := parseTrashInfo(s.infoPath(location)); parseErr == nil {
			entry.OriginalPath = original
			entry.TrashedAt = deletedAt
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *FreedesktopStore) RestoreFromStore(_ context.Context, location string, dest string) error {
	return s.layout.restore(location, dest, s.infoPath(location))
}

func (s *FreedesktopStore) Probe(location string) (bool, error) {
	return s.layout.probe(location)
}

func (s *FreedesktopStore) Purge(_ context.Context, location string) error {
	return s.layout.purge(location, s.infoPath(location))
}

func (s *FreedesktopStore) infoPath(location string) string {
	return filepath.Join(s.layout.info, filepath.Base(location)+trashInfoSuffix)
}

func escapeTrashPath(path string) string {
	return (&url.URL{Path: filepath.ToSlash(path)}).EscapedPath()
}

func parseTrashInfo(path string) (string, time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", time.Time{}, err
	}
	defer file.Close()

	var (
		originalPath string
		deletedAt    time.Time
	)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Path="):
			encoded := strings.TrimPrefix(line, "Path=")
			decoded, decodeErr := url.PathUnescape(encoded)
			if decodeErr != nil {
				decoded = encoded
			}
			originalPath = filepath.FromSlash(decoded)
		case strings.HasPrefix(line, "DeletionDate="):
			raw := strings.TrimPrefix(line, "DeletionDate=")
			if parsed, parseErr := time.ParseInLocation(trashInfoTimeFormat, raw, time.Local); parseErr == nil {
				deletedAt = parsed
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return "", time.Time{}, err
	}
	if originalPath == "" {
		return "", time.Time{}, fmt.Errorf("trash info %s has no Path entry", path)
	}

	return originalPath, deletedAt, nil
}
