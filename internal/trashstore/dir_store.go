package trashstore

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"go-fileops/internal/util"
	"go-fileops/pkg/fserr"
)

// DirStore is a private trash directory. Entries are stored under files/ with a
// uuid-prefixed name and described by a JSON sidecar under info/.
type DirStore struct {
	layout layout
}

type dirStoreInfo struct {
	OriginalPath string    `json:"original_path"`
	TrashedAt    time.Time `json:"trashed_at"`
}

func NewDirStore(root string) (*DirStore, error) {
	l, err := newLayout(root)
	if err != nil {
		return nil, err
	}
	return &DirStore{layout: l}, nil
}

func (s *DirStore) Name() string {
	return BackendDir
}

func (s *DirStore) Root() string {
	return s.layout.root
}

func (s *DirStore) MoveToStore(_ context.Context, path string, trashedAt time.Time) (string, error) {
	if err := s.layout.ensure(); err != nil {
		return "", err
	}

	name := util.StoreName(uuid.NewString(), filepath.Base(path))
	location := filepath.Join(s.layout.files, name)
	infoPath := s.infoPath(location)

	payload, err := json.Marshal(dirStoreInfo{OriginalPath: path, TrashedAt: trashedAt.UTC()})
	if err != nil {
		return "", fserr.Wrap(fserr.IoError, "trash", path, err)
	}
	if err := os.WriteFile(infoPath, payload, 0o600); err != nil {
		return "", fserr.Wrap(fserr.TrashUnavailable, "trash", path, err)
	}

	return s.layout.moveIn(path, location, infoPath)
}

func (s *DirStore) EnumerateStore(ctx context.Context) ([]Entry, error) {
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

		payload, readErr := os.ReadFile(s.infoPath(location))
		if readErr == nil {
			var info dirStoreInfo
			if json.Unmarshal(payload, &info) == nil {
				entry.OriginalPath = info.OriginalPath
				entry.TrashedAt = info.TrashedAt
			}
		} else {
			slog.Debug("trash: entry without info file", "location", location)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}

func (s *DirStore) RestoreFromStore(_ context.Context, location string, dest string) error {
	return s.layout.restore(location, dest, s.infoPath(location))
}

func (s *DirStore) Probe(location string) (bool, error) {
	return s.layout.probe(location)
}

func (s *DirStore) Purge(_ context.Context, location string) error {
	return s.layout.purge(location, s.infoPath(location))
}

func (s *DirStore) infoPath(location string) string {
	return filepath.Join(s.layout.info, filepath.Base(location)+".json")
}
