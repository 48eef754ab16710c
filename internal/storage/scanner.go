package storage

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charlievieth/fastwalk"

	"go-fileops/internal/model"
	"go-fileops/pkg/fserr"
)

const defaultReadDirBatch = 64

// Scanner reads entry metadata and directory listings.
type Scanner struct {
	batch int
}

func NewScanner() *Scanner {
	return &Scanner{batch: defaultReadDirBatch}
}

func (s *Scanner) Stat(spec model.PathSpec) (model.EntryMetadata, error) {
	info, err := os.Lstat(spec.Path)
	if err != nil {
		return model.EntryMetadata{}, fserr.FromOS("stat", spec.Path, err)
	}

	return metadataFromInfo(spec.Path, info), nil
}

// ReadDir opens a single-pass iterator over the directory at spec. A symlink that
// points at a directory is listed; anything else fails with NotADirectory.
func (s *Scanner) ReadDir(spec model.PathSpec) (*DirIterator, error) {
	info, err := os.Stat(spec.Path)
	if err != nil {
		return nil, fserr.FromOS("readdir", spec.Path, err)
	}
	if !info.IsDir() {
		return nil, fserr.New(fserr.NotADirectory, "readdir", spec.Path, "")
	}

	file, err := os.Open(spec.Path)
	if err != nil {
		return nil, fserr.FromOS("readdir", spec.Path, err)
	}

	return &DirIterator{dir: spec.Path, file: file, batch: s.batch}, nil
}

type WalkFunc func(path string, meta model.EntryMetadata) error

// Walk visits every entry below root, excluding root itself. fn runs concurrently
// from several goroutines and in no particular order. Unreadable subdirectories are
// skipped; symlinks are reported and not followed.
func (s *Scanner) Walk(ctx context.Context, root model.PathSpec, fn WalkFunc) error {
	info, err := os.Stat(root.Path)
	if err != nil {
		return fserr.FromOS("walk", root.Path, err)
	}
	if !info.IsDir() {
		return fserr.New(fserr.NotADirectory, "walk", root.Path, "")
	}

	conf := &fastwalk.Config{Follow: false}
	err = fastwalk.Walk(conf, root.Path, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == root.Path {
				return walkErr
			}
			slog.Debug("walk: skipping unreadable entry", "path", path, "error", walkErr)
			return nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if path == root.Path {
			return nil
		}

		entryInfo, infoErr := d.Info()
		if infoErr != nil {
			if isMissing(infoErr) {
				return nil
			}
			return fserr.FromOS("walk", path, infoErr)
		}

		return fn(path, metadataFromInfo(path, entryInfo))
	})
	if err != nil {
		return fserr.FromOS("walk", root.Path, err)
	}

	return nil
}

type TreeStats struct {
	Files       int64 `json:"files"`
	Directories int64 `json:"directories"`
	Bytes       int64 `json:"bytes"`
}

// Measure counts the entries and bytes under spec. A file measures as itself.
func (s *Scanner) Measure(ctx context.Context, spec model.PathSpec) (TreeStats, error) {
	meta, err := s.Stat(spec)
	if err != nil {
		return TreeStats{}, err
	}
	if meta.Type != model.EntryDirectory {
		return TreeStats{Files: 1, Bytes: meta.Size}, nil
	}

	var files, dirs, bytes atomic.Int64
	err = s.Walk(ctx, spec, func(_ string, entry model.EntryMetadata) error {
		if entry.Type == model.EntryDirectory {
			dirs.Add(1)
			return nil
		}
		files.Add(1)
		bytes.Add(entry.Size)
		return nil
	})
	if err != nil {
		return TreeStats{}, err
	}

	return TreeStats{Files: files.Load(), Directories: dirs.Load() + 1, Bytes: bytes.Load()}, nil
}

// Utimes sets access and modification times with a single utimensat call, so
// observers never see one timestamp updated without the other.
func (s *Scanner) Utimes(spec model.PathSpec, accessed time.Time, modified time.Time) error {
	if err := os.Chtimes(spec.Path, accessed, modified); err != nil {
		return fserr.FromOS("utimes", spec.Path, err)
	}
	return nil
}

func (s *Scanner) CreateSymlink(target string, link model.PathSpec) error {
	if link.Exists() {
		return fserr.New(fserr.ConflictUnresolved, "symlink", link.Path, "link path already exists")
	}

	if err := os.Symlink(target, link.Path); err != nil {
		return fserr.FromOS("symlink", link.Path, err)
	}
	return nil
}

// DirIterator yields directory entries lazily in OS order. It cannot be restarted;
// once Next returns false the underlying handle is closed.
type DirIterator struct {
	dir     string
	file    *os.File
	batch   int
	pending []fs.DirEntry
	pos     int
	done    bool
	current model.DirEntry
	err     error
}

func (it *DirIterator) Next() bool {
	for {
		for it.pos < len(it.pending) {
			entry := it.pending[it.pos]
			it.pos++

			fullPath := filepath.Join(it.dir, entry.Name())
			info, err := entry.Info()
			if err != nil {
				if isMissing(err) {
					continue
				}
				it.err = fserr.FromOS("readdir", fullPath, err)
				it.finish()
				return false
			}

			it.current = model.DirEntry{
				Name:     entry.Name(),
				Path:     fullPath,
				Metadata: metadataFromInfo(fullPath, info),
			}
			return true
		}

		if it.done {
			it.finish()
			return false
		}

		entries, err := it.file.ReadDir(it.batch)
		it.pending = entries
		it.pos = 0
		if err != nil {
			it.done = true
			if !errors.Is(err, io.EOF) {
				it.err = fserr.FromOS("readdir", it.dir, err)
			}
		}
	}
}

func (it *DirIterator) Entry() model.DirEntry {
	return it.current
}

func (it *DirIterator) Err() error {
	return it.err
}

func (it *DirIterator) Close() error {
	it.done = true
	it.pending = nil
	return it.finish()
}

func (it *DirIterator) finish() error {
	if it.file == nil {
		return nil
	}
	err := it.file.Close()
	it.file = nil
	return err
}

// Collect drains the iterator.
func Collect(it *DirIterator) ([]model.DirEntry, error) {
	defer it.Close()

	entries := make([]model.DirEntry, 0, 16)
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	return entries, it.Err()
}

func metadataFromInfo(path string, info fs.FileInfo) model.EntryMetadata {
	mode := info.Mode()
	entryType := EntryTypeOf(mode)
	times := statTimes(path, info)

	meta := model.EntryMetadata{
		Type:        entryType,
		Mode:        mode,
		ModifiedAt:  info.ModTime(),
		AccessedAt:  times.accessed,
		ChangedAt:   times.changed,
		CreatedAt:   times.created,
		IsReadOnly:  mode.Perm()&0o222 == 0,
		IsHidden:    strings.HasPrefix(info.Name(), "."),
		IsDevice:    mode&(fs.ModeDevice|fs.ModeCharDevice) != 0,
		Permissions: mode.String(),
	}
	if meta.AccessedAt.IsZero() {
		meta.AccessedAt = meta.ModifiedAt
	}

	if entryType != model.EntryDirectory {
		meta.Size = info.Size()
	}

	if entryType == model.EntrySymlink {
		if target, err := os.Readlink(path); err == nil {
			meta.LinkTarget = target
		}
	}

	return meta
}

type fileTimes struct {
	accessed time.Time
	changed  time.Time
	created  time.Time
}

// AccessTime returns the last access time recorded in info, falling back to the
// modification time when the platform does not expose it.
func AccessTime(info fs.FileInfo) time.Time {
	accessed := sysTimes(info).accessed
	if accessed.IsZero() {
		return info.ModTime()
	}
	return accessed
}
