package service

import (
	"context"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"go-fileops/internal/model"
	"go-fileops/internal/storage"
	"go-fileops/internal/util"
	"go-fileops/pkg/fserr"
)

// EntryService answers read-side questions about entries and applies the small
// metadata mutations (utimes, symlink creation).
type EntryService struct {
	resolver *storage.Resolver
	scanner  *storage.Scanner
	sniffer  *util.MimeSniffer
}

func NewEntryService(resolver *storage.Resolver, scanner *storage.Scanner, sniffer *util.MimeSniffer) *EntryService {
	return &EntryService{resolver: resolver, scanner: scanner, sniffer: sniffer}
}

func (s *EntryService) Resolve(raw string) (model.PathSpec, error) {
	return s.resolver.Resolve(raw)
}

func (s *EntryService) Stat(raw string) (model.PathSpec, model.EntryMetadata, error) {
	spec, err := s.resolver.Resolve(raw)
	if err != nil {
		return model.PathSpec{}, model.EntryMetadata{}, err
	}

	meta, err := s.scanner.Stat(spec)
	if err != nil {
		return model.PathSpec{}, model.EntryMetadata{}, err
	}
	return spec, meta, nil
}

// List reads the directory at raw. Results are sorted by path because both the OS
// order and the recursive walk order are unspecified.
func (s *EntryService) List(ctx context.Context, raw string, opts model.ListOptions) (model.DirectoryListData, error) {
	spec, err := s.resolver.Resolve(raw)
	if err != nil {
		return model.DirectoryListData{}, err
	}

	var entries []model.DirEntry
	if opts.Recursive {
		entries, err = s.walk(ctx, spec)
	} else {
		var it *storage.DirIterator
		it, err = s.scanner.ReadDir(spec)
		if err == nil {
			entries, err = storage.Collect(it)
		}
	}
	if err != nil {
		return model.DirectoryListData{}, err
	}

	slices.SortFunc(entries, func(a, b model.DirEntry) int {
		return strings.Compare(a.Path, b.Path)
	})

	if opts.WithMimeType {
		for i := range entries {
			if err := ctx.Err(); err != nil {
				return model.DirectoryListData{}, fserr.Wrap(fserr.Cancelled, "readdir", spec.Path, err)
			}
			entries[i].MimeType = s.entryMIME(entries[i])
		}
	}

	return model.DirectoryListData{Path: spec.Path, Entries: entries}, nil
}

func (s *EntryService) walk(ctx context.Context, spec model.PathSpec) ([]model.DirEntry, error) {
	var (
		mu      sync.Mutex
		entries = make([]model.DirEntry, 0, 64)
	)

	err := s.scanner.Walk(ctx, spec, func(path string, meta model.EntryMetadata) error {
		entry := model.DirEntry{Name: filepath.Base(path), Path: path, Metadata: meta}
		mu.Lock()
		entries = append(entries, entry)
		mu.Unlock()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *EntryService) entryMIME(entry model.DirEntry) string {
	switch entry.Metadata.Type {
	case model.EntryDirectory:
		return util.DirectoryMIME
	case model.EntrySymlink:
		return "inode/symlink"
	}

	mimeType, err := s.sniffer.Detect(entry.Path)
	if err != nil {
		return util.FallbackMIME
	}
	return mimeType
}

func (s *EntryService) MimeType(raw string) (model.MimeData, error) {
	spec, err := s.resolver.Resolve(raw)
	if err != nil {
		return model.MimeData{}, err
	}

	mimeType, err := s.sniffer.Detect(spec.Path)
	if err != nil {
		return model.MimeData{}, err
	}
	return model.MimeData{Path: spec.Path, MimeType: mimeType}, nil
}

// Utimes sets both timestamps from Unix milliseconds.
func (s *EntryService) Utimes(raw string, accessedMs int64, modifiedMs int64) (model.EntryMetadata, error) {
	spec, err := s.resolver.Resolve(raw)
	if err != nil {
		return model.EntryMetadata{}, err
	}

	if err := s.scanner.Utimes(spec, time.UnixMilli(accessedMs), time.UnixMilli(modifiedMs)); err != nil {
		return model.EntryMetadata{}, err
	}
	return s.scanner.Stat(spec)
}

func (s *EntryService) CreateSymlink(target string, rawLink string) (model.PathSpec, error) {
	if strings.TrimSpace(target) == "" {
		return model.PathSpec{}, fserr.New(fserr.InvalidPath, "symlink", rawLink, "target is required")
	}

	link, err := s.resolver.ResolveTarget(rawLink)
	if err != nil {
		return model.PathSpec{}, err
	}
	if err := s.scanner.CreateSymlink(target, link); err != nil {
		return model.PathSpec{}, err
	}
	return model.PathSpec{Path: link.Path, Type: model.EntrySymlink}, nil
}

func (s *EntryService) Volumes(ctx context.Context) ([]model.Volume, error) {
	return storage.Volumes(ctx)
}

// Measure totals the bytes under each path. Paths that cannot be measured count
// as zero.
func (s *EntryService) Measure(ctx context.Context, paths []string) int64 {
	var total int64
	for _, raw := range paths {
		spec, err := s.resolver.Resolve(raw)
		if err != nil {
			continue
		}
		stats, err := s.scanner.Measure(ctx, spec)
		if err != nil {
			continue
		}
		total += stats.Bytes
	}
	return total
}
