package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"go-fileops/internal/model"
	"go-fileops/internal/storage"
	"go-fileops/internal/trashstore"
	"go-fileops/pkg/fserr"
)

// errIndexWrite marks a trash that could not be recorded. It aborts batches.
var errIndexWrite = errors.New("undelete index write failed")

// TrashService moves entries into the trash store and records them in the undelete
// index, or removes entries irreversibly.
type TrashService struct {
	resolver *storage.Resolver
	scanner  *storage.Scanner
	store    trashstore.Store
	index    *UndeleteIndex

	now       func() time.Time
	removeAll func(path string) error
}

func NewTrashService(resolver *storage.Resolver, scanner *storage.Scanner, store trashstore.Store, index *UndeleteIndex) *TrashService {
	return &TrashService{
		resolver:  resolver,
		scanner:   scanner,
		store:     store,
		index:     index,
		now:       time.Now,
		removeAll: os.RemoveAll,
	}
}

func (s *TrashService) StoreName() string {
	return s.store.Name()
}

func (s *TrashService) Index() *UndeleteIndex {
	return s.index
}

// Trash captures the entry's metadata, moves it into the store and records it.
// If the record cannot be written the entry is moved back. When the store reports
// PartialMove the stored copy is complete and is still recorded; the error is
// returned alongside the record.
func (s *TrashService) Trash(ctx context.Context, raw string, actor model.AuditActor) (model.TrashRecord, error) {
	if err := ctx.Err(); err != nil {
		return model.TrashRecord{}, fserr.Wrap(fserr.Cancelled, "trash", raw, err)
	}

	spec, err := s.resolver.Resolve(raw)
	if err != nil {
		return model.TrashRecord{}, err
	}
	if isFilesystemRoot(spec.Path) {
		return model.TrashRecord{}, fserr.New(fserr.InvalidPath, "trash", spec.Path, "filesystem root cannot be trashed")
	}

	meta, err := s.scanner.Stat(spec)
	if err != nil {
		return model.TrashRecord{}, err
	}

	trashedAt := s.now().UTC().Truncate(time.Millisecond)
	location, partial := s.store.MoveToStore(ctx, spec.Path, trashedAt)
	if partial != nil && (location == "" || !fserr.Is(partial, fserr.PartialMove)) {
		return model.TrashRecord{}, trashFailure(spec.Path, partial)
	}

	record := model.TrashRecord{
		ID:           uuid.NewString(),
		OriginalPath: spec.Path,
		Metadata:     meta,
		Store:        s.store.Name(),
		Location:     location,
		TrashedAt:    trashedAt,
		TrashedBy:    actor,
	}

	if err := s.index.Record(ctx, record); err != nil {
		switch {
		case partial != nil:
			// The origin still holds leftovers, so the entry cannot be moved back.
			slog.Error("partially trashed entry could not be recorded",
				"path", spec.Path, "location", location, "error", err)
		default:
			if restoreErr := s.store.RestoreFromStore(context.WithoutCancel(ctx), location, spec.Path); restoreErr != nil {
				slog.Error("trashed entry could not be recorded nor moved back",
					"path", spec.Path, "location", location, "error", restoreErr)
			}
		}
		return model.TrashRecord{}, fserr.Wrap(fserr.IoError, "trash", spec.Path, fmt.Errorf("%w: %w", errIndexWrite, err))
	}

	if partial != nil {
		slog.Warn("entry trashed but leftovers remain at its original path",
			"path", spec.Path, "id", record.ID, "location", location, "error", partial)
		return record, partial
	}

	slog.Debug("entry trashed", "path", spec.Path, "id", record.ID, "store", record.Store)
	return record, nil
}

// Delete removes the entry and everything beneath it. No record is kept.
func (s *TrashService) Delete(ctx context.Context, raw string) error {
	if err := ctx.Err(); err != nil {
		return fserr.Wrap(fserr.Cancelled, "delete", raw, err)
	}

	spec, err := s.resolver.Resolve(raw)
	if err != nil {
		return err
	}
	if isFilesystemRoot(spec.Path) {
		return fserr.New(fserr.InvalidPath, "delete", spec.Path, "filesystem root cannot be deleted")
	}

	if err := s.removeAll(spec.Path); err != nil {
		return fserr.FromOS("delete", spec.Path, err)
	}

	slog.Debug("entry deleted", "path", spec.Path)
	return nil
}

func (s *TrashService) List(ctx context.Context) ([]model.TrashRecord, error) {
	return s.index.List(ctx)
}

// Browse lists everything in the trash store, including entries trashed by other
// programs that have no record.
func (s *TrashService) Browse(ctx context.Context) ([]trashstore.Entry, error) {
	entries, err := s.store.EnumerateStore(ctx)
	if err != nil {
		return nil, trashFailure("", err)
	}
	if entries == nil {
		entries = []trashstore.Entry{}
	}
	return entries, nil
}

func (s *TrashService) Undelete(ctx context.Context, id string) (model.RestoreData, error) {
	return s.index.Undelete(ctx, id)
}

func (s *TrashService) UndeleteLatest(ctx context.Context, raw string) (model.RestoreData, error) {
	path, err := s.resolver.Clean(raw)
	if err != nil {
		return model.RestoreData{}, err
	}
	return s.index.UndeleteLatest(ctx, path)
}

func (s *TrashService) UndeleteByTime(ctx context.Context, raw string, trashedAt time.Time) (model.RestoreData, error) {
	path, err := s.resolver.Clean(raw)
	if err != nil {
		return model.RestoreData{}, err
	}
	return s.index.UndeleteByTime(ctx, path, trashedAt)
}

func (s *TrashService) Purge(ctx context.Context, id string) (model.TrashRecord, error) {
	return s.index.Discard(ctx, id)
}

func (s *TrashService) Empty(ctx context.Context) ([]model.TrashRecord, error) {
	return s.index.DiscardAll(ctx)
}

func trashFailure(path string, err error) error {
	switch fserr.KindOf(err) {
	case fserr.NotFound, fserr.PermissionDenied, fserr.TrashUnavailable, fserr.Cancelled, fserr.InvalidPath, fserr.PartialMove:
		return err
	default:
		return fserr.Wrap(fserr.TrashUnavailable, "trash", path, err)
	}
}

func isFilesystemRoot(path string) bool {
	return filepath.Dir(path) == path
}

func isIndexFault(err error) bool {
	return errors.Is(err, errIndexWrite)
}
