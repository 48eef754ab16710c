package service

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go-fileops/internal/model"
	"go-fileops/internal/trashstore"
	"go-fileops/pkg/fserr"
)

// TrashRepository is the durable side of the undelete index.
type TrashRepository interface {
	Create(ctx context.Context, record model.TrashRecord) error
	FindByID(ctx context.Context, id string) (model.TrashRecord, error)
	FindLatestByPath(ctx context.Context, originalPath string) (model.TrashRecord, error)
	List(ctx context.Context) ([]model.TrashRecord, error)
	Delete(ctx context.Context, id string) error
	DeleteAll(ctx context.Context) ([]model.TrashRecord, error)
}

// UndeleteIndex maps trash record ids back to original locations. Mutations hold
// the write lock for their whole duration; listing takes the read lock.
type UndeleteIndex struct {
	mu      sync.RWMutex
	records TrashRepository
	stores  map[string]trashstore.Store
}

func NewUndeleteIndex(records TrashRepository, stores ...trashstore.Store) *UndeleteIndex {
	byName := make(map[string]trashstore.Store, len(stores))
	for _, store := range stores {
		byName[store.Name()] = store
	}
	return &UndeleteIndex{records: records, stores: byName}
}

func (x *UndeleteIndex) Record(ctx context.Context, record model.TrashRecord) error {
	x.mu.Lock()
	defer x.mu.Unlock()

	return x.records.Create(ctx, record)
}

func (x *UndeleteIndex) Get(ctx context.Context, id string) (model.TrashRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	return x.find(ctx, id)
}

// List returns every record, newest first.
func (x *UndeleteIndex) List(ctx context.Context) ([]model.TrashRecord, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	records, err := x.records.List(ctx)
	if err != nil {
		return nil, fserr.Wrap(fserr.IoError, "list trash", "", err)
	}
	return records, nil
}

// Undelete moves the entry of record id back to its original path, removes the
// record and reapplies the captured permissions and timestamps.
func (x *UndeleteIndex) Undelete(ctx context.Context, id string) (model.RestoreData, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	record, err := x.find(ctx, id)
	if err != nil {
		return model.RestoreData{}, err
	}
	return x.restore(ctx, record)
}

// UndeleteLatest restores the most recently trashed entry that lived at path.
func (x *UndeleteIndex) UndeleteLatest(ctx context.Context, path string) (model.RestoreData, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	record, err := x.records.FindLatestByPath(ctx, path)
	if err != nil {
		return model.RestoreData{}, recordLookupError(path, err)
	}
	return x.restore(ctx, record)
}

// UndeleteByTime restores the entry trashed from path at trashedAt, compared at
// millisecond precision.
func (x *UndeleteIndex) UndeleteByTime(ctx context.Context, path string, trashedAt time.Time) (model.RestoreData, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	records, err := x.records.List(ctx)
	if err != nil {
		return model.RestoreData{}, fserr.Wrap(fserr.IoError, "undelete", path, err)
	}

	want := trashedAt.Truncate(time.Millisecond)
	for _, record := range records {
		if record.OriginalPath == path && record.TrashedAt.Truncate(time.Millisecond).Equal(want) {
			return x.restore(ctx, record)
		}
	}
	return model.RestoreData{}, fserr.New(fserr.RecordNotFound, "undelete", path, "no trash record for path at "+want.UTC().Format(time.RFC3339Nano))
}

// Discard permanently removes the trashed entry of record id and its record.
func (x *UndeleteIndex) Discard(ctx context.Context, id string) (model.TrashRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	record, err := x.find(ctx, id)
	if err != nil {
		return model.TrashRecord{}, err
	}
	if err := x.discard(ctx, record); err != nil {
		return model.TrashRecord{}, err
	}
	return record, nil
}

// DiscardAll empties the trash of every recorded entry. Records whose entry could
// not be removed are kept.
func (x *UndeleteIndex) DiscardAll(ctx context.Context) ([]model.TrashRecord, error) {
	x.mu.Lock()
	defer x.mu.Unlock()

	records, err := x.records.List(ctx)
	if err != nil {
		return nil, fserr.Wrap(fserr.IoError, "empty trash", "", err)
	}

	removed := make([]model.TrashRecord, 0, len(records))
	var errs []error
	for _, record := range records {
		if err := x.discard(ctx, record); err != nil {
			errs = append(errs, err)
			continue
		}
		removed = append(removed, record)
	}
	return removed, errors.Join(errs...)
}

func (x *UndeleteIndex) find(ctx context.Context, id string) (model.TrashRecord, error) {
	record, err := x.records.FindByID(ctx, id)
	if err != nil {
		return model.TrashRecord{}, recordLookupError(id, err)
	}
	return record, nil
}

func (x *UndeleteIndex) store(record model.TrashRecord) (trashstore.Store, error) {
	store, ok := x.stores[record.Store]
	if !ok {
		return nil, fserr.New(fserr.TrashUnavailable, "undelete", record.OriginalPath, "trash store "+record.Store+" is not configured")
	}
	return store, nil
}

func (x *UndeleteIndex) restore(ctx context.Context, record model.TrashRecord) (model.RestoreData, error) {
	store, err := x.store(record)
	if err != nil {
		return model.RestoreData{}, err
	}

	present, err := store.Probe(record.Location)
	if err != nil {
		return model.RestoreData{}, err
	}
	if !present {
		if delErr := x.records.Delete(ctx, record.ID); delErr != nil {
			slog.Warn("could not drop stale trash record", "id", record.ID, "error", delErr)
		}
		return model.RestoreData{}, fserr.New(fserr.TrashEntryMissing, "undelete", record.OriginalPath,
			"trashed entry no longer exists in the trash store")
	}

	if _, err := os.Lstat(record.OriginalPath); err == nil {
		return model.RestoreData{}, fserr.New(fserr.OriginalPathOccupied, "undelete", record.OriginalPath, "")
	} else if !errors.Is(err, fs.ErrNotExist) {
		return model.RestoreData{}, fserr.FromOS("undelete", record.OriginalPath, err)
	}

	if err := os.MkdirAll(filepath.Dir(record.OriginalPath), 0o755); err != nil {
		return model.RestoreData{}, fserr.FromOS("undelete", filepath.Dir(record.OriginalPath), err)
	}

	restored := model.RestoreData{
		ID:       record.ID,
		Restored: model.PathSpec{Path: record.OriginalPath, Type: record.Metadata.Type},
	}

	if err := store.RestoreFromStore(ctx, record.Location, record.OriginalPath); err != nil {
		if !fserr.Is(err, fserr.PartialMove) {
			return model.RestoreData{}, err
		}
		// The entry is back in place. The record stays so the leftovers in the
		// store can still be purged.
		slog.Warn("entry restored but leftovers remain in the trash store",
			"id", record.ID, "path", record.OriginalPath, "location", record.Location, "error", err)
		reapplyMetadata(record.OriginalPath, record.Metadata)
		return restored, err
	}

	if err := x.records.Delete(ctx, record.ID); err != nil {
		slog.Error("entry restored but its trash record could not be removed", "id", record.ID, "path", record.OriginalPath, "error", err)
	}

	reapplyMetadata(record.OriginalPath, record.Metadata)
	return restored, nil
}

func (x *UndeleteIndex) discard(ctx context.Context, record model.TrashRecord) error {
	store, err := x.store(record)
	if err != nil {
		return err
	}
	if err := store.Purge(ctx, record.Location); err != nil {
		return err
	}
	if err := x.records.Delete(ctx, record.ID); err != nil && !errors.Is(err, model.ErrTrashRecordNotFound) {
		return fserr.Wrap(fserr.IoError, "purge", record.OriginalPath, err)
	}
	return nil
}

// reapplyMetadata restores permission bits and timestamps. Failures are logged.
func reapplyMetadata(path string, meta model.EntryMetadata) {
	if meta.Type == model.EntrySymlink {
		return
	}

	mode := meta.Mode & (fs.ModePerm | fs.ModeSetuid | fs.ModeSetgid | fs.ModeSticky)
	if err := os.Chmod(path, mode); err != nil {
		slog.Warn("could not restore permissions", "path", path, "error", err)
	}
	if !meta.ModifiedAt.IsZero() {
		accessed := meta.AccessedAt
		if accessed.IsZero() {
			accessed = meta.ModifiedAt
		}
		if err := os.Chtimes(path, accessed, meta.ModifiedAt); err != nil {
			slog.Warn("could not restore timestamps", "path", path, "error", err)
		}
	}
}

func recordLookupError(key string, err error) error {
	if errors.Is(err, model.ErrTrashRecordNotFound) {
		return fserr.New(fserr.RecordNotFound, "undelete", key, "")
	}
	return fserr.Wrap(fserr.IoError, "undelete", key, err)
}
