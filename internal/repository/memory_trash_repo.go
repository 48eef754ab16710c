package repository

import (
	"context"
	"slices"
	"sync"

	"go-fileops/internal/model"
)

// MemoryTrashRepository keeps trash records for the lifetime of the process.
type MemoryTrashRepository struct {
	mu      sync.RWMutex
	records []model.TrashRecord
}

func NewMemoryTrashRepository() *MemoryTrashRepository {
	return &MemoryTrashRepository{}
}

func (r *MemoryTrashRepository) Create(_ context.Context, record model.TrashRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(record.ID) >= 0 {
		return errDuplicateRecord(record.ID)
	}
	r.records = append(r.records, record)
	return nil
}

func (r *MemoryTrashRepository) FindByID(_ context.Context, id string) (model.TrashRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.TrashRecord{}, model.ErrTrashRecordNotFound
	}
	return r.records[idx], nil
}

func (r *MemoryTrashRepository) FindLatestByPath(_ context.Context, originalPath string) (model.TrashRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return latestByPath(r.records, originalPath)
}

func (r *MemoryTrashRepository) List(_ context.Context) ([]model.TrashRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return newestFirst(r.records), nil
}

func (r *MemoryTrashRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.ErrTrashRecordNotFound
	}
	r.records = slices.Delete(r.records, idx, idx+1)
	return nil
}

func (r *MemoryTrashRepository) DeleteAll(_ context.Context) ([]model.TrashRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := newestFirst(r.records)
	r.records = nil
	return removed, nil
}

func (r *MemoryTrashRepository) indexOf(id string) int {
	return slices.IndexFunc(r.records, func(rec model.TrashRecord) bool {
		return rec.ID == id
	})
}
