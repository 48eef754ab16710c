// Package repository persists undelete index records.
package repository

import (
	"fmt"
	"slices"

	"go-fileops/internal/model"
)

func errDuplicateRecord(id string) error {
	return fmt.Errorf("trash record %s already exists", id)
}

// newestFirst returns a copy of records ordered by TrashedAt descending. Records
// trashed at the same instant keep reverse insertion order.
func newestFirst(records []model.TrashRecord) []model.TrashRecord {
	out := make([]model.TrashRecord, len(records))
	for i, rec := range records {
		out[len(records)-1-i] = rec
	}
	slices.SortStableFunc(out, func(a, b model.TrashRecord) int {
		return b.TrashedAt.Compare(a.TrashedAt)
	})
	return out
}

func latestByPath(records []model.TrashRecord, originalPath string) (model.TrashRecord, error) {
	for _, rec := range newestFirst(records) {
		if rec.OriginalPath == originalPath {
			return rec, nil
		}
	}
	return model.TrashRecord{}, model.ErrTrashRecordNotFound
}
