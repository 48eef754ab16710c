package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"go-fileops/internal/model"
)

// FileTrashRepository keeps the records in memory and rewrites a JSON file after
// every mutation. The file is replaced atomically through a temp file and rename.
type FileTrashRepository struct {
	mu      sync.RWMutex
	path    string
	records []model.TrashRecord
}

type trashIndexFile struct {
	Version int                 `json:"version"`
	Records []model.TrashRecord `json:"records"`
}

func NewFileTrashRepository(path string) (*FileTrashRepository, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("prepare trash index directory: %w", err)
	}

	repo := &FileTrashRepository{path: path}

	payload, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return repo, nil
	case err != nil:
		return nil, fmt.Errorf("read trash index: %w", err)
	}

	if len(payload) == 0 {
		return repo, nil
	}

	var stored trashIndexFile
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, fmt.Errorf("decode trash index %s: %w", path, err)
	}
	repo.records = stored.Records
	return repo, nil
}

func (r *FileTrashRepository) Create(_ context.Context, record model.TrashRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.indexOf(record.ID) >= 0 {
		return errDuplicateRecord(record.ID)
	}

	next := append(slices.Clone(r.records), record)
	if err := r.persist(next); err != nil {
		return err
	}
	r.records = next
	return nil
}

func (r *FileTrashRepository) FindByID(_ context.Context, id string) (model.TrashRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.TrashRecord{}, model.ErrTrashRecordNotFound
	}
	return r.records[idx], nil
}

func (r *FileTrashRepository) FindLatestByPath(_ context.Context, originalPath string) (model.TrashRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return latestByPath(r.records, originalPath)
}

func (r *FileTrashRepository) List(_ context.Context) ([]model.TrashRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return newestFirst(r.records), nil
}

func (r *FileTrashRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := r.indexOf(id)
	if idx < 0 {
		return model.ErrTrashRecordNotFound
	}

	next := slices.Delete(slices.Clone(r.records), idx, idx+1)
	if err := r.persist(next); err != nil {
		return err
	}
	r.records = next
	return nil
}

func (r *FileTrashRepository) DeleteAll(_ context.Context) ([]model.TrashRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.persist(nil); err != nil {
		return nil, err
	}
	removed := newestFirst(r.records)
	r.records = nil
	return removed, nil
}

func (r *FileTrashRepository) indexOf(id string) int {
	return slices.IndexFunc(r.records, func(rec model.TrashRecord) bool {
		return rec.ID == id
	})
}

func (r *FileTrashRepository) persist(records []model.TrashRecord) error {
	if records == nil {
		records = []model.TrashRecord{}
	}

	payload, err := json.MarshalIndent(trashIndexFile{Version: 1, Records: records}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode trash index: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(r.path), ".trash-index-*.tmp")
	if err != nil {
		return fmt.Errorf("create trash index temp file: %w", err)
	}
	tmpName := tmp.Name()

	_, writeErr := tmp.Write(payload)
	syncErr := tmp.Sync()
	closeErr := tmp.Close()
	if err := errors.Join(writeErr, syncErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write trash index: %w", err)
	}

	if err := os.Rename(tmpName, r.path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace trash index: %w", err)
	}
	return nil
}
