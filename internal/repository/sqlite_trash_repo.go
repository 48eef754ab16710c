package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go-fileops/internal/model"
)

// SQLiteTrashRepository stores records in an embedded SQLite database opened with
// database.OpenSQLite. trashed_at is stored as Unix nanoseconds.
type SQLiteTrashRepository struct {
	db *sql.DB
}

func NewSQLiteTrashRepository(db *sql.DB) *SQLiteTrashRepository {
	return &SQLiteTrashRepository{db: db}
}

const sqliteRecordColumns = `id, original_path, store, location, trashed_at, metadata, trashed_by`

func (r *SQLiteTrashRepository) Create(ctx context.Context, record model.TrashRecord) error {
	metadata, actor, err := encodeRecordJSON(record)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO trash_records (`+sqliteRecordColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.OriginalPath, record.Store, record.Location,
		record.TrashedAt.UnixNano(), string(metadata), string(actor))
	if err != nil {
		return fmt.Errorf("create trash record: %w", err)
	}
	return nil
}

func (r *SQLiteTrashRepository) FindByID(ctx context.Context, id string) (model.TrashRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM trash_records WHERE id = ?`, id)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return model.TrashRecord{}, fmt.Errorf("find trash by id: %w", err)
	}
	return rec, nil
}

func (r *SQLiteTrashRepository) FindLatestByPath(ctx context.Context, originalPath string) (model.TrashRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM trash_records
		 WHERE original_path = ?
		 ORDER BY trashed_at DESC, rowid DESC LIMIT 1`, originalPath)
	rec, err := scanSQLiteRecord(row)
	if err != nil {
		return model.TrashRecord{}, fmt.Errorf("find trash by path: %w", err)
	}
	return rec, nil
}

func (r *SQLiteTrashRepository) List(ctx context.Context) ([]model.TrashRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM trash_records ORDER BY trashed_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	defer rows.Close()

	records := make([]model.TrashRecord, 0)
	for rows.Next() {
		rec, err := scanSQLiteRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trash record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *SQLiteTrashRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM trash_records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trash record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trash record: %w", err)
	}
	if affected == 0 {
		return model.ErrTrashRecordNotFound
	}
	return nil
}

func (r *SQLiteTrashRepository) DeleteAll(ctx context.Context) ([]model.TrashRecord, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin empty trash: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT `+sqliteRecordColumns+` FROM trash_records ORDER BY trashed_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}

	records := make([]model.TrashRecord, 0)
	for rows.Next() {
		rec, scanErr := scanSQLiteRecord(rows)
		if scanErr != nil {
			rows.Close()
			return nil, fmt.Errorf("scan trash record: %w", scanErr)
		}
		records = append(records, rec)
	}
	if err := errors.Join(rows.Err(), rows.Close()); err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM trash_records`); err != nil {
		return nil, fmt.Errorf("empty trash records: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit empty trash: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLiteRecord(row rowScanner) (model.TrashRecord, error) {
	var (
		rec       model.TrashRecord
		trashedAt int64
		metadata  string
		actor     string
	)

	err := row.Scan(&rec.ID, &rec.OriginalPath, &rec.Store, &rec.Location, &trashedAt, &metadata, &actor)
	if errors.Is(err, sql.ErrNoRows) {
		return model.TrashRecord{}, model.ErrTrashRecordNotFound
	}
	if err != nil {
		return model.TrashRecord{}, err
	}

	rec.TrashedAt = time.Unix(0, trashedAt).UTC()
	if err := decodeRecordJSON(&rec, []byte(metadata), []byte(actor)); err != nil {
		return model.TrashRecord{}, err
	}
	return rec, nil
}

func encodeRecordJSON(record model.TrashRecord) ([]byte, []byte, error) {
	metadata, err := json.Marshal(record.Metadata)
	if err != nil {
		return nil, nil, fmt.Errorf("encode trash metadata: %w", err)
	}
	actor, err := json.Marshal(record.TrashedBy)
	if err != nil {
		return nil, nil, fmt.Errorf("encode trash actor: %w", err)
	}
	return metadata, actor, nil
}

func decodeRecordJSON(rec *model.TrashRecord, metadata []byte, actor []byte) error {
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &rec.Metadata); err != nil {
			return fmt.Errorf("decode trash metadata: %w", err)
		}
	}
	if len(actor) > 0 {
		if err := json.Unmarshal(actor, &rec.TrashedBy); err != nil {
			return fmt.Errorf("decode trash actor: %w", err)
		}
	}
	return nil
}
