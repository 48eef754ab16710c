package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"go-fileops/internal/model"
)

// PostgresTrashRepository stores records in the trash_records table created by
// database.EnsureSchema. Timestamps keep microsecond precision.
type PostgresTrashRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresTrashRepository(pool *pgxpool.Pool) *PostgresTrashRepository {
	return &PostgresTrashRepository{pool: pool}
}

const pgRecordColumns = `id, original_path, store, location, trashed_at, metadata, trashed_by`

func (r *PostgresTrashRepository) Create(ctx context.Context, record model.TrashRecord) error {
	metadata, actor, err := encodeRecordJSON(record)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO trash_records (`+pgRecordColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		record.ID, record.OriginalPath, record.Store, record.Location,
		record.TrashedAt, metadata, actor)
	if err != nil {
		return fmt.Errorf("create trash record: %w", err)
	}
	return nil
}

func (r *PostgresTrashRepository) FindByID(ctx context.Context, id string) (model.TrashRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM trash_records WHERE id = $1`, id)
	rec, err := scanPgRecord(row)
	if err != nil {
		return model.TrashRecord{}, fmt.Errorf("find trash by id: %w", err)
	}
	return rec, nil
}

func (r *PostgresTrashRepository) FindLatestByPath(ctx context.Context, originalPath string) (model.TrashRecord, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+pgRecordColumns+` FROM trash_records
		 WHERE original_path = $1
		 ORDER BY trashed_at DESC LIMIT 1`, originalPath)
	rec, err := scanPgRecord(row)
	if err != nil {
		return model.TrashRecord{}, fmt.Errorf("find trash by path: %w", err)
	}
	return rec, nil
}

func (r *PostgresTrashRepository) List(ctx context.Context) ([]model.TrashRecord, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+pgRecordColumns+` FROM trash_records ORDER BY trashed_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	defer rows.Close()

	records := make([]model.TrashRecord, 0)
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trash record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresTrashRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM trash_records WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete trash record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrTrashRecordNotFound
	}
	return nil
}

func (r *PostgresTrashRepository) DeleteAll(ctx context.Context) ([]model.TrashRecord, error) {
	rows, err := r.pool.Query(ctx,
		`DELETE FROM trash_records RETURNING `+pgRecordColumns)
	if err != nil {
		return nil, fmt.Errorf("empty trash records: %w", err)
	}
	defer rows.Close()

	records := make([]model.TrashRecord, 0)
	for rows.Next() {
		rec, err := scanPgRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trash record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("empty trash records: %w", err)
	}
	return newestFirst(records), nil
}

func scanPgRecord(row pgx.Row) (model.TrashRecord, error) {
	var (
		rec      model.TrashRecord
		metadata []byte
		actor    []byte
	)

	err := row.Scan(&rec.ID, &rec.OriginalPath, &rec.Store, &rec.Location, &rec.TrashedAt, &metadata, &actor)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.TrashRecord{}, model.ErrTrashRecordNotFound
	}
	if err != nil {
		return model.TrashRecord{}, err
	}

	rec.TrashedAt = rec.TrashedAt.UTC()
	if err := decodeRecordJSON(&rec, metadata, actor); err != nil {
		return model.TrashRecord{}, err
	}
	return rec, nil
}
