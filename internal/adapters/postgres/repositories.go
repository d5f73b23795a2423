package postgres

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"

    "deepscan/internal/domain"
)

const mediaColumns = `id::text, owner_id, filename, modality, content_type, size_bytes, storage_path, status, created_at, updated_at`

// MediaRepository
func (db *DB) Create(ctx context.Context, f domain.MediaFile) error {
    _, err := db.Pool.Exec(ctx, `
        INSERT INTO media_files (id, owner_id, filename, modality, content_type, size_bytes, storage_path, status, created_at, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
    `, f.ID, f.OwnerID, f.Filename, string(f.Modality), f.ContentType, f.Size, f.StoragePath, string(f.Status), f.CreatedAt)
    return err
}

func (db *DB) Get(ctx context.Context, id string) (domain.MediaFile, error) {
    row := db.Pool.QueryRow(ctx, `SELECT `+mediaColumns+` FROM media_files WHERE id = $1`, id)
    f, err := scanMedia(row)
    if errors.Is(err, pgx.ErrNoRows) {
        return f, domain.ErrNotFound
    }
    return f, err
}

func (db *DB) Delete(ctx context.Context, id string) error {
    _, err := db.Pool.Exec(ctx, `DELETE FROM media_files WHERE id = $1`, id)
    return err
}

func (db *DB) ListByOwner(ctx context.Context, ownerID string) ([]domain.MediaFile, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT `+mediaColumns+` FROM media_files
        WHERE owner_id = $1
        ORDER BY created_at DESC
    `, ownerID)
    if err != nil {
        return nil, err
    }
    return collectMedia(rows)
}

// ListOlderThan returns live rows created before cutoff.
func (db *DB) ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.MediaFile, error) {
    rows, err := db.Pool.Query(ctx, `
        SELECT `+mediaColumns+` FROM media_files
        WHERE created_at < $1 AND status <> 'deleted'
        ORDER BY created_at
    `, cutoff)
    if err != nil {
        return nil, err
    }
    return collectMedia(rows)
}

func collectMedia(rows pgx.Rows) ([]domain.MediaFile, error) {
    defer rows.Close()
    var out []domain.MediaFile
    for rows.Next() {
        f, err := scanMedia(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, f)
    }
    return out, rows.Err()
}

func scanMedia(row pgx.Row) (domain.MediaFile, error) {
    var f domain.MediaFile
    var modality, status string
    err := row.Scan(&f.ID, &f.OwnerID, &f.Filename, &modality, &f.ContentType, &f.Size, &f.StoragePath, &status, &f.CreatedAt, &f.UpdatedAt)
    f.Modality = domain.Modality(modality)
    f.Status = domain.Status(status)
    return f, err
}
