package postgres

import (
    "context"
    "errors"
    "time"

    "github.com/jackc/pgx/v5"

    "deepscan/internal/domain"
)

// UpdateStatus locks the row and applies the transition. Tombstoned rows are treated as gone.
func (db *DB) UpdateStatus(ctx context.Context, id string, status domain.Status) (err error) {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{})
    if err != nil { return err }
    defer func() {
        if err != nil { _ = tx.Rollback(ctx) } else { _ = tx.Commit(ctx) }
    }()

    var current string
    err = tx.QueryRow(ctx, `SELECT status FROM media_files WHERE id=$1 FOR UPDATE`, id).Scan(&current)
    if errors.Is(err, pgx.ErrNoRows) {
        return domain.ErrNotFound
    }
    if err != nil { return err }
    if domain.Status(current) == domain.StatusDeleted {
        return domain.ErrNotFound
    }
    _, err = tx.Exec(ctx, `UPDATE media_files SET status=$2, updated_at=now() WHERE id=$1`, id, string(status))
    return err
}

// MarkDeleted tombstones a row whose media the stale-file sweep removed. Metadata stays listable.
func (db *DB) MarkDeleted(ctx context.Context, id string) error {
    ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
    defer cancel()
    _, err := db.Pool.Exec(ctx, `UPDATE media_files SET status='deleted', updated_at=now() WHERE id=$1 AND status <> 'deleted'`, id)
    return err
}
