package ports

import (
    "context"
    "time"

    "deepscan/internal/domain"
)

// MediaRepository persists file metadata only, never verdict payloads.
type MediaRepository interface {
    Create(ctx context.Context, f domain.MediaFile) error
    Get(ctx context.Context, id string) (domain.MediaFile, error)
    UpdateStatus(ctx context.Context, id string, status domain.Status) error
    // MarkDeleted tombstones a row after its media was swept; the row stays listable.
    MarkDeleted(ctx context.Context, id string) error
    Delete(ctx context.Context, id string) error
    ListByOwner(ctx context.Context, ownerID string) ([]domain.MediaFile, error)
    // ListOlderThan excludes tombstoned rows.
    ListOlderThan(ctx context.Context, cutoff time.Time) ([]domain.MediaFile, error)
}

// SessionStore holds in-process analysis sessions keyed by file id.
type SessionStore interface {
    Get(ctx context.Context, id string) (domain.AnalysisSession, bool)
    Put(ctx context.Context, s domain.AnalysisSession)
    // Update applies fn under the store's lock and returns the result.
    Update(ctx context.Context, id string, fn func(*domain.AnalysisSession)) (domain.AnalysisSession, bool)
    Delete(ctx context.Context, id string)
}

// ResponseCache stores raw oracle responses.
type ResponseCache interface {
    Get(ctx context.Context, key string) (value string, found bool, err error)
    Set(ctx context.Context, key, value string, ttl time.Duration) error
}
