// Package memory holds process-local stores: the metadata fallback used when no database is configured,
// and the analysis session store.
package memory

import (
    "context"
    "sort"
    "sync"
    "time"

    "deepscan/internal/domain"
)

type MediaRepository struct {
    mu    sync.RWMutex
    files map[string]domain.MediaFile
    now   func() time.Time
}

func NewMediaRepository() *MediaRepository {
    return &MediaRepository{files: map[string]domain.MediaFile{}, now: time.Now}
}

func (r *MediaRepository) Create(_ context.Context, f domain.MediaFile) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    if _, ok := r.files[f.ID]; ok {
        return domain.ErrInvalidInput
    }
    if f.UpdatedAt.IsZero() {
        f.UpdatedAt = f.CreatedAt
    }
    r.files[f.ID] = f
    return nil
}

func (r *MediaRepository) Get(_ context.Context, id string) (domain.MediaFile, error) {
    r.mu.RLock()
    defer r.mu.RUnlock()
    f, ok := r.files[id]
    if !ok {
        return domain.MediaFile{}, domain.ErrNotFound
    }
    return f, nil
}

func (r *MediaRepository) UpdateStatus(_ context.Context, id string, status domain.Status) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    f, ok := r.files[id]
    if !ok || f.Status == domain.StatusDeleted {
        return domain.ErrNotFound
    }
    f.Status = status
    f.UpdatedAt = r.now()
    r.files[id] = f
    return nil
}

func (r *MediaRepository) MarkDeleted(_ context.Context, id string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    f, ok := r.files[id]
    if !ok || f.Status == domain.StatusDeleted {
        return nil
    }
    f.Status = domain.StatusDeleted
    f.UpdatedAt = r.now()
    r.files[id] = f
    return nil
}

func (r *MediaRepository) Delete(_ context.Context, id string) error {
    r.mu.Lock()
    defer r.mu.Unlock()
    delete(r.files, id)
    return nil
}

// ListByOwner returns the owner's files newest first.
func (r *MediaRepository) ListByOwner(_ context.Context, ownerID string) ([]domain.MediaFile, error) {
    r.mu.RLock()
    var out []domain.MediaFile
    for _, f := range r.files {
        if f.OwnerID == ownerID {
            out = append(out, f)
        }
    }
    r.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool {
        if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
            return out[i].CreatedAt.After(out[j].CreatedAt)
        }
        return out[i].ID < out[j].ID
    })
    return out, nil
}

func (r *MediaRepository) ListOlderThan(_ context.Context, cutoff time.Time) ([]domain.MediaFile, error) {
    r.mu.RLock()
    var out []domain.MediaFile
    for _, f := range r.files {
        if f.CreatedAt.Before(cutoff) && f.Status != domain.StatusDeleted {
            out = append(out, f)
        }
    }
    r.mu.RUnlock()
    sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
    return out, nil
}
