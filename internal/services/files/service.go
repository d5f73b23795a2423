package files

import (
    "context"

    "deepscan/internal/domain"
    "deepscan/internal/ports"
)

// Listing is persisted metadata plus the in-memory verdict when this process still holds one.
type Listing struct {
    File    domain.MediaFile
    Verdict *domain.AnalysisVerdict
}

type Service struct {
    files    ports.MediaRepository
    sessions ports.SessionStore
}

func New(files ports.MediaRepository, sessions ports.SessionStore) *Service {
    return &Service{files: files, sessions: sessions}
}

// List returns the owner's files newest first.
func (s *Service) List(ctx context.Context, owner string) ([]Listing, error) {
    rows, err := s.files.ListByOwner(ctx, owner)
    if err != nil {
        return nil, err
    }
    out := make([]Listing, 0, len(rows))
    for _, f := range rows {
        l := Listing{File: f}
        if sess, ok := s.sessions.Get(ctx, f.ID); ok && sess.Status == domain.StatusCompleted {
            l.Verdict = sess.Verdict
        }
        out = append(out, l)
    }
    return out, nil
}

// Get returns one file's metadata if the caller owns it.
func (s *Service) Get(ctx context.Context, owner, id string) (domain.MediaFile, error) {
    f, err := s.files.Get(ctx, id)
    if err != nil {
        return f, err
    }
    if f.OwnerID != owner {
        return domain.MediaFile{}, domain.ErrForbidden
    }
    return f, nil
}
