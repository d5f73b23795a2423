package files

import (
    "context"
    "errors"
    "testing"
    "time"

    "github.com/google/go-cmp/cmp"

    "deepscan/internal/adapters/memory"
    "deepscan/internal/domain"
)

func TestList(t *testing.T) {
    ctx := context.Background()
    repo := memory.NewMediaRepository()
    sessions := memory.NewSessionStore()
    t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

    done := domain.MediaFile{ID: "done", OwnerID: "u", Status: domain.StatusCompleted, CreatedAt: t0}
    busy := domain.MediaFile{ID: "busy", OwnerID: "u", Status: domain.StatusProcessing, CreatedAt: t0.Add(time.Minute)}
    other := domain.MediaFile{ID: "other", OwnerID: "v", CreatedAt: t0}
    for _, f := range []domain.MediaFile{done, busy, other} {
        if err := repo.Create(ctx, f); err != nil {
            t.Fatal(err)
        }
    }
    verdict := &domain.AnalysisVerdict{Prediction: domain.PredictionReal, Confidence: 0.8}
    sessions.Put(ctx, domain.AnalysisSession{File: done, Status: domain.StatusCompleted, Verdict: verdict})
    sessions.Put(ctx, domain.AnalysisSession{File: busy, Status: domain.StatusProcessing})

    got, err := New(repo, sessions).List(ctx, "u")
    if err != nil {
        t.Fatal(err)
    }
    if len(got) != 2 {
        t.Fatalf("listed %d files", len(got))
    }
    if got[0].File.ID != "busy" || got[0].Verdict != nil {
        t.Errorf("first = %+v", got[0])
    }
    if diff := cmp.Diff(verdict, got[1].Verdict); diff != "" {
        t.Errorf("verdict (-want +got):\n%s", diff)
    }
}

func TestGet_Ownership(t *testing.T) {
    ctx := context.Background()
    repo := memory.NewMediaRepository()
    _ = repo.Create(ctx, domain.MediaFile{ID: "f", OwnerID: "u"})
    svc := New(repo, memory.NewSessionStore())

    if _, err := svc.Get(ctx, "v", "f"); !errors.Is(err, domain.ErrForbidden) {
        t.Errorf("foreign err = %v", err)
    }
    if _, err := svc.Get(ctx, "u", "missing"); !errors.Is(err, domain.ErrNotFound) {
        t.Errorf("missing err = %v", err)
    }
    if f, err := svc.Get(ctx, "u", "f"); err != nil || f.ID != "f" {
        t.Errorf("own = %+v, %v", f, err)
    }
}
