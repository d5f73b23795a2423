// Package analysis owns the file lifecycle: upload, background analysis, results with evidence repair,
// deletion and the stale-file sweep.
package analysis

import (
    "context"
    "errors"
    "fmt"
    "image"
    "io"
    "log/slog"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/google/uuid"
    "golang.org/x/sync/singleflight"

    "deepscan/internal/domain"
    "deepscan/internal/evidence"
    "deepscan/internal/faces"
    "deepscan/internal/logging"
    "deepscan/internal/ports"
    "deepscan/internal/video"
)

type FaceReconciler interface {
    Reconcile(ctx context.Context, hint domain.FaceHint, img image.Image) faces.Result
}

type EvidenceSynthesizer interface {
    Synthesize(detail domain.ImageDetailV1, face domain.FaceEvidence, src evidence.SourceImage) domain.VisualEvidence
}

// Dependencies are the collaborators the service needs. Runner and Cleanup may be nil: analysis then runs
// on a detached goroutine and media is never deleted on a timer.
type Dependencies struct {
    Files    ports.MediaRepository
    Sessions ports.SessionStore
    Storage  ports.MediaStorage
    Oracle   ports.Oracle
    Faces    FaceReconciler
    Evidence EvidenceSynthesizer
    Frames   ports.FrameSource
    Runner   ports.TaskRunner
    Cleanup  ports.CleanupScheduler

    MaxUploadBytes      int64
    VideoMaxFrames      int
    VideoFrameInterval  int
    VideoParallelFrames int
    Now                 func() time.Time
}

type Service struct {
    deps    Dependencies
    video   *video.Aggregator
    flights singleflight.Group
    log     *slog.Logger

    // active holds files prepared for analysis by this process and not yet finished. A processing row
    // outside this set was orphaned by an earlier process.
    mu     sync.Mutex
    active map[string]struct{}
}

func New(deps Dependencies) *Service {
    if deps.Now == nil {
        deps.Now = time.Now
    }
    if deps.Faces == nil {
        deps.Faces = faces.New(nil, nil, nil)
    }
    if deps.Evidence == nil {
        deps.Evidence = evidence.New()
    }
    s := &Service{deps: deps, log: logging.New("analysis"), active: make(map[string]struct{})}
    s.video = video.New(deps.Frames, s.analyzeFrame, deps.VideoMaxFrames, deps.VideoFrameInterval, deps.VideoParallelFrames)
    return s
}

// SetRunner wires the task runner after construction; the runner itself needs the service as its processor.
func (s *Service) SetRunner(r ports.TaskRunner) { s.deps.Runner = r }

// Ack is returned when analysis has been handed to the background.
type Ack struct {
    FileID string
    Status domain.Status
}

// Upload validates the extension, stores the media and records its metadata.
func (s *Service) Upload(ctx context.Context, owner, filename string, r io.Reader) (domain.MediaFile, error) {
    filename = filepath.Base(strings.TrimSpace(filename))
    if filename == "" || filename == "." || filename == string(filepath.Separator) {
        return domain.MediaFile{}, fmt.Errorf("%w: no file provided", domain.ErrInvalidInput)
    }
    modality := domain.ModalityOf(filename)
    if modality == domain.ModalityUnknown {
        return domain.MediaFile{}, fmt.Errorf("%w: %s (supported: %s)", domain.ErrUnsupportedMedia,
            filepath.Ext(filename), strings.Join(domain.SupportedExtensions(), " "))
    }

    id := uuid.NewString()
    path, size, err := s.deps.Storage.Save(ctx, id+strings.ToLower(filepath.Ext(filename)), r, s.deps.MaxUploadBytes)
    if err != nil {
        return domain.MediaFile{}, err
    }
    now := s.deps.Now()
    f := domain.MediaFile{
        ID:          id,
        OwnerID:     owner,
        Filename:    filename,
        Modality:    modality,
        ContentType: s.deps.Storage.ContentType(path),
        Size:        size,
        StoragePath: path,
        Status:      domain.StatusUploaded,
        CreatedAt:   now,
        UpdatedAt:   now,
    }
    if err := s.deps.Files.Create(ctx, f); err != nil {
        _ = s.deps.Storage.Remove(path)
        return domain.MediaFile{}, fmt.Errorf("record upload: %w", err)
    }
    s.deps.Sessions.Put(ctx, domain.AnalysisSession{File: f, Status: domain.StatusUploaded, Timestamp: now})
    s.log.Info("file uploaded", "file_id", id, "modality", modality, "bytes", size, "owner", owner)
    return f, nil
}

// Analyze moves the file to processing and hands it to the runner. Re-analysing a completed or failed file is
// allowed; analysing a file that is already processing joins the running task.
func (s *Service) Analyze(ctx context.Context, owner, id string) (Ack, error) {
    ack, err := s.Prepare(ctx, owner, id)
    if err != nil {
        return Ack{}, err
    }
    if s.deps.Runner != nil {
        s.deps.Runner.Submit(id)
    } else {
        go func() { _ = s.Process(context.Background(), id) }()
    }
    return ack, nil
}

// Prepare checks ownership and media presence and moves the file to processing without scheduling it.
// Callers that analyse inline follow it with Process.
func (s *Service) Prepare(ctx context.Context, owner, id string) (Ack, error) {
    f, err := s.owned(ctx, owner, id)
    if err != nil {
        return Ack{}, err
    }
    if f.Status == domain.StatusDeleted || !s.deps.Storage.Exists(f.StoragePath) {
        return Ack{}, fmt.Errorf("%w: media for %s is no longer stored", domain.ErrNotFound, id)
    }
    if s.deps.Cleanup != nil {
        s.deps.Cleanup.Cancel(id)
    }
    s.track(id)
    if err := s.deps.Files.UpdateStatus(ctx, id, domain.StatusProcessing); err != nil {
        s.release(id)
        return Ack{}, err
    }
    f.Status = domain.StatusProcessing
    now := s.deps.Now()
    if _, ok := s.deps.Sessions.Update(ctx, id, func(sess *domain.AnalysisSession) {
        if sess.Status == domain.StatusProcessing {
            return
        }
        *sess = domain.AnalysisSession{File: f, Status: domain.StatusProcessing, Timestamp: now}
    }); !ok {
        s.deps.Sessions.Put(ctx, domain.AnalysisSession{File: f, Status: domain.StatusProcessing, Timestamp: now})
    }
    return Ack{FileID: id, Status: domain.StatusProcessing}, nil
}

// Results returns the session snapshot. Sessions do not survive a restart, so a missing session is not found
// even when metadata exists. Missing or inconsistent image evidence is regenerated before returning.
func (s *Service) Results(ctx context.Context, owner, id string) (domain.AnalysisSession, error) {
    sess, ok := s.deps.Sessions.Get(ctx, id)
    if !ok {
        return domain.AnalysisSession{}, fmt.Errorf("%w: no analysis results for %s in this session", domain.ErrNotFound, id)
    }
    if sess.File.OwnerID != owner {
        return domain.AnalysisSession{}, domain.ErrForbidden
    }
    if needsRepair(sess) {
        sess = s.repairEvidence(ctx, sess)
    }
    return sess, nil
}

// Media opens the stored upload for its owner. Swept or deleted media is not found.
func (s *Service) Media(ctx context.Context, owner, id string) (domain.MediaFile, io.ReadSeekCloser, error) {
    f, err := s.owned(ctx, owner, id)
    if err != nil {
        return domain.MediaFile{}, nil, err
    }
    if f.Status == domain.StatusDeleted {
        return domain.MediaFile{}, nil, fmt.Errorf("%w: media for %s is no longer stored", domain.ErrNotFound, id)
    }
    body, err := s.deps.Storage.Open(f.StoragePath)
    if err != nil {
        return domain.MediaFile{}, nil, err
    }
    return f, body, nil
}

func needsRepair(sess domain.AnalysisSession) bool {
    return sess.Status == domain.StatusCompleted &&
        sess.File.Modality == domain.ModalityImage &&
        sess.Details != nil &&
        !sess.Evidence.Consistent()
}

func (s *Service) repairEvidence(ctx context.Context, sess domain.AnalysisSession) domain.AnalysisSession {
    id := sess.File.ID
    data, err := s.deps.Storage.Read(sess.File.StoragePath)
    if err != nil {
        s.log.Warn("cannot regenerate evidence, media unavailable", "file_id", id, "err", err)
        return sess
    }
    ev, err := s.imageEvidence(ctx, *sess.Details, data, sess.File.ContentType)
    if err != nil {
        s.log.Warn("cannot regenerate evidence", "file_id", id, "err", err)
        return sess
    }
    s.log.Warn("regenerated visual evidence", "file_id", id, "face_detected", ev.Face.Detected)
    updated, ok := s.deps.Sessions.Update(ctx, id, func(cur *domain.AnalysisSession) {
        if cur.Status == domain.StatusCompleted && cur.Timestamp.Equal(sess.Timestamp) {
            cur.Evidence = &ev
        }
    })
    if !ok {
        sess.Evidence = &ev
        return sess
    }
    return updated
}

// Delete removes media, metadata and session. Deleting an absent file succeeds.
func (s *Service) Delete(ctx context.Context, owner, id string) error {
    f, err := s.deps.Files.Get(ctx, id)
    switch {
    case errors.Is(err, domain.ErrNotFound):
        sess, ok := s.deps.Sessions.Get(ctx, id)
        if !ok {
            return nil
        }
        f = sess.File
    case err != nil:
        return err
    }
    if f.OwnerID != owner {
        return domain.ErrForbidden
    }
    if s.deps.Cleanup != nil {
        s.deps.Cleanup.Cancel(id)
    }
    if err := s.deps.Storage.Remove(f.StoragePath); err != nil {
        s.log.Warn("remove media", "file_id", id, "err", err)
    }
    if err := s.deps.Files.Delete(ctx, id); err != nil {
        return fmt.Errorf("delete metadata: %w", err)
    }
    s.deps.Sessions.Delete(ctx, id)
    s.log.Info("file deleted", "file_id", id, "owner", owner)
    return nil
}

// CleanupStale removes media older than maxAge and tombstones its metadata. Files this process is still
// analysing are skipped; processing rows left behind by an earlier process are swept like any other.
func (s *Service) CleanupStale(ctx context.Context, maxAge time.Duration) (int, error) {
    cutoff := s.deps.Now().Add(-maxAge)
    stale, err := s.deps.Files.ListOlderThan(ctx, cutoff)
    if err != nil {
        return 0, fmt.Errorf("list stale files: %w", err)
    }
    removed := 0
    for _, f := range stale {
        if err := ctx.Err(); err != nil {
            return removed, err
        }
        if s.inFlight(f.ID) {
            continue
        }
        if f.Status == domain.StatusProcessing {
            s.log.Warn("sweeping orphaned processing file", "file_id", f.ID)
        }
        if s.deps.Cleanup != nil {
            s.deps.Cleanup.Cancel(f.ID)
        }
        if err := s.deps.Storage.Remove(f.StoragePath); err != nil {
            s.log.Warn("remove stale media", "file_id", f.ID, "err", err)
            continue
        }
        if err := s.deps.Files.MarkDeleted(ctx, f.ID); err != nil {
            s.log.Warn("tombstone stale file", "file_id", f.ID, "err", err)
            continue
        }
        removed++
    }
    if removed > 0 {
        s.log.Info("stale files removed", "count", removed, "cutoff", cutoff)
    }
    return removed, nil
}

// Abandon fails a file whose queued analysis will never run, so it does not stay processing.
func (s *Service) Abandon(ctx context.Context, id string) error {
    defer s.release(id)
    now := s.deps.Now()
    s.deps.Sessions.Update(ctx, id, func(sess *domain.AnalysisSession) {
        if sess.Status != domain.StatusProcessing {
            return
        }
        sess.Status = domain.StatusError
        sess.File.Status = domain.StatusError
        sess.Error = "analysis interrupted by shutdown"
        sess.Timestamp = now
    })
    if err := s.deps.Files.UpdateStatus(ctx, id, domain.StatusError); err != nil {
        return fmt.Errorf("abandon %s: %w", id, err)
    }
    s.log.Warn("analysis abandoned", "file_id", id)
    return nil
}

func (s *Service) track(id string) {
    s.mu.Lock()
    s.active[id] = struct{}{}
    s.mu.Unlock()
}

func (s *Service) release(id string) {
    s.mu.Lock()
    delete(s.active, id)
    s.mu.Unlock()
}

func (s *Service) inFlight(id string) bool {
    s.mu.Lock()
    defer s.mu.Unlock()
    _, ok := s.active[id]
    return ok
}

func (s *Service) owned(ctx context.Context, owner, id string) (domain.MediaFile, error) {
    f, err := s.deps.Files.Get(ctx, id)
    if err != nil {
        return f, err
    }
    if f.OwnerID != owner {
        return f, domain.ErrForbidden
    }
    return f, nil
}
