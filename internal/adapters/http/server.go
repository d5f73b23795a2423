package httpadapter

import (
    "context"
    "errors"
    "fmt"
    "io"
    "mime"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/google/uuid"
    openapi_types "github.com/oapi-codegen/runtime/types"

    "deepscan/internal/api"
    "deepscan/internal/domain"
    "deepscan/internal/logging"
    "deepscan/internal/services/analysis"
    filesvc "deepscan/internal/services/files"
    "deepscan/internal/workers/analysisrunner"
)

const defaultWaitTimeout = 120 * time.Second

// Analysis is the file lifecycle surface the HTTP layer drives.
type Analysis interface {
    Upload(ctx context.Context, owner, filename string, r io.Reader) (domain.MediaFile, error)
    Analyze(ctx context.Context, owner, id string) (analysis.Ack, error)
    Prepare(ctx context.Context, owner, id string) (analysis.Ack, error)
    Process(ctx context.Context, id string) error
    Results(ctx context.Context, owner, id string) (domain.AnalysisSession, error)
    Media(ctx context.Context, owner, id string) (domain.MediaFile, io.ReadSeekCloser, error)
    Delete(ctx context.Context, owner, id string) error
    CleanupStale(ctx context.Context, maxAge time.Duration) (int, error)
}

type Files interface {
    List(ctx context.Context, owner string) ([]filesvc.Listing, error)
}

// SessionCounter reports how many analysis sessions are held.
type SessionCounter interface {
    Len() int
}

// Server implements the api.ServerInterface.
type Server struct {
    analysis Analysis
    files    Files
    sessions SessionCounter
    staleAge time.Duration
}

func New(a Analysis, files Files, staleAge time.Duration) *Server {
    if staleAge <= 0 {
        staleAge = 24 * time.Hour
    }
    return &Server{analysis: a, files: files, staleAge: staleAge}
}

// WithSessionCount adds the session count to /healthz.
func (s *Server) WithSessionCount(c SessionCounter) *Server {
    s.sessions = c
    return s
}

// Routes returns a chi.Router mounting the API handlers behind request-id, logging and owner middleware.
func (s *Server) Routes() chi.Router {
    r := chi.NewRouter()
    r.Use(requestIDMiddleware)
    r.Use(middleware.Recoverer)
    r.Use(accessLog)
    r.Use(ownerMiddleware("/healthz"))
    api.HandlerWithOptions(s, api.ChiServerOptions{
        BaseRouter: r,
        ErrorHandlerFunc: func(w http.ResponseWriter, r *http.Request, err error) {
            writeError(w, http.StatusBadRequest, "invalid_parameter", err.Error(), requestIDFromContext(r.Context()))
        },
    })
    return r
}

func (s *Server) GetHealthz(w http.ResponseWriter, _ *http.Request) {
    h := api.Health{Status: "ok"}
    if s.sessions != nil {
        n := s.sessions.Len()
        h.Sessions = &n
    }
    writeJSON(w, http.StatusOK, h)
}

func (s *Server) PostUpload(w http.ResponseWriter, r *http.Request) {
    mr, err := r.MultipartReader()
    if err != nil {
        writeError(w, http.StatusBadRequest, "invalid_input", "expected multipart/form-data with a file field", requestIDFromContext(r.Context()))
        return
    }
    for {
        part, err := mr.NextPart()
        if errors.Is(err, io.EOF) {
            break
        }
        if err != nil {
            writeError(w, http.StatusBadRequest, "invalid_input", err.Error(), requestIDFromContext(r.Context()))
            return
        }
        if part.FormName() != "file" {
            _ = part.Close()
            continue
        }
        f, err := s.analysis.Upload(r.Context(), ownerFromContext(r.Context()), part.FileName(), part)
        _ = part.Close()
        if err != nil {
            s.fail(w, r, err)
            return
        }
        writeJSON(w, http.StatusCreated, fileInfo(f))
        return
    }
    writeError(w, http.StatusBadRequest, "invalid_input", "no file provided", requestIDFromContext(r.Context()))
}

func (s *Server) PostAnalyze(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID, params api.PostAnalyzeParams) {
    ctx := r.Context()
    owner := ownerFromContext(ctx)
    id := fileId.String()

    if params.Wait == nil || !*params.Wait {
        ack, err := s.analysis.Analyze(ctx, owner, id)
        if err != nil {
            s.fail(w, r, err)
            return
        }
        writeJSON(w, http.StatusAccepted, api.AnalysisAck{
            Message: "analysis started",
            FileId:  fileId,
            Status:  string(ack.Status),
        })
        return
    }

    if _, err := s.analysis.Prepare(ctx, owner, id); err != nil {
        s.fail(w, r, err)
        return
    }
    timeout := defaultWaitTimeout
    if params.Timeout != nil && *params.Timeout > 0 {
        timeout = time.Duration(*params.Timeout) * time.Second
    }
    runCtx, cancel := context.WithTimeout(ctx, timeout)
    defer cancel()
    if err := analysisrunner.ProcessInline(runCtx, s.analysis, id); err != nil {
        logging.New("http").Warn("inline analysis failed", "file_id", id, "err", err)
    }
    sess, err := s.analysis.Results(ctx, owner, id)
    if err != nil {
        s.fail(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, analysisResult(sess))
}

func (s *Server) GetResults(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID) {
    sess, err := s.analysis.Results(r.Context(), ownerFromContext(r.Context()), fileId.String())
    if err != nil {
        s.fail(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, analysisResult(sess))
}

func (s *Server) GetFiles(w http.ResponseWriter, r *http.Request) {
    rows, err := s.files.List(r.Context(), ownerFromContext(r.Context()))
    if err != nil {
        s.fail(w, r, err)
        return
    }
    out := api.FileList{Files: make([]api.FileSummary, 0, len(rows))}
    for _, l := range rows {
        sum := api.FileSummary{FileInfo: fileInfo(l.File)}
        if l.Verdict != nil {
            p, c := string(l.Verdict.Prediction), l.Verdict.Confidence
            sum.Prediction, sum.Confidence = &p, &c
        }
        out.Files = append(out.Files, sum)
    }
    writeJSON(w, http.StatusOK, out)
}

// GetFileMedia streams the upload back to its owner with range support for preview and playback.
func (s *Server) GetFileMedia(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID) {
    f, body, err := s.analysis.Media(r.Context(), ownerFromContext(r.Context()), fileId.String())
    if err != nil {
        s.fail(w, r, err)
        return
    }
    defer body.Close()
    ct := f.ContentType
    if ct == "" {
        ct = "application/octet-stream"
    }
    w.Header().Set("Content-Type", ct)
    w.Header().Set("X-Content-Type-Options", "nosniff")
    w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": f.Filename}))
    http.ServeContent(w, r, f.Filename, f.CreatedAt, body)
}

func (s *Server) DeleteFile(w http.ResponseWriter, r *http.Request, fileId openapi_types.UUID) {
    if err := s.analysis.Delete(r.Context(), ownerFromContext(r.Context()), fileId.String()); err != nil {
        s.fail(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, api.Message{Message: "file deleted"})
}

func (s *Server) PostCleanup(w http.ResponseWriter, r *http.Request, params api.PostCleanupParams) {
    maxAge := s.staleAge
    if params.MaxAgeHours != nil {
        if *params.MaxAgeHours < 0 {
            writeError(w, http.StatusBadRequest, "invalid_input", "max_age_hours must not be negative", requestIDFromContext(r.Context()))
            return
        }
        maxAge = time.Duration(*params.MaxAgeHours) * time.Hour
    }
    n, err := s.analysis.CleanupStale(r.Context(), maxAge)
    if err != nil {
        s.fail(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, api.CleanupResult{Message: fmt.Sprintf("removed %d stale files", n), Removed: n})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
    status, code := mapDomainError(err)
    if status == http.StatusInternalServerError {
        logging.New("http").Error("request failed", "path", r.URL.Path, "err", err, "request_id", requestIDFromContext(r.Context()))
    }
    writeError(w, status, code, err.Error(), requestIDFromContext(r.Context()))
}

func fileInfo(f domain.MediaFile) api.FileInfo {
    return api.FileInfo{
        FileId:      parseID(f.ID),
        Filename:    f.Filename,
        FileType:    string(f.Modality),
        ContentType: f.ContentType,
        FileSize:    f.Size,
        UploadTime:  f.CreatedAt,
        Status:      string(f.Status),
    }
}

func analysisResult(sess domain.AnalysisSession) api.AnalysisResult {
    out := api.AnalysisResult{
        FileId:    parseID(sess.File.ID),
        Status:    string(sess.Status),
        Timestamp: sess.Timestamp,
    }
    if sess.Error != "" {
        msg := sess.Error
        out.Error = &msg
    }
    if sess.Status != domain.StatusCompleted || sess.Verdict == nil {
        return out
    }
    v := sess.Verdict
    payload := &api.AnalysisPayload{
        Prediction:    string(v.Prediction),
        Confidence:    v.Confidence,
        MetricScores:  v.MetricScores,
        Reasoning:     v.Narrative,
        RawIndicators: v.RawIndicators,
    }
    if sess.Evidence != nil {
        payload.VisualEvidence = sess.Evidence
    }
    if sess.Video != nil {
        payload.VideoAnalysis = sess.Video
    }
    if sess.VideoEvidence != nil {
        payload.VideoEvidence = sess.VideoEvidence
    }
    out.Result = payload
    return out
}

func parseID(id string) openapi_types.UUID {
    u, err := uuid.Parse(id)
    if err != nil {
        return uuid.Nil
    }
    return u
}
