package httpadapter

import (
    "bytes"
    "context"
    "encoding/json"
    "image"
    "image/color"
    "image/png"
    "mime/multipart"
    "net/http"
    "net/http/httptest"
    "path/filepath"
    "sync"
    "testing"
    "time"

    "github.com/google/go-cmp/cmp"
    "github.com/google/uuid"

    "deepscan/internal/adapters/memory"
    "deepscan/internal/adapters/storage"
    "deepscan/internal/api"
    "deepscan/internal/ports"
    "deepscan/internal/services/analysis"
    filesvc "deepscan/internal/services/files"
)

type oracleFunc func(ctx context.Context, media ports.Media, prompt string) (string, error)

func (f oracleFunc) Classify(ctx context.Context, media ports.Media, prompt string) (string, error) {
    return f(ctx, media, prompt)
}

type queued struct {
    mu  sync.Mutex
    ids []string
}

func (q *queued) Submit(id string) {
    q.mu.Lock()
    q.ids = append(q.ids, id)
    q.mu.Unlock()
}

const verdictJSON = `{"prediction":"FAKE","confidence":0.91,"reasoning":"blended jawline",
"border_quality":0.3,"edge_uniformity":0.5,"lighting_consistency":0.8,
"face_detected":true,"face_region":{"left":8,"top":8,"width":24,"height":24}}`

type fixture struct {
    handler http.Handler
    runner  *queued
    now     time.Time
}

func newFixture(t *testing.T) *fixture {
    t.Helper()
    disk, err := storage.NewDisk(filepath.Join(t.TempDir(), "uploads"))
    if err != nil {
        t.Fatal(err)
    }
    fx := &fixture{runner: &queued{}, now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
    files := memory.NewMediaRepository()
    sessions := memory.NewSessionStore()
    svc := analysis.New(analysis.Dependencies{
        Files:    files,
        Sessions: sessions,
        Storage:  disk,
        Oracle: oracleFunc(func(context.Context, ports.Media, string) (string, error) {
            return verdictJSON, nil
        }),
        Runner:         fx.runner,
        MaxUploadBytes: 1 << 20,
        Now:            func() time.Time { return fx.now },
    })
    fx.handler = New(svc, filesvc.New(files, sessions), 24*time.Hour).WithSessionCount(sessions).Routes()
    return fx
}

func (fx *fixture) do(t *testing.T, method, target, owner string, body *bytes.Buffer, contentType string) *httptest.ResponseRecorder {
    t.Helper()
    if body == nil {
        body = &bytes.Buffer{}
    }
    req := httptest.NewRequest(method, target, body)
    if owner != "" {
        req.Header.Set("Authorization", "Bearer "+owner)
    }
    if contentType != "" {
        req.Header.Set("Content-Type", contentType)
    }
    rec := httptest.NewRecorder()
    fx.handler.ServeHTTP(rec, req)
    return rec
}

func (fx *fixture) upload(t *testing.T, owner, name string, data []byte) *httptest.ResponseRecorder {
    t.Helper()
    var buf bytes.Buffer
    mw := multipart.NewWriter(&buf)
    if err := mw.WriteField("note", "ignored"); err != nil {
        t.Fatal(err)
    }
    fw, err := mw.CreateFormFile("file", name)
    if err != nil {
        t.Fatal(err)
    }
    if _, err := fw.Write(data); err != nil {
        t.Fatal(err)
    }
    if err := mw.Close(); err != nil {
        t.Fatal(err)
    }
    return fx.do(t, http.MethodPost, "/upload", owner, &buf, mw.FormDataContentType())
}

func pngBytes(t *testing.T) []byte {
    t.Helper()
    img := image.NewRGBA(image.Rect(0, 0, 48, 48))
    for y := 0; y < 48; y++ {
        for x := 0; x < 48; x++ {
            img.Set(x, y, color.RGBA{uint8(x * 5), uint8(y * 5), 120, 255})
        }
    }
    var buf bytes.Buffer
    if err := png.Encode(&buf, img); err != nil {
        t.Fatal(err)
    }
    return buf.Bytes()
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
    t.Helper()
    var out T
    if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
        t.Fatalf("decode %s: %v", rec.Body.String(), err)
    }
    return out
}

func TestHealthzIsPublic(t *testing.T) {
    fx := newFixture(t)
    health := func() api.Health {
        rec := fx.do(t, http.MethodGet, "/healthz", "", nil, "")
        if rec.Code != http.StatusOK {
            t.Fatalf("status = %d", rec.Code)
        }
        if rec.Header().Get("X-Request-Id") == "" {
            t.Error("missing X-Request-Id header")
        }
        return decode[api.Health](t, rec)
    }
    zero, one := 0, 1
    if diff := cmp.Diff(api.Health{Status: "ok", Sessions: &zero}, health()); diff != "" {
        t.Errorf("health (-want +got):\n%s", diff)
    }
    if rec := fx.upload(t, "alice", "face.png", pngBytes(t)); rec.Code != http.StatusCreated {
        t.Fatalf("upload status = %d", rec.Code)
    }
    if diff := cmp.Diff(api.Health{Status: "ok", Sessions: &one}, health()); diff != "" {
        t.Errorf("health after upload (-want +got):\n%s", diff)
    }
}

func TestMissingBearer(t *testing.T) {
    fx := newFixture(t)
    req := httptest.NewRequest(http.MethodGet, "/files", nil)
    req.Header.Set("X-Request-Id", "req-42")
    rec := httptest.NewRecorder()
    fx.handler.ServeHTTP(rec, req)
    if rec.Code != http.StatusUnauthorized {
        t.Fatalf("status = %d", rec.Code)
    }
    want := api.Error{Error: api.ErrorBody{Code: "unauthorized", Message: "missing bearer token", RequestId: "req-42"}}
    if diff := cmp.Diff(want, decode[api.Error](t, rec)); diff != "" {
        t.Errorf("envelope (-want +got):\n%s", diff)
    }
}

func TestUploadErrors(t *testing.T) {
    fx := newFixture(t)
    if rec := fx.upload(t, "alice", "notes.txt", []byte("hello")); rec.Code != http.StatusUnsupportedMediaType {
        t.Errorf("txt status = %d", rec.Code)
    }
    if rec := fx.upload(t, "alice", "big.png", make([]byte, 2<<20)); rec.Code != http.StatusRequestEntityTooLarge {
        t.Errorf("oversize status = %d", rec.Code)
    }
    rec := fx.do(t, http.MethodPost, "/upload", "alice", bytes.NewBufferString("{}"), "application/json")
    if rec.Code != http.StatusBadRequest {
        t.Errorf("non-multipart status = %d", rec.Code)
    }
}

func TestAnalyzeInvalidID(t *testing.T) {
    fx := newFixture(t)
    rec := fx.do(t, http.MethodPost, "/analyze/not-a-uuid", "alice", nil, "")
    if rec.Code != http.StatusBadRequest {
        t.Fatalf("status = %d", rec.Code)
    }
    if got := decode[api.Error](t, rec); got.Error.Code != "invalid_parameter" {
        t.Errorf("code = %q", got.Error.Code)
    }
}

func TestImageLifecycle(t *testing.T) {
    fx := newFixture(t)

    rec := fx.upload(t, "alice", "face.png", pngBytes(t))
    if rec.Code != http.StatusCreated {
        t.Fatalf("upload status = %d body=%s", rec.Code, rec.Body)
    }
    info := decode[api.FileInfo](t, rec)
    if info.FileType != "image" || info.Filename != "face.png" || info.FileSize == 0 {
        t.Fatalf("file info = %+v", info)
    }
    id := info.FileId.String()

    if rec := fx.do(t, http.MethodGet, "/results/"+id, "bob", nil, ""); rec.Code != http.StatusForbidden {
        t.Errorf("foreign results status = %d", rec.Code)
    }

    rec = fx.do(t, http.MethodPost, "/analyze/"+id, "alice", nil, "")
    if rec.Code != http.StatusAccepted {
        t.Fatalf("analyze status = %d", rec.Code)
    }
    ack := decode[api.AnalysisAck](t, rec)
    if ack.Status != "processing" || ack.FileId != info.FileId {
        t.Errorf("ack = %+v", ack)
    }
    if diff := cmp.Diff([]string{id}, fx.runner.ids); diff != "" {
        t.Errorf("submitted (-want +got):\n%s", diff)
    }

    rec = fx.do(t, http.MethodPost, "/analyze/"+id+"?wait=true&timeout=5", "alice", nil, "")
    if rec.Code != http.StatusOK {
        t.Fatalf("inline analyze status = %d body=%s", rec.Code, rec.Body)
    }
    res := decode[api.AnalysisResult](t, rec)
    if res.Status != "completed" || res.Result == nil || res.Error != nil {
        t.Fatalf("result = %s", rec.Body)
    }
    if res.Result.Prediction != "FAKE" || res.Result.Confidence != 0.91 || res.Result.Reasoning != "blended jawline" {
        t.Errorf("payload = %+v", res.Result)
    }
    ev, ok := res.Result.VisualEvidence.(map[string]interface{})
    if !ok {
        t.Fatalf("visual evidence = %T", res.Result.VisualEvidence)
    }
    face, _ := ev["face_detection"].(map[string]interface{})
    if face["detected"] != true || face["bounding_box"] == nil {
        t.Errorf("face evidence = %v", face)
    }

    rec = fx.do(t, http.MethodGet, "/files", "alice", nil, "")
    list := decode[api.FileList](t, rec)
    if len(list.Files) != 1 || list.Files[0].Prediction == nil || *list.Files[0].Prediction != "FAKE" {
        t.Errorf("files = %s", rec.Body)
    }
    if rec := fx.do(t, http.MethodGet, "/files", "bob", nil, ""); len(decode[api.FileList](t, rec).Files) != 0 {
        t.Errorf("bob sees %s", rec.Body)
    }

    for i := 0; i < 2; i++ {
        if rec := fx.do(t, http.MethodDelete, "/files/"+id, "alice", nil, ""); rec.Code != http.StatusOK {
            t.Errorf("delete #%d status = %d", i+1, rec.Code)
        }
    }
    if rec := fx.do(t, http.MethodGet, "/results/"+id, "alice", nil, ""); rec.Code != http.StatusNotFound {
        t.Errorf("results after delete status = %d", rec.Code)
    }
}

func TestCleanup(t *testing.T) {
    fx := newFixture(t)
    rec := fx.upload(t, "alice", "old.png", pngBytes(t))
    if rec.Code != http.StatusCreated {
        t.Fatalf("upload status = %d", rec.Code)
    }
    id := decode[api.FileInfo](t, rec).FileId.String()

    if rec := fx.do(t, http.MethodPost, "/cleanup?max_age_hours=-1", "alice", nil, ""); rec.Code != http.StatusBadRequest {
        t.Errorf("negative age status = %d", rec.Code)
    }
    if rec := fx.do(t, http.MethodPost, "/cleanup?max_age_hours=abc", "alice", nil, ""); rec.Code != http.StatusBadRequest {
        t.Errorf("malformed age status = %d", rec.Code)
    }

    rec = fx.do(t, http.MethodPost, "/cleanup?max_age_hours=1", "alice", nil, "")
    if got := decode[api.CleanupResult](t, rec); got.Removed != 0 {
        t.Errorf("fresh file removed: %+v", got)
    }

    fx.now = fx.now.Add(2 * time.Hour)
    rec = fx.do(t, http.MethodPost, "/cleanup?max_age_hours=1", "alice", nil, "")
    if got := decode[api.CleanupResult](t, rec); got.Removed != 1 {
        t.Errorf("cleanup = %+v", got)
    }
    if rec := fx.do(t, http.MethodPost, "/analyze/"+id, "alice", nil, ""); rec.Code != http.StatusNotFound {
        t.Errorf("analyze swept file status = %d", rec.Code)
    }
}

func TestFileMedia(t *testing.T) {
    fx := newFixture(t)
    data := pngBytes(t)
    rec := fx.upload(t, "alice", "face.png", data)
    if rec.Code != http.StatusCreated {
        t.Fatalf("upload status = %d", rec.Code)
    }
    id := decode[api.FileInfo](t, rec).FileId.String()
    target := "/files/" + id + "/media"

    rec = fx.do(t, http.MethodGet, target, "alice", nil, "")
    if rec.Code != http.StatusOK {
        t.Fatalf("owner status = %d body=%s", rec.Code, rec.Body)
    }
    if !bytes.Equal(data, rec.Body.Bytes()) {
        t.Errorf("served %d bytes, want the %d uploaded", rec.Body.Len(), len(data))
    }
    if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
        t.Errorf("content type = %q", ct)
    }

    req := httptest.NewRequest(http.MethodGet, target, nil)
    req.Header.Set("Authorization", "Bearer alice")
    req.Header.Set("Range", "bytes=0-7")
    partial := httptest.NewRecorder()
    fx.handler.ServeHTTP(partial, req)
    if partial.Code != http.StatusPartialContent || !bytes.Equal(data[:8], partial.Body.Bytes()) {
        t.Errorf("range status = %d body=%x", partial.Code, partial.Body.Bytes())
    }

    tests := []struct {
        name   string
        target string
        owner  string
        want   int
    }{
        {"other owner", target, "bob", http.StatusForbidden},
        {"unknown file", "/files/" + uuid.NewString() + "/media", "alice", http.StatusNotFound},
        {"no bearer", target, "", http.StatusUnauthorized},
    }
    for _, tt := range tests {
        if rec := fx.do(t, http.MethodGet, tt.target, tt.owner, nil, ""); rec.Code != tt.want {
            t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
        }
    }

    if rec := fx.do(t, http.MethodDelete, "/files/"+id, "alice", nil, ""); rec.Code != http.StatusOK {
        t.Fatalf("delete status = %d", rec.Code)
    }
    if rec := fx.do(t, http.MethodGet, target, "alice", nil, ""); rec.Code != http.StatusNotFound {
        t.Errorf("media after delete status = %d", rec.Code)
    }
}

func TestFileMedia_SweptUpload(t *testing.T) {
    fx := newFixture(t)
    rec := fx.upload(t, "alice", "old.png", pngBytes(t))
    id := decode[api.FileInfo](t, rec).FileId.String()
    fx.now = fx.now.Add(48 * time.Hour)
    if rec := fx.do(t, http.MethodPost, "/cleanup", "alice", nil, ""); decode[api.CleanupResult](t, rec).Removed != 1 {
        t.Fatalf("cleanup = %s", rec.Body)
    }
    if rec := fx.do(t, http.MethodGet, "/files/"+id+"/media", "alice", nil, ""); rec.Code != http.StatusNotFound {
        t.Errorf("swept media status = %d", rec.Code)
    }
}
