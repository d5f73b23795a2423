package faces

import (
    "context"
    "errors"
    "image"
    "testing"

    "github.com/google/go-cmp/cmp"

    "deepscan/internal/domain"
)

type fakeDetector struct {
    boxes []domain.FaceRegion
    err   error
    calls int
}

func (f *fakeDetector) Detect(context.Context, image.Image) ([]domain.FaceRegion, error) {
    f.calls++
    return f.boxes, f.err
}

func ptr[T any](v T) *T { return &v }

func TestReconcile_Priority(t *testing.T) {
    img := image.NewRGBA(image.Rect(0, 0, 200, 200))
    small := domain.FaceRegion{X: 1, Y: 1, Width: 10, Height: 10}
    big := domain.FaceRegion{X: 50, Y: 50, Width: 80, Height: 90}
    hint := domain.FaceRegion{X: 5, Y: 6, Width: 40, Height: 40}

    tests := []struct {
        name       string
        hint       domain.FaceHint
        landmark   *fakeDetector
        cascade    *fakeDetector
        wantRegion *domain.FaceRegion
        wantSource Source
        wantConf   float64
    }{
        {
            name:       "hint wins",
            hint:       domain.FaceHint{Detected: true, Region: &hint, Confidence: ptr(0.7)},
            landmark:   &fakeDetector{boxes: []domain.FaceRegion{big}},
            cascade:    &fakeDetector{},
            wantRegion: &hint,
            wantSource: SourceHint,
            wantConf:   0.7,
        },
        {
            name:       "landmark largest",
            landmark:   &fakeDetector{boxes: []domain.FaceRegion{small, big}},
            cascade:    &fakeDetector{boxes: []domain.FaceRegion{small}},
            wantRegion: &big,
            wantSource: SourceLandmark,
            wantConf:   1.0,
        },
        {
            name:       "invalid hint falls through to cascade",
            hint:       domain.FaceHint{Detected: true, Region: &domain.FaceRegion{Width: 0, Height: 10}},
            landmark:   &fakeDetector{err: errors.New("model missing")},
            cascade:    &fakeDetector{boxes: []domain.FaceRegion{small, {Width: -1, Height: 5}}},
            wantRegion: &small,
            wantSource: SourceCascade,
            wantConf:   1.0,
        },
        {
            name:     "region hint without detected flag",
            hint:     domain.FaceHint{Region: &hint, Confidence: ptr(0.4)},
            landmark: &fakeDetector{},
            cascade:  &fakeDetector{},
        },
        {
            name:       "region hint confirmed by detector",
            hint:       domain.FaceHint{Region: &hint, Confidence: ptr(0.4)},
            landmark:   &fakeDetector{},
            cascade:    &fakeDetector{boxes: []domain.FaceRegion{big}},
            wantRegion: &hint,
            wantSource: SourceHint,
            wantConf:   1.0,
        },
        {
            name:     "nothing anywhere",
            landmark: &fakeDetector{},
            cascade:  &fakeDetector{},
        },
    }
    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            r := New(tt.landmark, tt.cascade, nil)
            got := r.Reconcile(context.Background(), tt.hint, img)
            if diff := cmp.Diff(tt.wantRegion, got.Region); diff != "" {
                t.Errorf("region (-want +got):\n%s", diff)
            }
            if got.Source != tt.wantSource {
                t.Errorf("source = %q, want %q", got.Source, tt.wantSource)
            }
            if got.Confidence != tt.wantConf {
                t.Errorf("confidence = %v, want %v", got.Confidence, tt.wantConf)
            }
            if got.Detected != (tt.wantRegion != nil) {
                t.Errorf("detected = %v", got.Detected)
            }
        })
    }
}

func TestReconcile_DetectedImpliesRegion(t *testing.T) {
    img := image.NewRGBA(image.Rect(0, 0, 64, 64))
    box := domain.FaceRegion{X: 3, Y: 4, Width: 20, Height: 20}
    sources := []struct {
        hint     *domain.FaceRegion
        landmark []domain.FaceRegion
        cascade  []domain.FaceRegion
    }{
        {hint: &box},
        {landmark: []domain.FaceRegion{box}},
        {cascade: []domain.FaceRegion{box}},
        {hint: &box, cascade: []domain.FaceRegion{box}},
    }
    for i, s := range sources {
        for _, flagged := range []bool{true, false} {
            r := New(&fakeDetector{boxes: s.landmark}, &fakeDetector{boxes: s.cascade}, nil)
            got := r.Reconcile(context.Background(), domain.FaceHint{Detected: flagged, Region: s.hint}, img)
            want := flagged || len(s.landmark) > 0 || len(s.cascade) > 0
            if got.Detected != want {
                t.Errorf("case %d flagged=%v: detected=%v, want %v", i, flagged, got.Detected, want)
            }
            if got.Detected != got.Region.Valid() {
                t.Errorf("case %d flagged=%v: detected=%v region=%v", i, flagged, got.Detected, got.Region)
            }
        }
    }
}

func TestReconcile_LastResort(t *testing.T) {
    img := image.NewRGBA(image.Rect(0, 0, 64, 64))
    rescue := &fakeDetector{boxes: []domain.FaceRegion{{X: 1, Y: 2, Width: 30, Height: 30}}}
    r := New(&fakeDetector{}, &fakeDetector{}, rescue)

    got := r.Reconcile(context.Background(), domain.FaceHint{Detected: true}, img)
    if got.Source != SourceRescue || !got.Region.Valid() {
        t.Fatalf("expected rescue region, got %+v", got)
    }
    if rescue.calls != 1 {
        t.Errorf("rescue calls = %d, want 1", rescue.calls)
    }

    // Without a face flag the rescue pass never runs.
    rescue.calls = 0
    got = r.Reconcile(context.Background(), domain.FaceHint{}, img)
    if got.Detected || rescue.calls != 0 {
        t.Errorf("unexpected rescue: %+v calls=%d", got, rescue.calls)
    }
}

func TestReconcile_FlaggedWithoutAnyBox(t *testing.T) {
    r := New(&fakeDetector{}, &fakeDetector{}, nil)
    got := r.Reconcile(context.Background(), domain.FaceHint{Detected: true, Confidence: ptr(0.9)}, nil)
    if !got.Detected || got.Region != nil {
        t.Fatalf("got %+v, want detected without region", got)
    }
    if got.Confidence != 0.9 {
        t.Errorf("confidence = %v", got.Confidence)
    }
}
