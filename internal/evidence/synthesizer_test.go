package evidence

import (
    "image"
    "image/color"
    "strings"
    "testing"

    "github.com/google/go-cmp/cmp"

    "deepscan/internal/domain"
)

func f64(v float64) *float64 { return &v }

func testImage(w, h int) image.Image {
    img := image.NewRGBA(image.Rect(0, 0, w, h))
    for y := 0; y < h; y++ {
        for x := 0; x < w; x++ {
            img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
        }
    }
    return img
}

func sampleDetail() domain.ImageDetailV1 {
    return domain.ImageDetailV1{
        BorderQuality:      f64(0.9),
        EdgeUniformity:     f64(0.5),
        TextureConsistency: f64(0.2),
        LightingUniformity: f64(0.75),
        FacialSymmetry:     f64(0.6),
    }
}

func TestSynthesize_ArtifactRecords(t *testing.T) {
    box := &domain.FaceRegion{X: 10, Y: 10, Width: 30, Height: 40}
    face := domain.FaceEvidence{Detected: true, Confidence: 1, Region: box}
    ev := New().Synthesize(sampleDetail(), face, SourceImage{})

    want := []domain.ArtifactRecord{
        {Type: "border_quality", Score: 0.9, Coordinates: box, Color: ColorGood, Description: "Face border quality analysis"},
        {Type: "edge_uniformity", Score: 0.5, Coordinates: box, Color: ColorWarn, Description: "Edge consistency analysis"},
        {Type: "texture_consistency", Score: 0.2, Coordinates: box, Color: ColorBad, Description: "Texture consistency analysis"},
        {Type: "lighting_uniformity", Score: 0.75, Coordinates: box, Color: ColorGood, Description: "Lighting uniformity analysis"},
    }
    if diff := cmp.Diff(want, ev.Artifacts); diff != "" {
        t.Errorf("artifacts (-want +got):\n%s", diff)
    }
    wantAnomaly := map[string]float64{"lighting": 0.75, "skin": 0.2, "symmetry": 0.6}
    if diff := cmp.Diff(wantAnomaly, ev.AnomalyScores); diff != "" {
        t.Errorf("anomaly scores (-want +got):\n%s", diff)
    }
    if len(ev.Heatmaps) != 0 {
        t.Errorf("no image means no heatmaps, got %d", len(ev.Heatmaps))
    }
}

func TestSynthesize_Idempotent(t *testing.T) {
    s := New()
    img := testImage(64, 48)
    face := domain.FaceEvidence{Detected: true, Confidence: 0.8, Region: &domain.FaceRegion{X: 16, Y: 8, Width: 24, Height: 30}}
    src := SourceImage{Image: img, Data: []byte("raw"), ContentType: "image/png"}

    a := s.Synthesize(sampleDetail(), face, src)
    b := s.Synthesize(sampleDetail(), face, src)
    if diff := cmp.Diff(a, b); diff != "" {
        t.Errorf("synthesize is not deterministic (-a +b):\n%s", diff)
    }
}

func TestSynthesize_SyntheticHeatmap(t *testing.T) {
    img := testImage(40, 30)
    box := &domain.FaceRegion{X: 10, Y: 5, Width: 20, Height: 20}
    ev := New().Synthesize(sampleDetail(), domain.FaceEvidence{Detected: true, Region: box}, SourceImage{Image: img, Data: []byte{1}, ContentType: "image/jpeg"})

    if len(ev.Heatmaps) != 1 {
        t.Fatalf("heatmaps = %d, want 1", len(ev.Heatmaps))
    }
    hm := ev.Heatmaps[0]
    if hm.Kind != domain.HeatmapSynthetic || !hm.Synthetic {
        t.Errorf("synthetic heatmap not tagged: kind=%q synthetic=%v", hm.Kind, hm.Synthetic)
    }
    if hm.Shape != [2]int{30, 40} || len(hm.Data) != 30*40 {
        t.Errorf("shape %v with %d bytes", hm.Shape, len(hm.Data))
    }
    if !strings.HasPrefix(hm.Image, "data:image/png;base64,") {
        t.Errorf("image is not a PNG data URI")
    }
    if !strings.HasPrefix(ev.SourceImage, "data:image/jpeg;base64,") {
        t.Errorf("source image = %.30q", ev.SourceImage)
    }
    // Peak at the face centre, floor outside the box.
    center := hm.Data[15*40+20]
    outside := hm.Data[0]
    if center != 255 || outside >= center {
        t.Errorf("center=%d outside=%d", center, outside)
    }
}

func TestSynthesize_GradCAMPreferred(t *testing.T) {
    img := testImage(20, 20)
    d := sampleDetail()
    d.SpatialMaps = []domain.SpatialMap{
        {Model: "xception", Values: []float64{0, 0.5, 1, 0.25}, Shape: [2]int{2, 2}, Prediction: "FAKE"},
    }
    ev := New().Synthesize(d, domain.FaceEvidence{Detected: true, Region: &domain.FaceRegion{X: 1, Y: 1, Width: 5, Height: 5}}, SourceImage{Image: img})
    if len(ev.Heatmaps) != 1 {
        t.Fatalf("heatmaps = %d, want 1", len(ev.Heatmaps))
    }
    hm := ev.Heatmaps[0]
    if hm.Kind != domain.HeatmapGradCAM || hm.Synthetic {
        t.Errorf("kind=%q synthetic=%v", hm.Kind, hm.Synthetic)
    }
    if diff := cmp.Diff([]uint8{0, 128, 255, 64}, hm.Data); diff != "" {
        t.Errorf("raw field (-want +got):\n%s", diff)
    }
    if hm.Shape != [2]int{2, 2} || hm.Prediction != "FAKE" {
        t.Errorf("shape=%v prediction=%q", hm.Shape, hm.Prediction)
    }
}

func TestSynthesize_NoFaceNoHeatmap(t *testing.T) {
    ev := New().Synthesize(sampleDetail(), domain.FaceEvidence{}, SourceImage{Image: testImage(10, 10)})
    if len(ev.Heatmaps) != 0 {
        t.Errorf("heatmaps = %d, want 0", len(ev.Heatmaps))
    }
}

func TestSynthesize_InvalidSpatialMapSkipped(t *testing.T) {
    d := domain.ImageDetailV1{SpatialMaps: []domain.SpatialMap{{Model: "bad", Values: []float64{1}, Shape: [2]int{3, 3}}}}
    ev := New().Synthesize(d, domain.FaceEvidence{}, SourceImage{Image: testImage(8, 8)})
    if len(ev.Heatmaps) != 0 {
        t.Errorf("heatmaps = %d, want 0", len(ev.Heatmaps))
    }
}

type panicImage struct{ image.Image }

func (panicImage) Bounds() image.Rectangle { panic("broken decoder") }

func TestSynthesize_RecoversToMinimalBundle(t *testing.T) {
    src := SourceImage{Image: panicImage{}, Data: []byte("png"), ContentType: "image/png"}
    ev := New().Synthesize(sampleDetail(), domain.FaceEvidence{Detected: true, Region: &domain.FaceRegion{Width: 4, Height: 4}}, src)
    if len(ev.Artifacts) != 0 || len(ev.Heatmaps) != 0 || ev.Face.Detected {
        t.Errorf("expected minimal bundle, got %+v", ev)
    }
    if ev.SourceImage == "" {
        t.Error("minimal bundle must keep the source image")
    }
}

func TestSuspicion(t *testing.T) {
    if got := Suspicion(domain.ImageDetailV1{}); got != 0.5 {
        t.Errorf("Suspicion(empty) = %v", got)
    }
    d := domain.ImageDetailV1{BorderQuality: f64(0.8), EdgeUniformity: f64(0.6)}
    if got := Suspicion(d); got < 0.2999 || got > 0.3001 {
        t.Errorf("Suspicion = %v, want 0.3", got)
    }
}

func TestRadialField_DownscalesLargeImages(t *testing.T) {
    f := RadialField(2048, 1024, domain.FaceRegion{X: 800, Y: 300, Width: 400, Height: 400}, 0.7)
    if f.W != 256 || f.H != 128 {
        t.Errorf("grid = %dx%d, want 256x128", f.W, f.H)
    }
}
