// Package evidence builds presentation bundles (face box, artifact scores, heatmaps) from verdict
// details and the source image. Everything here is derived data and safe to regenerate.
package evidence

import (
    "fmt"
    "image"
    "log/slog"
    "math"
    "strings"

    "deepscan/internal/domain"
    "deepscan/internal/heatmap"
    "deepscan/internal/logging"
)

const (
    ColorGood = "#22c55e"
    ColorWarn = "#f59e0b"
    ColorBad  = "#ef4444"
)

const (
    defaultAlpha   = 0.65
    defaultSigma   = 0.85
    syntheticGrid  = 256
    outsideFactor  = 0.3
    neutralSuspect = 0.5
)

// TrafficLight maps a quality score to green above 0.7, amber above 0.4, red otherwise.
func TrafficLight(score float64) string {
    switch {
    case score > 0.7:
        return ColorGood
    case score > 0.4:
        return ColorWarn
    default:
        return ColorBad
    }
}

// SourceImage is the decoded image plus its original bytes. Image may be nil for non-visual media.
type SourceImage struct {
    Image       image.Image
    Data        []byte
    ContentType string
}

type Synthesizer struct {
    Alpha float64
    Sigma float64
    log   *slog.Logger
}

func New() *Synthesizer {
    return &Synthesizer{Alpha: defaultAlpha, Sigma: defaultSigma, log: logging.New("evidence")}
}

// Synthesize never fails. On any internal error the bundle carries only the re-encoded source image.
func (s *Synthesizer) Synthesize(detail domain.ImageDetailV1, face domain.FaceEvidence, src SourceImage) (ev domain.VisualEvidence) {
    defer func() {
        if r := recover(); r != nil {
            s.logger().Error("evidence synthesis panicked", "panic", r)
            ev = minimal(src)
        }
    }()
    out, err := s.build(detail, face, src)
    if err != nil {
        s.logger().Error("evidence synthesis failed", "err", err)
        return minimal(src)
    }
    return out
}

func (s *Synthesizer) build(detail domain.ImageDetailV1, face domain.FaceEvidence, src SourceImage) (domain.VisualEvidence, error) {
    ev := minimal(src)
    if face.Region != nil && !face.Region.Valid() {
        face.Region = nil
    }
    ev.Face = face
    ev.ArtifactScores = map[string]domain.ArtifactScore{}
    ev.AnomalyScores = map[string]float64{}

    for _, m := range []struct {
        name, desc string
        value      *float64
    }{
        {"border_quality", "Face border quality analysis", detail.BorderQuality},
        {"edge_uniformity", "Edge consistency analysis", detail.EdgeUniformity},
        {"texture_consistency", "Texture consistency analysis", detail.TextureConsistency},
        {"lighting_uniformity", "Lighting uniformity analysis", detail.LightingUniformity},
    } {
        if m.value == nil {
            continue
        }
        score := clamp01(*m.value)
        color := TrafficLight(score)
        ev.ArtifactScores[m.name] = domain.ArtifactScore{Score: score, Color: color}
        ev.Artifacts = append(ev.Artifacts, domain.ArtifactRecord{
            Type:        m.name,
            Score:       score,
            Coordinates: face.Region,
            Color:       color,
            Description: m.desc,
        })
    }

    if detail.LightingUniformity != nil {
        ev.AnomalyScores["lighting"] = clamp01(*detail.LightingUniformity)
    }
    if detail.TextureConsistency != nil {
        ev.AnomalyScores["skin"] = clamp01(*detail.TextureConsistency)
    }
    if detail.FacialSymmetry != nil {
        ev.AnomalyScores["symmetry"] = clamp01(*detail.FacialSymmetry)
    }

    if src.Image == nil {
        return ev, nil
    }
    if len(detail.SpatialMaps) > 0 {
        for _, m := range detail.SpatialMaps {
            hm, err := s.gradCAM(m, src.Image)
            if err != nil {
                s.logger().Warn("skipping spatial map", "model", m.Model, "err", err)
                continue
            }
            ev.Heatmaps = append(ev.Heatmaps, hm)
        }
        return ev, nil
    }
    if face.Region != nil {
        hm, err := s.synthetic(detail, *face.Region, src.Image)
        if err != nil {
            return ev, err
        }
        ev.Heatmaps = append(ev.Heatmaps, hm)
    }
    return ev, nil
}

func (s *Synthesizer) gradCAM(m domain.SpatialMap, img image.Image) (domain.Heatmap, error) {
    field, err := heatmap.FromValues(m.Values, m.Shape)
    if err != nil {
        return domain.Heatmap{}, err
    }
    b := img.Bounds()
    resized := heatmap.Smooth(heatmap.Resize(field, b.Dx(), b.Dy()), s.Sigma)
    uri, err := heatmap.EncodePNGDataURI(heatmap.Overlay(img, resized, s.Alpha, true))
    if err != nil {
        return domain.Heatmap{}, fmt.Errorf("encode heatmap: %w", err)
    }
    pred := m.Prediction
    if pred == "" {
        pred = string(domain.PredictionUnknown)
    }
    return domain.Heatmap{
        Kind:        domain.HeatmapGradCAM,
        Model:       m.Model,
        Prediction:  pred,
        Data:        heatmap.Quantize(field),
        Shape:       m.Shape,
        Image:       uri,
        Description: fmt.Sprintf("Grad-CAM heatmap from %s. Red regions drove a FAKE decision, blue regions look authentic.", m.Model),
    }, nil
}

// synthetic builds a presentation-only map: suspicion peaks at the face centre, falls off radially to the
// box edge and stays low outside it.
func (s *Synthesizer) synthetic(detail domain.ImageDetailV1, box domain.FaceRegion, img image.Image) (domain.Heatmap, error) {
    b := img.Bounds()
    field := RadialField(b.Dx(), b.Dy(), box, Suspicion(detail))
    uri, err := heatmap.EncodePNGDataURI(heatmap.Overlay(img, field, s.Alpha, true))
    if err != nil {
        return domain.Heatmap{}, fmt.Errorf("encode heatmap: %w", err)
    }
    return domain.Heatmap{
        Kind:        domain.HeatmapSynthetic,
        Model:       "face-region",
        Synthetic:   true,
        Data:        heatmap.Quantize(field),
        Shape:       field.Shape(),
        Image:       uri,
        Description: "Synthetic suspicion map centred on the detected face. Derived from quality scores, not model attention.",
    }, nil
}

// Suspicion is 1 - mean(available quality metrics), or 0.5 when none are available.
func Suspicion(detail domain.ImageDetailV1) float64 {
    metrics := detail.QualityMetrics()
    if len(metrics) == 0 {
        return neutralSuspect
    }
    var sum float64
    for _, m := range metrics {
        sum += clamp01(m)
    }
    return clamp01(1 - sum/float64(len(metrics)))
}

// RadialField renders the synthetic map for a w x h image on a grid no larger than 256 on its long side,
// min-max normalised.
func RadialField(w, h int, box domain.FaceRegion, suspicion float64) heatmap.Field {
    scale := 1.0
    if long := max(w, h); long > syntheticGrid {
        scale = float64(syntheticGrid) / float64(long)
    }
    gw := max(1, int(math.Round(float64(w)*scale)))
    gh := max(1, int(math.Round(float64(h)*scale)))

    bx, by := float64(box.X)*scale, float64(box.Y)*scale
    bw, bh := float64(box.Width)*scale, float64(box.Height)*scale
    cx, cy := bx+bw/2, by+bh/2
    rx, ry := math.Max(bw/2, 1e-6), math.Max(bh/2, 1e-6)

    f := heatmap.NewField(gw, gh)
    for y := 0; y < gh; y++ {
        for x := 0; x < gw; x++ {
            px, py := float64(x)+0.5, float64(y)+0.5
            v := suspicion * outsideFactor
            if px >= bx && px < bx+bw && py >= by && py < by+bh {
                d := math.Hypot((px-cx)/rx, (py-cy)/ry)
                v = suspicion * (1 - math.Min(d, 1))
            }
            f.Set(x, y, v)
        }
    }
    return heatmap.Normalized(f)
}

func minimal(src SourceImage) domain.VisualEvidence {
    ev := domain.VisualEvidence{
        ArtifactScores: map[string]domain.ArtifactScore{},
        AnomalyScores:  map[string]float64{},
    }
    if len(src.Data) > 0 && strings.HasPrefix(src.ContentType, "image/") {
        ev.SourceImage = heatmap.DataURI(src.ContentType, src.Data)
    }
    return ev
}

func (s *Synthesizer) logger() *slog.Logger {
    if s.log != nil {
        return s.log
    }
    return logging.New("evidence")
}

func clamp01(v float64) float64 {
    if math.IsNaN(v) || v < 0 {
        return 0
    }
    return math.Min(v, 1)
}
