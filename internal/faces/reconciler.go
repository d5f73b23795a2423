// Package faces merges face locations reported by the oracle with local detectors.
package faces

import (
    "context"
    "image"
    "log/slog"

    "deepscan/internal/domain"
    "deepscan/internal/logging"
    "deepscan/internal/ports"
)

// Source names where a reconciled region came from.
type Source string

const (
    SourceNone     Source = ""
    SourceHint     Source = "hint"
    SourceLandmark Source = "landmark"
    SourceCascade  Source = "cascade"
    SourceRescue   Source = "rescue"
)

type Result struct {
    Detected   bool
    Region     *domain.FaceRegion
    Confidence float64
    Source     Source
}

// Evidence converts the result to its presentation form.
func (r Result) Evidence() domain.FaceEvidence {
    return domain.FaceEvidence{Detected: r.Detected, Confidence: r.Confidence, Region: r.Region}
}

// Reconciler picks one authoritative face box. Any detector may be nil.
// LastResort runs only when a face is reported but no box was found; it defaults to Cascade.
type Reconciler struct {
    Landmark   ports.FaceDetector
    Cascade    ports.FaceDetector
    LastResort ports.FaceDetector
    log        *slog.Logger
}

func New(landmark, cascade, lastResort ports.FaceDetector) *Reconciler {
    return &Reconciler{Landmark: landmark, Cascade: cascade, LastResort: lastResort, log: logging.New("faces")}
}

// Reconcile prefers the hint region, then the landmark detector, then the cascade detector, taking the
// largest candidate from each. A hint box counts as a face only when the hint flags one; otherwise a
// detector hit is required. img may be nil when only the hint is available.
func (r *Reconciler) Reconcile(ctx context.Context, hint domain.FaceHint, img image.Image) Result {
    res := Result{Detected: hint.Detected}

    if hint.Region.Valid() {
        reg := *hint.Region
        res.Region, res.Source = &reg, SourceHint
    }
    if img != nil && (res.Region == nil || !hint.Detected) {
        if reg, src := r.detect(ctx, img); reg != nil {
            res.Detected = true
            if res.Region == nil {
                res.Region, res.Source = reg, src
            }
        }
    }
    if !res.Detected {
        res.Region, res.Source = nil, SourceNone
    }

    if res.Detected && res.Region == nil {
        r.logger().Error("face reported without a bounding box, trying last-resort detection")
        last := r.LastResort
        if last == nil {
            last = r.Cascade
        }
        if img != nil {
            if reg := r.largest(ctx, last, img, SourceRescue); reg != nil {
                res.Region, res.Source = reg, SourceRescue
            }
        }
        if res.Region == nil {
            r.logger().Error("face reported but no bounding box could be obtained")
        }
    }

    switch {
    case hint.Detected && hint.Confidence != nil:
        res.Confidence = *hint.Confidence
    case res.Region != nil:
        res.Confidence = 1.0
    }
    if !res.Detected {
        res.Confidence = 0
    }
    return res
}

func (r *Reconciler) detect(ctx context.Context, img image.Image) (*domain.FaceRegion, Source) {
    if reg := r.largest(ctx, r.Landmark, img, SourceLandmark); reg != nil {
        return reg, SourceLandmark
    }
    if reg := r.largest(ctx, r.Cascade, img, SourceCascade); reg != nil {
        return reg, SourceCascade
    }
    return nil, SourceNone
}

func (r *Reconciler) largest(ctx context.Context, d ports.FaceDetector, img image.Image, src Source) *domain.FaceRegion {
    if d == nil {
        return nil
    }
    candidates, err := d.Detect(ctx, img)
    if err != nil {
        r.logger().Warn("face detector failed", "detector", string(src), "err", err)
        return nil
    }
    var best *domain.FaceRegion
    for i := range candidates {
        c := candidates[i]
        if !c.Valid() {
            continue
        }
        if best == nil || c.Area() > best.Area() {
            best = &c
        }
    }
    return best
}

func (r *Reconciler) logger() *slog.Logger {
    if r.log != nil {
        return r.log
    }
    return logging.New("faces")
}
