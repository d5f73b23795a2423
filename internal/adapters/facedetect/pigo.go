// Package facedetect wraps the pigo pixel-intensity-comparison face detector.
package facedetect

import (
    "context"
    "fmt"
    "image"
    "os"

    pigo "github.com/esimov/pigo/core"

    "deepscan/internal/domain"
    "deepscan/internal/ports"
)

// Params tunes one cascade run. Zero MaxSize means the shorter image side.
type Params struct {
    MinSize     int
    MaxSize     int
    ShiftFactor float64
    ScaleFactor float64
    IoU         float64
    MinQuality  float32
}

var (
    // LandmarkParams is strict; candidates must also yield both pupils.
    LandmarkParams = Params{MinSize: 40, ShiftFactor: 0.1, ScaleFactor: 1.1, IoU: 0.2, MinQuality: 5}
    // CascadeParams is the plain fallback pass.
    CascadeParams = Params{MinSize: 30, ShiftFactor: 0.1, ScaleFactor: 1.1, IoU: 0.2, MinQuality: 3}
    // RescueParams is the loosest pass, used when a face is known to exist.
    RescueParams = Params{MinSize: 20, ShiftFactor: 0.05, ScaleFactor: 1.05, IoU: 0.3, MinQuality: 1}
)

type Detector struct {
    classifier *pigo.Pigo
    puploc     *pigo.PuplocCascade
    params     Params
}

// NewCascade builds a detector from a facefinder cascade.
func NewCascade(cascade []byte, p Params) (*Detector, error) {
    c, err := pigo.NewPigo().Unpack(cascade)
    if err != nil {
        return nil, fmt.Errorf("unpack face cascade: %w", err)
    }
    return &Detector{classifier: c, params: p}, nil
}

// NewLandmark builds a detector that keeps only faces where both pupils are localised.
func NewLandmark(cascade, puplocCascade []byte, p Params) (*Detector, error) {
    d, err := NewCascade(cascade, p)
    if err != nil { return nil, err }
    pl, err := pigo.NewPuplocCascade().UnpackCascade(puplocCascade)
    if err != nil {
        return nil, fmt.Errorf("unpack puploc cascade: %w", err)
    }
    d.puploc = pl
    return d, nil
}

// Set is the trio of detectors the reconciler uses.
type Set struct {
    Landmark   *Detector
    Cascade    *Detector
    LastResort *Detector
}

// Detectors returns the set as reconciler inputs, with absent detectors as untyped nils.
func (s Set) Detectors() (landmark, cascade, lastResort ports.FaceDetector) {
    if s.Landmark != nil { landmark = s.Landmark }
    if s.Cascade != nil { cascade = s.Cascade }
    if s.LastResort != nil { lastResort = s.LastResort }
    return landmark, cascade, lastResort
}

// Load reads cascade files from disk. A missing puploc file leaves Landmark nil.
func Load(facePath, puplocPath string) (Set, error) {
    face, err := os.ReadFile(facePath)
    if err != nil {
        return Set{}, fmt.Errorf("read face cascade: %w", err)
    }
    var s Set
    if s.Cascade, err = NewCascade(face, CascadeParams); err != nil { return Set{}, err }
    if s.LastResort, err = NewCascade(face, RescueParams); err != nil { return Set{}, err }

    pup, err := os.ReadFile(puplocPath)
    if err != nil {
        return s, nil
    }
    if s.Landmark, err = NewLandmark(face, pup, LandmarkParams); err != nil { return Set{}, err }
    return s, nil
}

func (d *Detector) Detect(ctx context.Context, img image.Image) ([]domain.FaceRegion, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    b := img.Bounds()
    rows, cols := b.Dy(), b.Dx()
    if rows == 0 || cols == 0 {
        return nil, nil
    }
    ip := pigo.ImageParams{
        Pixels: pigo.RgbToGrayscale(img),
        Rows:   rows,
        Cols:   cols,
        Dim:    cols,
    }
    maxSize := d.params.MaxSize
    if maxSize <= 0 {
        maxSize = min(rows, cols)
    }
    dets := d.classifier.RunCascade(pigo.CascadeParams{
        MinSize:     d.params.MinSize,
        MaxSize:     maxSize,
        ShiftFactor: d.params.ShiftFactor,
        ScaleFactor: d.params.ScaleFactor,
        ImageParams: ip,
    }, 0.0)
    dets = d.classifier.ClusterDetections(dets, d.params.IoU)

    var out []domain.FaceRegion
    for _, det := range dets {
        if det.Q < d.params.MinQuality {
            continue
        }
        if d.puploc != nil && !d.hasPupils(det, ip) {
            continue
        }
        if r := toRegion(det.Row, det.Col, det.Scale, cols, rows); r.Valid() {
            out = append(out, *r)
        }
    }
    return out, nil
}

func (d *Detector) hasPupils(det pigo.Detection, ip pigo.ImageParams) bool {
    scale := float32(det.Scale) * 0.25
    row := det.Row - int(0.075*float32(det.Scale))
    left := d.puploc.RunDetector(pigo.Puploc{
        Row: row, Col: det.Col - int(0.175*float32(det.Scale)), Scale: scale, Perturbs: 63,
    }, ip, 0.0, false)
    right := d.puploc.RunDetector(pigo.Puploc{
        Row: row, Col: det.Col + int(0.175*float32(det.Scale)), Scale: scale, Perturbs: 63,
    }, ip, 0.0, false)
    return found(left) && found(right)
}

func found(p *pigo.Puploc) bool {
    return p != nil && p.Row > 0 && p.Col > 0
}

// toRegion converts a centre/scale detection to a box clipped to the image.
func toRegion(row, col, scale, width, height int) *domain.FaceRegion {
    x0, y0 := col-scale/2, row-scale/2
    x1, y1 := x0+scale, y0+scale
    x0, y0 = max(x0, 0), max(y0, 0)
    x1, y1 = min(x1, width), min(y1, height)
    return &domain.FaceRegion{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}
