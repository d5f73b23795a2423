package domain

// Tagged oracle detail structures. Only fields the core reads are carried; missing
// values stay nil so business logic never branches on raw map presence.

// FaceHint is the face information the oracle side reported, if any.
type FaceHint struct {
    Detected   bool
    Confidence *float64
    Region     *FaceRegion
}

// SpatialMap is a per-model attention map in flat row-major form plus [height, width] shape.
type SpatialMap struct {
    Model      string
    Values     []float64
    Shape      [2]int
    Prediction string
}

type ImageDetailV1 struct {
    Face               FaceHint
    BorderQuality      *float64
    EdgeUniformity     *float64
    TextureConsistency *float64
    LightingUniformity *float64
    FacialSymmetry     *float64
    Artifacts          []string
    SpatialMaps        []SpatialMap
}

// QualityMetrics returns the available quality scores in a fixed order.
func (d ImageDetailV1) QualityMetrics() []float64 {
    var out []float64
    for _, p := range []*float64{d.BorderQuality, d.EdgeUniformity, d.LightingUniformity, d.TextureConsistency} {
        if p != nil {
            out = append(out, *p)
        }
    }
    return out
}

type VideoDetailV1 struct {
    FrameNumber int
    Timestamp   float64
    Image       ImageDetailV1
}

type AudioDetailV1 struct {
    Naturalness  *float64
    Prosody      *float64
    VoiceQuality *float64
    Coherence    *float64
    Pauses       *float64
    AudioQuality *float64
    Indicators   []string
}
