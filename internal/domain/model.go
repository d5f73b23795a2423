package domain

import "time"

// Core domain models. HTTP shapes live in internal/api; keep these decoupled.

type Modality string

const (
    ModalityImage   Modality = "image"
    ModalityVideo   Modality = "video"
    ModalityAudio   Modality = "audio"
    ModalityUnknown Modality = "unknown"
)

type Status string

const (
    StatusUploaded   Status = "uploaded"
    StatusProcessing Status = "processing"
    StatusCompleted  Status = "completed"
    StatusError      Status = "error"
    // StatusDeleted marks metadata whose media was removed by the stale-file sweep.
    StatusDeleted Status = "deleted"
)

// Terminal reports whether no further analysis transition is expected.
func (s Status) Terminal() bool {
    return s == StatusCompleted || s == StatusError || s == StatusDeleted
}

type Prediction string

const (
    PredictionReal    Prediction = "REAL"
    PredictionFake    Prediction = "FAKE"
    PredictionUnknown Prediction = "UNKNOWN"
)

// MediaFile is the only durably persisted record. Status is the single mutable field.
type MediaFile struct {
    ID          string
    OwnerID     string
    Filename    string
    Modality    Modality
    ContentType string
    Size        int64
    StoragePath string
    Status      Status
    CreatedAt   time.Time
    UpdatedAt   time.Time
}

// AnalysisVerdict is the canonical result of one oracle call.
type AnalysisVerdict struct {
    Prediction    Prediction         `json:"prediction"`
    Confidence    float64            `json:"confidence"`
    MetricScores  map[string]float64 `json:"metric_scores"`
    Narrative     string             `json:"narrative"`
    RawIndicators []string           `json:"raw_indicators"`
}

// Metric returns the named score and whether the oracle reported it.
func (v AnalysisVerdict) Metric(name string) (float64, bool) {
    s, ok := v.MetricScores[name]
    return s, ok
}

// FaceRegion is a box in source-image pixel space.
type FaceRegion struct {
    X      int `json:"x"`
    Y      int `json:"y"`
    Width  int `json:"width"`
    Height int `json:"height"`
}

// Valid reports whether the region has a positive area. Invalid regions are treated as absent.
func (r *FaceRegion) Valid() bool {
    return r != nil && r.Width > 0 && r.Height > 0
}

func (r FaceRegion) Area() int { return r.Width * r.Height }

type FaceEvidence struct {
    Detected   bool        `json:"detected"`
    Confidence float64     `json:"confidence"`
    Region     *FaceRegion `json:"bounding_box"`
}

type ArtifactScore struct {
    Score float64 `json:"score"`
    Color string  `json:"color"`
}

type ArtifactRecord struct {
    Type        string      `json:"type"`
    Score       float64     `json:"score"`
    Coordinates *FaceRegion `json:"coordinates"`
    Color       string      `json:"color"`
    Description string      `json:"description"`
}

const (
    HeatmapGradCAM   = "gradcam"
    HeatmapSynthetic = "synthetic"
)

// Heatmap carries both the raw 8-bit field (row-major, Shape = [height, width]) and a ready-to-display image.
type Heatmap struct {
    Kind        string  `json:"type"`
    Model       string  `json:"model"`
    Synthetic   bool    `json:"synthetic"`
    Prediction  string  `json:"prediction,omitempty"`
    Data        []uint8 `json:"heatmap_data"`
    Shape       [2]int  `json:"shape"`
    Image       string  `json:"image_data"`
    Description string  `json:"description"`
}

// VisualEvidence is derived data. It is regenerated from the source image and oracle details whenever
// it is missing or inconsistent, and is never the source of truth.
type VisualEvidence struct {
    Face           FaceEvidence             `json:"face_detection"`
    ArtifactScores map[string]ArtifactScore `json:"artifact_scores"`
    Artifacts      []ArtifactRecord         `json:"artifacts"`
    AnomalyScores  map[string]float64       `json:"anomaly_scores"`
    Heatmaps       []Heatmap                `json:"heatmaps"`
    SourceImage    string                   `json:"image_data,omitempty"`
}

// Consistent is false when a face is flagged without a usable box.
func (e *VisualEvidence) Consistent() bool {
    if e == nil {
        return false
    }
    return !e.Face.Detected || e.Face.Region.Valid()
}

type FrameVerdict struct {
    AnalysisVerdict
    FrameNumber int     `json:"frame_number"`
    Timestamp   float64 `json:"timestamp"`
}

type VideoVerdict struct {
    Prediction       Prediction     `json:"prediction"`
    Confidence       float64        `json:"confidence"`
    FakeRatio        float64        `json:"fake_ratio"`
    RealRatio        float64        `json:"real_ratio"`
    ConsistencyScore float64        `json:"consistency_score"`
    FrameCount       int            `json:"frame_count"`
    FakeFrames       int            `json:"fake_frames"`
    RealFrames       int            `json:"real_frames"`
    Frames           []FrameVerdict `json:"frames"`
}

type Indicator struct {
    Type        string  `json:"type"`
    Intensity   float64 `json:"intensity"`
    Color       string  `json:"color"`
    Description string  `json:"description"`
}

type FrameEvidence struct {
    FrameNumber int                `json:"frame_number"`
    Timestamp   float64            `json:"timestamp"`
    Prediction  Prediction         `json:"prediction"`
    Confidence  float64            `json:"confidence"`
    Artifacts   map[string]float64 `json:"artifacts"`
}

// VideoEvidence is the presentation bundle for video verdicts.
type VideoEvidence struct {
    TotalFrames        int             `json:"total_frames"`
    FakeFrames         int             `json:"fake_frames"`
    RealFrames         int             `json:"real_frames"`
    ConsistencyScore   float64         `json:"consistency_score"`
    ConfidenceVariance float64         `json:"confidence_variance"`
    AverageConfidence  float64         `json:"average_confidence"`
    Frames             []FrameEvidence `json:"frame_results"`
    Indicators         []Indicator     `json:"heatmaps"`
}

// AnalysisSession lives only in memory and does not survive a restart.
type AnalysisSession struct {
    File          MediaFile
    Verdict       *AnalysisVerdict
    Video         *VideoVerdict
    Details       *ImageDetailV1
    Evidence      *VisualEvidence
    VideoEvidence *VideoEvidence
    Status        Status
    Error         string
    Timestamp     time.Time
}
