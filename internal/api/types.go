// Package api holds the HTTP shapes described by api/openapi.yaml and the chi wrapper that binds
// their parameters.
package api

import (
    "time"

    openapi_types "github.com/oapi-codegen/runtime/types"
)

type Health struct {
    Sessions *int   `json:"sessions,omitempty"`
    Status   string `json:"status"`
}

type FileInfo struct {
    FileId      openapi_types.UUID `json:"file_id"`
    Filename    string             `json:"filename"`
    FileType    string             `json:"file_type"`
    ContentType string             `json:"content_type,omitempty"`
    FileSize    int64              `json:"file_size"`
    UploadTime  time.Time          `json:"upload_time"`
    Status      string             `json:"status,omitempty"`
}

type AnalysisAck struct {
    Message string             `json:"message"`
    FileId  openapi_types.UUID `json:"file_id"`
    Status  string             `json:"status"`
}

// AnalysisPayload is the verdict plus whichever evidence bundle fits the modality.
type AnalysisPayload struct {
    Prediction     string             `json:"prediction"`
    Confidence     float64            `json:"confidence"`
    MetricScores   map[string]float64 `json:"metric_scores,omitempty"`
    Reasoning      string             `json:"reasoning,omitempty"`
    RawIndicators  []string           `json:"raw_indicators,omitempty"`
    VisualEvidence interface{}        `json:"visual_evidence,omitempty"`
    VideoAnalysis  interface{}        `json:"video_analysis,omitempty"`
    VideoEvidence  interface{}        `json:"video_evidence,omitempty"`
}

type AnalysisResult struct {
    FileId    openapi_types.UUID `json:"file_id"`
    Status    string             `json:"status"`
    Result    *AnalysisPayload   `json:"result,omitempty"`
    Error     *string            `json:"error,omitempty"`
    Timestamp time.Time          `json:"timestamp"`
}

type FileSummary struct {
    FileInfo
    Prediction *string  `json:"prediction,omitempty"`
    Confidence *float64 `json:"confidence,omitempty"`
}

type FileList struct {
    Files []FileSummary `json:"files"`
}

type Message struct {
    Message string `json:"message"`
}

type CleanupResult struct {
    Message string `json:"message"`
    Removed int    `json:"removed"`
}

type ErrorBody struct {
    Code      string `json:"code"`
    Message   string `json:"message"`
    RequestId string `json:"request_id,omitempty"`
}

type Error struct {
    Error ErrorBody `json:"error"`
}

// PostAnalyzeParams defines parameters for PostAnalyze.
type PostAnalyzeParams struct {
    Wait *bool `form:"wait,omitempty" json:"wait,omitempty"`
    // Timeout is in seconds and only applies when Wait is true.
    Timeout *int `form:"timeout,omitempty" json:"timeout,omitempty"`
}

// PostCleanupParams defines parameters for PostCleanup.
type PostCleanupParams struct {
    MaxAgeHours *int `form:"max_age_hours,omitempty" json:"max_age_hours,omitempty"`
}
