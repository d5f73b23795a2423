package ports

import (
    "context"
    "image"
    "io"

    "deepscan/internal/domain"
)

// Media is the payload handed to the oracle.
type Media struct {
    Modality    domain.Modality
    ContentType string
    Data        []byte
}

// Oracle is the external classification capability. It returns free-form text that should,
// but need not, contain a JSON object.
type Oracle interface {
    Classify(ctx context.Context, media Media, prompt string) (string, error)
}

// FaceDetector returns candidate face boxes in image pixel space.
type FaceDetector interface {
    Detect(ctx context.Context, img image.Image) ([]domain.FaceRegion, error)
}

// Frame is one sampled video frame written to a working file.
type Frame struct {
    Number    int
    Timestamp float64
    Path      string
}

// FrameSource samples every interval-th decoded frame, up to max frames. The returned release
// func removes any working files still on disk.
type FrameSource interface {
    Extract(ctx context.Context, videoPath string, max, interval int) (frames []Frame, release func(), err error)
}

// MediaStorage keeps uploaded media. Remove on a missing path is a no-op.
type MediaStorage interface {
    Save(ctx context.Context, name string, r io.Reader, limit int64) (path string, size int64, err error)
    Read(path string) ([]byte, error)
    // Open fails with domain.ErrNotFound when nothing is stored at path.
    Open(path string) (io.ReadSeekCloser, error)
    Exists(path string) bool
    Remove(path string) error
    ContentType(path string) string
}
