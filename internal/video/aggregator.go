// Package video reduces per-frame verdicts to one temporally consistent video verdict.
package video

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "os"

    "golang.org/x/sync/errgroup"

    "deepscan/internal/domain"
    "deepscan/internal/logging"
    "deepscan/internal/ports"
)

const (
    DefaultMaxFrames     = 10
    DefaultFrameInterval = 2
    // SampleFrames bounds the frame verdicts retained on the video verdict.
    SampleFrames = 10
)

// FrameAnalyzer runs the single-frame pipeline.
type FrameAnalyzer func(ctx context.Context, frame ports.Frame) (domain.FrameVerdict, error)

type Aggregator struct {
    Frames        ports.FrameSource
    Analyze       FrameAnalyzer
    MaxFrames     int
    FrameInterval int
    // Parallel > 1 analyses frames concurrently; results stay ordered by frame number.
    Parallel int
    log      *slog.Logger
}

func New(frames ports.FrameSource, analyze FrameAnalyzer, maxFrames, interval, parallel int) *Aggregator {
    return &Aggregator{
        Frames:        frames,
        Analyze:       analyze,
        MaxFrames:     maxFrames,
        FrameInterval: interval,
        Parallel:      parallel,
        log:           logging.New("video"),
    }
}

// Aggregate samples the video, analyses each frame and reduces the results. Each frame's working file
// is removed as soon as its analysis finishes.
func (a *Aggregator) Aggregate(ctx context.Context, path string) (domain.VideoVerdict, error) {
    maxFrames, interval := a.MaxFrames, a.FrameInterval
    if maxFrames <= 0 { maxFrames = DefaultMaxFrames }
    if interval <= 0 { interval = DefaultFrameInterval }

    frames, release, err := a.Frames.Extract(ctx, path, maxFrames, interval)
    if release != nil {
        defer release()
    }
    if err != nil {
        return domain.VideoVerdict{}, fmt.Errorf("extract frames: %w", err)
    }
    if len(frames) == 0 {
        return domain.VideoVerdict{}, domain.ErrNoDecodableFrames
    }

    results := make([]domain.FrameVerdict, len(frames))
    g, gctx := errgroup.WithContext(ctx)
    g.SetLimit(max(1, a.Parallel))
    for i, f := range frames {
        i, f := i, f
        g.Go(func() error {
            v, err := a.analyzeOne(gctx, f)
            if err != nil {
                return err
            }
            results[i] = v
            return nil
        })
    }
    if err := g.Wait(); err != nil {
        return domain.VideoVerdict{}, err
    }
    return Reduce(results), nil
}

// analyzeOne isolates frame failures: a frame that cannot be analysed counts as UNKNOWN at 0.5.
// Only cancellation aborts the whole video.
func (a *Aggregator) analyzeOne(ctx context.Context, f ports.Frame) (domain.FrameVerdict, error) {
    defer removeQuietly(f.Path)
    v, err := a.Analyze(ctx, f)
    if err != nil {
        if ctxErr := ctx.Err(); ctxErr != nil {
            return domain.FrameVerdict{}, ctxErr
        }
        a.logger().Warn("frame analysis failed", "frame", f.Number, "err", err)
        v = domain.FrameVerdict{
            AnalysisVerdict: domain.AnalysisVerdict{
                Prediction:   domain.PredictionUnknown,
                Confidence:   0.5,
                MetricScores: map[string]float64{},
                Narrative:    err.Error(),
            },
        }
    }
    v.FrameNumber = f.Number
    v.Timestamp = f.Timestamp
    return v, nil
}

// Reduce applies majority vote (ties UNKNOWN), mean confidence, class ratios and the consistency score.
// frames must be ordered by frame number.
func Reduce(frames []domain.FrameVerdict) domain.VideoVerdict {
    v := domain.VideoVerdict{Prediction: domain.PredictionUnknown, FrameCount: len(frames)}
    if len(frames) == 0 {
        return v
    }
    preds := make([]domain.Prediction, len(frames))
    var sum float64
    for i, f := range frames {
        preds[i] = f.Prediction
        sum += f.Confidence
        switch f.Prediction {
        case domain.PredictionFake:
            v.FakeFrames++
        case domain.PredictionReal:
            v.RealFrames++
        }
    }
    n := float64(len(frames))
    switch {
    case v.FakeFrames > v.RealFrames:
        v.Prediction = domain.PredictionFake
    case v.RealFrames > v.FakeFrames:
        v.Prediction = domain.PredictionReal
    }
    v.Confidence = sum / n
    v.FakeRatio = float64(v.FakeFrames) / n
    v.RealRatio = float64(v.RealFrames) / n
    v.ConsistencyScore = Consistency(preds)
    v.Frames = append([]domain.FrameVerdict(nil), frames[:min(len(frames), SampleFrames)]...)
    return v
}

// Consistency is 1 - flips/(n-1) over adjacent predictions; 1.0 for fewer than two frames.
func Consistency(preds []domain.Prediction) float64 {
    if len(preds) < 2 {
        return 1.0
    }
    flips := 0
    for i := 1; i < len(preds); i++ {
        if preds[i] != preds[i-1] {
            flips++
        }
    }
    return 1 - float64(flips)/float64(len(preds)-1)
}

func removeQuietly(path string) {
    if path == "" {
        return
    }
    if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
        logging.New("video").Warn("remove frame file", "path", path, "err", err)
    }
}

func (a *Aggregator) logger() *slog.Logger {
    if a.log != nil {
        return a.log
    }
    return logging.New("video")
}
