package analysis

import (
    "bytes"
    "context"
    "fmt"
    "image"
    "runtime/debug"

    "github.com/disintegration/imaging"

    "deepscan/internal/domain"
    "deepscan/internal/evidence"
    "deepscan/internal/heatmap"
    "deepscan/internal/normalize"
    "deepscan/internal/ports"
)

// outcome is what a modality pipeline attaches to the session.
type outcome struct {
    verdict       domain.AnalysisVerdict
    details       *domain.ImageDetailV1
    evidence      *domain.VisualEvidence
    video         *domain.VideoVerdict
    videoEvidence *domain.VideoEvidence
}

// Process runs the pipeline for one file and records the outcome. Concurrent calls for the same file share
// a single run. Both success and failure schedule the media for deferred deletion.
func (s *Service) Process(ctx context.Context, id string) error {
    s.track(id)
    defer s.release(id)
    _, err, shared := s.flights.Do(id, func() (any, error) {
        return nil, s.process(ctx, id)
    })
    if shared {
        s.log.Debug("joined in-flight analysis", "file_id", id)
    }
    return err
}

func (s *Service) process(ctx context.Context, id string) error {
    f, err := s.deps.Files.Get(ctx, id)
    if err != nil {
        sess, ok := s.deps.Sessions.Get(ctx, id)
        if !ok {
            return fmt.Errorf("process %s: %w", id, err)
        }
        f = sess.File
    }
    s.log.Info("analysis started", "file_id", id, "modality", f.Modality)

    out, err := s.run(ctx, f)
    now := s.deps.Now()
    status := domain.StatusCompleted
    if err != nil {
        status = domain.StatusError
        s.log.Error("analysis failed", "file_id", id, "err", err)
    }
    _, live := s.deps.Sessions.Update(ctx, id, func(sess *domain.AnalysisSession) {
        sess.Status = status
        sess.Timestamp = now
        sess.File.Status = status
        if err != nil {
            sess.Error = err.Error()
            return
        }
        v := out.verdict
        sess.Error = ""
        sess.Verdict = &v
        sess.Details = out.details
        sess.Evidence = out.evidence
        sess.Video = out.video
        sess.VideoEvidence = out.videoEvidence
    })
    if !live {
        s.log.Info("file deleted during analysis, discarding result", "file_id", id)
        return err
    }
    if uerr := s.deps.Files.UpdateStatus(context.WithoutCancel(ctx), id, status); uerr != nil {
        s.log.Warn("update status", "file_id", id, "status", status, "err", uerr)
    }
    if s.deps.Cleanup != nil {
        s.deps.Cleanup.Schedule(id, f.StoragePath)
    }
    if err == nil {
        s.log.Info("analysis completed", "file_id", id, "prediction", out.verdict.Prediction, "confidence", out.verdict.Confidence)
    }
    return err
}

// run isolates panics so one bad file cannot take down the worker.
func (s *Service) run(ctx context.Context, f domain.MediaFile) (out outcome, err error) {
    defer func() {
        if r := recover(); r != nil {
            s.log.Error("analysis panicked", "file_id", f.ID, "panic", r, "stack", string(debug.Stack()))
            err = fmt.Errorf("analysis panicked: %v", r)
        }
    }()
    switch f.Modality {
    case domain.ModalityImage:
        return s.analyzeImage(ctx, f)
    case domain.ModalityVideo:
        return s.analyzeVideo(ctx, f)
    case domain.ModalityAudio:
        return s.analyzeAudio(ctx, f)
    default:
        return out, fmt.Errorf("%w: %s", domain.ErrUnsupportedMedia, f.Modality)
    }
}

func (s *Service) analyzeImage(ctx context.Context, f domain.MediaFile) (outcome, error) {
    data, err := s.deps.Storage.Read(f.StoragePath)
    if err != nil {
        return outcome{}, fmt.Errorf("read media: %w", err)
    }
    img, err := heatmap.DecodeImage(data)
    if err != nil {
        return outcome{}, fmt.Errorf("%w: %v", domain.ErrCorruptMedia, err)
    }
    media, err := oracleImage(img, data, f.ContentType)
    if err != nil {
        return outcome{}, err
    }
    raw, err := s.deps.Oracle.Classify(ctx, media, ImagePrompt)
    if err != nil {
        return outcome{}, err
    }
    v, obj := normalize.Decode(raw)
    detail := normalize.ImageDetail(obj, v)

    face := s.deps.Faces.Reconcile(ctx, detail.Face, img)
    ev := s.deps.Evidence.Synthesize(detail, face.Evidence(), evidence.SourceImage{Image: img, Data: data, ContentType: f.ContentType})
    return outcome{verdict: v, details: &detail, evidence: &ev}, nil
}

// imageEvidence rebuilds the bundle from stored details and the source bytes.
func (s *Service) imageEvidence(ctx context.Context, detail domain.ImageDetailV1, data []byte, contentType string) (domain.VisualEvidence, error) {
    img, err := heatmap.DecodeImage(data)
    if err != nil {
        return domain.VisualEvidence{}, fmt.Errorf("%w: %v", domain.ErrCorruptMedia, err)
    }
    face := s.deps.Faces.Reconcile(ctx, detail.Face, img)
    return s.deps.Evidence.Synthesize(detail, face.Evidence(), evidence.SourceImage{Image: img, Data: data, ContentType: contentType}), nil
}

func (s *Service) analyzeFrame(ctx context.Context, fr ports.Frame) (domain.FrameVerdict, error) {
    data, err := s.deps.Storage.Read(fr.Path)
    if err != nil {
        return domain.FrameVerdict{}, fmt.Errorf("read frame: %w", err)
    }
    raw, err := s.deps.Oracle.Classify(ctx, ports.Media{Modality: domain.ModalityImage, ContentType: "image/jpeg", Data: data}, FramePrompt)
    if err != nil {
        return domain.FrameVerdict{}, err
    }
    v, obj := normalize.Decode(raw)
    // Frame metrics follow the image detail mapping so nested artifact scores are honoured.
    d := normalize.VideoDetail(fr.Number, fr.Timestamp, obj, v)
    fillMetric(v.MetricScores, normalize.MetricBorderQuality, d.Image.BorderQuality)
    fillMetric(v.MetricScores, normalize.MetricEdgeUniformity, d.Image.EdgeUniformity)
    fillMetric(v.MetricScores, normalize.MetricLightingConsistency, d.Image.LightingUniformity)
    return domain.FrameVerdict{AnalysisVerdict: v, FrameNumber: d.FrameNumber, Timestamp: d.Timestamp}, nil
}

func fillMetric(m map[string]float64, name string, p *float64) {
    if p == nil || m == nil {
        return
    }
    if _, ok := m[name]; !ok {
        m[name] = *p
    }
}

func (s *Service) analyzeVideo(ctx context.Context, f domain.MediaFile) (outcome, error) {
    if s.deps.Frames == nil {
        return outcome{}, fmt.Errorf("video analysis unavailable: no frame source configured")
    }
    vv, err := s.video.Aggregate(ctx, f.StoragePath)
    if err != nil {
        return outcome{}, err
    }
    ve := evidence.SynthesizeVideo(vv)
    v := domain.AnalysisVerdict{
        Prediction: vv.Prediction,
        Confidence: vv.Confidence,
        MetricScores: map[string]float64{
            "fake_ratio":        vv.FakeRatio,
            "real_ratio":        vv.RealRatio,
            "consistency_score": vv.ConsistencyScore,
        },
        Narrative: fmt.Sprintf("%d of %d sampled frames classified FAKE, %d REAL; frame-to-frame consistency %.2f.",
            vv.FakeFrames, vv.FrameCount, vv.RealFrames, vv.ConsistencyScore),
    }
    return outcome{verdict: v, video: &vv, videoEvidence: &ve}, nil
}

func (s *Service) analyzeAudio(ctx context.Context, f domain.MediaFile) (outcome, error) {
    data, err := s.deps.Storage.Read(f.StoragePath)
    if err != nil {
        return outcome{}, fmt.Errorf("read media: %w", err)
    }
    if len(data) == 0 {
        return outcome{}, fmt.Errorf("%w: empty audio file", domain.ErrCorruptMedia)
    }
    raw, err := s.deps.Oracle.Classify(ctx, ports.Media{Modality: domain.ModalityAudio, ContentType: f.ContentType, Data: data}, AudioPrompt)
    if err != nil {
        return outcome{}, err
    }
    v := normalize.Normalize(raw)
    scores := make(map[string]float64, len(v.MetricScores)+4)
    for k, x := range v.MetricScores {
        scores[k] = x
    }
    for k, x := range normalize.AudioIndicators(normalize.AudioDetail(v)) {
        scores[k] = x
    }
    v.MetricScores = scores
    return outcome{verdict: v}, nil
}

// oracleImage passes JPEG and PNG through and re-encodes other formats as PNG.
func oracleImage(img image.Image, data []byte, contentType string) (ports.Media, error) {
    if contentType == "image/jpeg" || contentType == "image/png" {
        return ports.Media{Modality: domain.ModalityImage, ContentType: contentType, Data: data}, nil
    }
    var buf bytes.Buffer
    if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
        return ports.Media{}, fmt.Errorf("re-encode image: %w", err)
    }
    return ports.Media{Modality: domain.ModalityImage, ContentType: "image/png", Data: buf.Bytes()}, nil
}
