package evidence

import "deepscan/internal/domain"

// MaxFrameSamples bounds the per-frame entries kept for display.
const MaxFrameSamples = 10

// SynthesizeVideo summarises a video verdict for display: a bounded frame sample, temporal statistics
// and two traffic-light indicators.
func SynthesizeVideo(v domain.VideoVerdict) domain.VideoEvidence {
    ev := domain.VideoEvidence{
        TotalFrames:      v.FrameCount,
        FakeFrames:       v.FakeFrames,
        RealFrames:       v.RealFrames,
        ConsistencyScore: v.ConsistencyScore,
        Frames:           []domain.FrameEvidence{},
    }

    var sum float64
    for _, f := range v.Frames {
        sum += f.Confidence
    }
    if n := float64(len(v.Frames)); n > 0 {
        mean := sum / n
        var sq float64
        for _, f := range v.Frames {
            sq += (f.Confidence - mean) * (f.Confidence - mean)
        }
        ev.AverageConfidence = mean
        ev.ConfidenceVariance = sq / n
    }

    for i, f := range v.Frames {
        if i == MaxFrameSamples {
            break
        }
        artifacts := map[string]float64{}
        for _, name := range []string{"border_quality", "edge_uniformity", "lighting_consistency"} {
            if s, ok := f.Metric(name); ok {
                artifacts[name] = s
            }
        }
        ev.Frames = append(ev.Frames, domain.FrameEvidence{
            FrameNumber: f.FrameNumber,
            Timestamp:   f.Timestamp,
            Prediction:  f.Prediction,
            Confidence:  f.Confidence,
            Artifacts:   artifacts,
        })
    }

    ev.Indicators = []domain.Indicator{
        {
            Type:        "overall_score",
            Intensity:   v.Confidence,
            Color:       TrafficLight(v.Confidence),
            Description: "Overall video score",
        },
        {
            Type:        "frame_consistency",
            Intensity:   v.ConsistencyScore,
            Color:       TrafficLight(v.ConsistencyScore),
            Description: "Frame consistency analysis",
        },
    }
    return ev
}
