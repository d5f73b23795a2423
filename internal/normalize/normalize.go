// Package normalize turns free-form oracle responses into canonical verdicts.
package normalize

import (
    "fmt"
    "regexp"
    "strconv"
    "strings"

    "deepscan/internal/domain"
    "deepscan/internal/logging"
)

const defaultConfidence = 0.5

// Metric names recognised in oracle output.
const (
    MetricBorderQuality       = "border_quality"
    MetricEdgeUniformity      = "edge_uniformity"
    MetricLightingConsistency = "lighting_consistency"
    MetricBrightnessUniform   = "brightness_uniformity"
    MetricTextureConsistency  = "texture_consistency"
    MetricSkinTexture         = "skin_texture_score"
    MetricFacialSymmetry      = "facial_symmetry_score"
    MetricNaturalness         = "naturalness_score"
    MetricProsody             = "prosody_consistency"
    MetricVoiceQuality        = "voice_quality"
    MetricCoherence           = "linguistic_coherence"
    MetricPauses              = "pause_patterns"
    MetricAudioQuality        = "audio_quality_score"
)

var knownMetrics = []string{
    MetricBorderQuality, MetricEdgeUniformity, MetricLightingConsistency, MetricBrightnessUniform,
    MetricTextureConsistency, MetricSkinTexture, MetricFacialSymmetry,
    MetricNaturalness, MetricProsody, MetricVoiceQuality, MetricCoherence, MetricPauses, MetricAudioQuality,
}

var (
    confidenceRe = regexp.MustCompile(`(?i)confidence[:\s]+([0-9.]+)`)
    metricRes    = map[string]*regexp.Regexp{
        MetricBorderQuality:       regexp.MustCompile(`(?i)border[_\s]?quality[:\s]+([0-9.]+)`),
        MetricEdgeUniformity:      regexp.MustCompile(`(?i)edge[_\s]?uniformity[:\s]+([0-9.]+)`),
        MetricLightingConsistency: regexp.MustCompile(`(?i)lighting[_\s]?consistency[:\s]+([0-9.]+)`),
        MetricTextureConsistency:  regexp.MustCompile(`(?i)texture[_\s]?consistency[:\s]+([0-9.]+)`),
        MetricSkinTexture:         regexp.MustCompile(`(?i)skin[_\s]?texture(?:[_\s]?score)?[:\s]+([0-9.]+)`),
        MetricFacialSymmetry:      regexp.MustCompile(`(?i)facial[_\s]?symmetry(?:[_\s]?score)?[:\s]+([0-9.]+)`),
        MetricNaturalness:         regexp.MustCompile(`(?i)naturalness(?:[_\s]?score)?[:\s]+([0-9.]+)`),
        MetricProsody:             regexp.MustCompile(`(?i)prosody(?:[_\s]?consistency)?[:\s]+([0-9.]+)`),
        MetricVoiceQuality:        regexp.MustCompile(`(?i)voice[_\s]?quality[:\s]+([0-9.]+)`),
        MetricCoherence:           regexp.MustCompile(`(?i)coherence[:\s]+([0-9.]+)`),
        MetricPauses:              regexp.MustCompile(`(?i)pause(?:[_\s]?patterns)?[:\s]+([0-9.]+)`),
        MetricAudioQuality:        regexp.MustCompile(`(?i)audio[_\s]?quality(?:[_\s]?score)?[:\s]+([0-9.]+)`),
    }
)

var (
    fakeWords = []string{"FAKE", "DEEPFAKE", "SYNTHETIC", "AI-GENERATED"}
    realWords = []string{"REAL", "AUTHENTIC", "GENUINE", "NATURAL"}
)

var parse = FirstSuccess(DefaultStrategies...)

// Normalize never fails. A response nothing can be read from yields UNKNOWN at 0.5 with the raw text as narrative.
func Normalize(raw string) domain.AnalysisVerdict {
    v, _ := Decode(raw)
    return v
}

// Decode is Normalize plus the parsed object, nil when only the lexical fallback matched.
func Decode(raw string) (domain.AnalysisVerdict, map[string]any) {
    if obj, ok := parse(raw); ok {
        return fromObject(obj), obj
    }
    logging.New("normalize").Warn("oracle response is not JSON, using lexical fallback", "length", len(raw))
    return lexical(raw), nil
}

func fromObject(obj map[string]any) domain.AnalysisVerdict {
    conf := defaultConfidence
    if c, ok := number(obj["confidence"]); ok {
        conf = scale(c)
    }

    predText := ""
    if p, ok := obj["prediction"]; ok {
        predText = fmt.Sprint(p)
    }

    scores := map[string]float64{}
    for _, name := range knownMetrics {
        if s, ok := number(obj[name]); ok {
            scores[name] = scale(s)
        }
    }

    return domain.AnalysisVerdict{
        Prediction:    classify(predText, conf),
        Confidence:    conf,
        MetricScores:  scores,
        Narrative:     firstString(obj, "reasoning", "narrative", "detailed_analysis"),
        RawIndicators: firstStrings(obj, "indicators", "artifacts_detected", "artifacts"),
    }
}

// classify maps the oracle's prediction label. A label that names both families or neither is
// settled by confidence.
func classify(label string, conf float64) domain.Prediction {
    up := strings.ToUpper(label)
    isFake := containsAny(up, fakeWords[:3])
    isReal := containsAny(up, realWords[:3])
    switch {
    case isFake && !isReal:
        return domain.PredictionFake
    case isReal && !isFake:
        return domain.PredictionReal
    case conf > 0.6:
        return domain.PredictionFake
    case conf < 0.4:
        return domain.PredictionReal
    default:
        return domain.PredictionUnknown
    }
}

func lexical(raw string) domain.AnalysisVerdict {
    up := strings.ToUpper(raw)
    pred := domain.PredictionUnknown
    if containsAny(up, fakeWords) {
        pred = domain.PredictionFake
    } else if containsAny(up, realWords) {
        pred = domain.PredictionReal
    }

    conf := defaultConfidence
    if m := confidenceRe.FindStringSubmatch(raw); m != nil {
        if c, err := strconv.ParseFloat(m[1], 64); err == nil {
            conf = scale(c)
        }
    }

    scores := map[string]float64{}
    for name, re := range metricRes {
        m := re.FindStringSubmatch(raw)
        if m == nil { continue }
        if s, err := strconv.ParseFloat(m[1], 64); err == nil {
            scores[name] = scale(s)
        }
    }

    return domain.AnalysisVerdict{
        Prediction:   pred,
        Confidence:   conf,
        MetricScores: scores,
        Narrative:    raw,
    }
}

// scale treats values above 1 as percentages and clamps to [0,1].
func scale(v float64) float64 {
    if v > 1 {
        v /= 100
    }
    return Clamp01(v)
}

// Clamp01 limits v to [0,1]. NaN becomes 0.
func Clamp01(v float64) float64 {
    if v != v || v < 0 { return 0 }
    if v > 1 { return 1 }
    return v
}

func number(v any) (float64, bool) {
    switch n := v.(type) {
    case float64:
        return n, true
    case int:
        return float64(n), true
    case string:
        s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(n), "%"))
        f, err := strconv.ParseFloat(s, 64)
        if err != nil { return 0, false }
        return f, true
    default:
        return 0, false
    }
}

func containsAny(s string, words []string) bool {
    for _, w := range words {
        if strings.Contains(s, w) {
            return true
        }
    }
    return false
}

func firstString(obj map[string]any, keys ...string) string {
    for _, k := range keys {
        if s, ok := obj[k].(string); ok && strings.TrimSpace(s) != "" {
            return s
        }
    }
    return ""
}

func firstStrings(obj map[string]any, keys ...string) []string {
    for _, k := range keys {
        list, ok := obj[k].([]any)
        if !ok { continue }
        out := make([]string, 0, len(list))
        for _, item := range list {
            if s, ok := item.(string); ok && s != "" {
                out = append(out, s)
            }
        }
        if len(out) > 0 {
            return out
        }
    }
    return nil
}
