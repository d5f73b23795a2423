package normalize

import (
    "math"
    "sort"

    "deepscan/internal/domain"
)

// ImageDetail translates the parsed oracle object into the typed image detail structure.
// obj may be nil, in which case only the verdict's metric scores are used.
func ImageDetail(obj map[string]any, v domain.AnalysisVerdict) domain.ImageDetailV1 {
    d := domain.ImageDetailV1{
        BorderQuality:      metric(v, MetricBorderQuality),
        EdgeUniformity:     metric(v, MetricEdgeUniformity),
        LightingUniformity: metric(v, MetricLightingConsistency, MetricBrightnessUniform),
        TextureConsistency: metric(v, MetricTextureConsistency, MetricSkinTexture),
        FacialSymmetry:     metric(v, MetricFacialSymmetry),
        Artifacts:          v.RawIndicators,
    }
    if obj == nil {
        return d
    }

    face := object(obj, "face_features")
    if face == nil {
        face = obj
    }
    d.Face = faceHint(face)

    // Nested artifact analysis wins over flat scores when both are present.
    if aa := object(face, "artifact_analysis"); aa != nil {
        setNested(&d.BorderQuality, aa, "border_analysis", "border_quality")
        setNested(&d.EdgeUniformity, aa, "edge_analysis", "edge_uniformity")
        setNested(&d.TextureConsistency, aa, "texture_analysis", "texture_consistency")
        setNested(&d.LightingUniformity, aa, "lighting_analysis", "brightness_uniformity")
    }

    d.SpatialMaps = spatialMaps(object(obj, "heatmaps"))
    return d
}

// VideoDetail wraps a frame's image detail with its position in the video.
func VideoDetail(frameNumber int, timestamp float64, obj map[string]any, v domain.AnalysisVerdict) domain.VideoDetailV1 {
    return domain.VideoDetailV1{FrameNumber: frameNumber, Timestamp: timestamp, Image: ImageDetail(obj, v)}
}

// AudioDetail reads the speech metrics from a normalised audio verdict.
func AudioDetail(v domain.AnalysisVerdict) domain.AudioDetailV1 {
    return domain.AudioDetailV1{
        Naturalness:  metric(v, MetricNaturalness),
        Prosody:      metric(v, MetricProsody),
        VoiceQuality: metric(v, MetricVoiceQuality),
        Coherence:    metric(v, MetricCoherence),
        Pauses:       metric(v, MetricPauses),
        AudioQuality: metric(v, MetricAudioQuality),
        Indicators:   v.RawIndicators,
    }
}

// AudioIndicators derives suspicion indicators from speech metrics. Missing metrics count as 0.5.
func AudioIndicators(d domain.AudioDetailV1) map[string]float64 {
    inv := func(p *float64) float64 {
        if p == nil { return defaultConfidence }
        return Clamp01(1 - *p)
    }
    out := map[string]float64{
        "unnatural_speech":    inv(d.Naturalness),
        "prosody_anomaly":     inv(d.Prosody),
        "voice_inconsistency": inv(d.VoiceQuality),
    }
    out["overall_suspiciousness"] = (out["unnatural_speech"] + out["prosody_anomaly"] + out["voice_inconsistency"]) / 3
    return out
}

func faceHint(face map[string]any) domain.FaceHint {
    var h domain.FaceHint
    if b, ok := face["face_detected"].(bool); ok {
        h.Detected = b
    }
    if c, ok := number(face["face_confidence"]); ok {
        c = scale(c)
        h.Confidence = &c
    }
    if r := object(face, "face_region"); r != nil {
        h.Region = regionFrom(r)
    }
    return h
}

// regionFrom accepts left/top or x/y origins, and width/height or right/bottom extents.
func regionFrom(r map[string]any) *domain.FaceRegion {
    left, okL := firstNumber(r, "left", "x")
    top, okT := firstNumber(r, "top", "y")
    if !okL || !okT {
        return nil
    }
    w, okW := number(r["width"])
    if !okW {
        if right, ok := number(r["right"]); ok {
            w, okW = right-left, true
        }
    }
    h, okH := number(r["height"])
    if !okH {
        if bottom, ok := number(r["bottom"]); ok {
            h, okH = bottom-top, true
        }
    }
    if !okW || !okH {
        return nil
    }
    reg := &domain.FaceRegion{
        X:      int(math.Round(left)),
        Y:      int(math.Round(top)),
        Width:  int(math.Round(w)),
        Height: int(math.Round(h)),
    }
    if !reg.Valid() {
        return nil
    }
    return reg
}

func spatialMaps(raw map[string]any) []domain.SpatialMap {
    if len(raw) == 0 {
        return nil
    }
    models := make([]string, 0, len(raw))
    for k := range raw {
        models = append(models, k)
    }
    sort.Strings(models)

    var out []domain.SpatialMap
    for _, model := range models {
        entry, ok := raw[model].(map[string]any)
        if !ok { continue }
        shape, ok := entry["shape"].([]any)
        if !ok || len(shape) != 2 { continue }
        h, okH := number(shape[0])
        w, okW := number(shape[1])
        if !okH || !okW || h <= 0 || w <= 0 { continue }

        list, _ := entry["heatmap_data"].([]any)
        if len(list) != int(h)*int(w) { continue }
        values := make([]float64, len(list))
        for i, item := range list {
            values[i], _ = number(item)
        }
        stretch(values)
        pred, _ := entry["prediction"].(string)
        out = append(out, domain.SpatialMap{
            Model:      model,
            Values:     values,
            Shape:      [2]int{int(h), int(w)},
            Prediction: pred,
        })
    }
    return out
}

// stretch min-max normalises values to [0,1] in place. A flat map is read as byte intensities when above 1.
func stretch(values []float64) {
    if len(values) == 0 {
        return
    }
    lo, hi := values[0], values[0]
    for _, v := range values[1:] {
        lo, hi = math.Min(lo, v), math.Max(hi, v)
    }
    for i, v := range values {
        switch {
        case hi > lo:
            values[i] = (v - lo) / (hi - lo)
        case v > 1:
            values[i] = math.Min(v/255, 1)
        case v < 0:
            values[i] = 0
        }
    }
}

func metric(v domain.AnalysisVerdict, names ...string) *float64 {
    for _, n := range names {
        if s, ok := v.Metric(n); ok {
            return &s
        }
    }
    return nil
}

func setNested(dst **float64, obj map[string]any, section, key string) {
    sec := object(obj, section)
    if sec == nil { return }
    if f, ok := number(sec[key]); ok {
        f = scale(f)
        *dst = &f
    }
}

func object(obj map[string]any, key string) map[string]any {
    m, _ := obj[key].(map[string]any)
    return m
}

func firstNumber(obj map[string]any, keys ...string) (float64, bool) {
    for _, k := range keys {
        if f, ok := number(obj[k]); ok {
            return f, true
        }
    }
    return 0, false
}
