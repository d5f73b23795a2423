// Package ffmpeg samples video frames by shelling out to ffmpeg and ffprobe.
package ffmpeg

import (
    "bytes"
    "context"
    "fmt"
    "os"
    "os/exec"
    "path/filepath"
    "sort"
    "strconv"
    "strings"

    "deepscan/internal/domain"
    "deepscan/internal/ports"
)

type FrameSource struct {
    FFmpeg  string
    FFprobe string
    // TempDir is the parent for per-video working directories; empty means os.TempDir.
    TempDir string
}

func New() *FrameSource {
    return &FrameSource{FFmpeg: "ffmpeg", FFprobe: "ffprobe"}
}

// Extract writes every interval-th decoded frame, up to max frames, as JPEGs into a fresh working
// directory. release removes the directory and anything left in it.
func (s *FrameSource) Extract(ctx context.Context, videoPath string, max, interval int) ([]ports.Frame, func(), error) {
    if max <= 0 || interval <= 0 {
        return nil, nil, fmt.Errorf("%w: max=%d interval=%d", domain.ErrInvalidInput, max, interval)
    }
    dir, err := os.MkdirTemp(s.TempDir, "frames-*")
    if err != nil {
        return nil, nil, fmt.Errorf("create frame dir: %w", err)
    }
    release := func() { _ = os.RemoveAll(dir) }

    fps := s.probeFPS(ctx, videoPath)

    args := []string{
        "-v", "error",
        "-i", videoPath,
        "-vf", fmt.Sprintf("select=not(mod(n\\,%d))", interval),
        "-vsync", "vfr",
        "-frames:v", strconv.Itoa(max),
        "-q:v", "2",
        filepath.Join(dir, "frame_%04d.jpg"),
    }
    var stderr bytes.Buffer
    cmd := exec.CommandContext(ctx, s.FFmpeg, args...)
    cmd.Stderr = &stderr
    if err := cmd.Run(); err != nil {
        if ctx.Err() != nil {
            return nil, release, ctx.Err()
        }
        return nil, release, fmt.Errorf("%w: ffmpeg: %v: %s", domain.ErrCorruptMedia, err, strings.TrimSpace(stderr.String()))
    }

    names, err := filepath.Glob(filepath.Join(dir, "frame_*.jpg"))
    if err != nil {
        return nil, release, err
    }
    sort.Strings(names)

    frames := make([]ports.Frame, 0, len(names))
    for i, name := range names {
        n := i * interval
        ts := 0.0
        if fps > 0 {
            ts = float64(n) / fps
        }
        frames = append(frames, ports.Frame{Number: n, Timestamp: ts, Path: name})
    }
    return frames, release, nil
}

func (s *FrameSource) probeFPS(ctx context.Context, videoPath string) float64 {
    out, err := exec.CommandContext(ctx, s.FFprobe,
        "-v", "error",
        "-select_streams", "v:0",
        "-show_entries", "stream=avg_frame_rate",
        "-of", "default=noprint_wrappers=1:nokey=1",
        videoPath,
    ).Output()
    if err != nil {
        return 0
    }
    return parseRate(string(out))
}

// parseRate reads ffprobe rates such as "30000/1001" or "25".
func parseRate(s string) float64 {
    s = strings.TrimSpace(strings.SplitN(s, "\n", 2)[0])
    num, den, found := strings.Cut(s, "/")
    n, err := strconv.ParseFloat(num, 64)
    if err != nil {
        return 0
    }
    if !found {
        return n
    }
    d, err := strconv.ParseFloat(den, 64)
    if err != nil || d == 0 {
        return 0
    }
    return n / d
}
