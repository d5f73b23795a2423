package logging

import (
    "bytes"
    "log/slog"
    "strings"
    "testing"
)

func TestNew_HasComponent(t *testing.T) {
    var buf bytes.Buffer
    Init(slog.LevelDebug, "text", &buf)

    New("normalizer").Info("hello")

    out := buf.String()
    if !strings.Contains(out, "component=normalizer") {
        t.Errorf("expected component attr, got: %s", out)
    }
}

func TestInit_JSONFormat(t *testing.T) {
    var buf bytes.Buffer
    Init(slog.LevelInfo, "json", &buf)

    New("json-test").Info("json check")

    if !strings.Contains(buf.String(), `"level":"INFO"`) {
        t.Errorf("expected JSON level field, got: %s", buf.String())
    }
}

func TestParseLevel(t *testing.T) {
    cases := map[string]slog.Level{
        "debug": slog.LevelDebug,
        "WARN":  slog.LevelWarn,
        "error": slog.LevelError,
        "":      slog.LevelInfo,
        "bogus": slog.LevelInfo,
    }
    for in, want := range cases {
        if got := ParseLevel(in); got != want {
            t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
        }
    }
}
