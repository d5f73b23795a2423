package main

import (
    "context"
    "encoding/json"
    "fmt"
    "os"
    "path/filepath"
    "time"

    "github.com/spf13/cobra"

    "deepscan/internal/domain"
    "deepscan/internal/workers/analysisrunner"
)

var analyzeFlags struct {
    timeout time.Duration
}

var analyzeCmd = &cobra.Command{
    Use:   "analyze <path>",
    Short: "Analyse one local file and print the verdict as JSON",
    Args:  cobra.ExactArgs(1),
    RunE:  runAnalyze,
}

func init() {
    analyzeCmd.Flags().DurationVar(&analyzeFlags.timeout, "timeout", 5*time.Minute, "Overall analysis timeout")
}

// cliOwner owns every file uploaded by a one-shot run.
const cliOwner = "cli"

type report struct {
    File          string                 `json:"file"`
    Modality      domain.Modality        `json:"modality"`
    Status        domain.Status          `json:"status"`
    Error         string                 `json:"error,omitempty"`
    Verdict       *domain.AnalysisVerdict `json:"verdict,omitempty"`
    Evidence      *domain.VisualEvidence `json:"visual_evidence,omitempty"`
    Video         *domain.VideoVerdict   `json:"video_analysis,omitempty"`
    VideoEvidence *domain.VideoEvidence  `json:"video_evidence,omitempty"`
}

func runAnalyze(cmd *cobra.Command, args []string) error {
    cfg := loadConfig()
    ctx := cmd.Context()

    tmp, err := os.MkdirTemp("", "deepscan-*")
    if err != nil {
        return err
    }
    defer os.RemoveAll(tmp)

    a, err := build(ctx, cfg, buildOptions{uploadDir: tmp})
    if err != nil {
        return err
    }
    defer a.Close()

    src, err := os.Open(args[0])
    if err != nil {
        return err
    }
    defer src.Close()

    f, err := a.analysis.Upload(ctx, cliOwner, filepath.Base(args[0]), src)
    if err != nil {
        return err
    }
    if _, err := a.analysis.Prepare(ctx, cliOwner, f.ID); err != nil {
        return err
    }
    runCtx, cancel := context.WithTimeout(ctx, analyzeFlags.timeout)
    defer cancel()
    if err := analysisrunner.ProcessInline(runCtx, a.analysis, f.ID); err != nil {
        fmt.Fprintf(cmd.ErrOrStderr(), "analysis failed: %v\n", err)
    }
    sess, err := a.analysis.Results(ctx, cliOwner, f.ID)
    if err != nil {
        return err
    }

    enc := json.NewEncoder(cmd.OutOrStdout())
    enc.SetIndent("", "  ")
    return enc.Encode(report{
        File:          args[0],
        Modality:      f.Modality,
        Status:        sess.Status,
        Error:         sess.Error,
        Verdict:       sess.Verdict,
        Evidence:      sess.Evidence,
        Video:         sess.Video,
        VideoEvidence: sess.VideoEvidence,
    })
}
