package main

import (
    "context"
    "errors"
    "fmt"
    "log/slog"
    "net"
    "net/http"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/jonboulle/clockwork"
    "github.com/spf13/cobra"
    "golang.org/x/net/netutil"

    httpadapter "deepscan/internal/adapters/http"
    "deepscan/internal/services/analysis"
    "deepscan/internal/workers/analysisrunner"
    "deepscan/internal/workers/cleanup"
)

// Queued analyses are failed on shutdown rather than left processing.
var _ analysisrunner.Abandoner = (*analysis.Service)(nil)

var serveCmd = &cobra.Command{
    Use:   "serve",
    Short: "Run the HTTP API with background analysis workers",
    RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
    cfg := loadConfig()

    ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    a, err := build(ctx, cfg, buildOptions{persistent: true})
    if err != nil {
        return err
    }
    defer a.Close()

    runner := analysisrunner.Start(ctx, a.analysis, cfg.AnalysisWorkers, cfg.AnalysisWorkers*16)
    a.analysis.SetRunner(runner)
    slog.Info("analysis workers started", "workers", cfg.AnalysisWorkers)

    go cleanup.Run(ctx, a.analysis, clockwork.NewRealClock(), cfg.SweepInterval, cfg.StaleFileAge)

    ln, err := net.Listen("tcp", cfg.ListenAddr)
    if err != nil {
        return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
    }
    if cfg.MaxConnections > 0 {
        ln = netutil.LimitListener(ln, cfg.MaxConnections)
    }
    srv := &http.Server{
        Handler:           httpadapter.New(a.analysis, a.files, cfg.StaleFileAge).WithSessionCount(a.sessions).Routes(),
        ReadHeaderTimeout: 10 * time.Second,
    }

    errCh := make(chan error, 1)
    go func() { errCh <- srv.Serve(ln) }()
    slog.Info("listening", "addr", cfg.ListenAddr, "env", cfg.Env)

    select {
    case <-ctx.Done():
        slog.Info("shutting down")
    case err := <-errCh:
        if !errors.Is(err, http.ErrServerClosed) {
            return fmt.Errorf("server error: %w", err)
        }
    }

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        slog.Warn("http shutdown", "err", err)
    }
    stop()
    runner.Wait()
    return nil
}
