package cleanup

import (
    "context"
    "time"

    "github.com/jonboulle/clockwork"

    "deepscan/internal/logging"
)

// Sweeper removes media older than maxAge and reports how many files it removed.
type Sweeper interface {
    CleanupStale(ctx context.Context, maxAge time.Duration) (int, error)
}

// Run sweeps once immediately and then every interval until ctx is cancelled.
func Run(ctx context.Context, sweeper Sweeper, clock clockwork.Clock, interval, maxAge time.Duration) {
    if clock == nil {
        clock = clockwork.NewRealClock()
    }
    log := logging.New("cleanup")
    sweep := func() {
        n, err := sweeper.CleanupStale(ctx, maxAge)
        if err != nil && ctx.Err() == nil {
            log.ErrorContext(ctx, "stale file sweep failed", "err", err)
            return
        }
        log.DebugContext(ctx, "stale file sweep done", "removed", n)
    }

    sweep()
    if interval <= 0 {
        return
    }
    ticker := clock.NewTicker(interval)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.Chan():
            sweep()
        }
    }
}
