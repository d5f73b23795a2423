package analysisrunner

import (
    "context"
    "fmt"
    "log/slog"
    "runtime/debug"
    "sync"
    "time"

    "deepscan/internal/logging"
)

// Processor performs the analysis for a file id.
type Processor interface {
    Process(ctx context.Context, fileID string) error
}

// Abandoner is implemented by processors that can fail a task which will never run.
type Abandoner interface {
    Abandon(ctx context.Context, fileID string) error
}

const abandonTimeout = 5 * time.Second

// Runner is a fixed pool of workers draining a buffered queue. Submit never blocks: when the queue is full
// the task runs on its own goroutine.
type Runner struct {
    ctx       context.Context
    processor Processor
    tasks     chan string
    wg        sync.WaitGroup
    log       *slog.Logger
}

// Start launches workers goroutines that live until ctx is cancelled.
func Start(ctx context.Context, processor Processor, workers, queue int) *Runner {
    if workers < 1 { workers = 1 }
    if queue < workers { queue = workers }
    r := &Runner{
        ctx:       ctx,
        processor: processor,
        tasks:     make(chan string, queue),
        log:       logging.New("analysisrunner"),
    }
    for i := 0; i < workers; i++ {
        r.wg.Add(1)
        go func(idx int) {
            defer r.wg.Done()
            for {
                select {
                case <-ctx.Done():
                    return
                case id := <-r.tasks:
                    if ctx.Err() != nil {
                        r.abandon(id)
                        continue
                    }
                    r.handle(idx, id)
                }
            }
        }(i)
    }
    return r
}

func (r *Runner) Submit(fileID string) {
    if r.ctx.Err() != nil {
        r.abandon(fileID)
        return
    }
    select {
    case r.tasks <- fileID:
    default:
        r.log.Warn("analysis queue full, running detached", "file_id", fileID)
        r.wg.Add(1)
        go func() {
            defer r.wg.Done()
            r.handle(-1, fileID)
        }()
    }
}

// Wait blocks until every worker has exited after cancellation, then abandons the tasks still queued.
func (r *Runner) Wait() {
    r.wg.Wait()
    for {
        select {
        case id := <-r.tasks:
            r.abandon(id)
        default:
            return
        }
    }
}

func (r *Runner) abandon(fileID string) {
    a, ok := r.processor.(Abandoner)
    if !ok {
        r.log.Warn("runner stopped, dropping task", "file_id", fileID)
        return
    }
    ctx, cancel := context.WithTimeout(context.WithoutCancel(r.ctx), abandonTimeout)
    defer cancel()
    if err := a.Abandon(ctx, fileID); err != nil {
        r.log.Warn("abandon task", "file_id", fileID, "err", err)
        return
    }
    r.log.Info("task abandoned at shutdown", "file_id", fileID)
}

func (r *Runner) handle(idx int, fileID string) {
    if err := ProcessInline(r.ctx, r.processor, fileID); err != nil {
        r.log.Warn("analysis task failed", "worker", idx, "file_id", fileID, "err", err)
    }
}

// ProcessInline runs one task synchronously with the same panic isolation as the pool.
func ProcessInline(ctx context.Context, processor Processor, fileID string) (err error) {
    defer func() {
        if p := recover(); p != nil {
            logging.New("analysisrunner").Error("analysis task panicked", "file_id", fileID, "panic", p, "stack", string(debug.Stack()))
            err = fmt.Errorf("analysis of %s panicked: %v", fileID, p)
        }
    }()
    return processor.Process(ctx, fileID)
}
