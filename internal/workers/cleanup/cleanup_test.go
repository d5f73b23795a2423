package cleanup

import (
    "context"
    "sync"
    "testing"
    "time"

    "github.com/jonboulle/clockwork"
)

type chanRemover struct {
    removed chan string
}

func (r chanRemover) Remove(path string) error {
    r.removed <- path
    return nil
}

func expectRemoved(t *testing.T, r chanRemover, want string) {
    t.Helper()
    select {
    case got := <-r.removed:
        if got != want {
            t.Errorf("removed %s, want %s", got, want)
        }
    case <-time.After(2 * time.Second):
        t.Fatalf("%s was not removed", want)
    }
}

func expectNothing(t *testing.T, r chanRemover) {
    t.Helper()
    select {
    case got := <-r.removed:
        t.Errorf("unexpected removal of %s", got)
    case <-time.After(50 * time.Millisecond):
    }
}

func TestScheduler_RemovesAfterDelay(t *testing.T) {
    clock := clockwork.NewFakeClock()
    r := chanRemover{removed: make(chan string, 4)}
    s := NewScheduler(r, time.Hour, clock)

    s.Schedule("f1", "/uploads/f1.png")
    clock.Advance(59 * time.Minute)
    expectNothing(t, r)
    clock.Advance(time.Minute)
    expectRemoved(t, r, "/uploads/f1.png")
    if s.Pending() != 0 {
        t.Errorf("pending = %d", s.Pending())
    }
}

func TestScheduler_CancelOnDelete(t *testing.T) {
    clock := clockwork.NewFakeClock()
    r := chanRemover{removed: make(chan string, 4)}
    s := NewScheduler(r, time.Hour, clock)

    s.Schedule("f1", "/uploads/f1.png")
    s.Cancel("f1")
    s.Cancel("f1")
    clock.Advance(2 * time.Hour)
    expectNothing(t, r)
}

func TestScheduler_RescheduleReplacesTimer(t *testing.T) {
    clock := clockwork.NewFakeClock()
    r := chanRemover{removed: make(chan string, 4)}
    s := NewScheduler(r, time.Hour, clock)

    s.Schedule("f1", "/uploads/f1.png")
    clock.Advance(30 * time.Minute)
    s.Schedule("f1", "/uploads/f1.png")
    clock.Advance(45 * time.Minute)
    expectNothing(t, r)
    clock.Advance(15 * time.Minute)
    expectRemoved(t, r, "/uploads/f1.png")
    expectNothing(t, r)
}

type countingSweeper struct {
    mu     sync.Mutex
    calls  int
    maxAge time.Duration
    ran    chan struct{}
}

func (c *countingSweeper) CleanupStale(_ context.Context, maxAge time.Duration) (int, error) {
    c.mu.Lock()
    c.calls++
    c.maxAge = maxAge
    c.mu.Unlock()
    c.ran <- struct{}{}
    return 0, nil
}

func TestRun_SweepsAtStartupAndOnInterval(t *testing.T) {
    clock := clockwork.NewFakeClock()
    sw := &countingSweeper{ran: make(chan struct{}, 4)}
    ctx, cancel := context.WithCancel(context.Background())
    done := make(chan struct{})
    go func() {
        Run(ctx, sw, clock, time.Hour, 24*time.Hour)
        close(done)
    }()

    <-sw.ran
    if err := clock.BlockUntilContext(ctx, 1); err != nil {
        t.Fatal(err)
    }
    clock.Advance(time.Hour)
    select {
    case <-sw.ran:
    case <-time.After(2 * time.Second):
        t.Fatal("no sweep after one interval")
    }
    cancel()
    <-done

    sw.mu.Lock()
    defer sw.mu.Unlock()
    if sw.calls != 2 || sw.maxAge != 24*time.Hour {
        t.Errorf("calls=%d maxAge=%v", sw.calls, sw.maxAge)
    }
}
