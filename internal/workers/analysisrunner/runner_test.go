package analysisrunner

import (
    "context"
    "errors"
    "sort"
    "strings"
    "sync"
    "testing"
    "time"

    "github.com/google/go-cmp/cmp"
)

type processorFunc func(ctx context.Context, id string) error

func (f processorFunc) Process(ctx context.Context, id string) error { return f(ctx, id) }

func TestRunner_ProcessesEverySubmission(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    var mu sync.Mutex
    var seen []string
    var wg sync.WaitGroup
    r := Start(ctx, processorFunc(func(_ context.Context, id string) error {
        defer wg.Done()
        if id == "boom" {
            panic("decoder exploded")
        }
        mu.Lock()
        seen = append(seen, id)
        mu.Unlock()
        if id == "bad" {
            return errors.New("oracle down")
        }
        return nil
    }), 3, 1)

    ids := []string{"a", "boom", "b", "bad", "c", "d", "e"}
    wg.Add(len(ids))
    for _, id := range ids {
        r.Submit(id)
    }
    wg.Wait()
    cancel()
    r.Wait()

    sort.Strings(seen)
    if diff := cmp.Diff([]string{"a", "b", "bad", "c", "d", "e"}, seen); diff != "" {
        t.Errorf("processed (-want +got):\n%s", diff)
    }
}

func TestRunner_SubmitDoesNotBlock(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    defer cancel()
    release := make(chan struct{})
    var wg sync.WaitGroup
    r := Start(ctx, processorFunc(func(context.Context, string) error {
        defer wg.Done()
        <-release
        return nil
    }), 1, 1)

    wg.Add(5)
    done := make(chan struct{})
    go func() {
        for _, id := range []string{"1", "2", "3", "4", "5"} {
            r.Submit(id)
        }
        close(done)
    }()
    select {
    case <-done:
    case <-time.After(2 * time.Second):
        t.Fatal("Submit blocked on a busy pool")
    }
    close(release)
    wg.Wait()
}

func TestProcessInline_RecoversPanic(t *testing.T) {
    err := ProcessInline(context.Background(), processorFunc(func(context.Context, string) error {
        panic("nil map")
    }), "f1")
    if err == nil || !strings.Contains(err.Error(), "panicked") {
        t.Fatalf("err = %v", err)
    }
    want := errors.New("plain failure")
    if got := ProcessInline(context.Background(), processorFunc(func(context.Context, string) error { return want }), "f2"); got != want {
        t.Errorf("err = %v", got)
    }
}

func TestRunner_DropsAfterCancel(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    called := make(chan string, 1)
    r := Start(ctx, processorFunc(func(_ context.Context, id string) error {
        called <- id
        return nil
    }), 1, 1)
    cancel()
    r.Wait()
    r.Submit("late")
    select {
    case id := <-called:
        t.Errorf("processed %s after shutdown", id)
    case <-time.After(50 * time.Millisecond):
    }
}

type abandoningProcessor struct {
    processorFunc
    mu        sync.Mutex
    abandoned []string
}

func (p *abandoningProcessor) Abandon(_ context.Context, id string) error {
    p.mu.Lock()
    p.abandoned = append(p.abandoned, id)
    p.mu.Unlock()
    return nil
}

func TestRunner_AbandonsQueuedTasksOnShutdown(t *testing.T) {
    ctx, cancel := context.WithCancel(context.Background())
    started := make(chan struct{})
    release := make(chan struct{})
    var processed []string
    p := &abandoningProcessor{processorFunc: func(_ context.Context, id string) error {
        processed = append(processed, id)
        close(started)
        <-release
        return nil
    }}
    r := Start(ctx, p, 1, 4)

    r.Submit("running")
    <-started
    for _, id := range []string{"q1", "q2", "q3"} {
        r.Submit(id)
    }
    cancel()
    close(release)
    r.Wait()
    r.Submit("late")

    sort.Strings(p.abandoned)
    if diff := cmp.Diff([]string{"late", "q1", "q2", "q3"}, p.abandoned); diff != "" {
        t.Errorf("abandoned (-want +got):\n%s", diff)
    }
    if diff := cmp.Diff([]string{"running"}, processed); diff != "" {
        t.Errorf("processed (-want +got):\n%s", diff)
    }
}
