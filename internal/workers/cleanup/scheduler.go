// Package cleanup deletes media after a delay and sweeps stale uploads periodically.
package cleanup

import (
    "log/slog"
    "sync"
    "time"

    "github.com/jonboulle/clockwork"

    "deepscan/internal/logging"
)

// DefaultDelay keeps media around long enough for the client to preview it after analysis.
const DefaultDelay = time.Hour

// Remover deletes a stored file. Removing a missing path must succeed.
type Remover interface {
    Remove(path string) error
}

type pending struct {
    path  string
    timer clockwork.Timer
}

// Scheduler holds one timer per file id. Rescheduling a file replaces its timer.
type Scheduler struct {
    remover Remover
    delay   time.Duration
    clock   clockwork.Clock

    mu      sync.Mutex
    pending map[string]*pending
    log     *slog.Logger
}

func NewScheduler(remover Remover, delay time.Duration, clock clockwork.Clock) *Scheduler {
    if delay <= 0 {
        delay = DefaultDelay
    }
    if clock == nil {
        clock = clockwork.NewRealClock()
    }
    return &Scheduler{
        remover: remover,
        delay:   delay,
        clock:   clock,
        pending: map[string]*pending{},
        log:     logging.New("cleanup"),
    }
}

func (s *Scheduler) Schedule(fileID, path string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if p, ok := s.pending[fileID]; ok {
        p.timer.Stop()
    }
    p := &pending{path: path}
    p.timer = s.clock.AfterFunc(s.delay, func() { s.fire(fileID, p) })
    s.pending[fileID] = p
    s.log.Debug("cleanup scheduled", "file_id", fileID, "delay", s.delay)
}

func (s *Scheduler) Cancel(fileID string) {
    s.mu.Lock()
    defer s.mu.Unlock()
    if p, ok := s.pending[fileID]; ok {
        p.timer.Stop()
        delete(s.pending, fileID)
    }
}

// Pending reports how many deletions are waiting.
func (s *Scheduler) Pending() int {
    s.mu.Lock()
    defer s.mu.Unlock()
    return len(s.pending)
}

// Stop cancels every pending deletion.
func (s *Scheduler) Stop() {
    s.mu.Lock()
    defer s.mu.Unlock()
    for id, p := range s.pending {
        p.timer.Stop()
        delete(s.pending, id)
    }
}

func (s *Scheduler) fire(fileID string, p *pending) {
    s.mu.Lock()
    if s.pending[fileID] != p {
        s.mu.Unlock()
        return
    }
    delete(s.pending, fileID)
    s.mu.Unlock()

    if err := s.remover.Remove(p.path); err != nil {
        s.log.Warn("deferred cleanup failed", "file_id", fileID, "path", p.path, "err", err)
        return
    }
    s.log.Info("media cleaned up", "file_id", fileID)
}
