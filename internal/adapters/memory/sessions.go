package memory

import (
    "context"
    "sync"

    "deepscan/internal/domain"
)

// SessionStore keeps analysis sessions for the life of the process. Values are copied in and out;
// callers never share a session struct with the store.
type SessionStore struct {
    mu       sync.RWMutex
    sessions map[string]domain.AnalysisSession
}

func NewSessionStore() *SessionStore {
    return &SessionStore{sessions: map[string]domain.AnalysisSession{}}
}

func (s *SessionStore) Get(_ context.Context, id string) (domain.AnalysisSession, bool) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    sess, ok := s.sessions[id]
    return sess, ok
}

func (s *SessionStore) Put(_ context.Context, sess domain.AnalysisSession) {
    s.mu.Lock()
    s.sessions[sess.File.ID] = sess
    s.mu.Unlock()
}

func (s *SessionStore) Update(_ context.Context, id string, fn func(*domain.AnalysisSession)) (domain.AnalysisSession, bool) {
    s.mu.Lock()
    defer s.mu.Unlock()
    sess, ok := s.sessions[id]
    if !ok {
        return domain.AnalysisSession{}, false
    }
    fn(&sess)
    s.sessions[id] = sess
    return sess, true
}

func (s *SessionStore) Delete(_ context.Context, id string) {
    s.mu.Lock()
    delete(s.sessions, id)
    s.mu.Unlock()
}

// Len is reported by /healthz.
func (s *SessionStore) Len() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return len(s.sessions)
}
