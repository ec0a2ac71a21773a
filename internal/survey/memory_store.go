package survey

import (
	"context"
	"sync"
)

// MemoryStore keeps sessions in process memory, keyed by user id. The
// default backend for single-instance deployments; state is lost on
// restart, which matches the throwaway nature of an in-flight run.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[int64]Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[int64]Session)}
}

func (s *MemoryStore) Get(_ context.Context, userID int64) (*Session, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false, nil
	}
	cp := sess
	cp.Answers = append([]Answer(nil), sess.Answers...)
	cp.PendingMessageIDs = append([]int(nil), sess.PendingMessageIDs...)
	return &cp, true, nil
}

func (s *MemoryStore) Put(_ context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sess
	cp.Answers = append([]Answer(nil), sess.Answers...)
	cp.PendingMessageIDs = append([]int(nil), sess.PendingMessageIDs...)
	s.sessions[sess.UserID] = cp
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
	return nil
}
