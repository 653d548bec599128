package memory

import (
	"sync"
	"time"

	"quiz-result-service/internal/app"
)

// SessionStore is an in-memory implementation of app.SessionRepository.
// Sessions idle for longer than ttl are evicted: lazily on Get, and by a sweep
// that runs on Create at most once per ttl. A ttl <= 0 keeps sessions until Delete.
type SessionStore struct {
	ttl   time.Duration
	clock func() time.Time

	mu        sync.Mutex
	sessions  map[string]*entry
	lastSweep time.Time
}

type entry struct {
	session  *app.Session
	lastSeen time.Time
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		ttl:      ttl,
		clock:    time.Now,
		sessions: make(map[string]*entry),
	}
}

func (s *SessionStore) Create(session *app.Session) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sweepLocked(now)
	s.sessions[session.ID()] = &entry{session: session, lastSeen: now}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	now := s.clock()
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[sessionID]
	if !ok {
		return nil, false
	}
	if s.expired(e, now) {
		delete(s.sessions, sessionID)
		return nil, false
	}
	e.lastSeen = now
	return e.session, true
}

func (s *SessionStore) Delete(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
}

// Len reports how many sessions are held, expired or not.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) expired(e *entry, now time.Time) bool {
	return s.ttl > 0 && now.Sub(e.lastSeen) > s.ttl
}

func (s *SessionStore) sweepLocked(now time.Time) {
	if s.ttl <= 0 || now.Sub(s.lastSweep) < s.ttl {
		return
	}
	s.lastSweep = now
	for id, e := range s.sessions {
		if s.expired(e, now) {
			delete(s.sessions, id)
		}
	}
}
