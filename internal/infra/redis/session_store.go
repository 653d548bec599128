package redis

import (
	"context"
	"log/slog"
	"time"

	"quiz-result-service/internal/app"
	"quiz-result-service/internal/infra/memory"

	"github.com/redis/go-redis/v9"
)

// SessionStore is a Redis-aware implementation of app.SessionRepository.
// Notes:
//   - Sessions own live state (answer log, vote counter), so they stay in a
//     local store on the instance that serves the client connection. Local
//     entries expire after the same idle ttl as their Redis key.
//   - Redis marks session liveness with a TTL, which lets other instances and
//     operators see which sessions are open. A session whose key is gone is
//     dropped locally too.
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration
	local  *memory.SessionStore
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client: client,
		ttl:    ttl,
		local:  memory.NewSessionStore(ttl),
	}
}

func (s *SessionStore) Create(session *app.Session) {
	s.local.Create(session)
	// best-effort liveness marker
	if err := s.client.Set(context.Background(), s.key(session.ID()), session.TestID(), s.ttl).Err(); err != nil {
		slog.Warn("mark session live", "session_id", session.ID(), "error", err)
	}
}

func (s *SessionStore) Get(sessionID string) (*app.Session, bool) {
	session, ok := s.local.Get(sessionID)
	if !ok || s.ttl <= 0 {
		return session, ok
	}
	alive, err := s.client.Expire(context.Background(), s.key(sessionID), s.ttl).Result()
	if err != nil {
		// keep serving the local session while Redis is unreachable
		slog.Warn("refresh session liveness", "session_id", sessionID, "error", err)
		return session, true
	}
	if !alive {
		s.local.Delete(sessionID)
		return nil, false
	}
	return session, true
}

func (s *SessionStore) Delete(sessionID string) {
	s.local.Delete(sessionID)
	_ = s.client.Del(context.Background(), s.key(sessionID)).Err()
}

func (s *SessionStore) key(sessionID string) string {
	return "test:session:" + sessionID
}
