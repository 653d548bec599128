package memory

import (
	"context"
	"sort"
	"sync"

	"quiz-result-service/internal/domain"
)

// ResponseStore keeps completed sessions in process (useful for tests/demos).
type ResponseStore struct {
	mu        sync.RWMutex
	responses map[string]domain.CompletedSession
}

func NewResponseStore() *ResponseStore {
	return &ResponseStore{responses: make(map[string]domain.CompletedSession)}
}

// StoreCompletedSession upserts by session ID, so a retried store does not count twice.
func (s *ResponseStore) StoreCompletedSession(_ context.Context, completed domain.CompletedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers := make([]domain.Answer, len(completed.Answers))
	copy(answers, completed.Answers)
	completed.Answers = answers
	s.responses[completed.SessionID] = completed
	return nil
}

// Get returns a stored session.
func (s *ResponseStore) Get(sessionID string) (domain.CompletedSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	completed, ok := s.responses[sessionID]
	return completed, ok
}

func (s *ResponseStore) ResultStats(_ context.Context, testID string) (domain.ResultStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := domain.ResultStats{TestID: testID, Breakdown: []domain.ResultCount{}}
	counts := make(map[string]int64)
	var scoreSum int64
	for _, completed := range s.responses {
		if completed.TestID != testID {
			continue
		}
		stats.Sessions++
		scoreSum += completed.TotalScore
		if completed.MatchedResultID == nil {
			stats.Unmatched++
			continue
		}
		counts[*completed.MatchedResultID]++
	}
	if stats.Sessions > 0 {
		stats.AvgScore = float64(scoreSum) / float64(stats.Sessions)
	}
	for id, n := range counts {
		stats.Breakdown = append(stats.Breakdown, domain.ResultCount{ResultID: id, Count: n})
	}
	sortBreakdown(stats.Breakdown)
	return stats, nil
}

// sortBreakdown orders by count desc, then result ID.
func sortBreakdown(rows []domain.ResultCount) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Count != rows[j].Count {
			return rows[i].Count > rows[j].Count
		}
		return rows[i].ResultID < rows[j].ResultID
	})
}
