package app

import (
	"sync"
	"time"

	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/engine"
)

// State is the lifecycle position of a test-taking session.
type State string

const (
	StateNotStarted State = "not_started"
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
	StateResolved   State = "resolved"
)

// Session is one user's pass through a test. It owns its answer log and,
// for balance tests, its vote counter; nothing in it is shared between sessions.
type Session struct {
	id        string
	testID    string
	kind      domain.Kind
	createdAt time.Time
	now       func() time.Time
	votes     *engine.VoteCounter

	mu          sync.RWMutex
	state       State
	answers     []domain.Answer
	demographic string
	resolution  engine.Resolution
	score       domain.TotalScore
}

// NewSession is exported for infrastructure layers that need to seed sessions.
func NewSession(id string, test domain.Test, tallies engine.TallyStore) *Session {
	return NewSessionWithClock(id, test, tallies, time.Now)
}

// NewSessionWithClock allows deterministic timestamps in tests.
func NewSessionWithClock(id string, test domain.Test, tallies engine.TallyStore, now func() time.Time) *Session {
	s := &Session{
		id:        id,
		testID:    test.ID,
		kind:      test.Kind,
		createdAt: now(),
		now:       now,
		state:     StateNotStarted,
	}
	if test.Kind == domain.KindBalance && tallies != nil {
		s.votes = engine.NewVoteCounter(tallies)
	}
	return s
}

// SessionView is a read-only snapshot for transports.
type SessionView struct {
	ID         string            `json:"id"`
	TestID     string            `json:"testId"`
	Kind       domain.Kind       `json:"kind"`
	State      State             `json:"state"`
	Answers    int               `json:"answers"`
	TotalScore domain.TotalScore `json:"totalScore"`
	ResultID   *string           `json:"resultId,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

func (s *Session) ID() string { return s.id }

func (s *Session) TestID() string { return s.testID }

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// View snapshots the session.
func (s *Session) View() SessionView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionView{
		ID:         s.id,
		TestID:     s.testID,
		Kind:       s.kind,
		State:      s.state,
		Answers:    len(engine.NormalizeLog(s.answers)),
		TotalScore: s.score,
		ResultID:   s.resolution.ResultID(),
		CreatedAt:  s.createdAt,
	}
}

// Answers returns a copy of the raw answer log in recording order.
func (s *Session) Answers() []domain.Answer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Answer, len(s.answers))
	copy(out, s.answers)
	return out
}

func (s *Session) checkOpenLocked() error {
	switch s.state {
	case StateResolved:
		return domain.ErrSessionAlreadyResolved
	case StateCompleted:
		return domain.ErrSessionCompleted
	}
	return nil
}

func (s *Session) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.checkOpenLocked()
}

func (s *Session) record(questionID, choiceID string, weight int64) (domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpenLocked(); err != nil {
		return domain.Answer{}, err
	}
	answer := domain.Answer{
		QuestionID: questionID,
		ChoiceID:   choiceID,
		Weight:     weight,
		AnsweredAt: s.now(),
	}
	s.answers = append(s.answers, answer)
	s.state = StateInProgress
	return answer, nil
}

// complete trusts the caller's completeness signal. Completing an already
// completed session is allowed so a failed store can be retried.
func (s *Session) complete(demographic string) ([]domain.Answer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateResolved {
		return nil, domain.ErrSessionAlreadyResolved
	}
	s.state = StateCompleted
	s.demographic = demographic
	return engine.NormalizeLog(s.answers), nil
}

func (s *Session) resolve(score domain.TotalScore, res engine.Resolution) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.score = score
	s.resolution = res
	s.state = StateResolved
}
