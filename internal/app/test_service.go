package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/engine"

	"github.com/google/uuid"
)

// SessionRepository abstracts how test-taking sessions are kept (in-memory, Redis, etc).
type SessionRepository interface {
	Create(session *Session)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// TestRepository loads test content (from cache/backing store).
type TestRepository interface {
	GetTest(ctx context.Context, testID string) (domain.Test, error)
}

// ResponseStore persists completed sessions and serves their aggregates.
type ResponseStore interface {
	StoreCompletedSession(ctx context.Context, completed domain.CompletedSession) error
	ResultStats(ctx context.Context, testID string) (domain.ResultStats, error)
}

// Outcome is returned when a session is completed.
type Outcome struct {
	SessionID  string            `json:"sessionId"`
	State      State             `json:"state"`
	TotalScore domain.TotalScore `json:"totalScore"`
	Result     *domain.Result    `json:"result,omitempty"`
	Fallback   bool              `json:"fallback"`
	// NoMatch is set when neither a candidate nor a default result applied.
	NoMatch bool `json:"noMatch"`
}

// TestService sequences scoring, result resolution and vote counting per session.
type TestService struct {
	sessions  SessionRepository
	tests     TestRepository
	tallies   engine.TallyStore
	responses ResponseStore
	resolver  *engine.Resolver
	logger    *slog.Logger
	now       func() time.Time
}

func NewTestService(sessions SessionRepository, tests TestRepository, tallies engine.TallyStore, responses ResponseStore, logger *slog.Logger) *TestService {
	if logger == nil {
		logger = slog.Default()
	}
	return &TestService{
		sessions:  sessions,
		tests:     tests,
		tallies:   tallies,
		responses: responses,
		resolver:  engine.NewResolver(logger),
		logger:    logger,
		now:       time.Now,
	}
}

// StartSession opens a new session for a test. Unknown tests are rejected.
func (s *TestService) StartSession(ctx context.Context, testID string) (SessionView, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return SessionView{}, err
	}
	session := NewSessionWithClock(uuid.NewString(), test, s.tallies, s.now)
	s.sessions.Create(session)
	return session.View(), nil
}

// Session returns a snapshot of a session.
func (s *TestService) Session(_ context.Context, sessionID string) (SessionView, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return SessionView{}, domain.ErrSessionNotFound
	}
	return session.View(), nil
}

// RecordAnswer appends an answer to a scored session. A later answer to the same
// question supersedes the earlier one at completion time.
func (s *TestService) RecordAnswer(ctx context.Context, sessionID, questionID, choiceID string) (domain.Answer, error) {
	session, test, err := s.load(ctx, sessionID)
	if err != nil {
		return domain.Answer{}, err
	}
	if test.Kind == domain.KindBalance {
		return domain.Answer{}, fmt.Errorf("record answer on %s test: %w", test.Kind, domain.ErrWrongTestKind)
	}
	weight, err := answerWeight(test, questionID, choiceID)
	if err != nil {
		return domain.Answer{}, err
	}
	return session.record(questionID, choiceID, weight)
}

// CompleteSession marks the session complete and, for scored tests, resolves
// and stores its result. A store failure leaves the session completed so the
// call can be retried.
func (s *TestService) CompleteSession(ctx context.Context, sessionID, demographic string) (Outcome, error) {
	session, test, err := s.load(ctx, sessionID)
	if err != nil {
		return Outcome{}, err
	}
	answers, err := session.complete(demographic)
	if err != nil {
		return Outcome{}, err
	}

	completed := domain.CompletedSession{
		SessionID:   session.ID(),
		TestID:      test.ID,
		Answers:     answers,
		CompletedAt: s.now(),
	}

	// Balance games have no single result.
	if test.Kind == domain.KindBalance {
		if err := s.store(ctx, completed); err != nil {
			return Outcome{SessionID: session.ID(), State: StateCompleted}, err
		}
		return Outcome{SessionID: session.ID(), State: StateCompleted}, nil
	}

	score := engine.Accumulate(answers)
	res := s.resolver.Resolve(score, demographic, test.Results)
	completed.TotalScore = score
	completed.MatchedResultID = res.ResultID()

	outcome := Outcome{SessionID: session.ID(), State: StateCompleted, TotalScore: score}
	if err := s.store(ctx, completed); err != nil {
		return outcome, err
	}
	session.resolve(score, res)

	outcome.State = StateResolved
	outcome.Fallback = res.Fallback
	outcome.NoMatch = res.NoMatch()
	if res.Found {
		result := res.Result
		outcome.Result = &result
	} else {
		s.logger.Info("no result matched", "test_id", test.ID, "session_id", session.ID(), "score", score)
	}
	return outcome, nil
}

// LoadTally fetches the authoritative tally of a balance question into the session.
func (s *TestService) LoadTally(ctx context.Context, sessionID, questionID string) (domain.VoteTally, domain.Percentages, error) {
	counter, question, err := s.counter(ctx, sessionID, questionID)
	if err != nil {
		return domain.VoteTally{}, domain.Percentages{}, err
	}
	if _, err := counter.Load(ctx, question); err != nil {
		return domain.VoteTally{}, domain.Percentages{}, err
	}
	tally, pct, _ := counter.Displayed(questionID)
	return tally, pct, nil
}

// CastVote applies an optimistic vote, reports it through onProjected and commits
// it. The vote lands in the answer log only once the store confirmed it and no
// newer vote on the same question superseded it.
func (s *TestService) CastVote(ctx context.Context, sessionID, questionID, choiceID string, onProjected func(domain.Percentages)) (engine.VoteOutcome, error) {
	session, _, err := s.load(ctx, sessionID)
	if err != nil {
		return engine.VoteOutcome{}, err
	}
	if err := session.checkOpen(); err != nil {
		return engine.VoteOutcome{}, err
	}
	counter, question, err := s.counter(ctx, sessionID, questionID)
	if err != nil {
		return engine.VoteOutcome{}, err
	}
	if _, loaded := counter.GetTally(questionID); !loaded {
		if _, err := counter.Load(ctx, question); err != nil {
			return engine.VoteOutcome{}, err
		}
	}

	outcome, err := counter.CastVote(ctx, questionID, choiceID, onProjected)
	if err != nil {
		s.logger.Warn("vote not recorded", "session_id", sessionID, "question_id", questionID, "error", err)
		return outcome, err
	}
	// a superseded commit may not have been stored; the newer vote owns the log entry
	if outcome.Superseded {
		return outcome, nil
	}
	if _, err := session.record(questionID, choiceID, 0); err != nil {
		return outcome, err
	}
	return outcome, nil
}

// ResetVote drops the session's local selection for a question.
func (s *TestService) ResetVote(ctx context.Context, sessionID, questionID string) (domain.Percentages, error) {
	counter, _, err := s.counter(ctx, sessionID, questionID)
	if err != nil {
		return domain.Percentages{}, err
	}
	counter.Reset(questionID)
	_, pct, ok := counter.Displayed(questionID)
	if !ok {
		return domain.Percentages{}, domain.ErrTallyNotLoaded
	}
	return pct, nil
}

// QuestionTally reads the store's current tally for a balance question
// without touching any session.
func (s *TestService) QuestionTally(ctx context.Context, testID, questionID string) (domain.VoteTally, domain.Percentages, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return domain.VoteTally{}, domain.Percentages{}, err
	}
	if test.Kind != domain.KindBalance {
		return domain.VoteTally{}, domain.Percentages{}, fmt.Errorf("tally on %s test: %w", test.Kind, domain.ErrWrongTestKind)
	}
	question, ok := test.Question(questionID)
	if !ok {
		return domain.VoteTally{}, domain.Percentages{}, domain.ErrQuestionNotFound
	}
	tally, err := s.tallies.FetchVoteTally(ctx, question)
	if err != nil {
		return domain.VoteTally{}, domain.Percentages{}, err
	}
	return tally, engine.PercentagesOf(tally), nil
}

// CandidateResults returns the results a test's sessions can resolve to.
func (s *TestService) CandidateResults(ctx context.Context, testID string) ([]domain.Result, error) {
	test, err := s.tests.GetTest(ctx, testID)
	if err != nil {
		return nil, err
	}
	return test.Results, nil
}

// ResultStats returns the result distribution of stored sessions.
func (s *TestService) ResultStats(ctx context.Context, testID string) (domain.ResultStats, error) {
	if _, err := s.tests.GetTest(ctx, testID); err != nil {
		return domain.ResultStats{}, err
	}
	return s.responses.ResultStats(ctx, testID)
}

// EndSession forgets a session, e.g. when its connection closes.
func (s *TestService) EndSession(_ context.Context, sessionID string) {
	s.sessions.Delete(sessionID)
}

func (s *TestService) load(ctx context.Context, sessionID string) (*Session, domain.Test, error) {
	session, ok := s.sessions.Get(sessionID)
	if !ok {
		return nil, domain.Test{}, domain.ErrSessionNotFound
	}
	test, err := s.tests.GetTest(ctx, session.TestID())
	if err != nil {
		return nil, domain.Test{}, err
	}
	return session, test, nil
}

func (s *TestService) counter(ctx context.Context, sessionID, questionID string) (*engine.VoteCounter, domain.Question, error) {
	session, test, err := s.load(ctx, sessionID)
	if err != nil {
		return nil, domain.Question{}, err
	}
	if test.Kind != domain.KindBalance || session.votes == nil {
		return nil, domain.Question{}, fmt.Errorf("vote on %s test: %w", test.Kind, domain.ErrWrongTestKind)
	}
	question, ok := test.Question(questionID)
	if !ok {
		return nil, domain.Question{}, domain.ErrQuestionNotFound
	}
	return session.votes, question, nil
}

func (s *TestService) store(ctx context.Context, completed domain.CompletedSession) error {
	if err := s.responses.StoreCompletedSession(ctx, completed); err != nil {
		s.logger.Error("store completed session", "session_id", completed.SessionID, "error", err)
		return fmt.Errorf("store session %s: %w: %w", completed.SessionID, domain.ErrPersistenceWriteFailed, err)
	}
	return nil
}

// answerWeight validates the answer against test content and returns the weight it carries.
func answerWeight(test domain.Test, questionID, choiceID string) (int64, error) {
	question, ok := test.Question(questionID)
	if !ok {
		return 0, domain.ErrQuestionNotFound
	}
	choice, ok := question.Choice(choiceID)
	if !ok {
		return 0, domain.ErrChoiceNotFound
	}

	switch test.Kind {
	case domain.KindQuiz:
		if !choice.Correct {
			return 0, nil
		}
		if question.Points == 0 {
			return 1, nil
		}
		return question.Points, nil
	case domain.KindBalance:
		return 0, nil
	default:
		return choice.Weight, nil
	}
}
