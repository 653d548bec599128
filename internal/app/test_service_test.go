package app_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"quiz-result-service/internal/app"
	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/infra/memory"
)

func TestPsychologySessionResolves(t *testing.T) {
	ctx := context.Background()
	service, responses := newTestService(nil)

	view, err := service.StartSession(ctx, "psych")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if view.State != app.StateNotStarted {
		t.Fatalf("expected not started, got %s", view.State)
	}

	mustAnswer(t, service, view.ID, "q1", "c1") // 10
	mustAnswer(t, service, view.ID, "q2", "c5") // 25
	if got, _ := service.Session(ctx, view.ID); got.State != app.StateInProgress {
		t.Fatalf("expected in progress, got %s", got.State)
	}

	outcome, err := service.CompleteSession(ctx, view.ID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if outcome.State != app.StateResolved || outcome.TotalScore != 35 {
		t.Fatalf("unexpected outcome %+v", outcome)
	}
	if outcome.Result == nil || outcome.Result.ID != "high" {
		t.Fatalf("expected high result, got %+v", outcome.Result)
	}

	stored, ok := responses.Get(view.ID)
	if !ok || stored.MatchedResultID == nil || *stored.MatchedResultID != "high" || len(stored.Answers) != 2 {
		t.Fatalf("expected stored session, got %+v", stored)
	}

	if _, err := service.RecordAnswer(ctx, view.ID, "q1", "c2"); !errors.Is(err, domain.ErrSessionAlreadyResolved) {
		t.Fatalf("expected already resolved, got %v", err)
	}
	if _, err := service.CompleteSession(ctx, view.ID, ""); !errors.Is(err, domain.ErrSessionAlreadyResolved) {
		t.Fatalf("expected already resolved on second completion, got %v", err)
	}
}

func TestRevisedAnswerReplacesEarlierOne(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)
	view, _ := service.StartSession(ctx, "psych")

	mustAnswer(t, service, view.ID, "q1", "c1") // 10
	mustAnswer(t, service, view.ID, "q2", "c5") // 25
	mustAnswer(t, service, view.ID, "q2", "c4") // 0, replaces 25

	outcome, err := service.CompleteSession(ctx, view.ID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if outcome.TotalScore != 10 || outcome.Result.ID != "low" {
		t.Fatalf("expected low with 10, got %+v", outcome)
	}
}

func TestNoMatchIsAnOutcome(t *testing.T) {
	ctx := context.Background()
	service, responses := newTestService(nil)
	view, _ := service.StartSession(ctx, "quiz")

	outcome, err := service.CompleteSession(ctx, view.ID, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if !outcome.NoMatch || outcome.Result != nil || outcome.State != app.StateResolved {
		t.Fatalf("expected resolved NoMatch, got %+v", outcome)
	}
	stored, _ := responses.Get(view.ID)
	if stored.MatchedResultID != nil {
		t.Fatalf("expected null result id, got %v", *stored.MatchedResultID)
	}
}

func TestQuizScoringAndDemographic(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)
	view, _ := service.StartSession(ctx, "quiz")

	answer, err := service.RecordAnswer(ctx, view.ID, "q1", "right")
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if answer.Weight != 3 {
		t.Fatalf("expected 3 points, got %d", answer.Weight)
	}
	mustAnswer(t, service, view.ID, "q2", "wrong")

	outcome, err := service.CompleteSession(ctx, view.ID, "f")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if outcome.Result == nil || outcome.Result.ID != "passed-f" {
		t.Fatalf("expected passed-f, got %+v", outcome)
	}
}

func TestRecordAnswerValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)

	if _, err := service.RecordAnswer(ctx, "missing", "q1", "c1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected session not found, got %v", err)
	}
	if _, err := service.StartSession(ctx, "unknown"); !errors.Is(err, domain.ErrTestNotFound) {
		t.Fatalf("expected test not found, got %v", err)
	}

	view, _ := service.StartSession(ctx, "psych")
	if _, err := service.RecordAnswer(ctx, view.ID, "q9", "c1"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, err := service.RecordAnswer(ctx, view.ID, "q1", "c9"); !errors.Is(err, domain.ErrChoiceNotFound) {
		t.Fatalf("expected choice not found, got %v", err)
	}
}

func TestStoreFailureKeepsSessionRetryable(t *testing.T) {
	ctx := context.Background()
	failing := &flakyResponses{ResponseStore: memory.NewResponseStore(), failures: 1}
	service, _ := newTestService(failing)
	view, _ := service.StartSession(ctx, "psych")
	mustAnswer(t, service, view.ID, "q1", "c1")

	if _, err := service.CompleteSession(ctx, view.ID, ""); !errors.Is(err, domain.ErrPersistenceWriteFailed) {
		t.Fatalf("expected write failure, got %v", err)
	}
	if got, _ := service.Session(ctx, view.ID); got.State != app.StateCompleted {
		t.Fatalf("expected completed after failed store, got %s", got.State)
	}
	if _, err := service.RecordAnswer(ctx, view.ID, "q2", "c5"); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed rejection, got %v", err)
	}

	outcome, err := service.CompleteSession(ctx, view.ID, "")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if outcome.State != app.StateResolved || outcome.Result.ID != "low" {
		t.Fatalf("expected resolved low after retry, got %+v", outcome)
	}
}

func TestBalanceSessionVotes(t *testing.T) {
	ctx := context.Background()
	service, responses := newTestService(nil)
	view, _ := service.StartSession(ctx, "balance")

	if _, err := service.RecordAnswer(ctx, view.ID, "b1", "left"); !errors.Is(err, domain.ErrWrongTestKind) {
		t.Fatalf("expected wrong kind for scored answer, got %v", err)
	}

	tally, pct, err := service.LoadTally(ctx, view.ID, "b1")
	if err != nil {
		t.Fatalf("load tally: %v", err)
	}
	if tally.Total() != 0 || pct.A != 50 || pct.B != 50 {
		t.Fatalf("expected empty 50/50 tally, got %+v %+v", tally, pct)
	}

	var projected domain.Percentages
	outcome, err := service.CastVote(ctx, view.ID, "b1", "left", func(p domain.Percentages) { projected = p })
	if err != nil {
		t.Fatalf("vote: %v", err)
	}
	if projected.A != 100 || outcome.Tally.A.Count != 1 || outcome.Percentages.A != 100 {
		t.Fatalf("unexpected vote outcome %+v (projected %+v)", outcome, projected)
	}

	// A second session sees the first vote and may vote again; duplicates are accepted.
	other, _ := service.StartSession(ctx, "balance")
	outcome, err = service.CastVote(ctx, other.ID, "b1", "right", nil)
	if err != nil {
		t.Fatalf("vote 2: %v", err)
	}
	if outcome.Tally.A.Count != 1 || outcome.Tally.B.Count != 1 {
		t.Fatalf("expected 1/1, got %+v", outcome.Tally)
	}

	if _, err := service.ResetVote(ctx, view.ID, "b1"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	done, err := service.CompleteSession(ctx, view.ID, "")
	if err != nil {
		t.Fatalf("complete balance: %v", err)
	}
	if done.State != app.StateCompleted || done.Result != nil {
		t.Fatalf("expected completed balance session without result, got %+v", done)
	}
	if _, ok := responses.Get(view.ID); !ok {
		t.Fatalf("expected balance session stored")
	}
	if _, err := service.CastVote(ctx, view.ID, "b1", "left", nil); !errors.Is(err, domain.ErrSessionCompleted) {
		t.Fatalf("expected completed rejection, got %v", err)
	}
}

func TestVoteOnScoredTestRejected(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)
	view, _ := service.StartSession(ctx, "psych")
	if _, err := service.CastVote(ctx, view.ID, "q1", "c1", nil); !errors.Is(err, domain.ErrWrongTestKind) {
		t.Fatalf("expected wrong kind, got %v", err)
	}
}

func TestResultStatsAndCandidates(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)
	for i := 0; i < 3; i++ {
		view, _ := service.StartSession(ctx, "psych")
		mustAnswer(t, service, view.ID, "q2", "c5")
		if _, err := service.CompleteSession(ctx, view.ID, ""); err != nil {
			t.Fatalf("complete: %v", err)
		}
	}
	stats, err := service.ResultStats(ctx, "psych")
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Sessions != 3 || len(stats.Breakdown) != 1 || stats.Breakdown[0].ResultID != "high" {
		t.Fatalf("unexpected stats %+v", stats)
	}

	results, err := service.CandidateResults(ctx, "psych")
	if err != nil || len(results) != 2 {
		t.Fatalf("expected 2 candidates, got %d (%v)", len(results), err)
	}
}

func TestQuestionTallyReadsStore(t *testing.T) {
	ctx := context.Background()
	service, _ := newTestService(nil)
	view, _ := service.StartSession(ctx, "balance")
	if _, err := service.CastVote(ctx, view.ID, "b1", "right", nil); err != nil {
		t.Fatalf("vote: %v", err)
	}

	tally, pct, err := service.QuestionTally(ctx, "balance", "b1")
	if err != nil {
		t.Fatalf("question tally: %v", err)
	}
	if tally.B.Count != 1 || pct.B != 100 {
		t.Fatalf("unexpected tally %+v %+v", tally, pct)
	}
	if _, _, err := service.QuestionTally(ctx, "balance", "nope"); !errors.Is(err, domain.ErrQuestionNotFound) {
		t.Fatalf("expected question not found, got %v", err)
	}
	if _, _, err := service.QuestionTally(ctx, "psych", "q1"); !errors.Is(err, domain.ErrWrongTestKind) {
		t.Fatalf("expected wrong kind, got %v", err)
	}
}

func TestSupersededVoteStaysOutOfAnswerLog(t *testing.T) {
	ctx := context.Background()
	tallies := &stallingTallies{
		TallyStore: memory.NewTallyStore(),
		entered:    make(chan struct{}, 1),
		release:    make(chan struct{}),
	}
	responses := memory.NewResponseStore()
	tests := memory.NewTestRepository(memory.NewStaticTestLoader(sampleTests()), 5*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewTestService(memory.NewSessionStore(time.Hour), tests, tallies, responses, logger)

	view, _ := service.StartSession(ctx, "balance")
	first := make(chan error, 1)
	go func() {
		outcome, err := service.CastVote(ctx, view.ID, "b1", "left", nil)
		if err == nil && !outcome.Superseded {
			err = errors.New("expected stalled vote to be superseded")
		}
		first <- err
	}()
	<-tallies.entered

	if _, err := service.CastVote(ctx, view.ID, "b1", "right", nil); err != nil {
		t.Fatalf("second vote: %v", err)
	}
	close(tallies.release)
	if err := <-first; err != nil {
		t.Fatalf("first vote: %v", err)
	}

	if _, err := service.CompleteSession(ctx, view.ID, ""); err != nil {
		t.Fatalf("complete: %v", err)
	}
	stored, ok := responses.Get(view.ID)
	if !ok {
		t.Fatalf("expected stored session")
	}
	if len(stored.Answers) != 1 || stored.Answers[0].ChoiceID != "right" {
		t.Fatalf("expected only the confirmed vote in the log, got %+v", stored.Answers)
	}
}

// stallingTallies holds the first increment until release is closed and then
// fails it, leaving every later increment to the wrapped store.
type stallingTallies struct {
	*memory.TallyStore
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *stallingTallies) IncrementChoice(ctx context.Context, question domain.Question, choiceID string) (domain.VoteTally, error) {
	stall := false
	s.once.Do(func() { stall = true })
	if stall {
		s.entered <- struct{}{}
		<-s.release
		return domain.VoteTally{}, errors.New("database unavailable")
	}
	return s.TallyStore.IncrementChoice(ctx, question, choiceID)
}

func TestSessionTimestampsFollowClock(t *testing.T) {
	start := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	session := app.NewSessionWithClock("s-1", sampleTests()["psych"], nil, func() time.Time { return start })

	view := session.View()
	if !view.CreatedAt.Equal(start) || view.State != app.StateNotStarted || view.TestID != "psych" {
		t.Fatalf("unexpected view %+v", view)
	}
	if len(session.Answers()) != 0 {
		t.Fatalf("expected empty answer log")
	}
}

func mustAnswer(t *testing.T, service *app.TestService, sessionID, questionID, choiceID string) {
	t.Helper()
	if _, err := service.RecordAnswer(context.Background(), sessionID, questionID, choiceID); err != nil {
		t.Fatalf("answer %s/%s: %v", questionID, choiceID, err)
	}
}

type flakyResponses struct {
	*memory.ResponseStore
	failures int
}

func (f *flakyResponses) StoreCompletedSession(ctx context.Context, completed domain.CompletedSession) error {
	if f.failures > 0 {
		f.failures--
		return errors.New("database unavailable")
	}
	return f.ResponseStore.StoreCompletedSession(ctx, completed)
}

func newTestService(responses app.ResponseStore) (*app.TestService, *memory.ResponseStore) {
	mem := memory.NewResponseStore()
	if responses == nil {
		responses = mem
	} else if flaky, ok := responses.(*flakyResponses); ok {
		mem = flaky.ResponseStore
	}
	tests := memory.NewTestRepository(memory.NewStaticTestLoader(sampleTests()), 5*time.Minute)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	service := app.NewTestService(memory.NewSessionStore(time.Hour), tests, memory.NewTallyStore(), responses, logger)
	return service, mem
}

func sampleTests() map[string]domain.Test {
	return map[string]domain.Test{
		"psych": {
			ID:   "psych",
			Kind: domain.KindPsychology,
			Questions: []domain.Question{
				{ID: "q1", Choices: []domain.Choice{{ID: "c1", Weight: 10}, {ID: "c2", Weight: 0}}},
				{ID: "q2", Choices: []domain.Choice{{ID: "c4", Weight: 0}, {ID: "c5", Weight: 25}}},
			},
			Results: []domain.Result{
				{ID: "low", Priority: 1, Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(0), domain.Bound(20))}},
				{ID: "high", Priority: 1, Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(20), domain.Bound(40))}},
			},
		},
		"quiz": {
			ID:   "quiz",
			Kind: domain.KindQuiz,
			Questions: []domain.Question{
				{ID: "q1", Points: 3, Choices: []domain.Choice{{ID: "right", Correct: true}, {ID: "wrong"}}},
				{ID: "q2", Choices: []domain.Choice{{ID: "right", Correct: true}, {ID: "wrong"}}},
			},
			Results: []domain.Result{
				{ID: "passed-f", Priority: 1, Conditions: []domain.Condition{
					domain.RangeCondition(domain.Bound(3), nil),
					domain.DemographicCondition("f"),
				}},
				{ID: "passed", Priority: 2, Conditions: []domain.Condition{domain.RangeCondition(domain.Bound(3), nil)}},
			},
		},
		"balance": {
			ID:   "balance",
			Kind: domain.KindBalance,
			Questions: []domain.Question{
				{ID: "b1", Prompt: "Mountains or sea?", Choices: []domain.Choice{{ID: "left", Text: "Mountains"}, {ID: "right", Text: "Sea"}}},
			},
		},
	}
}
