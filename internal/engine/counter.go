package engine

import (
	"context"
	"fmt"
	"sync"

	"quiz-result-service/internal/domain"
)

// TallyStore is the persistence side of balance votes. IncrementChoice must add
// exactly one vote atomically; the counter never does read-modify-write itself.
type TallyStore interface {
	FetchVoteTally(ctx context.Context, question domain.Question) (domain.VoteTally, error)
	IncrementChoice(ctx context.Context, question domain.Question, choiceID string) (domain.VoteTally, error)
}

// VoteOutcome is what the counter shows after a commit returned.
type VoteOutcome struct {
	Tally       domain.VoteTally   `json:"tally"`
	Percentages domain.Percentages `json:"percentages"`
	// Superseded is set when a newer vote on the same question was issued
	// while this one was in flight; its server response was discarded.
	Superseded bool `json:"superseded"`
}

// VoteCounter keeps one client session's view of balance tallies: the last
// authoritative tally per question plus at most one optimistic delta.
type VoteCounter struct {
	store TallyStore

	mu        sync.Mutex
	questions map[string]*tallyState
}

type tallyState struct {
	question      domain.Question
	authoritative domain.VoteTally
	delta         OptimisticDelta
	gen           uint64
}

func NewVoteCounter(store TallyStore) *VoteCounter {
	return &VoteCounter{
		store:     store,
		questions: make(map[string]*tallyState),
	}
}

// Load fetches the authoritative tally of a balance question and tracks it.
// A pending optimistic delta survives a reload.
func (c *VoteCounter) Load(ctx context.Context, question domain.Question) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	tally, err := c.store.FetchVoteTally(ctx, question)
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("fetch tally %s: %w", question.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.questions[question.ID]
	if !ok {
		st = &tallyState{question: question}
		c.questions[question.ID] = st
	}
	st.authoritative = tally
	return tally, nil
}

// GetTally returns the last known authoritative tally. It may be stale relative
// to other voters.
func (c *VoteCounter) GetTally(questionID string) (domain.VoteTally, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.questions[questionID]
	if !ok {
		return domain.VoteTally{}, false
	}
	return st.authoritative, true
}

// Displayed returns the tally as currently rendered, optimistic delta included.
func (c *VoteCounter) Displayed(questionID string) (domain.VoteTally, domain.Percentages, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.questions[questionID]
	if !ok {
		return domain.VoteTally{}, domain.Percentages{}, false
	}
	projected := Project(st.authoritative, st.delta)
	return projected, PercentagesOf(projected), true
}

// ApplyOptimistic projects a +1 on choiceID against the last known tally and
// returns the projected split. The authoritative tally is left untouched.
func (c *VoteCounter) ApplyOptimistic(questionID, choiceID string) (domain.Percentages, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, err := c.stateLocked(questionID, choiceID)
	if err != nil {
		return domain.Percentages{}, err
	}
	st.delta = OptimisticDelta{ChoiceID: choiceID, Amount: 1}
	return PercentagesOf(Project(st.authoritative, st.delta)), nil
}

// CommitVote asks the store for an atomic +1 on choiceID. On success the
// returned totals replace the authoritative tally and the optimistic delta is
// dropped; on failure only the delta is dropped, restoring the pre-vote view,
// and the error wraps domain.ErrPersistenceWriteFailed. Retrying is left to the caller.
func (c *VoteCounter) CommitVote(ctx context.Context, questionID, choiceID string) (VoteOutcome, error) {
	c.mu.Lock()
	st, err := c.stateLocked(questionID, choiceID)
	if err != nil {
		c.mu.Unlock()
		return VoteOutcome{}, err
	}
	st.gen++
	gen := st.gen
	question := st.question
	c.mu.Unlock()

	tally, err := c.store.IncrementChoice(ctx, question, choiceID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != st.gen {
		projected := Project(st.authoritative, st.delta)
		return VoteOutcome{Tally: projected, Percentages: PercentagesOf(projected), Superseded: true}, nil
	}
	st.delta = OptimisticDelta{}
	if err != nil {
		return VoteOutcome{Tally: st.authoritative, Percentages: PercentagesOf(st.authoritative)},
			fmt.Errorf("commit vote %s/%s: %w: %w", questionID, choiceID, domain.ErrPersistenceWriteFailed, err)
	}
	st.authoritative = tally
	return VoteOutcome{Tally: tally, Percentages: PercentagesOf(tally)}, nil
}

// CastVote is ApplyOptimistic followed by CommitVote. onProjected, when set,
// receives the optimistic split before the store is called.
func (c *VoteCounter) CastVote(ctx context.Context, questionID, choiceID string, onProjected func(domain.Percentages)) (VoteOutcome, error) {
	projected, err := c.ApplyOptimistic(questionID, choiceID)
	if err != nil {
		return VoteOutcome{}, err
	}
	if onProjected != nil {
		onProjected(projected)
	}
	return c.CommitVote(ctx, questionID, choiceID)
}

// Reset clears the local selection. The authoritative tally is never decremented.
func (c *VoteCounter) Reset(questionID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.questions[questionID]; ok {
		st.delta = OptimisticDelta{}
	}
}

func (c *VoteCounter) stateLocked(questionID, choiceID string) (*tallyState, error) {
	st, ok := c.questions[questionID]
	if !ok {
		return nil, fmt.Errorf("question %s: %w", questionID, domain.ErrTallyNotLoaded)
	}
	if _, ok := st.question.Choice(choiceID); !ok {
		return nil, fmt.Errorf("question %s choice %s: %w", questionID, choiceID, domain.ErrChoiceNotFound)
	}
	return st, nil
}
