package memory

import (
	"context"
	"sync"

	"quiz-result-service/internal/domain"
)

// TallyStore keeps balance vote counts in process. The mutex makes each
// increment atomic, which is all the vote counter asks of a store.
type TallyStore struct {
	mu     sync.Mutex
	counts map[string]map[string]int64
}

func NewTallyStore() *TallyStore {
	return &TallyStore{counts: make(map[string]map[string]int64)}
}

func (s *TallyStore) FetchVoteTally(_ context.Context, question domain.Question) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tallyLocked(question), nil
}

func (s *TallyStore) IncrementChoice(_ context.Context, question domain.Question, choiceID string) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	if _, ok := question.Choice(choiceID); !ok {
		return domain.VoteTally{}, domain.ErrChoiceNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	counts, ok := s.counts[question.ID]
	if !ok {
		counts = make(map[string]int64, 2)
		s.counts[question.ID] = counts
	}
	counts[choiceID]++
	return s.tallyLocked(question), nil
}

func (s *TallyStore) tallyLocked(question domain.Question) domain.VoteTally {
	counts := s.counts[question.ID]
	a, b := question.Choices[0].ID, question.Choices[1].ID
	return domain.VoteTally{
		QuestionID: question.ID,
		A:          domain.ChoiceCount{ChoiceID: a, Count: counts[a]},
		B:          domain.ChoiceCount{ChoiceID: b, Count: counts[b]},
	}
}
