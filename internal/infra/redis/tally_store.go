package redis

import (
	"context"
	"fmt"
	"strconv"

	"quiz-result-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

// TallyStore keeps balance vote counts in a Redis hash per question:
//
//	HINCRBY balance:{questionID}:votes {choiceID} 1
//
// The increment and the read-back of both choices run in one MULTI block, so
// concurrent voters never lose updates and each caller sees the totals right
// after its own increment.
type TallyStore struct {
	client *redis.Client
}

func NewTallyStore(client *redis.Client) *TallyStore {
	return &TallyStore{client: client}
}

func (s *TallyStore) FetchVoteTally(ctx context.Context, question domain.Question) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	a, b := question.Choices[0].ID, question.Choices[1].ID
	values, err := s.client.HMGet(ctx, s.key(question.ID), a, b).Result()
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("hmget tally: %w", err)
	}
	return buildTally(question, values)
}

func (s *TallyStore) IncrementChoice(ctx context.Context, question domain.Question, choiceID string) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	if _, ok := question.Choice(choiceID); !ok {
		return domain.VoteTally{}, domain.ErrChoiceNotFound
	}
	key := s.key(question.ID)
	var counts *redis.SliceCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, key, choiceID, 1)
		counts = pipe.HMGet(ctx, key, question.Choices[0].ID, question.Choices[1].ID)
		return nil
	})
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("increment tally: %w", err)
	}
	return buildTally(question, counts.Val())
}

func (s *TallyStore) key(questionID string) string {
	return "balance:" + questionID + ":votes"
}

func buildTally(question domain.Question, values []interface{}) (domain.VoteTally, error) {
	if len(values) != 2 {
		return domain.VoteTally{}, fmt.Errorf("tally for %s: expected 2 values, got %d", question.ID, len(values))
	}
	a, err := parseCount(values[0])
	if err != nil {
		return domain.VoteTally{}, err
	}
	b, err := parseCount(values[1])
	if err != nil {
		return domain.VoteTally{}, err
	}
	return domain.VoteTally{
		QuestionID: question.ID,
		A:          domain.ChoiceCount{ChoiceID: question.Choices[0].ID, Count: a},
		B:          domain.ChoiceCount{ChoiceID: question.Choices[1].ID, Count: b},
	}, nil
}

// parseCount treats a missing hash field as zero votes.
func parseCount(v interface{}) (int64, error) {
	switch raw := v.(type) {
	case nil:
		return 0, nil
	case string:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse vote count %q: %w", raw, err)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("unexpected vote count type %T", v)
	}
}
