package postgres

import (
	"context"
	"fmt"

	"quiz-result-service/internal/domain"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// TallyStore keeps balance vote counts in the balance_votes table. Each
// increment is a single upsert, so Postgres row locking serializes concurrent
// voters on the same choice.
type TallyStore struct {
	pool *pgxpool.Pool
}

func NewTallyStore(pool *pgxpool.Pool) *TallyStore {
	return &TallyStore{pool: pool}
}

const incrementVoteSQL = `
INSERT INTO balance_votes (question_id, choice_id, votes)
VALUES ($1, $2, 1)
ON CONFLICT (question_id, choice_id) DO UPDATE SET votes = balance_votes.votes + 1`

const selectVotesSQL = `SELECT choice_id, votes FROM balance_votes WHERE question_id=$1 AND choice_id IN ($2, $3)`

func (s *TallyStore) FetchVoteTally(ctx context.Context, question domain.Question) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	return s.read(ctx, s.pool, question)
}

func (s *TallyStore) IncrementChoice(ctx context.Context, question domain.Question, choiceID string) (domain.VoteTally, error) {
	if err := question.ValidateBalance(); err != nil {
		return domain.VoteTally{}, err
	}
	if _, ok := question.Choice(choiceID); !ok {
		return domain.VoteTally{}, domain.ErrChoiceNotFound
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("begin vote: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, incrementVoteSQL, question.ID, choiceID); err != nil {
		return domain.VoteTally{}, fmt.Errorf("increment vote: %w", err)
	}
	tally, err := s.read(ctx, tx, question)
	if err != nil {
		return domain.VoteTally{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.VoteTally{}, fmt.Errorf("commit vote: %w", err)
	}
	return tally, nil
}

// rowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx.
type rowQuerier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

func (s *TallyStore) read(ctx context.Context, q rowQuerier, question domain.Question) (domain.VoteTally, error) {
	a, b := question.Choices[0].ID, question.Choices[1].ID
	rows, err := q.Query(ctx, selectVotesSQL, question.ID, a, b)
	if err != nil {
		return domain.VoteTally{}, fmt.Errorf("read votes: %w", err)
	}
	defer rows.Close()

	tally := domain.VoteTally{
		QuestionID: question.ID,
		A:          domain.ChoiceCount{ChoiceID: a},
		B:          domain.ChoiceCount{ChoiceID: b},
	}
	for rows.Next() {
		var choiceID string
		var votes int64
		if err := rows.Scan(&choiceID, &votes); err != nil {
			return domain.VoteTally{}, fmt.Errorf("scan votes: %w", err)
		}
		switch choiceID {
		case a:
			tally.A.Count = votes
		case b:
			tally.B.Count = votes
		}
	}
	if err := rows.Err(); err != nil {
		return domain.VoteTally{}, fmt.Errorf("read votes: %w", err)
	}
	return tally, nil
}
