package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"quiz-result-service/internal/domain"

	"github.com/uptrace/bun"
)

// ResponseStore persists completed sessions into the responses table through bun.
type ResponseStore struct {
	db *bun.DB
}

func NewResponseStore(db *bun.DB) *ResponseStore {
	return &ResponseStore{db: db}
}

type responseRow struct {
	bun.BaseModel `bun:"table:responses"`

	SessionID       string          `bun:"session_id,pk"`
	TestID          string          `bun:"test_id,notnull"`
	TotalScore      int64           `bun:"total_score,notnull"`
	MatchedResultID *string         `bun:"matched_result_id"`
	Answers         []domain.Answer `bun:"answers,type:jsonb,notnull"`
	CompletedAt     time.Time       `bun:"completed_at,notnull"`
}

// StoreCompletedSession upserts by session ID, so a retried store does not count twice.
func (s *ResponseStore) StoreCompletedSession(ctx context.Context, completed domain.CompletedSession) error {
	answers := completed.Answers
	if answers == nil {
		answers = []domain.Answer{}
	}
	row := responseRow{
		SessionID:       completed.SessionID,
		TestID:          completed.TestID,
		TotalScore:      completed.TotalScore,
		MatchedResultID: completed.MatchedResultID,
		Answers:         answers,
		CompletedAt:     completed.CompletedAt,
	}
	_, err := s.db.NewInsert().
		Model(&row).
		On("CONFLICT (session_id) DO UPDATE").
		Set("total_score = EXCLUDED.total_score").
		Set("matched_result_id = EXCLUDED.matched_result_id").
		Set("answers = EXCLUDED.answers").
		Set("completed_at = EXCLUDED.completed_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

type resultGroup struct {
	MatchedResultID sql.NullString `bun:"matched_result_id"`
	Count           int64          `bun:"count"`
	ScoreSum        int64          `bun:"score_sum"`
}

func (s *ResponseStore) ResultStats(ctx context.Context, testID string) (domain.ResultStats, error) {
	var groups []resultGroup
	err := s.db.NewSelect().
		TableExpr("responses").
		ColumnExpr("matched_result_id").
		ColumnExpr("count(*) AS count").
		ColumnExpr("coalesce(sum(total_score), 0) AS score_sum").
		Where("test_id = ?", testID).
		Group("matched_result_id").
		Scan(ctx, &groups)
	if err != nil {
		return domain.ResultStats{}, fmt.Errorf("select result stats: %w", err)
	}

	stats := domain.ResultStats{TestID: testID, Breakdown: []domain.ResultCount{}}
	var scoreSum int64
	for _, g := range groups {
		stats.Sessions += g.Count
		scoreSum += g.ScoreSum
		if !g.MatchedResultID.Valid {
			stats.Unmatched += g.Count
			continue
		}
		stats.Breakdown = append(stats.Breakdown, domain.ResultCount{ResultID: g.MatchedResultID.String, Count: g.Count})
	}
	if stats.Sessions > 0 {
		stats.AvgScore = float64(scoreSum) / float64(stats.Sessions)
	}
	sort.Slice(stats.Breakdown, func(i, j int) bool {
		if stats.Breakdown[i].Count != stats.Breakdown[j].Count {
			return stats.Breakdown[i].Count > stats.Breakdown[j].Count
		}
		return stats.Breakdown[i].ResultID < stats.Breakdown[j].ResultID
	})
	return stats, nil
}
