package domain

import (
	"fmt"
	"time"
)

// Kind selects how answers to a test are scored.
type Kind string

const (
	KindPsychology Kind = "psychology"
	KindQuiz       Kind = "quiz"
	KindBalance    Kind = "balance"
)

// TotalScore is the sum of the weights in a session's answer log.
type TotalScore = int64

// Choice is one selectable answer of a question.
type Choice struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Weight  int64  `json:"weight"`
	Correct bool   `json:"correct"`
}

// Question is a test item with its choices.
type Question struct {
	ID      string   `json:"id"`
	Ordinal int      `json:"ordinal"`
	Prompt  string   `json:"prompt"`
	Choices []Choice `json:"choices"`
	Points  int64    `json:"points"` // quiz kind only, defaults to 1 if zero
}

// Choice looks up a choice by ID.
func (q Question) Choice(choiceID string) (Choice, bool) {
	for _, c := range q.Choices {
		if c.ID == choiceID {
			return c, true
		}
	}
	return Choice{}, false
}

// ValidateBalance checks that the question can back a two-way vote.
func (q Question) ValidateBalance() error {
	if len(q.Choices) != 2 {
		return fmt.Errorf("question %s has %d choices: %w", q.ID, len(q.Choices), ErrNotBalanceQuestion)
	}
	if q.Choices[0].ID == q.Choices[1].ID {
		return fmt.Errorf("question %s repeats choice %s: %w", q.ID, q.Choices[0].ID, ErrNotBalanceQuestion)
	}
	return nil
}

// Test is a collection of questions and the results a completed session can resolve to.
type Test struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Kind      Kind       `json:"kind"`
	Questions []Question `json:"questions"`
	Results   []Result   `json:"results"`
}

// Question looks up a question by ID.
func (t Test) Question(questionID string) (Question, bool) {
	for _, q := range t.Questions {
		if q.ID == questionID {
			return q, true
		}
	}
	return Question{}, false
}

// Validate reports authoring problems: duplicate choice IDs, malformed balance
// questions, malformed match conditions and more than one default result.
func (t Test) Validate() []error {
	var errs []error
	for _, q := range t.Questions {
		seen := make(map[string]struct{}, len(q.Choices))
		for _, c := range q.Choices {
			if _, dup := seen[c.ID]; dup {
				errs = append(errs, fmt.Errorf("question %s: duplicate choice %s", q.ID, c.ID))
			}
			seen[c.ID] = struct{}{}
		}
		if t.Kind == KindBalance {
			if err := q.ValidateBalance(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	defaults := 0
	for _, r := range t.Results {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
		if r.IsDefault() {
			defaults++
		}
	}
	if defaults > 1 {
		errs = append(errs, fmt.Errorf("test %s has %d default results, at most one allowed", t.ID, defaults))
	}
	return errs
}

// Answer is one recorded (question, choice) pair. Immutable once in a session log.
type Answer struct {
	QuestionID string    `json:"questionId"`
	ChoiceID   string    `json:"choiceId"`
	Weight     int64     `json:"weight"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// ChoiceCount is the cumulative vote count of one balance choice.
type ChoiceCount struct {
	ChoiceID string `json:"choiceId"`
	Count    int64  `json:"count"`
}

// VoteTally holds the counts of both choices of a balance question.
type VoteTally struct {
	QuestionID string      `json:"questionId"`
	A          ChoiceCount `json:"a"`
	B          ChoiceCount `json:"b"`
}

// Total is the number of votes cast on the question.
func (t VoteTally) Total() int64 {
	return t.A.Count + t.B.Count
}

// Percentages is the display split of a tally.
type Percentages struct {
	A int `json:"a"`
	B int `json:"b"`
}

// CompletedSession is what gets persisted once a session finishes.
type CompletedSession struct {
	SessionID       string    `json:"sessionId"`
	TestID          string    `json:"testId"`
	TotalScore      int64     `json:"totalScore"`
	MatchedResultID *string   `json:"matchedResultId,omitempty"`
	Answers         []Answer  `json:"answers"`
	CompletedAt     time.Time `json:"completedAt"`
}

// ResultCount is one row of the result distribution of a test.
type ResultCount struct {
	ResultID string `json:"resultId"` // empty for sessions without a match
	Count    int64  `json:"count"`
}

// ResultStats aggregates stored sessions of a test.
type ResultStats struct {
	TestID    string        `json:"testId"`
	Sessions  int64         `json:"sessions"`
	AvgScore  float64       `json:"avgScore"`
	Unmatched int64         `json:"unmatched"`
	Breakdown []ResultCount `json:"breakdown"`
}
