package http

import (
	"quiz-result-service/internal/app"
	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/engine"
)

const resultUnavailable = "result unavailable"

type answerRequest struct {
	QuestionID string `json:"questionId"`
	ChoiceID   string `json:"choiceId"`
}

type completeRequest struct {
	Demographic string `json:"demographic"`
}

type questionRequest struct {
	QuestionID string `json:"questionId"`
}

type resultPayload struct {
	app.Outcome
	Message string `json:"message,omitempty"`
}

func newResultPayload(outcome app.Outcome) resultPayload {
	p := resultPayload{Outcome: outcome}
	if outcome.NoMatch {
		p.Message = resultUnavailable
	}
	return p
}

type tallyPayload struct {
	QuestionID  string             `json:"questionId"`
	Tally       domain.VoteTally   `json:"tally"`
	Percentages domain.Percentages `json:"percentages"`
}

type votePayload struct {
	QuestionID  string             `json:"questionId"`
	Tally       domain.VoteTally   `json:"tally"`
	Percentages domain.Percentages `json:"percentages"`
	Superseded  bool               `json:"superseded,omitempty"`
	Message     string             `json:"message,omitempty"`
}

func newVotePayload(questionID string, outcome engine.VoteOutcome) votePayload {
	return votePayload{
		QuestionID:  questionID,
		Tally:       outcome.Tally,
		Percentages: outcome.Percentages,
		Superseded:  outcome.Superseded,
	}
}
