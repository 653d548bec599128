package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"quiz-result-service/internal/app"
	"quiz-result-service/internal/domain"
	"quiz-result-service/internal/engine"

	"github.com/go-chi/chi/v5"
)

type testService interface {
	StartSession(ctx context.Context, testID string) (app.SessionView, error)
	Session(ctx context.Context, sessionID string) (app.SessionView, error)
	RecordAnswer(ctx context.Context, sessionID, questionID, choiceID string) (domain.Answer, error)
	CompleteSession(ctx context.Context, sessionID, demographic string) (app.Outcome, error)
	LoadTally(ctx context.Context, sessionID, questionID string) (domain.VoteTally, domain.Percentages, error)
	CastVote(ctx context.Context, sessionID, questionID, choiceID string, onProjected func(domain.Percentages)) (engine.VoteOutcome, error)
	ResetVote(ctx context.Context, sessionID, questionID string) (domain.Percentages, error)
	QuestionTally(ctx context.Context, testID, questionID string) (domain.VoteTally, domain.Percentages, error)
	CandidateResults(ctx context.Context, testID string) ([]domain.Result, error)
	ResultStats(ctx context.Context, testID string) (domain.ResultStats, error)
	EndSession(ctx context.Context, sessionID string)
}

// Handler serves the REST API over a TestService.
type Handler struct {
	svc testService
}

type startSessionRequest struct {
	TestID string `json:"testId"`
}

type choiceRequest struct {
	ChoiceID string `json:"choiceId"`
}

func NewHandler(svc testService) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) StartSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.TestID == "" {
		writeError(w, r, http.StatusBadRequest, "testId is required")
		return
	}
	view, err := h.svc.StartSession(r.Context(), req.TestID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusCreated, view)
}

func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Session(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, view)
}

func (h *Handler) EndSession(w http.ResponseWriter, r *http.Request) {
	h.svc.EndSession(r.Context(), chi.URLParam(r, "sessionID"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SaveAnswer(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChoiceID == "" {
		writeError(w, r, http.StatusBadRequest, "choiceId is required")
		return
	}
	answer, err := h.svc.RecordAnswer(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "questionID"), req.ChoiceID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, answer)
}

func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	// an empty body means no demographic
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	outcome, err := h.svc.CompleteSession(r.Context(), chi.URLParam(r, "sessionID"), req.Demographic)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, newResultPayload(outcome))
}

func (h *Handler) SessionTally(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	tally, pct, err := h.svc.LoadTally(r.Context(), chi.URLParam(r, "sessionID"), questionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, tallyPayload{QuestionID: questionID, Tally: tally, Percentages: pct})
}

func (h *Handler) Vote(w http.ResponseWriter, r *http.Request) {
	var req choiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ChoiceID == "" {
		writeError(w, r, http.StatusBadRequest, "choiceId is required")
		return
	}
	questionID := chi.URLParam(r, "questionID")
	outcome, err := h.svc.CastVote(r.Context(), chi.URLParam(r, "sessionID"), questionID, req.ChoiceID, nil)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, newVotePayload(questionID, outcome))
}

func (h *Handler) ResetVote(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	pct, err := h.svc.ResetVote(r.Context(), chi.URLParam(r, "sessionID"), questionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, votePayload{QuestionID: questionID, Percentages: pct})
}

func (h *Handler) Results(w http.ResponseWriter, r *http.Request) {
	results, err := h.svc.CandidateResults(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, results)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.ResultStats(r.Context(), chi.URLParam(r, "testID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, stats)
}

func (h *Handler) QuestionTally(w http.ResponseWriter, r *http.Request) {
	questionID := chi.URLParam(r, "questionID")
	tally, pct, err := h.svc.QuestionTally(r.Context(), chi.URLParam(r, "testID"), questionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeOK(w, r, http.StatusOK, tallyPayload{QuestionID: questionID, Tally: tally, Percentages: pct})
}
