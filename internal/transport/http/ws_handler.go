package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"quiz-result-service/internal/domain"

	"github.com/gorilla/websocket"
)

// WSHandler serves one test-taking session per websocket connection.
type WSHandler struct {
	service  testService
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service testService, logger *slog.Logger) *WSHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WSHandler{
		service: service,
		logger:  logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type wsErrorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, starts a session for ?testId= and dispatches
// client messages until the connection closes. The session is dropped on close.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	testID := r.URL.Query().Get("testId")
	if testID == "" {
		http.Error(w, "missing testId", http.StatusBadRequest)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("ws upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	view, err := h.service.StartSession(ctx, testID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: wsErrorPayload{Message: err.Error()}})
		return
	}
	defer h.service.EndSession(context.Background(), view.ID)
	logger := h.logger.With("session_id", view.ID, "test_id", testID)

	send := make(chan outboundMessage, 16)
	writerDone := make(chan struct{})

	// single writer; gorilla connections do not support concurrent writes
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Warn("ws write error", "error", err)
				for range send {
				}
				return
			}
		}
	}()

	send <- outboundMessage{Type: "started", Payload: view}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		h.dispatch(ctx, view.ID, inbound, send, logger)
	}

	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage, send chan<- outboundMessage, logger *slog.Logger) {
	fail := func(msg string) {
		send <- outboundMessage{Type: "error", Payload: wsErrorPayload{Message: msg}}
	}

	switch inbound.Type {
	case "answer":
		var payload answerRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid answer payload")
			return
		}
		answer, err := h.service.RecordAnswer(ctx, sessionID, payload.QuestionID, payload.ChoiceID)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage{Type: "answerRecorded", Payload: answer}

	case "complete":
		var payload completeRequest
		if len(inbound.Payload) > 0 {
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				fail("invalid complete payload")
				return
			}
		}
		outcome, err := h.service.CompleteSession(ctx, sessionID, payload.Demographic)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage{Type: "result", Payload: newResultPayload(outcome)}

	case "tally":
		var payload questionRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid tally payload")
			return
		}
		tally, pct, err := h.service.LoadTally(ctx, sessionID, payload.QuestionID)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage{Type: "tally", Payload: tallyPayload{QuestionID: payload.QuestionID, Tally: tally, Percentages: pct}}

	case "vote":
		var payload answerRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid vote payload")
			return
		}
		onProjected := func(pct domain.Percentages) {
			send <- outboundMessage{Type: "voteProjected", Payload: votePayload{QuestionID: payload.QuestionID, Percentages: pct}}
		}
		outcome, err := h.service.CastVote(ctx, sessionID, payload.QuestionID, payload.ChoiceID, onProjected)
		if errors.Is(err, domain.ErrPersistenceWriteFailed) {
			logger.Warn("vote write failed", "question_id", payload.QuestionID, "error", err)
			failed := newVotePayload(payload.QuestionID, outcome)
			failed.Message = "vote not saved, please retry"
			send <- outboundMessage{Type: "voteFailed", Payload: failed}
			return
		}
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage{Type: "voteConfirmed", Payload: newVotePayload(payload.QuestionID, outcome)}

	case "reset":
		var payload questionRequest
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			fail("invalid reset payload")
			return
		}
		pct, err := h.service.ResetVote(ctx, sessionID, payload.QuestionID)
		if err != nil {
			fail(err.Error())
			return
		}
		send <- outboundMessage{Type: "voteReset", Payload: votePayload{QuestionID: payload.QuestionID, Percentages: pct}}

	default:
		fail("unsupported message type")
	}
}
