package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"quiz-result-service/internal/domain"

	"github.com/go-chi/chi/v5/middleware"
)

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type meta struct {
	RequestID string `json:"request_id,omitempty"`
}

type envelope struct {
	OK    bool          `json:"ok"`
	Data  interface{}   `json:"data,omitempty"`
	Error *errorPayload `json:"error,omitempty"`
	Meta  meta          `json:"meta"`
}

func writeOK(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeEnvelope(w, r, status, envelope{OK: true, Data: data})
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	if msg == "" {
		msg = http.StatusText(status)
	}
	writeEnvelope(w, r, status, envelope{Error: &errorPayload{Code: codeFromStatus(status), Message: msg}})
}

// writeServiceError maps domain errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = ""
	}
	writeError(w, r, status, msg)
}

func writeEnvelope(w http.ResponseWriter, r *http.Request, status int, res envelope) {
	res.Meta.RequestID = middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(res)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrTestNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrChoiceNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionCompleted),
		errors.Is(err, domain.ErrSessionAlreadyResolved):
		return http.StatusConflict
	case errors.Is(err, domain.ErrWrongTestKind),
		errors.Is(err, domain.ErrNotBalanceQuestion),
		errors.Is(err, domain.ErrTallyNotLoaded),
		errors.Is(err, domain.ErrMalformedMatchCondition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrPersistenceWriteFailed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func codeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid_request"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusServiceUnavailable:
		return "unavailable"
	case http.StatusInternalServerError:
		return "internal_error"
	default:
		if status >= 200 && status < 300 {
			return ""
		}
		return "error"
	}
}
