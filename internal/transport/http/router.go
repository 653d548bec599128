package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter mounts the REST API, the websocket endpoint and health checks.
func NewRouter(svc testService, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	handler := NewHandler(svc)
	ws := NewWSHandler(svc, logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
	r.Get("/ws", ws.ServeWS)

	r.Route("/api/v1", func(api chi.Router) {
		api.Post("/sessions", handler.StartSession)
		api.Get("/sessions/{sessionID}", handler.GetSession)
		api.Delete("/sessions/{sessionID}", handler.EndSession)
		api.Put("/sessions/{sessionID}/answers/{questionID}", handler.SaveAnswer)
		api.Post("/sessions/{sessionID}/complete", handler.Complete)
		api.Get("/sessions/{sessionID}/tally/{questionID}", handler.SessionTally)
		api.Post("/sessions/{sessionID}/votes/{questionID}", handler.Vote)
		api.Delete("/sessions/{sessionID}/votes/{questionID}", handler.ResetVote)

		api.Get("/tests/{testID}/results", handler.Results)
		api.Get("/tests/{testID}/stats", handler.Stats)
		api.Get("/tests/{testID}/questions/{questionID}/tally", handler.QuestionTally)
	})

	return r
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
