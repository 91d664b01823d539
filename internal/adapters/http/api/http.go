// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/repcoach/internal/adapters/repository"
	"github.com/okian/repcoach/internal/domain/model"
	"github.com/okian/repcoach/internal/domain/pose"
	"github.com/okian/repcoach/internal/domain/session"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	SessionDependencies
	FrameDependencies
	CompletionDependencies
	StatsProvider
}

// SessionDependencies opens, reads and closes sessions.
type SessionDependencies interface {
	Open(ctx context.Context, ex model.Exercise) (session.Snapshot, error)
	Snapshot(ctx context.Context, id string) (session.Snapshot, error)
	Close(ctx context.Context, id string) (session.Snapshot, error)
}

// FrameDependencies accepts landmark frames.
type FrameDependencies interface {
	// SubmitFrame returns true when the frame was already accepted.
	SubmitFrame(ctx context.Context, id string, f pose.Frame) (bool, error)
}

// CompletionDependencies exposes persisted completion marks.
type CompletionDependencies interface {
	Completions(ctx context.Context, limit int) ([]repository.Completion, error)
	Completion(ctx context.Context, exerciseID string) (repository.Completion, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	sessionsHandler    *SessionsHandler
	framesHandler      *FramesHandler
	completionsHandler *CompletionsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(deps),
		sessionsHandler:    NewSessionsHandler(deps),
		framesHandler:      NewFramesHandler(deps),
		completionsHandler: NewCompletionsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("GET /metrics", s.healthHandler.MetricsHandler())
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sessions", MetricsMiddleware(s.sessionsHandler.HandleOpen, "sessions_open"))
	mux.HandleFunc("GET /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleGet, "sessions_get"))
	mux.HandleFunc("DELETE /sessions/{id}", MetricsMiddleware(s.sessionsHandler.HandleClose, "sessions_close"))
	mux.HandleFunc("POST /sessions/{id}/frames", MetricsMiddleware(s.framesHandler.HandlePostFrame, "frames"))

	mux.HandleFunc("GET /completions", MetricsMiddleware(s.completionsHandler.HandleList, "completions"))
	mux.HandleFunc("GET /completions/{exercise_id}", MetricsMiddleware(s.completionsHandler.HandleGet, "completion"))
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}
