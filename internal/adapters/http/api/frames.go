package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/okian/repcoach/internal/adapters/mq/queue"
	"github.com/okian/repcoach/internal/domain/pose"
)

// FramesHandler handles landmark frame intake.
type FramesHandler struct {
	deps FrameDependencies
}

// NewFramesHandler creates a new frames handler.
func NewFramesHandler(deps FrameDependencies) *FramesHandler {
	return &FramesHandler{deps: deps}
}

// HandlePostFrame handles POST /sessions/{id}/frames. An empty landmark list
// is a valid "no pose detected" frame.
func (h *FramesHandler) HandlePostFrame(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_frame"
	var f pose.Frame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if n := len(f.Landmarks); n != 0 && n != pose.LandmarkCount {
		writeError(w, http.StatusBadRequest, "bad_request",
			WrapKind(op, ErrBadRequest, fmt.Errorf("expected %d landmarks, got %d", pose.LandmarkCount, n)))
		return
	}

	dup, err := h.deps.SubmitFrame(r.Context(), r.PathValue("id"), f)
	switch {
	case errors.Is(err, queue.ErrFull):
		writeError(w, http.StatusTooManyRequests, "backpressure", WrapKind(op, ErrBackpressure, err))
		return
	case errors.Is(err, queue.ErrClosed):
		writeError(w, http.StatusGone, "closed", err)
		return
	case err != nil:
		writeServiceError(w, op, err)
		return
	case dup:
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted"})
}
