package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/okian/repcoach/internal/adapters/repository"
)

const defaultCompletionsLimit = 50

// CompletionsHandler serves persisted completion marks.
type CompletionsHandler struct {
	deps CompletionDependencies
}

// NewCompletionsHandler creates a new completions handler.
func NewCompletionsHandler(deps CompletionDependencies) *CompletionsHandler {
	return &CompletionsHandler{deps: deps}
}

// HandleList handles GET /completions?limit=N.
func (h *CompletionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_completions"
	limit := defaultCompletionsLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		limit = n
	}
	items, err := h.deps.Completions(r.Context(), limit)
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	if items == nil {
		items = []repository.Completion{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "count": len(items)})
}

// HandleGet handles GET /completions/{exercise_id}.
func (h *CompletionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_completion"
	c, err := h.deps.Completion(r.Context(), r.PathValue("exercise_id"))
	if errors.Is(err, repository.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not_found", WrapKind(op, ErrNotFound, err))
		return
	}
	if err != nil {
		writeServiceError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}
