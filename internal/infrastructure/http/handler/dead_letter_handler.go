package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/session-mesh/jobengine/engine"
	"github.com/session-mesh/jobengine/internal/infrastructure/http/response"
)

const defaultDeadLetterLimit = 50

// deadLetterJobView is the wire shape for a engine.DeadLetterJob.
type deadLetterJobView struct {
	ID             int64  `json:"id"`
	OriginalJobID  int64  `json:"original_job_id"`
	Variant        string `json:"variant"`
	FailureCount   int    `json:"failure_count"`
	Classification string `json:"classification"`
	Message        string `json:"message"`
	CreatedAt      int64  `json:"created_at_unix"`
}

func toDeadLetterJobView(j engine.DeadLetterJob) deadLetterJobView {
	return deadLetterJobView{
		ID:             j.ID,
		OriginalJobID:  j.OriginalJobID,
		Variant:        string(j.Variant),
		FailureCount:   j.FailureCount,
		Classification: j.Classification,
		Message:        j.Message,
		CreatedAt:      j.CreatedAtUnix,
	}
}

// ListDeadLetterJobs handles GET /dead-letter?limit=N.
func (h *AdminHandler) ListDeadLetterJobs(w http.ResponseWriter, r *http.Request) {
	limit := defaultDeadLetterLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			response.ValidationError(w, "limit", "must be a positive integer")
			return
		}
		limit = parsed
	}

	jobs, err := h.store.ListDeadLetter(r.Context(), limit)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to list dead letter jobs via HTTP",
			"limit", limit, "error", err)
		response.Error(w, "INTERNAL_ERROR", "failed to list dead letter jobs", http.StatusInternalServerError)
		return
	}

	views := make([]deadLetterJobView, len(jobs))
	for i, j := range jobs {
		views[i] = toDeadLetterJobView(j)
	}
	response.OK(w, map[string]any{"jobs": views})
}

// RetryDeadLetterJob handles POST /dead-letter/{id}/retry.
func (h *AdminHandler) RetryDeadLetterJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseDeadLetterID(r)
	if err != nil {
		response.ValidationError(w, "id", "must be an integer dead-letter ID")
		return
	}

	newJobID, err := h.store.RetryDeadLetter(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrDeadLetterNotFound) {
			response.Error(w, "NOT_FOUND", "dead letter job not found", http.StatusNotFound)
			return
		}
		slog.ErrorContext(r.Context(), "failed to retry dead letter job via HTTP",
			"dead_letter_id", id, "error", err)
		response.Error(w, "INTERNAL_ERROR", "failed to retry dead letter job", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "dead letter job retried via HTTP",
		"dead_letter_id", id, "new_job_id", newJobID)
	response.OK(w, map[string]any{"new_job_id": newJobID})
}

// DiscardDeadLetterJob handles POST /dead-letter/{id}/discard.
func (h *AdminHandler) DiscardDeadLetterJob(w http.ResponseWriter, r *http.Request) {
	id, err := parseDeadLetterID(r)
	if err != nil {
		response.ValidationError(w, "id", "must be an integer dead-letter ID")
		return
	}

	if err := h.store.DiscardDeadLetter(r.Context(), id); err != nil {
		slog.ErrorContext(r.Context(), "failed to discard dead letter job via HTTP",
			"dead_letter_id", id, "error", err)
		response.Error(w, "INTERNAL_ERROR", "failed to discard dead letter job", http.StatusInternalServerError)
		return
	}

	slog.InfoContext(r.Context(), "dead letter job discarded via HTTP", "dead_letter_id", id)
	w.WriteHeader(http.StatusNoContent)
}

func parseDeadLetterID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	return strconv.ParseInt(raw, 10, 64)
}
