// Package handler implements the admin HTTP API's route handlers:
// read/operate on the dead-letter queue that engine.Runner populates
// for permanently-failed jobs.
package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/session-mesh/jobengine/engine"
)

// AdminHandler adapts HTTP requests to the job store's dead-letter
// operations.
type AdminHandler struct {
	store engine.Store
}

// NewAdminHandler creates a new admin API handler over store.
func NewAdminHandler(store engine.Store) *AdminHandler {
	return &AdminHandler{store: store}
}

// NewRouter mounts the admin API routes onto a fresh chi.Router.
func NewRouter(store engine.Store) http.Handler {
	h := NewAdminHandler(store)

	r := chi.NewRouter()
	r.Get("/dead-letter", h.ListDeadLetterJobs)
	r.Post("/dead-letter/{id}/retry", h.RetryDeadLetterJob)
	r.Post("/dead-letter/{id}/discard", h.DiscardDeadLetterJob)
	return r
}
