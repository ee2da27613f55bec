package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/aetherchat/aether/internal/thread"
)

type threadHandler struct {
	logger *slog.Logger
	store  ThreadStore
}

// list returns the caller's threads, newest first. Guests get an empty
// list rather than an error; they have no persisted threads.
func (h *threadHandler) list(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeJSON(w, http.StatusOK, map[string]any{"threads": []thread.Thread{}})
		return
	}

	threads, err := h.store.ListThreads(r.Context(), owner)
	if err != nil {
		h.logger.Error("listing threads", "error", err)
		writeError(w, http.StatusInternalServerError, "could not list threads")
		return
	}
	if threads == nil {
		threads = []thread.Thread{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"threads": threads})
}

// turns returns the turns of one thread in ascending creation order.
func (h *threadHandler) turns(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	ref, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid thread id")
		return
	}

	turns, err := h.store.LoadActiveThread(r.Context(), owner, ref)
	switch {
	case errors.Is(err, thread.ErrNotFound):
		writeError(w, http.StatusNotFound, "thread not found")
		return
	case err != nil:
		h.logger.Error("loading thread", "error", err, "thread_id", ref)
		writeError(w, http.StatusInternalServerError, "could not load thread")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"turns": turns})
}
