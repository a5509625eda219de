package api

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

const maxEventBytes = 64 << 10

func (a *API) handleEvent(w http.ResponseWriter, r *http.Request) {
	kind := chi.URLParam(r, "kind")
	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	created, err := a.events.Handle(ctx, kind, body)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusAccepted, map[string]any{"created": created})
}
