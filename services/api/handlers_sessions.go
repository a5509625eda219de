package api

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"studyhub/services/sessions"
)

func (a *API) handleGetSession(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	sess, err := a.sessions.Get(ctx, id)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"session": sess})
}

type overrideFunc func(ctx context.Context, sessionID, actorID uuid.UUID) (sessions.Session, error)

func (a *API) handleOverride(apply overrideFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}

		ctx, cancel := withTimeout(r.Context())
		defer cancel()

		sess, err := apply(ctx, id, caller(r))
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"session": sess})
	}
}
