package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"studyhub/pkg/apperr"
	"studyhub/services/reminders"
)

func (a *API) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		SessionID   uuid.UUID `json:"session_id"`
		Header      string    `json:"header"`
		Message     string    `json:"message"`
		ScheduledAt time.Time `json:"scheduled_at"`
	}
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rem, err := a.reminders.CreateReminder(ctx, reminders.NewReminder{
		UserID:      caller(r),
		SessionID:   req.SessionID,
		Header:      req.Header,
		Message:     req.Message,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]any{"reminder": rem})
}

func (a *API) handleListReminders(w http.ResponseWriter, r *http.Request) {
	pending := false
	if raw := r.URL.Query().Get("pending"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			a.fail(w, r, apperr.Invalid("pending", "must be a boolean"))
			return
		}
		pending = parsed
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	var (
		list []reminders.Reminder
		err  error
	)
	if pending {
		list, err = a.reminders.ListPendingReminders(ctx, caller(r))
	} else {
		list, err = a.reminders.ListReminders(ctx, caller(r))
	}
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminders": list})
}

func (a *API) handleCountPending(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	count, err := a.reminders.CountPending(ctx, caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (a *API) handleUpdateReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	var edit reminders.Edit
	if err := decodeJSON(r, &edit); err != nil {
		respondError(w, http.StatusBadRequest, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rem, err := a.reminders.UpdateReminder(ctx, id, caller(r), edit)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminder": rem})
}

func (a *API) handleDeleteReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	if err := a.reminders.DeleteReminder(ctx, id, caller(r)); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleReadReminder(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		a.fail(w, r, err)
		return
	}

	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	rem, err := a.reminders.MarkReminderRead(ctx, id, caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"reminder": rem})
}
