package api

import (
	"net/http"

	"studyhub/services/notify"
)

func (a *API) handleListNotifications(unreadOnly bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := withTimeout(r.Context())
		defer cancel()

		var (
			list []notify.Notification
			err  error
		)
		if unreadOnly {
			list, err = a.inbox.ListUnread(ctx, caller(r))
		} else {
			list, err = a.inbox.ListAll(ctx, caller(r))
		}
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"notifications": list})
	}
}

func (a *API) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	count, err := a.inbox.UnreadCount(ctx, caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"count": count})
}

func (a *API) handleSetNotificationRead(read bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r)
		if err != nil {
			a.fail(w, r, err)
			return
		}

		ctx, cancel := withTimeout(r.Context())
		defer cancel()

		var n notify.Notification
		if read {
			n, err = a.inbox.MarkRead(ctx, id, caller(r))
		} else {
			n, err = a.inbox.MarkUnread(ctx, id, caller(r))
		}
		if err != nil {
			a.fail(w, r, err)
			return
		}
		respondJSON(w, http.StatusOK, map[string]any{"notification": n})
	}
}

func (a *API) handleReadAll(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := withTimeout(r.Context())
	defer cancel()

	updated, err := a.inbox.MarkAllRead(ctx, caller(r))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"updated": updated})
}
