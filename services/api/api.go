package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"studyhub/services/events"
	"studyhub/services/notify"
	"studyhub/services/reminders"
	"studyhub/services/sessions"
)

const defaultRateLimit = 100

// Config controls router behaviour.
type Config struct {
	AllowedOrigins     []string
	RateLimitPerMinute int
	// Ready reports whether backing services are reachable.
	Ready func(context.Context) error
	// Middleware wraps the whole router, typically telemetry.
	Middleware func(http.Handler) http.Handler
}

// API exposes reminders, the notification inbox, session overrides and the
// CRUD-layer event hook over HTTP.
type API struct {
	reminders *reminders.Service
	inbox     *notify.Inbox
	sessions  *sessions.Service
	events    *events.Consumer
	config    Config
	log       zerolog.Logger
}

// New wires the HTTP layer.
func New(rem *reminders.Service, inbox *notify.Inbox, sess *sessions.Service, ev *events.Consumer, cfg Config, log zerolog.Logger) (*API, error) {
	if rem == nil {
		return nil, errors.New("reminder service is required")
	}
	if inbox == nil {
		return nil, errors.New("inbox is required")
	}
	if sess == nil {
		return nil, errors.New("session service is required")
	}
	if ev == nil {
		return nil, errors.New("event consumer is required")
	}
	if cfg.RateLimitPerMinute <= 0 {
		cfg.RateLimitPerMinute = defaultRateLimit
	}
	return &API{reminders: rem, inbox: inbox, sessions: sess, events: ev, config: cfg, log: log}, nil
}

// Routes constructs the chi router containing all endpoints.
func (a *API) Routes() (http.Handler, error) {
	if a == nil {
		return nil, errors.New("nil api")
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	allowed := a.config.AllowedOrigins
	if len(allowed) == 0 {
		allowed = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", CallerHeader},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	}))
	r.Use(httprate.LimitByIP(a.config.RateLimitPerMinute, time.Minute))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Method("GET", "/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Post("/events/{kind}", a.handleEvent)

		r.Group(func(r chi.Router) {
			r.Use(requireCaller)

			r.Post("/reminders", a.handleCreateReminder)
			r.Get("/reminders", a.handleListReminders)
			r.Get("/reminders/pending/count", a.handleCountPending)
			r.Patch("/reminders/{id}", a.handleUpdateReminder)
			r.Delete("/reminders/{id}", a.handleDeleteReminder)
			r.Post("/reminders/{id}/read", a.handleReadReminder)

			r.Get("/notifications", a.handleListNotifications(false))
			r.Get("/notifications/unread", a.handleListNotifications(true))
			r.Get("/notifications/unread/count", a.handleUnreadCount)
			r.Post("/notifications/read-all", a.handleReadAll)
			r.Post("/notifications/{id}/read", a.handleSetNotificationRead(true))
			r.Post("/notifications/{id}/unread", a.handleSetNotificationRead(false))

			r.Get("/sessions/{id}", a.handleGetSession)
			r.Post("/sessions/{id}/cancel", a.handleOverride(a.sessions.Cancel))
			r.Post("/sessions/{id}/trash", a.handleOverride(a.sessions.Trash))
			r.Post("/sessions/{id}/delete", a.handleOverride(a.sessions.Delete))
		})
	})

	if a.config.Middleware != nil {
		return a.config.Middleware(r), nil
	}
	return r, nil
}

func (a *API) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.config.Ready != nil {
		ctx, cancel := withTimeout(r.Context())
		defer cancel()
		if err := a.config.Ready(ctx); err != nil {
			respondError(w, http.StatusServiceUnavailable, err)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
