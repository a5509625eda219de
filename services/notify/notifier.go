package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"studyhub/pkg/apperr"
	"studyhub/pkg/bus"
	"studyhub/pkg/clock"
	"studyhub/services/directory"
)

// JoinEvent is emitted when a user joins a session.
type JoinEvent struct {
	EventID   string    `json:"event_id"`
	SessionID uuid.UUID `json:"session_id"`
	UserID    uuid.UUID `json:"user_id"`
}

// SessionEvent is emitted when the host edits or cancels a session.
type SessionEvent struct {
	EventID   string    `json:"event_id"`
	SessionID uuid.UUID `json:"session_id"`
	ActorID   uuid.UUID `json:"actor_id"`
}

// CommentEvent is emitted when a comment is posted on a session. ParentAuthorID
// is set when the comment replies to another one.
type CommentEvent struct {
	EventID        string    `json:"event_id"`
	SessionID      uuid.UUID `json:"session_id"`
	CommenterID    uuid.UUID `json:"commenter_id"`
	ParentAuthorID uuid.UUID `json:"parent_author_id,omitempty"`
}

// NotesEvent is emitted when notes are uploaded to a session.
type NotesEvent struct {
	EventID    string    `json:"event_id"`
	SessionID  uuid.UUID `json:"session_id"`
	UploaderID uuid.UUID `json:"uploader_id"`
	FileKey    string    `json:"file_key,omitempty"`
}

// Publisher announces persisted notifications to other services.
type Publisher interface {
	Publish(ctx context.Context, subject, msgID string, v any) error
}

// NotesLinker turns an uploaded object key into a downloadable link.
type NotesLinker interface {
	NotesLink(ctx context.Context, key string) (string, error)
}

// Created is the payload published for every new notification.
type Created struct {
	NotificationID uuid.UUID `json:"notification_id"`
	RecipientID    uuid.UUID `json:"recipient_id"`
	Type           Type      `json:"type"`
}

const defaultConcurrency = 8

// Notifier persists one notification per recipient for CRUD-layer events
// and for dispatched reminders.
type Notifier struct {
	store       Store
	dir         directory.Directory
	msgs        MessageRenderer
	clock       clock.Clock
	log         zerolog.Logger
	pub         Publisher
	links       NotesLinker
	concurrency int
}

// Option customises a Notifier.
type Option func(*Notifier)

// WithPublisher announces each created notification on the bus.
func WithPublisher(p Publisher) Option {
	return func(n *Notifier) { n.pub = p }
}

// WithNotesLinker embeds download links in NOTES_UPLOADED messages.
func WithNotesLinker(l NotesLinker) Option {
	return func(n *Notifier) { n.links = l }
}

// WithConcurrency bounds the number of recipients written in parallel.
func WithConcurrency(limit int) Option {
	return func(n *Notifier) {
		if limit > 0 {
			n.concurrency = limit
		}
	}
}

// NewNotifier wires a Notifier.
func NewNotifier(store Store, dir directory.Directory, msgs MessageRenderer, clk clock.Clock, log zerolog.Logger, opts ...Option) (*Notifier, error) {
	if store == nil {
		return nil, errors.New("notification store is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	if msgs == nil {
		return nil, errors.New("message renderer is required")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	n := &Notifier{
		store:       store,
		dir:         dir,
		msgs:        msgs,
		clock:       clk,
		log:         log,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n, nil
}

// NotifyJoin confirms the join to the joining user.
func (n *Notifier) NotifyJoin(ctx context.Context, evt JoinEvent) (int, error) {
	return n.fanOut(ctx, TypeJoinConfirmation, evt.EventID, evt.SessionID, evt.UserID, fanOutOpts{})
}

// NotifyParticipantJoined tells the host that someone joined their session.
func (n *Notifier) NotifyParticipantJoined(ctx context.Context, evt JoinEvent) (int, error) {
	return n.fanOut(ctx, TypeParticipantJoined, evt.EventID, evt.SessionID, evt.UserID, fanOutOpts{actorName: true})
}

// NotifySessionUpdated tells every participant but the host about an edit.
func (n *Notifier) NotifySessionUpdated(ctx context.Context, evt SessionEvent) (int, error) {
	return n.fanOut(ctx, TypeSessionUpdated, evt.EventID, evt.SessionID, evt.ActorID, fanOutOpts{participants: true})
}

// NotifySessionCanceled tells every participant but the host about a cancellation.
func (n *Notifier) NotifySessionCanceled(ctx context.Context, evt SessionEvent) (int, error) {
	return n.fanOut(ctx, TypeSessionCanceled, evt.EventID, evt.SessionID, evt.ActorID, fanOutOpts{participants: true})
}

// NotifyCommentReply tells the parent comment's author about a reply.
func (n *Notifier) NotifyCommentReply(ctx context.Context, evt CommentEvent) (int, error) {
	if evt.ParentAuthorID == uuid.Nil {
		return 0, apperr.Invalid("parent_author_id", "is required for a reply")
	}
	return n.fanOut(ctx, TypeCommentReply, evt.EventID, evt.SessionID, evt.CommenterID, fanOutOpts{actorName: true, parentAuthor: evt.ParentAuthorID})
}

// NotifyCommentOnSession tells the host about a new comment on their session.
func (n *Notifier) NotifyCommentOnSession(ctx context.Context, evt CommentEvent) (int, error) {
	return n.fanOut(ctx, TypeCommentOnSession, evt.EventID, evt.SessionID, evt.CommenterID, fanOutOpts{actorName: true})
}

// NotifyNotesUploaded tells every participant but the host about new notes.
func (n *Notifier) NotifyNotesUploaded(ctx context.Context, evt NotesEvent) (int, error) {
	return n.fanOut(ctx, TypeNotesUploaded, evt.EventID, evt.SessionID, evt.UploaderID, fanOutOpts{participants: true, fileKey: evt.FileKey})
}

type fanOutOpts struct {
	actorName    bool
	participants bool
	parentAuthor uuid.UUID
	fileKey      string
}

func (n *Notifier) fanOut(ctx context.Context, typ Type, eventID string, sessionID, actorID uuid.UUID, opts fanOutOpts) (int, error) {
	if sessionID == uuid.Nil {
		return 0, apperr.Invalid("session_id", "is required")
	}
	if actorID == uuid.Nil {
		return 0, apperr.Invalid("actor", "is required")
	}
	if eventID == "" {
		eventID = uuid.NewString()
	}

	session, err := n.dir.GetSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}

	evt := Event{
		Type:           typ,
		Key:            fmt.Sprintf("%s:%s", typ, eventID),
		ActorID:        actorID,
		Session:        session,
		ParentAuthorID: opts.parentAuthor,
	}
	if opts.actorName {
		actor, err := n.dir.GetUser(ctx, actorID)
		if err != nil {
			return 0, err
		}
		evt.ActorName = actor.Name
	}
	if opts.participants {
		evt.Participants, err = n.dir.ListParticipants(ctx, sessionID)
		if err != nil {
			return 0, fmt.Errorf("list participants of %s: %w", sessionID, err)
		}
	}
	if opts.fileKey != "" && n.links != nil {
		link, err := n.links.NotesLink(ctx, opts.fileKey)
		if err != nil {
			n.log.Warn().Err(err).Str("file_key", opts.fileKey).Msg("notes link unavailable")
		} else {
			evt.Link = link
		}
	}

	deliveries, err := Plan(evt, n.msgs)
	if err != nil {
		return 0, err
	}
	return n.deliverAll(ctx, evt, deliveries)
}

// deliverAll writes each recipient independently; failures for some
// recipients do not roll back the others.
func (n *Notifier) deliverAll(ctx context.Context, evt Event, deliveries []Delivery) (int, error) {
	if len(deliveries) == 0 {
		return 0, nil
	}

	sessionID := evt.Session.ID
	now := n.clock.Now()

	var (
		created atomic.Int64
		mu      sync.Mutex
		errs    []error
		g       errgroup.Group
	)
	g.SetLimit(n.concurrency)
	for _, d := range deliveries {
		g.Go(func() error {
			ok, err := n.Deliver(ctx, Notification{
				RecipientID: d.RecipientID,
				SessionID:   &sessionID,
				Type:        d.Type,
				Title:       d.Title,
				Message:     d.Message,
				CreatedAt:   now,
				EventKey:    evt.Key,
			})
			if err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("notify %s: %w", d.RecipientID, err))
				mu.Unlock()
				return nil
			}
			if ok {
				created.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	return int(created.Load()), errors.Join(errs...)
}

// Deliver persists a single notification. It returns false without error
// when the recipient already has a notification for the same event.
func (n *Notifier) Deliver(ctx context.Context, note Notification) (bool, error) {
	if note.RecipientID == uuid.Nil {
		return false, apperr.Invalid("recipient_id", "is required")
	}
	if note.EventKey == "" {
		return false, apperr.Invalid("event_key", "is required")
	}
	if note.ID == uuid.Nil {
		note.ID = uuid.New()
	}
	if note.CreatedAt.IsZero() {
		note.CreatedAt = n.clock.Now()
	}
	if note.Title == "" {
		note.Title = Title(note.Type)
	}

	created, err := n.store.Create(ctx, note)
	if err != nil {
		return false, err
	}
	if !created {
		notificationsDuplicate.WithLabelValues(string(note.Type)).Inc()
		n.log.Debug().Str("recipient_id", note.RecipientID.String()).Str("event_key", note.EventKey).Msg("notification already delivered")
		return false, nil
	}
	notificationsCreated.WithLabelValues(string(note.Type)).Inc()

	if n.pub != nil {
		payload := Created{NotificationID: note.ID, RecipientID: note.RecipientID, Type: note.Type}
		msgID := note.RecipientID.String() + ":" + note.EventKey
		if err := n.pub.Publish(ctx, bus.SubjectNotificationCreated, msgID, payload); err != nil {
			n.log.Warn().Err(err).Str("notification_id", note.ID.String()).Msg("publish notification created")
		}
	}
	return true, nil
}
