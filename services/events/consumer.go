// Package events feeds CRUD-layer events into the notifier, either from the
// message bus or from the HTTP hook.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studyhub/pkg/apperr"
	"studyhub/pkg/bus"
	"studyhub/services/notify"
)

// Event kinds accepted by Handle.
const (
	KindSessionJoined   = "session.joined"
	KindSessionUpdated  = "session.updated"
	KindSessionCanceled = "session.canceled"
	KindCommentCreated  = "comment.created"
	KindNotesUploaded   = "notes.uploaded"
)

// Notifications is the subset of notify.Notifier the consumer drives.
type Notifications interface {
	NotifyJoin(ctx context.Context, evt notify.JoinEvent) (int, error)
	NotifyParticipantJoined(ctx context.Context, evt notify.JoinEvent) (int, error)
	NotifySessionUpdated(ctx context.Context, evt notify.SessionEvent) (int, error)
	NotifySessionCanceled(ctx context.Context, evt notify.SessionEvent) (int, error)
	NotifyCommentReply(ctx context.Context, evt notify.CommentEvent) (int, error)
	NotifyCommentOnSession(ctx context.Context, evt notify.CommentEvent) (int, error)
	NotifyNotesUploaded(ctx context.Context, evt notify.NotesEvent) (int, error)
}

// Subscriber registers durable handlers on bus subjects.
type Subscriber interface {
	Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error)
}

// Consumer translates bus events into notifications.
type Consumer struct {
	sub      Subscriber
	notifier Notifications
	log      zerolog.Logger

	subsMu sync.Mutex
	subs   []io.Closer
}

// NewConsumer creates a consumer. sub may be nil when only Handle is used.
func NewConsumer(sub Subscriber, notifier Notifications, log zerolog.Logger) (*Consumer, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	return &Consumer{sub: sub, notifier: notifier, log: log}, nil
}

// Start registers one durable subscription per event subject.
func (c *Consumer) Start(ctx context.Context) error {
	if c.sub == nil {
		return errors.New("subscriber is required")
	}

	routes := []struct {
		subject string
		durable string
		kind    string
	}{
		{bus.SubjectSessionJoined, "studyhub-sessions-joined", KindSessionJoined},
		{bus.SubjectSessionUpdated, "studyhub-sessions-updated", KindSessionUpdated},
		{bus.SubjectSessionCanceled, "studyhub-sessions-canceled", KindSessionCanceled},
		{bus.SubjectCommentCreated, "studyhub-comments-created", KindCommentCreated},
		{bus.SubjectNotesUploaded, "studyhub-notes-uploaded", KindNotesUploaded},
	}

	for _, rt := range routes {
		closer, err := c.sub.Subscribe(ctx, rt.subject, rt.durable, c.handler(rt.kind))
		if err != nil {
			c.Close()
			return fmt.Errorf("subscribe %s: %w", rt.subject, err)
		}
		c.subsMu.Lock()
		c.subs = append(c.subs, closer)
		c.subsMu.Unlock()
	}
	return nil
}

// Close tears down active subscriptions.
func (c *Consumer) Close() error {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()

	var firstErr error
	for _, sub := range c.subs {
		if err := sub.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	c.subs = nil
	return firstErr
}

// handler acknowledges events that can never succeed and asks for
// redelivery on everything else.
func (c *Consumer) handler(kind string) func(context.Context, []byte) error {
	return func(ctx context.Context, data []byte) error {
		n, err := c.Handle(ctx, kind, data)
		switch {
		case err == nil:
			c.log.Debug().Str("kind", kind).Int("created", n).Msg("event handled")
			return nil
		case apperr.IsValidation(err), apperr.IsNotFound(err):
			c.log.Warn().Err(err).Str("kind", kind).Msg("dropping event")
			return nil
		default:
			c.log.Error().Err(err).Str("kind", kind).Int("created", n).Msg("handle event")
			return err
		}
	}
}

// Handle decodes one event and runs the fan-out rules for it. It returns
// the number of notifications created.
func (c *Consumer) Handle(ctx context.Context, kind string, data []byte) (int, error) {
	switch kind {
	case KindSessionJoined:
		var evt notify.JoinEvent
		if err := decode(data, &evt); err != nil {
			return 0, err
		}
		confirmed, err := c.notifier.NotifyJoin(ctx, evt)
		if err != nil {
			return confirmed, err
		}
		hosted, err := c.notifier.NotifyParticipantJoined(ctx, evt)
		return confirmed + hosted, err
	case KindSessionUpdated:
		var evt notify.SessionEvent
		if err := decode(data, &evt); err != nil {
			return 0, err
		}
		return c.notifier.NotifySessionUpdated(ctx, evt)
	case KindSessionCanceled:
		var evt notify.SessionEvent
		if err := decode(data, &evt); err != nil {
			return 0, err
		}
		return c.notifier.NotifySessionCanceled(ctx, evt)
	case KindCommentCreated:
		var evt notify.CommentEvent
		if err := decode(data, &evt); err != nil {
			return 0, err
		}
		// A reply goes to the parent's author; the host hears about
		// top-level comments only.
		if evt.ParentAuthorID != uuid.Nil {
			return c.notifier.NotifyCommentReply(ctx, evt)
		}
		return c.notifier.NotifyCommentOnSession(ctx, evt)
	case KindNotesUploaded:
		var evt notify.NotesEvent
		if err := decode(data, &evt); err != nil {
			return 0, err
		}
		return c.notifier.NotifyNotesUploaded(ctx, evt)
	default:
		return 0, apperr.Invalid("kind", fmt.Sprintf("unknown event kind %q", kind))
	}
}

func decode(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return apperr.Invalid("payload", err.Error())
	}
	return nil
}
