package notify

import (
	"fmt"

	"github.com/google/uuid"

	"studyhub/pkg/render"
	"studyhub/services/directory"
	"studyhub/services/sessions"
)

// Event is one occurrence in the CRUD layer that may notify session members.
type Event struct {
	Type Type
	// Key identifies the occurrence; together with a recipient it must be unique.
	Key          string
	ActorID      uuid.UUID
	ActorName    string
	Session      sessions.Session
	Participants []directory.User
	// ParentAuthorID is the author of the comment being replied to.
	ParentAuthorID uuid.UUID
	Link           string
}

// Delivery is one (recipient, message) pair produced by Plan.
type Delivery struct {
	RecipientID uuid.UUID
	Type        Type
	Title       string
	Message     string
}

// MessageRenderer renders a catalog message by notification type.
type MessageRenderer interface {
	Render(name string, data render.MessageData) (string, error)
}

var titles = map[Type]string{
	TypeJoinConfirmation:  "Joined session",
	TypeParticipantJoined: "New participant",
	TypeSessionUpdated:    "Session updated",
	TypeSessionCanceled:   "Session cancelled",
	TypeCommentReply:      "New reply",
	TypeCommentOnSession:  "New comment",
	TypeNotesUploaded:     "Notes uploaded",
	TypeReminderDue:       "Reminder",
}

// Title returns the inbox title used for notifications of type t.
func Title(t Type) string {
	if title, ok := titles[t]; ok {
		return title
	}
	return string(t)
}

const startsAtLayout = "Mon Jan 2 15:04 MST"

// Plan maps an event to the notifications it should produce. It performs no
// I/O; the actor never receives a notification about their own action,
// except the join confirmation which is addressed to them.
func Plan(evt Event, msgs MessageRenderer) ([]Delivery, error) {
	recipients, err := recipientsFor(evt)
	if err != nil {
		return nil, err
	}
	if len(recipients) == 0 {
		return nil, nil
	}

	data := render.MessageData{
		ActorName:    evt.ActorName,
		SessionTitle: evt.Session.Title,
		Link:         evt.Link,
	}
	if evt.Session.StartTime != nil {
		data.StartsAt = evt.Session.StartTime.UTC().Format(startsAtLayout)
	}
	message, err := msgs.Render(string(evt.Type), data)
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", evt.Type, err)
	}

	out := make([]Delivery, 0, len(recipients))
	for _, id := range recipients {
		out = append(out, Delivery{
			RecipientID: id,
			Type:        evt.Type,
			Title:       Title(evt.Type),
			Message:     message,
		})
	}
	return out, nil
}

func recipientsFor(evt Event) ([]uuid.UUID, error) {
	host := evt.Session.HostID
	switch evt.Type {
	case TypeJoinConfirmation:
		return nonNil(evt.ActorID), nil
	case TypeParticipantJoined, TypeCommentOnSession:
		if host == evt.ActorID {
			return nil, nil
		}
		return nonNil(host), nil
	case TypeCommentReply:
		if evt.ParentAuthorID == evt.ActorID {
			return nil, nil
		}
		return nonNil(evt.ParentAuthorID), nil
	case TypeSessionUpdated, TypeSessionCanceled, TypeNotesUploaded:
		return participantsExcept(evt.Participants, host, evt.ActorID), nil
	default:
		return nil, fmt.Errorf("no fan-out rule for %s", evt.Type)
	}
}

func nonNil(id uuid.UUID) []uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return []uuid.UUID{id}
}

func participantsExcept(users []directory.User, excluded ...uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(users)+len(excluded))
	for _, id := range excluded {
		seen[id] = struct{}{}
	}
	seen[uuid.Nil] = struct{}{}

	var out []uuid.UUID
	for _, u := range users {
		if _, skip := seen[u.ID]; skip {
			continue
		}
		seen[u.ID] = struct{}{}
		out = append(out, u.ID)
	}
	return out
}
