package events

import (
	"context"
	"errors"
	"io"
	"reflect"
	"sort"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studyhub/pkg/bus"
	"studyhub/services/notify"
)

type fakeNotifier struct {
	calls []string
	err   error
}

func (f *fakeNotifier) record(name string) (int, error) {
	f.calls = append(f.calls, name)
	if f.err != nil {
		return 0, f.err
	}
	return 1, nil
}

func (f *fakeNotifier) NotifyJoin(context.Context, notify.JoinEvent) (int, error) {
	return f.record("join")
}
func (f *fakeNotifier) NotifyParticipantJoined(context.Context, notify.JoinEvent) (int, error) {
	return f.record("participant_joined")
}
func (f *fakeNotifier) NotifySessionUpdated(context.Context, notify.SessionEvent) (int, error) {
	return f.record("session_updated")
}
func (f *fakeNotifier) NotifySessionCanceled(context.Context, notify.SessionEvent) (int, error) {
	return f.record("session_canceled")
}
func (f *fakeNotifier) NotifyCommentReply(context.Context, notify.CommentEvent) (int, error) {
	return f.record("comment_reply")
}
func (f *fakeNotifier) NotifyCommentOnSession(context.Context, notify.CommentEvent) (int, error) {
	return f.record("comment_on_session")
}
func (f *fakeNotifier) NotifyNotesUploaded(context.Context, notify.NotesEvent) (int, error) {
	return f.record("notes_uploaded")
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type fakeSubscriber struct {
	handlers map[string]func(context.Context, []byte) error
}

func (f *fakeSubscriber) Subscribe(_ context.Context, subj, _ string, fn func(context.Context, []byte) error) (io.Closer, error) {
	if f.handlers == nil {
		f.handlers = map[string]func(context.Context, []byte) error{}
	}
	f.handlers[subj] = fn
	return nopCloser{}, nil
}

func TestHandleRoutesKinds(t *testing.T) {
	session := uuid.New().String()
	user := uuid.New().String()

	tests := []struct {
		name    string
		kind    string
		payload string
		want    []string
	}{
		{"join notifies joiner and host", KindSessionJoined, `{"event_id":"e1","session_id":"` + session + `","user_id":"` + user + `"}`, []string{"join", "participant_joined"}},
		{"update", KindSessionUpdated, `{"session_id":"` + session + `","actor_id":"` + user + `"}`, []string{"session_updated"}},
		{"cancel", KindSessionCanceled, `{"session_id":"` + session + `","actor_id":"` + user + `"}`, []string{"session_canceled"}},
		{"top level comment", KindCommentCreated, `{"session_id":"` + session + `","commenter_id":"` + user + `"}`, []string{"comment_on_session"}},
		{"reply", KindCommentCreated, `{"session_id":"` + session + `","commenter_id":"` + user + `","parent_author_id":"` + uuid.New().String() + `"}`, []string{"comment_reply"}},
		{"notes", KindNotesUploaded, `{"session_id":"` + session + `","uploader_id":"` + user + `","file_key":"a.pdf"}`, []string{"notes_uploaded"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := &fakeNotifier{}
			c, err := NewConsumer(nil, fn, zerolog.Nop())
			if err != nil {
				t.Fatalf("NewConsumer() error = %v", err)
			}
			n, err := c.Handle(context.Background(), tt.kind, []byte(tt.payload))
			if err != nil {
				t.Fatalf("Handle() error = %v", err)
			}
			if n != len(tt.want) {
				t.Fatalf("Handle() = %d, want %d", n, len(tt.want))
			}
			if !reflect.DeepEqual(fn.calls, tt.want) {
				t.Fatalf("calls = %v, want %v", fn.calls, tt.want)
			}
		})
	}
}

func TestStartSubscribesEverySubject(t *testing.T) {
	sub := &fakeSubscriber{}
	c, _ := NewConsumer(sub, &fakeNotifier{}, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	defer c.Close()

	var got []string
	for subj := range sub.handlers {
		got = append(got, subj)
	}
	sort.Strings(got)
	want := []string{
		bus.SubjectCommentCreated,
		bus.SubjectNotesUploaded,
		bus.SubjectSessionCanceled,
		bus.SubjectSessionJoined,
		bus.SubjectSessionUpdated,
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("subjects = %v, want %v", got, want)
	}
}

func TestBusHandlerAcknowledgesPermanentFailures(t *testing.T) {
	sub := &fakeSubscriber{}
	fn := &fakeNotifier{}
	c, _ := NewConsumer(sub, fn, zerolog.Nop())
	if err := c.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	handle := sub.handlers[bus.SubjectSessionUpdated]

	if err := handle(context.Background(), []byte("{not json")); err != nil {
		t.Fatalf("malformed payload should be acknowledged, got %v", err)
	}

	fn.err = errors.New("database unavailable")
	if err := handle(context.Background(), []byte(`{"session_id":"`+uuid.New().String()+`"}`)); err == nil {
		t.Fatal("transient failure should request redelivery")
	}
}

func TestHandleUnknownKind(t *testing.T) {
	c, _ := NewConsumer(nil, &fakeNotifier{}, zerolog.Nop())
	if _, err := c.Handle(context.Background(), "session.exploded", []byte(`{}`)); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
