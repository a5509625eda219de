package reminders

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"studyhub/pkg/apperr"
	"studyhub/pkg/clock"
	"studyhub/pkg/render"
	"studyhub/services/directory"
	"studyhub/services/notify"
	"studyhub/services/sessions"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type failureRecorder struct {
	mu       sync.Mutex
	failures []apperr.DispatchFailure
}

func (r *failureRecorder) Report(_ context.Context, f *apperr.DispatchFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, *f)
}

type env struct {
	clock    *clock.Manual
	store    *MemoryStore
	notes    *notify.MemoryStore
	dir      *directory.Memory
	service  *Service
	notifier *notify.Notifier
	scanner  *Scanner
	failures *failureRecorder
	owner    directory.User
	session  sessions.Session
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	clk := clock.NewManual(t0)
	sessStore := sessions.NewMemoryStore()
	dir := directory.NewMemory(sessStore, clk)
	e := &env{
		clock:    clk,
		store:    NewMemoryStore(),
		notes:    notify.NewMemoryStore(),
		dir:      dir,
		failures: &failureRecorder{},
		owner:    directory.User{ID: uuid.New(), Name: "Ola", Email: "ola@example.com"},
	}
	if err := dir.UpsertUser(ctx, e.owner); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	start := t0.Add(15 * time.Minute)
	end := start.Add(time.Hour)
	e.session = sessions.Session{Title: "Discrete maths", HostID: e.owner.ID, StartTime: &start, EndTime: &end}
	if err := sessStore.Create(ctx, &e.session); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	engine, err := render.New()
	if err != nil {
		t.Fatalf("render.New() error = %v", err)
	}
	e.notifier, err = notify.NewNotifier(e.notes, dir, engine, clk, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewNotifier() error = %v", err)
	}
	e.service, err = NewService(e.store, dir, clk, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	e.scanner, err = NewScanner(e.store, dir, e.notifier, e.failures, clk, ScannerConfig{Concurrency: 4}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}
	return e
}

func (e *env) create(t *testing.T, at time.Time, message string) Reminder {
	t.Helper()
	r, err := e.service.CreateReminder(context.Background(), NewReminder{
		UserID:      e.owner.ID,
		SessionID:   e.session.ID,
		Header:      "Discrete maths",
		Message:     message,
		ScheduledAt: at,
	})
	if err != nil {
		t.Fatalf("CreateReminder() error = %v", err)
	}
	return r
}

func TestCreateReminderValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		in      NewReminder
		wantErr func(error) bool
	}{
		{
			name:    "past time",
			in:      NewReminder{UserID: e.owner.ID, SessionID: e.session.ID, Header: "h", ScheduledAt: t0.Add(-time.Second)},
			wantErr: apperr.IsValidation,
		},
		{
			name:    "now is not in the future",
			in:      NewReminder{UserID: e.owner.ID, SessionID: e.session.ID, Header: "h", ScheduledAt: t0},
			wantErr: apperr.IsValidation,
		},
		{
			name:    "blank header",
			in:      NewReminder{UserID: e.owner.ID, SessionID: e.session.ID, Header: "   ", ScheduledAt: t0.Add(time.Hour)},
			wantErr: apperr.IsValidation,
		},
		{
			name:    "unknown session",
			in:      NewReminder{UserID: e.owner.ID, SessionID: uuid.New(), Header: "h", ScheduledAt: t0.Add(time.Hour)},
			wantErr: apperr.IsNotFound,
		},
		{
			name:    "unknown user",
			in:      NewReminder{UserID: uuid.New(), SessionID: e.session.ID, Header: "h", ScheduledAt: t0.Add(time.Hour)},
			wantErr: apperr.IsNotFound,
		},
		{
			name: "one hour ahead",
			in:   NewReminder{UserID: e.owner.ID, SessionID: e.session.ID, Header: "h", ScheduledAt: t0.Add(time.Hour)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.service.CreateReminder(ctx, tt.in)
			if tt.wantErr != nil {
				if !tt.wantErr(err) {
					t.Fatalf("CreateReminder() error = %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateReminder() error = %v", err)
			}
			if got.Sent || got.SentAt != nil || got.ID == uuid.Nil {
				t.Fatalf("CreateReminder() = %+v", got)
			}
		})
	}
}

func TestScanDispatchesDueReminderOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, t0.Add(10*time.Minute), "Study session starts soon")

	n, err := e.scanner.ScanAndDispatch(ctx, t0.Add(5*time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("scan at T0+5m = %d, %v; want 0", n, err)
	}

	at := t0.Add(11 * time.Minute)
	n, err = e.scanner.ScanAndDispatch(ctx, at)
	if err != nil || n != 1 {
		t.Fatalf("scan at T0+11m = %d, %v; want 1", n, err)
	}

	got, err := e.store.Get(ctx, r.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.Sent || got.SentAt == nil || !got.SentAt.Equal(at) {
		t.Fatalf("reminder after dispatch = %+v", got)
	}

	notes := e.notes.All()
	if len(notes) != 1 {
		t.Fatalf("notifications = %d, want 1", len(notes))
	}
	note := notes[0]
	if note.Type != notify.TypeReminderDue || note.RecipientID != e.owner.ID || note.Message != "Study session starts soon" {
		t.Fatalf("notification = %+v", note)
	}
	if note.ScheduledAt == nil || !note.ScheduledAt.Equal(r.ScheduledAt) {
		t.Fatalf("notification scheduled_at = %v", note.ScheduledAt)
	}

	// Same now, nothing new due.
	n, err = e.scanner.ScanAndDispatch(ctx, at)
	if err != nil || n != 0 {
		t.Fatalf("second scan = %d, %v; want 0", n, err)
	}
}

func TestOverlappingScansDispatchOnce(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, t0.Add(time.Minute), "go")
	now := t0.Add(2 * time.Minute)

	const scans = 8
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < scans; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := e.scanner.ScanAndDispatch(ctx, now)
			if err != nil {
				t.Errorf("ScanAndDispatch() error = %v", err)
			}
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()

	if total != 1 {
		t.Fatalf("claimed %d times across scans, want 1", total)
	}
	if got := len(e.notes.All()); got != 1 {
		t.Fatalf("notifications = %d, want 1", got)
	}
}

func TestUpdateReminderTimeRearms(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, t0.Add(10*time.Minute), "first")

	e.clock.Set(t0.Add(11 * time.Minute))
	if n, _ := e.scanner.ScanAndDispatch(ctx, e.clock.Now()); n != 1 {
		t.Fatalf("first scan = %d, want 1", n)
	}

	updated, err := e.service.UpdateReminderTime(ctx, r.ID, e.owner.ID, t0.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("UpdateReminderTime() error = %v", err)
	}
	if updated.Sent || updated.SentAt != nil {
		t.Fatalf("UpdateReminderTime() did not reset sent state: %+v", updated)
	}

	if n, _ := e.scanner.ScanAndDispatch(ctx, t0.Add(21*time.Minute)); n != 1 {
		t.Fatalf("scan after rearm = %d, want 1", n)
	}
	if got := len(e.notes.All()); got != 2 {
		t.Fatalf("notifications = %d, want 2", got)
	}
}

func TestUpdateReminderRejectsPastTime(t *testing.T) {
	e := newEnv(t)
	r := e.create(t, t0.Add(10*time.Minute), "x")
	_, err := e.service.UpdateReminderTime(context.Background(), r.ID, e.owner.ID, t0.Add(-time.Minute))
	if !apperr.IsValidation(err) {
		t.Fatalf("error = %v, want validation error", err)
	}
}

func TestOwnerOnlyMutations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, t0.Add(10*time.Minute), "x")
	stranger := uuid.New()

	if _, err := e.service.UpdateReminderTime(ctx, r.ID, stranger, t0.Add(time.Hour)); !apperr.IsForbidden(err) {
		t.Fatalf("UpdateReminderTime() error = %v", err)
	}
	if err := e.service.DeleteReminder(ctx, r.ID, stranger); !apperr.IsForbidden(err) {
		t.Fatalf("DeleteReminder() error = %v", err)
	}
	if _, err := e.service.MarkReminderRead(ctx, r.ID, stranger); !apperr.IsForbidden(err) {
		t.Fatalf("MarkReminderRead() error = %v", err)
	}

	read, err := e.service.MarkReminderRead(ctx, r.ID, e.owner.ID)
	if err != nil || !read.Read || read.Sent {
		t.Fatalf("MarkReminderRead() = %+v, %v", read, err)
	}
	if err := e.service.DeleteReminder(ctx, r.ID, e.owner.ID); err != nil {
		t.Fatalf("DeleteReminder() error = %v", err)
	}
	if err := e.service.DeleteReminder(ctx, r.ID, e.owner.ID); !apperr.IsNotFound(err) {
		t.Fatalf("second DeleteReminder() error = %v", err)
	}
}

func TestListAndCountPending(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	early := e.create(t, t0.Add(5*time.Minute), "early")
	late := e.create(t, t0.Add(50*time.Minute), "late")

	if _, err := e.scanner.ScanAndDispatch(ctx, t0.Add(6*time.Minute)); err != nil {
		t.Fatalf("ScanAndDispatch() error = %v", err)
	}

	all, err := e.service.ListReminders(ctx, e.owner.ID)
	if err != nil || len(all) != 2 || all[0].ID != early.ID {
		t.Fatalf("ListReminders() = %+v, %v", all, err)
	}
	pending, err := e.service.ListPendingReminders(ctx, e.owner.ID)
	if err != nil || len(pending) != 1 || pending[0].ID != late.ID {
		t.Fatalf("ListPendingReminders() = %+v, %v", pending, err)
	}
	if count, _ := e.service.CountPending(ctx, e.owner.ID); count != 1 {
		t.Fatalf("CountPending() = %d, want 1", count)
	}
}

func TestOrphanReminderIsReportedAndBatchContinues(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ghost := directory.User{ID: uuid.New(), Name: "Gone"}
	if err := e.dir.UpsertUser(ctx, ghost); err != nil {
		t.Fatalf("UpsertUser() error = %v", err)
	}
	orphan, err := e.service.CreateReminder(ctx, NewReminder{
		UserID: ghost.ID, SessionID: e.session.ID, Header: "h", Message: "m", ScheduledAt: t0.Add(time.Minute),
	})
	if err != nil {
		t.Fatalf("CreateReminder() error = %v", err)
	}
	e.dir.RemoveUser(ghost.ID)
	e.create(t, t0.Add(2*time.Minute), "still delivered")

	n, err := e.scanner.ScanAndDispatch(ctx, t0.Add(3*time.Minute))
	if err != nil || n != 2 {
		t.Fatalf("ScanAndDispatch() = %d, %v; want 2 claimed", n, err)
	}
	if got := len(e.notes.All()); got != 1 {
		t.Fatalf("notifications = %d, want 1", got)
	}
	if len(e.failures.failures) != 1 {
		t.Fatalf("failures = %+v", e.failures.failures)
	}
	f := e.failures.failures[0]
	if f.ReminderID != orphan.ID.String() || f.Reason != ReasonOwnerMissing {
		t.Fatalf("failure = %+v", f)
	}

	stored, _ := e.store.Get(ctx, orphan.ID)
	if !stored.Sent {
		t.Fatal("orphan reminder must stay claimed")
	}
}

func TestPurgeSession(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.create(t, t0.Add(time.Minute), "a")
	e.create(t, t0.Add(2*time.Minute), "b")

	n, err := e.service.PurgeSession(ctx, e.session.ID)
	if err != nil || n != 2 {
		t.Fatalf("PurgeSession() = %d, %v", n, err)
	}
	if count, _ := e.service.CountPending(ctx, e.owner.ID); count != 0 {
		t.Fatalf("CountPending() = %d after purge", count)
	}
}

func TestListDueRespectsBatchSize(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		r := Reminder{UserID: uuid.New(), SessionID: uuid.New(), Header: "h", ScheduledAt: t0.Add(time.Duration(5-i) * time.Minute)}
		if err := store.Create(ctx, &r); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	due, err := store.ListDue(ctx, t0.Add(time.Hour), 3)
	if err != nil || len(due) != 3 {
		t.Fatalf("ListDue() = %d, %v", len(due), err)
	}
	for i := 1; i < len(due); i++ {
		if due[i].ScheduledAt.Before(due[i-1].ScheduledAt) {
			t.Fatal("ListDue() not ordered by scheduled time")
		}
	}
}

func (e *env) scannerWith(t *testing.T, store Store, dir directory.Directory, deliver Deliverer) *Scanner {
	t.Helper()
	s, err := NewScanner(store, dir, deliver, e.failures, e.clock, ScannerConfig{Concurrency: 2}, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewScanner() error = %v", err)
	}
	return s
}

// editingStore runs edit once, after ListDue returned and before any claim.
type editingStore struct {
	*MemoryStore
	once sync.Once
	edit func()
}

func (s *editingStore) ListDue(ctx context.Context, now time.Time, limit int) ([]Reminder, error) {
	due, err := s.MemoryStore.ListDue(ctx, now, limit)
	s.once.Do(s.edit)
	return due, err
}

func TestRearmBetweenListAndClaimIsNotDispatched(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, t0.Add(10*time.Minute), "original")

	later := t0.Add(2 * time.Hour)
	edited := "edited"
	store := &editingStore{MemoryStore: e.store, edit: func() {
		if _, err := e.service.UpdateReminder(ctx, r.ID, e.owner.ID, Edit{Message: &edited, ScheduledAt: &later}); err != nil {
			t.Errorf("UpdateReminder() error = %v", err)
		}
	}}
	scanner := e.scannerWith(t, store, e.dir, e.notifier)

	n, err := scanner.ScanAndDispatch(ctx, t0.Add(11*time.Minute))
	if err != nil || n != 0 {
		t.Fatalf("scan at old time = %d, %v; want 0", n, err)
	}
	stored, _ := e.store.Get(ctx, r.ID)
	if stored.Sent || !stored.ScheduledAt.Equal(later) {
		t.Fatalf("reminder after scan = %+v", stored)
	}
	if got := len(e.notes.All()); got != 0 {
		t.Fatalf("notifications = %d, want 0", got)
	}

	n, err = scanner.ScanAndDispatch(ctx, later.Add(time.Minute))
	if err != nil || n != 1 {
		t.Fatalf("scan at new time = %d, %v; want 1", n, err)
	}
	notes := e.notes.All()
	if len(notes) != 1 || notes[0].Message != edited || !notes[0].ScheduledAt.Equal(later) {
		t.Fatalf("notifications = %+v", notes)
	}
}

func TestClaimRequiresDue(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	r := Reminder{UserID: uuid.New(), SessionID: uuid.New(), Header: "h", Message: "m", ScheduledAt: t0.Add(time.Hour)}
	if err := store.Create(ctx, &r); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, ok, err := store.Claim(ctx, r.ID, t0); ok || err != nil {
		t.Fatalf("Claim() before due = %v, %v", ok, err)
	}
	got, ok, err := store.Claim(ctx, r.ID, t0.Add(time.Hour))
	if !ok || err != nil {
		t.Fatalf("Claim() when due = %v, %v", ok, err)
	}
	if !got.Sent || got.SentAt == nil || got.Message != "m" {
		t.Fatalf("claimed row = %+v", got)
	}
	if _, ok, _ := store.Claim(ctx, r.ID, t0.Add(2*time.Hour)); ok {
		t.Fatal("second Claim() succeeded")
	}
}

type failingDeliverer struct {
	mu    sync.Mutex
	calls int
}

func (d *failingDeliverer) Deliver(_ context.Context, _ notify.Notification) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return false, errors.New("insert notification: connection reset")
}

func TestDeliverFailureIsReportedAndReminderStaysSent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	a := e.create(t, t0.Add(time.Minute), "a")
	b := e.create(t, t0.Add(2*time.Minute), "b")

	deliver := &failingDeliverer{}
	scanner := e.scannerWith(t, e.store, e.dir, deliver)
	n, err := scanner.ScanAndDispatch(ctx, t0.Add(3*time.Minute))
	if err != nil || n != 2 {
		t.Fatalf("ScanAndDispatch() = %d, %v; want 2 claimed", n, err)
	}
	if deliver.calls != 2 {
		t.Fatalf("deliver calls = %d, want 2", deliver.calls)
	}

	reported := map[string]string{}
	for _, f := range e.failures.failures {
		reported[f.ReminderID] = f.Reason
		if f.Err == nil {
			t.Fatalf("failure %+v carries no cause", f)
		}
	}
	want := map[string]string{a.ID.String(): ReasonPersist, b.ID.String(): ReasonPersist}
	if !reflect.DeepEqual(reported, want) {
		t.Fatalf("failures = %v, want %v", reported, want)
	}
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		stored, _ := e.store.Get(ctx, id)
		if !stored.Sent || stored.SentAt == nil {
			t.Fatalf("reminder %s after failed delivery = %+v", id, stored)
		}
	}

	if n, _ := scanner.ScanAndDispatch(ctx, t0.Add(4*time.Minute)); n != 0 {
		t.Fatalf("rescan claimed %d, want 0", n)
	}
}

// sessionLookup fails every GetSession call with err.
type sessionLookup struct {
	directory.Directory
	err error
}

func (d sessionLookup) GetSession(_ context.Context, _ uuid.UUID) (sessions.Session, error) {
	return sessions.Session{}, d.err
}

func TestSessionLookupFailureReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    func(id uuid.UUID) error
		reason string
	}{
		{
			name:   "session removed",
			err:    func(id uuid.UUID) error { return apperr.NotFound("session", id) },
			reason: ReasonSessionMissing,
		},
		{
			name:   "directory unavailable",
			err:    func(uuid.UUID) error { return errors.New("dial tcp: connection refused") },
			reason: ReasonLookup,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			ctx := context.Background()
			r := e.create(t, t0.Add(time.Minute), "m")
			e.create(t, t0.Add(2*time.Minute), "n")

			dir := sessionLookup{Directory: e.dir, err: tt.err(e.session.ID)}
			scanner := e.scannerWith(t, e.store, dir, e.notifier)
			n, err := scanner.ScanAndDispatch(ctx, t0.Add(3*time.Minute))
			if err != nil || n != 2 {
				t.Fatalf("ScanAndDispatch() = %d, %v; want 2 claimed", n, err)
			}
			if len(e.failures.failures) != 2 {
				t.Fatalf("failures = %+v, want 2", e.failures.failures)
			}
			for _, f := range e.failures.failures {
				if f.Reason != tt.reason {
					t.Fatalf("failure reason = %s, want %s", f.Reason, tt.reason)
				}
			}
			if got := len(e.notes.All()); got != 0 {
				t.Fatalf("notifications = %d, want 0", got)
			}
			stored, _ := e.store.Get(ctx, r.ID)
			if !stored.Sent {
				t.Fatal("reminder must stay claimed after a lookup failure")
			}
		})
	}
}

func TestUpdateTextOfFiredReminderNeedsNewTime(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	r := e.create(t, t0.Add(10*time.Minute), "first")

	e.clock.Set(t0.Add(11 * time.Minute))
	if n, _ := e.scanner.ScanAndDispatch(ctx, e.clock.Now()); n != 1 {
		t.Fatalf("scan = %d, want 1", n)
	}

	msg := "second"
	if _, err := e.service.UpdateReminder(ctx, r.ID, e.owner.ID, Edit{Message: &msg}); !apperr.IsValidation(err) {
		t.Fatalf("text-only UpdateReminder() error = %v, want validation error", err)
	}
	at := t0.Add(30 * time.Minute)
	got, err := e.service.UpdateReminder(ctx, r.ID, e.owner.ID, Edit{Message: &msg, ScheduledAt: &at})
	if err != nil {
		t.Fatalf("UpdateReminder() error = %v", err)
	}
	if got.Sent || got.Message != msg || !got.ScheduledAt.Equal(at) {
		t.Fatalf("UpdateReminder() = %+v", got)
	}

	pending := e.create(t, t0.Add(time.Hour), "pending")
	header := "Renamed"
	if got, err := e.service.UpdateReminder(ctx, pending.ID, e.owner.ID, Edit{Header: &header}); err != nil || got.Header != header {
		t.Fatalf("text-only UpdateReminder() on pending reminder = %+v, %v", got, err)
	}
}
