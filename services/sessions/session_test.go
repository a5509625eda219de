package sessions

import (
	"testing"
	"time"
)

func ptr(t time.Time) *time.Time { return &t }

func TestResolve(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	tests := []struct {
		name    string
		session Session
		now     time.Time
		want    Status
	}{
		{
			name:    "before start",
			session: Session{Status: StatusScheduled, StartTime: ptr(start), EndTime: ptr(end)},
			now:     start.Add(-time.Minute),
			want:    StatusScheduled,
		},
		{
			name:    "at start",
			session: Session{Status: StatusScheduled, StartTime: ptr(start), EndTime: ptr(end)},
			now:     start,
			want:    StatusActive,
		},
		{
			name:    "inside interval with stale stored status",
			session: Session{Status: StatusCompleted, StartTime: ptr(start), EndTime: ptr(end)},
			now:     start.Add(time.Hour),
			want:    StatusActive,
		},
		{
			name:    "at end",
			session: Session{Status: StatusActive, StartTime: ptr(start), EndTime: ptr(end)},
			now:     end,
			want:    StatusCompleted,
		},
		{
			name:    "missing start",
			session: Session{Status: StatusActive, EndTime: ptr(end)},
			now:     end.Add(time.Hour),
			want:    StatusScheduled,
		},
		{
			name:    "missing end",
			session: Session{Status: StatusScheduled, StartTime: ptr(start)},
			now:     start.Add(time.Hour),
			want:    StatusScheduled,
		},
		{
			name:    "cancelled before start",
			session: Session{Status: StatusCancelled, StartTime: ptr(start), EndTime: ptr(end)},
			now:     start.Add(-time.Hour),
			want:    StatusCancelled,
		},
		{
			name:    "trash without times",
			session: Session{Status: StatusTrash},
			now:     start,
			want:    StatusTrash,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Resolve(tt.session, tt.now); got != tt.want {
				t.Fatalf("Resolve() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestResolveIsMonotonic(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Minute)
	s := Session{Status: StatusScheduled, StartTime: ptr(start), EndTime: ptr(end)}

	rank := map[Status]int{StatusScheduled: 0, StatusActive: 1, StatusCompleted: 2}
	prev := -1
	for now := start.Add(-time.Hour); now.Before(end.Add(time.Hour)); now = now.Add(7 * time.Minute) {
		got := rank[Resolve(s, now)]
		if got < prev {
			t.Fatalf("status regressed at %s", now)
		}
		prev = got
	}
	if prev != rank[StatusCompleted] {
		t.Fatalf("final status rank = %d, want completed", prev)
	}
}

func TestResolveTerminalOverridesIgnoreClock(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)
	for _, status := range []Status{StatusCancelled, StatusDeleted, StatusTrash} {
		s := Session{Status: status, StartTime: ptr(start), EndTime: ptr(end)}
		for _, now := range []time.Time{start.Add(-time.Hour), start, start.Add(30 * time.Minute), end, end.Add(24 * time.Hour)} {
			if got := Resolve(s, now); got != status {
				t.Fatalf("Resolve(%s, %s) = %s", status, now, got)
			}
		}
	}
}

func TestViewDoesNotMutateInput(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := Session{Status: StatusScheduled, StartTime: ptr(start), EndTime: ptr(start.Add(time.Hour))}
	v := View(s, start.Add(time.Minute))
	if v.Status != StatusActive {
		t.Fatalf("View().Status = %s, want ACTIVE", v.Status)
	}
	if s.Status != StatusScheduled {
		t.Fatalf("input status changed to %s", s.Status)
	}
}
