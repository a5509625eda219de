package reminders

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"studyhub/pkg/apperr"
	"studyhub/pkg/clock"
	"studyhub/services/directory"
	"studyhub/services/notify"
)

const (
	defaultScanInterval = time.Minute
	defaultBatchSize    = 500
	defaultConcurrency  = 8
)

// Deliverer persists a notification, skipping duplicates of the same event.
type Deliverer interface {
	Deliver(ctx context.Context, n notify.Notification) (bool, error)
}

// ScannerConfig tunes the scan loop. Zero values select defaults.
type ScannerConfig struct {
	Interval    time.Duration
	BatchSize   int
	Concurrency int
}

// Scanner turns due reminders into REMINDER_DUE notifications. Each
// reminder is claimed before dispatch, so overlapping scans (from a slow
// tick or another replica) dispatch disjoint sets.
type Scanner struct {
	store    Store
	dir      directory.Directory
	deliver  Deliverer
	failures FailureSink
	clock    clock.Clock
	cfg      ScannerConfig
	log      zerolog.Logger
}

// NewScanner wires a Scanner.
func NewScanner(store Store, dir directory.Directory, deliver Deliverer, failures FailureSink, clk clock.Clock, cfg ScannerConfig, log zerolog.Logger) (*Scanner, error) {
	if store == nil {
		return nil, errors.New("reminder store is required")
	}
	if dir == nil {
		return nil, errors.New("directory is required")
	}
	if deliver == nil {
		return nil, errors.New("deliverer is required")
	}
	if failures == nil {
		failures = NewFailureReporter(nil, nil, clk, log)
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultScanInterval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	return &Scanner{
		store:    store,
		dir:      dir,
		deliver:  deliver,
		failures: failures,
		clock:    clk,
		cfg:      cfg,
		log:      log,
	}, nil
}

// ScanAndDispatch claims every reminder due at now and dispatches it. It
// returns how many reminders this call claimed. Per-reminder problems are
// reported and never abort the batch; the returned error only joins store
// failures hit while claiming.
func (s *Scanner) ScanAndDispatch(ctx context.Context, now time.Time) (int, error) {
	ctx, span := otel.Tracer("studyhub/reminders").Start(ctx, "reminders.scan")
	defer span.End()
	start := time.Now()
	defer func() { scanDuration.Observe(time.Since(start).Seconds()) }()

	due, err := s.store.ListDue(ctx, now, s.cfg.BatchSize)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list due")
		return 0, err
	}
	span.SetAttributes(attribute.Int("reminders.due", len(due)))
	if len(due) == 0 {
		return 0, nil
	}

	var (
		claimed atomic.Int64
		mu      sync.Mutex
		errs    []error
		g       errgroup.Group
	)
	g.SetLimit(s.cfg.Concurrency)
	for _, r := range due {
		g.Go(func() error {
			row, ok, err := s.store.Claim(ctx, r.ID, now)
			if err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return nil
			}
			if !ok {
				claimsLost.Inc()
				s.log.Debug().Str("reminder_id", r.ID.String()).Msg("reminder claimed elsewhere or re-armed")
				return nil
			}
			claimed.Add(1)
			s.dispatch(ctx, row, now)
			return nil
		})
	}
	_ = g.Wait()

	n := int(claimed.Load())
	span.SetAttributes(attribute.Int("reminders.claimed", n))
	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		return n, err
	}
	return n, nil
}

func (s *Scanner) dispatch(ctx context.Context, r Reminder, sentAt time.Time) {
	if _, err := s.dir.GetUser(ctx, r.UserID); err != nil {
		s.fail(ctx, r, lookupReason(err, ReasonOwnerMissing), err)
		return
	}
	session, err := s.dir.GetSession(ctx, r.SessionID)
	if err != nil {
		s.fail(ctx, r, lookupReason(err, ReasonSessionMissing), err)
		return
	}

	scheduledAt := r.ScheduledAt
	sessionID := session.ID
	_, err = s.deliver.Deliver(ctx, notify.Notification{
		ID:          uuid.New(),
		RecipientID: r.UserID,
		SessionID:   &sessionID,
		Type:        notify.TypeReminderDue,
		Title:       r.Header,
		Message:     r.Message,
		CreatedAt:   sentAt,
		ScheduledAt: &scheduledAt,
		EventKey:    fmt.Sprintf("reminder:%s:%d", r.ID, sentAt.UnixNano()),
	})
	if err != nil {
		s.fail(ctx, r, ReasonPersist, err)
		return
	}
	remindersDispatched.Inc()
}

func (s *Scanner) fail(ctx context.Context, r Reminder, reason string, err error) {
	s.failures.Report(ctx, &apperr.DispatchFailure{ReminderID: r.ID.String(), Reason: reason, Err: err})
}

func lookupReason(err error, missing string) string {
	if apperr.IsNotFound(err) {
		return missing
	}
	return ReasonLookup
}

// Run scans immediately and then on every tick until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.cfg.Interval).Int("batch_size", s.cfg.BatchSize).Msg("reminder scanner started")
	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("reminder scanner stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scanner) tick(ctx context.Context) {
	n, err := s.ScanAndDispatch(ctx, s.clock.Now())
	if err != nil {
		s.log.Error().Err(err).Int("claimed", n).Msg("scan reminders")
		return
	}
	if n > 0 {
		s.log.Info().Int("claimed", n).Msg("reminders dispatched")
	}
}
