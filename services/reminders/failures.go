package reminders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"studyhub/pkg/apperr"
	"studyhub/pkg/bus"
	"studyhub/pkg/clock"
	"studyhub/services/notify"
)

// Dispatch failure reasons.
const (
	ReasonOwnerMissing   = "owner_missing"
	ReasonSessionMissing = "session_missing"
	ReasonLookup         = "lookup_failed"
	ReasonPersist        = "persist_failed"
)

// FailureSink receives reminders that were claimed but not delivered.
type FailureSink interface {
	Report(ctx context.Context, failure *apperr.DispatchFailure)
}

type failureModel struct {
	ID         int64             `gorm:"type:bigserial;primaryKey"`
	ReminderID uuid.UUID         `gorm:"type:uuid;not null;index"`
	Reason     string            `gorm:"type:text;not null"`
	Details    datatypes.JSONMap `gorm:"type:jsonb"`
	At         time.Time         `gorm:"type:timestamptz;not null;autoCreateTime"`
}

func (failureModel) TableName() string { return "dispatch_failures" }

// FailedDispatch is the payload published for every reported failure.
type FailedDispatch struct {
	ReminderID string    `json:"reminder_id"`
	Reason     string    `json:"reason"`
	Error      string    `json:"error,omitempty"`
	At         time.Time `json:"at"`
}

// FailureReporter surfaces dispatch failures to operators: an error log
// line, a counter, an audit row and a bus event. The audit table and the
// bus are optional.
type FailureReporter struct {
	orm   *gorm.DB
	pub   notify.Publisher
	clock clock.Clock
	log   zerolog.Logger
}

// NewFailureReporter builds a reporter. orm and pub may be nil.
func NewFailureReporter(orm *gorm.DB, pub notify.Publisher, clk clock.Clock, log zerolog.Logger) *FailureReporter {
	if clk == nil {
		clk = clock.Real{}
	}
	return &FailureReporter{orm: orm, pub: pub, clock: clk, log: log}
}

func (r *FailureReporter) Report(ctx context.Context, failure *apperr.DispatchFailure) {
	if failure == nil {
		return
	}
	at := r.clock.Now()
	dispatchFailures.WithLabelValues(failure.Reason).Inc()

	evt := r.log.Error().Str("reminder_id", failure.ReminderID).Str("reason", failure.Reason)
	if failure.Err != nil {
		evt = evt.Err(failure.Err)
	}
	evt.Msg("reminder claimed but not delivered")

	errText := ""
	if failure.Err != nil {
		errText = failure.Err.Error()
	}

	if r.orm != nil {
		if err := r.insertAudit(ctx, failure, errText, at); err != nil {
			r.log.Error().Err(err).Str("reminder_id", failure.ReminderID).Msg("record dispatch failure")
		}
	}

	if r.pub != nil {
		payload := FailedDispatch{ReminderID: failure.ReminderID, Reason: failure.Reason, Error: errText, At: at}
		if err := r.pub.Publish(ctx, bus.SubjectDispatchFailed, "dispatch-failed:"+failure.ReminderID, payload); err != nil {
			r.log.Warn().Err(err).Str("reminder_id", failure.ReminderID).Msg("publish dispatch failure")
		}
	}
}

func (r *FailureReporter) insertAudit(ctx context.Context, failure *apperr.DispatchFailure, errText string, at time.Time) error {
	id, err := uuid.Parse(failure.ReminderID)
	if err != nil {
		return err
	}
	row := failureModel{
		ReminderID: id,
		Reason:     failure.Reason,
		Details:    datatypes.JSONMap{"error": errText},
		At:         at,
	}
	return r.orm.WithContext(ctx).Create(&row).Error
}
