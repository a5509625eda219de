package sessions

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"studyhub/pkg/clock"
)

const defaultSweepInterval = 5 * time.Minute

// Sweeper periodically persists time-derived statuses so that stored rows
// track the resolver. Reads never depend on it.
type Sweeper struct {
	store    Store
	clock    clock.Clock
	interval time.Duration
	log      zerolog.Logger
}

// NewSweeper creates a Sweeper. A non-positive interval selects the default.
func NewSweeper(store Store, clk clock.Clock, interval time.Duration, log zerolog.Logger) (*Sweeper, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if clk == nil {
		clk = clock.Real{}
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{store: store, clock: clk, interval: interval, log: log}, nil
}

// Sweep persists the statuses resolved at now.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	return s.store.Advance(ctx, now)
}

// Run sweeps on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.Info().Dur("interval", s.interval).Msg("session status sweeper started")
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("session status sweeper stopped")
			return
		case <-ticker.C:
			n, err := s.Sweep(ctx, s.clock.Now())
			if err != nil {
				s.log.Error().Err(err).Msg("sweep session statuses")
				continue
			}
			if n > 0 {
				s.log.Debug().Int("changed", n).Msg("session statuses advanced")
			}
		}
	}
}
