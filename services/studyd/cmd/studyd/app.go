package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"studyhub/pkg/bus"
	"studyhub/pkg/clock"
	"studyhub/pkg/db"
	"studyhub/pkg/render"
	gos3 "studyhub/pkg/s3"
	"studyhub/services/directory"
	"studyhub/services/notify"
	"studyhub/services/reminders"
	"studyhub/services/sessions"
	"studyhub/services/studyd/internal/config"
)

// app holds the wired engine for one process.
type app struct {
	cfg config.Config
	log zerolog.Logger

	pool *pgxpool.Pool
	orm  *gorm.DB
	bus  *bus.Bus

	sessionStore sessions.Store
	dir          directory.Directory
	memDir       *directory.Memory
	reminders    *reminders.Service
	sessions     *sessions.Service
	notifier     *notify.Notifier
	inbox        *notify.Inbox
	scanner      *reminders.Scanner
	sweeper      *sessions.Sweeper
}

func newApp(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}
	if err := a.openStores(ctx); err != nil {
		a.close()
		return nil, err
	}
	if err := a.wire(ctx); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) openStores(ctx context.Context) error {
	if a.cfg.StoreBackend == config.BackendMemory {
		a.log.Warn().Msg("using in-memory stores; data is lost on exit")
		return nil
	}

	pool, err := db.Open(ctx, a.cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("open pool: %w", err)
	}
	a.pool = pool

	orm, err := db.Connect(ctx, a.cfg.DBDSN)
	if err != nil {
		return fmt.Errorf("connect orm: %w", err)
	}
	a.orm = orm
	return nil
}

func (a *app) wire(ctx context.Context) error {
	clk := clock.Real{}

	var (
		remStore  reminders.Store
		noteStore notify.Store
		err       error
	)
	if a.pool == nil {
		sessStore := sessions.NewMemoryStore()
		a.sessionStore = sessStore
		a.memDir = directory.NewMemory(sessStore, clk)
		a.dir = a.memDir
		remStore = reminders.NewMemoryStore()
		noteStore = notify.NewMemoryStore()
	} else {
		sessStore, err := sessions.NewGormStore(a.orm)
		if err != nil {
			return err
		}
		a.sessionStore = sessStore
		if a.dir, err = directory.NewGormDirectory(a.orm, sessStore); err != nil {
			return err
		}
		if remStore, err = reminders.NewGormStore(a.orm); err != nil {
			return err
		}
		if noteStore, err = notify.NewPgStore(a.pool); err != nil {
			return err
		}
	}

	var publisher notify.Publisher
	if a.cfg.NATSURL != "" {
		b, err := bus.New(a.cfg.NATSURL)
		if err != nil {
			return fmt.Errorf("connect nats: %w", err)
		}
		a.bus = b
		if err := b.EnsureStream(); err != nil {
			return fmt.Errorf("ensure stream: %w", err)
		}
		publisher = b
	}

	engine, err := render.New()
	if err != nil {
		return fmt.Errorf("load message catalog: %w", err)
	}

	opts := []notify.Option{notify.WithConcurrency(a.cfg.DispatchConcurrency)}
	if publisher != nil {
		opts = append(opts, notify.WithPublisher(publisher))
	}
	if a.cfg.NotesBucket != "" {
		client, err := gos3.NewClientFromEnv()
		if err != nil {
			return fmt.Errorf("s3 client: %w", err)
		}
		linker, err := gos3.NewLinker(client, a.cfg.NotesBucket, a.cfg.NotesLinkTTL)
		if err != nil {
			return err
		}
		opts = append(opts, notify.WithNotesLinker(linker))
	}

	logger := a.log
	if a.notifier, err = notify.NewNotifier(noteStore, a.dir, engine, clk, logger.With().Str("component", "notify").Logger(), opts...); err != nil {
		return err
	}
	if a.inbox, err = notify.NewInbox(noteStore); err != nil {
		return err
	}
	if a.reminders, err = reminders.NewService(remStore, a.dir, clk, logger.With().Str("component", "reminders").Logger()); err != nil {
		return err
	}
	if a.sessions, err = sessions.NewService(a.sessionStore, a.reminders, clk, logger.With().Str("component", "sessions").Logger()); err != nil {
		return err
	}

	failures := reminders.NewFailureReporter(a.orm, publisher, clk, logger.With().Str("component", "dispatch").Logger())
	a.scanner, err = reminders.NewScanner(remStore, a.dir, a.notifier, failures, clk, reminders.ScannerConfig{
		Interval:    a.cfg.ScanInterval,
		BatchSize:   a.cfg.ScanBatchSize,
		Concurrency: a.cfg.DispatchConcurrency,
	}, logger.With().Str("component", "scanner").Logger())
	if err != nil {
		return err
	}
	a.sweeper, err = sessions.NewSweeper(a.sessionStore, clk, a.cfg.SweepInterval, logger.With().Str("component", "sweeper").Logger())
	return err
}

// ready reports whether the configured backends are reachable.
func (a *app) ready(ctx context.Context) error {
	if a.pool != nil {
		if err := db.Ping(ctx, a.pool); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	if a.bus != nil && !a.bus.Connected() {
		return errors.New("nats: disconnected")
	}
	return nil
}

func (a *app) close() {
	if a.bus != nil {
		a.bus.Close()
	}
	if a.orm != nil {
		if err := db.Close(a.orm); err != nil {
			a.log.Error().Err(err).Msg("close database")
		}
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
