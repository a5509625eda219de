package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"studyhub/pkg/db"
	"studyhub/pkg/telemetry"
	"studyhub/services/api"
	"studyhub/services/events"
	"studyhub/services/studyd/internal/config"
)

const serviceName = "studyd"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg(serviceName)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           serviceName,
		Short:         "Study session reminder and notification engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newScanCommand())
	cmd.AddCommand(newSweepCommand())
	cmd.AddCommand(newMigrateCommand())
	return cmd
}

func loadApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return newApp(ctx, cfg, log.Logger)
}

func newServeCommand() *cobra.Command {
	var (
		migrate  bool
		sweep    bool
		seedPath string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the reminder scanner and the event consumer",
		Long: `Run the HTTP API, the reminder scanner and the event consumer.

With STORE_BACKEND=memory the process starts with no users or sessions;
pass --seed with a YAML file of users and sessions so reminders and
events have something to resolve against.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			if seedPath != "" {
				f, err := loadSeed(seedPath)
				if err != nil {
					return err
				}
				if err := a.seed(ctx, f); err != nil {
					return err
				}
			}

			if migrate && a.pool != nil {
				if err := db.Migrate(ctx, a.pool); err != nil {
					return fmt.Errorf("migrate database: %w", err)
				}
			}
			return serve(ctx, a, sweep)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", false, "Apply database migrations before serving")
	cmd.Flags().BoolVar(&sweep, "sweep", true, "Persist derived session statuses periodically")
	cmd.Flags().StringVar(&seedPath, "seed", "", "YAML file of users and sessions to load into the memory backend")
	return cmd
}

func serve(ctx context.Context, a *app, sweep bool) error {
	shutdownTracing, middleware, err := telemetry.Init(ctx, serviceName, a.cfg.OTLPEndpoint, a.log)
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("shutdown telemetry")
		}
	}()

	var subscriber events.Subscriber
	if a.bus != nil {
		subscriber = a.bus
	}
	consumer, err := events.NewConsumer(subscriber, a.notifier, a.log.With().Str("component", "events").Logger())
	if err != nil {
		return err
	}
	if subscriber != nil {
		if err := consumer.Start(ctx); err != nil {
			return fmt.Errorf("start event consumer: %w", err)
		}
		defer consumer.Close()
	}

	httpAPI, err := api.New(a.reminders, a.inbox, a.sessions, consumer, api.Config{
		AllowedOrigins:     a.cfg.AllowedOrigins,
		RateLimitPerMinute: a.cfg.RateLimitPerMinute,
		Ready:              a.ready,
		Middleware:         middleware,
	}, a.log.With().Str("component", "api").Logger())
	if err != nil {
		return err
	}
	handler, err := httpAPI.Routes()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.log.Info().Str("addr", a.cfg.Addr).Msg("starting studyd")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		a.scanner.Run(gctx)
		return nil
	})
	if sweep {
		g.Go(func() error {
			a.sweeper.Run(gctx)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.log.Error().Err(err).Msg("shutdown server")
		}
		return nil
	})
	return g.Wait()
}

func newScanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scan",
		Short: "Dispatch every reminder due now and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.scanner.ScanAndDispatch(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "dispatched %d reminders\n", n)
			return nil
		},
	}
}

func newSweepCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Persist derived session statuses once and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := loadApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			n, err := a.sweeper.Sweep(ctx, time.Now().UTC())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "advanced %d sessions\n", n)
			return nil
		},
	}
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.Load(ctx)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if cfg.StoreBackend != config.BackendPostgres {
				return errors.New("migrate requires STORE_BACKEND=postgres")
			}
			pool, err := db.Open(ctx, cfg.DBDSN)
			if err != nil {
				return fmt.Errorf("open pool: %w", err)
			}
			defer pool.Close()

			if err := db.Migrate(ctx, pool); err != nil {
				return fmt.Errorf("migrate database: %w", err)
			}
			log.Info().Msg("migrations applied")
			return nil
		},
	}
}
