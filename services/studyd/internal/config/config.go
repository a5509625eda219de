package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Storage backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config holds runtime configuration for studyd.
type Config struct {
	Addr                string        `env:"ADDR,default=:8080"`
	StoreBackend        string        `env:"STORE_BACKEND,default=postgres"`
	DBDSN               string        `env:"DB_DSN"`
	NATSURL             string        `env:"NATS_URL"`
	OTLPEndpoint        string        `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins      []string      `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:5173"`
	RateLimitPerMinute  int           `env:"RATE_LIMIT_PER_MINUTE,default=100"`
	ScanInterval        time.Duration `env:"SCAN_INTERVAL,default=1m"`
	ScanBatchSize       int           `env:"SCAN_BATCH_SIZE,default=500"`
	DispatchConcurrency int           `env:"DISPATCH_CONCURRENCY,default=8"`
	SweepInterval       time.Duration `env:"SWEEP_INTERVAL,default=5m"`
	NotesBucket         string        `env:"NOTES_BUCKET"`
	NotesLinkTTL        time.Duration `env:"NOTES_LINK_TTL,default=1h"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith populates a Config from the provided lookuper.
func LoadWith(ctx context.Context, lookuper envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookuper,
	}); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendPostgres:
		if c.DBDSN == "" {
			return errors.New("DB_DSN is required for the postgres backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("STORE_BACKEND must be %q or %q, got %q", BackendPostgres, BackendMemory, c.StoreBackend)
	}
	if c.ScanInterval <= 0 {
		return errors.New("SCAN_INTERVAL must be positive")
	}
	if c.SweepInterval <= 0 {
		return errors.New("SWEEP_INTERVAL must be positive")
	}
	if c.ScanBatchSize <= 0 {
		return errors.New("SCAN_BATCH_SIZE must be positive")
	}
	if c.DispatchConcurrency <= 0 {
		return errors.New("DISPATCH_CONCURRENCY must be positive")
	}
	return nil
}
