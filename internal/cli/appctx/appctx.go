// Package appctx provides a shared bootstrap helper for CLI commands and the
// daemon. It centralizes config loading, backend opening, and store wiring to
// reduce boilerplate across commands.
package appctx

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/lherron/pipeboard/internal/config"
	"github.com/lherron/pipeboard/internal/dashboard"
	"github.com/lherron/pipeboard/internal/db"
	"github.com/lherron/pipeboard/internal/logging"
	"github.com/lherron/pipeboard/internal/seed"
	"github.com/lherron/pipeboard/internal/sheet"
	"github.com/lherron/pipeboard/internal/sheet/memory"
	"github.com/lherron/pipeboard/internal/sheet/redissheet"
	"github.com/lherron/pipeboard/internal/sheet/sqlsheet"
	"github.com/lherron/pipeboard/internal/store"
	"github.com/lherron/pipeboard/internal/webhooks"
)

// App holds the shared application context for commands.
type App struct {
	// Config is the loaded configuration
	Config *config.Config

	// Logger writes to stderr using the configured level and format
	Logger *slog.Logger

	// Sheets is the opened row store (nil if NeedsStore is false)
	Sheets sheet.Store

	// DB is the SQL connection behind Sheets for the sqlite and postgres backends
	DB *db.DB

	// Store wraps Sheets with the dashboard read and write paths
	Store *store.Store

	// Webhooks delivers applied mutations (nil when no webhook URLs are set)
	Webhooks *webhooks.Dispatcher
}

// Close releases resources held by the App.
// Safe to call multiple times.
func (a *App) Close() {
	if a.Webhooks != nil {
		a.Webhooks.Wait()
	}
	if closer, ok := a.Sheets.(sheet.Closer); ok {
		closer.Close()
	} else if a.DB != nil {
		a.DB.Close()
	}
	a.Sheets = nil
	a.DB = nil
	a.Store = nil
}

// Service builds a dashboard service over the App's store using the
// configured variant.
func (a *App) Service(opts ...dashboard.Option) *dashboard.Service {
	base := []dashboard.Option{dashboard.WithLogger(a.Logger)}
	if a.Webhooks != nil {
		base = append(base, dashboard.WithNotifier(a.Webhooks))
	}
	opts = append(base, opts...)
	return dashboard.New(a.Store, a.Config.DashboardVariant(), opts...)
}

// Options configures the bootstrap behavior.
type Options struct {
	// NeedsStore indicates whether to open the backend.
	NeedsStore bool

	// SkipMigrationCheck opens SQL backends even with pending migrations.
	// Used by init and migrate.
	SkipMigrationCheck bool
}

// DefaultOptions returns default options (backend required).
func DefaultOptions() Options {
	return Options{NeedsStore: true}
}

// ConfigOnly returns options that load config without opening a backend.
func ConfigOnly() Options {
	return Options{}
}

// RunFunc is the signature for command run functions.
type RunFunc func(app *App, cmd *cobra.Command, args []string) error

// WithApp wraps a command's run function with shared bootstrap logic.
// The backend is closed automatically when the wrapped function returns.
func WithApp(opts Options, fn RunFunc) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := Bootstrap(cmd, opts)
		if err != nil {
			return err
		}
		defer app.Close()

		return fn(app, cmd, args)
	}
}

// Bootstrap loads configuration, applies the --db, --backend and --variant
// flags, and opens the backend if requested.
// Callers are responsible for calling App.Close() when done.
func Bootstrap(cmd *cobra.Command, opts Options) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	overrides := map[string]*string{
		"db":      &cfg.DBPath,
		"backend": &cfg.Backend,
		"variant": &cfg.Variant,
	}
	for name, dst := range overrides {
		if flag := cmd.Flag(name); flag != nil {
			if v := flag.Value.String(); v != "" {
				*dst = v
			}
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return Open(ctx, cfg, opts)
}

// Open validates cfg, builds the logger, and opens the backend if requested.
func Open(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger, err := logging.New(os.Stderr, logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}
	if len(cfg.WebhookURLs) > 0 {
		app.Webhooks = webhooks.New(cfg.WebhookURLs, webhooks.WithLogger(logger))
	}
	if !opts.NeedsStore {
		return app, nil
	}

	sheets, database, err := OpenSheets(ctx, cfg, !opts.SkipMigrationCheck)
	if err != nil {
		return nil, err
	}
	app.Sheets = sheets
	app.DB = database
	app.Store = store.New(sheets)
	return app, nil
}

// OpenSheets opens the configured backend. SQL backends return their
// connection as well; with checkMigrations set, pending migrations are an
// error. The memory backend starts out holding the sample dataset.
func OpenSheets(ctx context.Context, cfg *config.Config, checkMigrations bool) (sheet.Store, *db.DB, error) {
	switch cfg.Backend {
	case config.BackendSQLite, config.BackendPostgres:
		var (
			database *db.DB
			err      error
		)
		if cfg.Backend == config.BackendSQLite {
			database, err = db.Open(cfg.DBPath)
		} else {
			database, err = db.OpenPostgres(ctx, cfg.DatabaseURL)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open database: %w", err)
		}
		if checkMigrations {
			if err := database.RequiresMigrationError(); err != nil {
				database.Close()
				return nil, nil, err
			}
		}
		return sqlsheet.New(database), database, nil

	case config.BackendRedis:
		sheets, err := redissheet.Open(ctx, cfg.RedisURL, cfg.RedisPrefix)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open redis: %w", err)
		}
		return sheets, nil, nil

	case config.BackendMemory:
		sheets := memory.New()
		if _, err := seed.Load(ctx, sheets, false); err != nil {
			return nil, nil, fmt.Errorf("failed to seed memory backend: %w", err)
		}
		return sheets, nil, nil

	default:
		return nil, nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}
}
