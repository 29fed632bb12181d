package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/syncgraph/internal/ctxlog"
	"github.com/vk/syncgraph/internal/feed"
	"github.com/vk/syncgraph/internal/inmemorystore"
	"github.com/vk/syncgraph/internal/lifecycle"
	"github.com/vk/syncgraph/internal/loader"
	"github.com/vk/syncgraph/internal/pipeline"
	"github.com/vk/syncgraph/internal/progress"
	"github.com/vk/syncgraph/internal/sessionstore"
	"github.com/vk/syncgraph/internal/sqlitestore"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logW       io.Writer
	ctx        context.Context
	logger     *slog.Logger
	config     *Config
	loader     *loader.Loader
	inserter   *pipeline.Inserter
	storage    sessionstore.Store
	progress   *progress.Store
	bus        *lifecycle.Bus
	httpServer *http.Server
	closers    []func() error
}

// Option customizes an App at construction.
type Option func(*App)

// WithStorage replaces the session storage chosen from the config.
func WithStorage(storage sessionstore.Store) Option {
	return func(a *App) {
		a.storage = storage
	}
}

// WithLogWriter sends log output to w instead of the report writer.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) {
		a.logW = w
	}
}

// WithInserter replaces the default edge inserter.
func WithInserter(in *pipeline.Inserter) Option {
	return func(a *App) {
		a.inserter = in
	}
}

// NewApp is the constructor for the main application. It returns a fully
// initialized App instance with its own isolated logger, storage and bus.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) (*App, error) {
	a := &App{
		outW:     outW,
		logW:     outW,
		config:   cfg,
		loader:   loader.New(),
		inserter: pipeline.NewInserter(nil),
		bus:      lifecycle.NewBus(),
	}
	for _, opt := range opts {
		opt(a)
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, a.logW)
	ctx := ctxlog.WithLogger(context.Background(), logger)
	a.logger = logger
	a.ctx = ctx
	logger.Debug("Logger configured successfully.")

	if a.storage == nil {
		storage, closeFn, err := openStorage(ctx, cfg)
		if err != nil {
			return nil, err
		}
		a.storage = storage
		if closeFn != nil {
			a.closers = append(a.closers, closeFn)
		}
	}
	a.progress = progress.NewStore(a.storage)

	if err := a.subscribeLifecycle(); err != nil {
		return nil, errors.Join(err, a.Close())
	}
	logger.Debug("App initialized.", "session_db", cfg.SessionDBPath != "")
	return a, nil
}

// openStorage picks the session storage medium described by cfg.
func openStorage(ctx context.Context, cfg *Config) (sessionstore.Store, func() error, error) {
	if cfg.SessionDBPath == "" {
		ctxlog.FromContext(ctx).Debug("Using in-memory session storage.")
		return inmemorystore.New(), nil, nil
	}

	var opts []sqlitestore.Option
	if cfg.SessionID != "" {
		opts = append(opts, sqlitestore.WithSessionID(cfg.SessionID))
	}
	db, err := sqlitestore.Open(ctx, cfg.SessionDBPath, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
	}
	ctxlog.FromContext(ctx).Info("Using SQLite session storage.",
		"path", cfg.SessionDBPath, "session_id", db.SessionID(), "resumed", cfg.SessionID != "")

	closeFn := db.Close
	if cfg.SessionID == "" {
		// Unnamed sessions cannot be resumed; their rows go with them.
		closeFn = func() error {
			if err := db.Purge(context.Background()); err != nil {
				return errors.Join(err, db.Close())
			}
			return db.Close()
		}
	}
	return db, closeFn, nil
}

// Progress returns the application's progress store.
func (a *App) Progress() *progress.Store {
	return a.progress
}

// Bus returns the application's lifecycle bus.
func (a *App) Bus() *lifecycle.Bus {
	return a.bus
}

// Context returns the application's base context, carrying its logger.
func (a *App) Context() context.Context {
	return a.ctx
}

// attachFeed dials the remote feed and routes its events into the app.
func (a *App) attachFeed(ctx context.Context) error {
	client, err := feed.Dial(ctx, feed.Config{
		URL:                a.config.FeedURL,
		Namespace:          a.config.FeedNamespace,
		InsecureSkipVerify: a.config.FeedInsecureSkipVerify,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to feed: %w", err)
	}
	feed.New(a.progress, a.bus).Attach(ctx, client)
	a.closers = append(a.closers, client.Close)
	return nil
}

// Close releases everything the app opened, most recent first.
func (a *App) Close() error {
	var errs []error
	if err := a.closeHealthCheckServer(); err != nil {
		errs = append(errs, err)
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
