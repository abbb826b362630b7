package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/searchktools/pageserver/config"
	"github.com/searchktools/pageserver/core"
	"github.com/searchktools/pageserver/core/logging"
	"github.com/searchktools/pageserver/core/observability"
)

// App is the application instance wiring configuration, logging and the engine
type App struct {
	cfg     config.Config
	logger  *slog.Logger
	monitor *observability.Monitor
	engine  *core.Engine
}

// New creates an application instance logging to stderr
func New(cfg config.Config) (*App, error) {
	return NewWithWriter(cfg, os.Stderr)
}

// NewWithWriter creates an application instance logging to w
func NewWithWriter(cfg config.Config, w io.Writer) (*App, error) {
	logger, err := logging.New(w, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, err
	}
	logger = logger.With(slog.String("env", cfg.Env))

	monitor := observability.NewMonitor()
	engine, err := core.NewEngine(cfg, core.WithLogger(logger), core.WithMonitor(monitor))
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	return &App{
		cfg:     cfg,
		logger:  logger,
		monitor: monitor,
		engine:  engine,
	}, nil
}

// Engine returns the underlying engine
func (a *App) Engine() *core.Engine {
	return a.engine
}

// Monitor returns the response monitor shared with the engine
func (a *App) Monitor() *observability.Monitor {
	return a.monitor
}

// Logger returns the application logger
func (a *App) Logger() *slog.Logger {
	return a.logger
}

// Run serves until SIGINT or SIGTERM is received
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return a.RunContext(ctx)
}

// RunContext serves until ctx is cancelled.
// Open connections are closed immediately; there is no draining.
func (a *App) RunContext(ctx context.Context) error {
	if err := a.engine.Listen(); err != nil {
		return fmt.Errorf("server startup failed: %w", err)
	}

	a.logger.Info("page server started",
		slog.Int("port", a.engine.Addr().Port),
		slog.String("root", a.cfg.Root),
	)

	if err := a.engine.Serve(ctx); err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	a.logger.Debug("final statistics", slog.Any("stats", a.engine.Stats()))
	return nil
}
