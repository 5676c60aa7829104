package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"SingularityDashboard/internal/scenario"
)

// AppConfig selects where configuration comes from.
type AppConfig struct {
	ConfigPath string
	Overrides  Overrides
}

func DefaultAppConfig() AppConfig {
	return AppConfig{
		ConfigPath: ConfigPathFromEnv("configs/server.yaml"),
	}
}

// App wires the scenario catalog, live sessions and HTTP surface together.
type App struct {
	cfg       Config
	logger    *log.Logger
	validator *scenario.Validator
	catalog   *scenario.Catalog
	hub       *Hub
	metrics   *Collector
}

// NewLogger creates a leveled logger; unknown levels fall back to info.
func NewLogger(level string) *log.Logger {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.TimeOnly,
		Prefix:          "techtree",
		Level:           lvl,
	})
}

func resolveConfig(cfg AppConfig, logger *log.Logger) Config {
	loaded, err := LoadConfig(cfg.ConfigPath, DefaultConfig())
	if err != nil {
		logger.Warn("Config not applied, using defaults", "err", err)
		loaded = sanitizeConfig(DefaultConfig())
	}
	return cfg.Overrides.apply(loaded)
}

// NewApp loads the scenario catalog and prepares the handlers.
func NewApp(cfg Config, logger *log.Logger) (*App, error) {
	validator, err := scenario.NewValidator(cfg.ValidationCacheSize)
	if err != nil {
		return nil, err
	}
	catalog := scenario.NewCatalog(validator, logger)
	if err := catalog.LoadBuiltin(); err != nil {
		return nil, fmt.Errorf("bundled scenarios: %w", err)
	}
	if cfg.ScenarioDir != "" {
		n, err := catalog.LoadDir(cfg.ScenarioDir)
		if err != nil {
			return nil, err
		}
		logger.Info("Scenario directory loaded", "dir", cfg.ScenarioDir, "count", n)
	}
	if _, err := catalog.Get(cfg.DefaultScenario); err != nil {
		fallback := catalog.Default().ID
		logger.Warn("Default scenario not found", "want", cfg.DefaultScenario, "using", fallback)
		cfg.DefaultScenario = fallback
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		validator: validator,
		catalog:   catalog,
		hub:       NewHub(),
		metrics:   NewCollector(),
	}, nil
}

// Handler returns the HTTP handler serving the API and websocket endpoint.
func (a *App) Handler() http.Handler {
	return a.routes()
}

// Config returns the resolved configuration.
func (a *App) Config() Config {
	return a.cfg
}

// Serve runs the HTTP server until ctx is cancelled.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	a.logger.Info("Starting web server",
		"addr", a.cfg.Addr,
		"tick", a.cfg.TickInterval,
		"push", a.cfg.PushInterval,
		"scenarios", len(a.catalog.IDs()),
		"default", a.cfg.DefaultScenario,
	)

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down", "sessions", a.hub.Count())
	a.hub.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// StartApp resolves configuration and serves until interrupted.
func StartApp(cfg AppConfig) error {
	resolved := resolveConfig(cfg, NewLogger("info"))
	logger := NewLogger(resolved.LogLevel)

	app, err := NewApp(resolved, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Serve(ctx)
}
