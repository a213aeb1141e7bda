package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/phasegrid/internal/config"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/metrics"
	"github.com/specialistvlad/phasegrid/internal/notify"
	"github.com/specialistvlad/phasegrid/internal/remote"
	"github.com/specialistvlad/phasegrid/internal/snapshot"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW     io.Writer
	logW     io.Writer
	logger   *slog.Logger
	config   *Config
	project  *config.Project
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	// Collaborators injected through options. When nil, Run builds them
	// from the configuration and owns their lifetime.
	service   remote.Service
	publisher notify.Publisher
	snapshots snapshot.Store

	httpServer *http.Server
}

// Option customises an App.
type Option func(*App)

// WithService replaces the HTTP compiler service client.
func WithService(svc remote.Service) Option {
	return func(a *App) { a.service = svc }
}

// WithPublisher replaces the publisher built from NotifyURL.
func WithPublisher(p notify.Publisher) Option {
	return func(a *App) { a.publisher = p }
}

// WithSnapshotStore replaces the Badger store opened from SnapshotDir.
func WithSnapshotStore(s snapshot.Store) Option {
	return func(a *App) { a.snapshots = s }
}

// WithLogWriter sends logs somewhere other than the output writer.
func WithLogWriter(w io.Writer) Option {
	return func(a *App) { a.logW = w }
}

// NewApp is the constructor for the main application. It builds the App's
// own isolated logger and metrics registry and loads the project. A nil
// loader selects one from cfg.Format and the project paths.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app configuration is required")
	}
	a := &App{outW: outW, logW: outW, config: cfg}
	for _, opt := range opts {
		opt(a)
	}

	a.logger = newLogger(cfg.LogLevel, cfg.LogFormat, a.logW)
	ctx := ctxlog.WithLogger(context.Background(), a.logger)
	a.logger.Debug("Logger configured successfully.")

	if loader == nil {
		l, err := NewLoader(cfg.Format, cfg.ProjectPaths)
		if err != nil {
			return nil, err
		}
		loader = l
	}

	project, err := loader.Load(ctx, cfg.ProjectPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load project: %w", err)
	}
	a.project = project
	a.logger.Debug("Project loaded.", "name", project.Name, "phases", len(project.Configurations()))

	a.registry = prometheus.NewRegistry()
	a.metrics = metrics.New(a.registry)

	return a, nil
}

// Project returns the loaded project. This is primarily for testing.
func (a *App) Project() *config.Project {
	return a.project
}

// Registry returns the App's metrics registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}
