package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/inmemorystore"
	"github.com/specialistvlad/cellgrid/internal/jobstore"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     config.Loader
	store      jobstore.Store
	httpServer *http.Server

	runID  string
	report *scheduler.Report
}

// NewApp is the constructor for the main application. It returns an App
// with its own isolated logger; configuration is loaded by Run.
func NewApp(outW io.Writer, cfg *Config, loader config.Loader) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")

	return &App{
		ctx:    context.Background(),
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: loader,
		store:  inmemorystore.New(),
	}
}

// Store returns the job status store fed by the scheduler.
func (a *App) Store() jobstore.Store {
	return a.store
}

// Report returns the report of the last completed run, or nil.
func (a *App) Report() *scheduler.Report {
	return a.report
}

// RunID returns the identifier of the last run, or "" before Run.
func (a *App) RunID() string {
	return a.runID
}
