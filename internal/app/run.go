package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/notify"
	"github.com/specialistvlad/cellgrid/internal/plan"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// ErrRunFailed is returned when at least one job failed or was blocked.
var ErrRunFailed = errors.New("run did not succeed")

// Run loads the configuration, builds the plan and executes it to
// completion. Construction errors abort before any job is submitted.
func (a *App) Run(ctx context.Context) error {
	a.runID = uuid.NewString()
	ctx = ctxlog.WithLogger(ctx, a.logger.With("runID", a.runID))
	a.ctx = ctx
	logger := ctxlog.FromContext(ctx)
	logger.Debug("App.Run method started.")

	model, err := a.loadModel(ctx)
	if err != nil {
		return err
	}

	p, err := plan.Build(ctx, planConfig(model))
	if err != nil {
		return fmt.Errorf("failed to build plan: %w", err)
	}

	dryRun := a.config.DryRun || model.Runner.Type == config.RunnerDryRun
	if dryRun {
		logger.Info("Dry run: nothing will be written or executed.")
		if _, err := p.WriteTo(a.outW); err != nil {
			return fmt.Errorf("failed to print plan: %w", err)
		}
	} else if err := p.WriteManifests(ctx); err != nil {
		return fmt.Errorf("failed to write manifests: %w", err)
	}

	a.store.Register(ctx, p.Graph.Jobs())
	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	runner, release, err := a.newRunner(ctx, model, dryRun)
	if err != nil {
		return err
	}
	defer release()

	opts := []scheduler.Option{
		scheduler.WithMaxConcurrent(model.Run.MaxConcurrentJobs),
		scheduler.WithObserver(a.store),
	}
	notifier, disconnect := a.dialNotifier(ctx, model)
	if notifier != nil {
		defer disconnect()
		opts = append(opts, scheduler.WithObserver(notifier))
	}

	logger.Info("🚀 Starting run...", "jobs", p.Graph.Len(), "maxConcurrent", model.Run.MaxConcurrentJobs)
	report, runErr := scheduler.New(p.Graph, runner, opts...).Run(ctx)
	if report == nil {
		return fmt.Errorf("execution failed: %w", runErr)
	}
	a.report = report

	if notifier != nil {
		notifier.RunFinished(ctx, report)
	}
	if err := report.WriteSummary(a.outW); err != nil {
		logger.Warn("Failed to write run summary.", "error", err)
	}

	if runErr != nil {
		return fmt.Errorf("run interrupted: %w", runErr)
	}
	if !report.Success() {
		return fmt.Errorf("%w: %d failed, %d blocked", ErrRunFailed, len(report.Failed()), len(report.Blocked()))
	}
	logger.Info("🏁 Run finished.", "jobs", len(report.Results))
	return nil
}

// dialNotifier connects the progress observer when notify is configured.
// Progress events are best effort: a failed connection only logs.
func (a *App) dialNotifier(ctx context.Context, model *config.Model) (*notify.Observer, func()) {
	if model.Notify == nil {
		return nil, nil
	}
	sock, err := notify.Dial(ctx, model.Notify)
	if err != nil {
		ctxlog.FromContext(ctx).Warn("Progress events disabled.", "url", model.Notify.URL, "error", err)
		return nil, nil
	}
	return notify.NewObserver(sock, model.Notify.Event, a.runID), func() { sock.Disconnect() }
}
