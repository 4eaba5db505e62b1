package app

import (
	"context"
	"fmt"

	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/plan"
)

// loadModel loads every configuration path and applies CLI overrides.
func (a *App) loadModel(ctx context.Context) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Loading configuration...", "paths", a.config.ConfigPaths)

	model, err := a.loader.Load(ctx, a.config.ConfigPaths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if a.config.MaxJobs > 0 {
		logger.Debug("Overriding max concurrent jobs from the command line.", "config", model.Run.MaxConcurrentJobs, "override", a.config.MaxJobs)
		model.Run.MaxConcurrentJobs = a.config.MaxJobs
	}

	logger.Info("Configuration loaded.", "samples", len(model.Run.Samples), "groups", len(model.Run.Groups), "runner", model.Runner.Type)
	return model, nil
}

// planConfig translates the configuration model into construction input.
func planConfig(m *config.Model) plan.Config {
	return plan.Config{
		Params: job.Params{
			OutputRoot:        m.Run.OutputRoot,
			Project:           m.Run.Project,
			Reference:         m.Run.Reference,
			MaxConcurrentJobs: m.Run.MaxConcurrentJobs,
			Tool: job.Tool{
				Binary:           m.Tool.Binary,
				QuantifyCommand:  m.Tool.Quantify,
				AggregateCommand: m.Tool.Aggregate,
				ExtraArgs:        m.Tool.ExtraArgs,
			},
		},
		RawDir:  m.Run.RawDir,
		Samples: m.Run.Samples,
		Groups:  m.Run.Groups,
	}
}
