package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/dryrun"
	"github.com/specialistvlad/cellgrid/internal/localrunner"
	"github.com/specialistvlad/cellgrid/internal/redisrunner"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// newRunner builds the runner selected by the configuration. The returned
// func releases it and must be called once the scheduler has returned.
func (a *App) newRunner(ctx context.Context, model *config.Model, dryRun bool) (scheduler.Runner, func(), error) {
	logger := ctxlog.FromContext(ctx)

	switch {
	case dryRun:
		logger.Debug("Using dry-run runner.")
		return dryrun.New(a.outW), func() {}, nil

	case model.Runner.Type == config.RunnerRedis:
		rc := model.Runner
		client := redis.NewClient(&redis.Options{
			Addr:     rc.Addr,
			Password: rc.Password,
			DB:       rc.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("failed to connect to redis at %s: %w", rc.Addr, err)
		}
		logger.Info("Redis connected.", "addr", rc.Addr, "jobs", rc.JobsStream, "results", rc.ResultsStream)

		r := redisrunner.New(client, redisrunner.Config{
			JobsStream:    rc.JobsStream,
			ResultsStream: rc.ResultsStream,
			RunID:         a.runID,
		})
		if err := r.Start(ctx); err != nil {
			client.Close()
			return nil, nil, err
		}
		return r, func() {
			r.Close()
			if err := client.Close(); err != nil {
				logger.Warn("Closing redis client failed.", "error", err)
			}
		}, nil

	default:
		logger.Debug("Using local runner.")
		r := localrunner.New()
		return r, r.Wait, nil
	}
}
