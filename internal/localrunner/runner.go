// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package localrunner provides a concrete, in-process implementation of the
// scheduler.Runner interface that executes each job's command line as a
// child process of the current host.
package localrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/fsutil"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// ErrEmptyCommand is returned for a job without a command line.
var ErrEmptyCommand = errors.New("job has no command line")

// JobKeyEnv is set in every child's environment.
const JobKeyEnv = "CELLGRID_JOB_KEY"

// Runner runs jobs as local child processes.
type Runner struct {
	skipCompleted bool
	stopGrace     time.Duration
	wg            sync.WaitGroup
}

// Option configures a Runner.
type Option func(*Runner)

// WithSkipCompleted controls whether jobs whose done marker already exists
// are reported as succeeded without being started. It is on by default.
func WithSkipCompleted(skip bool) Option {
	return func(r *Runner) {
		r.skipCompleted = skip
	}
}

// WithStopGrace sets how long a cancelled child may take to exit after the
// interrupt signal before it is killed.
func WithStopGrace(d time.Duration) Option {
	return func(r *Runner) {
		r.stopGrace = d
	}
}

// New creates a local runner.
func New(opts ...Option) *Runner {
	r := &Runner{
		skipCompleted: true,
		stopGrace:     30 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ scheduler.Runner = (*Runner)(nil)

// Submit starts the job's command and returns once the process is running.
// Combined output goes to the job's log file.
func (r *Runner) Submit(ctx context.Context, j *job.Job, done chan<- scheduler.Completion) error {
	logger := ctxlog.FromContext(ctx).With("jobKey", j.Key)
	inv := j.Invocation
	if len(inv.Argv) == 0 {
		return fmt.Errorf("%s: %w", j.Key, ErrEmptyCommand)
	}

	if r.skipCompleted && inv.DoneMarker != "" && fsutil.Exists(inv.DoneMarker) {
		logger.Info("Output already present, skipping job.", "doneMarker", inv.DoneMarker)
		done <- scheduler.Completion{Key: j.Key}
		return nil
	}

	logFile, err := openLog(inv.LogPath)
	if err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, inv.Argv[0], inv.Argv[1:]...)
	cmd.Env = append(os.Environ(), JobKeyEnv+"="+j.Key)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	cmd.Cancel = func() error { return cmd.Process.Signal(os.Interrupt) }
	cmd.WaitDelay = r.stopGrace

	if err := cmd.Start(); err != nil {
		logFile.Close()
		return fmt.Errorf("starting %s: %w", inv.Argv[0], err)
	}
	logger.Debug("Process started.", "pid", cmd.Process.Pid, "log", logFile.Name())

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		err := cmd.Wait()
		logFile.Close()
		if err != nil {
			err = fmt.Errorf("%s: %w (log: %s)", inv.Command, err, logFile.Name())
		}
		done <- scheduler.Completion{Key: j.Key, Err: err}
	}()
	return nil
}

// Wait blocks until every started process has exited.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func openLog(path string) (*os.File, error) {
	if path == "" {
		return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening job log: %w", err)
	}
	return f, nil
}
