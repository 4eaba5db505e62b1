// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/dag"
	"github.com/specialistvlad/cellgrid/internal/job"
)

// ErrInvalidConcurrency is returned when the cap is below one.
var ErrInvalidConcurrency = errors.New("max concurrent jobs must be at least 1")

// Scheduler runs the jobs of a graph through a Runner.
type Scheduler struct {
	graph         *dag.Graph
	runner        Runner
	maxConcurrent int
	observers     []Observer
	now           func() time.Time
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxConcurrent sets the maximum number of simultaneously Running jobs.
func WithMaxConcurrent(n int) Option {
	return func(s *Scheduler) {
		s.maxConcurrent = n
	}
}

// WithObserver registers an observer. It may be given more than once.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observers = append(s.observers, o)
	}
}

// New creates a scheduler for g. The concurrency cap defaults to 1.
func New(g *dag.Graph, r Runner, opts ...Option) *Scheduler {
	s := &Scheduler{
		graph:         g,
		runner:        r,
		maxConcurrent: 1,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// scheduleState is owned by a single Run call and never shared.
type scheduleState struct {
	running   int
	ready     []*job.Job
	completed map[string]struct{}
	errs      map[string]error
	done      chan Completion
}

// Run executes the graph until no job is Running or Runnable and returns
// the terminal state of every job. The error is non-nil only when the run
// itself could not proceed (invalid configuration or a cancelled context);
// job failures are reported through the Report.
func (s *Scheduler) Run(ctx context.Context) (*Report, error) {
	if s.maxConcurrent < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidConcurrency, s.maxConcurrent)
	}
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Scheduler starting.", "jobs", s.graph.Len(), "maxConcurrent", s.maxConcurrent)

	st := &scheduleState{
		completed: make(map[string]struct{}),
		errs:      make(map[string]error),
		// Sized so runners never block on delivery.
		done: make(chan Completion, s.graph.Len()),
	}

	for _, j := range s.graph.Jobs() {
		if s.graph.IsRunnable(j.Key, st.completed) {
			s.enqueue(ctx, st, j)
		}
	}

	var runErr error
	ctxDone := ctx.Done()
	cancelled := func() {
		runErr = ctx.Err()
		ctxDone = nil
		logger.Warn("Run cancelled, waiting for running jobs to finish.", "running", st.running, "error", runErr)
	}
	for {
		if runErr == nil {
			if ctx.Err() != nil {
				cancelled()
			} else {
				s.dispatch(ctx, st)
			}
		}
		if st.running == 0 && (len(st.ready) == 0 || runErr != nil) {
			break
		}

		select {
		case c := <-st.done:
			s.complete(ctx, st, c)
		case <-ctxDone:
			cancelled()
		}
	}

	if runErr != nil {
		s.blockRemaining(ctx, st, runErr)
	}

	report := s.report(st)
	logger.Debug("Scheduler finished.", "success", report.Success())
	return report, runErr
}

// dispatch submits queued jobs while concurrency slots are free.
func (s *Scheduler) dispatch(ctx context.Context, st *scheduleState) {
	logger := ctxlog.FromContext(ctx)
	for st.running < s.maxConcurrent && len(st.ready) > 0 {
		j := st.ready[0]
		st.ready[0] = nil
		st.ready = st.ready[1:]

		st.running++
		if !s.transition(ctx, st, j, job.Running, nil) {
			st.running--
			continue
		}

		logger.Info("Submitting job.", "jobKey", j.Key, "command", j.Invocation.Command, "running", st.running)
		if err := s.runner.Submit(ctx, j, st.done); err != nil {
			logger.Error("Job submission failed.", "jobKey", j.Key, "error", err)
			s.fail(ctx, st, j, err)
		}
	}
}

// complete applies a completion delivered by the runner.
func (s *Scheduler) complete(ctx context.Context, st *scheduleState, c Completion) {
	logger := ctxlog.FromContext(ctx).With("jobKey", c.Key)

	j, ok := s.graph.Job(c.Key)
	if !ok || j.State() != job.Running {
		logger.Warn("Ignoring completion for a job that is not running.")
		return
	}

	if c.Err != nil {
		logger.Error("Job failed.", "error", c.Err)
		s.fail(ctx, st, j, c.Err)
		return
	}

	st.running--
	s.transition(ctx, st, j, job.Succeeded, nil)
	st.completed[j.Key] = struct{}{}
	logger.Info("Job succeeded.", "running", st.running)

	dependents, err := s.graph.Dependents(j.Key)
	if err != nil {
		logger.Error("Failed to get dependents for completed job.", "error", err)
		return
	}
	for _, key := range dependents {
		if s.graph.IsRunnable(key, st.completed) {
			dj, _ := s.graph.Job(key)
			logger.Debug("Unlocking dependent job.", "dependentKey", key)
			s.enqueue(ctx, st, dj)
		}
	}
}

// fail marks a Running job Failed and blocks everything downstream of it.
func (s *Scheduler) fail(ctx context.Context, st *scheduleState, j *job.Job, cause error) {
	err := &JobError{Key: j.Key, Err: cause}
	st.running--
	st.errs[j.Key] = err
	s.transition(ctx, st, j, job.Failed, err)
	s.blockDependents(ctx, st, j.Key)
}

// blockDependents recursively marks all pending downstream jobs as Blocked.
func (s *Scheduler) blockDependents(ctx context.Context, st *scheduleState, key string) {
	logger := ctxlog.FromContext(ctx)
	dependents, err := s.graph.Dependents(key)
	if err != nil {
		logger.Error("Failed to get dependents for failed job.", "jobKey", key, "error", err)
		return
	}
	for _, dk := range dependents {
		dj, _ := s.graph.Job(dk)
		if dj.State() != job.Pending {
			continue
		}
		berr := fmt.Errorf("prerequisite %s did not succeed: %w", key, ErrBlocked)
		st.errs[dk] = berr
		logger.Warn("Blocking dependent job due to upstream failure.", "jobKey", dk, "prerequisite", key)
		s.transition(ctx, st, dj, job.Blocked, berr)
		s.blockDependents(ctx, st, dk)
	}
}

// blockRemaining blocks every job that had not started when the run stopped.
func (s *Scheduler) blockRemaining(ctx context.Context, st *scheduleState, cause error) {
	st.ready = nil
	for _, j := range s.graph.Jobs() {
		switch j.State() {
		case job.Pending, job.Runnable:
			berr := fmt.Errorf("run stopped before job started: %w: %w", ErrBlocked, cause)
			st.errs[j.Key] = berr
			s.transition(ctx, st, j, job.Blocked, berr)
		}
	}
}

func (s *Scheduler) enqueue(ctx context.Context, st *scheduleState, j *job.Job) {
	if s.transition(ctx, st, j, job.Runnable, nil) {
		st.ready = append(st.ready, j)
	}
}

// transition changes a job's state and notifies observers. It reports
// whether the change was applied.
func (s *Scheduler) transition(ctx context.Context, st *scheduleState, j *job.Job, to job.State, cause error) bool {
	from, err := j.Transition(to)
	if err != nil {
		ctxlog.FromContext(ctx).Error("Rejected job state change.", "jobKey", j.Key, "error", err)
		return false
	}
	t := Transition{
		Key:     j.Key,
		Kind:    j.Kind,
		Name:    j.Name,
		From:    from,
		To:      to,
		Err:     cause,
		At:      s.now(),
		Running: st.running,
	}
	for _, o := range s.observers {
		o.Observe(ctx, t)
	}
	return true
}

func (s *Scheduler) report(st *scheduleState) *Report {
	jobs := s.graph.Jobs()
	r := &Report{
		Results: make([]Result, 0, len(jobs)),
		byKey:   make(map[string]int, len(jobs)),
	}
	for _, j := range jobs {
		r.byKey[j.Key] = len(r.Results)
		r.Results = append(r.Results, Result{
			Key:   j.Key,
			Kind:  j.Kind,
			Name:  j.Name,
			State: j.State(),
			Err:   st.errs[j.Key],
		})
	}
	return r
}
