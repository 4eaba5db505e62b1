// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/specialistvlad/cellgrid/internal/job"
)

// ErrJobExecutionFailed marks runtime failures reported by a runner.
var ErrJobExecutionFailed = errors.New("job execution failed")

// ErrBlocked marks jobs that never ran because a prerequisite did not succeed.
var ErrBlocked = errors.New("blocked")

// Completion reports the outcome of a submitted job.
type Completion struct {
	Key string
	// Err is nil when the job succeeded.
	Err error
}

// Runner executes jobs outside the scheduler.
//
// Submit must not block on the job itself: it hands the job off and later
// sends exactly one Completion for it on done. A non-nil error from Submit
// means the job was not started and no Completion will follow.
type Runner interface {
	Submit(ctx context.Context, j *job.Job, done chan<- Completion) error
}

// JobError wraps a runner failure with the job that produced it.
type JobError struct {
	Key string
	Err error
}

func (e *JobError) Error() string {
	return fmt.Sprintf("job %s: %v: %v", e.Key, ErrJobExecutionFailed, e.Err)
}

// Unwrap exposes both ErrJobExecutionFailed and the runner's error to errors.Is.
func (e *JobError) Unwrap() []error {
	return []error{ErrJobExecutionFailed, e.Err}
}

// Transition describes one job state change.
type Transition struct {
	Key  string
	Kind job.Kind
	Name string
	From job.State
	To   job.State
	// Err is set for Failed and Blocked transitions.
	Err error
	At  time.Time
	// Running is the number of Running jobs after the change.
	Running int
}

// Observer receives every transition, synchronously, from the event loop.
// Implementations must return quickly.
type Observer interface {
	Observe(ctx context.Context, t Transition)
}

// ObserverFunc adapts a function to the Observer interface.
type ObserverFunc func(ctx context.Context, t Transition)

// Observe implements Observer.
func (f ObserverFunc) Observe(ctx context.Context, t Transition) { f(ctx, t) }
