// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package job defines the unit of work handed to a runner and the builders
// that construct quantification and aggregation jobs from samples and groups.
package job

import (
	"errors"
	"fmt"
	"sync/atomic"
)

// Kind distinguishes per-sample jobs from per-group jobs.
type Kind int

const (
	// Quantify runs the vendor counting step for one sample.
	Quantify Kind = iota
	// Aggregate combines the quantification outputs of a group.
	Aggregate
)

// String returns the command name used for the kind.
func (k Kind) String() string {
	switch k {
	case Quantify:
		return "quantify"
	case Aggregate:
		return "aggregate"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// State is the execution state of a job.
type State int32

const (
	// Pending jobs are waiting on prerequisites.
	Pending State = iota
	// Runnable jobs are queued for a free concurrency slot.
	Runnable
	// Running jobs have been submitted to the runner.
	Running
	// Succeeded is terminal.
	Succeeded
	// Failed is terminal.
	Failed
	// Blocked jobs can never run because a prerequisite did not succeed.
	Blocked
)

var stateNames = [...]string{"pending", "runnable", "running", "succeeded", "failed", "blocked"}

func (s State) String() string {
	if int(s) >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// IsTerminal reports whether no further transition is possible.
func (s State) IsTerminal() bool {
	return s == Succeeded || s == Failed || s == Blocked
}

// ErrInvalidTransition is returned for a state change the lifecycle forbids.
var ErrInvalidTransition = errors.New("invalid state transition")

func allowed(from, to State) bool {
	switch from {
	case Pending:
		return to == Runnable || to == Blocked
	case Runnable:
		return to == Running || to == Blocked
	case Running:
		return to == Succeeded || to == Failed
	default:
		return false
	}
}

// Invocation is everything a runner needs to execute a job.
type Invocation struct {
	// Command is the logical command name, "quantify" or "aggregate".
	Command string
	// Argv is the full command line, binary first.
	Argv []string
	// OutputDir is where the tool writes its results.
	OutputDir string
	// DoneMarker exists once the job has produced its primary artifact.
	// Runners may use it to skip work on re-runs.
	DoneMarker string
	// LogPath receives the tool's combined output.
	LogPath string
}

// Job is a node of the execution graph.
type Job struct {
	Kind Kind
	// Key uniquely identifies the job within a run and is stable across runs.
	Key string
	// Name is the sample identifier or group name.
	Name string
	// Prerequisites are keys of jobs that must succeed first, in order.
	Prerequisites []string
	// Inputs are the ordered input files (Quantify) or the manifest (Aggregate).
	Inputs     []string
	Invocation Invocation

	state atomic.Int32
}

// KeyFor returns the job key for a kind and a sample or group name.
func KeyFor(kind Kind, name string) string {
	return kind.String() + "/" + name
}

// State atomically retrieves the job's execution state.
func (j *Job) State() State {
	return State(j.state.Load())
}

// Transition moves the job from its current state to `to`, rejecting moves
// the lifecycle does not allow.
func (j *Job) Transition(to State) (State, error) {
	for {
		from := j.State()
		if !allowed(from, to) {
			return from, fmt.Errorf("job %s: %s -> %s: %w", j.Key, from, to, ErrInvalidTransition)
		}
		if j.state.CompareAndSwap(int32(from), int32(to)) {
			return from, nil
		}
	}
}
