// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package notify publishes job state transitions as socket.io events so an
// external dashboard can follow a run.
package notify

import (
	"context"
	"time"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// RunFinishedEvent is emitted once with the run's final counts.
const RunFinishedEvent = "run_finished"

// Emitter sends an event. *socket.Socket satisfies it.
type Emitter interface {
	Emit(ev string, args ...any) error
}

// Observer is a scheduler.Observer that emits every transition.
type Observer struct {
	emitter Emitter
	event   string
	runID   string
}

var _ scheduler.Observer = (*Observer)(nil)

// NewObserver creates an observer emitting event for run runID.
func NewObserver(e Emitter, event, runID string) *Observer {
	return &Observer{emitter: e, event: event, runID: runID}
}

// Observe implements scheduler.Observer. Emit failures are logged and
// never affect the run.
func (o *Observer) Observe(ctx context.Context, t scheduler.Transition) {
	if err := o.emitter.Emit(o.event, TransitionPayload(o.runID, t)); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit progress event.", "jobKey", t.Key, "error", err)
	}
}

// RunFinished emits the final summary of a run.
func (o *Observer) RunFinished(ctx context.Context, report *scheduler.Report) {
	counts := report.Counts()
	payload := map[string]any{
		"run_id":    o.runID,
		"success":   report.Success(),
		"succeeded": counts[job.Succeeded],
		"failed":    counts[job.Failed],
		"blocked":   counts[job.Blocked],
		"at":        time.Now().UTC().Format(time.RFC3339Nano),
	}
	if err := o.emitter.Emit(RunFinishedEvent, payload); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to emit run summary.", "error", err)
	}
}

// TransitionPayload is the JSON-friendly body of a transition event.
func TransitionPayload(runID string, t scheduler.Transition) map[string]any {
	payload := map[string]any{
		"run_id":  runID,
		"job_key": t.Key,
		"kind":    t.Kind.String(),
		"name":    t.Name,
		"from":    t.From.String(),
		"to":      t.To.String(),
		"running": t.Running,
		"at":      t.At.UTC().Format(time.RFC3339Nano),
	}
	if t.Err != nil {
		payload["error"] = t.Err.Error()
	}
	return payload
}
