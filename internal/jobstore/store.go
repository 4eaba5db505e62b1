// Package jobstore defines the interface for recording the mutable execution
// state of jobs while a run is in progress.
//
// The job store isolates status reporting from the scheduler's own
// bookkeeping: the scheduler owns the authoritative state and pushes every
// transition to the store through the scheduler.Observer interface, while
// readers such as the /status endpoint query the store from other
// goroutines without touching the scheduler.
//
// The store is:
//  1. Created once per run (ephemeral, not persistent across runs)
//  2. Initialized with every job of the graph in Pending state
//  3. Mutated on each transition reported by the scheduler
//  4. Queried concurrently for snapshots
package jobstore

import (
	"context"
	"time"

	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// JobStatus is a point-in-time view of one job.
type JobStatus struct {
	Key       string    `json:"key"`
	Kind      string    `json:"kind"`
	Name      string    `json:"name"`
	State     string    `json:"state"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store is the interface for tracking job state during a run.
//
// Implementations MUST be safe for concurrent use: the scheduler writes from
// its event loop while HTTP handlers read.
type Store interface {
	scheduler.Observer

	// Register seeds the store with jobs in Pending state, in the given order.
	Register(ctx context.Context, jobs []*job.Job)
	// Status returns the current state of key.
	Status(ctx context.Context, key string) (JobStatus, bool)
	// Snapshot returns every job in registration order.
	Snapshot(ctx context.Context) []JobStatus
}
