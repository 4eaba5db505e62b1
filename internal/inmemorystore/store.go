// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the jobstore.Store interface.
//
// # Concurrency Model
//
// Job states live in a sync.Map keyed by job key: the key space is fixed
// when the graph is registered and values change on every transition, which
// is the access pattern sync.Map is built for. Only the registration order
// is guarded by a mutex, and it is written once.
package inmemorystore

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/jobstore"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// Store is an in-memory implementation of jobstore.Store.
type Store struct {
	states sync.Map // Key: job key, Value: jobstore.JobStatus

	mu    sync.RWMutex
	order []string
	now   func() time.Time
}

var _ jobstore.Store = (*Store)(nil)

// New creates a new, empty in-memory job store.
func New() *Store {
	return &Store{now: time.Now}
}

// Register seeds the store with jobs in Pending state.
func (s *Store) Register(ctx context.Context, jobs []*job.Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	at := s.now()
	for _, j := range jobs {
		if _, loaded := s.states.LoadOrStore(j.Key, jobstore.JobStatus{
			Key:       j.Key,
			Kind:      j.Kind.String(),
			Name:      j.Name,
			State:     job.Pending.String(),
			UpdatedAt: at,
		}); !loaded {
			s.order = append(s.order, j.Key)
		}
	}
}

// Observe records a transition reported by the scheduler.
func (s *Store) Observe(ctx context.Context, t scheduler.Transition) {
	st := jobstore.JobStatus{
		Key:       t.Key,
		Kind:      t.Kind.String(),
		Name:      t.Name,
		State:     t.To.String(),
		UpdatedAt: t.At,
	}
	if t.Err != nil {
		st.Error = t.Err.Error()
	}
	if _, loaded := s.states.Swap(t.Key, st); !loaded {
		s.mu.Lock()
		s.order = append(s.order, t.Key)
		s.mu.Unlock()
	}
}

// Status returns the recorded state of key.
func (s *Store) Status(ctx context.Context, key string) (jobstore.JobStatus, bool) {
	v, ok := s.states.Load(key)
	if !ok {
		return jobstore.JobStatus{}, false
	}
	return v.(jobstore.JobStatus), true
}

// Snapshot returns every job in registration order.
func (s *Store) Snapshot(ctx context.Context) []jobstore.JobStatus {
	s.mu.RLock()
	keys := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]jobstore.JobStatus, 0, len(keys))
	for _, k := range keys {
		if v, ok := s.states.Load(k); ok {
			out = append(out, v.(jobstore.JobStatus))
		}
	}
	return out
}
