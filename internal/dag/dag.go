// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/cellgrid/internal/job"
)

// New creates and returns an initialized, empty Graph.
func New() *Graph {
	return &Graph{
		nodes: make(map[string]*node),
	}
}

// AddJob adds j and its edges to the graph. Every prerequisite must already
// be present, so Quantify jobs are added before the Aggregate jobs that need
// them.
func (g *Graph) AddJob(j *job.Job) error {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if _, ok := g.nodes[j.Key]; ok {
		return fmt.Errorf("job %s: %w", j.Key, ErrDuplicateJob)
	}

	deps := make(map[string]*node, len(j.Prerequisites))
	switch j.Kind {
	case job.Quantify:
		if len(j.Prerequisites) > 0 {
			return fmt.Errorf("quantify job %s has prerequisites %v: %w", j.Key, j.Prerequisites, ErrUnsupportedDependencyShape)
		}
	case job.Aggregate:
		for _, key := range j.Prerequisites {
			dep, ok := g.nodes[key]
			if !ok {
				return fmt.Errorf("job %s: prerequisite %s: %w", j.Key, key, ErrUnknownJob)
			}
			if dep.job.Kind != job.Quantify {
				return fmt.Errorf("aggregate job %s depends on %s job %s: %w", j.Key, dep.job.Kind, key, ErrUnsupportedDependencyShape)
			}
			deps[key] = dep
		}
	default:
		return fmt.Errorf("job %s has kind %s: %w", j.Key, j.Kind, ErrUnsupportedDependencyShape)
	}

	n := &node{
		job:        j,
		seq:        len(g.order),
		deps:       deps,
		dependents: make(map[string]*node),
	}
	for _, dep := range deps {
		dep.dependents[j.Key] = n
	}
	g.nodes[j.Key] = n
	g.order = append(g.order, j.Key)
	return nil
}

// Job returns the job stored under key.
func (g *Graph) Job(key string) (*job.Job, bool) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[key]
	if !ok {
		return nil, false
	}
	return n.job, true
}

// Jobs returns every job in insertion order.
func (g *Graph) Jobs() []*job.Job {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	jobs := make([]*job.Job, len(g.order))
	for i, key := range g.order {
		jobs[i] = g.nodes[key].job
	}
	return jobs
}

// Len returns the number of jobs.
func (g *Graph) Len() int {
	g.mutex.RLock()
	defer g.mutex.RUnlock()
	return len(g.order)
}

// PrerequisitesOf returns the keys the job depends on, in the job's declared order.
func (g *Graph) PrerequisitesOf(key string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[key]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", key, ErrUnknownJob)
	}
	return append([]string(nil), n.job.Prerequisites...), nil
}

// Dependents returns the keys of jobs that depend on key, in insertion order.
func (g *Graph) Dependents(key string) ([]string, error) {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[key]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", key, ErrUnknownJob)
	}

	dependents := make([]*node, 0, len(n.dependents))
	for _, d := range n.dependents {
		dependents = append(dependents, d)
	}
	sort.Slice(dependents, func(i, j int) bool { return dependents[i].seq < dependents[j].seq })

	keys := make([]string, len(dependents))
	for i, d := range dependents {
		keys[i] = d.job.Key
	}
	return keys, nil
}

// IsRunnable reports whether the job is Pending and every prerequisite is
// in completed.
func (g *Graph) IsRunnable(key string, completed map[string]struct{}) bool {
	g.mutex.RLock()
	defer g.mutex.RUnlock()

	n, ok := g.nodes[key]
	if !ok || n.job.State() != job.Pending {
		return false
	}
	for depKey := range n.deps {
		if _, done := completed[depKey]; !done {
			return false
		}
	}
	return true
}
