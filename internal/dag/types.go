// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package dag

import (
	"errors"
	"sync"

	"github.com/specialistvlad/cellgrid/internal/job"
)

var (
	// ErrUnsupportedDependencyShape is returned for any edge other than
	// Aggregate -> Quantify.
	ErrUnsupportedDependencyShape = errors.New("unsupported dependency shape")
	// ErrDuplicateJob is returned when a key is added twice.
	ErrDuplicateJob = errors.New("duplicate job")
	// ErrUnknownJob is returned for a key the graph does not contain.
	ErrUnknownJob = errors.New("unknown job")
)

// Graph is a collection of jobs and their dependencies.
// All operations on the graph are concurrency-safe.
type Graph struct {
	// mutex protects nodes and order during concurrent access.
	mutex sync.RWMutex
	// nodes stores all nodes in the graph, keyed by job key.
	nodes map[string]*node
	// order lists job keys in insertion order.
	order []string
}

// node represents a single vertex in the graph. It is un-exported to
// enforce interaction with the graph via the public API (using string keys),
// not by direct struct manipulation.
type node struct {
	job *job.Job
	// seq is the insertion position, used to order dependents.
	seq int
	// deps holds the set of nodes this node depends on (predecessors).
	deps map[string]*node
	// dependents holds the set of nodes that depend on this node (successors).
	dependents map[string]*node
}
