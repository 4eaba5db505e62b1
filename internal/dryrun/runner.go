// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dryrun provides a scheduler.Runner that prints each invocation
// instead of executing it and reports every job as succeeded.
package dryrun

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

// Runner writes one line per submitted job to its writer.
type Runner struct {
	mu  sync.Mutex
	out io.Writer
}

var _ scheduler.Runner = (*Runner)(nil)

// New creates a dry-run runner writing to out.
func New(out io.Writer) *Runner {
	return &Runner{out: out}
}

// Submit prints the job's command line and completes it immediately.
func (r *Runner) Submit(ctx context.Context, j *job.Job, done chan<- scheduler.Completion) error {
	r.mu.Lock()
	_, err := fmt.Fprintf(r.out, "[dry-run] %s: %s\n", j.Key, strings.Join(j.Invocation.Argv, " "))
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("writing dry-run output: %w", err)
	}
	ctxlog.FromContext(ctx).Debug("Dry-run job completed.", "jobKey", j.Key)
	done <- scheduler.Completion{Key: j.Key}
	return nil
}
