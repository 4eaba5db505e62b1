// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package scheduler

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/specialistvlad/cellgrid/internal/job"
)

// Result is the terminal outcome of one job.
type Result struct {
	Key   string
	Kind  job.Kind
	Name  string
	State job.State
	// Err explains Failed and Blocked results.
	Err error
}

// Report holds one Result per job, in graph insertion order.
type Report struct {
	Results []Result
	byKey   map[string]int
}

// Result returns the outcome for key.
func (r *Report) Result(key string) (Result, bool) {
	i, ok := r.byKey[key]
	if !ok {
		return Result{}, false
	}
	return r.Results[i], true
}

// Success is true iff every job succeeded.
func (r *Report) Success() bool {
	for _, res := range r.Results {
		if res.State != job.Succeeded {
			return false
		}
	}
	return true
}

// Failed returns the results of jobs that ran and failed.
func (r *Report) Failed() []Result { return r.filter(job.Failed) }

// Blocked returns the results of jobs that never ran.
func (r *Report) Blocked() []Result { return r.filter(job.Blocked) }

// Counts tallies results per state.
func (r *Report) Counts() map[job.State]int {
	counts := make(map[job.State]int)
	for _, res := range r.Results {
		counts[res.State]++
	}
	return counts
}

func (r *Report) filter(state job.State) []Result {
	var out []Result
	for _, res := range r.Results {
		if res.State == state {
			out = append(out, res)
		}
	}
	return out
}

// WriteSummary prints a table of job outcomes.
func (r *Report) WriteSummary(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "JOB\tKIND\tSTATE\tDETAIL")
	for _, res := range r.Results {
		detail := ""
		if res.Err != nil {
			detail = res.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", res.Name, res.Kind, res.State, detail)
	}
	c := r.Counts()
	fmt.Fprintf(tw, "\nsucceeded: %d\tfailed: %d\tblocked: %d\t\n", c[job.Succeeded], c[job.Failed], c[job.Blocked])
	return tw.Flush()
}
