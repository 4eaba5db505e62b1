// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package plan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/dag"
	"github.com/specialistvlad/cellgrid/internal/fsutil"
	"github.com/specialistvlad/cellgrid/internal/group"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/sample"
)

// DefaultRawDir is the raw-data directory name under the output root.
const DefaultRawDir = "fastq"

var (
	ErrNoSamples        = errors.New("no samples declared")
	ErrDuplicateSample  = errors.New("duplicate sample")
	ErrInvalidSample    = errors.New("invalid sample name")
	ErrInvalidMaxJobs   = errors.New("max concurrent jobs must be at least 1")
	ErrRawDirUnreadable = errors.New("raw data directory is not readable")
)

// Config is everything the construction phase needs.
type Config struct {
	Params job.Params
	// RawDir is the raw-data directory. Relative paths are resolved against
	// Params.OutputRoot; empty means DefaultRawDir.
	RawDir  string
	Samples []string
	Groups  []string
	// MatcherOptions customise input matching.
	MatcherOptions []sample.Option
}

// Plan is the result of a successful construction phase.
type Plan struct {
	RawDir     string
	Samples    []*sample.Sample
	Groups     []*group.Group
	Graph      *dag.Graph
	Manifests  []*job.Manifest
	Unassigned []string
}

// Build runs every construction pass and returns the plan. It performs no
// writes; see WriteManifests.
func Build(ctx context.Context, cfg Config) (*Plan, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Plan: Starting construction.", "samples", len(cfg.Samples), "groups", len(cfg.Groups))

	if err := validate(cfg); err != nil {
		return nil, err
	}

	rawDir := resolveRawDir(cfg)
	listing, err := fsutil.ListFiles(rawDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRawDirUnreadable, rawDir, err)
	}
	logger.Debug("Plan: Listed raw data directory.", "dir", rawDir, "files", len(listing))

	p := &Plan{RawDir: rawDir, Graph: dag.New()}

	// First pass: match inputs.
	matcher := sample.NewMatcher(cfg.Samples, cfg.MatcherOptions...)
	for _, name := range cfg.Samples {
		s, err := matcher.Build(name, listing)
		if err != nil {
			return nil, fmt.Errorf("%w (raw dir %s)", err, rawDir)
		}
		logger.Debug("Plan: Matched sample inputs.", "sample", name, "files", len(s.Inputs))
		p.Samples = append(p.Samples, s)
	}
	p.Unassigned = matcher.Unassigned(listing)
	for _, path := range p.Unassigned {
		logger.Warn("Raw read file does not belong to any declared sample.", "path", path)
	}

	// Second pass: quantification jobs.
	sampleJobs := make(map[string]*job.Job, len(p.Samples))
	for _, s := range p.Samples {
		j, err := job.BuildQuantify(s, cfg.Params)
		if err != nil {
			return nil, err
		}
		if err := p.Graph.AddJob(j); err != nil {
			return nil, err
		}
		sampleJobs[s.ID] = j
	}
	logger.Debug("Plan: Quantification jobs created.", "count", len(sampleJobs))

	// Third pass: groups and aggregation jobs.
	p.Groups, err = group.Resolve(cfg.Groups, cfg.Samples)
	if err != nil {
		return nil, err
	}
	for _, g := range p.Groups {
		j, manifest, err := job.BuildAggregate(g, sampleJobs, cfg.Params)
		if err != nil {
			return nil, err
		}
		if err := p.Graph.AddJob(j); err != nil {
			return nil, err
		}
		p.Manifests = append(p.Manifests, manifest)
	}
	logger.Debug("Plan: Aggregation jobs created.", "count", len(p.Groups))

	logger.Info("Plan: Construction successful.", "jobs", p.Graph.Len(), "unassigned", len(p.Unassigned))
	return p, nil
}

// WriteManifests writes every aggregation manifest to disk.
func (p *Plan) WriteManifests(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for _, m := range p.Manifests {
		if err := m.WriteFile(); err != nil {
			return err
		}
		logger.Debug("Wrote aggregation manifest.", "path", m.Path, "rows", len(m.Rows))
	}
	return nil
}

// WriteTo prints every job invocation in scheduling order.
func (p *Plan) WriteTo(w io.Writer) (int64, error) {
	var n int64
	for _, j := range p.Graph.Jobs() {
		line := fmt.Sprintf("%s\t%s\n", j.Key, strings.Join(j.Invocation.Argv, " "))
		if len(j.Prerequisites) > 0 {
			line = fmt.Sprintf("%s\t%s\t(after %s)\n", j.Key, strings.Join(j.Invocation.Argv, " "), strings.Join(j.Prerequisites, ", "))
		}
		written, err := io.WriteString(w, line)
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, nil
}

func validate(cfg Config) error {
	if len(cfg.Samples) == 0 {
		return ErrNoSamples
	}
	if cfg.Params.MaxConcurrentJobs < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidMaxJobs, cfg.Params.MaxConcurrentJobs)
	}
	seen := make(map[string]struct{}, len(cfg.Samples))
	for i, name := range cfg.Samples {
		if name == "" || strings.ContainsAny(name, "/,"+group.NameSeparator) || strings.TrimSpace(name) != name {
			return fmt.Errorf("sample %d (%q): %w", i, name, ErrInvalidSample)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("sample %d (%q): %w", i, name, ErrDuplicateSample)
		}
		seen[name] = struct{}{}
	}
	return nil
}

func resolveRawDir(cfg Config) string {
	dir := cfg.RawDir
	if dir == "" {
		dir = DefaultRawDir
	}
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(cfg.Params.OutputRoot, dir)
	}
	if abs, err := filepath.Abs(dir); err == nil {
		return abs
	}
	return dir
}
