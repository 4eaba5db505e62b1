// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package job

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/specialistvlad/cellgrid/internal/group"
	"github.com/specialistvlad/cellgrid/internal/sample"
)

// ErrMissingPrerequisiteJob is returned when a group member has no
// quantification job to depend on.
var ErrMissingPrerequisiteJob = errors.New("missing prerequisite job")

// MoleculeInfoFile is the per-sample artifact consumed by aggregation.
const MoleculeInfoFile = "molecule_info.h5"

// BuildQuantify constructs the quantification job for a sample. It does not
// touch the filesystem apart from validating the reference.
func BuildQuantify(s *sample.Sample, p Params) (*Job, error) {
	if err := CheckReference(p.Reference); err != nil {
		return nil, fmt.Errorf("sample %q: %w", s.ID, err)
	}
	if len(s.Inputs) == 0 {
		return nil, fmt.Errorf("sample %q: %w", s.ID, sample.ErrNoInputsFound)
	}
	root, err := p.root()
	if err != nil {
		return nil, err
	}
	ref, err := filepath.Abs(p.Reference)
	if err != nil {
		return nil, fmt.Errorf("resolving reference %q: %w", p.Reference, err)
	}

	tool := p.tool()
	outDir := filepath.Join(ResultsDir(root), s.ID)
	inputs := s.Paths()

	argv := []string{
		tool.Binary, tool.QuantifyCommand,
		"--id=" + s.ID,
		"--description=" + p.Project,
		"--transcriptome=" + ref,
		"--fastqs=" + strings.Join(inputs, ","),
		"--output-dir=" + outDir,
		"--maxjobs=" + strconv.Itoa(p.MaxConcurrentJobs),
	}
	argv = append(argv, tool.ExtraArgs...)

	return &Job{
		Kind:   Quantify,
		Key:    KeyFor(Quantify, s.ID),
		Name:   s.ID,
		Inputs: inputs,
		Invocation: Invocation{
			Command:    Quantify.String(),
			Argv:       argv,
			OutputDir:  outDir,
			DoneMarker: MoleculeInfo(outDir),
			LogPath:    filepath.Join(LogsDir(root), Quantify.String(), s.ID+".log"),
		},
	}, nil
}

// MoleculeInfo returns the molecule-level output of a quantification run
// writing to outDir.
func MoleculeInfo(outDir string) string {
	return filepath.Join(outDir, "outs", MoleculeInfoFile)
}

// BuildAggregate constructs the aggregation job for a group together with
// its manifest. sampleJobs maps sample identifiers to their Quantify jobs.
func BuildAggregate(g *group.Group, sampleJobs map[string]*Job, p Params) (*Job, *Manifest, error) {
	root, err := p.root()
	if err != nil {
		return nil, nil, err
	}

	manifest := &Manifest{
		Path: filepath.Join(ManifestsDir(root), g.Name+".csv"),
		Rows: make([]ManifestRow, 0, len(g.Members)),
	}
	prereqs := make([]string, 0, len(g.Members))
	for _, member := range g.Members {
		qj, ok := sampleJobs[member]
		if !ok || qj == nil || qj.Kind != Quantify {
			return nil, nil, fmt.Errorf("group %d (%s): sample %q: %w", g.Index, g.Name, member, ErrMissingPrerequisiteJob)
		}
		prereqs = append(prereqs, qj.Key)
		manifest.Rows = append(manifest.Rows, ManifestRow{
			SampleID:   member,
			MoleculeH5: qj.Invocation.DoneMarker,
		})
	}

	tool := p.tool()
	outDir := filepath.Join(AggregatesDir(root), g.Name)
	argv := []string{
		tool.Binary, tool.AggregateCommand,
		"--id=" + g.Name,
		"--description=" + p.Project,
		"--csv=" + manifest.Path,
		"--output-dir=" + outDir,
		"--maxjobs=" + strconv.Itoa(p.MaxConcurrentJobs),
	}
	argv = append(argv, tool.ExtraArgs...)

	j := &Job{
		Kind:          Aggregate,
		Key:           KeyFor(Aggregate, g.Name),
		Name:          g.Name,
		Prerequisites: prereqs,
		Inputs:        []string{manifest.Path},
		Invocation: Invocation{
			Command:    Aggregate.String(),
			Argv:       argv,
			OutputDir:  outDir,
			DoneMarker: filepath.Join(outDir, "outs", "count", "filtered_feature_bc_matrix.h5"),
			LogPath:    filepath.Join(LogsDir(root), Aggregate.String(), g.Name+".log"),
		},
	}
	return j, manifest, nil
}
