// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package job

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrInvalidReference is returned when the reference path is missing or unusable.
var ErrInvalidReference = errors.New("invalid reference")

// Tool describes the vendor binary and its subcommands.
type Tool struct {
	Binary           string
	QuantifyCommand  string
	AggregateCommand string
	ExtraArgs        []string
}

// DefaultTool is the Cell Ranger command layout.
var DefaultTool = Tool{
	Binary:           "cellranger",
	QuantifyCommand:  "count",
	AggregateCommand: "aggr",
}

// Params is the run-wide, immutable configuration every builder receives.
type Params struct {
	OutputRoot        string
	Project           string
	Reference         string
	MaxConcurrentJobs int
	Tool              Tool
}

func (p Params) root() (string, error) {
	root, err := filepath.Abs(p.OutputRoot)
	if err != nil {
		return "", fmt.Errorf("resolving output root %q: %w", p.OutputRoot, err)
	}
	return root, nil
}

func (p Params) tool() Tool {
	t := p.Tool
	if t.Binary == "" {
		t.Binary = DefaultTool.Binary
	}
	if t.QuantifyCommand == "" {
		t.QuantifyCommand = DefaultTool.QuantifyCommand
	}
	if t.AggregateCommand == "" {
		t.AggregateCommand = DefaultTool.AggregateCommand
	}
	return t
}

// ResultsDir is where Quantify jobs write, one subdirectory per sample.
func ResultsDir(root string) string { return filepath.Join(root, "results") }

// AggregatesDir is where Aggregate jobs write, one subdirectory per group.
func AggregatesDir(root string) string { return filepath.Join(root, "aggregates") }

// ManifestsDir holds the generated aggregation manifests.
func ManifestsDir(root string) string { return filepath.Join(root, "manifests") }

// LogsDir holds one log file per job, grouped by command.
func LogsDir(root string) string { return filepath.Join(root, "logs") }

// CheckReference verifies the reference exists, is a directory and can be read.
func CheckReference(path string) error {
	if path == "" {
		return fmt.Errorf("reference path is empty: %w", ErrInvalidReference)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reference %s: %v: %w", path, err, ErrInvalidReference)
	}
	if !info.IsDir() {
		return fmt.Errorf("reference %s is not a directory: %w", path, ErrInvalidReference)
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("reference %s is not readable: %v: %w", path, err, ErrInvalidReference)
	}
	return f.Close()
}
