// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package sample resolves which raw read files in a directory belong to
// which declared sample.
//
// Matching is delimiter-bounded: a file belongs to a sample when its
// basename begins with the sample name immediately followed by one of the
// separator characters. When more than one declared name qualifies (for
// example `sample` and `sample_1` both match `sample_1_S1_L001_R1_001.fastq.gz`)
// the longest declared name owns the file.
package sample

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrNoInputsFound is returned when a declared sample owns no input files.
var ErrNoInputsFound = errors.New("no input files found")

// InputFile is a single raw read file assigned to a sample.
type InputFile struct {
	// Path is the absolute path of the file.
	Path string
	// Name is the file's basename.
	Name string
	// SamplePrefix is the declared sample name that owns the file.
	SamplePrefix string
	// Lane is the sequencing lane parsed from the file name, or 0 if the
	// name does not follow Illumina conventions.
	Lane int
	// Read is the read designator (R1, R2, I1, ...) or "" if unknown.
	Read string
}

// Sample is a declared sample together with its ordered input files.
type Sample struct {
	ID     string
	Inputs []InputFile
}

// Paths returns the input file paths in order.
func (s *Sample) Paths() []string {
	paths := make([]string, len(s.Inputs))
	for i, in := range s.Inputs {
		paths[i] = in.Path
	}
	return paths
}

// illuminaName matches the tail of bcl2fastq / BCL Convert output names,
// e.g. `_S1_L001_R1_001`.
var illuminaName = regexp.MustCompile(`_S\d+_L(\d{3})_([RI]\d)_\d{3}`)

func newInputFile(path, owner string) InputFile {
	in := InputFile{
		Path:         path,
		Name:         filepath.Base(path),
		SamplePrefix: owner,
	}
	if m := illuminaName.FindStringSubmatch(in.Name[len(owner):]); m != nil {
		in.Lane, _ = strconv.Atoi(m[1])
		in.Read = m[2]
	}
	return in
}

// hasBoundedPrefix reports whether name starts with prefix followed by one
// of the separator characters.
func hasBoundedPrefix(name, prefix, separators string) bool {
	if len(name) <= len(prefix) || !strings.HasPrefix(name, prefix) {
		return false
	}
	return strings.IndexByte(separators, name[len(prefix)]) >= 0
}
