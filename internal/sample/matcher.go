// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package sample

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultExtensions are the raw read file suffixes considered by a Matcher.
var DefaultExtensions = []string{".fastq.gz", ".fq.gz", ".fastq", ".fq"}

// DefaultSeparators are the characters accepted between a sample name and
// the rest of a file name.
const DefaultSeparators = "_-."

// Matcher assigns raw read files to declared samples.
type Matcher struct {
	// declared is sorted by descending length so the first match is the
	// longest one.
	declared   []string
	extensions []string
	separators string
}

// Option configures a Matcher.
type Option func(*Matcher)

// WithExtensions overrides the accepted file suffixes.
func WithExtensions(exts ...string) Option {
	return func(m *Matcher) {
		m.extensions = exts
	}
}

// WithSeparators overrides the characters accepted after the sample name.
func WithSeparators(seps string) Option {
	return func(m *Matcher) {
		m.separators = seps
	}
}

// NewMatcher creates a Matcher that knows about every declared sample name.
// Knowing all names up front is what lets it resolve prefix collisions.
func NewMatcher(declared []string, opts ...Option) *Matcher {
	names := append([]string(nil), declared...)
	sort.SliceStable(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})

	m := &Matcher{
		declared:   names,
		extensions: DefaultExtensions,
		separators: DefaultSeparators,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Owner returns the declared sample that owns the file at path, or false if
// the file is not a raw read file or no declared sample matches.
func (m *Matcher) Owner(path string) (string, bool) {
	name := filepath.Base(path)
	if !m.isRawRead(name) {
		return "", false
	}
	for _, s := range m.declared {
		if hasBoundedPrefix(name, s, m.separators) {
			return s, true
		}
	}
	return "", false
}

// Match returns the files in listing owned by sampleName, sorted by file
// name. It fails with ErrNoInputsFound when there are none.
func (m *Matcher) Match(sampleName string, listing []string) ([]InputFile, error) {
	var inputs []InputFile
	for _, path := range listing {
		owner, ok := m.Owner(path)
		if !ok || owner != sampleName {
			continue
		}
		inputs = append(inputs, newInputFile(path, owner))
	}

	if len(inputs) == 0 {
		return nil, fmt.Errorf("sample %q: %w", sampleName, ErrNoInputsFound)
	}

	sort.Slice(inputs, func(i, j int) bool {
		if inputs[i].Name != inputs[j].Name {
			return inputs[i].Name < inputs[j].Name
		}
		return inputs[i].Path < inputs[j].Path
	})
	return inputs, nil
}

// Build matches sampleName and wraps the result in a Sample.
func (m *Matcher) Build(sampleName string, listing []string) (*Sample, error) {
	inputs, err := m.Match(sampleName, listing)
	if err != nil {
		return nil, err
	}
	return &Sample{ID: sampleName, Inputs: inputs}, nil
}

// Unassigned returns the raw read files in listing that no declared sample
// owns, in listing order.
func (m *Matcher) Unassigned(listing []string) []string {
	var out []string
	for _, path := range listing {
		if !m.isRawRead(filepath.Base(path)) {
			continue
		}
		if _, ok := m.Owner(path); !ok {
			out = append(out, path)
		}
	}
	return out
}

func (m *Matcher) isRawRead(name string) bool {
	for _, ext := range m.extensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}
