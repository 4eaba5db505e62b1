// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package group turns group specifications ("a,b,c") into named experiment
// groups whose members are all declared samples.
package group

import (
	"errors"
	"fmt"
	"strings"
)

// NameSeparator joins member names into a group name.
const NameSeparator = "+"

var (
	ErrUnknownSampleInGroup = errors.New("unknown sample in group")
	ErrDuplicateMember      = errors.New("duplicate sample in group")
	ErrEmptyGroup           = errors.New("group has no members")
	ErrDuplicateGroup       = errors.New("duplicate group")
)

// Group is a named, ordered set of samples aggregated together.
type Group struct {
	// Name is derived from Members, so the same spec always yields the same name.
	Name string
	// Index is the position of the spec in the configuration.
	Index int
	// Members are sample identifiers in declared order.
	Members []string
}

// NameFor returns the deterministic group name for an ordered member list.
func NameFor(members []string) string {
	return strings.Join(members, NameSeparator)
}

// Resolve parses every spec and validates its members against known.
// Groups are returned in spec order.
func Resolve(specs []string, known []string) ([]*Group, error) {
	knownSet := make(map[string]struct{}, len(known))
	for _, s := range known {
		knownSet[s] = struct{}{}
	}

	groups := make([]*Group, 0, len(specs))
	byName := make(map[string]int, len(specs))
	for i, spec := range specs {
		g, err := parse(i, spec, knownSet)
		if err != nil {
			return nil, err
		}
		if prev, ok := byName[g.Name]; ok {
			return nil, fmt.Errorf("group %d (%q) repeats group %d: %w", i, g.Name, prev, ErrDuplicateGroup)
		}
		byName[g.Name] = i
		groups = append(groups, g)
	}
	return groups, nil
}

func parse(index int, spec string, known map[string]struct{}) (*Group, error) {
	var members []string
	seen := make(map[string]struct{})
	for _, part := range strings.Split(spec, ",") {
		name := strings.TrimSpace(part)
		if name == "" {
			continue
		}
		if _, ok := known[name]; !ok {
			return nil, fmt.Errorf("group %d: sample %q: %w", index, name, ErrUnknownSampleInGroup)
		}
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("group %d: sample %q: %w", index, name, ErrDuplicateMember)
		}
		seen[name] = struct{}{}
		members = append(members, name)
	}

	if len(members) == 0 {
		return nil, fmt.Errorf("group %d (%q): %w", index, spec, ErrEmptyGroup)
	}

	return &Group{
		Name:    NameFor(members),
		Index:   index,
		Members: members,
	}, nil
}
