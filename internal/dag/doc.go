// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package dag holds the dependency graph between quantification and
// aggregation jobs.
//
// The graph has exactly two levels: Quantify jobs have no prerequisites and
// Aggregate jobs depend only on Quantify jobs. AddJob enforces that shape,
// which is what lets the scheduler avoid general topological handling. The
// graph is built once per run; afterwards only job states change.
package dag
