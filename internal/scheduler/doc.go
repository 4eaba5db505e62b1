// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package scheduler executes a job graph under a concurrency cap.
//
// # How It Works
//
// The scheduler is a single-threaded event loop:
//  1. Seed a FIFO ready queue with every job that has no prerequisites, in
//     graph insertion order.
//  2. While a concurrency slot is free, pop the queue and Submit the job to
//     the Runner.
//  3. Wait for a Completion on the completion channel.
//  4. On success, enqueue every dependent whose prerequisites have now all
//     succeeded. On failure, mark every pending dependent Blocked.
//  5. Stop when nothing is Running and nothing is Runnable.
//
// Runners deliver completions from their own goroutines; the loop is the
// only reader and the only writer of the schedule state, so no locking is
// needed around it.
//
// A failed job never aborts unrelated branches of the graph. The Report
// returned by Run holds the terminal state of every job.
package scheduler
