// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

// Package redisrunner implements scheduler.Runner on top of Redis streams.
//
// Each submitted job is appended to a jobs stream for external workers to
// execute. Workers append a result entry carrying the run id and job key to
// a results stream, which the runner tails and turns into completions.
package redisrunner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
)

var (
	// ErrRemoteFailure marks failures reported by a worker.
	ErrRemoteFailure = errors.New("worker reported failure")
	// ErrNotStarted is returned by Submit before Start.
	ErrNotStarted = errors.New("runner not started")
	// ErrAlreadySubmitted is returned when a key is already in flight.
	ErrAlreadySubmitted = errors.New("job already in flight")
)

// StreamClient is the subset of the go-redis client the runner uses.
type StreamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	XRead(ctx context.Context, a *redis.XReadArgs) *redis.XStreamSliceCmd
	XRevRangeN(ctx context.Context, stream, start, stop string, count int64) *redis.XMessageSliceCmd
}

// Config configures a Runner.
type Config struct {
	JobsStream    string
	ResultsStream string
	// RunID tags every job so results of other runs are ignored.
	RunID string
	// Block is how long a single XREAD waits for new results.
	Block time.Duration
	// RetryDelay is the pause after a failed XREAD.
	RetryDelay time.Duration
}

// Runner submits jobs to a Redis stream and tails a results stream.
type Runner struct {
	client StreamClient
	cfg    Config

	mu      sync.Mutex
	pending map[string]chan<- scheduler.Completion
	started bool

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

var _ scheduler.Runner = (*Runner)(nil)

// New creates a Runner. Call Start before submitting.
func New(client StreamClient, cfg Config) *Runner {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	return &Runner{
		client:  client,
		cfg:     cfg,
		pending: make(map[string]chan<- scheduler.Completion),
	}
}

// Start positions the results cursor at the end of the stream and begins
// tailing it. The listener stops when ctx is cancelled or Close is called;
// jobs still in flight then complete with the cancellation error.
func (r *Runner) Start(ctx context.Context) error {
	last, err := r.client.XRevRangeN(ctx, r.cfg.ResultsStream, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("reading results stream %s: %w", r.cfg.ResultsStream, err)
	}
	cursor := "0-0"
	if len(last) > 0 {
		cursor = last[0].ID
	}

	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.started = true
	r.cancel = cancel
	r.mu.Unlock()

	r.wg.Add(1)
	go r.listen(ctx, cursor)
	ctxlog.FromContext(ctx).Debug("Redis runner started.", "results", r.cfg.ResultsStream, "cursor", cursor, "runID", r.cfg.RunID)
	return nil
}

// Close stops the listener and waits for it to exit.
func (r *Runner) Close() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	r.wg.Wait()
}

// Submit appends the job to the jobs stream.
func (r *Runner) Submit(ctx context.Context, j *job.Job, done chan<- scheduler.Completion) error {
	values, err := NewJobMessage(r.cfg.RunID, j).Values()
	if err != nil {
		return err
	}

	r.mu.Lock()
	if !r.started {
		r.mu.Unlock()
		return ErrNotStarted
	}
	if _, dup := r.pending[j.Key]; dup {
		r.mu.Unlock()
		return fmt.Errorf("%s: %w", j.Key, ErrAlreadySubmitted)
	}
	r.pending[j.Key] = done
	r.mu.Unlock()

	id, err := r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.cfg.JobsStream,
		Values: values,
	}).Result()
	if err != nil {
		r.mu.Lock()
		delete(r.pending, j.Key)
		r.mu.Unlock()
		return fmt.Errorf("xadd (stream=%s): %w", r.cfg.JobsStream, err)
	}

	ctxlog.FromContext(ctx).Debug("Enqueued job.", "jobKey", j.Key, "stream", r.cfg.JobsStream, "messageID", id)
	return nil
}

func (r *Runner) listen(ctx context.Context, cursor string) {
	defer r.wg.Done()
	logger := ctxlog.FromContext(ctx)

	for ctx.Err() == nil {
		streams, err := r.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{r.cfg.ResultsStream, cursor},
			Block:   r.cfg.Block,
			Count:   100,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) || ctx.Err() != nil {
				continue
			}
			logger.Error("Reading results stream failed.", "stream", r.cfg.ResultsStream, "error", err)
			select {
			case <-ctx.Done():
			case <-time.After(r.cfg.RetryDelay):
			}
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				cursor = msg.ID
				r.handle(ctx, msg)
			}
		}
	}

	r.abandon(ctx.Err())
}

func (r *Runner) handle(ctx context.Context, msg redis.XMessage) {
	logger := ctxlog.FromContext(ctx)
	res, err := ParseResult(msg)
	if err != nil {
		logger.Warn("Skipping malformed result.", "messageID", msg.ID, "error", err)
		return
	}
	if res.RunID != r.cfg.RunID {
		return
	}

	r.mu.Lock()
	done, ok := r.pending[res.JobKey]
	delete(r.pending, res.JobKey)
	r.mu.Unlock()
	if !ok {
		logger.Warn("Result for a job that is not in flight.", "jobKey", res.JobKey, "messageID", msg.ID)
		return
	}

	c := scheduler.Completion{Key: res.JobKey}
	if res.Status == StatusFailed {
		c.Err = fmt.Errorf("%w: %s", ErrRemoteFailure, res.Error)
	}
	done <- c
}

// abandon completes every in-flight job with cause.
func (r *Runner) abandon(cause error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for key, done := range r.pending {
		done <- scheduler.Completion{Key: key, Err: fmt.Errorf("results listener stopped: %w", cause)}
		delete(r.pending, key)
	}
	r.started = false
}
