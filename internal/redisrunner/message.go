// SPDX-License-Identifier: MIT
// Copyright (c) 2025 Vladyslav Kazantsev

package redisrunner

import (
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/specialistvlad/cellgrid/internal/job"
)

// Result statuses written by workers.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// JobMessage is what a worker reads from the jobs stream.
type JobMessage struct {
	ID         string
	RunID      string
	JobKey     string
	Command    string
	Argv       []string
	OutputDir  string
	DoneMarker string
	LogPath    string
}

// NewJobMessage builds the message for j within run runID.
func NewJobMessage(runID string, j *job.Job) JobMessage {
	return JobMessage{
		RunID:      runID,
		JobKey:     j.Key,
		Command:    j.Invocation.Command,
		Argv:       j.Invocation.Argv,
		OutputDir:  j.Invocation.OutputDir,
		DoneMarker: j.Invocation.DoneMarker,
		LogPath:    j.Invocation.LogPath,
	}
}

// Values returns the stream fields for XADD.
func (m JobMessage) Values() (map[string]any, error) {
	argv, err := json.Marshal(m.Argv)
	if err != nil {
		return nil, fmt.Errorf("encoding argv: %w", err)
	}
	return map[string]any{
		"run_id":      m.RunID,
		"job_key":     m.JobKey,
		"command":     m.Command,
		"argv":        string(argv),
		"output_dir":  m.OutputDir,
		"done_marker": m.DoneMarker,
		"log_path":    m.LogPath,
	}, nil
}

// ParseJob decodes a jobs stream entry.
func ParseJob(msg redis.XMessage) (JobMessage, error) {
	m := JobMessage{ID: msg.ID}
	var err error
	if m.RunID, err = parseString(msg.Values, "run_id"); err != nil {
		return JobMessage{}, err
	}
	if m.JobKey, err = parseString(msg.Values, "job_key"); err != nil {
		return JobMessage{}, err
	}
	rawArgv, err := parseString(msg.Values, "argv")
	if err != nil {
		return JobMessage{}, err
	}
	if err := json.Unmarshal([]byte(rawArgv), &m.Argv); err != nil {
		return JobMessage{}, fmt.Errorf("parsing argv: %w", err)
	}
	m.Command = parseOptionalString(msg.Values, "command")
	m.OutputDir = parseOptionalString(msg.Values, "output_dir")
	m.DoneMarker = parseOptionalString(msg.Values, "done_marker")
	m.LogPath = parseOptionalString(msg.Values, "log_path")
	return m, nil
}

// ResultMessage is what a worker writes to the results stream.
type ResultMessage struct {
	ID     string
	RunID  string
	JobKey string
	Status string
	Error  string
}

// Values returns the stream fields for XADD.
func (m ResultMessage) Values() map[string]any {
	values := map[string]any{
		"run_id":  m.RunID,
		"job_key": m.JobKey,
		"status":  m.Status,
	}
	if m.Error != "" {
		values["error"] = m.Error
	}
	return values
}

// ParseResult decodes a results stream entry.
func ParseResult(msg redis.XMessage) (ResultMessage, error) {
	m := ResultMessage{ID: msg.ID}
	var err error
	if m.RunID, err = parseString(msg.Values, "run_id"); err != nil {
		return ResultMessage{}, err
	}
	if m.JobKey, err = parseString(msg.Values, "job_key"); err != nil {
		return ResultMessage{}, err
	}
	if m.Status, err = parseString(msg.Values, "status"); err != nil {
		return ResultMessage{}, err
	}
	switch m.Status {
	case StatusSucceeded, StatusFailed:
	default:
		return ResultMessage{}, fmt.Errorf("unknown status %q", m.Status)
	}
	m.Error = parseOptionalString(msg.Values, "error")
	return m, nil
}

func parseString(values map[string]any, key string) (string, error) {
	raw, ok := values[key]
	if !ok {
		return "", fmt.Errorf("missing %s", key)
	}
	return fmt.Sprint(raw), nil
}

func parseOptionalString(values map[string]any, key string) string {
	raw, ok := values[key]
	if !ok {
		return ""
	}
	return fmt.Sprint(raw)
}
