package config

import (
	"errors"
	"fmt"
)

// Runner types understood by the application.
const (
	RunnerLocal  = "local"
	RunnerRedis  = "redis"
	RunnerDryRun = "dryrun"
)

var (
	ErrMissingField   = errors.New("missing required field")
	ErrInvalidValue   = errors.New("invalid value")
	ErrUnknownRunner  = errors.New("unknown runner type")
	ErrNoRunBlock     = errors.New("no run block found")
	ErrDuplicateBlock = errors.New("block may only be defined once")
	ErrNoConfigFiles  = errors.New("no configuration files found")
)

// Model is the unified, format-agnostic representation of a run's
// configuration.
type Model struct {
	Run    Run
	Tool   Tool
	Runner Runner
	// Notify is nil when progress events are disabled.
	Notify *Notify
}

// Run is the run-wide configuration consumed by the construction phase.
type Run struct {
	OutputRoot string
	Project    string
	Reference  string
	// RawDir is relative to OutputRoot unless absolute. Empty means default.
	RawDir            string
	MaxConcurrentJobs int
	Samples           []string
	Groups            []string
}

// Tool describes the vendor binary. Empty fields take built-in defaults.
type Tool struct {
	Binary    string
	Quantify  string
	Aggregate string
	ExtraArgs []string
}

// Runner selects and configures the job runner.
type Runner struct {
	Type string
	// Redis runner settings.
	Addr          string
	Password      string
	DB            int
	JobsStream    string
	ResultsStream string
}

// Notify configures socket.io progress events.
type Notify struct {
	URL       string
	Path      string
	Namespace string
	Event     string
}

// Default values applied by ApplyDefaults.
const (
	DefaultMaxConcurrentJobs = 1
	DefaultRedisAddr         = "localhost:6379"
	DefaultJobsStream        = "cellgrid:jobs"
	DefaultResultsStream     = "cellgrid:results"
	DefaultNotifyPath        = "/socket.io/"
	DefaultNotifyNamespace   = "/"
	DefaultNotifyEvent       = "job_state"
)

// ApplyDefaults fills in every optional field left empty.
func (m *Model) ApplyDefaults() {
	if m.Run.MaxConcurrentJobs == 0 {
		m.Run.MaxConcurrentJobs = DefaultMaxConcurrentJobs
	}
	if m.Runner.Type == "" {
		m.Runner.Type = RunnerLocal
	}
	if m.Runner.Type == RunnerRedis {
		if m.Runner.Addr == "" {
			m.Runner.Addr = DefaultRedisAddr
		}
		if m.Runner.JobsStream == "" {
			m.Runner.JobsStream = DefaultJobsStream
		}
		if m.Runner.ResultsStream == "" {
			m.Runner.ResultsStream = DefaultResultsStream
		}
	}
	if m.Notify != nil {
		if m.Notify.Path == "" {
			m.Notify.Path = DefaultNotifyPath
		}
		if m.Notify.Namespace == "" {
			m.Notify.Namespace = DefaultNotifyNamespace
		}
		if m.Notify.Event == "" {
			m.Notify.Event = DefaultNotifyEvent
		}
	}
}

// Validate checks the model for missing or malformed fields. It does not
// touch the filesystem.
func (m *Model) Validate() error {
	var errs []error
	for _, f := range []struct{ name, value string }{
		{"run.output_root", m.Run.OutputRoot},
		{"run.project", m.Run.Project},
		{"run.reference", m.Run.Reference},
	} {
		if f.value == "" {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, ErrMissingField))
		}
	}
	if len(m.Run.Samples) == 0 {
		errs = append(errs, fmt.Errorf("run.samples: %w", ErrMissingField))
	}
	if m.Run.MaxConcurrentJobs < 1 {
		errs = append(errs, fmt.Errorf("run.max_concurrent_jobs must be at least 1, got %d: %w", m.Run.MaxConcurrentJobs, ErrInvalidValue))
	}
	switch m.Runner.Type {
	case RunnerLocal, RunnerDryRun:
	case RunnerRedis:
		if m.Runner.DB < 0 {
			errs = append(errs, fmt.Errorf("runner.db must not be negative: %w", ErrInvalidValue))
		}
	default:
		errs = append(errs, fmt.Errorf("runner %q: %w", m.Runner.Type, ErrUnknownRunner))
	}
	if m.Notify != nil && m.Notify.URL == "" {
		errs = append(errs, fmt.Errorf("notify.url: %w", ErrMissingField))
	}
	return errors.Join(errs...)
}
