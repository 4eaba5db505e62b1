package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validModel() *Model {
	return &Model{
		Run: Run{
			OutputRoot: "/data/run1",
			Project:    "PRJ01",
			Reference:  "/refs/GRCh38",
			Samples:    []string{"a", "b"},
		},
	}
}

func TestApplyDefaults(t *testing.T) {
	m := validModel()
	m.Notify = &Notify{URL: "http://localhost:3000"}
	m.ApplyDefaults()

	assert.Equal(t, DefaultMaxConcurrentJobs, m.Run.MaxConcurrentJobs)
	assert.Equal(t, RunnerLocal, m.Runner.Type)
	assert.Empty(t, m.Runner.Addr, "redis settings are only defaulted for the redis runner")
	assert.Equal(t, DefaultNotifyPath, m.Notify.Path)
	assert.Equal(t, DefaultNotifyNamespace, m.Notify.Namespace)
	assert.Equal(t, DefaultNotifyEvent, m.Notify.Event)

	r := validModel()
	r.Runner.Type = RunnerRedis
	r.ApplyDefaults()
	assert.Equal(t, DefaultRedisAddr, r.Runner.Addr)
	assert.Equal(t, DefaultJobsStream, r.Runner.JobsStream)
	assert.Equal(t, DefaultResultsStream, r.Runner.ResultsStream)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(*Model)
		err    error
		msg    string
	}{
		{name: "valid", mutate: func(*Model) {}},
		{name: "missing output root", mutate: func(m *Model) { m.Run.OutputRoot = "" }, err: ErrMissingField, msg: "run.output_root"},
		{name: "missing reference", mutate: func(m *Model) { m.Run.Reference = "" }, err: ErrMissingField, msg: "run.reference"},
		{name: "no samples", mutate: func(m *Model) { m.Run.Samples = nil }, err: ErrMissingField, msg: "run.samples"},
		{name: "negative max jobs", mutate: func(m *Model) { m.Run.MaxConcurrentJobs = -2 }, err: ErrInvalidValue, msg: "max_concurrent_jobs"},
		{name: "unknown runner", mutate: func(m *Model) { m.Runner.Type = "slurm" }, err: ErrUnknownRunner, msg: "slurm"},
		{name: "notify without url", mutate: func(m *Model) { m.Notify = &Notify{} }, err: ErrMissingField, msg: "notify.url"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := validModel()
			m.ApplyDefaults()
			tc.mutate(m)
			err := m.Validate()
			if tc.err == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	m := &Model{Runner: Runner{Type: "nope"}}
	err := m.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMissingField)
	assert.ErrorIs(t, err, ErrInvalidValue)
	assert.ErrorIs(t, err, ErrUnknownRunner)
}
