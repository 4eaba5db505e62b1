package dryrun

import (
	"bytes"
	"context"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/dag"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/specialistvlad/cellgrid/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDryRun_PrintsInSchedulingOrder(t *testing.T) {
	g := dag.New()
	require.NoError(t, g.AddJob(&job.Job{Kind: job.Quantify, Key: "quantify/a", Name: "a",
		Invocation: job.Invocation{Argv: []string{"cellranger", "count", "--id=a"}}}))
	require.NoError(t, g.AddJob(&job.Job{Kind: job.Quantify, Key: "quantify/b", Name: "b",
		Invocation: job.Invocation{Argv: []string{"cellranger", "count", "--id=b"}}}))
	require.NoError(t, g.AddJob(&job.Job{Kind: job.Aggregate, Key: "aggregate/a+b", Name: "a+b",
		Prerequisites: []string{"quantify/a", "quantify/b"},
		Invocation:    job.Invocation{Argv: []string{"cellranger", "aggr", "--id=a+b"}}}))

	var out bytes.Buffer
	report, err := scheduler.New(g, New(&out)).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success())

	assert.Equal(t,
		"[dry-run] quantify/a: cellranger count --id=a\n"+
			"[dry-run] quantify/b: cellranger count --id=b\n"+
			"[dry-run] aggregate/a+b: cellranger aggr --id=a+b\n",
		out.String())
}
