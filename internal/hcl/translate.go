package hcl

import (
	"github.com/specialistvlad/cellgrid/internal/config"
)

// translate converts the merged HCL blocks into the agnostic model. The
// caller guarantees exactly one run block.
func translate(root *fileRoot) *config.Model {
	run := root.Runs[0]
	m := &config.Model{
		Run: config.Run{
			OutputRoot:        run.OutputRoot,
			Project:           run.Project,
			Reference:         run.Reference,
			RawDir:            run.RawDir,
			MaxConcurrentJobs: run.MaxConcurrentJobs,
			Samples:           run.Samples,
			Groups:            run.Groups,
		},
	}

	if len(root.Tools) > 0 {
		t := root.Tools[0]
		m.Tool = config.Tool{
			Binary:    t.Binary,
			Quantify:  t.Quantify,
			Aggregate: t.Aggregate,
			ExtraArgs: t.ExtraArgs,
		}
	}

	if len(root.Runners) > 0 {
		r := root.Runners[0]
		m.Runner = config.Runner{
			Type:          r.Type,
			Addr:          r.Addr,
			Password:      r.Password,
			DB:            r.DB,
			JobsStream:    r.JobsStream,
			ResultsStream: r.ResultsStream,
		}
	}

	if len(root.Notify) > 0 {
		n := root.Notify[0]
		m.Notify = &config.Notify{
			URL:       n.URL,
			Path:      n.Path,
			Namespace: n.Namespace,
			Event:     n.Event,
		}
	}
	return m
}
