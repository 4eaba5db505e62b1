package hcl

// fileRoot is used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Runs    []*runBlock    `hcl:"run,block"`
	Tools   []*toolBlock   `hcl:"tool,block"`
	Runners []*runnerBlock `hcl:"runner,block"`
	Notify  []*notifyBlock `hcl:"notify,block"`
}

// runBlock is the `run` block.
type runBlock struct {
	OutputRoot        string   `hcl:"output_root"`
	Project           string   `hcl:"project"`
	Reference         string   `hcl:"reference"`
	RawDir            string   `hcl:"raw_dir,optional"`
	MaxConcurrentJobs int      `hcl:"max_concurrent_jobs,optional"`
	Samples           []string `hcl:"samples"`
	Groups            []string `hcl:"groups,optional"`
}

// toolBlock is the optional `tool` block.
type toolBlock struct {
	Binary    string   `hcl:"binary,optional"`
	Quantify  string   `hcl:"quantify,optional"`
	Aggregate string   `hcl:"aggregate,optional"`
	ExtraArgs []string `hcl:"extra_args,optional"`
}

// runnerBlock is `runner "<type>" { ... }`.
type runnerBlock struct {
	Type          string `hcl:"type,label"`
	Addr          string `hcl:"addr,optional"`
	Password      string `hcl:"password,optional"`
	DB            int    `hcl:"db,optional"`
	JobsStream    string `hcl:"jobs_stream,optional"`
	ResultsStream string `hcl:"results_stream,optional"`
}

// notifyBlock is the optional `notify` block.
type notifyBlock struct {
	URL       string `hcl:"url"`
	Path      string `hcl:"path,optional"`
	Namespace string `hcl:"namespace,optional"`
	Event     string `hcl:"event,optional"`
}
