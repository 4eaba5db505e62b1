package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/specialistvlad/cellgrid/internal/dag"
	"github.com/specialistvlad/cellgrid/internal/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- test helpers ---

func quantify(name string) *job.Job {
	return &job.Job{
		Kind:       job.Quantify,
		Key:        job.KeyFor(job.Quantify, name),
		Name:       name,
		Invocation: job.Invocation{Command: "quantify"},
	}
}

func aggregate(name string, members ...string) *job.Job {
	j := &job.Job{
		Kind:       job.Aggregate,
		Key:        job.KeyFor(job.Aggregate, name),
		Name:       name,
		Invocation: job.Invocation{Command: "aggregate"},
	}
	for _, m := range members {
		j.Prerequisites = append(j.Prerequisites, job.KeyFor(job.Quantify, m))
	}
	return j
}

func buildGraph(t *testing.T, jobs ...*job.Job) *dag.Graph {
	t.Helper()
	g := dag.New()
	for _, j := range jobs {
		require.NoError(t, g.AddJob(j))
	}
	return g
}

// fakeRunner completes every job asynchronously after a short delay with a
// preconfigured outcome.
type fakeRunner struct {
	mu          sync.Mutex
	outcomes    map[string]error
	submitErrs  map[string]error
	delay       time.Duration
	submitted   []string
	inFlight    int
	maxInFlight int
}

func (r *fakeRunner) Submit(ctx context.Context, j *job.Job, done chan<- Completion) error {
	r.mu.Lock()
	if err := r.submitErrs[j.Key]; err != nil {
		r.mu.Unlock()
		return err
	}
	r.submitted = append(r.submitted, j.Key)
	r.inFlight++
	if r.inFlight > r.maxInFlight {
		r.maxInFlight = r.inFlight
	}
	outcome := r.outcomes[j.Key]
	r.mu.Unlock()

	go func() {
		time.Sleep(r.delay)
		r.mu.Lock()
		r.inFlight--
		r.mu.Unlock()
		done <- Completion{Key: j.Key, Err: outcome}
	}()
	return nil
}

// gatedRunner hands every submission to the test, which decides when and
// how each job completes.
type gatedRunner struct {
	submissions chan *job.Job
	mu          sync.Mutex
	done        chan<- Completion
}

func newGatedRunner() *gatedRunner {
	return &gatedRunner{submissions: make(chan *job.Job, 64)}
}

func (r *gatedRunner) Submit(ctx context.Context, j *job.Job, done chan<- Completion) error {
	r.mu.Lock()
	r.done = done
	r.mu.Unlock()
	r.submissions <- j
	return nil
}

func (r *gatedRunner) finish(key string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.done <- Completion{Key: key, Err: err}
}

func (r *gatedRunner) next(t *testing.T) *job.Job {
	t.Helper()
	select {
	case j := <-r.submissions:
		return j
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a submission")
		return nil
	}
}

func (r *gatedRunner) expectNone(t *testing.T) {
	t.Helper()
	select {
	case j := <-r.submissions:
		t.Fatalf("unexpected submission of %s", j.Key)
	case <-time.After(50 * time.Millisecond):
	}
}

// recorder keeps every transition the scheduler reports.
type recorder struct {
	mu          sync.Mutex
	transitions []Transition
}

func (r *recorder) Observe(ctx context.Context, t Transition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
}

func (r *recorder) all() []Transition {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Transition(nil), r.transitions...)
}

func (r *recorder) started() []string {
	var keys []string
	for _, t := range r.all() {
		if t.To == job.Running {
			keys = append(keys, t.Key)
		}
	}
	return keys
}

type runResult struct {
	report *Report
	err    error
}

func runAsync(ctx context.Context, s *Scheduler) <-chan runResult {
	out := make(chan runResult, 1)
	go func() {
		report, err := s.Run(ctx)
		out <- runResult{report, err}
	}()
	return out
}

func wait(t *testing.T, ch <-chan runResult) runResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not finish")
		return runResult{}
	}
}

func stateOf(t *testing.T, r *Report, key string) job.State {
	t.Helper()
	res, ok := r.Result(key)
	require.True(t, ok, "no result for %s", key)
	return res.State
}

// --- tests ---

func TestRun_TwoSamplesOneGroup(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"), aggregate("a+b", "a", "b"))
	runner := newGatedRunner()
	rec := &recorder{}
	s := New(g, runner, WithMaxConcurrent(2), WithObserver(rec))

	result := runAsync(context.Background(), s)

	// Both quantify jobs start straight away, in declaration order.
	assert.Equal(t, "quantify/a", runner.next(t).Key)
	assert.Equal(t, "quantify/b", runner.next(t).Key)
	runner.expectNone(t)

	runner.finish("quantify/a", nil)
	runner.expectNone(t)

	runner.finish("quantify/b", nil)
	agg := runner.next(t)
	assert.Equal(t, "aggregate/a+b", agg.Key)
	assert.Equal(t, []string{"quantify/a", "quantify/b"}, agg.Prerequisites)
	runner.expectNone(t)

	runner.finish("aggregate/a+b", nil)
	res := wait(t, result)
	require.NoError(t, res.err)
	assert.True(t, res.report.Success())
	assert.Len(t, res.report.Results, 3)
	assert.Equal(t, []string{"quantify/a", "quantify/b", "aggregate/a+b"}, rec.started())
}

func TestRun_FailedQuantifyBlocksAggregate(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"), aggregate("a+b", "a", "b"))
	boom := errors.New("exit status 1")
	runner := &fakeRunner{outcomes: map[string]error{"quantify/a": boom}}
	rec := &recorder{}

	report, err := New(g, runner, WithMaxConcurrent(2), WithObserver(rec)).Run(context.Background())
	require.NoError(t, err)

	assert.False(t, report.Success())
	assert.Equal(t, job.Failed, stateOf(t, report, "quantify/a"))
	assert.Equal(t, job.Succeeded, stateOf(t, report, "quantify/b"))
	assert.Equal(t, job.Blocked, stateOf(t, report, "aggregate/a+b"))

	failed := report.Failed()
	require.Len(t, failed, 1)
	assert.ErrorIs(t, failed[0].Err, ErrJobExecutionFailed)
	assert.ErrorIs(t, failed[0].Err, boom)
	assert.Contains(t, failed[0].Err.Error(), "quantify/a")

	blocked := report.Blocked()
	require.Len(t, blocked, 1)
	assert.ErrorIs(t, blocked[0].Err, ErrBlocked)
	assert.Contains(t, blocked[0].Err.Error(), "quantify/a")

	assert.NotContains(t, rec.started(), "aggregate/a+b")
	assert.NotContains(t, runner.submitted, "aggregate/a+b")
}

func TestRun_FailureIsolation(t *testing.T) {
	g := buildGraph(t,
		quantify("a"), quantify("b"), quantify("c"), quantify("d"),
		aggregate("a+b", "a", "b"),
		aggregate("c+d", "c", "d"),
		aggregate("b+c", "b", "c"),
	)
	runner := &fakeRunner{outcomes: map[string]error{"quantify/a": errors.New("boom")}}

	report, err := New(g, runner, WithMaxConcurrent(2)).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, job.Blocked, stateOf(t, report, "aggregate/a+b"))
	assert.Equal(t, job.Succeeded, stateOf(t, report, "aggregate/c+d"))
	assert.Equal(t, job.Succeeded, stateOf(t, report, "aggregate/b+c"))
	assert.Equal(t, map[job.State]int{job.Succeeded: 5, job.Failed: 1, job.Blocked: 1}, report.Counts())
}

func TestRun_NeverExceedsConcurrencyCap(t *testing.T) {
	for _, limit := range []int{1, 2, 3, 8} {
		t.Run(fmt.Sprintf("cap=%d", limit), func(t *testing.T) {
			var jobs []*job.Job
			var names []string
			for i := 0; i < 10; i++ {
				name := fmt.Sprintf("s%02d", i)
				names = append(names, name)
				jobs = append(jobs, quantify(name))
			}
			jobs = append(jobs,
				aggregate("g1", names[:4]...),
				aggregate("g2", names[4:8]...),
				aggregate("g3", names...),
			)
			g := buildGraph(t, jobs...)
			runner := &fakeRunner{delay: 2 * time.Millisecond}
			rec := &recorder{}

			report, err := New(g, runner, WithMaxConcurrent(limit), WithObserver(rec)).Run(context.Background())
			require.NoError(t, err)
			require.True(t, report.Success())

			peak := 0
			for _, tr := range rec.all() {
				assert.LessOrEqual(t, tr.Running, limit)
				if tr.Running > peak {
					peak = tr.Running
				}
			}
			assert.Equal(t, limit, peak, "the cap should be reached with ten runnable jobs")
			assert.LessOrEqual(t, runner.maxInFlight, limit)
		})
	}
}

func TestRun_SerialWithCapOne(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"), quantify("c"), aggregate("a+c", "a", "c"))
	runner := &fakeRunner{delay: time.Millisecond}
	rec := &recorder{}

	report, err := New(g, runner, WithMaxConcurrent(1), WithObserver(rec)).Run(context.Background())
	require.NoError(t, err)
	require.True(t, report.Success())

	var current string
	for _, tr := range rec.all() {
		switch {
		case tr.To == job.Running:
			assert.Empty(t, current, "%s started while %s was running", tr.Key, current)
			current = tr.Key
		case tr.From == job.Running:
			assert.Equal(t, current, tr.Key)
			current = ""
		}
	}
	assert.Equal(t, []string{"quantify/a", "quantify/b", "quantify/c", "aggregate/a+c"}, rec.started())
}

func TestRun_AggregateStartsOnlyAfterAllPrerequisitesSucceed(t *testing.T) {
	g := buildGraph(t,
		quantify("a"), quantify("b"), quantify("c"),
		aggregate("a+b+c", "a", "b", "c"),
		aggregate("c", "c"),
	)
	runner := &fakeRunner{delay: time.Millisecond}
	rec := &recorder{}

	_, err := New(g, runner, WithMaxConcurrent(3), WithObserver(rec)).Run(context.Background())
	require.NoError(t, err)

	succeeded := map[string]bool{}
	for _, tr := range rec.all() {
		if tr.To == job.Succeeded {
			succeeded[tr.Key] = true
		}
		if tr.To == job.Running && tr.Kind == job.Aggregate {
			prereqs, err := g.PrerequisitesOf(tr.Key)
			require.NoError(t, err)
			for _, p := range prereqs {
				assert.True(t, succeeded[p], "%s started before %s succeeded", tr.Key, p)
			}
		}
	}
}

func TestRun_SubmitErrorFailsJob(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"), aggregate("a+b", "a", "b"), aggregate("b", "b"))
	refused := errors.New("queue full")
	runner := &fakeRunner{submitErrs: map[string]error{"quantify/a": refused}}

	report, err := New(g, runner, WithMaxConcurrent(1)).Run(context.Background())
	require.NoError(t, err)

	res, ok := report.Result("quantify/a")
	require.True(t, ok)
	assert.Equal(t, job.Failed, res.State)
	assert.ErrorIs(t, res.Err, refused)
	assert.Equal(t, job.Blocked, stateOf(t, report, "aggregate/a+b"))
	assert.Equal(t, job.Succeeded, stateOf(t, report, "aggregate/b"))
}

func TestRun_IgnoresStrayCompletions(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"))
	runner := newGatedRunner()

	result := runAsync(context.Background(), New(g, runner, WithMaxConcurrent(2)))
	assert.Equal(t, "quantify/a", runner.next(t).Key)
	assert.Equal(t, "quantify/b", runner.next(t).Key)

	// quantify/b stays running until the end so every send is consumed.
	runner.finish("quantify/unknown", nil)
	runner.finish("quantify/a", nil)
	runner.finish("quantify/a", errors.New("late duplicate"))
	runner.finish("quantify/b", nil)

	res := wait(t, result)
	require.NoError(t, res.err)
	assert.True(t, res.report.Success())
}

func TestRun_Cancelled(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"), aggregate("a+b", "a", "b"))
	runner := newGatedRunner()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := runAsync(ctx, New(g, runner))
	assert.Equal(t, "quantify/a", runner.next(t).Key)

	cancel()
	runner.expectNone(t)
	runner.finish("quantify/a", nil)

	res := wait(t, result)
	require.ErrorIs(t, res.err, context.Canceled)
	require.NotNil(t, res.report)
	assert.Equal(t, job.Succeeded, stateOf(t, res.report, "quantify/a"))
	assert.Equal(t, job.Blocked, stateOf(t, res.report, "quantify/b"))
	assert.Equal(t, job.Blocked, stateOf(t, res.report, "aggregate/a+b"))
	assert.False(t, res.report.Success())
}

func TestRun_CancelledBeforeStart(t *testing.T) {
	g := buildGraph(t, quantify("a"), aggregate("a", "a"))
	runner := &fakeRunner{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := New(g, runner).Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, job.Blocked, stateOf(t, report, "quantify/a"))
	assert.Equal(t, job.Blocked, stateOf(t, report, "aggregate/a"))
	assert.Empty(t, runner.submitted)
}

func TestRun_InvalidConcurrency(t *testing.T) {
	g := buildGraph(t, quantify("a"))
	_, err := New(g, &fakeRunner{}, WithMaxConcurrent(0)).Run(context.Background())
	assert.ErrorIs(t, err, ErrInvalidConcurrency)
}

func TestRun_EmptyGraph(t *testing.T) {
	report, err := New(dag.New(), &fakeRunner{}).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Success())
	assert.Empty(t, report.Results)
}

func TestReport_WriteSummary(t *testing.T) {
	g := buildGraph(t, quantify("a"), quantify("b"), aggregate("a+b", "a", "b"))
	runner := &fakeRunner{outcomes: map[string]error{"quantify/b": errors.New("exit status 2")}}

	report, err := New(g, runner, WithMaxConcurrent(2)).Run(context.Background())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, report.WriteSummary(&buf))
	out := buf.String()
	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "exit status 2")
	assert.Contains(t, out, "succeeded: 1")
	assert.Contains(t, out, "failed: 1")
	assert.Contains(t, out, "blocked: 1")
}
