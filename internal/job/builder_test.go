package job

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/group"
	"github.com/specialistvlad/cellgrid/internal/sample"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testParams(t *testing.T) Params {
	t.Helper()
	return Params{
		OutputRoot:        t.TempDir(),
		Project:           "PRJ01",
		Reference:         t.TempDir(),
		MaxConcurrentJobs: 3,
	}
}

func testSample(id string, files ...string) *sample.Sample {
	s := &sample.Sample{ID: id}
	for _, f := range files {
		s.Inputs = append(s.Inputs, sample.InputFile{Path: f, Name: filepath.Base(f), SamplePrefix: id})
	}
	return s
}

func TestBuildQuantify(t *testing.T) {
	p := testParams(t)
	s := testSample("a", "/raw/a_L001_R1.fastq.gz", "/raw/a_L001_R2.fastq.gz")

	j, err := BuildQuantify(s, p)
	require.NoError(t, err)

	outDir := filepath.Join(p.OutputRoot, "results", "a")
	assert.Equal(t, Quantify, j.Kind)
	assert.Equal(t, "quantify/a", j.Key)
	assert.Equal(t, "a", j.Name)
	assert.Empty(t, j.Prerequisites)
	assert.Equal(t, Pending, j.State())
	assert.Equal(t, "quantify", j.Invocation.Command)
	assert.Equal(t, outDir, j.Invocation.OutputDir)
	assert.Equal(t, filepath.Join(outDir, "outs", "molecule_info.h5"), j.Invocation.DoneMarker)
	assert.Equal(t, filepath.Join(p.OutputRoot, "logs", "quantify", "a.log"), j.Invocation.LogPath)
	assert.Equal(t, []string{
		"cellranger", "count",
		"--id=a",
		"--description=PRJ01",
		"--transcriptome=" + p.Reference,
		"--fastqs=/raw/a_L001_R1.fastq.gz,/raw/a_L001_R2.fastq.gz",
		"--output-dir=" + outDir,
		"--maxjobs=3",
	}, j.Invocation.Argv)
}

func TestBuildQuantify_StableAcrossCalls(t *testing.T) {
	p := testParams(t)
	s := testSample("a", "/raw/a_R1.fq")

	first, err := BuildQuantify(s, p)
	require.NoError(t, err)
	second, err := BuildQuantify(s, p)
	require.NoError(t, err)

	assert.Equal(t, first.Key, second.Key)
	assert.Equal(t, first.Invocation, second.Invocation)
}

func TestBuildQuantify_CustomTool(t *testing.T) {
	p := testParams(t)
	p.Tool = Tool{Binary: "/opt/cr/bin/cellranger", ExtraArgs: []string{"--localmem=64"}}

	j, err := BuildQuantify(testSample("a", "/raw/a_R1.fq"), p)
	require.NoError(t, err)
	assert.Equal(t, "/opt/cr/bin/cellranger", j.Invocation.Argv[0])
	assert.Equal(t, "count", j.Invocation.Argv[1])
	assert.Equal(t, "--localmem=64", j.Invocation.Argv[len(j.Invocation.Argv)-1])
}

func TestBuildQuantify_InvalidReference(t *testing.T) {
	s := testSample("a", "/raw/a_R1.fq")

	t.Run("missing", func(t *testing.T) {
		p := testParams(t)
		p.Reference = filepath.Join(p.Reference, "does-not-exist")
		_, err := BuildQuantify(s, p)
		require.ErrorIs(t, err, ErrInvalidReference)
		assert.Contains(t, err.Error(), "does-not-exist")
	})

	t.Run("file instead of dir", func(t *testing.T) {
		p := testParams(t)
		file := filepath.Join(p.Reference, "genome.fa")
		require.NoError(t, os.WriteFile(file, []byte(">chr1\n"), 0o644))
		p.Reference = file
		_, err := BuildQuantify(s, p)
		assert.ErrorIs(t, err, ErrInvalidReference)
	})

	t.Run("empty", func(t *testing.T) {
		p := testParams(t)
		p.Reference = ""
		_, err := BuildQuantify(s, p)
		assert.ErrorIs(t, err, ErrInvalidReference)
	})
}

func TestBuildQuantify_NoInputs(t *testing.T) {
	_, err := BuildQuantify(testSample("a"), testParams(t))
	assert.ErrorIs(t, err, sample.ErrNoInputsFound)
}

func buildSampleJobs(t *testing.T, p Params, ids ...string) map[string]*Job {
	t.Helper()
	jobs := map[string]*Job{}
	for _, id := range ids {
		j, err := BuildQuantify(testSample(id, "/raw/"+id+"_R1.fq"), p)
		require.NoError(t, err)
		jobs[id] = j
	}
	return jobs
}

func TestBuildAggregate(t *testing.T) {
	p := testParams(t)
	jobs := buildSampleJobs(t, p, "a", "b")
	g := &group.Group{Name: "b+a", Index: 0, Members: []string{"b", "a"}}

	j, m, err := BuildAggregate(g, jobs, p)
	require.NoError(t, err)

	assert.Equal(t, Aggregate, j.Kind)
	assert.Equal(t, "aggregate/b+a", j.Key)
	assert.Equal(t, []string{"quantify/b", "quantify/a"}, j.Prerequisites)

	require.Len(t, m.Rows, 2)
	assert.Equal(t, "b", m.Rows[0].SampleID)
	assert.Equal(t, jobs["b"].Invocation.DoneMarker, m.Rows[0].MoleculeH5)
	assert.Equal(t, "a", m.Rows[1].SampleID)
	assert.Equal(t, filepath.Join(p.OutputRoot, "manifests", "b+a.csv"), m.Path)

	assert.Equal(t, []string{m.Path}, j.Inputs)
	assert.Contains(t, j.Invocation.Argv, "--csv="+m.Path)
	assert.Contains(t, j.Invocation.Argv, "--maxjobs=3")
	assert.Equal(t, "aggr", j.Invocation.Argv[1])
	assert.Equal(t, filepath.Join(p.OutputRoot, "aggregates", "b+a"), j.Invocation.OutputDir)
}

func TestBuildAggregate_MissingPrerequisite(t *testing.T) {
	p := testParams(t)
	jobs := buildSampleJobs(t, p, "a")
	g := &group.Group{Name: "a+b", Index: 4, Members: []string{"a", "b"}}

	_, _, err := BuildAggregate(g, jobs, p)
	require.ErrorIs(t, err, ErrMissingPrerequisiteJob)
	assert.Contains(t, err.Error(), `group 4 (a+b): sample "b"`)
}

func TestBuildAggregate_RejectsNonQuantifyPrerequisite(t *testing.T) {
	p := testParams(t)
	jobs := buildSampleJobs(t, p, "a")
	jobs["b"] = &Job{Kind: Aggregate, Key: "aggregate/b"}
	g := &group.Group{Name: "a+b", Members: []string{"a", "b"}}

	_, _, err := BuildAggregate(g, jobs, p)
	assert.ErrorIs(t, err, ErrMissingPrerequisiteJob)
}

func TestManifest(t *testing.T) {
	dir := t.TempDir()
	m := &Manifest{
		Path: filepath.Join(dir, "manifests", "a+b.csv"),
		Rows: []ManifestRow{
			{SampleID: "a", MoleculeH5: "/out/results/a/outs/molecule_info.h5"},
			{SampleID: "b", MoleculeH5: "/out/results/b/outs/molecule_info.h5"},
		},
	}
	want := "sample_id,molecule_h5\n" +
		"a,/out/results/a/outs/molecule_info.h5\n" +
		"b,/out/results/b/outs/molecule_info.h5\n"

	var buf bytes.Buffer
	require.NoError(t, m.Encode(&buf))
	assert.Equal(t, want, buf.String())

	require.NoError(t, m.WriteFile())
	got, err := os.ReadFile(m.Path)
	require.NoError(t, err)
	assert.Equal(t, want, string(got))

	// Rewriting is idempotent and leaves no temp files behind.
	require.NoError(t, m.WriteFile())
	entries, err := os.ReadDir(filepath.Dir(m.Path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
