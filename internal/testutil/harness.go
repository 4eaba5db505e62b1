package testutil

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/specialistvlad/cellgrid/internal/app"
	"github.com/specialistvlad/cellgrid/internal/hcl"
	"github.com/stretchr/testify/require"
)

// RootPlaceholder is replaced with the harness's temporary root directory
// in every file written by RunApp.
const RootPlaceholder = "{{root}}"

// SafeBuffer is a thread-safe buffer for capturing log output in tests.
type SafeBuffer struct {
	b  bytes.Buffer
	mu sync.Mutex
}

// Write implements the io.Writer interface for SafeBuffer.
func (b *SafeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.Write(p)
}

// String implements the fmt.Stringer interface for SafeBuffer.
func (b *SafeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.b.String()
}

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	// Root is the temporary directory the files were written to.
	Root   string
	Output string
	Err    error
	App    *app.App
}

// RunApp provides a standardized harness for running the whole application
// using a default background context.
func RunApp(t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()
	return RunAppWithContext(context.Background(), t, files, cfg)
}

// RunAppWithContext writes files under a fresh temporary root and runs the
// application against them. Names ending in ".sh" are made executable.
// When cfg.ConfigPaths is empty, "<root>/config" is used.
func RunAppWithContext(ctx context.Context, t *testing.T, files map[string]string, cfg app.Config) *HarnessResult {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		mode := os.FileMode(0o644)
		if strings.HasSuffix(name, ".sh") {
			mode = 0o755
		}
		content = strings.ReplaceAll(content, RootPlaceholder, root)
		require.NoError(t, os.WriteFile(path, []byte(content), mode))
	}

	if len(cfg.ConfigPaths) == 0 {
		cfg.ConfigPaths = []string{filepath.Join(root, "config")}
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "debug"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}

	out := &SafeBuffer{}
	testApp := app.NewApp(out, &cfg, hcl.NewLoader())
	err := testApp.Run(ctx)

	if os.Getenv("CELLGRID_TEST_LOGS") == "true" {
		t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), out.String())
	}

	return &HarnessResult{
		Root:   root,
		Output: out.String(),
		Err:    err,
		App:    testApp,
	}
}

// FakeTool returns a shell script standing in for the vendor binary. It
// exits 1 when its arguments contain "--id=<id>" for any of failing, and
// 0 otherwise.
func FakeTool(failing ...string) string {
	return `#!/bin/sh
for id in ` + strings.Join(failing, " ") + `; do
  case " $* " in
    *" --id=$id "*) echo "failing $id" >&2; exit 1 ;;
  esac
done
echo "ok $*"
`
}
