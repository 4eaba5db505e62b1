package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/cellgrid/internal/config"
	"github.com/specialistvlad/cellgrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load discovers every .hcl file under paths, decodes and merges them. The
// merged configuration must contain exactly one run block and at most one
// tool, runner and notify block.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		return nil, fmt.Errorf("%w in %v", config.ErrNoConfigFiles, paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()
	evalCtx := newEvalContext()
	var merged fileRoot
	origin := map[string]string{}

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, evalCtx, &root)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if err := mergeBlocks(&merged, &root, file, origin); err != nil {
			return nil, err
		}
	}

	if len(merged.Runs) == 0 {
		return nil, config.ErrNoRunBlock
	}

	model := translate(&merged)
	model.ApplyDefaults()
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger.Debug("HCL loading complete.",
		"samples", len(model.Run.Samples),
		"groups", len(model.Run.Groups),
		"runner", model.Runner.Type,
		"notify", model.Notify != nil,
	)
	return model, nil
}

// mergeBlocks appends the blocks of root to merged, rejecting any singleton
// block that was already defined by an earlier file.
func mergeBlocks(merged, root *fileRoot, file string, origin map[string]string) error {
	counts := []struct {
		name string
		n    int
	}{
		{"run", len(root.Runs)},
		{"tool", len(root.Tools)},
		{"runner", len(root.Runners)},
		{"notify", len(root.Notify)},
	}
	for _, c := range counts {
		if c.n == 0 {
			continue
		}
		if prev, seen := origin[c.name]; seen || c.n > 1 {
			if !seen {
				prev = file
			}
			return fmt.Errorf("%s block in %s (first defined in %s): %w", c.name, file, prev, config.ErrDuplicateBlock)
		}
		origin[c.name] = file
	}

	merged.Runs = append(merged.Runs, root.Runs...)
	merged.Tools = append(merged.Tools, root.Tools...)
	merged.Runners = append(merged.Runners, root.Runners...)
	merged.Notify = append(merged.Notify, root.Notify...)
	return nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found, in lexical order per path.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	var allFiles []string
	seen := make(map[string]struct{})
	add := func(p string) {
		if _, wasSeen := seen[p]; !wasSeen {
			allFiles = append(allFiles, p)
			seen[p] = struct{}{}
		}
	}

	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil {
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if info.IsDir() {
			err := filepath.Walk(path, func(p string, info os.FileInfo, err error) error {
				if err != nil {
					return err
				}
				if !info.IsDir() && filepath.Ext(p) == ".hcl" {
					add(p)
				}
				return nil
			})
			if err != nil {
				return nil, err
			}
		} else if filepath.Ext(path) == ".hcl" {
			add(path)
		}
	}
	return allFiles, nil
}
