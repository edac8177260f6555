package hcl

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/assetgrid/internal/config"
	"github.com/vk/assetgrid/internal/ctxlog"
	"github.com/vk/assetgrid/internal/fsutil"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct {
	converter *Converter
}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{converter: NewConverter()}
}

// NewLoaderWithConverter creates a loader handing out the given converter,
// e.g. one with a fixed clock for tests.
func NewLoaderWithConverter(c *Converter) *Loader {
	return &Loader{converter: c}
}

// Load parses every Gridfile found under paths and merges them into a single
// model. A path may be a file or a directory searched recursively for .hcl
// files.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	if len(hclFiles) == 0 {
		return nil, nil, fmt.Errorf("no Gridfile found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	model := config.NewModel()
	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root fileRoot
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		if root.Package != nil {
			if model.PackagePath != "" && model.PackagePath != *root.Package {
				return nil, nil, fmt.Errorf("%s: package already set to %q", file, model.PackagePath)
			}
			model.PackagePath = *root.Package
		}

		for _, tb := range root.Tasks {
			task, err := l.translateTask(ctx, tb)
			if err != nil {
				return nil, nil, err
			}
			if prev, ok := model.Tasks[task.Name]; ok {
				if err := mergeTask(prev, task); err != nil {
					return nil, nil, err
				}
				continue
			}
			model.Tasks[task.Name] = task
			model.TaskOrder = append(model.TaskOrder, task.Name)
		}

		for _, ab := range root.Aliases {
			if prev, dup := model.Aliases[ab.Name]; dup {
				return nil, nil, fmt.Errorf("%s: duplicate alias %q, first declared at %s", ab.DeclRange, ab.Name, prev.DeclRange)
			}
			model.Aliases[ab.Name] = l.translateAlias(ab)
		}
		logger.Debug("Successfully loaded definitions from HCL file", "file", file)
	}

	logger.Debug("HCL loading complete.", "tasks", len(model.Tasks), "aliases", len(model.Aliases), "package", model.PackagePath)
	return model, l.converter, nil
}

// findAllHCLFiles walks all given paths and returns a flat list of all .hcl
// files found. Every path must exist.
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

		if !info.IsDir() {
			add(path)
			continue
		}

		found, err := fsutil.FindFilesByExtension(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(filepath.Clean(f))
		}
	}
	return allFiles, nil
}
