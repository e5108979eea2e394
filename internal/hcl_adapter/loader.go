package hcl_adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/dagflow/internal/config"
	"github.com/vk/dagflow/internal/ctxlog"
	"github.com/vk/dagflow/internal/fsutil"
	"github.com/vk/dagflow/internal/schema"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL configuration loader.
func NewLoader() *Loader {
	return &Loader{}
}

// Load parses every .hcl file under paths. Any file may hold tool manifests,
// pipeline blocks, or both; pipeline blocks from all files are merged into a
// single pipeline.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Model, config.Converter, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	model := config.NewModel()

	hclFiles, err := l.findAllHCLFiles(paths)
	if err != nil {
		return nil, nil, err
	}
	logger.Debug("Discovered HCL files.", "count", len(hclFiles))

	parser := hclparse.NewParser()

	for _, file := range hclFiles {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}

		var root schema.File
		diags = gohcl.DecodeBody(hclFile.Body, nil, &root)
		if diags.HasErrors() {
			return nil, nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}

		for _, tool := range root.Tools {
			def, err := l.translateTool(ctx, tool)
			if err != nil {
				return nil, nil, fmt.Errorf("%s: %w", file, err)
			}
			if _, dup := model.Tools[def.Name]; dup {
				return nil, nil, fmt.Errorf("%s: tool %q is defined more than once", file, def.Name)
			}
			model.Tools[def.Name] = def
		}

		if root.Pipeline == nil && len(root.Inputs) == 0 && len(root.Nodes) == 0 && len(root.Outputs) == 0 {
			continue
		}
		if model.Pipeline == nil {
			model.Pipeline = &config.Pipeline{Name: pipelineNameFromFile(file)}
		}
		if root.Pipeline != nil {
			model.Pipeline.Name = root.Pipeline.Name
		}
		if err := l.translatePipeline(ctx, &root, model.Pipeline); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", file, err)
		}
	}

	if model.Pipeline != nil {
		logger.Debug("HCL loading complete.", "tools", len(model.Tools), "pipeline", model.Pipeline.Name,
			"inputs", len(model.Pipeline.Inputs), "nodes", len(model.Pipeline.Nodes), "outputs", len(model.Pipeline.Outputs))
	} else {
		logger.Debug("HCL loading complete.", "tools", len(model.Tools))
	}
	return model, NewConverter(), nil
}

// findAllHCLFiles walks all given paths and returns a sorted, de-duplicated
// list of the .hcl files found.
func (l *Loader) findAllHCLFiles(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var allFiles []string
	add := func(p string) {
		if _, ok := seen[p]; !ok {
			seen[p] = struct{}{}
			allFiles = append(allFiles, p)
		}
	}

	for _, path := range paths {
		if path == "" {
			continue
		}
		info, err := os.Stat(path)
		if err != nil {
			if os.IsNotExist(err) {
				continue // A configured path that does not exist is not an error.
			}
			return nil, fmt.Errorf("error accessing path %s: %w", path, err)
		}

		if !info.IsDir() {
			if filepath.Ext(path) == ".hcl" {
				add(path)
			}
			continue
		}
		found, err := fsutil.FindFiles(path, ".hcl")
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f)
		}
	}
	sort.Strings(allFiles)
	return allFiles, nil
}

func pipelineNameFromFile(file string) string {
	return strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
}
