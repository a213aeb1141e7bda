package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/specialistvlad/phasegrid/internal/config"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/fsutil"
	"github.com/zclconf/go-cty/cty"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL project loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Load parses every .hcl file under paths, then translates all of them
// against a shared evaluation context built from their locals blocks.
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "path_count", len(paths))

	files, err := fsutil.FindFilesByExtension(paths, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .hcl project files found in %v", paths)
	}
	logger.Debug("Discovered HCL files.", "count", len(files))

	parser := hclparse.NewParser()
	roots := make([]*fileRoot, 0, len(files))
	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		var root fileRoot
		if diags := gohcl.DecodeBody(hclFile.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		roots = append(roots, &root)
	}

	evalCtx, err := buildEvalContext(roots)
	if err != nil {
		return nil, err
	}

	project := &config.Project{}
	for i, root := range roots {
		if err := translateFile(ctx, evalCtx, root, project); err != nil {
			return nil, fmt.Errorf("in %s: %w", files[i], err)
		}
	}

	logger.Debug("HCL loading complete.", "project", project.Name, "phases", len(project.Configurations()))
	return project, nil
}

// buildEvalContext collects the attributes of every locals block into a
// single local object. Locals are evaluated without context, so they
// cannot refer to each other.
func buildEvalContext(roots []*fileRoot) (*hcl.EvalContext, error) {
	locals := make(map[string]cty.Value)
	for _, root := range roots {
		for _, block := range root.Locals {
			attrs, diags := block.Body.JustAttributes()
			if diags.HasErrors() {
				return nil, fmt.Errorf("invalid locals block: %w", diags)
			}
			for name, attr := range attrs {
				if _, dup := locals[name]; dup {
					return nil, fmt.Errorf("local %q is defined more than once", name)
				}
				val, diags := attr.Expr.Value(nil)
				if diags.HasErrors() {
					return nil, fmt.Errorf("failed to evaluate local %q: %w", name, diags)
				}
				locals[name] = val
			}
		}
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"local": cty.ObjectVal(locals)},
	}, nil
}
