package app

import (
	"fmt"

	"github.com/specialistvlad/phasegrid/internal/config"
	"github.com/specialistvlad/phasegrid/internal/fsutil"
	"github.com/specialistvlad/phasegrid/internal/hcl"
	"github.com/specialistvlad/phasegrid/internal/yamlconfig"
)

// NewLoader returns the project loader for format. "auto" (or empty) looks
// at the given paths: YAML files select the YAML loader, anything else the
// HCL loader.
func NewLoader(format string, paths []string) (config.Loader, error) {
	switch format {
	case "hcl":
		return hcl.NewLoader(), nil
	case "yaml":
		return yamlconfig.NewLoader(), nil
	case "", "auto":
		if detectYAML(paths) {
			return yamlconfig.NewLoader(), nil
		}
		return hcl.NewLoader(), nil
	default:
		return nil, fmt.Errorf("unknown project format %q", format)
	}
}

// detectYAML reports whether the paths hold YAML project files and no HCL
// ones. Unreadable paths are left for the loader to report.
func detectYAML(paths []string) bool {
	yaml, hclFiles := false, false
	for _, p := range paths {
		files, err := fsutil.FindFilesByExtension([]string{p}, ".yaml", ".yml", ".hcl")
		if err != nil {
			continue
		}
		for _, f := range files {
			if fsutil.HasExtension(f, ".hcl") {
				hclFiles = true
			} else {
				yaml = true
			}
		}
	}
	return yaml && !hclFiles
}
