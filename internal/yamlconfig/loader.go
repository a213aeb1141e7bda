// Package yamlconfig provides the YAML implementation of config.Loader.
//
// The document mirrors the HCL layout:
//
//	project:
//	  name: demo
//	  id: proj-123
//	source:
//	  code: "int x = 1;"
//	lexer:
//	  rules:
//	    - {type: num, pattern: '\d+'}
//	parser:
//	  variables: [S]
//	  terminals: [num]
//	  start: S
//	  rules:
//	    - {lhs: S, rhs: [num]}
package yamlconfig

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/specialistvlad/phasegrid/internal/config"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/fsutil"
	"github.com/specialistvlad/phasegrid/internal/rules"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML project loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

type projectHeader struct {
	Name       string `yaml:"name"`
	ID         string `yaml:"id"`
	Remote     string `yaml:"remote"`
	LinkPolicy string `yaml:"link_policy"`
}

type document struct {
	Project    *projectHeader           `yaml:"project"`
	Source     *rules.SourceInput       `yaml:"source"`
	Lexer      *rules.LexerRuleSet      `yaml:"lexer"`
	Parser     *rules.Grammar           `yaml:"parser"`
	Analyser   *rules.AnalyserRuleSet   `yaml:"analyser"`
	Translator *rules.TranslatorRuleSet `yaml:"translator"`
	Optimiser  *rules.OptimiserRuleSet  `yaml:"optimiser"`
}

// Load reads every .yaml or .yml file under paths. A file may hold several
// documents separated by "---".
func (l *Loader) Load(ctx context.Context, paths ...string) (*config.Project, error) {
	logger := ctxlog.FromContext(ctx)

	files, err := fsutil.FindFilesByExtension(paths, ".yaml", ".yml")
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no .yaml project files found in %v", paths)
	}
	logger.Debug("Discovered YAML files.", "count", len(files))

	project := &config.Project{}
	for _, file := range files {
		raw, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", file, err)
		}
		if err := decodeInto(raw, project); err != nil {
			return nil, fmt.Errorf("in %s: %w", file, err)
		}
	}
	logger.Debug("YAML loading complete.", "project", project.Name, "phases", len(project.Configurations()))
	return project, nil
}

// Parse decodes a single YAML stream into a project.
func Parse(raw []byte) (*config.Project, error) {
	project := &config.Project{}
	if err := decodeInto(raw, project); err != nil {
		return nil, err
	}
	return project, nil
}

func decodeInto(raw []byte, project *config.Project) error {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	for {
		var doc document
		err := dec.Decode(&doc)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to decode YAML: %w", err)
		}
		if err := merge(&doc, project); err != nil {
			return err
		}
	}
}

func merge(doc *document, project *config.Project) error {
	if h := doc.Project; h != nil {
		if project.Name != "" && h.Name != "" {
			return fmt.Errorf("project %q: project is already named %q", h.Name, project.Name)
		}
		part := &config.Project{Name: h.Name, ID: h.ID, Remote: h.Remote, LinkPolicy: h.LinkPolicy}
		if err := project.Merge(part); err != nil {
			return err
		}
	}
	var cfgs []rules.Configuration
	if doc.Source != nil {
		cfgs = append(cfgs, *doc.Source)
	}
	if doc.Lexer != nil {
		cfgs = append(cfgs, *doc.Lexer)
	}
	if doc.Parser != nil {
		cfgs = append(cfgs, *doc.Parser)
	}
	if doc.Analyser != nil {
		cfgs = append(cfgs, *doc.Analyser)
	}
	if doc.Translator != nil {
		cfgs = append(cfgs, *doc.Translator)
	}
	if doc.Optimiser != nil {
		cfgs = append(cfgs, *doc.Optimiser)
	}
	for _, cfg := range cfgs {
		if err := project.Set(cfg); err != nil {
			return err
		}
	}
	return nil
}
