package config

import (
	"fmt"

	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

// Project is a loaded project file. Every phase configuration is optional.
type Project struct {
	Name string
	// ID is the server-side project id, when the file pins one.
	ID string
	// Remote is the compiler service base URL, when the file pins one.
	Remote string
	// LinkPolicy is the grammar-link policy name, when the file pins one.
	LinkPolicy string

	Source     *rules.SourceInput
	Lexer      *rules.LexerRuleSet
	Parser     *rules.Grammar
	Analyser   *rules.AnalyserRuleSet
	Translator *rules.TranslatorRuleSet
	Optimiser  *rules.OptimiserRuleSet
}

// Set stores cfg in the slot of its phase. A phase may be defined only
// once across all files of a project.
func (p *Project) Set(cfg rules.Configuration) error {
	if _, ok := p.Configuration(cfg.Phase()); ok {
		return fmt.Errorf("%s is defined more than once", cfg.Phase())
	}
	switch c := cfg.(type) {
	case rules.SourceInput:
		p.Source = &c
	case rules.LexerRuleSet:
		p.Lexer = &c
	case rules.Grammar:
		p.Parser = &c
	case rules.AnalyserRuleSet:
		p.Analyser = &c
	case rules.TranslatorRuleSet:
		p.Translator = &c
	case rules.OptimiserRuleSet:
		p.Optimiser = &c
	default:
		return fmt.Errorf("unsupported configuration type %T", cfg)
	}
	return nil
}

// Configuration returns the configuration of ph, if the project defines one.
func (p *Project) Configuration(ph phase.Phase) (rules.Configuration, bool) {
	switch ph {
	case phase.Source:
		if p.Source != nil {
			return *p.Source, true
		}
	case phase.Lexer:
		if p.Lexer != nil {
			return *p.Lexer, true
		}
	case phase.Parser:
		if p.Parser != nil {
			return *p.Parser, true
		}
	case phase.Analyser:
		if p.Analyser != nil {
			return *p.Analyser, true
		}
	case phase.Translator:
		if p.Translator != nil {
			return *p.Translator, true
		}
	case phase.Optimiser:
		if p.Optimiser != nil {
			return *p.Optimiser, true
		}
	}
	return nil, false
}

// Configurations returns every defined configuration in phase order.
func (p *Project) Configurations() []rules.Configuration {
	var out []rules.Configuration
	for _, ph := range phase.All() {
		if cfg, ok := p.Configuration(ph); ok {
			out = append(out, cfg)
		}
	}
	return out
}

// Merge copies the identity fields and configurations of other into p.
// Identity fields already set on p win; a phase defined in both is an error.
func (p *Project) Merge(other *Project) error {
	if p.Name == "" {
		p.Name = other.Name
	}
	if p.ID == "" {
		p.ID = other.ID
	}
	if p.Remote == "" {
		p.Remote = other.Remote
	}
	if p.LinkPolicy == "" {
		p.LinkPolicy = other.LinkPolicy
	}
	for _, cfg := range other.Configurations() {
		if err := p.Set(cfg); err != nil {
			return err
		}
	}
	return nil
}
