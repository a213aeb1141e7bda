package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/specialistvlad/phasegrid/internal/phase"
)

// Configuration is the rule set a user authors for one phase.
type Configuration interface {
	// Phase reports which phase the configuration belongs to.
	Phase() phase.Phase
	// Clone returns a deep copy that shares no slices with the receiver.
	Clone() Configuration
}

// SourceInput is the program text fed into the pipeline.
type SourceInput struct {
	Code string `json:"code" yaml:"code"`
}

// TokenRule classifies lexemes matching Pattern as tokens of Type.
type TokenRule struct {
	Type    string `json:"type" yaml:"type"`
	Pattern string `json:"pattern" yaml:"pattern"`
}

// LexerRuleSet is the ordered list of token rules. Earlier rules win when
// two patterns match the same lexeme.
type LexerRuleSet struct {
	Rules []TokenRule `json:"rules" yaml:"rules"`
}

// Production is a single grammar rule lhs → rhs.
type Production struct {
	LHS string   `json:"lhs" yaml:"lhs"`
	RHS []string `json:"rhs" yaml:"rhs"`
}

// Grammar is the context-free grammar configured for the Parser. Variables
// and Terminals are sets but are kept as ordered slices so that a grammar
// serialises losslessly; Rules order matters for ambiguity resolution.
type Grammar struct {
	Variables []string     `json:"variables" yaml:"variables"`
	Terminals []string     `json:"terminals" yaml:"terminals"`
	Start     string       `json:"start" yaml:"start"`
	Rules     []Production `json:"rules" yaml:"rules"`
}

// ScopeRule opens a scope at Start and closes it at End.
type ScopeRule struct {
	Start string `json:"start" yaml:"start"`
	End   string `json:"end" yaml:"end"`
}

// TypeRule states that LHSType AssignmentOperator LHS-expression built from
// Operators over RHSType yields ResultType.
type TypeRule struct {
	ResultType         string   `json:"result_type" yaml:"result_type"`
	AssignmentOperator string   `json:"assignment_operator" yaml:"assignment_operator"`
	LHSType            string   `json:"lhs_type" yaml:"lhs_type"`
	Operators          []string `json:"operators" yaml:"operators"`
	RHSType            string   `json:"rhs_type" yaml:"rhs_type"`
}

// GrammarLink maps the Analyser's semantic roles onto grammar symbols
// produced by the Parser.
type GrammarLink struct {
	Variable   string `json:"variable" yaml:"variable"`
	Type       string `json:"type" yaml:"type"`
	Function   string `json:"function" yaml:"function"`
	Parameter  string `json:"parameter" yaml:"parameter"`
	Assignment string `json:"assignment" yaml:"assignment"`
	Operator   string `json:"operator" yaml:"operator"`
	Term       string `json:"term" yaml:"term"`
}

// AnalyserRuleSet is the Analyser phase configuration.
type AnalyserRuleSet struct {
	ScopeRules  []ScopeRule `json:"scope_rules" yaml:"scope_rules"`
	TypeRules   []TypeRule  `json:"type_rules" yaml:"type_rules"`
	GrammarLink GrammarLink `json:"grammar_link" yaml:"grammar_link"`
}

// Template renders grammar symbols of a semantic role into target code.
type Template struct {
	Role     string `json:"role" yaml:"role"`
	Template string `json:"template" yaml:"template"`
}

// TranslatorRuleSet is the Translator phase configuration.
type TranslatorRuleSet struct {
	Target    string     `json:"target" yaml:"target"`
	Templates []Template `json:"templates" yaml:"templates"`
}

// OptimiserRuleSet lists the optimisation passes to run, in order.
type OptimiserRuleSet struct {
	Passes []string `json:"passes" yaml:"passes"`
}

func (SourceInput) Phase() phase.Phase       { return phase.Source }
func (LexerRuleSet) Phase() phase.Phase      { return phase.Lexer }
func (Grammar) Phase() phase.Phase           { return phase.Parser }
func (AnalyserRuleSet) Phase() phase.Phase   { return phase.Analyser }
func (TranslatorRuleSet) Phase() phase.Phase { return phase.Translator }
func (OptimiserRuleSet) Phase() phase.Phase  { return phase.Optimiser }

func (s SourceInput) Clone() Configuration { return s }

func (l LexerRuleSet) Clone() Configuration {
	return LexerRuleSet{Rules: slices.Clone(l.Rules)}
}

func (g Grammar) Clone() Configuration {
	out := Grammar{
		Variables: slices.Clone(g.Variables),
		Terminals: slices.Clone(g.Terminals),
		Start:     g.Start,
	}
	if g.Rules != nil {
		out.Rules = make([]Production, len(g.Rules))
		for i, r := range g.Rules {
			out.Rules[i] = Production{LHS: r.LHS, RHS: slices.Clone(r.RHS)}
		}
	}
	return out
}

func (a AnalyserRuleSet) Clone() Configuration {
	out := AnalyserRuleSet{
		ScopeRules:  slices.Clone(a.ScopeRules),
		GrammarLink: a.GrammarLink,
	}
	if a.TypeRules != nil {
		out.TypeRules = make([]TypeRule, len(a.TypeRules))
		for i, r := range a.TypeRules {
			r.Operators = slices.Clone(r.Operators)
			out.TypeRules[i] = r
		}
	}
	return out
}

func (t TranslatorRuleSet) Clone() Configuration {
	return TranslatorRuleSet{Target: t.Target, Templates: slices.Clone(t.Templates)}
}

func (o OptimiserRuleSet) Clone() Configuration {
	return OptimiserRuleSet{Passes: slices.Clone(o.Passes)}
}

// DefaultGrammarLink holds the symbol names assumed when a link is left empty.
var DefaultGrammarLink = GrammarLink{
	Variable:   "variable",
	Type:       "type",
	Function:   "function",
	Parameter:  "parameter",
	Assignment: "assignment",
	Operator:   "operator",
	Term:       "term",
}

// roles returns the link fields paired with their role names, in a fixed order.
func (l GrammarLink) roles() [][2]string {
	return [][2]string{
		{"variable", l.Variable},
		{"type", l.Type},
		{"function", l.Function},
		{"parameter", l.Parameter},
		{"assignment", l.Assignment},
		{"operator", l.Operator},
		{"term", l.Term},
	}
}

// IsEmpty reports whether no role has been linked.
func (l GrammarLink) IsEmpty() bool {
	return l == GrammarLink{}
}

// WithDefaults fills every empty role from DefaultGrammarLink.
func (l GrammarLink) WithDefaults() GrammarLink {
	fill := func(v, def string) string {
		if v == "" {
			return def
		}
		return v
	}
	d := DefaultGrammarLink
	return GrammarLink{
		Variable:   fill(l.Variable, d.Variable),
		Type:       fill(l.Type, d.Type),
		Function:   fill(l.Function, d.Function),
		Parameter:  fill(l.Parameter, d.Parameter),
		Assignment: fill(l.Assignment, d.Assignment),
		Operator:   fill(l.Operator, d.Operator),
		Term:       fill(l.Term, d.Term),
	}
}

// ErrPhaseMismatch is returned when a configuration is used for a phase it
// does not belong to.
var ErrPhaseMismatch = errors.New("configuration does not belong to phase")

type envelope struct {
	Phase phase.Phase     `json:"phase"`
	Data  json.RawMessage `json:"data"`
}

// Encode serialises a configuration together with its phase.
func Encode(cfg Configuration) ([]byte, error) {
	if cfg == nil {
		return nil, errors.New("cannot encode nil configuration")
	}
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s configuration: %w", cfg.Phase(), err)
	}
	return json.Marshal(envelope{Phase: cfg.Phase(), Data: data})
}

// Decode is the inverse of Encode.
func Decode(raw []byte) (Configuration, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration envelope: %w", err)
	}
	return DecodeFor(env.Phase, env.Data)
}

// DecodeFor decodes a bare configuration payload for the given phase.
func DecodeFor(p phase.Phase, data []byte) (Configuration, error) {
	var (
		cfg Configuration
		err error
	)
	switch p {
	case phase.Source:
		var v SourceInput
		err = json.Unmarshal(data, &v)
		cfg = v
	case phase.Lexer:
		var v LexerRuleSet
		err = json.Unmarshal(data, &v)
		cfg = v
	case phase.Parser:
		var v Grammar
		err = json.Unmarshal(data, &v)
		cfg = v
	case phase.Analyser:
		var v AnalyserRuleSet
		err = json.Unmarshal(data, &v)
		cfg = v
	case phase.Translator:
		var v TranslatorRuleSet
		err = json.Unmarshal(data, &v)
		cfg = v
	case phase.Optimiser:
		var v OptimiserRuleSet
		err = json.Unmarshal(data, &v)
		cfg = v
	default:
		return nil, fmt.Errorf("no configuration type for %s", p)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s configuration: %w", p, err)
	}
	return cfg, nil
}
