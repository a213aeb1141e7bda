package rules

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/specialistvlad/phasegrid/internal/artifact"
)

// LinkPolicy decides how the Analyser validator treats empty grammar links.
type LinkPolicy int

const (
	// PermissiveLinks accepts empty links; the remote service substitutes
	// DefaultGrammarLink for them.
	PermissiveLinks LinkPolicy = iota
	// StrictLinks requires every semantic role to be linked.
	StrictLinks
)

func (p LinkPolicy) String() string {
	if p == StrictLinks {
		return "strict"
	}
	return "permissive"
}

// ParseLinkPolicy converts "permissive" or "strict" to a LinkPolicy.
func ParseLinkPolicy(s string) (LinkPolicy, error) {
	switch strings.ToLower(s) {
	case "", "permissive":
		return PermissiveLinks, nil
	case "strict":
		return StrictLinks, nil
	}
	return PermissiveLinks, fmt.Errorf("unknown grammar link policy %q", s)
}

// Options tune validation.
type Options struct {
	LinkPolicy LinkPolicy
}

// Option mutates Options.
type Option func(*Options)

// WithLinkPolicy selects how empty grammar links are treated.
func WithLinkPolicy(p LinkPolicy) Option {
	return func(o *Options) { o.LinkPolicy = p }
}

// Validate dispatches to the validator for the configuration's phase.
// Phases without hard structural rules always validate.
func Validate(cfg Configuration, opts ...Option) error {
	switch c := cfg.(type) {
	case SourceInput:
		return ValidateSource(c)
	case LexerRuleSet:
		return ValidateLexerRules(c)
	case Grammar:
		return ValidateGrammar(c)
	case AnalyserRuleSet:
		return ValidateAnalyserRules(c, opts...)
	case TranslatorRuleSet, OptimiserRuleSet:
		return nil
	case nil:
		return fmt.Errorf("no configuration to validate")
	}
	return fmt.Errorf("unsupported configuration type %T", cfg)
}

// ValidateSource rejects blank source code.
func ValidateSource(s SourceInput) error {
	if strings.TrimSpace(s.Code) == "" {
		return &Violation{Kind: EmptySource}
	}
	return nil
}

// ValidateLexerRules requires at least one rule, a type on every rule and a
// pattern that compiles.
func ValidateLexerRules(l LexerRuleSet) error {
	if len(l.Rules) == 0 {
		return &Violation{Kind: EmptyLexerRules}
	}
	for i, r := range l.Rules {
		if r.Type == "" {
			return &Violation{Kind: InvalidTokenRule, Symbol: fmt.Sprintf("#%d", i+1), Detail: "token type is empty"}
		}
		name := r.Type
		if r.Pattern == "" {
			return &Violation{Kind: InvalidTokenRule, Symbol: name, Detail: "pattern is empty"}
		}
		if _, err := regexp.Compile(r.Pattern); err != nil {
			return &Violation{Kind: InvalidTokenRule, Symbol: name, Detail: err.Error()}
		}
	}
	return nil
}

// ValidateGrammar checks g in the documented order and reports the first
// failing check.
func ValidateGrammar(g Grammar) error {
	if len(g.Rules) == 0 {
		return &Violation{Kind: EmptyGrammar}
	}

	variables := toSet(g.Variables)
	if _, ok := variables[g.Start]; !ok {
		return &Violation{Kind: StartSymbolNotInVariables, Symbol: g.Start}
	}

	for _, r := range g.Rules {
		if len(r.RHS) == 0 {
			return &Violation{Kind: EmptyProduction, LHS: r.LHS}
		}
	}

	terminals := toSet(g.Terminals)
	for _, r := range g.Rules {
		for _, sym := range r.RHS {
			_, isVar := variables[sym]
			_, isTerm := terminals[sym]
			if !isVar && !isTerm {
				return &Violation{Kind: UndefinedSymbol, Symbol: sym, LHS: r.LHS}
			}
		}
	}
	return nil
}

// ValidateAnalyserRules requires one complete scope rule and one complete
// type rule. Grammar links are only enforced under StrictLinks.
func ValidateAnalyserRules(r AnalyserRuleSet, opts ...Option) error {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}

	hasScope := false
	for _, s := range r.ScopeRules {
		if s.Start != "" && s.End != "" {
			hasScope = true
			break
		}
	}
	if !hasScope {
		return &Violation{Kind: IncompleteScopeRule}
	}

	hasType := false
	for _, t := range r.TypeRules {
		if t.ResultType != "" && t.AssignmentOperator != "" && t.LHSType != "" {
			hasType = true
			break
		}
	}
	if !hasType {
		return &Violation{Kind: IncompleteTypeRule}
	}

	if o.LinkPolicy == StrictLinks {
		for _, role := range r.GrammarLink.roles() {
			if role[1] == "" {
				return &Violation{Kind: IncompleteGrammarLink, Symbol: role[0]}
			}
		}
	}
	return nil
}

// MissingTokenTypes lists grammar terminals with no token of the same type
// in ts. It is advisory: a non-empty result does not block submission.
func MissingTokenTypes(g Grammar, ts artifact.TokenSet) []string {
	have := toSet(ts.TokenTypes())
	var missing []string
	for _, term := range g.Terminals {
		if _, ok := have[term]; !ok {
			missing = append(missing, term)
		}
	}
	return missing
}

func toSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[it] = struct{}{}
	}
	return set
}
