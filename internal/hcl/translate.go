// This file translates the HCL schema structs into the phase
// configurations of the rules package.

package hcl

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/specialistvlad/phasegrid/internal/config"
	"github.com/specialistvlad/phasegrid/internal/ctxlog"
	"github.com/specialistvlad/phasegrid/internal/rules"
)

func translateFile(ctx context.Context, evalCtx *hcl.EvalContext, root *fileRoot, project *config.Project) error {
	for _, p := range root.Projects {
		if project.Name != "" {
			return fmt.Errorf("project block %q: project is already named %q", p.Name, project.Name)
		}
		project.Name = p.Name
		project.ID = p.ID
		project.Remote = p.Remote
		project.LinkPolicy = p.LinkPolicy
	}

	var cfgs []rules.Configuration
	for _, b := range root.Sources {
		code, err := evalString(ctx, evalCtx, b.Code, "source.code")
		if err != nil {
			return err
		}
		cfgs = append(cfgs, rules.SourceInput{Code: code})
	}
	for _, b := range root.Lexers {
		cfgs = append(cfgs, translateLexer(b))
	}
	for _, b := range root.Parsers {
		g, err := translateParser(ctx, evalCtx, b)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, g)
	}
	for _, b := range root.Analysers {
		a, err := translateAnalyser(ctx, evalCtx, b)
		if err != nil {
			return err
		}
		cfgs = append(cfgs, a)
	}
	for _, b := range root.Translators {
		cfgs = append(cfgs, translateTranslator(b))
	}
	for _, b := range root.Optimisers {
		passes, err := evalStrings(ctx, evalCtx, b.Passes, "optimiser.passes")
		if err != nil {
			return err
		}
		cfgs = append(cfgs, rules.OptimiserRuleSet{Passes: passes})
	}

	for _, cfg := range cfgs {
		ctxlog.FromContext(ctx).Debug("Translated phase block.", "phase", cfg.Phase().String())
		if err := project.Set(cfg); err != nil {
			return err
		}
	}
	return nil
}

func translateLexer(b *lexerBlock) rules.LexerRuleSet {
	out := rules.LexerRuleSet{Rules: make([]rules.TokenRule, 0, len(b.Tokens))}
	for _, t := range b.Tokens {
		out.Rules = append(out.Rules, rules.TokenRule{Type: t.Type, Pattern: t.Pattern})
	}
	return out
}

func translateParser(ctx context.Context, evalCtx *hcl.EvalContext, b *parserBlock) (rules.Grammar, error) {
	var (
		g   = rules.Grammar{Start: b.Start, Rules: make([]rules.Production, 0, len(b.Rules))}
		err error
	)
	if g.Variables, err = evalStrings(ctx, evalCtx, b.Variables, "parser.variables"); err != nil {
		return g, err
	}
	if g.Terminals, err = evalStrings(ctx, evalCtx, b.Terminals, "parser.terminals"); err != nil {
		return g, err
	}
	for i, r := range b.Rules {
		rhs, err := evalStrings(ctx, evalCtx, r.RHS, fmt.Sprintf("parser.rule[%d].rhs", i))
		if err != nil {
			return g, err
		}
		g.Rules = append(g.Rules, rules.Production{LHS: r.LHS, RHS: rhs})
	}
	return g, nil
}

func translateAnalyser(ctx context.Context, evalCtx *hcl.EvalContext, b *analyserBlock) (rules.AnalyserRuleSet, error) {
	var out rules.AnalyserRuleSet
	for _, s := range b.Scopes {
		out.ScopeRules = append(out.ScopeRules, rules.ScopeRule{Start: s.Start, End: s.End})
	}
	for i, t := range b.Types {
		ops, err := evalStrings(ctx, evalCtx, t.Operators, fmt.Sprintf("analyser.type_rule[%d].operators", i))
		if err != nil {
			return out, err
		}
		out.TypeRules = append(out.TypeRules, rules.TypeRule{
			ResultType:         t.Result,
			AssignmentOperator: t.Assignment,
			LHSType:            t.LHS,
			Operators:          ops,
			RHSType:            t.RHS,
		})
	}
	if l := b.Link; l != nil {
		out.GrammarLink = rules.GrammarLink{
			Variable:   l.Variable,
			Type:       l.Type,
			Function:   l.Function,
			Parameter:  l.Parameter,
			Assignment: l.Assignment,
			Operator:   l.Operator,
			Term:       l.Term,
		}
	}
	return out, nil
}

func translateTranslator(b *translatorBlock) rules.TranslatorRuleSet {
	out := rules.TranslatorRuleSet{Target: b.Target}
	for _, t := range b.Templates {
		out.Templates = append(out.Templates, rules.Template{Role: t.Role, Template: t.Template})
	}
	return out
}
