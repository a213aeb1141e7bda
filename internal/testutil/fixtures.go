package testutil

import "github.com/specialistvlad/phasegrid/internal/rules"

// SourceCode is a tiny program accepted by the fixture rule sets.
const SourceCode = "int x = 1;"

// LexerRules returns a valid lexer configuration for SourceCode.
func LexerRules() rules.LexerRuleSet {
	return rules.LexerRuleSet{Rules: []rules.TokenRule{
		{Type: "type", Pattern: `int|float`},
		{Type: "id", Pattern: `[a-z]+`},
		{Type: "assign", Pattern: `=`},
		{Type: "num", Pattern: `\d+`},
		{Type: "semi", Pattern: `;`},
	}}
}

// Grammar returns a valid grammar for SourceCode.
func Grammar() rules.Grammar {
	return rules.Grammar{
		Variables: []string{"S", "E"},
		Terminals: []string{"type", "id", "assign", "num", "semi"},
		Start:     "S",
		Rules: []rules.Production{
			{LHS: "S", RHS: []string{"type", "id", "assign", "E", "semi"}},
			{LHS: "E", RHS: []string{"num"}},
		},
	}
}

// AnalyserRules returns a valid analyser configuration with empty grammar
// links.
func AnalyserRules() rules.AnalyserRuleSet {
	return rules.AnalyserRuleSet{
		ScopeRules: []rules.ScopeRule{{Start: "{", End: "}"}},
		TypeRules: []rules.TypeRule{{
			ResultType:         "int",
			AssignmentOperator: "=",
			LHSType:            "int",
			Operators:          []string{"+", "-"},
			RHSType:            "int",
		}},
	}
}

// TranslatorRules returns a translator configuration.
func TranslatorRules() rules.TranslatorRuleSet {
	return rules.TranslatorRuleSet{
		Target:    "python",
		Templates: []rules.Template{{Role: "assignment", Template: "{{.Name}} = {{.Value}}"}},
	}
}

// OptimiserRules returns an optimiser configuration.
func OptimiserRules() rules.OptimiserRuleSet {
	return rules.OptimiserRuleSet{Passes: []string{"constant_folding", "dead_code"}}
}

// ProjectHCL is an HCL project file equivalent to the fixture rule sets.
const ProjectHCL = `
project "fixture" {
  id = "proj-1"
}

source {
  code = "int x = 1;"
}

lexer {
  token "type"   { pattern = "int|float" }
  token "id"     { pattern = "[a-z]+" }
  token "assign" { pattern = "=" }
  token "num"    { pattern = "\\d+" }
  token "semi"   { pattern = ";" }
}

parser {
  variables = ["S", "E"]
  terminals = ["type", "id", "assign", "num", "semi"]
  start     = "S"

  rule "S" { rhs = "type id assign E semi" }
  rule "E" { rhs = "num" }
}

analyser {
  scope {
    start = "{"
    end   = "}"
  }
  type_rule {
    result     = "int"
    assignment = "="
    lhs        = "int"
    operators  = ["+", "-"]
    rhs        = "int"
  }
}

translator {
  target = "python"
  template "assignment" { template = "{{.Name}} = {{.Value}}" }
}

optimiser {
  passes = ["constant_folding", "dead_code"]
}
`
