package hcl

import "github.com/hashicorp/hcl/v2"

// fileRoot is a struct used to decode all possible top-level blocks from any file.
type fileRoot struct {
	Projects    []*projectBlock    `hcl:"project,block"`
	Locals      []*localsBlock     `hcl:"locals,block"`
	Sources     []*sourceBlock     `hcl:"source,block"`
	Lexers      []*lexerBlock      `hcl:"lexer,block"`
	Parsers     []*parserBlock     `hcl:"parser,block"`
	Analysers   []*analyserBlock   `hcl:"analyser,block"`
	Translators []*translatorBlock `hcl:"translator,block"`
	Optimisers  []*optimiserBlock  `hcl:"optimiser,block"`
}

type projectBlock struct {
	Name       string `hcl:"name,label"`
	ID         string `hcl:"id,optional"`
	Remote     string `hcl:"remote,optional"`
	LinkPolicy string `hcl:"link_policy,optional"`
}

type localsBlock struct {
	Body hcl.Body `hcl:",remain"`
}

type sourceBlock struct {
	Code hcl.Expression `hcl:"code"`
}

type lexerBlock struct {
	Tokens []*tokenBlock `hcl:"token,block"`
}

type tokenBlock struct {
	Type    string `hcl:"type,label"`
	Pattern string `hcl:"pattern,optional"`
}

type parserBlock struct {
	Variables hcl.Expression `hcl:"variables,optional"`
	Terminals hcl.Expression `hcl:"terminals,optional"`
	Start     string         `hcl:"start,optional"`
	Rules     []*ruleBlock   `hcl:"rule,block"`
}

type ruleBlock struct {
	LHS string         `hcl:"lhs,label"`
	RHS hcl.Expression `hcl:"rhs,optional"`
}

type analyserBlock struct {
	Scopes []*scopeBlock    `hcl:"scope,block"`
	Types  []*typeRuleBlock `hcl:"type_rule,block"`
	Link   *linkBlock       `hcl:"grammar_link,block"`
}

type scopeBlock struct {
	Start string `hcl:"start,optional"`
	End   string `hcl:"end,optional"`
}

type typeRuleBlock struct {
	Result     string         `hcl:"result,optional"`
	Assignment string         `hcl:"assignment,optional"`
	LHS        string         `hcl:"lhs,optional"`
	Operators  hcl.Expression `hcl:"operators,optional"`
	RHS        string         `hcl:"rhs,optional"`
}

type linkBlock struct {
	Variable   string `hcl:"variable,optional"`
	Type       string `hcl:"type,optional"`
	Function   string `hcl:"function,optional"`
	Parameter  string `hcl:"parameter,optional"`
	Assignment string `hcl:"assignment,optional"`
	Operator   string `hcl:"operator,optional"`
	Term       string `hcl:"term,optional"`
}

type translatorBlock struct {
	Target    string           `hcl:"target,optional"`
	Templates []*templateBlock `hcl:"template,block"`
}

type templateBlock struct {
	Role     string `hcl:"role,label"`
	Template string `hcl:"template"`
}

type optimiserBlock struct {
	Passes hcl.Expression `hcl:"passes,optional"`
}
