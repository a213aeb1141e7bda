package rules

import (
	"errors"
	"fmt"
)

// ViolationKind identifies which structural check a configuration failed.
type ViolationKind string

const (
	EmptyGrammar              ViolationKind = "EmptyGrammar"
	StartSymbolNotInVariables ViolationKind = "StartSymbolNotInVariables"
	EmptyProduction           ViolationKind = "EmptyProduction"
	UndefinedSymbol           ViolationKind = "UndefinedSymbol"
	IncompleteScopeRule       ViolationKind = "IncompleteScopeRule"
	IncompleteTypeRule        ViolationKind = "IncompleteTypeRule"
	IncompleteGrammarLink     ViolationKind = "IncompleteGrammarLink"
	EmptyLexerRules           ViolationKind = "EmptyLexerRules"
	InvalidTokenRule          ViolationKind = "InvalidTokenRule"
	EmptySource               ViolationKind = "EmptySource"
)

// Violation is a local validation failure. It is always recoverable by
// editing the configuration.
type Violation struct {
	Kind ViolationKind
	// Symbol is the offending symbol, role or token type, when there is one.
	Symbol string
	// LHS is the left-hand side of the offending production, when there is one.
	LHS string
	// Detail carries an underlying cause such as a regexp compile error.
	Detail string
}

func (v *Violation) Error() string {
	switch v.Kind {
	case EmptyGrammar:
		return "grammar has no production rules"
	case StartSymbolNotInVariables:
		return fmt.Sprintf("start symbol %q is not one of the grammar variables", v.Symbol)
	case EmptyProduction:
		return fmt.Sprintf("production for %q has an empty right-hand side", v.LHS)
	case UndefinedSymbol:
		return fmt.Sprintf("symbol %q in production for %q is neither a variable nor a terminal", v.Symbol, v.LHS)
	case IncompleteScopeRule:
		return "at least one scope rule needs both a start and an end delimiter"
	case IncompleteTypeRule:
		return "at least one type rule needs a result type, an assignment operator and a left-hand type"
	case IncompleteGrammarLink:
		return fmt.Sprintf("grammar link for role %q is empty", v.Symbol)
	case EmptyLexerRules:
		return "lexer has no token rules"
	case InvalidTokenRule:
		return fmt.Sprintf("token rule %q is invalid: %s", v.Symbol, v.Detail)
	case EmptySource:
		return "source code is empty"
	}
	return fmt.Sprintf("rule violation %s", v.Kind)
}

// KindOf returns the violation kind carried by err, if any.
func KindOf(err error) (ViolationKind, bool) {
	var v *Violation
	if errors.As(err, &v) {
		return v.Kind, true
	}
	return "", false
}
