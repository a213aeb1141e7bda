// Package artifact defines the structured outputs produced by generating a
// pipeline phase: source text, tokens, syntax trees, symbol tables and
// translated code.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Kind names the concrete shape of an Artifact.
type Kind string

const (
	KindSourceText     Kind = "source_text"
	KindTokenSet       Kind = "token_set"
	KindSyntaxTree     Kind = "syntax_tree"
	KindSymbolTable    Kind = "symbol_table"
	KindTranslatedCode Kind = "translated_code"
)

// Artifact is the output of a successfully generated phase.
type Artifact interface {
	Kind() Kind
}

// SourceText is the confirmed program text. It is the Source phase's artifact.
type SourceText struct {
	Code string `json:"code"`
}

// Token is a single lexeme classified by the Lexer.
type Token struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// TokenSet is the Lexer's artifact.
type TokenSet struct {
	Tokens []Token `json:"tokens"`
	// Unidentified holds the lexemes no token rule matched.
	Unidentified []string `json:"unidentified"`
}

// Node is a vertex of a syntax tree. Leaf nodes have nil Children; an
// interior node that derived the empty string has a non-nil empty slice.
type Node struct {
	Symbol   string  `json:"symbol"`
	Value    string  `json:"value"`
	Children []*Node `json:"children"`
}

// SyntaxTree is the Parser's artifact.
type SyntaxTree struct {
	Root *Node `json:"root"`
}

// SymbolRow is one entry of a symbol table.
type SymbolRow struct {
	Type  string `json:"type"`
	Name  string `json:"name"`
	Scope string `json:"scope"`
}

// SymbolTable is the Analyser's artifact.
type SymbolTable struct {
	Rows []SymbolRow `json:"rows"`
}

// TranslatedCode is the artifact of the Translator and of the Optimiser.
type TranslatedCode struct {
	Lines []string `json:"lines"`
}

func (SourceText) Kind() Kind     { return KindSourceText }
func (TokenSet) Kind() Kind       { return KindTokenSet }
func (SyntaxTree) Kind() Kind     { return KindSyntaxTree }
func (SymbolTable) Kind() Kind    { return KindSymbolTable }
func (TranslatedCode) Kind() Kind { return KindTranslatedCode }

// TokenTypes returns the distinct token types in the set, in first-seen order.
func (ts TokenSet) TokenTypes() []string {
	seen := make(map[string]struct{}, len(ts.Tokens))
	var types []string
	for _, tok := range ts.Tokens {
		if _, ok := seen[tok.Type]; ok {
			continue
		}
		seen[tok.Type] = struct{}{}
		types = append(types, tok.Type)
	}
	return types
}

// Walk visits every node of the tree depth-first, parents before children.
// It stops early when fn returns false.
func (t SyntaxTree) Walk(fn func(n *Node, depth int) bool) {
	var visit func(n *Node, depth int) bool
	visit = func(n *Node, depth int) bool {
		if n == nil {
			return true
		}
		if !fn(n, depth) {
			return false
		}
		for _, c := range n.Children {
			if !visit(c, depth+1) {
				return false
			}
		}
		return true
	}
	visit(t.Root, 0)
}

// ErrUnknownKind is returned when decoding an envelope whose kind is not recognised.
var ErrUnknownKind = errors.New("unknown artifact kind")

// envelope is the wire shape of an artifact: its kind plus the raw payload.
type envelope struct {
	Kind Kind            `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// Encode serialises an artifact with its kind tag so it can be decoded
// without knowing the producing phase.
func Encode(a Artifact) ([]byte, error) {
	if a == nil {
		return nil, errors.New("cannot encode nil artifact")
	}
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s artifact: %w", a.Kind(), err)
	}
	return json.Marshal(envelope{Kind: a.Kind(), Data: data})
}

// Decode is the inverse of Encode.
func Decode(raw []byte) (Artifact, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to unmarshal artifact envelope: %w", err)
	}
	return DecodeKind(env.Kind, env.Data)
}

// DecodeKind decodes a bare payload of the given kind.
func DecodeKind(kind Kind, data []byte) (Artifact, error) {
	var (
		a   Artifact
		err error
	)
	switch kind {
	case KindSourceText:
		var v SourceText
		err = json.Unmarshal(data, &v)
		a = v
	case KindTokenSet:
		var v TokenSet
		err = json.Unmarshal(data, &v)
		a = v
	case KindSyntaxTree:
		var v SyntaxTree
		err = json.Unmarshal(data, &v)
		a = v
	case KindSymbolTable:
		var v SymbolTable
		err = json.Unmarshal(data, &v)
		a = v
	case KindTranslatedCode:
		var v TranslatedCode
		err = json.Unmarshal(data, &v)
		a = v
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s artifact: %w", kind, err)
	}
	return a, nil
}
