// Package phase identifies the stages of a compiler pipeline and their
// canonical order.
package phase

import (
	"fmt"
	"strings"
)

// Phase is one stage of the compiler pipeline.
type Phase int

const (
	Source Phase = iota
	Lexer
	Parser
	Analyser
	Translator
	Optimiser
)

var names = [...]string{
	Source:     "source",
	Lexer:      "lexer",
	Parser:     "parser",
	Analyser:   "analyser",
	Translator: "translator",
	Optimiser:  "optimiser",
}

// All returns every phase in ordinal order.
func All() []Phase {
	return []Phase{Source, Lexer, Parser, Analyser, Translator, Optimiser}
}

// Chain returns the main Source → Translator chain. The Optimiser is an
// independent branch hanging off Source and is not part of it.
func Chain() []Phase {
	return []Phase{Source, Lexer, Parser, Analyser, Translator}
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	return p >= Source && p <= Optimiser
}

// Ordinal returns the position of the phase in the canonical pipeline order.
func (p Phase) Ordinal() int {
	return int(p)
}

// InChain reports whether the phase belongs to the Source → Translator chain.
func (p Phase) InChain() bool {
	return p >= Source && p <= Translator
}

// Upstream returns the phases that must be Generated before p unlocks,
// nearest first.
func (p Phase) Upstream() []Phase {
	switch {
	case p == Optimiser:
		return []Phase{Source}
	case p.InChain():
		up := make([]Phase, 0, int(p))
		for q := p - 1; q >= Source; q-- {
			up = append(up, q)
		}
		return up
	}
	return nil
}

func (p Phase) String() string {
	if !p.Valid() {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return names[p]
}

// MarshalText implements encoding.TextMarshaler so phases can be used as
// JSON object keys and YAML scalars.
func (p Phase) MarshalText() ([]byte, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("unknown phase %d", int(p))
	}
	return []byte(names[p]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Phase) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Parse converts a phase name to a Phase. Matching is case-insensitive and
// accepts the American spellings used by some clients.
func Parse(name string) (Phase, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "analyzer":
		n = "analyser"
	case "optimizer":
		n = "optimiser"
	}
	for i, candidate := range names {
		if candidate == n {
			return Phase(i), nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", name)
}
