package rules

import (
	"testing"

	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_PreservesRuleOrder(t *testing.T) {
	g := Grammar{
		Variables: []string{"S", "A"},
		Terminals: []string{"b", "a"},
		Start:     "S",
		Rules: []Production{
			{LHS: "S", RHS: []string{"A", "b"}},
			{LHS: "A", RHS: []string{"a"}},
			{LHS: "S", RHS: []string{"a"}},
		},
	}
	raw, err := Encode(g)
	require.NoError(t, err)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, phase.Parser, decoded.Phase())
	assert.Equal(t, g, decoded)
}

func TestDecodeFor_EveryPhase(t *testing.T) {
	for _, p := range phase.All() {
		cfg, err := DecodeFor(p, []byte(`{}`))
		require.NoError(t, err, p.String())
		assert.Equal(t, p, cfg.Phase())
	}
	_, err := DecodeFor(phase.Phase(99), []byte(`{}`))
	assert.Error(t, err)
}

func TestClone_DoesNotAlias(t *testing.T) {
	a := validAnalyserRules()
	c := a.Clone().(AnalyserRuleSet)
	c.TypeRules[0].Operators[0] = "*"
	c.ScopeRules[0].Start = "("
	assert.Equal(t, "+", a.TypeRules[0].Operators[0])
	assert.Equal(t, "{", a.ScopeRules[0].Start)

	g := Grammar{Rules: []Production{{LHS: "S", RHS: []string{"a"}}}}
	gc := g.Clone().(Grammar)
	gc.Rules[0].RHS[0] = "b"
	assert.Equal(t, "a", g.Rules[0].RHS[0])
}

func TestGrammarLink_WithDefaults(t *testing.T) {
	l := GrammarLink{Variable: "ident"}.WithDefaults()
	assert.Equal(t, "ident", l.Variable)
	assert.Equal(t, DefaultGrammarLink.Term, l.Term)
	assert.False(t, l.IsEmpty())
}
