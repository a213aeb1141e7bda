package config

import (
	"testing"

	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/rules"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProject_SetAndConfigurations(t *testing.T) {
	var p Project
	require.NoError(t, p.Set(rules.OptimiserRuleSet{Passes: []string{"fold"}}))
	require.NoError(t, p.Set(rules.SourceInput{Code: "x"}))
	require.NoError(t, p.Set(rules.Grammar{Start: "S"}))

	cfgs := p.Configurations()
	require.Len(t, cfgs, 3)
	assert.Equal(t, phase.Source, cfgs[0].Phase())
	assert.Equal(t, phase.Parser, cfgs[1].Phase())
	assert.Equal(t, phase.Optimiser, cfgs[2].Phase())

	_, ok := p.Configuration(phase.Lexer)
	assert.False(t, ok)

	err := p.Set(rules.SourceInput{Code: "y"})
	assert.EqualError(t, err, "source is defined more than once")
}

func TestProject_Merge(t *testing.T) {
	a := &Project{Name: "a", Lexer: &rules.LexerRuleSet{}}
	b := &Project{Name: "b", ID: "p-1", Remote: "http://svc", Parser: &rules.Grammar{Start: "S"}}

	require.NoError(t, a.Merge(b))
	assert.Equal(t, "a", a.Name)
	assert.Equal(t, "p-1", a.ID)
	assert.Equal(t, "http://svc", a.Remote)
	assert.NotNil(t, a.Parser)

	assert.Error(t, a.Merge(&Project{Lexer: &rules.LexerRuleSet{}}))
}
