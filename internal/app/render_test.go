package app

import (
	"bytes"
	"errors"
	"testing"

	"github.com/specialistvlad/phasegrid/internal/artifact"
	"github.com/specialistvlad/phasegrid/internal/phase"
	"github.com/specialistvlad/phasegrid/internal/phasestate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderArtifact(t *testing.T) {
	testCases := []struct {
		name  string
		phase phase.Phase
		art   artifact.Artifact
		want  string
	}{
		{
			name:  "source",
			phase: phase.Source,
			art:   artifact.SourceText{Code: "int x = 1;"},
			want:  "== source (source_text) ==\nint x = 1;\n",
		},
		{
			name:  "tokens",
			phase: phase.Lexer,
			art: artifact.TokenSet{
				Tokens:       []artifact.Token{{Type: "type", Value: "int"}, {Type: "id", Value: "x"}},
				Unidentified: []string{"@"},
			},
			want: "== lexer (token_set) ==\nTYPE  VALUE\ntype  int\nid    x\nunidentified: @\n",
		},
		{
			name:  "tree",
			phase: phase.Parser,
			art: artifact.SyntaxTree{Root: &artifact.Node{Symbol: "S", Children: []*artifact.Node{
				{Symbol: "id", Value: "x"},
				{Symbol: "E", Children: []*artifact.Node{}},
			}}},
			want: "== parser (syntax_tree) ==\nS\n  id \"x\"\n  E\n",
		},
		{
			name:  "empty tree",
			phase: phase.Parser,
			art:   artifact.SyntaxTree{},
			want:  "== parser (syntax_tree) ==\n(empty tree)\n",
		},
		{
			name:  "symbols",
			phase: phase.Analyser,
			art:   artifact.SymbolTable{Rows: []artifact.SymbolRow{{Type: "int", Name: "x", Scope: "global"}}},
			want:  "== analyser (symbol_table) ==\nTYPE  NAME  SCOPE\nint   x     global\n",
		},
		{
			name:  "code",
			phase: phase.Translator,
			art:   artifact.TranslatedCode{Lines: []string{"x = 1", "print(x)"}},
			want:  "== translator (translated_code) ==\nx = 1\nprint(x)\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, renderArtifact(&buf, tc.phase, tc.art))
			assert.Equal(t, tc.want, buf.String())
		})
	}
}

func TestRenderStatuses(t *testing.T) {
	var buf bytes.Buffer
	states := []phasestate.State{
		{Phase: phase.Source, Status: phasestate.Generated},
		{Phase: phase.Lexer, Status: phasestate.Error, Detail: &phasestate.Detail{
			Action:  phasestate.ActionSubmit,
			Message: "service unavailable",
			Cause:   errors.New("boom"),
		}},
	}
	require.NoError(t, renderStatuses(&buf, states))

	out := buf.String()
	assert.Contains(t, out, "PHASE")
	assert.Contains(t, out, "source")
	assert.Regexp(t, `lexer\s+error\s+submit: service unavailable`, out)
}
