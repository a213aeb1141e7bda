package artifact

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_SyntaxTreeKeepsNullChildren(t *testing.T) {
	tree := SyntaxTree{Root: &Node{
		Symbol: "S",
		Children: []*Node{
			{Symbol: "a", Value: "a"},
			{Symbol: "E", Children: []*Node{}},
		},
	}}

	raw, err := Encode(tree)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"kind":"syntax_tree"`)
	assert.Contains(t, string(raw), `"children":null`)

	decoded, err := Decode(raw)
	require.NoError(t, err)
	got, ok := decoded.(SyntaxTree)
	require.True(t, ok, "expected SyntaxTree, got %T", decoded)
	assert.Nil(t, got.Root.Children[0].Children)
	assert.NotNil(t, got.Root.Children[1].Children)
	assert.Empty(t, got.Root.Children[1].Children)
	assert.Equal(t, tree, got)
}

func TestDecode_UnknownKind(t *testing.T) {
	_, err := Decode([]byte(`{"kind":"bytecode","data":{}}`))
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestEncode_Nil(t *testing.T) {
	_, err := Encode(nil)
	assert.Error(t, err)
}

func TestTokenTypes(t *testing.T) {
	ts := TokenSet{Tokens: []Token{
		{Type: "id", Value: "x"},
		{Type: "op", Value: "="},
		{Type: "id", Value: "y"},
	}}
	assert.Equal(t, []string{"id", "op"}, ts.TokenTypes())
}

func TestWalk_StopsEarly(t *testing.T) {
	tree := SyntaxTree{Root: &Node{Symbol: "S", Children: []*Node{
		{Symbol: "A", Children: []*Node{{Symbol: "a"}}},
		{Symbol: "B"},
	}}}

	var visited []string
	tree.Walk(func(n *Node, depth int) bool {
		visited = append(visited, n.Symbol)
		return n.Symbol != "a"
	})
	assert.Equal(t, []string{"S", "A", "a"}, visited)
}
