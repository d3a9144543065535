package syntax_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/syntax"
)

// preorder lists the nodes below n in the order a cursor visits them.
func preorder(n syntax.Node) []syntax.Node {
	out := []syntax.Node{n}
	for i := 0; i < int(n.ChildCount()); i++ {
		c, _ := n.Child(i)
		out = append(out, preorder(c)...)
	}
	return out
}

func TestTreeCursorWalk(t *testing.T) {
	tree := parse(t, grammars.Calc(), "let x = f(1);\n{ y; }")
	cursor := tree.Walk()
	defer cursor.Close()

	var got []syntax.Node
	var depths []uint32
	for more := true; more; {
		got = append(got, cursor.Node())
		depths = append(depths, cursor.Depth())
		assert.Equal(t, uint32(len(got)-1), cursor.DescendantIndex())
		if cursor.GotoFirstChild() {
			continue
		}
		for !cursor.GotoNextSibling() {
			if !cursor.GotoParent() {
				more = false
				break
			}
		}
	}
	want := preorder(tree.Root())
	require.Len(t, got, len(want))
	for i := range want {
		assert.True(t, want[i].Equal(got[i]), "node %d", i)
	}
	assert.Equal(t, uint32(0), depths[0])
	assert.Equal(t, uint32(len(want)), tree.Root().DescendantCount())
}

func TestTreeCursorGotoDescendant(t *testing.T) {
	tree := parse(t, grammars.Calc(), "a = 1 + 2;\nb;")
	want := preorder(tree.Root())
	cursor := tree.Walk()
	for i := len(want) - 1; i >= 0; i-- {
		require.True(t, cursor.GotoDescendant(uint32(i)))
		assert.True(t, want[i].Equal(cursor.Node()), "descendant %d", i)
		assert.Equal(t, uint32(i), cursor.DescendantIndex())
	}
	assert.False(t, cursor.GotoDescendant(uint32(len(want))))
	assert.Equal(t, uint32(0), cursor.Depth())
}

func TestTreeCursorSiblingsAndFields(t *testing.T) {
	tree := parse(t, grammars.Calc(), "let x = 1;")
	cursor := tree.Walk()
	require.True(t, cursor.GotoFirstChild())
	assert.Equal(t, "let_declaration", cursor.Node().Type())
	assert.False(t, cursor.GotoNextSibling())

	require.True(t, cursor.GotoLastChild())
	assert.Equal(t, ";", cursor.Node().Type())
	assert.Equal(t, uint32(6), cursor.DescendantIndex())
	require.True(t, cursor.GotoPreviousSibling())
	assert.Equal(t, "number", cursor.Node().Type())
	assert.Equal(t, "value", cursor.FieldName())
	assert.Equal(t, uint32(5), cursor.DescendantIndex())
	require.True(t, cursor.GotoPreviousSibling())
	require.True(t, cursor.GotoPreviousSibling())
	assert.Equal(t, "name", cursor.FieldName())
	require.True(t, cursor.GotoPreviousSibling())
	assert.Equal(t, "", cursor.FieldName())
	assert.False(t, cursor.GotoPreviousSibling())

	require.True(t, cursor.GotoParent())
	require.True(t, cursor.GotoParent())
	assert.False(t, cursor.GotoParent())
}

func TestTreeCursorFirstChildForPosition(t *testing.T) {
	tree := parse(t, grammars.Calc(), "let x = 1;\nlet y = 2;")
	cursor := tree.Walk()

	i, ok := cursor.GotoFirstChildForByte(12)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, uint32(11), cursor.Node().StartByte())

	i, ok = cursor.GotoFirstChildForByte(15)
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, "name", cursor.FieldName())
	assert.Equal(t, "y", string(cursor.Node().Text()))

	cursor.Reset(tree.Root())
	i, ok = cursor.GotoFirstChildForPoint(syntax.Point{Row: 0, Column: 4})
	require.True(t, ok)
	assert.Equal(t, 0, i)
	_, ok = cursor.GotoFirstChildForPoint(syntax.Point{Row: 5})
	assert.False(t, ok)
}

func TestTreeCursorCopyAndReset(t *testing.T) {
	tree := parse(t, grammars.Calc(), "a;\nb;")
	cursor := tree.Walk()
	require.True(t, cursor.GotoFirstChild())
	cp := cursor.Copy()
	require.True(t, cursor.GotoNextSibling())
	assert.Equal(t, uint32(0), cp.Node().StartByte())
	assert.Equal(t, uint32(3), cursor.Node().StartByte())

	cp.ResetTo(cursor)
	assert.True(t, cp.Node().Equal(cursor.Node()))
	assert.Equal(t, cursor.DescendantIndex(), cp.DescendantIndex())

	stmt := cursor.Node()
	cursor.Reset(stmt)
	assert.Equal(t, uint32(0), cursor.Depth())
	assert.Equal(t, uint32(0), cursor.DescendantIndex())
	assert.False(t, cursor.GotoNextSibling())
	assert.False(t, cursor.GotoParent())

	cursor.Close()
	assert.True(t, cursor.Node().IsNull())
	assert.False(t, cursor.GotoFirstChild())
}
