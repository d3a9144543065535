package format_test

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/arbor/format"
	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/query"
	"github.com/dhamidi/arbor/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	p := syntax.NewParser()
	require.NoError(t, p.SetLanguage(grammars.Calc()))
	tree, err := p.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	return tree
}

func TestTreePrinter(t *testing.T) {
	tree := parse(t, "let x = 1;")
	var buf bytes.Buffer
	require.NoError(t, format.NewTreePrinter(&buf, format.NewStyles(false)).Print(tree))
	assert.Equal(t, `program [0:0 - 0:10]
  let_declaration [0:0 - 0:10]
    "let" [0:0 - 0:3]
    name: identifier [0:4 - 0:5] "x"
    "=" [0:6 - 0:7]
    value: number [0:8 - 0:9] "1"
    ";" [0:9 - 0:10]
`, buf.String())
}

func TestTreePrinterNamedOnly(t *testing.T) {
	tree := parse(t, "let x = 1;")
	var buf bytes.Buffer
	p := format.NewTreePrinter(&buf, format.NewStyles(false))
	p.Anonymous = false
	require.NoError(t, p.Print(tree))
	assert.Equal(t, `program [0:0 - 0:10]
  let_declaration [0:0 - 0:10]
    name: identifier [0:4 - 0:5] "x"
    value: number [0:8 - 0:9] "1"
`, buf.String())
}

func TestTreePrinterWidth(t *testing.T) {
	tree := parse(t, "abcdefghijklmnop;")
	var buf bytes.Buffer
	p := format.NewTreePrinter(&buf, format.NewStyles(false))
	p.Width = 36
	require.NoError(t, p.Print(tree))
	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, `    identifier [0:0 - 0:16] "abcdef…`, lines[2])
}

func TestTreePrinterMissing(t *testing.T) {
	tree := parse(t, "let x = 1\ny;")
	var buf bytes.Buffer
	require.NoError(t, format.NewTreePrinter(&buf, format.NewStyles(false)).Print(tree))
	assert.Contains(t, buf.String(), `MISSING ";"`)
}

func TestTreeJSON(t *testing.T) {
	tree := parse(t, "let x = 1;")
	var buf bytes.Buffer
	require.NoError(t, format.NewTreeJSONEncoder(&buf).Encode(tree))

	var root format.JSONNode
	require.NoError(t, json.Unmarshal(buf.Bytes(), &root))
	assert.Equal(t, "program", root.Type)
	require.Len(t, root.Children, 1)
	let := root.Children[0]
	assert.Equal(t, "let_declaration", let.Type)
	require.Len(t, let.Children, 5)
	assert.Equal(t, "let", let.Children[0].Type)
	assert.False(t, let.Children[0].Named)
	assert.Equal(t, "name", let.Children[1].Field)
	assert.Equal(t, "x", let.Children[1].Text)
	assert.Equal(t, format.JSONPoint{Byte: 4, Row: 0, Column: 4}, let.Children[1].Start)
	assert.Equal(t, "value", let.Children[3].Field)
	assert.Empty(t, let.Text)
}

func TestMatchEncoder(t *testing.T) {
	tree := parse(t, "let x = 1;\nlet y = 2;")
	q, err := query.New(grammars.Calc(), "(let_declaration name: (identifier) @name)")
	require.NoError(t, err)
	c := query.NewCursor()
	defer c.Close()
	c.Exec(q, tree.Root())

	var buf bytes.Buffer
	enc := format.NewMatchEncoder(&buf, format.NewStyles(false))
	for {
		m, ok := c.NextMatch()
		if !ok {
			break
		}
		require.NoError(t, enc.Encode("a.calc", m))
	}
	assert.Equal(t, "a.calc:1:5: pattern 0 @name \"x\"\na.calc:2:5: pattern 0 @name \"y\"\n", buf.String())
}

func TestMatchJSON(t *testing.T) {
	tree := parse(t, "f(1);")
	q, err := query.New(grammars.Calc(), "(call_expression function: (identifier) @fn)")
	require.NoError(t, err)
	c := query.NewCursor()
	c.Exec(q, tree.Root())
	m, ok := c.NextMatch()
	require.True(t, ok)

	got := format.MatchJSON(m)
	assert.Equal(t, 0, got.Pattern)
	require.Len(t, got.Captures, 1)
	assert.Equal(t, "fn", got.Captures[0].Name)
	assert.Equal(t, "identifier", got.Captures[0].Type)
	assert.Equal(t, "f", got.Captures[0].Text)
	assert.Equal(t, uint32(1), got.Captures[0].End.Byte)
}

func TestDiff(t *testing.T) {
	styles := format.NewStyles(false)
	same, err := format.Diff("a.calc", []byte("x;\n"), []byte("x;\n"), styles)
	require.NoError(t, err)
	assert.Empty(t, same)

	diff, err := format.Diff("a.calc", []byte("x;\ny;\n"), []byte("x;\nz;\n"), styles)
	require.NoError(t, err)
	assert.Equal(t, "--- a/a.calc\n+++ b/a.calc\n@@ -1,2 +1,2 @@\n x;\n-y;\n+z;\n", diff)
}

func TestColorEnabled(t *testing.T) {
	var buf bytes.Buffer
	assert.True(t, format.ColorEnabled("always", &buf))
	assert.False(t, format.ColorEnabled("never", &buf))
	assert.False(t, format.ColorEnabled("auto", &buf))
	assert.Equal(t, 0, format.Width(&buf))
}
