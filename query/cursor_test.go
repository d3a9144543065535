package query_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/query"
	"github.com/dhamidi/arbor/syntax"
)

func parse(t *testing.T, src string) *syntax.Tree {
	t.Helper()
	p := syntax.NewParser()
	require.NoError(t, p.SetLanguage(grammars.Calc()))
	defer p.Close()
	tree, err := p.Parse(context.Background(), []byte(src), nil)
	require.NoError(t, err)
	require.NotNil(t, tree)
	return tree
}

// describe renders a match as "pattern:capture=text capture=text".
func describe(m *query.Match) string {
	parts := make([]string, 0, len(m.Captures))
	for _, c := range m.Captures {
		parts = append(parts, fmt.Sprintf("%s=%s", c.Name, c.Node.Text()))
	}
	return fmt.Sprintf("%d:%s", m.PatternIndex, strings.Join(parts, " "))
}

func matches(c *query.Cursor) []string {
	var out []string
	for {
		m, ok := c.NextMatch()
		if !ok {
			return out
		}
		out = append(out, describe(m))
	}
}

func run(t *testing.T, querySource, src string) []string {
	t.Helper()
	q := compile(t, querySource)
	c := query.NewCursor()
	defer c.Close()
	c.Exec(q, parse(t, src).Root())
	return matches(c)
}

func TestMatches(t *testing.T) {
	tests := []struct {
		name  string
		query string
		src   string
		want  []string
	}{
		{
			name:  "leftmost first",
			query: "(identifier) @id",
			src:   "a; b;",
			want:  []string{"0:id=a", "0:id=b"},
		},
		{
			name:  "pattern order at same start",
			query: "(identifier) @id\n(expression_statement) @stmt",
			src:   "a;",
			want:  []string{"0:id=a", "1:stmt=a;"},
		},
		{
			name:  "fields",
			query: "(binary_expression left: (identifier) @l)",
			src:   "a + 1; 2 + b;",
			want:  []string{"0:l=a"},
		},
		{
			name:  "every child position",
			query: "(argument_list (identifier) @arg)",
			src:   "f(a, 1, b);",
			want:  []string{"0:arg=a", "0:arg=b"},
		},
		{
			name:  "anchor at start",
			query: "(argument_list . (identifier) @first)",
			src:   "f(a, b, c);",
			want:  []string{"0:first=a"},
		},
		{
			name:  "anchor at end",
			query: "(argument_list (identifier) @last .)",
			src:   "f(a, b, c);",
			want:  []string{"0:last=c"},
		},
		{
			name:  "adjacent siblings",
			query: "(argument_list (identifier) @a . (identifier) @b)",
			src:   "f(a, b, c);",
			want:  []string{"0:a=a b=b", "0:a=b b=c"},
		},
		{
			name:  "repetition",
			query: "(argument_list (number)+ @n)",
			src:   "f(1, 2, x);",
			want:  []string{"0:n=1 n=2"},
		},
		{
			name:  "optional child",
			query: "(call_expression function: (identifier) @f arguments: (argument_list (number)? @n))",
			src:   "f(); g(1);",
			want:  []string{"0:f=f", "0:f=g n=1"},
		},
		{
			name:  "alternation",
			query: "[(number) (identifier)] @atom",
			src:   "x + 1;",
			want:  []string{"0:atom=x", "0:atom=1"},
		},
		{
			name:  "sibling group",
			query: "((expression_statement) @a . (expression_statement) @b)",
			src:   "x; y; z;",
			want:  []string{"0:a=x; b=y;", "0:a=y; b=z;"},
		},
		{
			name:  "negated field",
			query: "[(unary_expression !left) @u (binary_expression !left) @b]",
			src:   "-x; y + z;",
			want:  []string{"0:u=-x"},
		},
		{
			name:  "anonymous node",
			query: "(binary_expression operator: \"*\") @mul",
			src:   "a + b; c * d;",
			want:  []string{"0:mul=c * d"},
		},
		{
			name:  "wildcards",
			query: "(call_expression (_) @named)",
			src:   "f();",
			want:  []string{"0:named=f", "0:named=()"},
		},
		{
			name:  "any node",
			query: "(argument_list _ @tok)",
			src:   "f();",
			want:  []string{"0:tok=(", "0:tok=)"},
		},
		{
			name:  "supertype",
			query: "(expression_statement (_expression) @e)",
			src:   "x; 1;",
			want:  []string{"0:e=x", "0:e=1"},
		},
		{
			name:  "subtype",
			query: "(expression_statement (_expression/number) @n)",
			src:   "x; 1;",
			want:  []string{"0:n=1"},
		},
		{
			name:  "extras",
			query: "(comment) @c",
			src:   "x; # note\ny;",
			want:  []string{"0:c=# note"},
		},
		{
			name:  "eq literal",
			query: "((identifier) @id (#eq? @id \"b\"))",
			src:   "a; b;",
			want:  []string{"0:id=b"},
		},
		{
			name:  "not eq literal",
			query: "((identifier) @id (#not-eq? @id \"b\"))",
			src:   "a; b;",
			want:  []string{"0:id=a"},
		},
		{
			name:  "eq captures",
			query: "((binary_expression left: (_) @l right: (_) @r) (#eq? @l @r))",
			src:   "x + x; x + y;",
			want:  []string{"0:l=x r=x"},
		},
		{
			name:  "match",
			query: "((identifier) @const (#match? @const \"^[A-Z]\"))",
			src:   "Foo; bar;",
			want:  []string{"0:const=Foo"},
		},
		{
			name:  "not match",
			query: "((identifier) @id (#not-match? @id \"^[A-Z]\"))",
			src:   "Foo; bar;",
			want:  []string{"0:id=bar"},
		},
		{
			name:  "any of",
			query: "((identifier) @id (#any-of? @id \"a\" \"c\"))",
			src:   "a; b; c;",
			want:  []string{"0:id=a", "0:id=c"},
		},
		{
			name:  "not any of",
			query: "((identifier) @id (#not-any-of? @id \"a\" \"c\"))",
			src:   "a; b; c;",
			want:  []string{"0:id=b"},
		},
		{
			name:  "any match over repetition",
			query: "((argument_list (identifier)+ @ids) (#any-match? @ids \"^z\"))",
			src:   "f(a, zed); g(b, c);",
			want:  []string{"0:ids=a ids=zed"},
		},
		{
			name:  "unknown predicate passes without filter",
			query: "((identifier) @id (#upper? @id))",
			src:   "a; B;",
			want:  []string{"0:id=a", "0:id=B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, run(t, tt.query, tt.src))
		})
	}
}

func TestErrorAndMissingNodes(t *testing.T) {
	tree := parse(t, "let = 1;")
	require.True(t, tree.Root().HasError())
	got := run(t, "[(ERROR) (MISSING)] @bad", "let = 1;")
	assert.NotEmpty(t, got)
}

func TestPredicateFilter(t *testing.T) {
	q := compile(t, "((identifier) @id (#upper? @id))")
	c := query.NewCursor()
	var seen []query.Predicate
	c.SetPredicateFilter(func(p query.Predicate, m *query.Match) bool {
		seen = append(seen, p)
		text := string(m.Captures[0].Node.Text())
		return text == strings.ToUpper(text)
	})
	c.Exec(q, parse(t, "a; B;").Root())
	assert.Equal(t, []string{"0:id=B"}, matches(c))
	require.NotEmpty(t, seen)
	assert.Equal(t, query.Predicate{Name: "upper?", Args: []query.PredicateArg{{Value: "id", IsCapture: true}}}, seen[0])
}

func TestMatchLimit(t *testing.T) {
	q := compile(t, "(binary_expression) @b")
	root := parse(t, "1 + 2 + 3 + 4;").Root()

	c := query.NewCursor()
	assert.Equal(t, uint32(0xFFFFFFFF), c.MatchLimit())
	c.Exec(q, root)
	assert.Len(t, matches(c), 3)
	assert.False(t, c.DidExceedMatchLimit())

	c.SetMatchLimit(1)
	assert.Equal(t, uint32(1), c.MatchLimit())
	c.Exec(q, root)
	assert.Equal(t, []string{"0:b=1 + 2"}, matches(c))
	assert.True(t, c.DidExceedMatchLimit())

	c.SetMatchLimit(2)
	c.Exec(q, root)
	assert.Equal(t, []string{"0:b=1 + 2 + 3", "0:b=1 + 2"}, matches(c))
	assert.True(t, c.DidExceedMatchLimit())
}

func TestDisablePattern(t *testing.T) {
	q := compile(t, "(identifier) @id\n(number) @num")
	root := parse(t, "x + 1;").Root()
	c := query.NewCursor()
	c.Exec(q, root)
	assert.Equal(t, []string{"0:id=x", "1:num=1"}, matches(c))

	require.NoError(t, q.DisablePattern(0))
	c.Exec(q, root)
	assert.Equal(t, []string{"1:num=1"}, matches(c))
}

func TestDisableCapture(t *testing.T) {
	q := compile(t, "(binary_expression left: (_) @l right: (_) @r)")
	require.NoError(t, q.DisableCapture("r"))
	c := query.NewCursor()
	c.Exec(q, parse(t, "x + y;").Root())
	assert.Equal(t, []string{"0:l=x"}, matches(c))
}

func TestRanges(t *testing.T) {
	q := compile(t, "(identifier) @id")
	root := parse(t, "a; b; c;").Root()

	c := query.NewCursor()
	require.NoError(t, c.SetByteRange(3, 5))
	c.Exec(q, root)
	assert.Equal(t, []string{"0:id=b"}, matches(c))

	assert.ErrorIs(t, c.SetByteRange(5, 3), query.ErrInvalidRange)

	c = query.NewCursor()
	require.NoError(t, c.SetPointRange(syntax.Point{Column: 3}, syntax.Point{Column: 5}))
	c.Exec(q, root)
	assert.Equal(t, []string{"0:id=b"}, matches(c))

	err := c.SetPointRange(syntax.Point{Row: 1}, syntax.Point{Column: 5})
	assert.ErrorIs(t, err, query.ErrInvalidRange)
}

func TestMaxStartDepth(t *testing.T) {
	q := compile(t, "(identifier) @id")
	root := parse(t, "a; { b; }").Root()

	c := query.NewCursor()
	c.Exec(q, root)
	assert.Equal(t, []string{"0:id=a", "0:id=b"}, matches(c))

	c.SetMaxStartDepth(2)
	assert.Equal(t, uint32(2), c.MaxStartDepth())
	c.Exec(q, root)
	assert.Equal(t, []string{"0:id=a"}, matches(c))

	c.SetMaxStartDepth(0)
	c.Exec(q, root)
	assert.Empty(t, matches(c))
}

func TestProgressCancels(t *testing.T) {
	q := compile(t, "(identifier) @id")
	root := parse(t, "a; b; c;").Root()
	c := query.NewCursor()

	var offsets []uint32
	c.ExecWithOptions(q, root, query.Options{Progress: func(s query.State) bool {
		offsets = append(offsets, s.CurrentByteOffset)
		return len(offsets) < 3
	}})
	assert.Empty(t, matches(c))
	assert.Len(t, offsets, 3)

	c.ExecWithOptions(q, root, query.Options{Progress: func(query.State) bool { return true }})
	assert.Len(t, matches(c), 3)
}

func TestNextCapture(t *testing.T) {
	q := compile(t, "(let_declaration name: (identifier) @name value: (_) @value)\n(identifier) @id")
	c := query.NewCursor()
	c.Exec(q, parse(t, "let x = y;").Root())

	var got []string
	for {
		m, i, ok := c.NextCapture()
		if !ok {
			break
		}
		capture := m.Captures[i]
		got = append(got, fmt.Sprintf("%d:%s=%s", m.PatternIndex, capture.Name, capture.Node.Text()))
	}
	assert.Equal(t, []string{"0:name=x", "1:id=x", "0:value=y", "1:id=y"}, got)
}

func TestRemoveMatch(t *testing.T) {
	q := compile(t, "(expression_statement) @s\n(identifier) @id")
	c := query.NewCursor()
	c.Exec(q, parse(t, "a;").Root())

	m, ok := c.NextMatch()
	require.True(t, ok)
	assert.Equal(t, "0:s=a;", describe(m))
	c.RemoveMatch(m.ID + 1)
	_, ok = c.NextMatch()
	assert.False(t, ok)
}

func TestCloseStopsMatching(t *testing.T) {
	q := compile(t, "(identifier) @id")
	c := query.NewCursor()
	c.Exec(q, parse(t, "a; b;").Root())
	c.Close()
	_, ok := c.NextMatch()
	assert.False(t, ok)
	c.Exec(q, parse(t, "a; b;").Root())
	_, ok = c.NextMatch()
	assert.False(t, ok)
}

func TestTextAfterEdit(t *testing.T) {
	src := []byte("a; b;")
	tree := parse(t, string(src))
	edited := tree.Copy()
	edited.Edit(syntax.InputEdit{StartByte: 5, OldEndByte: 5, NewEndByte: 5,
		StartPoint: syntax.Point{Column: 5}, OldEndPoint: syntax.Point{Column: 5}, NewEndPoint: syntax.Point{Column: 5}})

	q := compile(t, "((identifier) @id (#eq? @id \"b\"))")
	c := query.NewCursor()
	c.ExecWithOptions(q, edited.Root(), query.Options{Text: src})
	m, ok := c.NextMatch()
	require.True(t, ok)
	assert.Equal(t, uint32(3), m.Captures[0].Node.StartByte())
}

// TestSiblingPatternOnLongList runs an anchored sibling pattern over a
// long list. The sibling list is shared by the whole level, so the run
// stays linear in the number of statements.
func TestSiblingPatternOnLongList(t *testing.T) {
	const n = 20000
	var b strings.Builder
	for i := range n {
		fmt.Fprintf(&b, "v%d;\n", i)
	}
	root := parse(t, b.String()).Root()
	require.Equal(t, uint32(n), root.ChildCount())

	q := compile(t, "((expression_statement) @a . (expression_statement) @b)")
	c := query.NewCursor()
	defer c.Close()
	start := time.Now()
	c.Exec(q, root)
	got := matches(c)
	elapsed := time.Since(start)

	require.Len(t, got, n-1)
	assert.Equal(t, "0:a=v0; b=v1;", got[0])
	assert.Equal(t, fmt.Sprintf("0:a=v%d; b=v%d;", n-2, n-1), got[n-2])
	assert.Less(t, elapsed, 5*time.Second)
}
