package tablegen_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/arbor/grammar"
	tg "github.com/dhamidi/arbor/grammar/tablegen"
	"github.com/dhamidi/arbor/grammars"
)

// longestToken runs the lexer DFA over s and returns the longest match.
func longestToken(t *grammar.Table, s string) (sym grammar.Symbol, n int, skip bool) {
	state := uint32(0)
	n = -1
	for i, r := range s {
		next, ok := t.LexStates[state].Next(r)
		if !ok {
			break
		}
		state = next
		if st := t.LexStates[state]; st.Accepts {
			sym, n, skip = st.Accept, i+len(string(r)), st.Skip
		}
	}
	return sym, n, skip
}

func TestLexerPriorities(t *testing.T) {
	calc := grammars.Calc()
	tests := []struct {
		input string
		want  string
		n     int
	}{
		{"let x", "let", 3},
		{"letter", "identifier", 6},
		{"x1 = 2", "identifier", 2},
		{"123;", "number", 3},
		{"# note\nx", "comment", 6},
		{"+1", "+", 1},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			sym, n, skip := longestToken(calc, tt.input)
			assert.False(t, skip)
			assert.Equal(t, tt.want, calc.SymbolName(sym))
			assert.Equal(t, tt.n, n)
		})
	}

	_, n, skip := longestToken(calc, " \t")
	assert.True(t, skip)
	assert.Equal(t, 1, n)
	_, n, _ = longestToken(calc, "@")
	assert.Equal(t, -1, n)
}

func TestBuildFixtures(t *testing.T) {
	for _, name := range grammars.Names() {
		t.Run(name, func(t *testing.T) {
			table, ok := grammars.Lookup(name)
			require.True(t, ok)
			require.NoError(t, table.Validate())
			assert.Equal(t, name, table.Name)
			assert.Equal(t, grammar.LanguageVersion, table.Version)
		})
	}
	_, ok := grammars.Lookup("cobol")
	assert.False(t, ok)
}

func TestBuildResolvesPrecedence(t *testing.T) {
	ambiguous := tg.Grammar{
		Name: "sum",
		Rules: []tg.Definition{
			tg.Def("sum", tg.Choice(
				tg.Seq(tg.Sym("sum"), tg.Str("+"), tg.Sym("sum")),
				tg.Sym("n"),
			)),
			tg.Def("n", tg.Pat(`[0-9]`)),
		},
	}
	_, report, err := tg.Build(ambiguous)
	require.NoError(t, err)
	assert.NotEmpty(t, report.Conflicts)

	resolved := ambiguous
	resolved.Rules = []tg.Definition{
		tg.Def("sum", tg.Choice(
			tg.PrecLeft(1, tg.Seq(tg.Sym("sum"), tg.Str("+"), tg.Sym("sum"))),
			tg.Sym("n"),
		)),
		tg.Def("n", tg.Pat(`[0-9]`)),
	}
	_, report, err = tg.Build(resolved)
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	assert.Positive(t, report.States)

	_, report, err = tg.Build(tg.Grammar{Name: "single", Rules: []tg.Definition{tg.Def("x", tg.Seq(tg.Str("x")))}})
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
}

func TestBuildSymbolsAndFields(t *testing.T) {
	table, _, err := tg.Build(tg.Grammar{
		Name: "pairs",
		Rules: []tg.Definition{
			tg.Def("list", tg.Repeat1(tg.Sym("_entry"))),
			tg.Def("_entry", tg.Sym("pair")),
			tg.Def("pair", tg.Seq(
				tg.Field("key", tg.Alias(tg.Sym("word"), "key")),
				tg.Str(":"),
				tg.Field("value", tg.Sym("word")),
			)),
			tg.Def("word", tg.Pat(`[a-z]+`)),
		},
		Extras: []tg.Rule{tg.Pat(`\s`)},
	})
	require.NoError(t, err)

	word, ok := table.SymbolForName("word", true)
	require.True(t, ok)
	assert.True(t, table.IsTerminal(word))
	colon, ok := table.SymbolForName(":", false)
	require.True(t, ok)
	assert.True(t, table.IsTerminal(colon))

	_, ok = table.SymbolForName("key", true)
	assert.True(t, ok, "aliases get their own visible symbol")
	_, ok = table.SymbolForName("_entry", true)
	assert.False(t, ok)
	assert.Equal(t, grammar.SymbolTypeAuxiliary, table.SymbolType(grammar.Symbol(table.SymbolCount()-2)))

	assert.Equal(t, []string{"", "key", "value"}, table.Fields)
	pair, ok := table.SymbolForName("pair", true)
	require.True(t, ok)
	var found bool
	for _, p := range table.Productions {
		if p.Symbol != pair {
			continue
		}
		found = true
		assert.Equal(t, uint16(3), p.ChildCount)
		assert.Equal(t, []grammar.FieldID{1, 0, 2}, p.Fields)
		key, _ := table.SymbolForName("key", true)
		assert.Equal(t, key, p.AliasAt(0))
		assert.Equal(t, grammar.Symbol(0), p.AliasAt(2))
	}
	assert.True(t, found)
}

func TestBuildErrors(t *testing.T) {
	tests := []struct {
		name    string
		grammar tg.Grammar
		want    string
	}{
		{"no rules", tg.Grammar{Name: "empty"}, "has no rules"},
		{"duplicate", tg.Grammar{Rules: []tg.Definition{
			tg.Def("a", tg.Str("a")), tg.Def("a", tg.Str("b")),
		}}, "defined twice"},
		{"undefined", tg.Grammar{Rules: []tg.Definition{
			tg.Def("a", tg.Sym("b")),
		}}, `undefined rule "b"`},
		{"hidden start", tg.Grammar{Rules: []tg.Definition{
			tg.Def("_a", tg.Seq(tg.Str("a"))),
		}}, "must be visible"},
		{"token start", tg.Grammar{Rules: []tg.Definition{
			tg.Def("a", tg.Pat("a")),
		}}, "must not be a token"},
		{"bad extra", tg.Grammar{
			Rules:  []tg.Definition{tg.Def("a", tg.Seq(tg.Str("a")))},
			Extras: []tg.Rule{tg.Sym("a")},
		}, "must be a token rule"},
		{"bad supertype", tg.Grammar{
			Rules:      []tg.Definition{tg.Def("a", tg.Seq(tg.Str("a")))},
			Supertypes: []string{"b"},
		}, "is not a rule"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := tg.Build(tt.grammar)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.Panics(t, func() { tg.MustBuild(tg.Grammar{Name: "empty"}) })
}

func TestFromEBNF(t *testing.T) {
	src := `
Doc = Item { "," Item } .
Item = name | Pair .
Pair = name "=" value .
name = letter { letter } .
value = digit { digit } .
letter = "a" … "z" .
digit = "0" … "9" .
`
	g, err := tg.FromEBNF("doc.ebnf", strings.NewReader(src), "Doc")
	require.NoError(t, err)
	assert.Equal(t, "doc", g.Name)
	assert.Equal(t, "Doc", g.Rules[0].Name)

	table, report, err := tg.Build(g)
	require.NoError(t, err)
	assert.Empty(t, report.Conflicts)
	for _, name := range []string{"Doc", "Item", "Pair", "name", "value"} {
		_, ok := table.SymbolForName(name, true)
		assert.True(t, ok, name)
	}
	_, ok := table.SymbolForName("letter", true)
	assert.False(t, ok, "lexical helpers are inlined")

	_, err = tg.FromEBNF("bad.ebnf", strings.NewReader(`Doc = ( .`), "Doc")
	assert.ErrorContains(t, err, "parse grammar")
	_, err = tg.FromEBNF("bad.ebnf", strings.NewReader(`Doc = Missing .`), "Doc")
	assert.ErrorContains(t, err, "verify grammar")
}
