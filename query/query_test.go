package query_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dhamidi/arbor/grammars"
	"github.com/dhamidi/arbor/query"
)

func compile(t *testing.T, src string) *query.Query {
	t.Helper()
	q, err := query.New(grammars.Calc(), src)
	require.NoError(t, err)
	return q
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name   string
		source string
		kind   query.ErrorKind
		row    int
		column int
		text   string
	}{
		{"missing open paren", "identifier)", query.ErrorSyntax, 0, 0, "identifier"},
		{"capture at eof", "(identifier) @", query.ErrorSyntax, -1, -1, ""},
		{"unterminated", "(identifier", query.ErrorSyntax, -1, -1, ""},
		{"empty alternation", "[]", query.ErrorSyntax, 0, 0, ""},
		{"top level predicate", "(#set! foo)", query.ErrorSyntax, 0, 0, ""},
		{"unknown capture", "((identifier) @foo\n (#eq? @bar \"x\"))", query.ErrorCapture, 1, 8, "bar"},
		{"unknown node", "(foo)", query.ErrorNodeType, 0, 1, "foo"},
		{"unknown literal", "\"%\"", query.ErrorNodeType, 0, 1, ""},
		{"unknown field", "foo: (identifier)", query.ErrorField, 0, 0, "foo"},
		{"unknown nested field", "(binary_expression left: (identifier) bogus: (number))", query.ErrorField, 0, 38, "bogus"},
		{"impossible child", "(program (identifier))", query.ErrorStructure, 0, 9, ""},
		{"not a subtype", "(_expression/program)", query.ErrorStructure, 0, 13, "program"},
		{"predicate arity", "\n((identifier) @foo\n (#any-of?))", query.ErrorPredicate, 1, 0, "#any-of? expects at least 2 arguments, got 0"},
		{"predicate literal first", "((identifier) @foo (#eq? \"x\" @foo))", query.ErrorPredicate, 0, 0, "first argument to #eq? must be a capture name, got \"x\""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := query.New(grammars.Calc(), tt.source)
			require.Error(t, err)
			var qerr *query.Error
			require.True(t, errors.As(err, &qerr), "got %T", err)
			assert.Equal(t, tt.kind, qerr.Kind, qerr.Error())
			assert.Equal(t, tt.row, qerr.Row)
			assert.Equal(t, tt.column, qerr.Column)
			assert.Equal(t, tt.text, qerr.Text)
		})
	}
}

func TestNewBadRegexp(t *testing.T) {
	_, err := query.New(grammars.Calc(), `((identifier) @id (#match? @id "["))`)
	var qerr *query.Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, query.ErrorPredicate, qerr.Kind)
	assert.Contains(t, qerr.Error(), "pattern error")
}

func TestNewEmpty(t *testing.T) {
	q := compile(t, "; nothing but a comment\n")
	assert.Equal(t, 0, q.PatternCount())
}

const letSource = `(identifier) @identifier

(let_declaration
    name: (identifier) @name
    value: (_) @value)
`

func TestIntrospection(t *testing.T) {
	q := compile(t, letSource)
	assert.Equal(t, 2, q.PatternCount())
	assert.Equal(t, 3, q.CaptureCount())
	assert.Equal(t, letSource, q.Source())

	start, err := q.StartByteForPattern(0)
	require.NoError(t, err)
	assert.Equal(t, 0, start)
	end, err := q.EndByteForPattern(0)
	require.NoError(t, err)
	assert.Equal(t, 26, end)
	start, err = q.StartByteForPattern(1)
	require.NoError(t, err)
	assert.Equal(t, 26, start)
	end, err = q.EndByteForPattern(1)
	require.NoError(t, err)
	assert.Equal(t, len(letSource), end)

	for i := range 2 {
		rooted, err := q.IsPatternRooted(i)
		require.NoError(t, err)
		assert.True(t, rooted)
		nonLocal, err := q.IsPatternNonLocal(i)
		require.NoError(t, err)
		assert.False(t, nonLocal)
	}

	for i, name := range []string{"identifier", "name", "value"} {
		got, ok := q.CaptureNameForID(uint32(i))
		require.True(t, ok)
		assert.Equal(t, name, got)
		id, ok := q.CaptureIndexForName(name)
		require.True(t, ok)
		assert.Equal(t, uint32(i), id)
	}
	_, ok := q.CaptureNameForID(3)
	assert.False(t, ok)
	_, ok = q.CaptureIndexForName("missing")
	assert.False(t, ok)

	name, _ := q.CaptureIndexForName("name")
	quant, err := q.CaptureQuantifier(1, name)
	require.NoError(t, err)
	assert.Equal(t, query.QuantifierOne, quant)
	quant, err = q.CaptureQuantifier(0, name)
	require.NoError(t, err)
	assert.Equal(t, query.QuantifierZero, quant)

	_, err = q.StartByteForPattern(2)
	assert.ErrorIs(t, err, query.ErrPatternIndex)
	_, err = q.IsPatternRooted(-1)
	assert.ErrorIs(t, err, query.ErrPatternIndex)
}

func TestNonLocalPatterns(t *testing.T) {
	tests := []struct {
		source string
		rooted bool
	}{
		{"(identifier)", true},
		{"[(identifier) (number)]", true},
		{"(identifier)+ @ids", false},
		{"(identifier)? @id", false},
		{"((expression_statement) (expression_statement))", false},
		{"((identifier) @id (#eq? @id \"x\"))", true},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			q := compile(t, tt.source)
			rooted, err := q.IsPatternRooted(0)
			require.NoError(t, err)
			assert.Equal(t, tt.rooted, rooted)
			nonLocal, err := q.IsPatternNonLocal(0)
			require.NoError(t, err)
			assert.Equal(t, !tt.rooted, nonLocal)
		})
	}
}

func TestCaptureQuantifiers(t *testing.T) {
	tests := []struct {
		source string
		want   query.Quantifier
	}{
		{"(argument_list (number) @n)", query.QuantifierOne},
		{"(argument_list (number)? @n)", query.QuantifierZeroOrOne},
		{"(argument_list (number)* @n)", query.QuantifierZeroOrMore},
		{"(argument_list (number)+ @n)", query.QuantifierOneOrMore},
		{"(argument_list (number) @n (number) @n)", query.QuantifierOneOrMore},
		{"(argument_list [(number) @n (identifier) @i])", query.QuantifierZeroOrOne},
		{"(argument_list ((number) @n)*)", query.QuantifierZeroOrMore},
	}
	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			q := compile(t, tt.source)
			id, ok := q.CaptureIndexForName("n")
			require.True(t, ok)
			got, err := q.CaptureQuantifier(0, id)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got, "got %s", got)
		})
	}
}

func TestPredicateSteps(t *testing.T) {
	q := compile(t, `((identifier) @a (#eq? @a "x"))`)
	steps, err := q.PredicatesForPattern(0)
	require.NoError(t, err)
	require.Len(t, steps, 4)
	assert.Equal(t, query.StepString, steps[0].Type)
	assert.Equal(t, query.StepCapture, steps[1].Type)
	assert.Equal(t, query.StepString, steps[2].Type)
	assert.Equal(t, query.StepDone, steps[3].Type)

	assert.Equal(t, 2, q.StringCount())
	name, ok := q.StringValueForID(steps[0].ValueID)
	require.True(t, ok)
	assert.Equal(t, "eq?", name)
	capture, _ := q.CaptureNameForID(steps[1].ValueID)
	assert.Equal(t, "a", capture)
	lit, _ := q.StringValueForID(steps[2].ValueID)
	assert.Equal(t, "x", lit)
	_, ok = q.StringValueForID(2)
	assert.False(t, ok)
}

func TestSettingsAndAssertions(t *testing.T) {
	q := compile(t, `
((identifier) @foo (#set! foo))
((identifier) @foo (#set! foo "FOO"))
((identifier) @foo (#is? local) (#is-not? global "yes"))
`)
	settings, err := q.Settings(0)
	require.NoError(t, err)
	assert.Equal(t, []query.Property{{Key: "foo", Positive: true}}, settings)

	settings, err = q.Settings(1)
	require.NoError(t, err)
	assert.Equal(t, []query.Property{{Key: "foo", Value: "FOO", HasValue: true, Positive: true}}, settings)

	assertions, err := q.Assertions(2)
	require.NoError(t, err)
	assert.Equal(t, []query.Property{
		{Key: "local", Positive: true},
		{Key: "global", Value: "yes", HasValue: true},
	}, assertions)

	_, err = q.Settings(3)
	assert.ErrorIs(t, err, query.ErrPatternIndex)
}

func TestIsPatternGuaranteedAtStep(t *testing.T) {
	src := "(let_declaration name: (identifier) @n value: (number))\n((identifier) @a (#eq? @a \"x\"))"
	q := compile(t, src)

	tests := []struct {
		at   int
		want bool
	}{
		{0, false},
		{strings.Index(src, "(identifier)"), false},
		{strings.Index(src, "(number)"), true},
		{strings.Index(src, "(number)") + 3, true},
		{strings.LastIndex(src, "(identifier)"), false},
	}
	for _, tt := range tests {
		got, err := q.IsPatternGuaranteedAtStep(tt.at)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "offset %d", tt.at)
	}

	_, err := q.IsPatternGuaranteedAtStep(len(src) + 1)
	assert.ErrorIs(t, err, query.ErrOffsetOutOfRange)
}

func TestDisableErrors(t *testing.T) {
	q := compile(t, "(identifier) @id")
	assert.ErrorIs(t, q.DisablePattern(1), query.ErrPatternIndex)
	assert.ErrorIs(t, q.DisableCapture("nope"), query.ErrNoSuchCapture)
	assert.NoError(t, q.DisablePattern(0))
	assert.NoError(t, q.DisableCapture("id"))
}
