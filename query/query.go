// Package query compiles structural patterns and runs them against
// syntax trees.
//
// Pattern source follows the familiar s-expression notation:
//
//	(binary_expression
//	  left: (identifier) @left
//	  operator: "+"
//	  right: (_) @right)
//
//	((identifier) @constant
//	 (#match? @constant "^[A-Z]"))
//
// A compiled Query is immutable apart from DisablePattern and
// DisableCapture and may be shared by several cursors. A Cursor executes
// one query at a time and is not safe for concurrent use.
package query

import (
	"fmt"

	"github.com/dhamidi/arbor/grammar"
)

type Query struct {
	lang     *grammar.Table
	source   string
	patterns []*pattern
	captures []string
	strings  []string
	disabled map[uint32]bool
}

// New compiles source against lang. The returned error is a *Error.
func New(lang *grammar.Table, source string) (*Query, error) {
	q := &Query{lang: lang, source: source, disabled: make(map[uint32]bool)}
	c := &compiler{src: source, lang: lang, info: infoFor(lang), q: q}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return q, nil
}

func (q *Query) Language() *grammar.Table { return q.lang }

func (q *Query) Source() string { return q.source }

func (q *Query) PatternCount() int { return len(q.patterns) }

func (q *Query) CaptureCount() int { return len(q.captures) }

func (q *Query) StringCount() int { return len(q.strings) }

func (q *Query) captureID(name string) uint32 {
	for i, n := range q.captures {
		if n == name {
			return uint32(i)
		}
	}
	q.captures = append(q.captures, name)
	return uint32(len(q.captures) - 1)
}

func (q *Query) stringID(value string) uint32 {
	for i, s := range q.strings {
		if s == value {
			return uint32(i)
		}
	}
	q.strings = append(q.strings, value)
	return uint32(len(q.strings) - 1)
}

func (q *Query) pattern(i int) (*pattern, error) {
	if i < 0 || i >= len(q.patterns) {
		return nil, fmt.Errorf("%w: %d of %d", ErrPatternIndex, i, len(q.patterns))
	}
	return q.patterns[i], nil
}

func (q *Query) CaptureNameForID(id uint32) (string, bool) {
	if int(id) >= len(q.captures) {
		return "", false
	}
	return q.captures[id], true
}

func (q *Query) CaptureIndexForName(name string) (uint32, bool) {
	for i, n := range q.captures {
		if n == name {
			return uint32(i), true
		}
	}
	return 0, false
}

func (q *Query) StringValueForID(id uint32) (string, bool) {
	if int(id) >= len(q.strings) {
		return "", false
	}
	return q.strings[id], true
}

// StartByteForPattern returns the offset of the pattern in the source.
func (q *Query) StartByteForPattern(i int) (int, error) {
	p, err := q.pattern(i)
	if err != nil {
		return 0, err
	}
	return p.start, nil
}

// EndByteForPattern returns the offset just past the pattern and the
// whitespace following it.
func (q *Query) EndByteForPattern(i int) (int, error) {
	p, err := q.pattern(i)
	if err != nil {
		return 0, err
	}
	return p.end, nil
}

// IsPatternRooted reports whether the pattern matches a single node
// rather than a run of siblings.
func (q *Query) IsPatternRooted(i int) (bool, error) {
	p, err := q.pattern(i)
	if err != nil {
		return false, err
	}
	return p.rooted, nil
}

// IsPatternNonLocal reports whether the pattern can match across a
// sequence of sibling nodes.
func (q *Query) IsPatternNonLocal(i int) (bool, error) {
	p, err := q.pattern(i)
	if err != nil {
		return false, err
	}
	return !p.rooted, nil
}

// CaptureQuantifier returns how many nodes capture id holds in a match of
// pattern i.
func (q *Query) CaptureQuantifier(i int, id uint32) (Quantifier, error) {
	p, err := q.pattern(i)
	if err != nil {
		return QuantifierZero, err
	}
	return p.captureQuantifiers[id], nil
}

// PredicatesForPattern returns the raw predicate steps of pattern i. Each
// predicate starts with its name as a string step and ends with StepDone.
func (q *Query) PredicatesForPattern(i int) ([]PredicateStep, error) {
	p, err := q.pattern(i)
	if err != nil {
		return nil, err
	}
	return p.steps, nil
}

// Settings returns the properties set with #set! in pattern i.
func (q *Query) Settings(i int) ([]Property, error) {
	p, err := q.pattern(i)
	if err != nil {
		return nil, err
	}
	return p.settings, nil
}

// Assertions returns the properties checked with #is? and #is-not? in
// pattern i.
func (q *Query) Assertions(i int) ([]Property, error) {
	p, err := q.pattern(i)
	if err != nil {
		return nil, err
	}
	return p.assertions, nil
}

// IsPatternGuaranteedAtStep reports whether a pattern is certain to match
// once the step at offset in the source has matched. The answer is
// conservative: a step counts as guaranteed only when nothing after it in
// its pattern is required and the pattern has no text predicates.
func (q *Query) IsPatternGuaranteedAtStep(offset int) (bool, error) {
	if offset < 0 || offset > len(q.source) {
		return false, fmt.Errorf("%w: %d of %d", ErrOffsetOutOfRange, offset, len(q.source))
	}
	var found *step
	for _, p := range q.patterns {
		if p.start > offset {
			break
		}
		p.root.walk(func(s *step) {
			if s.kind == stepNode && s.offset <= offset {
				found = s
			}
		})
	}
	return found != nil && found.guaranteed, nil
}

// DisablePattern stops pattern i from producing matches. It cannot be
// undone.
func (q *Query) DisablePattern(i int) error {
	p, err := q.pattern(i)
	if err != nil {
		return err
	}
	p.disabled = true
	return nil
}

// DisableCapture stops the named capture from being recorded in matches.
// It cannot be undone.
func (q *Query) DisableCapture(name string) error {
	id, ok := q.CaptureIndexForName(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrNoSuchCapture, name)
	}
	q.disabled[id] = true
	return nil
}
