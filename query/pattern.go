package query

import "github.com/dhamidi/arbor/grammar"

// Quantifier says how many nodes a capture holds in one match.
type Quantifier int

const (
	QuantifierZero Quantifier = iota
	QuantifierZeroOrOne
	QuantifierZeroOrMore
	QuantifierOne
	QuantifierOneOrMore
)

func (q Quantifier) String() string {
	switch q {
	case QuantifierZero:
		return "zero"
	case QuantifierZeroOrOne:
		return "?"
	case QuantifierZeroOrMore:
		return "*"
	case QuantifierOneOrMore:
		return "+"
	default:
		return "one"
	}
}

func (q Quantifier) optional() bool {
	return q == QuantifierZeroOrOne || q == QuantifierZeroOrMore || q == QuantifierZero
}

func (q Quantifier) repeats() bool {
	return q == QuantifierZeroOrMore || q == QuantifierOneOrMore
}

// times nests quantifier b inside a.
func (q Quantifier) times(b Quantifier) Quantifier {
	switch {
	case q == QuantifierZero || b == QuantifierZero:
		return QuantifierZero
	case q == QuantifierOne:
		return b
	case b == QuantifierOne:
		return q
	case q == b && q != QuantifierOneOrMore && q != QuantifierZeroOrOne:
		return q
	case q == QuantifierOneOrMore && b == QuantifierOneOrMore:
		return QuantifierOneOrMore
	case q == QuantifierZeroOrOne && b == QuantifierZeroOrOne:
		return QuantifierZeroOrOne
	default:
		return QuantifierZeroOrMore
	}
}

// or combines the quantifiers of two alternatives.
func (q Quantifier) or(b Quantifier) Quantifier {
	if q == b {
		return q
	}
	if q > b {
		q, b = b, q
	}
	switch {
	case q == QuantifierZero && b == QuantifierOne, q == QuantifierZero && b == QuantifierZeroOrOne,
		q == QuantifierZeroOrOne && b == QuantifierOne:
		return QuantifierZeroOrOne
	case q == QuantifierOne && b == QuantifierOneOrMore:
		return QuantifierOneOrMore
	default:
		return QuantifierZeroOrMore
	}
}

// plus combines two occurrences of a capture in one sequence.
func (q Quantifier) plus(b Quantifier) Quantifier {
	switch {
	case q == QuantifierZero:
		return b
	case b == QuantifierZero:
		return q
	case q.optional() && b.optional():
		return QuantifierZeroOrMore
	default:
		return QuantifierOneOrMore
	}
}

type stepKind int

const (
	stepNode stepKind = iota
	stepAlternation
	stepGroup
)

// step is one element of a compiled pattern. Node steps match a single
// node, groups match a run of siblings and alternations match whichever
// alternative fits.
type step struct {
	kind   stepKind
	offset int

	// symbols lists the accepted node symbols; nil accepts any symbol.
	symbols []grammar.Symbol
	named   bool
	missing bool

	field    grammar.FieldID
	negated  []grammar.FieldID
	children []*step
	// anchored requires this child to follow the previous one (or start
	// the list) without named nodes in between.
	anchored  bool
	anchorEnd bool

	quant        Quantifier
	captures     []uint32
	alternatives []*step

	guaranteed bool
}

func (s *step) acceptsSymbol(sym grammar.Symbol) bool {
	if s.symbols == nil {
		return true
	}
	for _, x := range s.symbols {
		if x == sym {
			return true
		}
	}
	return false
}

// walk visits s and every step below it in source order.
func (s *step) walk(fn func(*step)) {
	fn(s)
	for _, a := range s.alternatives {
		a.walk(fn)
	}
	for _, c := range s.children {
		c.walk(fn)
	}
}

type pattern struct {
	root       *step
	start, end int
	row        int

	steps      []PredicateStep
	predicates []predicate
	settings   []Property
	assertions []Property

	captureQuantifiers map[uint32]Quantifier
	rooted             bool
	disabled           bool
}

// quantifiers computes how many nodes each capture of s holds.
func quantifiers(s *step) map[uint32]Quantifier {
	out := make(map[uint32]Quantifier)
	switch s.kind {
	case stepAlternation:
		seen := make(map[uint32]bool)
		var parts []map[uint32]Quantifier
		for _, a := range s.alternatives {
			q := quantifiers(a)
			parts = append(parts, q)
			for id := range q {
				seen[id] = true
			}
		}
		for id := range seen {
			acc, first := QuantifierZero, true
			for _, q := range parts {
				if first {
					acc, first = q[id], false
					continue
				}
				acc = acc.or(q[id])
			}
			out[id] = acc
		}
	default:
		for _, c := range s.children {
			for id, q := range quantifiers(c) {
				out[id] = out[id].plus(q)
			}
		}
	}
	for _, id := range s.captures {
		out[id] = out[id].plus(QuantifierOne)
	}
	for id, q := range out {
		out[id] = s.quant.times(q)
	}
	return out
}
