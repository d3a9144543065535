package query

import (
	"slices"
	"strconv"
	"strings"

	"github.com/dhamidi/arbor/grammar"
	"github.com/dhamidi/arbor/syntax"
)

// kid is a node together with the field it occupies in its parent.
type kid struct {
	node  syntax.Node
	field grammar.FieldID
}

type binding struct {
	id   uint32
	node syntax.Node
}

// solution is one way a pattern matches at a root node. last is the
// sibling-level node furthest to the right that the pattern consumed.
type solution struct {
	caps []binding
	last syntax.Node
}

// matcher tries compiled steps against nodes by backtracking. Every
// continuation reports whether it found at least one complete match.
type matcher struct {
	q  *Query
	tc *syntax.TreeCursor
}

func newMatcher(q *Query) *matcher {
	return &matcher{q: q, tc: &syntax.TreeCursor{}}
}

func (m *matcher) kidsOf(n syntax.Node) []kid {
	var kids []kid
	m.tc.Reset(n)
	for ok := m.tc.GotoFirstChild(); ok; ok = m.tc.GotoNextSibling() {
		kids = append(kids, kid{node: m.tc.Node(), field: m.tc.FieldID()})
	}
	return kids
}

func (m *matcher) bind(caps []binding, ids []uint32, n syntax.Node) []binding {
	if len(ids) == 0 {
		return caps
	}
	out := slices.Clip(caps)
	for _, id := range ids {
		if m.q.disabled[id] {
			continue
		}
		out = append(out, binding{id: id, node: n})
	}
	return out
}

// anonymous reports whether s only matches anonymous nodes. Anchors
// skip anonymous siblings unless the anchored step is one itself.
func (m *matcher) anonymous(s *step) bool {
	if s.kind != stepNode || s.symbols == nil {
		return false
	}
	for _, sym := range s.symbols {
		if sym == grammar.SymbolError || m.q.lang.Symbol(sym).Named {
			return false
		}
	}
	return true
}

// solve returns the distinct ways p matches with kids[0] as its first
// node. kids holds the root followed by its later siblings.
func (m *matcher) solve(p *pattern, kids []kid) []solution {
	root := *p.root
	switch root.quant {
	case QuantifierZeroOrOne, QuantifierZero:
		root.quant = QuantifierOne
	case QuantifierZeroOrMore:
		root.quant = QuantifierOneOrMore
	}
	root.anchored = false

	var out []solution
	seen := make(map[string]bool)
	m.seq([]*step{&root}, 0, kids, 0, true, false, nil, func(next int, caps []binding) bool {
		if next == 0 {
			return false
		}
		key := solutionKey(caps)
		if !seen[key] {
			seen[key] = true
			out = append(out, solution{caps: caps, last: kids[next-1].node})
		}
		return true
	})
	return out
}

func solutionKey(caps []binding) string {
	var b strings.Builder
	for _, c := range caps {
		b.WriteString(strconv.FormatUint(uint64(c.id), 10))
		b.WriteByte(':')
		b.WriteString(strconv.FormatUint(c.node.ID(), 10))
		b.WriteByte('@')
		b.WriteString(strconv.FormatUint(uint64(c.node.StartByte()), 10))
		b.WriteByte(' ')
	}
	return b.String()
}

// seq matches items[i:] against kids from position j. When exact is set
// the first remaining item must start at kids[j].
func (m *matcher) seq(items []*step, i int, kids []kid, j int, exact, anchorEnd bool, caps []binding, done func(int, []binding) bool) bool {
	if i == len(items) {
		if anchorEnd {
			for _, k := range kids[j:] {
				if k.node.IsNamed() {
					return false
				}
			}
		}
		return done(j, caps)
	}
	s := items[i]
	next := func(j2 int, c []binding) bool {
		return m.seq(items, i+1, kids, j2, false, anchorEnd, c, done)
	}
	switch {
	case s.quant.repeats():
		return m.repeat(s, kids, j, exact, caps, next)
	case s.quant == QuantifierZeroOrOne:
		if m.place(s, kids, j, exact, caps, next) {
			return true
		}
		return m.seq(items, i+1, kids, j, exact, anchorEnd, caps, done)
	case s.quant == QuantifierZero:
		return m.seq(items, i+1, kids, j, exact, anchorEnd, caps, done)
	default:
		return m.place(s, kids, j, exact, caps, next)
	}
}

// place tries s at every position it may start from j.
func (m *matcher) place(s *step, kids []kid, j int, exact bool, caps []binding, cont func(int, []binding) bool) bool {
	found := false
	for p := j; p < len(kids); p++ {
		if m.elem(s, kids, p, caps, cont) {
			found = true
		}
		if exact || (s.anchored && (kids[p].node.IsNamed() || m.anonymous(s))) {
			break
		}
	}
	return found
}

// repeat matches the longest run of s it can find and then shorter runs
// until the rest of the sequence accepts one.
func (m *matcher) repeat(s *step, kids []kid, j int, exact bool, caps []binding, cont func(int, []binding) bool) bool {
	type state struct {
		next int
		caps []binding
	}
	states := []state{{next: j, caps: caps}}
	cur, c := j, caps
	for {
		var got *state
		for p := cur; p < len(kids); p++ {
			ok := m.elem(s, kids, p, c, func(n int, cc []binding) bool {
				if got == nil {
					got = &state{next: n, caps: cc}
				}
				return true
			})
			if ok {
				break
			}
			first := len(states) == 1
			if first && (exact || (s.anchored && (kids[p].node.IsNamed() || m.anonymous(s)))) {
				break
			}
		}
		if got == nil || got.next <= cur {
			break
		}
		states = append(states, *got)
		cur, c = got.next, got.caps
	}
	least := 0
	if s.quant == QuantifierOneOrMore {
		least = 1
	}
	for n := len(states) - 1; n >= least; n-- {
		if cont(states[n].next, states[n].caps) {
			return true
		}
	}
	return false
}

// elem matches s starting exactly at kids[p], ignoring its quantifier.
func (m *matcher) elem(s *step, kids []kid, p int, caps []binding, cont func(int, []binding) bool) bool {
	if p >= len(kids) {
		return false
	}
	k := kids[p]
	if s.field != 0 && k.field != s.field {
		return false
	}
	switch s.kind {
	case stepNode:
		return m.node(s, k.node, caps, func(c []binding) bool { return cont(p+1, c) })
	case stepAlternation:
		caps = m.bind(caps, s.captures, k.node)
		found := false
		for _, a := range s.alternatives {
			if a.quant == QuantifierOne {
				if m.elem(a, kids, p, caps, cont) {
					found = true
				}
				continue
			}
			if m.seq([]*step{a}, 0, kids, p, true, false, caps, cont) {
				found = true
			}
		}
		return found
	default:
		caps = m.bind(caps, s.captures, k.node)
		return m.seq(s.children, 0, kids, p, true, false, caps, cont)
	}
}

// node matches a node step against n and its children.
func (m *matcher) node(s *step, n syntax.Node, caps []binding, cont func([]binding) bool) bool {
	switch {
	case s.missing:
		if !n.IsMissing() || (s.symbols != nil && !s.acceptsSymbol(n.Symbol())) {
			return false
		}
	case s.symbols != nil:
		if !s.acceptsSymbol(n.Symbol()) {
			return false
		}
	case s.named:
		if !n.IsNamed() {
			return false
		}
	}
	for _, f := range s.negated {
		if _, ok := n.ChildByFieldID(f); ok {
			return false
		}
	}
	caps = m.bind(caps, s.captures, n)
	if len(s.children) == 0 {
		return cont(caps)
	}
	return m.seq(s.children, 0, m.kidsOf(n), 0, false, s.anchorEnd, caps, func(_ int, c []binding) bool {
		return cont(c)
	})
}
