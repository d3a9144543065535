package syntax

import (
	"math"
	"sort"

	"github.com/dhamidi/arbor/grammar"
)

// noState marks balanced repetition records that no parse state could
// have produced. They are never offered for reuse.
const noState = grammar.StateID(math.MaxUint16)

// A repetition reduces as a left-leaning chain of hidden records, one per
// item, which would make every lookup and every edit below it linear in
// the number of items. balance reshapes each chain built by the current
// parse into a balanced binary tree of records of the same symbol. Items
// keep their own records, so an unchanged item is still shared with the
// previous tree.
//
// Only records on the left spine of a rebuilt repetition keep a parse
// state, and only when they end where an original chain record ended:
// those are exactly the prefixes the parser could have reduced in that
// state, so they remain valid reuse candidates.

// unit is one child of a repetition with the field and alias it had in
// its chain record.
type unit struct {
	sub   *subtree
	field grammar.FieldID
	alias grammar.Symbol
}

// chainEnd records that a chain record covered the first count units and
// was reduced on follow.
type chainEnd struct {
	count  int
	follow grammar.Symbol
}

// created reports whether s was built by this parse.
func (r *run) created(s *subtree) bool { return s.id > r.firstID }

// chained reports whether s extends a repetition: a hidden record whose
// first child is a plain record of the same symbol.
func chained(s *subtree) bool {
	return s.is(flagHidden) && len(s.children) > 0 &&
		s.children[0].symbol == s.symbol && !s.children[0].extra() &&
		s.fieldAt(0) == 0 && s.aliasAt(0) == 0
}

// balance rebuilds the repetitions below s that this parse created and
// returns the record that replaces s.
func (r *run) balance(s *subtree) *subtree {
	if !r.created(s) || len(s.children) == 0 {
		return s
	}
	if chained(s) {
		return r.balanceChain(s)
	}
	for i, c := range s.children {
		s.children[i] = r.balance(c)
	}
	s.height = s.chainHeight()
	return s
}

func (r *run) balanceChain(top *subtree) *subtree {
	var chain []*subtree
	x := top
	for r.created(x) && chained(x) {
		chain = append(chain, x)
		x = x.children[0]
	}

	var (
		prefix *subtree
		units  []unit
		ends   []chainEnd
	)
	if r.created(x) {
		for i, c := range x.children {
			units = append(units, unit{sub: c, field: x.fieldAt(i), alias: x.aliasAt(i)})
		}
		ends = append(ends, chainEnd{count: len(units), follow: x.follow})
	} else {
		prefix = x
	}
	for i := len(chain) - 1; i >= 0; i-- {
		c := chain[i]
		for k := 1; k < len(c.children); k++ {
			units = append(units, unit{sub: c.children[k], field: c.fieldAt(k), alias: c.aliasAt(k)})
		}
		ends = append(ends, chainEnd{count: len(units), follow: c.follow})
	}
	if len(units) == 0 {
		return top
	}
	for i := range units {
		units[i].sub = r.balance(units[i].sub)
	}

	var out *subtree
	if prefix == nil {
		out = r.buildBalanced(top.symbol, units, top.parseState, ends)
	} else {
		out = r.join(prefix, r.buildBalanced(top.symbol, units, noState, nil))
	}
	out.parseState, out.follow = top.parseState, top.follow
	r.parser.logf(LogTypeParse, "balance sym:%s, items:%d", r.name(top.symbol), len(units))
	return out
}

// buildBalanced makes a tree of records over units, splitting at the
// middle. Left-spine records that end on a chain boundary take state and
// the follow symbol of that boundary.
func (r *run) buildBalanced(sym grammar.Symbol, units []unit, state grammar.StateID, ends []chainEnd) *subtree {
	var node *subtree
	if len(units) <= 2 {
		var (
			children = make([]*subtree, len(units))
			fields   []grammar.FieldID
			aliases  []grammar.Symbol
		)
		for i, u := range units {
			children[i] = u.sub
			if u.field != 0 {
				if fields == nil {
					fields = make([]grammar.FieldID, len(units))
				}
				fields[i] = u.field
			}
			if u.alias != 0 {
				if aliases == nil {
					aliases = make([]grammar.Symbol, len(units))
				}
				aliases[i] = u.alias
			}
		}
		node = newNode(r.lang, sym, children, fields, aliases)
	} else {
		mid := len(units) / 2
		left := r.buildBalanced(sym, units[:mid], state, ends)
		right := r.buildBalanced(sym, units[mid:], noState, nil)
		node = newNode(r.lang, sym, []*subtree{left, right}, nil, nil)
	}
	node.parseState = noState
	if state != noState {
		k := sort.Search(len(ends), func(i int) bool { return ends[i].count >= len(units) })
		if k < len(ends) && ends[k].count == len(units) {
			node.parseState, node.follow = state, ends[k].follow
		}
	}
	return node
}

// join puts left and right under one record, descending the taller side
// so the result stays balanced.
func (r *run) join(left, right *subtree) *subtree {
	switch {
	case left.height > right.height+1 && splittable(left):
		return r.pair(left.children[0], r.join(left.children[1], right))
	case right.height > left.height+1 && splittable(right):
		return r.pair(r.join(left, right.children[0]), right.children[1])
	default:
		return r.pair(left, right)
	}
}

func (r *run) pair(left, right *subtree) *subtree {
	n := newNode(r.lang, left.symbol, []*subtree{left, right}, nil, nil)
	n.parseState = noState
	return n
}

// splittable reports whether s is an inner record of a balanced
// repetition.
func splittable(s *subtree) bool {
	if len(s.children) != 2 {
		return false
	}
	for i, c := range s.children {
		if c.symbol != s.symbol || c.extra() || s.fieldAt(i) != 0 || s.aliasAt(i) != 0 {
			return false
		}
	}
	return true
}
