package syntax

import (
	"sync/atomic"

	"github.com/dhamidi/arbor/grammar"
)

type subtreeFlags uint8

const (
	flagExtra subtreeFlags = 1 << iota
	flagMissing
	flagHasChanges
	flagHasError
	flagHidden
)

var lastSubtreeID atomic.Uint64

// subtree is an immutable record shared between trees. Positions are
// stored relative to the parent so that a record stays valid when text
// before it changes. Records of hidden rules stay in the tree; nodes see
// through them, so a hidden record's visible children count as children
// of its nearest visible ancestor.
type subtree struct {
	id      uint64
	symbol  grammar.Symbol
	flags   subtreeFlags
	padding length
	size    length

	children []*subtree
	// offsets[i] is the distance from this node's content start to the
	// content start of children[i].
	offsets []length
	fields  []grammar.FieldID
	aliases []grammar.Symbol

	// visibleChildren and namedChildren count the children a node sees,
	// looking through hidden records.
	visibleChildren uint32
	namedChildren   uint32
	// descendants counts the visible nodes strictly below this record.
	descendants uint32
	// height is the depth of the run of same-symbol records below this
	// one; repetitions are kept balanced on it.
	height uint32

	parseState grammar.StateID
	// follow is the lookahead symbol that caused the reduction.
	follow grammar.Symbol
	// char is the offending character of an unexpected-character leaf.
	char rune
}

func (s *subtree) is(f subtreeFlags) bool { return s.flags&f != 0 }

func (s *subtree) extra() bool { return s.is(flagExtra) }

func (s *subtree) missing() bool { return s.is(flagMissing) }

func (s *subtree) total() length { return s.padding.add(s.size) }

func (s *subtree) fieldAt(i int) grammar.FieldID {
	if i < len(s.fields) {
		return s.fields[i]
	}
	return 0
}

func (s *subtree) aliasAt(i int) grammar.Symbol {
	if i < len(s.aliases) {
		return s.aliases[i]
	}
	return 0
}

// visibleAt reports whether children[i] is a node of its own rather than
// a record to look through. An alias makes a hidden record visible.
func (s *subtree) visibleAt(i int) bool {
	return !s.children[i].is(flagHidden) || s.aliasAt(i) != 0
}

// weight returns how many visible children and visible descendants
// children[i] contributes to this record.
func (s *subtree) weight(i int) (children, descendants uint32) {
	c := s.children[i]
	if s.visibleAt(i) {
		return 1, 1 + c.descendants
	}
	return c.visibleChildren, c.descendants
}

func newLeaf(sym grammar.Symbol, padding, size length, state grammar.StateID) *subtree {
	s := &subtree{
		id:         lastSubtreeID.Add(1),
		symbol:     sym,
		padding:    padding,
		size:       size,
		parseState: state,
	}
	if sym == grammar.SymbolError {
		s.flags |= flagHasError
	}
	return s
}

func newMissingLeaf(sym grammar.Symbol, state grammar.StateID) *subtree {
	s := newLeaf(sym, length{}, length{}, state)
	s.flags |= flagMissing | flagHasError
	return s
}

// newNode builds an interior record. fields and aliases may be nil.
func newNode(lang *grammar.Table, sym grammar.Symbol, children []*subtree, fields []grammar.FieldID, aliases []grammar.Symbol) *subtree {
	s := &subtree{
		id:       lastSubtreeID.Add(1),
		symbol:   sym,
		children: children,
		fields:   fields,
		aliases:  aliases,
	}
	if sym == grammar.SymbolError {
		s.flags |= flagHasError
	} else if !lang.Symbol(sym).Visible {
		s.flags |= flagHidden
	}
	s.summarize(lang)
	return s
}

// summarize recomputes the aggregates that depend on the children.
func (s *subtree) summarize(lang *grammar.Table) {
	s.visibleChildren, s.namedChildren, s.descendants = 0, 0, 0
	s.offsets = make([]length, len(s.children))
	s.padding, s.size = length{}, length{}
	if s.symbol == grammar.SymbolError || s.missing() {
		s.flags |= flagHasError
	} else {
		s.flags &^= flagHasError
	}
	var end length
	for i, c := range s.children {
		if i == 0 {
			s.padding = c.padding
			end = c.size
		} else {
			s.offsets[i] = end.add(c.padding)
			end = s.offsets[i].add(c.size)
		}
		if c.is(flagHasError) {
			s.flags |= flagHasError
		}
		kids, desc := s.weight(i)
		s.visibleChildren += kids
		s.descendants += desc
		if !s.visibleAt(i) {
			s.namedChildren += c.namedChildren
			continue
		}
		sym := c.symbol
		if a := s.aliasAt(i); a != 0 {
			sym = a
		}
		if sym == grammar.SymbolError || lang.Symbol(sym).Named {
			s.namedChildren++
		}
	}
	s.size = end
	s.height = s.chainHeight()
}

func (s *subtree) chainHeight() uint32 {
	if len(s.children) == 0 {
		return 0
	}
	var h uint32
	for _, c := range s.children {
		if c.symbol == s.symbol && !c.extra() && c.height > h {
			h = c.height
		}
	}
	return h + 1
}

// clone returns a shallow copy that keeps the identity of s, so handles
// taken before an edit still find the record afterwards.
func (s *subtree) clone() *subtree {
	c := *s
	c.children = append([]*subtree(nil), s.children...)
	return &c
}
