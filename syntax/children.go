package syntax

import "github.com/dhamidi/arbor/grammar"

// childRef locates a child record: where its content starts, and the
// field and alias it carries in its parent. A field on a hidden record
// passes to the children inside it that have none of their own.
type childRef struct {
	sub   *subtree
	start length
	field grammar.FieldID
	alias grammar.Symbol
}

func (n Node) at(ref childRef) Node {
	return Node{tree: n.tree, sub: ref.sub, start: ref.start, alias: ref.alias}
}

// childIter yields the visible children of a record in order, entering
// hidden records on the way.
type childIter struct {
	stack []iterFrame
}

type iterFrame struct {
	sub   *subtree
	start length
	field grammar.FieldID
	next  int
}

func newChildIter(s *subtree, start length) *childIter {
	return &childIter{stack: []iterFrame{{sub: s, start: start}}}
}

// peek returns the next raw child without consuming it. hidden reports
// whether it is a record to look through.
func (it *childIter) peek() (ref childRef, hidden, ok bool) {
	for len(it.stack) > 0 {
		f := &it.stack[len(it.stack)-1]
		if f.next < len(f.sub.children) {
			i := f.next
			field := f.sub.fieldAt(i)
			if field == 0 {
				field = f.field
			}
			ref = childRef{
				sub:   f.sub.children[i],
				start: f.start.add(f.sub.offsets[i]),
				field: field,
				alias: f.sub.aliasAt(i),
			}
			return ref, !f.sub.visibleAt(i), true
		}
		it.stack = it.stack[:len(it.stack)-1]
	}
	return childRef{}, false, false
}

// skip consumes the child peek returned.
func (it *childIter) skip() { it.stack[len(it.stack)-1].next++ }

// enter consumes the hidden record peek returned and continues with its
// children.
func (it *childIter) enter(ref childRef) {
	it.skip()
	it.stack = append(it.stack, iterFrame{sub: ref.sub, start: ref.start, field: ref.field})
}

func (it *childIter) next() (childRef, bool) {
	for {
		ref, hidden, ok := it.peek()
		if !ok {
			return childRef{}, false
		}
		if !hidden {
			it.skip()
			return ref, true
		}
		it.enter(ref)
	}
}

// childAt finds the i-th visible child of s, whose content begins at
// start, skipping whole hidden records by their child counts.
func (s *subtree) childAt(i uint32, start length) (childRef, bool) {
	var inherited grammar.FieldID
	for {
		found := false
		for k, c := range s.children {
			count, _ := s.weight(k)
			if i >= count {
				i -= count
				continue
			}
			field := s.fieldAt(k)
			if field == 0 {
				field = inherited
			}
			ref := childRef{sub: c, start: start.add(s.offsets[k]), field: field, alias: s.aliasAt(k)}
			if s.visibleAt(k) {
				return ref, true
			}
			s, start, inherited = c, ref.start, field
			found = true
			break
		}
		if !found {
			return childRef{}, false
		}
	}
}

// side places a child span relative to a search target: negative when it
// lies entirely before, positive when entirely after, zero otherwise.
type side func(start, end length) int

func byteSide(offset uint32) side {
	return func(start, end length) int {
		switch {
		case end.bytes < offset:
			return -1
		case start.bytes > offset:
			return 1
		}
		return 0
	}
}

func pointSide(p Point) side {
	return func(start, end length) int {
		switch {
		case end.extent.Compare(p) < 0:
			return -1
		case start.extent.Compare(p) > 0:
			return 1
		}
		return 0
	}
}

// eachChildNear calls fn, in order, for the visible children of n that
// touch the target, along with their index among n's children. Hidden
// records away from the target are skipped without being entered. fn
// returns false to stop.
func (n Node) eachChildNear(where side, fn func(c Node, index uint32) bool) {
	var index uint32
	n.near(n.sub, n.start, where, &index, fn)
}

func (n Node) near(s *subtree, start length, where side, index *uint32, fn func(Node, uint32) bool) bool {
	for k, c := range s.children {
		cs := start.add(s.offsets[k])
		count, _ := s.weight(k)
		switch where(cs, cs.add(c.size)) {
		case -1:
			*index += count
			continue
		case 1:
			return false
		}
		if s.visibleAt(k) {
			if !fn(Node{tree: n.tree, sub: c, start: cs, alias: s.aliasAt(k)}, *index) {
				return false
			}
			*index++
			continue
		}
		if !n.near(c, cs, where, index, fn) {
			return false
		}
	}
	return true
}
