package syntax

import (
	"github.com/dhamidi/arbor/grammar"
)

// Tree is the result of a parse. It may be read from several goroutines;
// Edit must not race with readers.
type Tree struct {
	root     *subtree
	language *grammar.Table
	ranges   []Range
	text     []byte
}

func (t *Tree) Root() Node {
	return Node{tree: t, sub: t.root, start: t.root.padding}
}

// RootWithOffset returns the root as if the document started at the given
// byte offset and point.
func (t *Tree) RootWithOffset(offset uint32, point Point) Node {
	base := length{bytes: offset, extent: point}
	return Node{tree: t, sub: t.root, start: base.add(t.root.padding)}
}

func (t *Tree) Language() *grammar.Table { return t.language }

func (t *Tree) IncludedRanges() []Range {
	return append([]Range(nil), t.ranges...)
}

// Copy returns a tree that shares all records with t and can be edited
// independently.
func (t *Tree) Copy() *Tree {
	c := *t
	c.ranges = append([]Range(nil), t.ranges...)
	return &c
}

// Text returns the source the tree was parsed from. It is unavailable
// once the tree has been edited.
func (t *Tree) Text() ([]byte, bool) {
	return t.text, t.text != nil
}

func (t *Tree) Walk() *TreeCursor {
	return NewTreeCursor(t.Root())
}

func (t *Tree) String() string {
	return t.Root().PatternString()
}

// Edit records a change to the source text. Records on the path to the
// edit are copied; everything else stays shared with other trees.
func (t *Tree) Edit(e InputEdit) {
	t.root = editSubtree(t.language, t.root, edit{
		start:  length{bytes: e.StartByte, extent: e.StartPoint},
		oldEnd: length{bytes: e.OldEndByte, extent: e.OldEndPoint},
		newEnd: length{bytes: e.NewEndByte, extent: e.NewEndPoint},
	})
	t.text = nil
	for i := range t.ranges {
		t.ranges[i] = editRange(t.ranges[i], e)
	}
}

func editRange(r Range, e InputEdit) Range {
	if r.EndByte >= e.OldEndByte {
		if r.EndByte != ^uint32(0) {
			r.EndByte = e.NewEndByte + (r.EndByte - e.OldEndByte)
			r.EndPoint = pointAdd(e.NewEndPoint, pointSub(r.EndPoint, e.OldEndPoint))
		}
	} else if r.EndByte > e.StartByte {
		r.EndByte, r.EndPoint = e.StartByte, e.StartPoint
	}
	if r.StartByte >= e.OldEndByte {
		r.StartByte = e.NewEndByte + (r.StartByte - e.OldEndByte)
		r.StartPoint = pointAdd(e.NewEndPoint, pointSub(r.StartPoint, e.OldEndPoint))
	} else if r.StartByte > e.StartByte {
		r.StartByte, r.StartPoint = e.StartByte, e.StartPoint
	}
	return r
}

// edit is an InputEdit expressed relative to the start of a record,
// padding included.
type edit struct {
	start, oldEnd, newEnd length
}

func editSubtree(lang *grammar.Table, s *subtree, e edit) *subtree {
	total := s.total()
	pureInsertion := e.oldEnd.bytes == e.start.bytes
	noop := pureInsertion && e.newEnd.bytes == e.start.bytes
	if e.start.bytes > total.bytes || (noop && e.start.bytes == total.bytes) {
		return s
	}

	c := s.clone()
	c.flags |= flagHasChanges
	padding, size := s.padding, s.size
	switch {
	case e.oldEnd.bytes <= padding.bytes:
		padding = e.newEnd.add(padding.sub(e.oldEnd))
	case e.start.bytes < padding.bytes:
		size = size.sub(e.oldEnd.sub(padding))
		padding = e.newEnd
	case e.start.bytes < total.bytes || (e.start.bytes == total.bytes && pureInsertion):
		size = e.newEnd.sub(padding).add(total.sub(e.oldEnd))
	}
	if len(s.children) == 0 {
		c.padding, c.size = padding, size
		return c
	}

	var right length
	for i, child := range s.children {
		childTotal := child.total()
		left := right
		right = left.add(childTotal)
		if right.bytes < e.start.bytes {
			continue
		}
		if left.bytes > e.oldEnd.bytes || (left.bytes == e.oldEnd.bytes && childTotal.bytes > 0 && i > 0) {
			break
		}
		ce := edit{
			start:  e.start.sub(left),
			oldEnd: e.oldEnd.sub(left),
			newEnd: e.newEnd.sub(left),
		}
		if right.bytes > e.start.bytes || (right.bytes == e.start.bytes && pureInsertion) {
			// Inserted text belongs to the first child touching the edit;
			// later children only lose text.
			e.newEnd = e.start
		} else {
			ce.oldEnd, ce.newEnd = ce.start, ce.start
		}
		c.children[i] = editSubtree(lang, child, ce)
	}
	c.summarize(lang)
	return c
}
