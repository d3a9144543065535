package syntax

import "github.com/dhamidi/arbor/grammar"

// cursorFrame is one record on the path from the cursor's root. Frames of
// hidden records sit between a node and its children; the cursor never
// rests on one.
type cursorFrame struct {
	node    Node
	field   grammar.FieldID
	visible bool
	// index is the position among the parent record's children.
	index int
	// child is the position among the visible parent's children. For a
	// hidden record it is that of the first child inside it.
	child uint32
	// descendant is the pre-order index below the cursor's root. For a
	// hidden record it is that of the first node inside it.
	descendant uint32
	depth      uint32
}

// weight returns how many children and descendants the frame's record
// contributes to its visible parent.
func (f *cursorFrame) weight() (children, descendants uint32) {
	if f.visible {
		return 1, 1 + f.node.sub.descendants
	}
	return f.node.sub.visibleChildren, f.node.sub.descendants
}

// firstInside returns the child and descendant index of the first node
// inside the frame's record.
func (f *cursorFrame) firstInside() (child, descendant uint32) {
	if f.visible {
		return 0, f.descendant + 1
	}
	return f.child, f.descendant
}

// TreeCursor walks a tree without recomputing positions. It cannot move
// above the node it was created or reset with.
type TreeCursor struct {
	stack []cursorFrame
}

func NewTreeCursor(n Node) *TreeCursor {
	c := &TreeCursor{}
	c.Reset(n)
	return c
}

func (c *TreeCursor) top() *cursorFrame { return &c.stack[len(c.stack)-1] }

func (c *TreeCursor) Node() Node {
	if len(c.stack) == 0 {
		return Node{}
	}
	return c.top().node
}

func (c *TreeCursor) FieldID() grammar.FieldID {
	if len(c.stack) == 0 {
		return 0
	}
	return c.top().field
}

func (c *TreeCursor) FieldName() string {
	if len(c.stack) == 0 {
		return ""
	}
	n := c.top().node
	return n.tree.language.FieldName(c.top().field)
}

// Depth is zero at the node the cursor was reset to.
func (c *TreeCursor) Depth() uint32 {
	if len(c.stack) == 0 {
		return 0
	}
	return c.top().depth
}

// DescendantIndex is the pre-order index of the current node below the
// cursor's root, which has index 0.
func (c *TreeCursor) DescendantIndex() uint32 {
	if len(c.stack) == 0 {
		return 0
	}
	return c.top().descendant
}

func (c *TreeCursor) Reset(n Node) {
	c.stack = c.stack[:0]
	if n.sub != nil {
		c.stack = append(c.stack, cursorFrame{node: n, visible: true})
	}
}

func (c *TreeCursor) ResetTo(other *TreeCursor) {
	c.stack = append(c.stack[:0], other.stack...)
}

func (c *TreeCursor) Copy() *TreeCursor {
	return &TreeCursor{stack: append([]cursorFrame(nil), c.stack...)}
}

// Close releases the cursor; afterwards every movement fails.
func (c *TreeCursor) Close() {
	c.stack = nil
}

// enter pushes child i of the top record. A field on a hidden record
// passes to children that have none.
func (c *TreeCursor) enter(i int, child, descendant uint32) {
	p := c.top()
	s := p.node.sub
	field := s.fieldAt(i)
	if field == 0 && !p.visible {
		field = p.field
	}
	visible := s.visibleAt(i)
	depth := p.depth
	if visible {
		depth++
	}
	frame := cursorFrame{
		node: Node{
			tree:  p.node.tree,
			sub:   s.children[i],
			start: p.node.start.add(s.offsets[i]),
			alias: s.aliasAt(i),
		},
		field:      field,
		visible:    visible,
		index:      i,
		child:      child,
		descendant: descendant,
		depth:      depth,
	}
	c.stack = append(c.stack, frame)
}

// descendFirst moves from the top record to the first node inside it,
// entering hidden records on the way.
func (c *TreeCursor) descendFirst() bool {
	base := len(c.stack)
	for {
		p := c.top()
		child, descendant := p.firstInside()
		k := -1
		for i := range p.node.sub.children {
			if n, _ := p.node.sub.weight(i); n > 0 {
				k = i
				break
			}
		}
		if k < 0 {
			c.stack = c.stack[:base]
			return false
		}
		c.enter(k, child, descendant)
		if c.top().visible {
			return true
		}
	}
}

// descendLast moves from the top record to the last node inside it.
func (c *TreeCursor) descendLast() bool {
	base := len(c.stack)
	for {
		p := c.top()
		child, descendant := p.firstInside()
		k := -1
		var n, d uint32
		for i := range p.node.sub.children {
			cn, cd := p.node.sub.weight(i)
			if cn == 0 {
				continue
			}
			if k >= 0 {
				child += n
				descendant += d
			}
			k, n, d = i, cn, cd
		}
		if k < 0 {
			c.stack = c.stack[:base]
			return false
		}
		c.enter(k, child, descendant)
		if c.top().visible {
			return true
		}
	}
}

func (c *TreeCursor) GotoFirstChild() bool {
	if len(c.stack) == 0 {
		return false
	}
	return c.descendFirst()
}

func (c *TreeCursor) GotoLastChild() bool {
	if len(c.stack) == 0 {
		return false
	}
	return c.descendLast()
}

func (c *TreeCursor) GotoParent() bool {
	if len(c.stack) <= 1 {
		return false
	}
	c.stack = c.stack[:len(c.stack)-1]
	for !c.top().visible {
		c.stack = c.stack[:len(c.stack)-1]
	}
	return true
}

func (c *TreeCursor) GotoNextSibling() bool {
	for k := len(c.stack) - 1; k > 0; k-- {
		f := c.stack[k]
		parent := c.stack[k-1]
		n, d := f.weight()
		child, descendant := f.child+n, f.descendant+d
		s := parent.node.sub
		for i := f.index + 1; i < len(s.children); i++ {
			if cn, _ := s.weight(i); cn == 0 {
				continue
			}
			c.stack = c.stack[:k]
			c.enter(i, child, descendant)
			return c.top().visible || c.descendFirst()
		}
		if parent.visible {
			return false
		}
	}
	return false
}

func (c *TreeCursor) GotoPreviousSibling() bool {
	for k := len(c.stack) - 1; k > 0; k-- {
		f := c.stack[k]
		parent := c.stack[k-1]
		s := parent.node.sub
		for i := f.index - 1; i >= 0; i-- {
			cn, cd := s.weight(i)
			if cn == 0 {
				continue
			}
			c.stack = c.stack[:k]
			c.enter(i, f.child-cn, f.descendant-cd)
			return c.top().visible || c.descendLast()
		}
		if parent.visible {
			return false
		}
	}
	return false
}

// GotoDescendant moves to the node with the given pre-order index below
// the cursor's root. It returns false and leaves the cursor at the root
// when the index is out of range.
func (c *TreeCursor) GotoDescendant(index uint32) bool {
	if len(c.stack) == 0 {
		return false
	}
	c.stack = c.stack[:1]
	if index > c.stack[0].node.sub.descendants {
		return false
	}
	for !c.top().visible || c.top().descendant != index {
		p := c.top()
		child, descendant := p.firstInside()
		found := false
		for i := range p.node.sub.children {
			cn, cd := p.node.sub.weight(i)
			if cd == 0 {
				continue
			}
			if index < descendant+cd {
				c.enter(i, child, descendant)
				found = true
				break
			}
			child += cn
			descendant += cd
		}
		if !found {
			c.stack = c.stack[:1]
			return false
		}
	}
	return true
}

// GotoFirstChildForByte moves to the first child that ends after offset
// and returns its index.
func (c *TreeCursor) GotoFirstChildForByte(offset uint32) (int, bool) {
	return c.gotoFirstChildWhere(func(end length) bool { return end.bytes > offset })
}

func (c *TreeCursor) GotoFirstChildForPoint(p Point) (int, bool) {
	return c.gotoFirstChildWhere(func(end length) bool { return end.extent.Compare(p) > 0 })
}

func (c *TreeCursor) gotoFirstChildWhere(after func(end length) bool) (int, bool) {
	if len(c.stack) == 0 {
		return -1, false
	}
	base := len(c.stack)
	for {
		p := c.top()
		child, descendant := p.firstInside()
		s := p.node.sub
		k := -1
		for i, ch := range s.children {
			cn, cd := s.weight(i)
			if cn == 0 {
				continue
			}
			if after(p.node.start.add(s.offsets[i]).add(ch.size)) {
				k = i
				break
			}
			child += cn
			descendant += cd
		}
		if k < 0 {
			c.stack = c.stack[:base]
			return -1, false
		}
		c.enter(k, child, descendant)
		if c.top().visible {
			return int(child), true
		}
	}
}
