package syntax

import (
	"fmt"

	"github.com/dhamidi/arbor/grammar"
)

// Node is a lightweight handle to a record in a tree. The zero Node is
// the null node.
type Node struct {
	tree  *Tree
	sub   *subtree
	start length
	alias grammar.Symbol
}

func (n Node) IsNull() bool { return n.sub == nil }

// ID is unique among the nodes of a tree. Tree.Edit keeps the ID of
// every node, so a handle taken before an edit still identifies its node
// afterwards; a reparse gives new IDs to the nodes it rebuilds.
func (n Node) ID() uint64 {
	if n.sub == nil {
		return 0
	}
	return n.sub.id
}

// Equal reports whether both handles name the same node of the same
// tree. Positions are not compared, so a handle that missed Node.Edit
// still equals a fresh one.
func (n Node) Equal(o Node) bool {
	if n.tree != o.tree || (n.sub == nil) != (o.sub == nil) {
		return false
	}
	return n.sub == nil || n.sub.id == o.sub.id
}

func (n Node) Tree() *Tree { return n.tree }

func (n Node) Language() *grammar.Table { return n.tree.language }

func (n Node) child(i int) (Node, bool) {
	ref, ok := n.sub.childAt(uint32(i), n.start)
	if !ok {
		return Node{}, false
	}
	return n.at(ref), true
}

// Symbol returns the alias symbol if the node is aliased, otherwise the
// grammar symbol.
func (n Node) Symbol() grammar.Symbol {
	if n.alias != 0 {
		return n.alias
	}
	return n.sub.symbol
}

func (n Node) Type() string { return n.tree.language.SymbolName(n.Symbol()) }

func (n Node) GrammarSymbol() grammar.Symbol { return n.sub.symbol }

func (n Node) GrammarType() string { return n.tree.language.SymbolName(n.sub.symbol) }

func (n Node) IsNamed() bool {
	sym := n.Symbol()
	return sym == grammar.SymbolError || n.tree.language.Symbol(sym).Named
}

func (n Node) IsExtra() bool { return n.sub.extra() }

func (n Node) IsError() bool { return n.sub.symbol == grammar.SymbolError }

func (n Node) IsMissing() bool { return n.sub.missing() }

// HasError reports whether the node is or contains an error or missing
// node.
func (n Node) HasError() bool { return n.sub.is(flagHasError) }

func (n Node) HasChanges() bool { return n.sub.is(flagHasChanges) }

func (n Node) ParseState() grammar.StateID { return n.sub.parseState }

func (n Node) NextParseState() grammar.StateID {
	if n.IsError() {
		return 0
	}
	return n.tree.language.NextState(n.sub.parseState, n.sub.symbol)
}

func (n Node) StartByte() uint32 { return n.start.bytes }

func (n Node) EndByte() uint32 { return n.start.bytes + n.sub.size.bytes }

func (n Node) StartPoint() Point { return n.start.extent }

func (n Node) EndPoint() Point { return n.start.add(n.sub.size).extent }

func (n Node) Range() Range {
	return Range{StartPoint: n.StartPoint(), EndPoint: n.EndPoint(), StartByte: n.StartByte(), EndByte: n.EndByte()}
}

func (n Node) ChildCount() uint32 { return n.sub.visibleChildren }

func (n Node) NamedChildCount() uint32 { return n.sub.namedChildren }

// DescendantCount counts the node itself and everything below it.
func (n Node) DescendantCount() uint32 { return 1 + n.sub.descendants }

func (n Node) Child(i int) (Node, error) {
	if i >= 0 && uint32(i) < n.sub.visibleChildren {
		if c, ok := n.child(i); ok {
			return c, nil
		}
	}
	return Node{}, fmt.Errorf("child %d of %s with %d children: %w", i, n.Type(), n.sub.visibleChildren, ErrIndexOutOfRange)
}

func (n Node) NamedChild(i int) (Node, error) {
	if i >= 0 {
		seen := 0
		it := newChildIter(n.sub, n.start)
		for ref, ok := it.next(); ok; ref, ok = it.next() {
			c := n.at(ref)
			if !c.IsNamed() {
				continue
			}
			if seen == i {
				return c, nil
			}
			seen++
		}
	}
	return Node{}, fmt.Errorf("named child %d of %s with %d named children: %w", i, n.Type(), n.sub.namedChildren, ErrIndexOutOfRange)
}

// Children lists the children using cursor, which is reset to n.
func (n Node) Children(cursor *TreeCursor) []Node {
	cursor.Reset(n)
	var out []Node
	if !cursor.GotoFirstChild() {
		return nil
	}
	for {
		out = append(out, cursor.Node())
		if !cursor.GotoNextSibling() {
			break
		}
	}
	cursor.Reset(n)
	return out
}

func (n Node) NamedChildren(cursor *TreeCursor) []Node {
	var out []Node
	for _, c := range n.Children(cursor) {
		if c.IsNamed() {
			out = append(out, c)
		}
	}
	return out
}

func (n Node) ChildByFieldID(id grammar.FieldID) (Node, bool) {
	if id == 0 {
		return Node{}, false
	}
	it := newChildIter(n.sub, n.start)
	for ref, ok := it.next(); ok; ref, ok = it.next() {
		if ref.field == id {
			return n.at(ref), true
		}
	}
	return Node{}, false
}

func (n Node) ChildByFieldName(name string) (Node, bool) {
	id, ok := n.tree.language.FieldIDForName(name)
	if !ok {
		return Node{}, false
	}
	return n.ChildByFieldID(id)
}

func (n Node) ChildrenByFieldID(id grammar.FieldID, cursor *TreeCursor) []Node {
	if id == 0 {
		return nil
	}
	cursor.Reset(n)
	var out []Node
	if cursor.GotoFirstChild() {
		for {
			if cursor.FieldID() == id {
				out = append(out, cursor.Node())
			}
			if !cursor.GotoNextSibling() {
				break
			}
		}
	}
	cursor.Reset(n)
	return out
}

func (n Node) ChildrenByFieldName(name string, cursor *TreeCursor) []Node {
	id, ok := n.tree.language.FieldIDForName(name)
	if !ok {
		return nil
	}
	return n.ChildrenByFieldID(id, cursor)
}

// FieldIDForChild returns the field of the i-th child, or 0.
func (n Node) FieldIDForChild(i int) grammar.FieldID {
	if i < 0 {
		return 0
	}
	ref, ok := n.sub.childAt(uint32(i), n.start)
	if !ok {
		return 0
	}
	return ref.field
}

func (n Node) FieldNameForChild(i int) string {
	return n.tree.language.FieldName(n.FieldIDForChild(i))
}

func (n Node) FieldNameForNamedChild(i int) string {
	seen := 0
	it := newChildIter(n.sub, n.start)
	for ref, ok := it.next(); ok; ref, ok = it.next() {
		if !n.at(ref).IsNamed() {
			continue
		}
		if seen == i {
			return n.tree.language.FieldName(ref.field)
		}
		seen++
	}
	return ""
}

// Parent is found by descending from the root, so it costs O(depth).
// Nodes are matched by ID, so handles from before Tree.Edit work too.
func (n Node) Parent() (Node, bool) {
	if n.sub == nil || n.tree == nil {
		return Node{}, false
	}
	cur := n.tree.Root()
	if cur.sub.id == n.sub.id {
		return Node{}, false
	}
	for {
		next, ok := cur.ChildWithDescendant(n)
		if !ok {
			return Node{}, false
		}
		if next.sub.id == n.sub.id {
			return cur, true
		}
		cur = next
	}
}

func (n Node) indexInParent() (Node, uint32, bool) {
	parent, ok := n.Parent()
	if !ok {
		return Node{}, 0, false
	}
	var index uint32
	found := false
	parent.eachChildNear(byteSide(n.StartByte()), func(c Node, i uint32) bool {
		if c.sub.id == n.sub.id {
			index, found = i, true
			return false
		}
		return true
	})
	return parent, index, found
}

func (n Node) NextSibling() (Node, bool) {
	parent, i, ok := n.indexInParent()
	if !ok {
		return Node{}, false
	}
	return parent.child(int(i) + 1)
}

func (n Node) PrevSibling() (Node, bool) {
	parent, i, ok := n.indexInParent()
	if !ok || i == 0 {
		return Node{}, false
	}
	return parent.child(int(i) - 1)
}

func (n Node) NextNamedSibling() (Node, bool) {
	parent, i, ok := n.indexInParent()
	if !ok {
		return Node{}, false
	}
	for k := int(i) + 1; k < int(parent.sub.visibleChildren); k++ {
		if c, ok := parent.child(k); ok && c.IsNamed() {
			return c, true
		}
	}
	return Node{}, false
}

func (n Node) PrevNamedSibling() (Node, bool) {
	parent, i, ok := n.indexInParent()
	if !ok {
		return Node{}, false
	}
	for k := int(i) - 1; k >= 0; k-- {
		if c, ok := parent.child(k); ok && c.IsNamed() {
			return c, true
		}
	}
	return Node{}, false
}

// ChildWithDescendant returns the child of n that is or contains d. Only
// the children around d's start are searched.
func (n Node) ChildWithDescendant(d Node) (Node, bool) {
	if n.sub == nil || d.sub == nil {
		return Node{}, false
	}
	var out Node
	found := false
	n.eachChildNear(byteSide(d.StartByte()), func(c Node, _ uint32) bool {
		if contains(c, d) {
			out, found = c, true
			return false
		}
		return true
	})
	return out, found
}

// ChildContainingDescendant is like ChildWithDescendant but never returns
// d itself.
func (n Node) ChildContainingDescendant(d Node) (Node, bool) {
	c, ok := n.ChildWithDescendant(d)
	if !ok || c.sub.id == d.sub.id {
		return Node{}, false
	}
	return c, true
}

func contains(n, d Node) bool {
	if n.sub.id == d.sub.id {
		return true
	}
	found := false
	n.eachChildNear(byteSide(d.StartByte()), func(c Node, _ uint32) bool {
		found = contains(c, d)
		return !found
	})
	return found
}

func (n Node) DescendantForByteRange(start, end uint32) (Node, bool) {
	return n.descendantForRange(start, end, true)
}

func (n Node) NamedDescendantForByteRange(start, end uint32) (Node, bool) {
	return n.descendantForRange(start, end, false)
}

func (n Node) DescendantForPointRange(start, end Point) (Node, bool) {
	return n.descendantForPoints(start, end, true)
}

func (n Node) NamedDescendantForPointRange(start, end Point) (Node, bool) {
	return n.descendantForPoints(start, end, false)
}

// descendantForRange finds the smallest node containing [start, end].
// Empty nodes match only when the range touches them.
func (n Node) descendantForRange(start, end uint32, anonymous bool) (Node, bool) {
	if start > end {
		return Node{}, false
	}
	node, last := n, n
	for {
		var next Node
		descended := false
		node.eachChildNear(byteSide(start), func(c Node, _ uint32) bool {
			cEnd := c.EndByte()
			if cEnd < end {
				return true
			}
			empty := c.StartByte() == cEnd
			if (empty && cEnd < start) || (!empty && cEnd <= start) {
				return true
			}
			if start < c.StartByte() {
				return false
			}
			next, descended = c, true
			return false
		})
		if !descended {
			return last, true
		}
		node = next
		if anonymous || next.IsNamed() {
			last = next
		}
	}
}

func (n Node) descendantForPoints(start, end Point, anonymous bool) (Node, bool) {
	if start.Compare(end) > 0 {
		return Node{}, false
	}
	node, last := n, n
	for {
		var next Node
		descended := false
		node.eachChildNear(pointSide(start), func(c Node, _ uint32) bool {
			cEnd := c.EndPoint()
			if cEnd.Compare(end) < 0 {
				return true
			}
			empty := c.StartPoint() == cEnd
			if (empty && cEnd.Compare(start) < 0) || (!empty && cEnd.Compare(start) <= 0) {
				return true
			}
			if start.Compare(c.StartPoint()) < 0 {
				return false
			}
			next, descended = c, true
			return false
		})
		if !descended {
			return last, true
		}
		node = next
		if anonymous || next.IsNamed() {
			last = next
		}
	}
}

// Edit adjusts a node handle obtained before t.Edit(e) so that its
// position matches the edited text.
func (n *Node) Edit(e InputEdit) {
	start := n.start
	switch {
	case start.bytes >= e.OldEndByte:
		start = length{
			bytes:  e.NewEndByte + (start.bytes - e.OldEndByte),
			extent: pointAdd(e.NewEndPoint, pointSub(start.extent, e.OldEndPoint)),
		}
	case start.bytes > e.StartByte:
		start = length{bytes: e.NewEndByte, extent: e.NewEndPoint}
	}
	n.start = start
}

func (n Node) Walk() *TreeCursor { return NewTreeCursor(n) }

// Text returns the source covered by the node, or nil when the tree no
// longer has its source.
func (n Node) Text() []byte {
	src := n.tree.text
	if src == nil || int(n.EndByte()) > len(src) {
		return nil
	}
	return src[n.StartByte():n.EndByte()]
}

func (n Node) String() string { return n.PatternString() }
