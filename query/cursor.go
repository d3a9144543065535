package query

import (
	"fmt"
	"math"
	"slices"
	"sort"
	"time"

	"github.com/dhamidi/arbor/syntax"
)

// Capture is a node bound to a capture name in a match.
type Capture struct {
	Node  syntax.Node
	Index uint32
	Name  string
}

// Match is one complete match of a pattern. Captures are ordered by
// start byte.
type Match struct {
	ID           uint32
	PatternIndex int
	Captures     []Capture

	start, end           uint32
	startPoint, endPoint syntax.Point
	src                  []byte
	emitted              int
}

// Nodes returns the nodes captured under id, in document order.
func (m *Match) Nodes(id uint32) []syntax.Node {
	var out []syntax.Node
	for _, c := range m.Captures {
		if c.Index == id {
			out = append(out, c.Node)
		}
	}
	return out
}

func (m *Match) texts(id uint32) [][]byte {
	var out [][]byte
	for _, c := range m.Captures {
		if c.Index != id {
			continue
		}
		if m.src != nil && int(c.Node.EndByte()) <= len(m.src) {
			out = append(out, m.src[c.Node.StartByte():c.Node.EndByte()])
		} else {
			out = append(out, c.Node.Text())
		}
	}
	return out
}

// State is reported to the progress callback before each node is
// visited.
type State struct {
	CurrentByteOffset uint32
}

type Options struct {
	// Progress is called before each node. Returning false stops the
	// execution; no further matches are produced.
	Progress func(State) bool
	// Text is the source the tree was parsed from. It is only needed when
	// text predicates run against a tree that no longer holds its source.
	Text []byte
}

// frame is one level of the walk: the current node, its index among its
// siblings, and the sibling list once a pattern has needed it.
type frame struct {
	node  syntax.Node
	index int
	kids  []kid
}

// Cursor executes a query over a tree. Its settings survive Exec; its
// matches do not.
type Cursor struct {
	matchLimit    uint32
	exceeded      bool
	maxStartDepth uint32
	startByte     uint32
	endByte       uint32
	startPoint    syntax.Point
	endPoint      syntax.Point
	timeout       uint64
	filter        PredicateFilter

	q        *Query
	m        *matcher
	tc       *syntax.TreeCursor
	frames   []frame
	pos      uint32
	done     bool
	deadline time.Time
	opts     Options
	nextID   uint32
	pending  []*Match
	closed   bool
}

var maxPoint = syntax.Point{Row: math.MaxUint32, Column: math.MaxUint32}

func NewCursor() *Cursor {
	return &Cursor{
		matchLimit:    math.MaxUint32,
		maxStartDepth: math.MaxUint32,
		endByte:       math.MaxUint32,
		endPoint:      maxPoint,
		done:          true,
	}
}

func (c *Cursor) SetMatchLimit(limit uint32) {
	if limit == 0 {
		limit = 1
	}
	c.matchLimit = limit
}

func (c *Cursor) MatchLimit() uint32 { return c.matchLimit }

// DidExceedMatchLimit reports whether a match was dropped during the
// current execution.
func (c *Cursor) DidExceedMatchLimit() bool { return c.exceeded }

// SetMaxStartDepth limits how far below the executed node a pattern may
// start. Depth 0 is the node itself.
func (c *Cursor) SetMaxStartDepth(depth uint32) { c.maxStartDepth = depth }

func (c *Cursor) MaxStartDepth() uint32 { return c.maxStartDepth }

// SetByteRange restricts matches to those intersecting [start, end).
func (c *Cursor) SetByteRange(start, end uint32) error {
	if start > end {
		return fmt.Errorf("%w: byte range %d-%d", ErrInvalidRange, start, end)
	}
	c.startByte, c.endByte = start, end
	return nil
}

// SetPointRange restricts matches to those intersecting [start, end).
func (c *Cursor) SetPointRange(start, end syntax.Point) error {
	if start.Compare(end) > 0 {
		return fmt.Errorf("%w: point range %s-%s", ErrInvalidRange, start, end)
	}
	c.startPoint, c.endPoint = start, end
	return nil
}

// SetTimeoutMicros bounds each execution. Zero disables the timeout.
func (c *Cursor) SetTimeoutMicros(timeout uint64) { c.timeout = timeout }

func (c *Cursor) TimeoutMicros() uint64 { return c.timeout }

// SetPredicateFilter installs the callback that decides predicates the
// engine does not know.
func (c *Cursor) SetPredicateFilter(f PredicateFilter) { c.filter = f }

// Exec starts running q over the subtree rooted at node.
func (c *Cursor) Exec(q *Query, node syntax.Node) {
	c.ExecWithOptions(q, node, Options{})
}

func (c *Cursor) ExecWithOptions(q *Query, node syntax.Node, opts Options) {
	if c.closed {
		return
	}
	c.q = q
	c.m = newMatcher(q)
	c.opts = opts
	if c.opts.Text == nil && !node.IsNull() {
		c.opts.Text, _ = node.Tree().Text()
	}
	c.exceeded = false
	c.nextID = 0
	c.pending = c.pending[:0]
	c.frames = c.frames[:0]
	c.deadline = time.Time{}
	if c.timeout > 0 {
		c.deadline = time.Now().Add(time.Duration(c.timeout) * time.Microsecond)
	}
	if c.tc == nil {
		c.tc = syntax.NewTreeCursor(node)
	} else {
		c.tc.Reset(node)
	}
	c.done = node.IsNull()
	if !c.done {
		c.frames = append(c.frames, frame{node: node})
		c.pos = node.StartByte()
	}
}

// Close ends the current execution. Later calls report no matches.
func (c *Cursor) Close() {
	c.closed = true
	c.done = true
	c.pending = nil
	if c.tc != nil {
		c.tc.Close()
	}
}

// NextMatch returns the next complete match in document order.
func (c *Cursor) NextMatch() (*Match, bool) {
	for {
		if len(c.pending) > 0 {
			head := c.pending[0]
			if c.done || (c.pos > head.start && head.end <= c.pos) {
				c.pending = c.pending[1:]
				return head, true
			}
		}
		if c.done {
			return nil, false
		}
		c.advance()
	}
}

// NextCapture returns the next capture in document order together with
// the match it belongs to and its position in Match.Captures.
func (c *Cursor) NextCapture() (*Match, uint32, bool) {
	for {
		c.pending = slices.DeleteFunc(c.pending, func(m *Match) bool { return len(m.Captures) == 0 })
		best := -1
		for i, m := range c.pending {
			if m.emitted >= len(m.Captures) {
				continue
			}
			if best < 0 || c.captureLess(m, c.pending[best]) {
				best = i
			}
		}
		if best >= 0 {
			m := c.pending[best]
			capture := m.Captures[m.emitted]
			if c.done || capture.Node.StartByte() < c.pos {
				index := m.emitted
				m.emitted++
				if m.emitted == len(m.Captures) {
					c.pending = slices.Delete(c.pending, best, best+1)
				}
				return m, uint32(index), true
			}
		}
		if c.done {
			c.pending = c.pending[:0]
			return nil, 0, false
		}
		c.advance()
	}
}

func (c *Cursor) captureLess(a, b *Match) bool {
	sa, sb := a.Captures[a.emitted].Node.StartByte(), b.Captures[b.emitted].Node.StartByte()
	switch {
	case sa != sb:
		return sa < sb
	case a.PatternIndex != b.PatternIndex:
		return a.PatternIndex < b.PatternIndex
	default:
		return a.ID < b.ID
	}
}

// RemoveMatch discards a match that has not been returned yet.
func (c *Cursor) RemoveMatch(id uint32) {
	c.pending = slices.DeleteFunc(c.pending, func(m *Match) bool { return m.ID == id })
}

func (c *Cursor) halt() {
	c.done = true
	c.pending = c.pending[:0]
}

// advance visits the node under the tree cursor and moves to the next
// node in pre-order.
func (c *Cursor) advance() {
	node := c.tc.Node()
	if c.opts.Progress != nil && !c.opts.Progress(State{CurrentByteOffset: node.StartByte()}) {
		c.halt()
		return
	}
	if !c.deadline.IsZero() && time.Now().After(c.deadline) {
		c.halt()
		return
	}

	depth := c.tc.Depth()
	visible := c.nodeInRange(node)
	if visible {
		c.matchAt(node)
	}

	if visible && depth < c.maxStartDepth && c.tc.GotoFirstChild() {
		c.frames = append(c.frames, frame{node: c.tc.Node()})
	} else {
		for {
			if c.tc.GotoNextSibling() {
				top := &c.frames[len(c.frames)-1]
				top.node = c.tc.Node()
				top.index++
				break
			}
			if !c.tc.GotoParent() {
				c.done = true
				break
			}
			c.frames = c.frames[:len(c.frames)-1]
		}
	}
	if c.done {
		c.pos = math.MaxUint32
	} else {
		c.pos = c.tc.Node().StartByte()
	}
}

func (c *Cursor) nodeInRange(n syntax.Node) bool {
	if n.EndByte() < c.startByte || n.StartByte() > c.endByte {
		return false
	}
	return n.EndPoint().Compare(c.startPoint) >= 0 && n.StartPoint().Compare(c.endPoint) <= 0
}

func (c *Cursor) matchInRange(m *Match) bool {
	if m.start == m.end {
		if m.start < c.startByte || m.start > c.endByte {
			return false
		}
		return m.startPoint.Compare(c.startPoint) >= 0 && m.startPoint.Compare(c.endPoint) <= 0
	}
	if m.end <= c.startByte || m.start >= c.endByte {
		return false
	}
	return m.endPoint.Compare(c.startPoint) > 0 && m.startPoint.Compare(c.endPoint) < 0
}

// rootKids lists node followed by its later siblings, each with the field
// it occupies. Siblings above the executed node are out of reach. The
// sibling list is built once per level and shared by every node on it.
func (c *Cursor) rootKids(withSiblings bool) []kid {
	top := &c.frames[len(c.frames)-1]
	if len(c.frames) == 1 {
		return []kid{{node: top.node}}
	}
	if top.kids == nil {
		top.kids = c.m.kidsOf(c.frames[len(c.frames)-2].node)
	}
	kids := top.kids[top.index:]
	if !withSiblings {
		return kids[:1]
	}
	return kids
}

func (c *Cursor) matchAt(node syntax.Node) {
	for i, p := range c.q.patterns {
		if p.disabled {
			continue
		}
		for _, sol := range c.m.solve(p, c.rootKids(!p.rooted)) {
			m := c.newMatch(i, node, sol)
			if !p.satisfied(m, c.filter) || !c.matchInRange(m) {
				continue
			}
			c.admit(m)
		}
	}
}

func (c *Cursor) newMatch(pattern int, root syntax.Node, sol solution) *Match {
	m := &Match{
		PatternIndex: pattern,
		start:        root.StartByte(),
		end:          max(root.EndByte(), sol.last.EndByte()),
		startPoint:   root.StartPoint(),
		endPoint:     root.EndPoint(),
		src:          c.opts.Text,
	}
	if sol.last.EndPoint().Compare(m.endPoint) > 0 {
		m.endPoint = sol.last.EndPoint()
	}
	m.Captures = make([]Capture, len(sol.caps))
	for i, b := range sol.caps {
		name, _ := c.q.CaptureNameForID(b.id)
		m.Captures[i] = Capture{Node: b.node, Index: b.id, Name: name}
	}
	sort.SliceStable(m.Captures, func(i, j int) bool {
		return m.Captures[i].Node.StartByte() < m.Captures[j].Node.StartByte()
	})
	return m
}

// admit records m as pending, dropping the oldest match still in flight
// when the limit is reached.
func (c *Cursor) admit(m *Match) {
	var inFlight []int
	for i, p := range c.pending {
		if p.end > m.start {
			inFlight = append(inFlight, i)
		}
	}
	if uint32(len(inFlight)) >= c.matchLimit {
		oldest := inFlight[0]
		for _, i := range inFlight[1:] {
			if c.pending[i].ID < c.pending[oldest].ID {
				oldest = i
			}
		}
		c.pending = slices.Delete(c.pending, oldest, oldest+1)
		c.exceeded = true
	}

	m.ID = c.nextID
	c.nextID++
	at := sort.Search(len(c.pending), func(i int) bool {
		p := c.pending[i]
		if p.start != m.start {
			return p.start > m.start
		}
		return p.PatternIndex > m.PatternIndex
	})
	c.pending = slices.Insert(c.pending, at, m)
}
