package syntax

import "github.com/dhamidi/arbor/grammar"

// reuseCursor walks the records of an edited tree in document order,
// following the parser as it moves through the fresh tokens. It only
// ever moves forward, so a whole parse visits each old record at most a
// constant number of times, and records that get reused are skipped
// without being entered.
type reuseCursor struct {
	stack []reuseFrame
}

type reuseFrame struct {
	sub *subtree
	// start is where the record's padding begins.
	start uint32
	index int
}

func newReuseCursor(root *subtree) *reuseCursor {
	return &reuseCursor{stack: []reuseFrame{{sub: root}}}
}

func (rc *reuseCursor) top() reuseFrame { return rc.stack[len(rc.stack)-1] }

func (f reuseFrame) end() uint32 { return f.start + f.sub.total().bytes }

func (f reuseFrame) child(i int) reuseFrame {
	c := f.sub.children[i]
	content := f.start + f.sub.padding.bytes + f.sub.offsets[i].bytes
	return reuseFrame{sub: c, start: content - c.padding.bytes, index: i}
}

// next moves to the record after the current one, climbing out of
// parents that have no more children.
func (rc *reuseCursor) next() {
	for len(rc.stack) > 1 {
		f := rc.top()
		rc.stack = rc.stack[:len(rc.stack)-1]
		parent := rc.top()
		if i := f.index + 1; i < len(parent.sub.children) {
			rc.stack = append(rc.stack, parent.child(i))
			return
		}
	}
	rc.stack = rc.stack[:0]
}

// seek moves to the outermost record whose padding begins at pos. It
// reports false when no record begins there.
func (rc *reuseCursor) seek(pos uint32) (*subtree, bool) {
	for len(rc.stack) > 0 {
		f := rc.top()
		switch {
		case f.start > pos:
			return nil, false
		case f.end() <= pos:
			rc.next()
		case f.start < pos:
			if len(f.sub.children) == 0 {
				rc.next()
			} else {
				rc.stack = append(rc.stack, f.child(0))
			}
		default:
			return f.sub, true
		}
	}
	return nil, false
}

// tryReuse pushes the outermost old record starting at the lookahead
// that was built in the current state, still lines up with the fresh
// tokens, and was reduced on the same lookahead that follows it now.
func (r *run) tryReuse(state grammar.StateID) bool {
	tok := r.tokens[r.ti]
	pos := tok.start - tok.padding.bytes
	s, ok := r.reuse.seek(pos)
	for ok {
		if next, a, fits := r.reusable(s, state, tok); fits {
			r.parser.logf(LogTypeParse, "reuse_node symbol:%s", r.name(s.symbol))
			r.push(a.State, s)
			r.ti = next
			r.recoveries = 0
			return true
		}
		s, ok = firstNonEmpty(s)
	}
	return false
}

// firstNonEmpty returns the first child of s that covers any text; it
// begins where s begins.
func firstNonEmpty(s *subtree) (*subtree, bool) {
	for _, c := range s.children {
		if c.total().bytes > 0 {
			return c, true
		}
	}
	return nil, false
}

// reusable checks s against the lookahead and returns the index of the
// first token after it along with the goto action that shifts it.
func (r *run) reusable(s *subtree, state grammar.StateID, tok token) (int, grammar.Action, bool) {
	if len(s.children) == 0 || s.parseState != state || s.padding != tok.padding {
		return 0, grammar.Action{}, false
	}
	if s.is(flagHasChanges|flagHasError) || s.extra() {
		return 0, grammar.Action{}, false
	}
	a, ok := r.lang.Action(state, s.symbol)
	if !ok || a.Kind != grammar.ActionShift || a.Extra {
		return 0, grammar.Action{}, false
	}
	next, ok := r.align(s, tok.start, r.ti)
	if !ok || next == r.ti || r.followingSymbol(next) != s.follow {
		return 0, grammar.Action{}, false
	}
	return next, a, true
}

// align checks that the leaves of s, whose content begins at offset,
// match the fresh tokens from index i on, and returns the index after
// the last one.
func (r *run) align(s *subtree, offset uint32, i int) (int, bool) {
	if len(s.children) == 0 {
		if s.size.bytes == 0 {
			return i, !r.lang.IsTerminal(s.symbol)
		}
		if i >= len(r.tokens) {
			return i, false
		}
		tok := r.tokens[i]
		if tok.start != offset || tok.symbol != s.symbol || tok.size.bytes != s.size.bytes {
			return i, false
		}
		return i + 1, true
	}
	for k, c := range s.children {
		var ok bool
		if i, ok = r.align(c, offset+s.offsets[k].bytes, i); !ok {
			return i, false
		}
	}
	return i, true
}

// followingSymbol returns the first non-extra token symbol at or after i.
func (r *run) followingSymbol(i int) grammar.Symbol {
	for ; i < len(r.tokens); i++ {
		if sym := r.tokens[i].symbol; !r.isExtra(sym) {
			return sym
		}
	}
	return grammar.SymbolEnd
}
