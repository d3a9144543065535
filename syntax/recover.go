package syntax

import "github.com/dhamidi/arbor/grammar"

// maxSimulation bounds the reductions tried when checking whether a
// symbol can be consumed from a given stack.
const maxSimulation = 512

// recover handles a lookahead without an action. Strategies, in order:
// insert a missing token (shifted by the main loop once the reductions it
// triggers are done), skip the lookahead when the next token fits,
// pop stack entries into an ERROR node, skip the lookahead into an ERROR
// node. At end of input it returns the finished root when nothing else
// can be done.
func (r *run) recover() *subtree {
	r.hasError = true
	r.recoveries++
	tok := r.tokens[r.ti]
	r.parser.logf(LogTypeParse, "detect_error lookahead:%s", r.name(tok.symbol))

	if r.missing != 0 {
		r.missing = 0
	} else if r.missingAt != r.ti && tok.symbol != grammar.SymbolError {
		if sym, ok := r.findMissing(tok.symbol); ok {
			r.parser.logf(LogTypeParse, "recover_with_missing symbol:%s", r.name(sym))
			r.missing = sym
			r.missingAt = r.ti
			return nil
		}
	}

	giveUp := r.recoveries > len(r.stack)+8
	if tok.symbol == grammar.SymbolEnd {
		if !giveUp {
			if depth, ok := r.findDepth(tok.symbol); ok {
				r.popIntoError(depth)
				return nil
			}
		}
		return r.wrapAll()
	}

	if r.nextTokenFits() {
		r.skipToken()
		return nil
	}
	if !giveUp && r.popAt != r.ti {
		if depth, ok := r.findDepth(tok.symbol); ok {
			r.popAt = r.ti
			r.popIntoError(depth)
			return nil
		}
	}
	r.skipToken()
	return nil
}

// states returns the parse states of the non-extra stack entries up to
// and including index end.
func (r *run) states(end int) []grammar.StateID {
	out := make([]grammar.StateID, 0, end+1)
	for i := 0; i <= end; i++ {
		if i == 0 || !r.stack[i].node.extra() {
			out = append(out, r.stack[i].state)
		}
	}
	return out
}

// simulate performs the reductions sym triggers on a copy of the state
// stack and returns the stack after sym is shifted. An accept leaves the
// stack as it is.
func (r *run) simulate(states []grammar.StateID, sym grammar.Symbol) ([]grammar.StateID, bool) {
	states = append([]grammar.StateID(nil), states...)
	for n := 0; n < maxSimulation; n++ {
		a, ok := r.lang.Action(states[len(states)-1], sym)
		if !ok {
			return nil, false
		}
		switch a.Kind {
		case grammar.ActionShift:
			if a.Extra {
				return states, true
			}
			return append(states, a.State), true
		case grammar.ActionAccept:
			return states, true
		}
		prod := r.lang.Productions[a.Production]
		pop := int(prod.ChildCount)
		if pop >= len(states) {
			return nil, false
		}
		states = states[:len(states)-pop]
		goTo, ok := r.lang.Action(states[len(states)-1], prod.Symbol)
		if !ok {
			return nil, false
		}
		states = append(states, goTo.State)
	}
	return nil, false
}

func (r *run) accepts(states []grammar.StateID, sym grammar.Symbol) bool {
	_, ok := r.simulate(states, sym)
	return ok
}

// findMissing returns the lowest terminal whose insertion lets the
// lookahead be consumed.
func (r *run) findMissing(lookahead grammar.Symbol) (grammar.Symbol, bool) {
	base := r.states(len(r.stack) - 1)
	for sym := grammar.Symbol(1); sym < grammar.Symbol(r.lang.TokenCount); sym++ {
		if r.isExtra(sym) {
			continue
		}
		after, ok := r.simulate(base, sym)
		if ok && len(after) > 0 && r.accepts(after, lookahead) {
			return sym, true
		}
	}
	return 0, false
}

// findDepth returns the highest stack index below the top whose state can
// consume sym.
func (r *run) findDepth(sym grammar.Symbol) (int, bool) {
	for i := len(r.stack) - 2; i >= 0; i-- {
		if i > 0 && r.stack[i].node.extra() {
			continue
		}
		if r.accepts(r.states(i), sym) {
			return i, true
		}
	}
	return 0, false
}

// nextTokenFits reports whether the first non-extra token after the
// lookahead can be consumed in the current state.
func (r *run) nextTokenFits() bool {
	for i := r.ti + 1; i < len(r.tokens); i++ {
		sym := r.tokens[i].symbol
		if r.isExtra(sym) {
			continue
		}
		if sym == grammar.SymbolError {
			return false
		}
		return r.accepts(r.states(len(r.stack)-1), sym)
	}
	return false
}

// errorChildren flattens nodes for inclusion in an ERROR node. Hidden
// records give way to the visible records inside them, and nested ERROR
// extras to their children.
func errorChildren(nodes []*subtree) []*subtree {
	var out []*subtree
	for _, n := range nodes {
		switch {
		case n.is(flagHidden):
			out = appendVisible(out, n)
		case n.symbol == grammar.SymbolError && n.extra() && len(n.children) > 0:
			out = append(out, n.children...)
		default:
			out = append(out, n)
		}
	}
	return out
}

// appendVisible appends the records s stands for, looking through nested
// hidden records. Their fields and aliases are dropped.
func appendVisible(out []*subtree, s *subtree) []*subtree {
	type item struct {
		sub  *subtree
		next int
	}
	stack := []item{{sub: s}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next == len(top.sub.children) {
			stack = stack[:len(stack)-1]
			continue
		}
		i := top.next
		top.next++
		c := top.sub.children[i]
		if top.sub.visibleAt(i) {
			out = append(out, c)
		} else {
			stack = append(stack, item{sub: c})
		}
	}
	return out
}

func (r *run) errorNode(children []*subtree, state grammar.StateID) *subtree {
	e := newNode(r.lang, grammar.SymbolError, children, nil, nil)
	e.flags |= flagExtra
	e.parseState = state
	return e
}

// popIntoError wraps every entry above depth into one ERROR node.
func (r *run) popIntoError(depth int) {
	nodes := make([]*subtree, 0, len(r.stack)-depth-1)
	for _, e := range r.stack[depth+1:] {
		nodes = append(nodes, e.node)
	}
	state := r.stack[depth].state
	r.stack = r.stack[:depth+1]
	r.parser.logf(LogTypeParse, "recover_by_popping count:%d", len(nodes))
	r.push(state, r.errorNode(errorChildren(nodes), state))
}

// skipToken moves the lookahead into an ERROR node on top of the stack.
func (r *run) skipToken() {
	tok := r.tokens[r.ti]
	state := r.top().state
	leaf := r.leaf(tok, state)
	r.parser.logf(LogTypeParse, "skip_token symbol:%s", r.name(tok.symbol))
	if top := r.top(); len(r.stack) > 1 && top.node.symbol == grammar.SymbolError && top.node.extra() && len(top.node.children) > 0 {
		children := append(append([]*subtree(nil), top.node.children...), leaf)
		top.node = r.errorNode(children, top.node.parseState)
	} else {
		r.push(state, r.errorNode([]*subtree{leaf}, state))
	}
	r.ti++
}

// wrapAll ends the parse with everything on the stack inside an ERROR
// root.
func (r *run) wrapAll() *subtree {
	nodes := make([]*subtree, 0, len(r.stack))
	for _, e := range r.stack[1:] {
		nodes = append(nodes, e.node)
	}
	r.parser.logf(LogTypeParse, "recover_eof")
	root := newNode(r.lang, grammar.SymbolError, errorChildren(nodes), nil, nil)
	root.parseState = r.lang.StartState
	return root
}
