package query

import (
	"sync"

	"github.com/dhamidi/arbor/grammar"
)

// grammarInfo records which node types may appear as children of each
// visible symbol, looking through hidden rules that are spliced into
// their parent.
type grammarInfo struct {
	// children is nil when the table does not list production children.
	children map[grammar.Symbol]map[grammar.Symbol]bool
	fields   map[grammar.Symbol]map[grammar.FieldID]bool
	extras   map[grammar.Symbol]bool
	// aliases are visible nonterminal symbols without productions of
	// their own; their children are not known.
	aliases map[grammar.Symbol]bool
}

var infoCache sync.Map

func infoFor(t *grammar.Table) *grammarInfo {
	if v, ok := infoCache.Load(t); ok {
		return v.(*grammarInfo)
	}
	v, _ := infoCache.LoadOrStore(t, analyze(t))
	return v.(*grammarInfo)
}

func analyze(t *grammar.Table) *grammarInfo {
	info := &grammarInfo{extras: make(map[grammar.Symbol]bool), aliases: make(map[grammar.Symbol]bool)}
	for sym := grammar.Symbol(0); int(sym) < int(t.TokenCount); sym++ {
		if a, ok := t.Action(t.StartState, sym); ok && a.Extra {
			info.extras[sym] = true
		}
	}

	byLHS := make(map[grammar.Symbol][]grammar.Production)
	for _, p := range t.Productions {
		if len(p.Children) != int(p.ChildCount) {
			return info
		}
		byLHS[p.Symbol] = append(byLHS[p.Symbol], p)
	}

	info.children = make(map[grammar.Symbol]map[grammar.Symbol]bool)
	info.fields = make(map[grammar.Symbol]map[grammar.FieldID]bool)
	for sym := range byLHS {
		if !t.Symbol(sym).Visible {
			continue
		}
		kids := make(map[grammar.Symbol]bool)
		fields := make(map[grammar.FieldID]bool)
		visited := make(map[grammar.Symbol]bool)
		var collect func(grammar.Symbol)
		collect = func(s grammar.Symbol) {
			if visited[s] {
				return
			}
			visited[s] = true
			for _, p := range byLHS[s] {
				for i, c := range p.Children {
					if f := p.FieldAt(i); f != 0 {
						fields[f] = true
					}
					switch {
					case p.AliasAt(i) != 0:
						kids[p.AliasAt(i)] = true
					case t.Symbol(c).Visible:
						kids[c] = true
					default:
						collect(c)
					}
				}
			}
		}
		collect(sym)
		info.children[sym] = kids
		info.fields[sym] = fields
	}
	for i, s := range t.Symbols {
		sym := grammar.Symbol(i)
		if i >= int(t.TokenCount) && s.Visible && len(byLHS[sym]) == 0 {
			info.aliases[sym] = true
		}
	}
	return info
}

// possible reports whether a node accepted by child can appear directly
// below a node accepted by parent.
func (g *grammarInfo) possible(parent, child *step) bool {
	if g.children == nil || parent.symbols == nil || parent.missing {
		return true
	}
	switch child.kind {
	case stepAlternation:
		for _, a := range child.alternatives {
			if g.possible(parent, a) {
				return true
			}
		}
		return false
	case stepGroup:
		for _, c := range child.children {
			if !g.possible(parent, c) {
				return false
			}
		}
		return true
	}
	for _, p := range parent.symbols {
		kids, ok := g.children[p]
		if !ok {
			if p == grammar.SymbolError || g.aliases[p] {
				return true
			}
			continue
		}
		if child.field != 0 && !g.fields[p][child.field] {
			continue
		}
		if child.symbols == nil || child.missing {
			return true
		}
		for _, c := range child.symbols {
			if kids[c] || g.extras[c] || c == grammar.SymbolError {
				return true
			}
		}
	}
	return false
}

// checkStructure rejects child patterns that the grammar can never
// produce below their parent.
func (c *compiler) checkStructure(s *step) error {
	for _, a := range s.alternatives {
		if err := c.checkStructure(a); err != nil {
			return err
		}
	}
	for _, child := range s.children {
		if s.kind == stepNode && !c.info.possible(s, child) {
			return c.errorAt(ErrorStructure, child.offset)
		}
		if err := c.checkStructure(child); err != nil {
			return err
		}
	}
	return nil
}

// markGuaranteed flags the node steps after which nothing required is
// left to match in p.
func markGuaranteed(p *pattern) {
	var order []*step
	var required []bool
	var visit func(s *step, optional bool)
	visit = func(s *step, optional bool) {
		optional = optional || s.quant.optional()
		if s.kind == stepNode {
			order = append(order, s)
			required = append(required, !optional)
		}
		for _, a := range s.alternatives {
			visit(a, true)
		}
		for _, c := range s.children {
			visit(c, optional)
		}
	}
	visit(p.root, false)

	settled := len(p.predicates) == 0
	for i := len(order) - 1; i >= 0; i-- {
		order[i].guaranteed = settled
		if required[i] {
			settled = false
		}
	}
}
