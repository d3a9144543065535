package tablegen

import (
	"fmt"
	"sort"

	"github.com/dhamidi/arbor/grammar"
)

// Report carries diagnostics that did not stop the build.
type Report struct {
	Conflicts []string
	States    int
}

// Build compiles g into a grammar table.
func Build(g Grammar) (*grammar.Table, *Report, error) {
	l, err := lower(g)
	if err != nil {
		return nil, nil, err
	}

	nterm := len(l.terminals) + 1
	symOf := func(r ref) int {
		if r.terminal {
			return r.index + 1
		}
		return nterm + r.index
	}

	symbols := make([]grammar.SymbolInfo, 0, nterm+len(l.nonterminals))
	symbols = append(symbols, grammar.SymbolInfo{Name: "end"})
	for _, t := range l.terminals {
		symbols = append(symbols, grammar.SymbolInfo{Name: t.name, Visible: true, Named: t.named})
	}
	for _, nt := range l.nonterminals {
		symbols = append(symbols, grammar.SymbolInfo{
			Name:      nt.name,
			Visible:   !nt.hidden && !nt.aux,
			Named:     !nt.aux,
			Supertype: nt.supertype,
		})
	}

	fields := []string{""}
	fieldIDs := make(map[string]grammar.FieldID)
	fieldID := func(name string) grammar.FieldID {
		if name == "" {
			return 0
		}
		if id, ok := fieldIDs[name]; ok {
			return id
		}
		fields = append(fields, name)
		fieldIDs[name] = grammar.FieldID(len(fields) - 1)
		return fieldIDs[name]
	}
	aliasSymbol := func(name string, named bool) grammar.Symbol {
		for i, info := range symbols {
			if info.Name == name && info.Named == named && info.Visible {
				return grammar.Symbol(i)
			}
		}
		symbols = append(symbols, grammar.SymbolInfo{Name: name, Visible: true, Named: named})
		return grammar.Symbol(len(symbols) - 1)
	}

	// The field names are numbered in sorted order so tables are stable.
	var names []string
	seen := make(map[string]bool)
	for _, p := range l.productions {
		for _, e := range p.elems {
			if e.field != "" && !seen[e.field] {
				seen[e.field] = true
				names = append(names, e.field)
			}
		}
	}
	sort.Strings(names)
	for _, name := range names {
		fieldID(name)
	}

	lrProds := []lrProduction{{lhs: -1, rhs: []int{nterm}}}
	productions := make([]grammar.Production, 0, len(l.productions))
	for _, p := range l.productions {
		rhs := make([]int, len(p.elems))
		prod := grammar.Production{
			Symbol:     grammar.Symbol(nterm + p.lhs),
			ChildCount: uint16(len(p.elems)),
		}
		var fs []grammar.FieldID
		var as []grammar.Symbol
		for i, e := range p.elems {
			rhs[i] = symOf(e.sym)
			prod.Children = append(prod.Children, grammar.Symbol(rhs[i]))
			if e.field != "" {
				if fs == nil {
					fs = make([]grammar.FieldID, len(p.elems))
				}
				fs[i] = fieldID(e.field)
			}
			if e.aliased {
				if as == nil {
					as = make([]grammar.Symbol, len(p.elems))
				}
				as[i] = aliasSymbol(e.alias, e.aliasNamed)
			}
		}
		prod.Fields, prod.Aliases = fs, as
		productions = append(productions, prod)
		lrProds = append(lrProds, lrProduction{lhs: nterm + p.lhs, rhs: rhs, prec: p.prec, assoc: p.assoc})
	}

	nsym := nterm + len(l.nonterminals)
	lr := newLRBuilder(nsym, nterm, lrProds)
	lr.build()
	rows, conflicts := lr.actions()

	extras := make(map[int]bool)
	for _, idx := range l.extras {
		extras[idx+1] = true
	}

	var actions []grammar.Action
	actionIndex := make(map[grammar.Action]uint16)
	intern := func(a grammar.Action) uint16 {
		if idx, ok := actionIndex[a]; ok {
			return idx
		}
		actions = append(actions, a)
		actionIndex[a] = uint16(len(actions))
		return actionIndex[a]
	}
	parseTable := make([][]uint16, len(rows))
	for state, row := range rows {
		out := make([]uint16, len(symbols))
		for sym, a := range row {
			switch a.kind {
			case lrShift:
				out[sym] = intern(grammar.Action{Kind: grammar.ActionShift, State: grammar.StateID(a.target)})
			case lrReduce:
				out[sym] = intern(grammar.Action{Kind: grammar.ActionReduce, Production: uint16(a.target - 1)})
			case lrAccept:
				out[sym] = intern(grammar.Action{Kind: grammar.ActionAccept})
			}
		}
		for sym := range extras {
			if out[sym] == 0 {
				out[sym] = intern(grammar.Action{Kind: grammar.ActionShift, State: grammar.StateID(state), Extra: true})
			}
		}
		parseTable[state] = out
	}

	var tokens []lexToken
	for i, t := range l.terminals {
		priority := 1000 + i
		if t.literal {
			priority = i
		}
		tokens = append(tokens, lexToken{pattern: t.pattern, symbol: grammar.Symbol(i + 1), priority: priority})
	}
	for i, pattern := range l.skips {
		tokens = append(tokens, lexToken{pattern: pattern, skip: true, priority: 2000 + i})
	}
	lexStates, err := buildLexer(tokens)
	if err != nil {
		return nil, nil, err
	}

	table := &grammar.Table{
		Name:        g.Name,
		Version:     grammar.LanguageVersion,
		Symbols:     symbols,
		TokenCount:  uint16(nterm),
		Fields:      fields,
		StartState:  0,
		ParseTable:  parseTable,
		Actions:     actions,
		Productions: productions,
		LexStates:   lexStates,
	}
	table.Subtypes = subtypes(l, table, nterm)
	if err := table.Validate(); err != nil {
		return nil, nil, fmt.Errorf("generated table: %w", err)
	}
	return table, &Report{Conflicts: conflicts, States: len(rows)}, nil
}

// MustBuild is Build for package-level fixtures.
func MustBuild(g Grammar) *grammar.Table {
	t, _, err := Build(g)
	if err != nil {
		panic(fmt.Sprintf("tablegen: %s: %v", g.Name, err))
	}
	return t
}

// subtypes resolves each supertype to the visible symbols reachable
// through chains of single-symbol productions.
func subtypes(l *lowering, t *grammar.Table, nterm int) map[grammar.Symbol][]grammar.Symbol {
	out := make(map[grammar.Symbol][]grammar.Symbol)
	for idx, nt := range l.nonterminals {
		if !nt.supertype {
			continue
		}
		seen := make(map[int]bool)
		found := make(map[grammar.Symbol]bool)
		var walk func(int)
		walk = func(n int) {
			if seen[n] {
				return
			}
			seen[n] = true
			for i, p := range l.productions {
				if p.lhs != n || len(p.elems) != 1 {
					continue
				}
				e := p.elems[0]
				if a := t.Productions[i].AliasAt(0); a != 0 {
					found[a] = true
					continue
				}
				if e.sym.terminal {
					found[grammar.Symbol(e.sym.index+1)] = true
					continue
				}
				child := l.nonterminals[e.sym.index]
				if child.hidden || child.aux {
					walk(e.sym.index)
				} else {
					found[grammar.Symbol(nterm+e.sym.index)] = true
				}
			}
		}
		walk(idx)
		syms := make([]grammar.Symbol, 0, len(found))
		for s := range found {
			syms = append(syms, s)
		}
		sort.Slice(syms, func(i, j int) bool { return syms[i] < syms[j] })
		out[grammar.Symbol(nterm+idx)] = syms
	}
	return out
}
