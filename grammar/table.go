// Package grammar defines the compiled grammar table consumed by the parser
// and the query compiler.
//
// A Table is immutable once built and may be shared by any number of
// parsers, trees and queries at the same time.
package grammar

import (
	"math"
	"sort"
)

// Table format versions accepted by this package.
const (
	LanguageVersion              uint32 = 3
	MinCompatibleLanguageVersion uint32 = 2
)

type (
	Symbol  uint16
	FieldID uint16
	StateID uint16
)

const (
	// SymbolEnd is the end-of-input token.
	SymbolEnd Symbol = 0
	// SymbolError marks error nodes and unrecognized characters.
	SymbolError Symbol = math.MaxUint16
)

type SymbolType int

const (
	SymbolTypeRegular SymbolType = iota
	SymbolTypeAnonymous
	SymbolTypeSupertype
	SymbolTypeAuxiliary
)

func (t SymbolType) String() string {
	switch t {
	case SymbolTypeRegular:
		return "regular"
	case SymbolTypeAnonymous:
		return "anonymous"
	case SymbolTypeSupertype:
		return "supertype"
	default:
		return "auxiliary"
	}
}

type SymbolInfo struct {
	Name      string `json:"name"`
	Visible   bool   `json:"visible,omitempty"`
	Named     bool   `json:"named,omitempty"`
	Supertype bool   `json:"supertype,omitempty"`
}

type ActionKind uint8

const (
	ActionShift ActionKind = iota + 1
	ActionReduce
	ActionAccept
)

// Action is one entry of the parse table. For terminals it is a shift,
// reduce or accept; for nonterminals it is a shift that acts as the goto.
type Action struct {
	Kind       ActionKind `json:"kind"`
	State      StateID    `json:"state,omitempty"`
	Extra      bool       `json:"extra,omitempty"`
	Production uint16     `json:"production,omitempty"`
}

// Production describes the node built by a reduce action. Fields and
// Aliases are either empty or have one entry per child. Children holds the
// grammar symbol of each child; tables older than version 3 omit it.
type Production struct {
	Symbol     Symbol    `json:"symbol"`
	ChildCount uint16    `json:"child_count"`
	Children   []Symbol  `json:"children,omitempty"`
	Fields     []FieldID `json:"fields,omitempty"`
	Aliases    []Symbol  `json:"aliases,omitempty"`
}

func (p Production) FieldAt(i int) FieldID {
	if i < len(p.Fields) {
		return p.Fields[i]
	}
	return 0
}

func (p Production) AliasAt(i int) Symbol {
	if i < len(p.Aliases) {
		return p.Aliases[i]
	}
	return 0
}

type LexTransition struct {
	Lo    rune   `json:"lo"`
	Hi    rune   `json:"hi"`
	State uint32 `json:"state"`
}

// LexState is a state of the lexer DFA. Transitions are sorted by Lo and
// do not overlap. Lexing starts in state 0.
type LexState struct {
	Accepts     bool            `json:"accepts,omitempty"`
	Accept      Symbol          `json:"accept,omitempty"`
	Skip        bool            `json:"skip,omitempty"`
	Transitions []LexTransition `json:"transitions,omitempty"`
}

// Next returns the target state for r.
func (s *LexState) Next(r rune) (uint32, bool) {
	ts := s.Transitions
	i := sort.Search(len(ts), func(i int) bool { return ts[i].Hi >= r })
	if i < len(ts) && ts[i].Lo <= r {
		return ts[i].State, true
	}
	return 0, false
}

type Table struct {
	Name        string       `json:"name"`
	Version     uint32       `json:"version"`
	Symbols     []SymbolInfo `json:"symbols"`
	TokenCount  uint16       `json:"token_count"`
	Fields      []string     `json:"fields"`
	StartState  StateID      `json:"start_state"`
	ParseTable  [][]uint16   `json:"parse_table"`
	Actions     []Action     `json:"actions"`
	Productions []Production `json:"productions"`
	LexStates   []LexState   `json:"lex_states"`
	// Subtypes lists, for each supertype symbol, the visible symbols it stands for.
	Subtypes map[Symbol][]Symbol `json:"subtypes,omitempty"`
}

func (t *Table) SymbolCount() int { return len(t.Symbols) }

func (t *Table) FieldCount() int {
	if len(t.Fields) == 0 {
		return 0
	}
	return len(t.Fields) - 1
}

func (t *Table) StateCount() int { return len(t.ParseTable) }

func (t *Table) IsTerminal(sym Symbol) bool {
	return sym < Symbol(t.TokenCount) || sym == SymbolError
}

func (t *Table) Symbol(sym Symbol) SymbolInfo {
	if sym == SymbolError {
		return SymbolInfo{Name: "ERROR", Visible: true, Named: true}
	}
	if int(sym) < len(t.Symbols) {
		return t.Symbols[sym]
	}
	return SymbolInfo{}
}

func (t *Table) SymbolName(sym Symbol) string {
	return t.Symbol(sym).Name
}

func (t *Table) SymbolType(sym Symbol) SymbolType {
	info := t.Symbol(sym)
	switch {
	case info.Supertype:
		return SymbolTypeSupertype
	case info.Visible && info.Named:
		return SymbolTypeRegular
	case info.Visible:
		return SymbolTypeAnonymous
	default:
		return SymbolTypeAuxiliary
	}
}

// SymbolForName looks up a visible symbol, or a supertype, by name.
func (t *Table) SymbolForName(name string, named bool) (Symbol, bool) {
	if named && name == "ERROR" {
		return SymbolError, true
	}
	for i, info := range t.Symbols {
		if info.Name != name || info.Named != named {
			continue
		}
		if info.Visible || info.Supertype {
			return Symbol(i), true
		}
	}
	return 0, false
}

func (t *Table) FieldName(id FieldID) string {
	if id == 0 || int(id) >= len(t.Fields) {
		return ""
	}
	return t.Fields[id]
}

func (t *Table) FieldIDForName(name string) (FieldID, bool) {
	for i := 1; i < len(t.Fields); i++ {
		if t.Fields[i] == name {
			return FieldID(i), true
		}
	}
	return 0, false
}

// Action returns the parse action for sym in state.
func (t *Table) Action(state StateID, sym Symbol) (Action, bool) {
	if int(state) >= len(t.ParseTable) {
		return Action{}, false
	}
	row := t.ParseTable[state]
	if int(sym) >= len(row) {
		return Action{}, false
	}
	idx := row[sym]
	if idx == 0 {
		return Action{}, false
	}
	return t.Actions[idx-1], true
}

// NextState returns the state reached after shifting sym in state, or 0
// when sym cannot be shifted there.
func (t *Table) NextState(state StateID, sym Symbol) StateID {
	a, ok := t.Action(state, sym)
	if !ok || a.Kind != ActionShift || a.Extra {
		return 0
	}
	return a.State
}

func (t *Table) Supertypes() []Symbol {
	out := make([]Symbol, 0, len(t.Subtypes))
	for sym := range t.Subtypes {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Table) SubtypesOf(supertype Symbol) []Symbol {
	return t.Subtypes[supertype]
}

// IsSubtype reports whether sym is one of the symbols supertype stands for.
func (t *Table) IsSubtype(supertype, sym Symbol) bool {
	for _, s := range t.Subtypes[supertype] {
		if s == sym {
			return true
		}
	}
	return false
}
