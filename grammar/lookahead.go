package grammar

// LookaheadIterator walks the terminal symbols that have an action in a
// parse state. It is typically used to list what the parser expected at
// an error.
type LookaheadIterator struct {
	table *Table
	state StateID
	next  int
	sym   Symbol
}

func (t *Table) LookaheadIterator(state StateID) (*LookaheadIterator, bool) {
	if int(state) >= len(t.ParseTable) {
		return nil, false
	}
	return &LookaheadIterator{table: t, state: state}, true
}

func (it *LookaheadIterator) Language() *Table { return it.table }

// Reset moves the iterator to the start of another state.
func (it *LookaheadIterator) Reset(state StateID) bool {
	if int(state) >= len(it.table.ParseTable) {
		return false
	}
	it.state = state
	it.next = 0
	it.sym = 0
	return true
}

func (it *LookaheadIterator) Next() bool {
	for it.next < int(it.table.TokenCount) {
		sym := Symbol(it.next)
		it.next++
		if _, ok := it.table.Action(it.state, sym); ok {
			it.sym = sym
			return true
		}
	}
	return false
}

func (it *LookaheadIterator) Symbol() Symbol { return it.sym }

func (it *LookaheadIterator) Name() string { return it.table.SymbolName(it.sym) }

// Names collects the remaining symbol names.
func (it *LookaheadIterator) Names() []string {
	var names []string
	for it.Next() {
		names = append(names, it.Name())
	}
	return names
}
