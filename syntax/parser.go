// Package syntax implements the incremental LR parser and the concrete
// syntax trees it produces.
//
// A Parser turns source text into a Tree using a grammar.Table. Trees are
// immutable apart from Edit, which records a change to the source so that
// the next parse can reuse every subtree the change did not touch:
//
//	tree, _ := p.Parse(ctx, src, nil)
//	tree.Edit(edit)
//	tree, _ = p.Parse(ctx, newSrc, tree)
package syntax

import (
	"context"
	"fmt"
	"time"

	"github.com/dhamidi/arbor/grammar"
)

// ReadFunc returns the chunk of input that starts at offset. An empty
// chunk ends the input.
type ReadFunc func(offset uint32, position Point) ([]byte, error)

// ParseState is handed to the progress callback.
type ParseState struct {
	CurrentByteOffset uint32
	HasError          bool
}

type ParseOptions struct {
	// Progress is called before each token is consumed, during lexing
	// and again while parsing; returning true stops the parse.
	Progress func(ParseState) bool
}

// Parser is not safe for concurrent use.
type Parser struct {
	language *grammar.Table
	extras   []bool
	logger   Logger
	timeout  uint64
	ranges   []Range
	closed   bool
}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) Language() *grammar.Table { return p.language }

// SetLanguage assigns the grammar used by later parses. A nil table
// clears it. On error the previous language stays set.
func (p *Parser) SetLanguage(lang *grammar.Table) error {
	if lang == nil {
		p.language, p.extras = nil, nil
		return nil
	}
	if err := lang.CheckVersion(); err != nil {
		return err
	}
	p.language = lang
	p.extras = make([]bool, lang.TokenCount)
	for sym := range p.extras {
		if a, ok := lang.Action(lang.StartState, grammar.Symbol(sym)); ok && a.Kind == grammar.ActionShift && a.Extra {
			p.extras[sym] = true
		}
	}
	return nil
}

func (p *Parser) SetIncludedRanges(ranges []Range) error {
	if err := validateRanges(ranges); err != nil {
		return err
	}
	p.ranges = append([]Range(nil), ranges...)
	return nil
}

// IncludedRanges returns the ranges set on the parser, or a single range
// covering any document when none are set.
func (p *Parser) IncludedRanges() []Range {
	if len(p.ranges) == 0 {
		return []Range{{EndByte: ^uint32(0), EndPoint: Point{Row: ^uint32(0), Column: ^uint32(0)}}}
	}
	return append([]Range(nil), p.ranges...)
}

func (p *Parser) SetTimeoutMicros(timeout uint64) { p.timeout = timeout }

func (p *Parser) TimeoutMicros() uint64 { return p.timeout }

func (p *Parser) SetLogger(l Logger) { p.logger = l }

func (p *Parser) Logger() Logger { return p.logger }

// Reset drops any state kept from a previous parse. Parses never resume,
// so this only exists to mirror Close.
func (p *Parser) Reset() {}

// Close releases the logger. Calling it again has no effect.
func (p *Parser) Close() error {
	if p.closed {
		return nil
	}
	p.closed = true
	p.logger = nil
	return nil
}

// Parse parses source. When old is given it must have been edited to
// match source; its unchanged subtrees are reused. A nil tree with a nil
// error means the parse was cancelled or timed out.
func (p *Parser) Parse(ctx context.Context, source []byte, old *Tree) (*Tree, error) {
	return p.parse(ctx, source, old, ParseOptions{})
}

// ParseInput reads the whole input through read before parsing it.
func (p *Parser) ParseInput(ctx context.Context, read ReadFunc, old *Tree) (*Tree, error) {
	return p.ParseInputWithOptions(ctx, read, old, ParseOptions{})
}

func (p *Parser) ParseWithOptions(ctx context.Context, source []byte, old *Tree, opts ParseOptions) (*Tree, error) {
	return p.parse(ctx, source, old, opts)
}

func (p *Parser) ParseInputWithOptions(ctx context.Context, read ReadFunc, old *Tree, opts ParseOptions) (*Tree, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	var src []byte
	pos := &position{}
	for {
		if ctx.Err() != nil {
			return nil, nil
		}
		chunk, err := read(uint32(len(src)), pos.point)
		if err != nil {
			return nil, fmt.Errorf("read input at byte %d: %w", len(src), err)
		}
		if len(chunk) == 0 {
			break
		}
		src = append(src, chunk...)
		pos.src = src
		pos.advance(uint32(len(src)))
	}
	return p.parse(ctx, src, old, opts)
}

func (p *Parser) ready() error {
	if p.closed {
		return ErrParserClosed
	}
	if p.language == nil {
		return ErrNoLanguage
	}
	return nil
}

func (p *Parser) parse(ctx context.Context, src []byte, old *Tree, opts ParseOptions) (*Tree, error) {
	if err := p.ready(); err != nil {
		return nil, err
	}
	r := &run{
		parser:   p,
		lang:     p.language,
		ctx:      ctx,
		progress: opts.Progress,
		firstID:  lastSubtreeID.Load(),
		polled:   -1,
	}
	if p.timeout > 0 {
		r.deadline = time.Now().Add(time.Duration(p.timeout) * time.Microsecond)
	}

	if src == nil {
		src = []byte{}
	}
	lx := &lexer{lang: p.language, src: src, ranges: p.ranges}
	if p.logger != nil {
		lx.log = p.logf
	}
	tokens, ok := lx.tokenize(r.stopped)
	if !ok {
		p.logf(LogTypeParse, "cancelled while lexing")
		return nil, nil
	}
	r.tokens = tokens
	if old != nil && old.language == p.language {
		p.logf(LogTypeParse, "reusing subtrees of previous tree")
		r.reuse = newReuseCursor(old.root)
	}

	root := r.loop()
	if root == nil {
		p.logf(LogTypeParse, "cancelled")
		return nil, nil
	}
	root = r.balance(root)
	p.logf(LogTypeParse, "done")
	ranges := p.IncludedRanges()
	return &Tree{root: root, language: p.language, ranges: ranges, text: src}, nil
}

type stackEntry struct {
	state grammar.StateID
	node  *subtree
}

// run holds the state of a single parse.
type run struct {
	parser   *Parser
	lang     *grammar.Table
	ctx      context.Context
	deadline time.Time
	progress func(ParseState) bool

	tokens []token
	ti     int
	stack  []stackEntry
	reuse  *reuseCursor
	// firstID is the last record id handed out before the parse began.
	firstID uint64
	// polled is the index of the last token the stop conditions were
	// checked at.
	polled int

	hasError   bool
	missingAt  int
	popAt      int
	recoveries int

	// missing is a terminal being inserted in front of the lookahead.
	missing grammar.Symbol
}

// stopped reports whether the parse must be abandoned.
func (r *run) stopped(offset uint32) bool {
	if r.ctx.Err() != nil {
		return true
	}
	if !r.deadline.IsZero() && time.Now().After(r.deadline) {
		return true
	}
	if r.progress != nil && r.progress(ParseState{CurrentByteOffset: offset, HasError: r.hasError}) {
		return true
	}
	return false
}

func (r *run) top() *stackEntry { return &r.stack[len(r.stack)-1] }

func (r *run) push(state grammar.StateID, node *subtree) {
	r.stack = append(r.stack, stackEntry{state: state, node: node})
}

func (r *run) isExtra(sym grammar.Symbol) bool {
	return int(sym) < len(r.parser.extras) && r.parser.extras[sym]
}

func (r *run) name(sym grammar.Symbol) string { return r.lang.SymbolName(sym) }

func (r *run) leaf(tok token, state grammar.StateID) *subtree {
	s := newLeaf(tok.symbol, tok.padding, tok.size, state)
	s.char = tok.char
	return s
}

// loop drives the automaton until the input is accepted. It returns nil
// when the parse is stopped.
func (r *run) loop() *subtree {
	r.stack = []stackEntry{{state: r.lang.StartState}}
	r.missingAt, r.popAt = -1, -1
	for {
		if r.ti != r.polled {
			r.polled = r.ti
			if r.stopped(r.tokens[r.ti].start) {
				return nil
			}
		}
		tok := r.tokens[r.ti]
		state := r.top().state
		sym := tok.symbol
		if r.missing != 0 {
			sym = r.missing
		}
		action, ok := r.lang.Action(state, sym)
		if ok && action.Kind == grammar.ActionShift && !action.Extra && r.missing == 0 && r.reuse != nil && r.tryReuse(state) {
			continue
		}
		if !ok {
			if root := r.recover(); root != nil {
				return root
			}
			continue
		}
		switch action.Kind {
		case grammar.ActionShift:
			switch {
			case r.missing != 0:
				r.parser.logf(LogTypeParse, "shift_missing symbol:%s", r.name(sym))
				r.push(action.State, newMissingLeaf(sym, state))
				r.missing = 0
				continue
			case action.Extra:
				leaf := r.leaf(tok, state)
				leaf.flags |= flagExtra
				r.parser.logf(LogTypeParse, "shift_extra")
				r.push(state, leaf)
			default:
				r.parser.logf(LogTypeParse, "shift state:%d", action.State)
				r.push(action.State, r.leaf(tok, state))
			}
			r.ti++
			r.recoveries = 0
		case grammar.ActionReduce:
			r.reduce(action.Production, sym)
		case grammar.ActionAccept:
			r.parser.logf(LogTypeParse, "accept")
			return r.accept()
		}
	}
}

// reduce pops the children of a production, builds its node and pushes it
// with the goto state. Extras on top of the stack stay above the new node.
func (r *run) reduce(index uint16, lookahead grammar.Symbol) {
	prod := r.lang.Productions[index]
	i := len(r.stack)
	for n := 0; n < int(prod.ChildCount) && i > 1; {
		i--
		if !r.stack[i].node.extra() {
			n++
		}
	}
	j := len(r.stack)
	for j > i && r.stack[j-1].node.extra() {
		j--
	}
	below := r.stack[i-1].state
	node := r.build(prod, r.stack[i:j], below, lookahead)
	trailing := append([]stackEntry(nil), r.stack[j:]...)
	r.stack = r.stack[:i]

	next := below
	if goTo, ok := r.lang.Action(below, prod.Symbol); ok {
		next = goTo.State
	}
	r.parser.logf(LogTypeParse, "reduce sym:%s, child_count:%d", r.name(prod.Symbol), prod.ChildCount)
	r.push(next, node)
	for _, e := range trailing {
		r.push(next, e.node)
	}
}

// build creates the node for prod. Hidden children stay as records of
// their own; see balance for how repetitions are shaped.
func (r *run) build(prod grammar.Production, entries []stackEntry, state grammar.StateID, lookahead grammar.Symbol) *subtree {
	var (
		children = make([]*subtree, 0, len(entries))
		fields   []grammar.FieldID
		aliases  []grammar.Symbol
	)
	k := 0
	for i, e := range entries {
		children = append(children, e.node)
		if e.node.extra() {
			continue
		}
		if f := prod.FieldAt(k); f != 0 {
			if fields == nil {
				fields = make([]grammar.FieldID, len(entries))
			}
			fields[i] = f
		}
		if a := prod.AliasAt(k); a != 0 {
			if aliases == nil {
				aliases = make([]grammar.Symbol, len(entries))
			}
			aliases[i] = a
		}
		k++
	}
	node := newNode(r.lang, prod.Symbol, children, fields, aliases)
	node.parseState = state
	node.follow = lookahead
	return node
}

// accept returns the root. Extras and errors left around the start node
// are moved inside it.
func (r *run) accept() *subtree {
	entries := r.stack[1:]
	var root *subtree
	for _, e := range entries {
		if !e.node.extra() {
			root = e.node
		}
	}
	if root != nil && len(entries) == 1 {
		return root
	}
	var (
		children []*subtree
		fields   []grammar.FieldID
		aliases  []grammar.Symbol
	)
	for _, e := range entries {
		if e.node != root {
			children = append(children, e.node)
			fields = append(fields, 0)
			aliases = append(aliases, 0)
			continue
		}
		for i, c := range root.children {
			children = append(children, c)
			fields = append(fields, root.fieldAt(i))
			aliases = append(aliases, root.aliasAt(i))
		}
	}
	sym := grammar.SymbolError
	if root != nil {
		sym = root.symbol
	}
	out := newNode(r.lang, sym, children, fields, aliases)
	if root != nil {
		out.parseState, out.follow = root.parseState, root.follow
	}
	return out
}
