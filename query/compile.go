package query

import (
	"strings"

	"github.com/dhamidi/arbor/grammar"
)

// compiler reads query source into patterns. Every method leaves pos on
// the first byte it did not consume.
type compiler struct {
	src  string
	pos  int
	lang *grammar.Table
	info *grammarInfo
	q    *Query
}

func (c *compiler) eof() bool { return c.pos >= len(c.src) }

func (c *compiler) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.pos]
}

// skip moves past whitespace and ; comments.
func (c *compiler) skip() {
	for !c.eof() {
		switch ch := c.src[c.pos]; {
		case ch == ' ', ch == '\t', ch == '\n', ch == '\r', ch == '\f':
			c.pos++
		case ch == ';':
			for !c.eof() && c.src[c.pos] != '\n' {
				c.pos++
			}
		default:
			return
		}
	}
}

func (c *compiler) errorAt(kind ErrorKind, offset int) error {
	return newError(kind, c.src, offset)
}

func (c *compiler) syntaxError() error { return c.errorAt(ErrorSyntax, c.pos) }

func (c *compiler) name() string {
	start := c.pos
	for !c.eof() && isNameChar(c.src[c.pos]) {
		c.pos++
	}
	return c.src[start:c.pos]
}

// str reads a double-quoted string literal.
func (c *compiler) str() (string, error) {
	c.pos++
	var b strings.Builder
	for {
		if c.eof() {
			return "", c.syntaxError()
		}
		ch := c.src[c.pos]
		c.pos++
		switch ch {
		case '"':
			return b.String(), nil
		case '\\':
			if c.eof() {
				return "", c.syntaxError()
			}
			esc := c.src[c.pos]
			c.pos++
			switch esc {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'r':
				b.WriteByte('\r')
			case '0':
				b.WriteByte(0)
			default:
				b.WriteByte(esc)
			}
		default:
			b.WriteByte(ch)
		}
	}
}

func (c *compiler) compile() error {
	for {
		c.skip()
		if c.eof() {
			return nil
		}
		p := &pattern{start: c.pos}
		p.row, _ = position(c.src, c.pos)
		root, isPredicate, err := c.parse(p)
		if err != nil {
			return err
		}
		if isPredicate {
			return c.errorAt(ErrorSyntax, p.start)
		}
		if err := c.checkStructure(root); err != nil {
			return err
		}
		c.skip()
		p.end = c.pos
		p.root = root
		p.rooted = root.kind != stepGroup && !root.quant.repeats() && root.quant != QuantifierZeroOrOne
		p.captureQuantifiers = quantifiers(root)
		markGuaranteed(p)
		c.q.patterns = append(c.q.patterns, p)
	}
}

// parse reads one pattern with its suffixes. A predicate is consumed into
// p and reported with isPredicate set.
func (c *compiler) parse(p *pattern) (s *step, isPredicate bool, err error) {
	c.skip()
	start := c.pos
	switch ch := c.peek(); {
	case c.eof():
		return nil, false, c.syntaxError()
	case ch == '[':
		c.pos++
		s = &step{kind: stepAlternation, offset: start, quant: QuantifierOne}
		for {
			c.skip()
			if c.peek() == ']' {
				c.pos++
				break
			}
			if c.eof() {
				return nil, false, c.syntaxError()
			}
			at := c.pos
			alt, pred, err := c.parse(p)
			if err != nil {
				return nil, false, err
			}
			if pred {
				return nil, false, c.errorAt(ErrorSyntax, at)
			}
			s.alternatives = append(s.alternatives, alt)
		}
		if len(s.alternatives) == 0 {
			return nil, false, c.errorAt(ErrorSyntax, start)
		}
	case ch == '(':
		c.pos++
		c.skip()
		switch c.peek() {
		case '#':
			return nil, true, c.predicate(p)
		case '(', '[', '"', '.':
			s = &step{kind: stepGroup, offset: start, quant: QuantifierOne}
			if err := c.children(p, s); err != nil {
				return nil, false, err
			}
			if len(s.children) == 0 {
				return nil, false, c.errorAt(ErrorSyntax, start)
			}
			if len(s.children) == 1 && !s.anchorEnd && !s.children[0].anchored {
				s = s.children[0]
			}
		default:
			if s, err = c.nodeStep(start); err != nil {
				return nil, false, err
			}
			if err := c.children(p, s); err != nil {
				return nil, false, err
			}
		}
	case ch == '"':
		at := c.pos + 1
		lit, err := c.str()
		if err != nil {
			return nil, false, err
		}
		sym, ok := c.lang.SymbolForName(lit, false)
		if !ok {
			return nil, false, c.errorAt(ErrorNodeType, at)
		}
		s = &step{kind: stepNode, offset: start, symbols: []grammar.Symbol{sym}, quant: QuantifierOne}
	case isNameChar(ch):
		name := c.name()
		if name == "_" {
			s = &step{kind: stepNode, offset: start, quant: QuantifierOne}
			break
		}
		c.skip()
		if c.peek() != ':' {
			return nil, false, c.errorAt(ErrorSyntax, start)
		}
		c.pos++
		id, ok := c.lang.FieldIDForName(name)
		if !ok {
			return nil, false, c.errorAt(ErrorField, start)
		}
		at := c.pos
		child, pred, err := c.parse(p)
		if err != nil {
			return nil, false, err
		}
		if pred {
			return nil, false, c.errorAt(ErrorSyntax, at)
		}
		child.field = id
		return child, false, nil
	default:
		return nil, false, c.syntaxError()
	}
	return s, false, c.suffixes(s)
}

// nodeStep reads the node type after an opening parenthesis.
func (c *compiler) nodeStep(start int) (*step, error) {
	at := c.pos
	name := c.name()
	s := &step{kind: stepNode, offset: start, quant: QuantifierOne}
	switch name {
	case "":
		return nil, c.syntaxError()
	case "_":
		s.named = true
	case "ERROR":
		s.symbols = []grammar.Symbol{grammar.SymbolError}
	case "MISSING":
		s.missing = true
		c.skip()
		switch ch := c.peek(); {
		case ch == '"':
			litAt := c.pos + 1
			lit, err := c.str()
			if err != nil {
				return nil, err
			}
			sym, ok := c.lang.SymbolForName(lit, false)
			if !ok {
				return nil, c.errorAt(ErrorNodeType, litAt)
			}
			s.symbols = []grammar.Symbol{sym}
		case isNameChar(ch) && ch != '.':
			typeAt := c.pos
			sym, ok := c.lang.SymbolForName(c.name(), true)
			if !ok {
				return nil, c.errorAt(ErrorNodeType, typeAt)
			}
			s.symbols = []grammar.Symbol{sym}
		}
	default:
		sym, ok := c.lang.SymbolForName(name, true)
		if !ok {
			return nil, c.errorAt(ErrorNodeType, at)
		}
		switch {
		case c.peek() == '/':
			c.pos++
			subAt := c.pos
			sub, ok := c.lang.SymbolForName(c.name(), true)
			if !ok {
				return nil, c.errorAt(ErrorNodeType, subAt)
			}
			if !c.lang.IsSubtype(sym, sub) {
				return nil, c.errorAt(ErrorStructure, subAt)
			}
			s.symbols = []grammar.Symbol{sub}
		case c.lang.SymbolType(sym) == grammar.SymbolTypeSupertype:
			s.symbols = append([]grammar.Symbol(nil), c.lang.SubtypesOf(sym)...)
		default:
			s.symbols = []grammar.Symbol{sym}
		}
	}
	return s, nil
}

// children reads the child list of a node or group up to the closing
// parenthesis.
func (c *compiler) children(p *pattern, parent *step) error {
	anchor := false
	for {
		c.skip()
		switch c.peek() {
		case ')':
			c.pos++
			parent.anchorEnd = anchor
			return nil
		case '.':
			c.pos++
			anchor = true
			continue
		case '!':
			if parent.kind != stepNode {
				return c.syntaxError()
			}
			c.pos++
			at := c.pos
			id, ok := c.lang.FieldIDForName(c.name())
			if !ok {
				return c.errorAt(ErrorField, at)
			}
			parent.negated = append(parent.negated, id)
			continue
		}
		if c.eof() {
			return c.syntaxError()
		}
		child, isPredicate, err := c.parse(p)
		if err != nil {
			return err
		}
		if isPredicate {
			continue
		}
		child.anchored = anchor
		anchor = false
		parent.children = append(parent.children, child)
	}
}

// suffixes reads quantifiers and captures following a pattern.
func (c *compiler) suffixes(s *step) error {
	for {
		c.skip()
		switch c.peek() {
		case '*':
			s.quant = s.quant.times(QuantifierZeroOrMore)
		case '+':
			s.quant = s.quant.times(QuantifierOneOrMore)
		case '?':
			s.quant = s.quant.times(QuantifierZeroOrOne)
		case '@':
			c.pos++
			name := c.name()
			if name == "" {
				return c.syntaxError()
			}
			s.captures = append(s.captures, c.q.captureID(name))
			continue
		default:
			return nil
		}
		c.pos++
	}
}
