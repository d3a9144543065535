package syntax

import (
	"fmt"
	"unicode/utf8"

	"github.com/dhamidi/arbor/grammar"
)

// token is one lexed terminal. padding covers the skipped text before it,
// including any text outside the included ranges.
type token struct {
	symbol  grammar.Symbol
	start   uint32
	padding length
	size    length
	char    rune
}

// position tracks the point of a byte offset while scanning forward.
type position struct {
	src   []byte
	bytes uint32
	point Point
}

func (p *position) advance(to uint32) {
	for p.bytes < to && int(p.bytes) < len(p.src) {
		if p.src[p.bytes] == '\n' {
			p.point.Row++
			p.point.Column = 0
		} else {
			p.point.Column++
		}
		p.bytes++
	}
}

func (p *position) length() length {
	return length{bytes: p.bytes, extent: p.point}
}

type lexer struct {
	lang   *grammar.Table
	src    []byte
	ranges []Range
	log    func(LogType, string, ...any)
}

// tokenize splits the whole input into tokens, ending with an end-of-input
// token. stop is checked before each token; tokenize returns false as
// soon as it reports true.
func (lx *lexer) tokenize(stop func(offset uint32) bool) ([]token, bool) {
	srcEnd := uint32(len(lx.src))
	ranges := lx.ranges
	if len(ranges) == 0 {
		ranges = []Range{{EndByte: srcEnd}}
	}

	var tokens []token
	pos := &position{src: lx.src}
	padStart := pos.length()
	ri := 0
	cur := uint32(0)
	for {
		if stop(cur) {
			return nil, false
		}
		for ri < len(ranges) && cur >= ranges[ri].EndByte {
			ri++
		}
		if ri == len(ranges) || cur >= srcEnd {
			end := min(srcEnd, ranges[len(ranges)-1].EndByte)
			end = max(end, cur)
			pos.advance(end)
			tokens = append(tokens, token{symbol: grammar.SymbolEnd, start: pos.bytes, padding: pos.length().sub(padStart)})
			if lx.log != nil {
				lx.log(LogTypeLex, "lexed_lookahead sym:end, size:0")
			}
			return tokens, true
		}
		if cur < ranges[ri].StartByte {
			cur = ranges[ri].StartByte
			continue
		}
		limit := min(ranges[ri].EndByte, srcEnd)

		width, sym, skip, ok := lx.match(cur, limit)
		switch {
		case ok && skip:
			if lx.log != nil {
				lx.log(LogTypeLex, "skip %d bytes", width)
			}
			cur += width
			continue
		case !ok:
			r, w := utf8.DecodeRune(lx.src[cur:limit])
			width = uint32(w)
			tokens = append(tokens, lx.emit(pos, padStart, grammar.SymbolError, cur, width, r))
			if lx.log != nil {
				lx.log(LogTypeLex, "skip_unrecognized_character %q", r)
			}
		default:
			tokens = append(tokens, lx.emit(pos, padStart, sym, cur, width, 0))
			if lx.log != nil {
				lx.log(LogTypeLex, "lexed_lookahead sym:%s, size:%d", lx.lang.SymbolName(sym), width)
			}
		}
		cur += width
		padStart = pos.length()
	}
}

func (lx *lexer) emit(pos *position, padStart length, sym grammar.Symbol, start, width uint32, char rune) token {
	pos.advance(start)
	startPoint := pos.point
	tok := token{symbol: sym, start: start, padding: pos.length().sub(padStart), char: char}
	pos.advance(start + width)
	tok.size = length{bytes: width, extent: pointSub(pos.point, startPoint)}
	return tok
}

// match runs the lexer automaton from cur and returns the longest accepted
// token that ends at or before limit.
func (lx *lexer) match(cur, limit uint32) (width uint32, sym grammar.Symbol, skip, ok bool) {
	states := lx.lang.LexStates
	if len(states) == 0 {
		return 0, 0, false, false
	}
	state := uint32(0)
	i := cur
	for i < limit {
		r, w := utf8.DecodeRune(lx.src[i:limit])
		next, found := states[state].Next(r)
		if !found {
			break
		}
		state = next
		i += uint32(w)
		if ls := &states[state]; ls.Accepts {
			width, sym, skip, ok = i-cur, ls.Accept, ls.Skip, true
		}
	}
	return width, sym, skip, ok
}

// validateRanges checks that ranges are ordered and do not overlap.
func validateRanges(ranges []Range) error {
	var prevEnd uint32
	for i, r := range ranges {
		if r.StartByte > r.EndByte {
			return &IncludedRangesError{Index: i, Reason: "start is after end"}
		}
		if i > 0 && r.StartByte < prevEnd {
			return &IncludedRangesError{Index: i, Reason: fmt.Sprintf("starts at byte %d, before the previous range ends at %d", r.StartByte, prevEnd)}
		}
		prevEnd = r.EndByte
	}
	return nil
}
