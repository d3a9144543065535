package tablegen

import (
	"fmt"
	"regexp/syntax"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/dhamidi/arbor/grammar"
)

// lexToken is one input of the lexer generator. Lower priority values win
// when two tokens accept the same input length.
type lexToken struct {
	pattern  string
	symbol   grammar.Symbol
	skip     bool
	priority int
}

type runeRange struct{ lo, hi rune }

type nfa struct {
	progs  []*syntax.Prog
	base   []int
	tokens []lexToken
}

func (n *nfa) inst(id int) (*syntax.Inst, int) {
	t := sort.Search(len(n.base), func(i int) bool { return n.base[i] > id }) - 1
	return &n.progs[t].Inst[id-n.base[t]], t
}

func (n *nfa) closure(ids []int) []int {
	seen := make(map[int]bool)
	var out []int
	var visit func(id int)
	visit = func(id int) {
		if seen[id] {
			return
		}
		seen[id] = true
		in, t := n.inst(id)
		base := n.base[t]
		switch in.Op {
		case syntax.InstAlt, syntax.InstAltMatch:
			visit(base + int(in.Out))
			visit(base + int(in.Arg))
		case syntax.InstCapture, syntax.InstNop:
			visit(base + int(in.Out))
		case syntax.InstFail:
		default:
			out = append(out, id)
		}
	}
	for _, id := range ids {
		visit(id)
	}
	sort.Ints(out)
	return out
}

func instRanges(in *syntax.Inst) []runeRange {
	switch in.Op {
	case syntax.InstRune1:
		return []runeRange{{in.Rune[0], in.Rune[0]}}
	case syntax.InstRuneAny:
		return []runeRange{{0, unicode.MaxRune}}
	case syntax.InstRuneAnyNotNL:
		return []runeRange{{0, '\n' - 1}, {'\n' + 1, unicode.MaxRune}}
	case syntax.InstRune:
		var rs []runeRange
		if len(in.Rune) == 1 {
			rs = append(rs, runeRange{in.Rune[0], in.Rune[0]})
		} else {
			for i := 0; i+1 < len(in.Rune); i += 2 {
				rs = append(rs, runeRange{in.Rune[i], in.Rune[i+1]})
			}
		}
		if syntax.Flags(in.Arg)&syntax.FoldCase != 0 {
			rs = foldRanges(rs)
		}
		return rs
	}
	return nil
}

func foldRanges(rs []runeRange) []runeRange {
	out := append([]runeRange(nil), rs...)
	for _, r := range rs {
		if r.hi-r.lo > 512 {
			continue
		}
		for c := r.lo; c <= r.hi; c++ {
			for f := unicode.SimpleFold(c); f != c; f = unicode.SimpleFold(f) {
				out = append(out, runeRange{f, f})
			}
		}
	}
	return out
}

// buildLexer compiles the token patterns into a DFA by subset
// construction over the combined regexp programs.
func buildLexer(tokens []lexToken) ([]grammar.LexState, error) {
	n := &nfa{tokens: tokens}
	var starts []int
	next := 0
	for _, tok := range tokens {
		re, err := syntax.Parse(tok.pattern, syntax.Perl)
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", strconv.Quote(tok.pattern), err)
		}
		prog, err := syntax.Compile(re.Simplify())
		if err != nil {
			return nil, fmt.Errorf("token %s: %w", strconv.Quote(tok.pattern), err)
		}
		for _, in := range prog.Inst {
			if in.Op == syntax.InstEmptyWidth {
				return nil, fmt.Errorf("token %s: anchors and word boundaries are not supported", strconv.Quote(tok.pattern))
			}
		}
		n.progs = append(n.progs, prog)
		n.base = append(n.base, next)
		starts = append(starts, next+prog.Start)
		next += len(prog.Inst)
	}

	var states []grammar.LexState
	var sets [][]int
	index := make(map[string]int)
	key := func(ids []int) string {
		parts := make([]string, len(ids))
		for i, id := range ids {
			parts[i] = strconv.Itoa(id)
		}
		return strings.Join(parts, ",")
	}
	add := func(ids []int) int {
		k := key(ids)
		if i, ok := index[k]; ok {
			return i
		}
		index[k] = len(states)
		states = append(states, grammar.LexState{})
		sets = append(sets, ids)
		return len(states) - 1
	}
	add(n.closure(starts))

	for i := 0; i < len(states); i++ {
		set := sets[i]
		best := -1
		var points []rune
		type edge struct {
			ranges []runeRange
			out    int
		}
		var edges []edge
		for _, id := range set {
			in, t := n.inst(id)
			if in.Op == syntax.InstMatch {
				if best < 0 || tokens[t].priority < tokens[best].priority {
					best = t
				}
				continue
			}
			rs := instRanges(in)
			if len(rs) == 0 {
				continue
			}
			edges = append(edges, edge{ranges: rs, out: n.base[t] + int(in.Out)})
			for _, r := range rs {
				points = append(points, r.lo, r.hi+1)
			}
		}
		if best >= 0 {
			states[i].Accepts = true
			states[i].Skip = tokens[best].skip
			states[i].Accept = tokens[best].symbol
		}
		sort.Slice(points, func(a, b int) bool { return points[a] < points[b] })
		points = dedupRunes(points)

		var transitions []grammar.LexTransition
		for p := 0; p+1 < len(points); p++ {
			lo, hi := points[p], points[p+1]-1
			var outs []int
			for _, e := range edges {
				for _, r := range e.ranges {
					if r.lo <= lo && lo <= r.hi {
						outs = append(outs, e.out)
						break
					}
				}
			}
			if len(outs) == 0 {
				continue
			}
			target := add(n.closure(outs))
			if k := len(transitions); k > 0 && transitions[k-1].State == uint32(target) && transitions[k-1].Hi+1 == lo {
				transitions[k-1].Hi = hi
				continue
			}
			transitions = append(transitions, grammar.LexTransition{Lo: lo, Hi: hi, State: uint32(target)})
		}
		states[i].Transitions = transitions
	}
	return states, nil
}

func dedupRunes(rs []rune) []rune {
	var out []rune
	for _, r := range rs {
		if len(out) == 0 || out[len(out)-1] != r {
			out = append(out, r)
		}
	}
	return out
}
