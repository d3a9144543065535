package tablegen

import (
	"encoding/binary"
	"fmt"
	"math/bits"
	"sort"
)

type bitset []uint64

func newBitset(n int) bitset { return make(bitset, (n+63)/64) }

func (s bitset) add(i int) { s[i/64] |= 1 << uint(i%64) }

func (s bitset) has(i int) bool { return s[i/64]&(1<<uint(i%64)) != 0 }

func (s bitset) union(o bitset) bool {
	changed := false
	for i := range s {
		n := s[i] | o[i]
		if n != s[i] {
			s[i] = n
			changed = true
		}
	}
	return changed
}

func (s bitset) clone() bitset {
	c := make(bitset, len(s))
	copy(c, s)
	return c
}

func (s bitset) each(fn func(int)) {
	for w, word := range s {
		for word != 0 {
			b := bits.TrailingZeros64(word)
			fn(w*64 + b)
			word &^= 1 << uint(b)
		}
	}
}

type lrProduction struct {
	lhs   int
	rhs   []int
	prec  int
	assoc Assoc
}

type lrItem struct{ prod, dot int }

type lrState struct {
	items []lrItem
	las   map[lrItem]bitset
}

// lrBuilder builds a canonical LR(1) automaton. Symbols below nterm are
// terminals, symbol 0 is the end of input. Production 0 is the augmented
// start production and has lhs -1.
type lrBuilder struct {
	nsym     int
	nterm    int
	prods    []lrProduction
	byLHS    map[int][]int
	first    []bitset
	nullable []bool
	states   []*lrState
	byKey    map[string]int
	trans    []map[int]int
}

func newLRBuilder(nsym, nterm int, prods []lrProduction) *lrBuilder {
	b := &lrBuilder{
		nsym:  nsym,
		nterm: nterm,
		prods: prods,
		byLHS: make(map[int][]int),
		byKey: make(map[string]int),
	}
	for i, p := range prods {
		if p.lhs >= 0 {
			b.byLHS[p.lhs] = append(b.byLHS[p.lhs], i)
		}
	}
	b.computeFirst()
	return b
}

func (b *lrBuilder) computeFirst() {
	b.first = make([]bitset, b.nsym)
	b.nullable = make([]bool, b.nsym)
	for i := range b.first {
		b.first[i] = newBitset(b.nterm)
		if i < b.nterm {
			b.first[i].add(i)
		}
	}
	for changed := true; changed; {
		changed = false
		for _, p := range b.prods {
			if p.lhs < 0 {
				continue
			}
			allNullable := true
			for _, x := range p.rhs {
				if b.first[p.lhs].union(b.first[x]) {
					changed = true
				}
				if !b.nullable[x] {
					allNullable = false
					break
				}
			}
			if allNullable && !b.nullable[p.lhs] {
				b.nullable[p.lhs] = true
				changed = true
			}
		}
	}
}

func (b *lrBuilder) closure(kernel map[lrItem]bitset) *lrState {
	st := &lrState{las: make(map[lrItem]bitset, len(kernel))}
	st.items = sortedItems(kernel)
	queue := make([]lrItem, 0, len(st.items))
	queued := make(map[lrItem]bool)
	for _, it := range st.items {
		st.las[it] = kernel[it].clone()
		queue = append(queue, it)
		queued[it] = true
	}
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]
		queued[it] = false
		rhs := b.prods[it.prod].rhs
		if it.dot >= len(rhs) || rhs[it.dot] < b.nterm {
			continue
		}
		la := newBitset(b.nterm)
		suffixNullable := true
		for _, x := range rhs[it.dot+1:] {
			la.union(b.first[x])
			if !b.nullable[x] {
				suffixNullable = false
				break
			}
		}
		if suffixNullable {
			la.union(st.las[it])
		}
		for _, q := range b.byLHS[rhs[it.dot]] {
			next := lrItem{prod: q}
			cur, ok := st.las[next]
			if !ok {
				cur = newBitset(b.nterm)
				st.las[next] = cur
				st.items = append(st.items, next)
			}
			if (cur.union(la) || !ok) && !queued[next] {
				queue = append(queue, next)
				queued[next] = true
			}
		}
	}
	return st
}

func sortedItems(set map[lrItem]bitset) []lrItem {
	items := make([]lrItem, 0, len(set))
	for it := range set {
		items = append(items, it)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].prod != items[j].prod {
			return items[i].prod < items[j].prod
		}
		return items[i].dot < items[j].dot
	})
	return items
}

func kernelKey(kernel map[lrItem]bitset) string {
	var buf []byte
	for _, it := range sortedItems(kernel) {
		buf = binary.AppendUvarint(buf, uint64(it.prod))
		buf = binary.AppendUvarint(buf, uint64(it.dot))
		for _, w := range kernel[it] {
			buf = binary.LittleEndian.AppendUint64(buf, w)
		}
	}
	return string(buf)
}

func (b *lrBuilder) build() {
	start := map[lrItem]bitset{{prod: 0}: newBitset(b.nterm)}
	start[lrItem{prod: 0}].add(0)
	b.byKey[kernelKey(start)] = 0
	b.states = append(b.states, b.closure(start))
	b.trans = append(b.trans, map[int]int{})

	for i := 0; i < len(b.states); i++ {
		st := b.states[i]
		var syms []int
		seen := make(map[int]bool)
		for _, it := range st.items {
			rhs := b.prods[it.prod].rhs
			if it.dot < len(rhs) && !seen[rhs[it.dot]] {
				seen[rhs[it.dot]] = true
				syms = append(syms, rhs[it.dot])
			}
		}
		sort.Ints(syms)
		for _, x := range syms {
			kernel := make(map[lrItem]bitset)
			for _, it := range st.items {
				rhs := b.prods[it.prod].rhs
				if it.dot >= len(rhs) || rhs[it.dot] != x {
					continue
				}
				next := lrItem{prod: it.prod, dot: it.dot + 1}
				if cur, ok := kernel[next]; ok {
					cur.union(st.las[it])
				} else {
					kernel[next] = st.las[it].clone()
				}
			}
			key := kernelKey(kernel)
			target, ok := b.byKey[key]
			if !ok {
				target = len(b.states)
				b.byKey[key] = target
				b.states = append(b.states, b.closure(kernel))
				b.trans = append(b.trans, map[int]int{})
			}
			b.trans[i][x] = target
		}
	}
}

type lrAction struct {
	kind   int
	target int
}

const (
	lrShift = iota + 1
	lrReduce
	lrAccept
)

// actions resolves the action for every (state, terminal) pair and the
// goto for every (state, nonterminal) pair. Shift/reduce conflicts are
// settled by precedence and associativity, then in favor of the shift;
// reduce/reduce conflicts by precedence, then by production order.
func (b *lrBuilder) actions() ([]map[int]lrAction, []string) {
	var conflicts []string
	out := make([]map[int]lrAction, len(b.states))
	for i, st := range b.states {
		row := make(map[int]lrAction)
		shiftPrec := make(map[int]int)
		for _, it := range st.items {
			rhs := b.prods[it.prod].rhs
			if it.dot < len(rhs) && rhs[it.dot] < b.nterm {
				x := rhs[it.dot]
				if p, ok := shiftPrec[x]; !ok || b.prods[it.prod].prec > p {
					shiftPrec[x] = b.prods[it.prod].prec
				}
			}
		}
		for x, target := range b.trans[i] {
			row[x] = lrAction{kind: lrShift, target: target}
		}
		reduces := make(map[int][]int)
		for _, it := range st.items {
			if it.dot < len(b.prods[it.prod].rhs) {
				continue
			}
			st.las[it].each(func(a int) {
				reduces[a] = append(reduces[a], it.prod)
			})
		}
		terms := make([]int, 0, len(reduces))
		for a := range reduces {
			terms = append(terms, a)
		}
		sort.Ints(terms)
		for _, a := range terms {
			rs := reduces[a]
			sort.Ints(rs)
			best := rs[0]
			for _, r := range rs[1:] {
				switch {
				case b.prods[r].prec > b.prods[best].prec:
					best = r
				case b.prods[r].prec == b.prods[best].prec:
					conflicts = append(conflicts, fmt.Sprintf("state %d: reduce/reduce on %d between productions %d and %d", i, a, best, r))
				}
			}
			if best == 0 {
				row[a] = lrAction{kind: lrAccept}
				continue
			}
			shift, hasShift := row[a]
			if !hasShift {
				row[a] = lrAction{kind: lrReduce, target: best}
				continue
			}
			pr, ps := b.prods[best].prec, shiftPrec[a]
			switch {
			case pr > ps:
				row[a] = lrAction{kind: lrReduce, target: best}
			case pr < ps:
				row[a] = shift
			case b.prods[best].assoc == AssocLeft:
				row[a] = lrAction{kind: lrReduce, target: best}
			case b.prods[best].assoc == AssocRight:
				row[a] = shift
			default:
				conflicts = append(conflicts, fmt.Sprintf("state %d: shift/reduce on %d with production %d", i, a, best))
			}
		}
		out[i] = row
	}
	return out, conflicts
}
