package syntax

import "sort"

// ChangedRanges compares t, an edited tree, with other, the tree parsed
// from the edited text, and returns the ranges whose syntactic structure
// differs. Records shared by both trees are skipped without descending.
func (t *Tree) ChangedRanges(other *Tree) []Range {
	var out []Range
	diffNodes(t.Root(), other.Root(), &out)
	return mergeRanges(out)
}

func diffNodes(a, b Node, out *[]Range) {
	if a.sub == b.sub && a.start == b.start {
		return
	}
	if !sameShape(a, b) {
		*out = append(*out, unionRange(a.Range(), b.Range()))
		return
	}
	var pairs [][2]Node
	same := true
	zipChildren(a, b, func(x, y childRef) bool {
		if x.field != y.field {
			same = false
			return false
		}
		pairs = append(pairs, [2]Node{a.at(x), b.at(y)})
		return true
	})
	if !same {
		*out = append(*out, unionRange(a.Range(), b.Range()))
		return
	}
	for _, p := range pairs {
		diffNodes(p[0], p[1], out)
	}
}

// zipChildren pairs up the visible children of a and b. Hidden records
// the two trees share at the same position are skipped whole.
func zipChildren(a, b Node, fn func(x, y childRef) bool) {
	ia, ib := newChildIter(a.sub, a.start), newChildIter(b.sub, b.start)
	for {
		x, hx, okx := ia.peek()
		y, hy, oky := ib.peek()
		switch {
		case !okx || !oky:
			return
		case hx && hy && x.sub == y.sub && x.start == y.start && x.field == y.field:
			ia.skip()
			ib.skip()
		case hx:
			ia.enter(x)
		case hy:
			ib.enter(y)
		default:
			ia.skip()
			ib.skip()
			if !fn(x, y) {
				return
			}
		}
	}
}

// sameShape reports whether two nodes cover the same span with the same
// type, flags and number of children.
func sameShape(a, b Node) bool {
	if a.Symbol() != b.Symbol() || a.start != b.start || a.sub.size != b.sub.size {
		return false
	}
	if a.IsExtra() != b.IsExtra() || a.IsMissing() != b.IsMissing() {
		return false
	}
	if a.sub.visibleChildren != b.sub.visibleChildren {
		return false
	}
	return len(a.sub.children) > 0 || !(a.HasChanges() || b.HasChanges())
}

func unionRange(a, b Range) Range {
	out := a
	if b.StartByte < out.StartByte {
		out.StartByte, out.StartPoint = b.StartByte, b.StartPoint
	}
	if b.EndByte > out.EndByte {
		out.EndByte, out.EndPoint = b.EndByte, b.EndPoint
	}
	return out
}

func mergeRanges(rs []Range) []Range {
	if len(rs) == 0 {
		return nil
	}
	sort.Slice(rs, func(i, j int) bool { return rs[i].StartByte < rs[j].StartByte })
	out := []Range{rs[0]}
	for _, r := range rs[1:] {
		last := &out[len(out)-1]
		if r.StartByte <= last.EndByte {
			if r.EndByte > last.EndByte {
				last.EndByte, last.EndPoint = r.EndByte, r.EndPoint
			}
			continue
		}
		out = append(out, r)
	}
	return out
}
