package workspace

import (
	"bytes"

	"github.com/dhamidi/arbor/syntax"
)

// ComputeEdit describes the change from before to after as a single edit
// covering everything between their common prefix and common suffix. It
// reports false when the texts are equal.
func ComputeEdit(before, after []byte) (syntax.InputEdit, bool) {
	prefix := 0
	for prefix < len(before) && prefix < len(after) && before[prefix] == after[prefix] {
		prefix++
	}
	if prefix == len(before) && prefix == len(after) {
		return syntax.InputEdit{}, false
	}
	suffix := 0
	for suffix < len(before)-prefix && suffix < len(after)-prefix &&
		before[len(before)-1-suffix] == after[len(after)-1-suffix] {
		suffix++
	}
	oldEnd := len(before) - suffix
	newEnd := len(after) - suffix
	return syntax.InputEdit{
		StartByte:   uint32(prefix),
		OldEndByte:  uint32(oldEnd),
		NewEndByte:  uint32(newEnd),
		StartPoint:  PointAt(before, prefix),
		OldEndPoint: PointAt(before, oldEnd),
		NewEndPoint: PointAt(after, newEnd),
	}, true
}

// PointAt returns the row and byte column of offset in text.
func PointAt(text []byte, offset int) syntax.Point {
	head := text[:offset]
	row := bytes.Count(head, []byte{'\n'})
	col := offset
	if i := bytes.LastIndexByte(head, '\n'); i >= 0 {
		col = offset - i - 1
	}
	return syntax.Point{Row: uint32(row), Column: uint32(col)}
}
