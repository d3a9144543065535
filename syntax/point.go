package syntax

import "fmt"

// Point is a zero-based row and byte column.
type Point struct {
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

func (p Point) String() string {
	return fmt.Sprintf("%d:%d", p.Row, p.Column)
}

func (p Point) Compare(o Point) int {
	switch {
	case p.Row < o.Row:
		return -1
	case p.Row > o.Row:
		return 1
	case p.Column < o.Column:
		return -1
	case p.Column > o.Column:
		return 1
	}
	return 0
}

type Range struct {
	StartPoint Point  `json:"start_point"`
	EndPoint   Point  `json:"end_point"`
	StartByte  uint32 `json:"start_byte"`
	EndByte    uint32 `json:"end_byte"`
}

func (r Range) String() string {
	return fmt.Sprintf("[%s - %s]", r.StartPoint, r.EndPoint)
}

// InputEdit describes a change to the source text in both byte and point
// coordinates.
type InputEdit struct {
	StartByte   uint32
	OldEndByte  uint32
	NewEndByte  uint32
	StartPoint  Point
	OldEndPoint Point
	NewEndPoint Point
}

// length is a byte count together with the row/column extent it spans.
// Subtrees store their padding and size as lengths so that positions are
// relative and untouched subtrees survive edits unchanged.
type length struct {
	bytes  uint32
	extent Point
}

func (a length) add(b length) length {
	out := length{bytes: a.bytes + b.bytes}
	if b.extent.Row > 0 {
		out.extent = Point{Row: a.extent.Row + b.extent.Row, Column: b.extent.Column}
	} else {
		out.extent = Point{Row: a.extent.Row, Column: a.extent.Column + b.extent.Column}
	}
	return out
}

// sub returns the length from b to a. It saturates at zero.
func (a length) sub(b length) length {
	if a.bytes < b.bytes {
		return length{}
	}
	return length{bytes: a.bytes - b.bytes, extent: pointSub(a.extent, b.extent)}
}

func pointSub(a, b Point) Point {
	if a.Row > b.Row {
		return Point{Row: a.Row - b.Row, Column: a.Column}
	}
	if a.Column < b.Column {
		return Point{}
	}
	return Point{Column: a.Column - b.Column}
}

func pointAdd(a, b Point) Point {
	return length{extent: a}.add(length{extent: b}).extent
}
