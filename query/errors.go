package query

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRange is returned when a cursor range ends before it starts.
	ErrInvalidRange = errors.New("invalid range: end is before start")
	// ErrPatternIndex is returned for a pattern index outside the query.
	ErrPatternIndex = errors.New("pattern index out of range")
	// ErrOffsetOutOfRange is returned for an offset past the query source.
	ErrOffsetOutOfRange = errors.New("offset out of range")
	// ErrNoSuchCapture is returned when a capture name is not in the query.
	ErrNoSuchCapture = errors.New("no such capture")
)

type ErrorKind int

const (
	ErrorSyntax ErrorKind = iota + 1
	ErrorNodeType
	ErrorField
	ErrorCapture
	ErrorStructure
	ErrorPredicate
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorSyntax:
		return "syntax"
	case ErrorNodeType:
		return "node type"
	case ErrorField:
		return "field"
	case ErrorCapture:
		return "capture"
	case ErrorStructure:
		return "structure"
	case ErrorPredicate:
		return "predicate"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// Error is a query compile error. Row and Column are zero-based; both
// are -1 for a syntax error at the end of the source.
type Error struct {
	Kind   ErrorKind
	Row    int
	Column int
	Offset int
	// Text is the offending name, or the message of a predicate error.
	Text string
}

func (e *Error) Error() string {
	switch e.Kind {
	case ErrorSyntax:
		if e.Row < 0 {
			return "unexpected end of query"
		}
		return fmt.Sprintf("invalid syntax at row %d, column %d", e.Row, e.Column)
	case ErrorStructure:
		return fmt.Sprintf("impossible pattern at row %d, column %d", e.Row, e.Column)
	case ErrorPredicate:
		return fmt.Sprintf("invalid predicate in pattern at row %d: %s", e.Row, e.Text)
	default:
		return fmt.Sprintf("invalid %s name at row %d, column %d: %s", e.Kind, e.Row, e.Column, e.Text)
	}
}

// isNameChar reports whether r may appear in node, field, capture and
// predicate names.
func isNameChar(r byte) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	}
	switch r {
	case '_', '-', '.', '?', '!':
		return true
	}
	return r >= 0x80
}

// newError locates offset in src and extracts the name found there.
func newError(kind ErrorKind, src string, offset int) *Error {
	if offset >= len(src) {
		if kind == ErrorSyntax {
			return &Error{Kind: kind, Row: -1, Column: -1, Offset: len(src)}
		}
		offset = len(src)
	}
	e := &Error{Kind: kind, Offset: offset}
	e.Row, e.Column = position(src, offset)
	end := offset
	for end < len(src) && src[end] != '\n' && isNameChar(src[end]) {
		end++
	}
	e.Text = src[offset:end]
	return e
}

func position(src string, offset int) (row, column int) {
	lineStart := 0
	for i := 0; i < offset && i < len(src); i++ {
		if src[i] == '\n' {
			row++
			lineStart = i + 1
		}
	}
	return row, offset - lineStart
}
