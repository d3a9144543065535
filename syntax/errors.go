package syntax

import (
	"errors"
	"fmt"
)

var (
	ErrNoLanguage      = errors.New("parser has no language")
	ErrParserClosed    = errors.New("parser is closed")
	ErrIndexOutOfRange = errors.New("index out of range")
)

// IncludedRangesError reports which range made SetIncludedRanges fail.
type IncludedRangesError struct {
	Index  int
	Reason string
}

func (e *IncludedRangesError) Error() string {
	return fmt.Sprintf("included range %d: %s", e.Index, e.Reason)
}
