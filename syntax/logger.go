package syntax

import "fmt"

type LogType int

const (
	LogTypeParse LogType = iota
	LogTypeLex
)

func (t LogType) String() string {
	if t == LogTypeLex {
		return "lex"
	}
	return "parse"
}

// Logger receives the parser's debug messages.
type Logger func(t LogType, msg string)

func (p *Parser) logf(t LogType, format string, args ...any) {
	if p.logger == nil {
		return
	}
	p.logger(t, fmt.Sprintf(format, args...))
}
