package syntax

import (
	"strconv"
	"strings"
)

// PatternString renders the node as an S-expression in which named nodes
// appear as (type ...), fields as "name: (child)", and anonymous nodes are
// left out. Missing nodes render as (MISSING type) and unexpected
// characters as (UNEXPECTED 'c').
func (n Node) PatternString() string {
	if n.sub == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, n, "", true)
	return b.String()
}

func writeNode(b *strings.Builder, n Node, field string, root bool) {
	lang := n.tree.language
	visible := root || n.IsMissing() || n.IsNamed()
	if visible {
		if !root {
			b.WriteByte(' ')
		}
		if field != "" {
			b.WriteString(field)
			b.WriteString(": ")
		}
		switch {
		case n.IsError() && len(n.sub.children) == 0 && n.sub.size.bytes > 0:
			b.WriteString("(UNEXPECTED ")
			b.WriteString(quoteChar(n.sub.char))
		case n.IsMissing():
			b.WriteString("(MISSING ")
			if n.IsNamed() {
				b.WriteString(n.Type())
			} else {
				b.WriteString(strconv.Quote(n.Type()))
			}
		default:
			b.WriteByte('(')
			b.WriteString(n.Type())
		}
	}
	it := newChildIter(n.sub, n.start)
	for ref, ok := it.next(); ok; ref, ok = it.next() {
		c := n.at(ref)
		f := ""
		if ref.field != 0 {
			f = lang.FieldName(ref.field)
		}
		if !c.IsNamed() && !c.IsMissing() {
			f = ""
		}
		writeNode(b, c, f, false)
	}
	if visible {
		b.WriteByte(')')
	}
}

func quoteChar(r rune) string {
	if r == 0 {
		return "''"
	}
	return strconv.QuoteRune(r)
}
