package format

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dhamidi/arbor/syntax"
)

// TreePrinter writes one line per node, indented by depth:
//
//	field: type [row:col - row:col] "text"
//
// Anonymous nodes are printed as quoted tokens and leaf text is cut to fit
// Width when it is set.
type TreePrinter struct {
	w      io.Writer
	styles *Styles
	Width  int
	// Anonymous includes anonymous nodes in the output.
	Anonymous bool
}

func NewTreePrinter(w io.Writer, styles *Styles) *TreePrinter {
	return &TreePrinter{w: w, styles: styles, Anonymous: true}
}

func (p *TreePrinter) Print(tree *syntax.Tree) error {
	return p.PrintNode(tree.Root())
}

func (p *TreePrinter) PrintNode(n syntax.Node) error {
	c := syntax.NewTreeCursor(n)
	defer c.Close()
	for {
		node := c.Node()
		if p.Anonymous || node.IsNamed() {
			if _, err := io.WriteString(p.w, p.line(node, c.FieldName(), int(c.Depth()))+"\n"); err != nil {
				return err
			}
		}
		if c.GotoFirstChild() {
			continue
		}
		for !c.GotoNextSibling() {
			if !c.GotoParent() {
				return nil
			}
		}
	}
}

func (p *TreePrinter) line(n syntax.Node, field string, depth int) string {
	s := p.styles
	var b strings.Builder
	b.WriteString(strings.Repeat("  ", depth))
	if field != "" {
		b.WriteString(s.render(s.Field, field+":"))
		b.WriteByte(' ')
	}
	switch {
	case n.IsMissing():
		name := n.Type()
		if !n.IsNamed() {
			name = strconv.Quote(name)
		}
		b.WriteString(s.render(s.Missing, "MISSING "+name))
	case n.IsError():
		b.WriteString(s.render(s.Error, n.Type()))
	case n.IsNamed():
		b.WriteString(s.render(s.Type, n.Type()))
	default:
		b.WriteString(s.render(s.Anonymous, strconv.Quote(n.Type())))
	}
	b.WriteByte(' ')
	b.WriteString(s.render(s.Range, fmt.Sprintf("[%s - %s]", n.StartPoint(), n.EndPoint())))

	if n.ChildCount() == 0 && n.IsNamed() {
		if text := n.Text(); len(text) > 0 {
			quoted := strconv.Quote(string(text))
			if p.Width > 0 {
				quoted = truncate(quoted, p.Width-lipgloss.Width(b.String())-1)
			}
			if quoted != "" {
				b.WriteByte(' ')
				b.WriteString(s.render(s.Text, quoted))
			}
		}
	}
	return b.String()
}

// truncate shortens s to at most width cells, marking the cut with "…".
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width {
		return s
	}
	if width <= 1 {
		return ""
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "…"
}
