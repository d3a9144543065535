package format

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dhamidi/arbor/query"
)

// MatchEncoder writes one grep-style line per capture:
//
//	path:row:col: pattern 1 @name "text"
type MatchEncoder struct {
	w      io.Writer
	styles *Styles
}

func NewMatchEncoder(w io.Writer, styles *Styles) *MatchEncoder {
	return &MatchEncoder{w: w, styles: styles}
}

func (e *MatchEncoder) Encode(path string, m *query.Match) error {
	s := e.styles
	for _, c := range m.Captures {
		p := c.Node.StartPoint()
		loc := fmt.Sprintf("%s:%d:%d:", path, p.Row+1, p.Column+1)
		_, err := fmt.Fprintf(e.w, "%s pattern %d %s %s\n",
			s.render(s.Location, loc),
			m.PatternIndex,
			s.render(s.Capture, "@"+c.Name),
			s.render(s.Text, strconv.Quote(string(c.Node.Text()))),
		)
		if err != nil {
			return err
		}
	}
	return nil
}

type JSONMatch struct {
	ID       uint32        `json:"id"`
	Pattern  int           `json:"pattern"`
	Captures []JSONCapture `json:"captures"`
}

type JSONCapture struct {
	Name  string    `json:"name"`
	Type  string    `json:"type"`
	Start JSONPoint `json:"start"`
	End   JSONPoint `json:"end"`
	Text  string    `json:"text"`
}

func MatchJSON(m *query.Match) JSONMatch {
	jm := JSONMatch{ID: m.ID, Pattern: m.PatternIndex, Captures: make([]JSONCapture, len(m.Captures))}
	for i, c := range m.Captures {
		jm.Captures[i] = JSONCapture{
			Name:  c.Name,
			Type:  c.Node.Type(),
			Start: jsonPoint(c.Node.StartByte(), c.Node.StartPoint()),
			End:   jsonPoint(c.Node.EndByte(), c.Node.EndPoint()),
			Text:  string(c.Node.Text()),
		}
	}
	return jm
}
