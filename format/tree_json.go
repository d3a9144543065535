package format

import (
	"encoding/json"
	"io"

	"github.com/dhamidi/arbor/syntax"
)

type TreeJSONEncoder struct {
	w io.Writer
}

func NewTreeJSONEncoder(w io.Writer) *TreeJSONEncoder {
	return &TreeJSONEncoder{w: w}
}

func (e *TreeJSONEncoder) Encode(tree *syntax.Tree) error {
	text, err := e.MarshalNode(tree.Root())
	if err != nil {
		return err
	}
	_, err = e.w.Write(append(text, '\n'))
	return err
}

func (e *TreeJSONEncoder) MarshalNode(n syntax.Node) ([]byte, error) {
	return json.MarshalIndent(NodeJSON(n), "", "  ")
}

type JSONNode struct {
	Type     string      `json:"type"`
	Named    bool        `json:"named"`
	Field    string      `json:"field,omitempty"`
	Start    JSONPoint   `json:"start"`
	End      JSONPoint   `json:"end"`
	Text     string      `json:"text,omitempty"`
	Missing  bool        `json:"missing,omitempty"`
	Error    bool        `json:"error,omitempty"`
	Children []*JSONNode `json:"children,omitempty"`
}

type JSONPoint struct {
	Byte   uint32 `json:"byte"`
	Row    uint32 `json:"row"`
	Column uint32 `json:"column"`
}

func jsonPoint(offset uint32, p syntax.Point) JSONPoint {
	return JSONPoint{Byte: offset, Row: p.Row, Column: p.Column}
}

// NodeJSON converts n and its descendants. Leaves carry their text when the
// tree still has its source.
func NodeJSON(n syntax.Node) *JSONNode {
	return nodeJSON(n, "", &syntax.TreeCursor{})
}

func nodeJSON(n syntax.Node, field string, tc *syntax.TreeCursor) *JSONNode {
	jn := &JSONNode{
		Type:    n.Type(),
		Named:   n.IsNamed(),
		Field:   field,
		Start:   jsonPoint(n.StartByte(), n.StartPoint()),
		End:     jsonPoint(n.EndByte(), n.EndPoint()),
		Missing: n.IsMissing(),
		Error:   n.IsError(),
	}
	if n.ChildCount() == 0 {
		jn.Text = string(n.Text())
		return jn
	}
	children := n.Children(tc)
	jn.Children = make([]*JSONNode, len(children))
	for i, child := range children {
		jn.Children[i] = nodeJSON(child, n.FieldNameForChild(i), tc)
	}
	return jn
}
