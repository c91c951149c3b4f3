package expr

import (
	"fmt"
	"strings"
)

// Walk visits n and its argument subtrees depth-first, parents before
// children. Returning false from fn skips the children of that node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	if c, ok := n.(*Call); ok {
		for _, a := range c.args {
			Walk(a.Node, fn)
		}
	}
}

// CountCalls returns the number of operator-call nodes under n.
func CountCalls(n Node) int {
	count := 0
	Walk(n, func(n Node) bool {
		if _, ok := n.(*Call); ok {
			count++
		}
		return true
	})
	return count
}

// Format renders n in call syntax, e.g. Average(Where(xs, <func(int) bool>)).
func Format(n Node) string {
	var sb strings.Builder
	format(&sb, n)
	return sb.String()
}

func format(sb *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Parameter:
		sb.WriteString(n.name)
	case *Value:
		sb.WriteString(formatValue(n))
	case *Call:
		sb.WriteString(n.name)
		sb.WriteByte('(')
		for i, a := range n.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, a.Node)
		}
		sb.WriteByte(')')
	default:
		sb.WriteString("?")
	}
}

func formatValue(v *Value) string {
	if strings.HasPrefix(v.shape.Type, "func") {
		return "<" + v.shape.Type + ">"
	}
	if s, ok := v.v.(string); ok {
		return fmt.Sprintf("%q", s)
	}
	return fmt.Sprintf("%v", v.v)
}

// Tree is a JSON-ready description of an expression tree.
type Tree struct {
	Kind  string `json:"kind"`
	Name  string `json:"name,omitempty"`
	Shape string `json:"shape"`
	Value string `json:"value,omitempty"`
	Args  []Tree `json:"args,omitempty"`
}

// Describe converts n into a Tree. Call arguments carry their declared shapes.
func Describe(n Node) Tree {
	switch n := n.(type) {
	case *Parameter:
		return Tree{Kind: "parameter", Name: n.name, Shape: n.shape.String()}
	case *Value:
		return Tree{Kind: "value", Shape: n.shape.String(), Value: formatValue(n)}
	case *Call:
		t := Tree{Kind: "call", Name: n.name, Shape: n.result.String()}
		for _, a := range n.args {
			child := Describe(a.Node)
			child.Shape = a.Shape.String()
			t.Args = append(t.Args, child)
		}
		return t
	default:
		return Tree{Kind: "unknown"}
	}
}
