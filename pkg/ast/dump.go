package ast

import (
	"fmt"
	"io"
	"strings"
)

// Outline writes one line per node: indentation, kind and position.
func Outline(w io.Writer, n *Node) {
	outline(w, n, 0)
}

func outline(w io.Writer, n *Node, depth int) {
	if n == nil {
		return
	}
	fmt.Fprintf(w, "%s%s @%d:%d\n", strings.Repeat("  ", depth), label(n), n.Tok.Line, n.Tok.Column)
	for _, child := range n.Children() {
		outline(w, child, depth+1)
	}
}

// Compact renders n as a position-free s-expression such as
// (Call (Ident f) (String "a")).
func Compact(n *Node) string {
	var sb strings.Builder
	compact(&sb, n)
	return sb.String()
}

func compact(sb *strings.Builder, n *Node) {
	if n == nil {
		sb.WriteString("nil")
		return
	}
	sb.WriteString("(" + label(n))
	for _, child := range n.Children() {
		sb.WriteByte(' ')
		compact(sb, child)
	}
	sb.WriteByte(')')
}

func label(n *Node) string {
	label := n.Type.String()
	switch d := n.Data.(type) {
	case IdentNode:
		label += " " + d.Name
	case NumberNode:
		label += " " + d.Raw
	case StringNode:
		label += fmt.Sprintf(" %q", d.Value)
	case BooleanNode:
		label += fmt.Sprintf(" %v", d.Value)
	case OtherNode:
		label += " <" + d.Kind + ">"
	case BinaryNode:
		label += " " + d.Op.String()
	case AssignNode:
		label += " " + d.Op.String()
	case UnaryNode:
		label += " " + d.Op.String()
	case VarDeclNode:
		label += " " + d.Kind.String()
	case UpdateNode:
		label += " " + d.Op.String()
	case MemberNode:
		if d.Computed {
			label += " []"
		}
		if d.Optional {
			label += " ?."
		}
	case CallNode:
		if d.Optional {
			label += " ?."
		}
	case PropertyNode:
		if d.Shorthand {
			label += " shorthand"
		}
	case FuncNode:
		if d.IsAsync {
			label += " async"
		}
	case ForInNode:
		if d.Of {
			label += " of"
		}
	case YieldNode:
		if d.Delegate {
			label += " *"
		}
	case ExportNode:
		if d.Default {
			label += " default"
		}
	}
	return label
}
