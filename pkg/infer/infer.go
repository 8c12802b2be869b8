// Package infer assigns a type tag to an expression without evaluating it.
package infer

import (
	"github.com/xplshn/typefighter/pkg/ast"
	"github.com/xplshn/typefighter/pkg/scope"
	"github.com/xplshn/typefighter/pkg/types"
)

// Inferencer maps expressions to tags. Literals give their kind, identifiers
// follow their declaration chain through the scope graph, and everything else
// is Unknown.
type Inferencer struct {
	graph      *scope.Graph
	chaseIdent bool
}

func NewInferencer(graph *scope.Graph, chaseIdent bool) *Inferencer {
	return &Inferencer{graph: graph, chaseIdent: chaseIdent}
}

func (inf *Inferencer) TypeOf(expr *ast.Node) types.TypeTag {
	return inf.typeOf(expr, nil)
}

func (inf *Inferencer) typeOf(expr *ast.Node, seen map[*ast.Node]bool) types.TypeTag {
	expr = ast.Unparen(expr)
	if expr == nil {
		return types.Unknown
	}
	switch expr.Type {
	case ast.String:
		return types.String
	case ast.Number:
		return types.Number
	case ast.Boolean:
		return types.Boolean
	case ast.Ident:
		if !inf.chaseIdent || inf.graph == nil {
			return types.Unknown
		}
		init := inf.graph.Resolve(expr)
		if init == nil {
			return types.Unknown
		}
		if seen == nil {
			seen = make(map[*ast.Node]bool)
		}
		// a chain that returns to a reference already followed has no type
		if seen[expr] {
			return types.Unknown
		}
		seen[expr] = true
		return inf.typeOf(init, seen)
	}
	return types.Unknown
}
